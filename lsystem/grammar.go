// Package lsystem implements a parallel string-rewriting grammar with
// stochastic, parametric and context-sensitive productions.
//
// Parameter and guard expressions are evaluated by a closed arithmetic
// grammar; a malformed expression never aborts a rewrite. Broken guards
// count as satisfied and broken parameters fall back to the matched
// symbol's first parameter.
package lsystem

import (
	"fmt"
	"sort"

	"github.com/gogpu/arbor/random"
)

// Params are the interpretation parameters carried alongside a grammar.
type Params struct {
	// Angle is the turn angle in degrees.
	Angle float64 `json:"angle" yaml:"angle" toml:"angle" mapstructure:"angle"`

	// Step is the forward move length.
	Step float64 `json:"step" yaml:"step" toml:"step" mapstructure:"step"`

	// LengthDecay multiplies Step on '@' without an argument.
	LengthDecay float64 `json:"lengthDecay" yaml:"lengthDecay" toml:"lengthDecay" mapstructure:"lengthDecay"`

	// WidthDecay multiplies the width on '[' and '!'.
	WidthDecay float64 `json:"widthDecay" yaml:"widthDecay" toml:"widthDecay" mapstructure:"widthDecay"`

	// Width is the initial stroke width.
	Width float64 `json:"width" yaml:"width" toml:"width" mapstructure:"width"`

	// AngleVariance is the maximum random jitter, in degrees, added to turns.
	AngleVariance float64 `json:"angleVariance" yaml:"angleVariance" toml:"angleVariance" mapstructure:"angleVariance"`

	Iterations int    `json:"iterations" yaml:"iterations" toml:"iterations" mapstructure:"iterations"`
	Seed       uint64 `json:"seed" yaml:"seed" toml:"seed" mapstructure:"seed"`
}

// DefaultParams returns the parameters used when a grammar leaves them unset.
func DefaultParams() Params {
	return Params{
		Angle:       25,
		Step:        10,
		LengthDecay: 0.9,
		WidthDecay:  0.7,
		Width:       2,
		Iterations:  4,
		Seed:        1,
	}
}

// Grammar is an axiom with its rules and interpretation parameters.
type Grammar struct {
	Name   string
	Axiom  string
	Rules  []Rule
	Params Params
}

// Generate rewrites the grammar with an engine seeded from Params.Seed.
func (g Grammar) Generate(opts ...Option) string {
	return NewEngine(random.New(g.Params.Seed), opts...).Rewrite(g.Axiom, g.Rules, g.Params.Iterations)
}

var presets = map[string]Grammar{}

func register(g Grammar) {
	if _, dup := presets[g.Name]; dup {
		panic(fmt.Sprintf("lsystem: duplicate preset %q", g.Name))
	}
	presets[g.Name] = g
}

// Preset returns a copy of the named built-in grammar.
func Preset(name string) (Grammar, bool) {
	g, ok := presets[name]
	if !ok {
		return Grammar{}, false
	}
	g.Rules = append([]Rule(nil), g.Rules...)
	return g, true
}

// MustPreset is like Preset but panics for an unknown name.
func MustPreset(name string) Grammar {
	g, ok := Preset(name)
	if !ok {
		panic(fmt.Sprintf("lsystem: unknown preset %q", name))
	}
	return g
}

// PresetNames returns the built-in grammar names in sorted order.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for n := range presets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
