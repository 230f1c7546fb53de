// Package turtle interprets rewritten L-system strings as 2D turtle drawing
// commands and records the result as a branch graph.
//
//	F, G    draw forward (step or explicit argument), linking a new node
//	f, g    move forward without drawing; detaches the current node
//	+, -    turn by ±angle (or explicit argument) plus random jitter
//	|       turn around
//	[, ]    push / pop the turtle state
//	!, #    shrink / grow width by the width decay
//	@       set step to the argument, or multiply it by the length decay
//	& ^ \ / reserved for 3D, ignored
package turtle

import (
	"math"

	"github.com/gogpu/arbor/graph"
	"github.com/gogpu/arbor/lsystem"
)

// Params configures interpretation.
type Params struct {
	// Angle is the turn angle in degrees.
	Angle float64

	// Step is the initial forward move length.
	Step float64

	WidthInitial float64
	WidthDecay   float64
	LengthDecay  float64

	// AngleVariance is the maximum jitter in degrees added to every turn.
	AngleVariance float64

	// Heading is the initial direction. The zero value means (0,-1).
	Heading graph.Vec2
}

// DefaultParams mirrors lsystem.DefaultParams.
func DefaultParams() Params {
	return FromGrammar(lsystem.DefaultParams())
}

// FromGrammar converts grammar interpretation parameters.
func FromGrammar(p lsystem.Params) Params {
	return Params{
		Angle:         p.Angle,
		Step:          p.Step,
		WidthInitial:  p.Width,
		WidthDecay:    p.WidthDecay,
		LengthDecay:   p.LengthDecay,
		AngleVariance: p.AngleVariance,
		Heading:       graph.Vec2{X: 0, Y: -1},
	}
}

// State is the turtle cursor. It is pushed and popped by '[' and ']'.
type State struct {
	Pos     graph.Vec2
	Heading graph.Vec2
	Width   float64
	Depth   int

	// Node is the node most recently drawn to, or graph.NoNode when detached.
	Node graph.NodeID
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }
