package config

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/anthonynsimon/bild/imgio"

	"github.com/gogpu/arbor/colonize"
	"github.com/gogpu/arbor/graph"
	"github.com/gogpu/arbor/lsystem"
	"github.com/gogpu/arbor/random"
	"github.com/gogpu/arbor/texmap"
)

// LSystem selects a grammar. Axiom and Rules replace the preset's when
// set; Params entries override individual interpretation parameters.
type LSystem struct {
	Preset    string         `mapstructure:"preset"`
	Axiom     string         `mapstructure:"axiom"`
	Rules     []string       `mapstructure:"rules"`
	Ignore    string         `mapstructure:"ignore"`
	MaxLength int            `mapstructure:"maxLength"`
	Params    map[string]any `mapstructure:"params"`
}

// DefaultLSystem returns an empty section using the built-in parameters.
func DefaultLSystem() *LSystem { return &LSystem{} }

// Grammar builds the grammar described by the section.
func (c *LSystem) Grammar() (lsystem.Grammar, error) {
	g := lsystem.Grammar{Name: "custom", Params: lsystem.DefaultParams()}
	if c.Preset != "" {
		p, ok := lsystem.Preset(c.Preset)
		if !ok {
			return g, fmt.Errorf("config: lsystem: unknown preset %q (have %s)", c.Preset, strings.Join(lsystem.PresetNames(), ", "))
		}
		g = p
	}
	if c.Axiom != "" {
		g.Axiom = c.Axiom
	}
	if len(c.Rules) > 0 {
		rules, err := lsystem.ParseRules(strings.Join(c.Rules, "\n"))
		if err != nil {
			return g, fmt.Errorf("config: lsystem: %w", err)
		}
		g.Rules = rules
	}
	if len(c.Params) > 0 {
		if err := decode("lsystem.params", c.Params, &g.Params); err != nil {
			return g, err
		}
	}
	if g.Axiom == "" {
		return g, fmt.Errorf("config: lsystem: no axiom and no preset")
	}
	return g, nil
}

// EngineOptions returns the rewrite options implied by the section.
func (c *LSystem) EngineOptions() []lsystem.Option {
	var opts []lsystem.Option
	if c.MaxLength > 0 {
		opts = append(opts, lsystem.WithMaxLength(c.MaxLength))
	}
	if c.Ignore != "" {
		opts = append(opts, lsystem.WithIgnore(c.Ignore))
	}
	return opts
}

func (c *LSystem) validate() error {
	if c.MaxLength < 0 {
		return fmt.Errorf("config: lsystem: negative maxLength %d", c.MaxLength)
	}
	_, err := c.Grammar()
	return err
}

// Point is a position in graph space.
type Point struct {
	X float64 `mapstructure:"x"`
	Y float64 `mapstructure:"y"`
}

// Vec returns p as a graph vector.
func (p Point) Vec() graph.Vec2 { return graph.V2(p.X, p.Y) }

// Region is the rectangle attractors are scattered in.
type Region struct {
	X      float64 `mapstructure:"x"`
	Y      float64 `mapstructure:"y"`
	Width  float64 `mapstructure:"width"`
	Height float64 `mapstructure:"height"`
}

// Rect returns the region as a graph rectangle.
func (r Region) Rect() graph.Rect { return graph.R(r.X, r.Y, r.X+r.Width, r.Y+r.Height) }

// Noise configures the noise strategy's density mask.
type Noise struct {
	Scale     float64 `mapstructure:"scale"`
	Octaves   int     `mapstructure:"octaves"`
	Threshold float64 `mapstructure:"threshold"`
}

// Colonize describes a space colonization run: where attractors come from
// and how the solver grows toward them.
type Colonize struct {
	// Strategy is uniform, radial, poisson, noise or image.
	Strategy string  `mapstructure:"strategy"`
	Count    int     `mapstructure:"count"`
	Seed     uint64  `mapstructure:"seed"`
	Region   Region  `mapstructure:"region"`
	Seeds    []Point `mapstructure:"seeds"`

	RadialBias float64 `mapstructure:"radialBias"`
	MinDist    float64 `mapstructure:"minDist"`
	Noise      Noise   `mapstructure:"noise"`

	// Image is the mask file for the image strategy. Bright pixels attract
	// unless Invert is set.
	Image  string  `mapstructure:"image"`
	Blur   float64 `mapstructure:"blur"`
	Invert bool    `mapstructure:"invert"`

	AttractionRadius float64 `mapstructure:"attractionRadius"`
	KillDistance     float64 `mapstructure:"killDistance"`
	StepSize         float64 `mapstructure:"stepSize"`
	MaxIterations    int     `mapstructure:"maxIterations"`
	Bias             Point   `mapstructure:"bias"`
	BiasWeight       float64 `mapstructure:"biasWeight"`
	Thickness        string  `mapstructure:"thickness"`
	BaseWidth        float64 `mapstructure:"baseWidth"`
}

// DefaultColonize returns a 400x400 uniform run with the solver defaults.
func DefaultColonize() *Colonize {
	p := colonize.DefaultParams()
	return &Colonize{
		Strategy:         "uniform",
		Count:            400,
		Seed:             1,
		Region:           Region{Width: 400, Height: 400},
		RadialBias:       colonize.DefaultRadialBias,
		Noise:            Noise{Scale: 4, Octaves: 3, Threshold: 0.5},
		Blur:             2,
		AttractionRadius: p.AttractionRadius,
		KillDistance:     p.KillDistance,
		StepSize:         p.StepSize,
		MaxIterations:    p.MaxIterations,
		Bias:             Point{X: p.Bias.X, Y: p.Bias.Y},
		BiasWeight:       p.BiasWeight,
		Thickness:        string(p.Thickness),
		BaseWidth:        p.BaseWidth,
	}
}

// Params returns the solver parameters.
func (c *Colonize) Params() (colonize.Params, error) {
	mode, err := colonize.ParseThicknessMode(c.Thickness)
	if err != nil {
		return colonize.Params{}, fmt.Errorf("config: %w", err)
	}
	return colonize.Params{
		AttractionRadius: c.AttractionRadius,
		KillDistance:     c.KillDistance,
		StepSize:         c.StepSize,
		MaxIterations:    c.MaxIterations,
		Bias:             c.Bias.Vec(),
		BiasWeight:       c.BiasWeight,
		Thickness:        mode,
		BaseWidth:        c.BaseWidth,
	}, nil
}

// PlacementStrategy returns the attractor placement strategy. The image strategy
// reads its mask file.
func (c *Colonize) PlacementStrategy() (colonize.Strategy, error) {
	switch c.Strategy {
	case "", "uniform":
		return colonize.Uniform{}, nil
	case "radial":
		return colonize.Radial{Bias: c.RadialBias}, nil
	case "poisson":
		return colonize.Poisson{MinDist: c.MinDist}, nil
	case "noise":
		return colonize.Mask{Density: colonize.NewNoiseMask(int64(c.Seed), c.Noise.Scale, c.Noise.Octaves, c.Noise.Threshold)}, nil
	case "image":
		if c.Image == "" {
			return nil, fmt.Errorf("config: colonize: image strategy needs an image path")
		}
		img, err := imgio.Open(c.Image)
		if err != nil {
			return nil, fmt.Errorf("config: colonize: %w", err)
		}
		return colonize.Mask{Density: colonize.NewImageMask(img, c.Blur, c.Invert)}, nil
	}
	return nil, fmt.Errorf("config: colonize: unknown strategy %q", c.Strategy)
}

// Attractors scatters Count points over the region.
func (c *Colonize) Attractors() ([]graph.Vec2, error) {
	s, err := c.PlacementStrategy()
	if err != nil {
		return nil, err
	}
	return s.Generate(c.Region.Rect(), c.Count, random.New(c.Seed)), nil
}

// SeedPoints returns the configured seeds, or the bottom centre of the
// region when none are given.
func (c *Colonize) SeedPoints() []graph.Vec2 {
	if len(c.Seeds) == 0 {
		r := c.Region.Rect()
		return []graph.Vec2{graph.V2(r.Center().X, r.Max.Y)}
	}
	out := make([]graph.Vec2, len(c.Seeds))
	for i, s := range c.Seeds {
		out[i] = s.Vec()
	}
	return out
}

// Solver builds a ready-to-run solver.
func (c *Colonize) Solver() (*colonize.Solver, error) {
	p, err := c.Params()
	if err != nil {
		return nil, err
	}
	attr, err := c.Attractors()
	if err != nil {
		return nil, err
	}
	return colonize.New(p, c.SeedPoints(), attr), nil
}

func (c *Colonize) validate() error {
	if c.Count < 0 {
		return fmt.Errorf("config: colonize: negative count %d", c.Count)
	}
	if _, err := c.Params(); err != nil {
		return err
	}
	switch c.Strategy {
	case "", "uniform", "radial", "poisson", "noise":
	case "image":
		if c.Image == "" {
			return fmt.Errorf("config: colonize: image strategy needs an image path")
		}
	default:
		return fmt.Errorf("config: colonize: unknown strategy %q", c.Strategy)
	}
	return nil
}

// Raster configures map baking.
type Raster struct {
	Width       int     `mapstructure:"width"`
	Height      int     `mapstructure:"height"`
	Maps        string  `mapstructure:"maps"`
	MaxDistance float64 `mapstructure:"maxDistance"`
	LineScale   float64 `mapstructure:"lineScale"`

	// Device is auto, software or the name of a registered device.
	Device string `mapstructure:"device"`
	Out    string `mapstructure:"out"`
}

// DefaultRaster returns 512x512 settings producing every map.
func DefaultRaster() Raster {
	return Raster{Width: 512, Height: 512, Maps: "all", LineScale: 1, Device: "auto", Out: "."}
}

// Settings converts the section to pipeline settings.
func (r Raster) Settings() (texmap.Settings, error) {
	maps, err := texmap.ParseMapSet(r.Maps)
	if err != nil {
		return texmap.Settings{}, fmt.Errorf("config: raster: %w", err)
	}
	return texmap.Settings{
		Width:       r.Width,
		Height:      r.Height,
		Maps:        maps,
		MaxDistance: r.MaxDistance,
		LineScale:   r.LineScale,
	}, nil
}

func (r Raster) validate() error {
	if r.Width <= 0 || r.Height <= 0 {
		return fmt.Errorf("config: raster: invalid resolution %dx%d", r.Width, r.Height)
	}
	_, err := r.Settings()
	return err
}

// Log configures the process logger.
type Log struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DefaultLog returns warn-level text logging.
func DefaultLog() Log { return Log{Level: "warn", Format: "text"} }

func (l Log) level() (slog.Level, error) {
	lv := slog.LevelWarn
	if l.Level == "" {
		return lv, nil
	}
	if err := lv.UnmarshalText([]byte(l.Level)); err != nil {
		return lv, fmt.Errorf("config: log: %w", err)
	}
	return lv, nil
}

// Logger returns a logger writing to w in the configured format.
func (l Log) Logger(w io.Writer) (*slog.Logger, error) {
	lv, err := l.level()
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: lv}
	switch l.Format {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return nil, fmt.Errorf("config: log: unknown format %q", l.Format)
}

func (l Log) validate() error {
	_, err := l.Logger(io.Discard)
	return err
}
