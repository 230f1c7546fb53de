package config

import (
	"context"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/arbor/colonize"
	"github.com/gogpu/arbor/texmap"
)

const yamlDoc = `
lsystem:
  preset: koch
  params:
    angle: "60"
    iterations: 2
colonize:
  strategy: poisson
  count: 50
  seed: 7
  region: {x: 0, y: 0, width: 100, height: 100}
  seeds:
    - {x: 50, y: 100}
  thickness: depth
raster:
  width: 64
  height: 32
  maps: distance,id
log:
  level: debug
`

const tomlDoc = `
[lsystem]
axiom = "A"
rules = ["A -> AB", "B -> A"]
ignore = "+-"
maxLength = 100

[lsystem.params]
step = 3

[raster]
width = 16
height = 16
maxDistance = 4.5
`

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLoadYAML(t *testing.T) {
	f, err := LoadFile(writeFile(t, "arbor.yaml", yamlDoc), nil)
	require.NoError(t, err)

	require.NotNil(t, f.LSystem)
	g, err := f.LSystem.Grammar()
	require.NoError(t, err)
	assert.Equal(t, "koch", g.Name)
	assert.Equal(t, 60.0, g.Params.Angle)
	assert.Equal(t, 2, g.Params.Iterations)
	assert.Equal(t, 5.0, g.Params.Step, "preset value survives a partial override")

	require.NotNil(t, f.Colonize)
	assert.Equal(t, "poisson", f.Colonize.Strategy)
	assert.Equal(t, 50, f.Colonize.Count)
	assert.Equal(t, 8.0, f.Colonize.KillDistance, "unset fields keep defaults")
	p, err := f.Colonize.Params()
	require.NoError(t, err)
	assert.Equal(t, colonize.ThicknessDepth, p.Thickness)

	s, err := f.Raster.Settings()
	require.NoError(t, err)
	assert.Equal(t, 64, s.Width)
	assert.Equal(t, 32, s.Height)
	assert.True(t, s.Maps.Has(texmap.MapDistance))
	assert.True(t, s.Maps.Has(texmap.MapID))
	assert.False(t, s.Maps.Has(texmap.MapDirection))

	assert.Equal(t, "debug", f.Log.Level)
}

func TestLoadTOML(t *testing.T) {
	f, err := LoadFile(writeFile(t, "arbor.toml", tomlDoc), nil)
	require.NoError(t, err)
	assert.Nil(t, f.Colonize)

	g, err := f.LSystem.Grammar()
	require.NoError(t, err)
	assert.Equal(t, "A", g.Axiom)
	require.Len(t, g.Rules, 2)
	assert.Equal(t, 'A', g.Rules[0].Predecessor)
	assert.Equal(t, 3.0, g.Params.Step)
	assert.Len(t, f.LSystem.EngineOptions(), 2)

	assert.Equal(t, "ABA", g.Generate(f.LSystem.EngineOptions()...)[:3])
	assert.Equal(t, 4.5, f.Raster.MaxDistance)
}

func TestDefaults(t *testing.T) {
	f, err := NewDocument().Decode()
	require.NoError(t, err)
	assert.Nil(t, f.LSystem)
	assert.Nil(t, f.Colonize)
	assert.Equal(t, DefaultRaster(), f.Raster)
	assert.Equal(t, DefaultLog(), f.Log)
}

func TestOverrides(t *testing.T) {
	d, err := Parse([]byte(yamlDoc), FormatYAML)
	require.NoError(t, err)
	require.NoError(t, d.Apply([]string{
		"raster.width=128",
		"lsystem.preset=",
		"lsystem.axiom=X",
		"lsystem.rules+=X -> F[+X]-X",
		"lsystem.rules+=F -> FF",
		"colonize.region.width=250",
	}))
	f, err := d.Decode()
	require.NoError(t, err)
	assert.Equal(t, 128, f.Raster.Width)
	assert.Equal(t, 250.0, f.Colonize.Region.Width)

	g, err := f.LSystem.Grammar()
	require.NoError(t, err)
	assert.Equal(t, "custom", g.Name)
	assert.Len(t, g.Rules, 2)
	assert.Equal(t, 60.0, g.Params.Angle)
}

func TestOverrideErrors(t *testing.T) {
	d := NewDocument()
	assert.Error(t, d.Apply([]string{"raster.width"}))
	assert.Error(t, d.Apply([]string{"raster..width=3"}))

	require.NoError(t, d.Apply([]string{"raster.width=3"}))
	assert.Error(t, d.Set("raster.width.x", 1), "scalar cannot become a table")

	v, ok := d.Get("raster.width")
	require.True(t, ok)
	assert.Equal(t, "3", v)
	_, ok = d.Get("raster.height")
	assert.False(t, ok)
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"unknown section", "render: {}"},
		{"unknown key", "raster: {widht: 3}"},
		{"zero width", "raster: {width: 0}"},
		{"negative height", "raster: {height: -4}"},
		{"bad maps", "raster: {maps: normals}"},
		{"bad level", "log: {level: loud}"},
		{"bad log format", "log: {format: xml}"},
		{"bad strategy", "colonize: {strategy: spiral}"},
		{"image without path", "colonize: {strategy: image}"},
		{"bad thickness", "colonize: {thickness: wobbly}"},
		{"negative count", "colonize: {count: -1}"},
		{"unknown preset", "lsystem: {preset: oak}"},
		{"bad rule", "lsystem: {axiom: F, rules: [F FF]}"},
		{"no axiom", "lsystem: {maxLength: 10}"},
		{"bad params", "lsystem: {preset: koch, params: {spin: 3}}"},
		{"type mismatch", "raster: {width: wide}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := Parse([]byte(tt.doc), FormatYAML)
			require.NoError(t, err)
			_, err = d.Decode()
			assert.Error(t, err)
		})
	}
}

func TestFormatOf(t *testing.T) {
	for path, want := range map[string]Format{"a.yaml": FormatYAML, "a.YML": FormatYAML, "a.json": FormatYAML, "a.toml": FormatTOML} {
		got, err := FormatOf(path)
		require.NoError(t, err, path)
		assert.Equal(t, want, got, path)
	}
	_, err := FormatOf("a.ini")
	assert.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Parse([]byte("x = ["), FormatTOML)
	assert.Error(t, err)
}

func TestColonizeSolver(t *testing.T) {
	c := DefaultColonize()
	assert.Equal(t, float64(colonize.DefaultRadialBias), c.RadialBias)
	c.Count = 80
	c.Region = Region{Width: 120, Height: 120}
	c.MaxIterations = 50

	attr, err := c.Attractors()
	require.NoError(t, err)
	require.Len(t, attr, 80)
	for _, a := range attr {
		assert.True(t, c.Region.Rect().Contains(a))
	}
	again, err := c.Attractors()
	require.NoError(t, err)
	assert.Equal(t, attr, again, "same seed, same attractors")

	seeds := c.SeedPoints()
	require.Len(t, seeds, 1)
	assert.Equal(t, 60.0, seeds[0].X)
	assert.Equal(t, 120.0, seeds[0].Y)

	s, err := c.Solver()
	require.NoError(t, err)
	g, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Greater(t, g.Len(), 1)
}

func TestColonizeStrategies(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 8, 8))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	path := filepath.Join(t.TempDir(), "mask.png")
	fh, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(fh, img))
	require.NoError(t, fh.Close())

	for _, name := range []string{"uniform", "radial", "poisson", "noise", "image"} {
		t.Run(name, func(t *testing.T) {
			c := DefaultColonize()
			c.Strategy = name
			c.Count = 20
			c.Image = path
			c.Blur = 0
			s, err := c.PlacementStrategy()
			require.NoError(t, err)
			require.NotNil(t, s)
			pts, err := c.Attractors()
			require.NoError(t, err)
			assert.LessOrEqual(t, len(pts), 20)
		})
	}

	c := DefaultColonize()
	c.Strategy = "image"
	c.Image = filepath.Join(t.TempDir(), "nope.png")
	_, err = c.PlacementStrategy()
	assert.Error(t, err)
}

func TestLogger(t *testing.T) {
	l, err := Log{Level: "info", Format: "json"}.Logger(os.Stderr)
	require.NoError(t, err)
	assert.True(t, l.Enabled(context.Background(), 0))

	l, err = DefaultLog().Logger(os.Stderr)
	require.NoError(t, err)
	assert.False(t, l.Enabled(context.Background(), 0))
}
