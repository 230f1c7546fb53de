package colonize

import (
	"context"
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/arbor/graph"
	"github.com/gogpu/arbor/random"
)

var region = graph.R(0, 0, 200, 200)

func assertKillInvariant(t *testing.T, s *Solver, g *graph.Graph) {
	t.Helper()
	r := s.params.KillDistance
	for _, a := range s.Attractors() {
		if !a.Active {
			continue
		}
		for _, n := range g.Nodes {
			require.Greater(t, n.Pos.Distance(a.Pos), r, "active attractor %v within kill distance of node %d", a.Pos, n.ID)
		}
	}
}

func TestRunGrowsTowardAttractors(t *testing.T) {
	pts := Uniform{}.Generate(graph.R(50, 60, 150, 160), 300, random.New(3))
	p := DefaultParams()
	s := New(p, []graph.Vec2{graph.V2(100, 200)}, pts)

	g, err := s.Run(context.Background())
	require.NoError(t, err)
	require.NoError(t, g.Validate())
	assert.Greater(t, g.Len(), 10)
	assert.Len(t, g.Roots, 1)
	assert.LessOrEqual(t, s.Stats().Iterations, p.MaxIterations)
	assertKillInvariant(t, s, g)

	// growth went up toward the cloud
	assert.Less(t, g.Bounds.Min.Y, 150.0)
}

func TestRunDeterministic(t *testing.T) {
	run := func() *graph.Graph {
		pts := Poisson{}.Generate(region, 200, random.New(11))
		g, err := New(DefaultParams(), []graph.Vec2{graph.V2(100, 200)}, pts).Run(context.Background())
		require.NoError(t, err)
		return g
	}
	a, b := run(), run()
	require.Equal(t, a.Len(), b.Len())
	for i := range a.Nodes {
		assert.Equal(t, a.Nodes[i].Pos, b.Nodes[i].Pos)
	}
}

func TestMaxIterationsBound(t *testing.T) {
	pts := Uniform{}.Generate(region, 400, random.New(5))
	p := DefaultParams()
	p.MaxIterations = 3
	s := New(p, []graph.Vec2{graph.V2(100, 100)}, pts)
	g, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.LessOrEqual(t, s.Stats().Iterations, 3)
	assert.LessOrEqual(t, g.MaxDepth(), 3)
	assertKillInvariant(t, s, g)
}

func TestZeroIterationsStillKills(t *testing.T) {
	p := DefaultParams()
	p.MaxIterations = 0
	s := New(p, []graph.Vec2{graph.V2(0, 0)}, []graph.Vec2{graph.V2(1, 1), graph.V2(100, 100)})
	g, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, g.Len())
	assert.Equal(t, 1, s.Stats().Killed)
	assert.Equal(t, StopMaxIter, s.Stats().Reason)
	assertKillInvariant(t, s, g)
}

func TestDegenerateInputs(t *testing.T) {
	g, err := New(DefaultParams(), nil, []graph.Vec2{graph.V2(1, 1)}).Run(context.Background())
	require.NoError(t, err)
	assert.True(t, g.Empty())
	assert.Empty(t, g.Roots)
	require.NoError(t, g.Validate())

	s := New(DefaultParams(), []graph.Vec2{graph.V2(0, 0), graph.V2(10, 0)}, nil)
	g, err = s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, g.Len())
	assert.Len(t, g.Roots, 2)
	assert.Equal(t, StopExhausted, s.Stats().Reason)

	// out of reach
	s = New(DefaultParams(), []graph.Vec2{graph.V2(0, 0)}, []graph.Vec2{graph.V2(1000, 1000)})
	g, err = s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, g.Len())
	assert.Equal(t, StopStalled, s.Stats().Reason)
}

func TestSymmetricAttractorsStall(t *testing.T) {
	// opposite pulls cancel; the zero direction must not loop forever
	p := DefaultParams()
	p.BiasWeight = 0
	s := New(p, []graph.Vec2{graph.V2(0, 0)}, []graph.Vec2{graph.V2(-30, 0), graph.V2(30, 0)})
	g, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, g.Len())
	assert.Equal(t, StopStalled, s.Stats().Reason)
}

func TestCancellationReturnsPartial(t *testing.T) {
	pts := Uniform{}.Generate(region, 500, random.New(9))
	s := New(DefaultParams(), []graph.Vec2{graph.V2(100, 200)}, pts)

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	s.OnProgress(func(g *graph.Graph, iter int) {
		calls++
		assert.Equal(t, 0, iter%ProgressInterval)
		cancel()
	})
	g, err := s.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.NoError(t, g.Validate())
	assert.Equal(t, 1, calls)
	assert.Equal(t, StopCanceled, s.Stats().Reason)
	assert.Equal(t, ProgressInterval, s.Stats().Iterations)
	assertKillInvariant(t, s, g)
}

func TestThicknessModes(t *testing.T) {
	pts := Uniform{}.Generate(graph.R(0, 0, 100, 60), 150, random.New(2))
	for _, mode := range []ThicknessMode{ThicknessConstant, ThicknessDepth, ThicknessFlow} {
		t.Run(string(mode), func(t *testing.T) {
			p := DefaultParams()
			p.Thickness = mode
			p.BaseWidth = 2
			g, err := New(p, []graph.Vec2{graph.V2(50, 100)}, pts).Run(context.Background())
			require.NoError(t, err)
			for _, n := range g.Nodes {
				switch mode {
				case ThicknessConstant:
					assert.Equal(t, 2.0, n.Thickness)
				case ThicknessDepth:
					assert.InDelta(t, 2*(1-float64(n.Depth)/float64(g.MaxDepth()+1)), n.Thickness, 1e-9)
				case ThicknessFlow:
					assert.InDelta(t, 2*float64(n.Order)/float64(g.MaxOrder()), n.Thickness, 1e-9)
				}
			}
		})
	}
}

func TestParseThicknessMode(t *testing.T) {
	m, err := ParseThicknessMode("depth")
	require.NoError(t, err)
	assert.Equal(t, ThicknessDepth, m)
	m, err = ParseThicknessMode("")
	require.NoError(t, err)
	assert.Equal(t, ThicknessFlow, m)
	_, err = ParseThicknessMode("fat")
	assert.Error(t, err)
}

func TestBiasSteersGrowth(t *testing.T) {
	p := DefaultParams()
	p.Bias = graph.V2(1, 0)
	p.BiasWeight = 5
	p.MaxIterations = 1
	s := New(p, []graph.Vec2{graph.V2(0, 0)}, []graph.Vec2{graph.V2(0, -40)})
	g, err := s.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, g.Len())
	assert.Greater(t, g.Nodes[1].Pos.X, 0.0)
}

func TestStrategiesStayInRegion(t *testing.T) {
	strategies := map[string]Strategy{
		"uniform": Uniform{},
		"radial":  Radial{Bias: 2},
		"poisson": Poisson{},
		"mask":    Mask{Density: DensityFunc(func(u, v float64) float64 { return u })},
		"noise":   Mask{Density: NewNoiseMask(1, 3, 3, 0.2)},
	}
	for name, st := range strategies {
		t.Run(name, func(t *testing.T) {
			pts := st.Generate(region, 300, random.New(4))
			assert.NotEmpty(t, pts)
			assert.LessOrEqual(t, len(pts), 300)
			for _, p := range pts {
				assert.True(t, p.X >= region.Min.X && p.X <= region.Max.X && p.Y >= region.Min.Y && p.Y <= region.Max.Y, "%v", p)
			}
		})
	}
}

func TestPoissonSeparation(t *testing.T) {
	pts := Poisson{MinDist: 10}.Generate(region, 1000, random.New(8))
	require.Greater(t, len(pts), 100)
	for i := range pts {
		for j := i + 1; j < len(pts); j++ {
			require.GreaterOrEqual(t, pts[i].Distance(pts[j]), 10.0)
		}
	}
}

func TestRadialBiasFavoursBoundary(t *testing.T) {
	mean := func(bias float64) float64 {
		pts := Radial{Bias: bias}.Generate(region, 2000, random.New(6))
		c := region.Center()
		sum := 0.0
		for _, p := range pts {
			sum += p.Distance(c)
		}
		return sum / float64(len(pts))
	}
	assert.Greater(t, mean(6), mean(-1))
	assert.Greater(t, mean(0), mean(-1), "zero bias uses the default boundary bias")
}

func TestRadialDefaultFavoursBoundary(t *testing.T) {
	normalizedMean := func(r Radial) float64 {
		pts := r.Generate(region, 20000, random.New(6))
		c := region.Center()
		rx, ry := region.Width()/2, region.Height()/2
		sum := 0.0
		for _, p := range pts {
			sum += math.Hypot((p.X-c.X)/rx, (p.Y-c.Y)/ry)
		}
		return sum / float64(len(pts))
	}
	// Uniform over a disc has mean normalized radius 2/3.
	assert.InDelta(t, 2.0/3, normalizedMean(Radial{Bias: -1}), 0.02)
	assert.Greater(t, normalizedMean(Radial{}), 2.0/3+0.05)
}

func TestMaskRejectsEmptyDensity(t *testing.T) {
	pts := Mask{Density: DensityFunc(func(u, v float64) float64 { return 0 }), Tries: 4}.Generate(region, 50, random.New(1))
	assert.Empty(t, pts)

	pts = Mask{Density: DensityFunc(func(u, v float64) float64 {
		if u < 0.5 {
			return 1
		}
		return 0
	})}.Generate(region, 200, random.New(1))
	require.Len(t, pts, 200)
	for _, p := range pts {
		assert.Less(t, p.X, 100.0)
	}
}

func TestImageMask(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 64, 32))
	for y := range 32 {
		for x := 32; x < 64; x++ {
			img.SetGray(x, y, color.Gray{Y: 255})
		}
	}
	m := NewImageMask(img, 0, false)
	w, h := m.Size()
	assert.Equal(t, 64, w)
	assert.Equal(t, 32, h)
	assert.InDelta(t, 0, m.Density(0.1, 0.5), 0.01)
	assert.InDelta(t, 1, m.Density(0.9, 0.5), 0.01)

	inv := NewImageMask(img, 0, true)
	assert.InDelta(t, 1, inv.Density(0.1, 0.5), 0.01)

	big := NewImageMask(image.NewGray(image.Rect(0, 0, 2048, 1024)), 1, false)
	w, h = big.Size()
	assert.Equal(t, maxMaskSide, w)
	assert.Equal(t, maxMaskSide/2, h)
}

func TestNoiseMaskRange(t *testing.T) {
	m := NewNoiseMask(42, 4, 4, 0.45)
	zeros := 0
	for i := range 50 {
		for j := range 50 {
			d := m.Density(float64(i)/50, float64(j)/50)
			require.GreaterOrEqual(t, d, 0.0)
			require.LessOrEqual(t, d, 1.0)
			if d == 0 {
				zeros++
			}
		}
	}
	assert.Positive(t, zeros)
	assert.Equal(t, m.Density(0.3, 0.7), NewNoiseMask(42, 4, 4, 0.45).Density(0.3, 0.7))
}

func TestSet(t *testing.T) {
	var s Set
	s.Add(graph.V2(0, 0), graph.V2(5, 0), graph.V2(50, 0))
	assert.Equal(t, 3, s.Active())
	assert.Equal(t, 2, s.RemoveWithin(graph.V2(0, 0), 5))
	assert.Equal(t, 1, s.Active())
	assert.Equal(t, 3, s.Len())
	assert.Equal(t, []graph.Vec2{graph.V2(50, 0)}, Painted{Set: &s}.Generate(region, 0, nil))
	s.Clear()
	assert.Zero(t, s.Len())
}
