package turtle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/arbor/graph"
	"github.com/gogpu/arbor/lsystem"
	"github.com/gogpu/arbor/random"
)

const eps = 1e-9

func params(angle float64) Params {
	p := DefaultParams()
	p.Angle = angle
	p.Step = 10
	return p
}

func assertPos(t *testing.T, want graph.Vec2, got graph.Vec2) {
	t.Helper()
	assert.InDelta(t, want.X, got.X, eps, "x")
	assert.InDelta(t, want.Y, got.Y, eps, "y")
}

func TestForwardDraw(t *testing.T) {
	g := New(params(90), nil).Interpret("F", graph.Vec2{})
	require.Equal(t, 2, g.Len())
	require.Len(t, g.Segments, 1)
	root := g.Node(g.Roots[0])
	require.Len(t, root.Children, 1)
	assertPos(t, graph.V2(0, -10), g.Node(root.Children[0]).Pos)
}

func TestTurns(t *testing.T) {
	tests := []struct {
		in   string
		want graph.Vec2
	}{
		{"+F", graph.V2(10, 0)},
		{"-F", graph.V2(-10, 0)},
		{"|F", graph.V2(0, 10)},
		{"+(180)F", graph.V2(0, 10)},
		{"F(3)", graph.V2(0, -3)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			g := New(params(90), nil).Interpret(tt.in, graph.Vec2{})
			require.Equal(t, 2, g.Len())
			assertPos(t, tt.want, g.Nodes[1].Pos)
		})
	}
}

func TestBranchingEndToEnd(t *testing.T) {
	gr := lsystem.Grammar{
		Axiom:  "F",
		Rules:  lsystem.MustParseRules("F -> F[+F][-F]"),
		Params: lsystem.DefaultParams(),
	}
	gr.Params.Angle = 45
	gr.Params.Iterations = 1
	s := gr.Generate()
	require.Equal(t, "F[+F][-F]", s)

	g := New(FromGrammar(gr.Params), random.New(1)).Interpret(s, graph.Vec2{})
	require.NoError(t, g.Validate())
	assert.Equal(t, 4, g.Len())
	assert.Len(t, g.Segments, 3)
	assert.Len(t, g.Roots, 1)

	trunk := g.Node(g.Node(g.Roots[0]).Children[0])
	require.Len(t, trunk.Children, 2)
	assert.Equal(t, 2, trunk.Order)
	assert.Equal(t, 2, g.Node(g.Roots[0]).Order)
	for _, c := range trunk.Children {
		assert.Equal(t, 1, g.Node(c).Order)
		assert.Equal(t, 2, g.Node(c).Depth)
	}
}

func TestPushPopRestoresState(t *testing.T) {
	g := New(params(90), nil).Interpret("F[+F]F", graph.Vec2{})
	require.Equal(t, 4, g.Len())
	// the last F continues from the trunk tip, straight up
	last := g.Nodes[3]
	assertPos(t, graph.V2(0, -20), last.Pos)
	assert.Equal(t, graph.NodeID(1), last.Parent)
}

func TestUnmatchedPopIsIgnored(t *testing.T) {
	g := New(params(90), nil).Interpret("F]]F", graph.Vec2{})
	require.NoError(t, g.Validate())
	assert.Equal(t, 3, g.Len())
	assertPos(t, graph.V2(0, -20), g.Nodes[2].Pos)
}

func TestMoveDetaches(t *testing.T) {
	g := New(params(90), nil).Interpret("FfF", graph.Vec2{})
	require.NoError(t, g.Validate())
	assert.Equal(t, 3, g.Len())
	assert.Len(t, g.Segments, 1)
	assert.Len(t, g.Roots, 2)
	assertPos(t, graph.V2(0, -30), g.Nodes[2].Pos)
}

func TestEmptyInput(t *testing.T) {
	g := New(params(90), nil).Interpret("", graph.V2(5, 5))
	require.NoError(t, g.Validate())
	assert.Equal(t, 1, g.Len())
	assert.Empty(t, g.Segments)
}

func TestStepModifiers(t *testing.T) {
	p := params(90)
	p.LengthDecay = 0.5
	g := New(p, nil).Interpret("@F@(4)F", graph.Vec2{})
	require.Equal(t, 3, g.Len())
	assertPos(t, graph.V2(0, -5), g.Nodes[1].Pos)
	assertPos(t, graph.V2(0, -9), g.Nodes[2].Pos)
}

func TestIgnoredSymbols(t *testing.T) {
	g := New(params(90), nil).Interpret("X&^\\/F!#Y", graph.Vec2{})
	assert.Equal(t, 2, g.Len())
	assertPos(t, graph.V2(0, -10), g.Nodes[1].Pos)
}

func TestStrahlerThickness(t *testing.T) {
	p := params(30)
	p.WidthInitial = 4
	g := New(p, nil).Interpret("F[+F[+F][-F]][-F]", graph.Vec2{})
	require.NoError(t, g.Validate())
	maxOrder := g.MaxOrder()
	for _, n := range g.Nodes {
		assert.InDelta(t, 4*float64(n.Order)/float64(maxOrder), n.Thickness, eps)
		assert.GreaterOrEqual(t, n.ColorPos, 0.0)
		assert.LessOrEqual(t, n.ColorPos, 1.0)
	}
}

func TestAngleVarianceDeterministic(t *testing.T) {
	p := params(25)
	p.AngleVariance = 10
	a := New(p, random.New(9)).Interpret("F+F-F+F", graph.Vec2{})
	b := New(p, random.New(9)).Interpret("F+F-F+F", graph.Vec2{})
	require.Equal(t, a.Len(), b.Len())
	for i := range a.Nodes {
		assert.Equal(t, a.Nodes[i].Pos, b.Nodes[i].Pos)
	}
}

func TestJitterWithinBounds(t *testing.T) {
	p := params(90)
	p.AngleVariance = 5
	g := New(p, &random.Fixed{Values: []float64{1}}).Interpret("+F", graph.Vec2{})
	// Fixed 1 maps to the upper end of the jitter range
	got := g.Nodes[1].Pos
	assert.InDelta(t, 10, got.Length(), eps)
	assert.Greater(t, got.Y, 0.0)
}
