package turtle

import (
	"github.com/gogpu/arbor"
	"github.com/gogpu/arbor/graph"
	"github.com/gogpu/arbor/internal/metrics"
	"github.com/gogpu/arbor/lsystem"
	"github.com/gogpu/arbor/random"
)

// Interpreter turns symbol strings into branch graphs.
// It is not safe for concurrent use; its random source advances per turn.
type Interpreter struct {
	p   Params
	src random.Source
}

// New returns an interpreter. A nil src uses seed 0; it is only consulted
// when AngleVariance is non-zero.
func New(p Params, src random.Source) *Interpreter {
	if p.Heading.IsZero() {
		p.Heading = graph.Vec2{X: 0, Y: -1}
	}
	if src == nil {
		src = random.New(0)
	}
	return &Interpreter{p: p, src: src}
}

// Interpret draws symbols starting at start and returns the graph.
// A root node is always created at start, so an empty string yields a
// single-node graph.
func (in *Interpreter) Interpret(symbols string, start graph.Vec2) *graph.Graph {
	return in.InterpretSymbols(lsystem.Tokenize(symbols), start)
}

// InterpretSymbols is Interpret on tokenized input. A symbol's first
// parameter, when present, overrides the step or angle it would use.
func (in *Interpreter) InterpretSymbols(syms []lsystem.Symbol, start graph.Vec2) *graph.Graph {
	g := graph.New(graph.SourceLSystem)
	step := in.p.Step
	st := State{
		Pos:     start,
		Heading: in.p.Heading.Normalize(),
		Width:   in.p.WidthInitial,
		Node:    g.AddRoot(start),
	}
	g.Nodes[st.Node].Thickness = st.Width

	var stack []State
	age := 0
	for _, sym := range syms {
		switch sym.Name {
		case 'F', 'G':
			d := step
			if sym.HasParams() {
				d = sym.First()
			}
			st.Pos = st.Pos.Add(st.Heading.Mul(d))
			age++
			var id graph.NodeID
			if st.Node == graph.NoNode {
				id = g.AddRoot(st.Pos)
			} else {
				id, _ = g.AddChild(st.Node, st.Pos)
			}
			n := g.Node(id)
			n.Thickness = st.Width
			n.Age = age
			st.Node = id

		case 'f', 'g':
			d := step
			if sym.HasParams() {
				d = sym.First()
			}
			st.Pos = st.Pos.Add(st.Heading.Mul(d))
			st.Node = graph.NoNode

		case '+':
			st.Heading = st.Heading.Rotate(radians(in.turn(sym)))
		case '-':
			st.Heading = st.Heading.Rotate(-radians(in.turn(sym)))
		case '|':
			st.Heading = st.Heading.Mul(-1)

		case '[':
			stack = append(stack, st)
			st.Depth++
			st.Width *= in.p.WidthDecay
		case ']':
			if len(stack) == 0 {
				continue
			}
			st = stack[len(stack)-1]
			stack = stack[:len(stack)-1]

		case '!':
			st.Width *= in.p.WidthDecay
		case '#':
			if in.p.WidthDecay != 0 {
				st.Width /= in.p.WidthDecay
			}
		case '@':
			if sym.HasParams() {
				step = sym.First()
			} else {
				step *= in.p.LengthDecay
			}

		case '&', '^', '\\', '/':
			// pitch and roll have no 2D meaning
		}
	}

	in.finish(g)
	metrics.TurtleNodes.Add(float64(g.Len()))
	metrics.Graphs.WithLabelValues(string(graph.SourceLSystem)).Inc()
	arbor.Logger().Debug("turtle: interpreted", "symbols", len(syms), "nodes", g.Len(), "roots", len(g.Roots))
	return g
}

// turn returns the unsigned turn angle for sym in degrees, jitter included.
func (in *Interpreter) turn(sym lsystem.Symbol) float64 {
	a := in.p.Angle
	if sym.HasParams() {
		a = sym.First()
	}
	return a + random.Signed(in.src, in.p.AngleVariance)
}

// finish derives Strahler order, thickness and color position.
func (in *Interpreter) finish(g *graph.Graph) {
	g.ComputeStrahler()
	g.ApplyStrahlerThickness(in.p.WidthInitial)
	g.NormalizeColor()

	g.Meta.Params["angle"] = in.p.Angle
	g.Meta.Params["step"] = in.p.Step
	g.Meta.Params["widthInitial"] = in.p.WidthInitial
	g.Meta.Params["widthDecay"] = in.p.WidthDecay
	g.Meta.Params["lengthDecay"] = in.p.LengthDecay
	g.Meta.Params["angleVariance"] = in.p.AngleVariance
}
