package colonize

import (
	"context"
	"math"

	"github.com/gogpu/arbor"
	"github.com/gogpu/arbor/graph"
	"github.com/gogpu/arbor/internal/metrics"
	"github.com/gogpu/arbor/internal/parallel"
)

// ProgressInterval is how many iterations pass between progress callbacks.
const ProgressInterval = 5

// scanGrain is the minimum number of attractors per parallel chunk.
const scanGrain = 256

// StopReason says why a run ended.
type StopReason string

const (
	StopExhausted StopReason = "exhausted" // no active attractors remain
	StopMaxIter   StopReason = "max-iterations"
	StopStalled   StopReason = "stalled" // an iteration added no nodes
	StopCanceled  StopReason = "canceled"
)

// Stats summarizes the last Run.
type Stats struct {
	Iterations int
	Nodes      int
	Killed     int
	Remaining  int
	Reason     StopReason
}

// Solver grows a branch graph from seeds toward attractors.
// A Solver is single-use per Run and not safe for concurrent use.
type Solver struct {
	params   Params
	seeds    []graph.Vec2
	attr     []Attractor
	progress func(g *graph.Graph, iteration int)
	pool     *parallel.WorkerPool
	stats    Stats
}

// New returns a solver. Non-finite attractor positions are dropped.
func New(p Params, seeds, attractors []graph.Vec2) *Solver {
	s := &Solver{
		params: sanitize(p),
		seeds:  append([]graph.Vec2(nil), seeds...),
		pool:   parallel.Shared(),
	}
	for _, a := range attractors {
		if finite(a) {
			s.attr = append(s.attr, Attractor{Pos: a, Active: true})
		}
	}
	return s
}

// OnProgress registers fn to be called synchronously every
// ProgressInterval iterations with the live partial graph. fn must not
// retain or modify the graph.
func (s *Solver) OnProgress(fn func(g *graph.Graph, iteration int)) { s.progress = fn }

// WithPool runs the attractor scans on pool instead of the shared pool.
func (s *Solver) WithPool(pool *parallel.WorkerPool) *Solver {
	if pool != nil {
		s.pool = pool
	}
	return s
}

// Stats reports on the last Run.
func (s *Solver) Stats() Stats { return s.stats }

// Attractors returns a snapshot of the attractors and their state.
func (s *Solver) Attractors() []Attractor { return append([]Attractor(nil), s.attr...) }

// Run grows the graph until no attractors remain, MaxIterations is reached
// or an iteration adds nothing. It checks ctx once per iteration; when ctx
// is done it returns the partial graph, fully post-processed, with
// ctx.Err().
//
// On return no active attractor lies within KillDistance of any node.
func (s *Solver) Run(ctx context.Context) (*graph.Graph, error) {
	log := arbor.Logger()
	g := graph.New(graph.SourceColonize)
	s.stats = Stats{}
	if len(s.seeds) == 0 {
		s.stats.Reason = StopExhausted
		s.finish(g)
		log.Debug("colonize: no seeds")
		return g, nil
	}

	p := s.params
	idx := newGrid(max(p.AttractionRadius, p.KillDistance))
	for _, pos := range s.seeds {
		id := g.AddRoot(pos)
		idx.insert(id, pos)
	}
	s.kill(g, idx)

	nearest := make([]graph.NodeID, len(s.attr))
	var err error
	iter := 0
	for {
		if s.activeCount() == 0 {
			s.stats.Reason = StopExhausted
			break
		}
		if iter >= p.MaxIterations {
			s.stats.Reason = StopMaxIter
			break
		}
		if err = ctx.Err(); err != nil {
			s.stats.Reason = StopCanceled
			break
		}
		iter++

		s.attract(g, idx, nearest)
		if s.grow(g, idx, nearest, iter) == 0 {
			s.stats.Reason = StopStalled
			break
		}
		s.kill(g, idx)
		metrics.ColonizeIterations.Inc()

		if s.progress != nil && iter%ProgressInterval == 0 {
			s.progress(g, iter)
		}
	}

	s.stats.Iterations = iter
	s.finish(g)
	log.Info("colonize: done",
		"reason", s.stats.Reason, "iterations", iter,
		"nodes", g.Len(), "killed", s.stats.Killed, "remaining", s.stats.Remaining)
	return g, err
}

// attract finds, for every active attractor, the nearest node within the
// attraction radius.
func (s *Solver) attract(g *graph.Graph, idx *grid, nearest []graph.NodeID) {
	r := s.params.AttractionRadius
	s.pool.ForRange(len(s.attr), scanGrain, func(lo, hi int) {
		for i := lo; i < hi; i++ {
			nearest[i] = graph.NoNode
			if s.attr[i].Active && r > 0 {
				nearest[i] = idx.nearest(g, s.attr[i].Pos, r)
			}
		}
	})
}

// grow adds one child per attracted node along the normalized sum of unit
// vectors toward its attractors. It returns the number of nodes added.
func (s *Solver) grow(g *graph.Graph, idx *grid, nearest []graph.NodeID, iter int) int {
	p := s.params
	n := g.Len()
	sum := make([]graph.Vec2, n)
	hit := make([]bool, n)
	for i, id := range nearest {
		if id == graph.NoNode {
			continue
		}
		d := s.attr[i].Pos.Sub(g.Nodes[id].Pos).Normalize()
		sum[id] = sum[id].Add(d)
		hit[id] = true
	}

	var bias graph.Vec2
	if p.BiasWeight != 0 {
		bias = p.Bias.Normalize().Mul(p.BiasWeight)
	}
	dup := p.StepSize * 1e-3

	added := 0
	for id := range n {
		if !hit[id] {
			continue
		}
		dir := sum[id].Normalize().Add(bias).Normalize()
		if dir.IsZero() {
			continue
		}
		pos := g.Nodes[id].Pos.Add(dir.Mul(p.StepSize))
		if idx.within(g, pos, dup) {
			continue
		}
		child, _ := g.AddChild(graph.NodeID(id), pos)
		g.Nodes[child].Age = iter
		idx.insert(child, pos)
		added++
	}
	return added
}

// kill deactivates attractors within the kill distance of any node.
func (s *Solver) kill(g *graph.Graph, idx *grid) {
	r := s.params.KillDistance
	if r <= 0 {
		return
	}
	killed := make([]bool, len(s.attr))
	s.pool.ForRange(len(s.attr), scanGrain, func(lo, hi int) {
		for i := lo; i < hi; i++ {
			killed[i] = s.attr[i].Active && idx.within(g, s.attr[i].Pos, r)
		}
	})
	n := 0
	for i, k := range killed {
		if k {
			s.attr[i].Active = false
			n++
		}
	}
	s.stats.Killed += n
	metrics.AttractorsKilled.Add(float64(n))
}

func (s *Solver) activeCount() int {
	n := 0
	for _, a := range s.attr {
		if a.Active {
			n++
		}
	}
	return n
}

func (s *Solver) finish(g *graph.Graph) {
	p := s.params
	g.ComputeStrahler()
	switch p.Thickness {
	case ThicknessConstant:
		g.ApplyConstantThickness(p.BaseWidth)
	case ThicknessDepth:
		g.ApplyDepthThickness(p.BaseWidth)
	default:
		g.ApplyStrahlerThickness(p.BaseWidth)
	}
	g.NormalizeColor()

	g.Meta.Params["attractionRadius"] = p.AttractionRadius
	g.Meta.Params["killDistance"] = p.KillDistance
	g.Meta.Params["stepSize"] = p.StepSize
	g.Meta.Params["maxIterations"] = p.MaxIterations
	g.Meta.Params["attractors"] = len(s.attr)
	g.Meta.Params["thickness"] = string(p.Thickness)

	s.stats.Nodes = g.Len()
	s.stats.Remaining = s.activeCount()
	metrics.Graphs.WithLabelValues(string(graph.SourceColonize)).Inc()
}

func sanitize(p Params) Params {
	fix := func(v float64) float64 {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return 0
		}
		return v
	}
	p.AttractionRadius = fix(p.AttractionRadius)
	p.KillDistance = fix(p.KillDistance)
	p.StepSize = fix(p.StepSize)
	p.BaseWidth = fix(p.BaseWidth)
	p.MaxIterations = max(p.MaxIterations, 0)
	if !finite(p.Bias) || math.IsNaN(p.BiasWeight) || math.IsInf(p.BiasWeight, 0) {
		p.Bias, p.BiasWeight = graph.Vec2{}, 0
	}
	if p.Thickness == "" {
		p.Thickness = ThicknessFlow
	}
	return p
}

func finite(v graph.Vec2) bool {
	return !math.IsNaN(v.X) && !math.IsNaN(v.Y) && !math.IsInf(v.X, 0) && !math.IsInf(v.Y, 0)
}
