package colonize

import (
	"math"

	"github.com/gogpu/arbor/graph"
)

type cellKey struct{ x, y int32 }

// grid is a uniform bucket index over node positions.
type grid struct {
	cell  float64
	cells map[cellKey][]graph.NodeID
}

func newGrid(cell float64) *grid {
	if !(cell > 0) || math.IsInf(cell, 0) {
		cell = 1
	}
	return &grid{cell: cell, cells: make(map[cellKey][]graph.NodeID)}
}

func (gr *grid) key(p graph.Vec2) cellKey {
	return cellKey{int32(math.Floor(p.X / gr.cell)), int32(math.Floor(p.Y / gr.cell))}
}

func (gr *grid) insert(id graph.NodeID, p graph.Vec2) {
	k := gr.key(p)
	gr.cells[k] = append(gr.cells[k], id)
}

// nearest returns the closest node within r of p, preferring the lower id
// on ties, or graph.NoNode.
func (gr *grid) nearest(g *graph.Graph, p graph.Vec2, r float64) graph.NodeID {
	best, bestD := graph.NoNode, r*r
	gr.visit(p, r, func(id graph.NodeID) bool {
		d := g.Nodes[id].Pos.Sub(p).LengthSq()
		switch {
		case d > bestD:
		case d < bestD, best == graph.NoNode, id < best:
			best, bestD = id, d
		}
		return true
	})
	return best
}

// within reports whether any node lies within r of p.
func (gr *grid) within(g *graph.Graph, p graph.Vec2, r float64) bool {
	found := false
	r2 := r * r
	gr.visit(p, r, func(id graph.NodeID) bool {
		if g.Nodes[id].Pos.Sub(p).LengthSq() <= r2 {
			found = true
			return false
		}
		return true
	})
	return found
}

func (gr *grid) visit(p graph.Vec2, r float64, fn func(graph.NodeID) bool) {
	span := int32(math.Ceil(r / gr.cell))
	c := gr.key(p)
	for y := c.y - span; y <= c.y+span; y++ {
		for x := c.x - span; x <= c.x+span; x++ {
			for _, id := range gr.cells[cellKey{x, y}] {
				if !fn(id) {
					return
				}
			}
		}
	}
}
