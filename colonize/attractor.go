package colonize

import "github.com/gogpu/arbor/graph"

// Attractor is an attraction point. Inactive attractors no longer pull.
type Attractor struct {
	Pos    graph.Vec2
	Active bool
}

// Set is a caller-managed collection of attractors, for points placed
// interactively. The zero value is empty and ready to use.
type Set struct {
	items []Attractor
}

// Add appends active attractors.
func (s *Set) Add(pts ...graph.Vec2) {
	for _, p := range pts {
		s.items = append(s.items, Attractor{Pos: p, Active: true})
	}
}

// RemoveWithin deactivates every attractor within r of p and returns how
// many changed.
func (s *Set) RemoveWithin(p graph.Vec2, r float64) int {
	n := 0
	r2 := r * r
	for i := range s.items {
		a := &s.items[i]
		if a.Active && a.Pos.Sub(p).LengthSq() <= r2 {
			a.Active = false
			n++
		}
	}
	return n
}

// Clear removes every attractor.
func (s *Set) Clear() { s.items = s.items[:0] }

// Len returns the number of attractors, active or not.
func (s *Set) Len() int { return len(s.items) }

// Active returns the number of active attractors.
func (s *Set) Active() int {
	n := 0
	for _, a := range s.items {
		if a.Active {
			n++
		}
	}
	return n
}

// Points returns the positions of active attractors.
func (s *Set) Points() []graph.Vec2 {
	out := make([]graph.Vec2, 0, len(s.items))
	for _, a := range s.items {
		if a.Active {
			out = append(out, a.Pos)
		}
	}
	return out
}

// All returns a copy of every attractor.
func (s *Set) All() []Attractor {
	return append([]Attractor(nil), s.items...)
}
