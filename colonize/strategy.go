package colonize

import (
	"math"

	"github.com/gogpu/arbor/graph"
	"github.com/gogpu/arbor/random"
)

// Strategy places attraction points inside a region.
// A strategy may return fewer than count points.
type Strategy interface {
	Generate(region graph.Rect, count int, src random.Source) []graph.Vec2
}

// Uniform samples the region uniformly.
type Uniform struct{}

// Generate implements Strategy.
func (Uniform) Generate(region graph.Rect, count int, src random.Source) []graph.Vec2 {
	out := make([]graph.Vec2, 0, max(count, 0))
	for range count {
		out = append(out, uniformIn(region, src))
	}
	return out
}

func uniformIn(r graph.Rect, src random.Source) graph.Vec2 {
	return graph.Vec2{
		X: random.Range(src, r.Min.X, r.Max.X),
		Y: random.Range(src, r.Min.Y, r.Max.Y),
	}
}

// Mask accepts uniform candidates with probability equal to the density at
// their normalized position in the region.
type Mask struct {
	Density DensityMap

	// Tries bounds rejection sampling at Tries*count candidates.
	// Zero means 64.
	Tries int
}

// Generate implements Strategy. A mostly-empty mask yields fewer points.
func (m Mask) Generate(region graph.Rect, count int, src random.Source) []graph.Vec2 {
	if m.Density == nil {
		return Uniform{}.Generate(region, count, src)
	}
	tries := m.Tries
	if tries <= 0 {
		tries = 64
	}
	out := make([]graph.Vec2, 0, max(count, 0))
	w, h := region.Width(), region.Height()
	for budget := count * tries; len(out) < count && budget > 0; budget-- {
		p := uniformIn(region, src)
		u, v := 0.0, 0.0
		if w > 0 {
			u = (p.X - region.Min.X) / w
		}
		if h > 0 {
			v = (p.Y - region.Min.Y) / h
		}
		if src.Float64() < clamp01(m.Density.Density(u, v)) {
			out = append(out, p)
		}
	}
	return out
}

// DefaultRadialBias is the boundary bias Radial uses when Bias is zero.
const DefaultRadialBias = 2

// Radial places points in the ellipse inscribed in the region, pushed
// toward its boundary as Bias grows. Zero means DefaultRadialBias and a
// negative Bias is uniform over the area.
type Radial struct {
	Bias float64
}

// Generate implements Strategy.
func (r Radial) Generate(region graph.Rect, count int, src random.Source) []graph.Vec2 {
	c := region.Center()
	rx, ry := region.Width()/2, region.Height()/2
	bias := r.Bias
	if bias == 0 {
		bias = DefaultRadialBias
	}
	exp := 1 / (2 + max(bias, 0))
	out := make([]graph.Vec2, 0, max(count, 0))
	for range count {
		a := src.Float64() * 2 * math.Pi
		t := math.Pow(src.Float64(), exp)
		sin, cos := math.Sincos(a)
		out = append(out, graph.Vec2{X: c.X + cos*t*rx, Y: c.Y + sin*t*ry})
	}
	return out
}

// Poisson produces blue-noise points no closer than MinDist to each other
// using Bridson's active-list sampler.
type Poisson struct {
	// MinDist is the minimum separation. Zero derives it from the region
	// area and count.
	MinDist float64

	// K is the number of candidates per active point. Zero means 30.
	K int
}

// Generate implements Strategy.
func (p Poisson) Generate(region graph.Rect, count int, src random.Source) []graph.Vec2 {
	w, h := region.Width(), region.Height()
	if count <= 0 || w <= 0 || h <= 0 {
		return nil
	}
	r := p.MinDist
	if r <= 0 {
		r = math.Sqrt(w * h / (2 * float64(count)))
	}
	k := p.K
	if k <= 0 {
		k = 30
	}

	cell := r / math.Sqrt2
	cols, rows := int(math.Ceil(w/cell)), int(math.Ceil(h/cell))
	grid := make([]int32, cols*rows)
	for i := range grid {
		grid[i] = -1
	}
	cellOf := func(q graph.Vec2) (int, int) {
		cx := min(int((q.X-region.Min.X)/cell), cols-1)
		cy := min(int((q.Y-region.Min.Y)/cell), rows-1)
		return cx, cy
	}

	out := make([]graph.Vec2, 0, count)
	add := func(q graph.Vec2) {
		cx, cy := cellOf(q)
		grid[cy*cols+cx] = int32(len(out))
		out = append(out, q)
	}
	fits := func(q graph.Vec2) bool {
		if q.X < region.Min.X || q.X >= region.Max.X || q.Y < region.Min.Y || q.Y >= region.Max.Y {
			return false
		}
		cx, cy := cellOf(q)
		for y := max(cy-2, 0); y <= min(cy+2, rows-1); y++ {
			for x := max(cx-2, 0); x <= min(cx+2, cols-1); x++ {
				if i := grid[y*cols+x]; i >= 0 && out[i].Sub(q).LengthSq() < r*r {
					return false
				}
			}
		}
		return true
	}

	add(uniformIn(region, src))
	active := []int{0}
	for len(active) > 0 && len(out) < count {
		ai := src.IntN(len(active))
		base := out[active[ai]]
		placed := false
		for range k {
			a := src.Float64() * 2 * math.Pi
			d := r * (1 + src.Float64())
			sin, cos := math.Sincos(a)
			q := graph.Vec2{X: base.X + cos*d, Y: base.Y + sin*d}
			if fits(q) {
				active = append(active, len(out))
				add(q)
				placed = true
				break
			}
		}
		if !placed {
			active[ai] = active[len(active)-1]
			active = active[:len(active)-1]
		}
	}
	return out
}

// Painted returns the active points of a caller-managed Set, ignoring the
// region and count.
type Painted struct {
	Set *Set
}

// Generate implements Strategy.
func (p Painted) Generate(graph.Rect, int, random.Source) []graph.Vec2 {
	if p.Set == nil {
		return nil
	}
	return p.Set.Points()
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return min(max(v, 0), 1)
}
