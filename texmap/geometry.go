package texmap

import (
	"github.com/chewxy/math32"

	"github.com/gogpu/arbor/graph"
	"github.com/gogpu/arbor/internal/parallel"
)

// fitFill is the fraction of the limiting dimension the graph occupies.
const fitFill = 0.9

// Transform maps graph space to pixel space.
type Transform struct {
	Scale  float64
	Offset graph.Vec2
}

// Fit returns the uniform transform that centres b in a w×h target and
// fills 90% of its limiting dimension.
func Fit(b graph.Bounds, w, h int) Transform {
	s, o := graph.FitTransform(b, float64(w), float64(h), fitFill)
	return Transform{Scale: s, Offset: o}
}

// Apply maps p to pixel space.
func (t Transform) Apply(p graph.Vec2) graph.Vec2 {
	return p.Mul(t.Scale).Add(t.Offset)
}

// Vertex layout: x, y, along, segment, order, depth, thickness.
const (
	attrX = iota
	attrY
	attrAlong
	attrSegment
	attrOrder
	attrDepth
	attrThickness

	// VertexStride is the number of float32 values per vertex.
	VertexStride
)

// Mesh is a triangle list with interleaved VertexStride attributes.
type Mesh struct {
	Vertices []float32
	Segments int
}

// Triangles returns the number of triangles.
func (m *Mesh) Triangles() int { return len(m.Vertices) / (VertexStride * 3) }

// minHalfWidth keeps hairline segments at least one pixel wide.
const minHalfWidth = 0.5

// BuildGeometry extrudes every segment into a quad along its normal, each
// end as wide as its node's thickness times lineScale in pixels. Depth and
// thickness attributes are normalized to [0,1]; segment id and Strahler
// order are constant per quad. Zero-length segments are skipped.
func BuildGeometry(g *graph.Graph, t Transform, lineScale float64) *Mesh {
	m := &Mesh{Vertices: make([]float32, 0, len(g.Segments)*6*VertexStride)}
	maxT := float32(g.MaxThickness())
	scale := float32(t.Scale * lineScale)

	for _, s := range g.Segments {
		a, b := g.Node(s.Start), g.Node(s.End)
		pa, pb := t.Apply(a.Pos), t.Apply(b.Pos)
		x0, y0 := float32(pa.X), float32(pa.Y)
		x1, y1 := float32(pb.X), float32(pb.Y)

		dx, dy := x1-x0, y1-y0
		l := math32.Hypot(dx, dy)
		if l == 0 || math32.IsNaN(l) {
			continue
		}
		nx, ny := -dy/l, dx/l

		ta, tb := float32(a.Thickness), float32(b.Thickness)
		ha := math32.Max(ta*scale*0.5, minHalfWidth)
		hb := math32.Max(tb*scale*0.5, minHalfWidth)
		na, nb := ta, tb
		if maxT > 0 {
			na, nb = ta/maxT, tb/maxT
		}

		seg := float32(s.ID)
		order := float32(b.Order)
		va := func(side float32) [VertexStride]float32 {
			return [VertexStride]float32{x0 + nx*ha*side, y0 + ny*ha*side, 0, seg, order, float32(a.ColorPos), na}
		}
		vb := func(side float32) [VertexStride]float32 {
			return [VertexStride]float32{x1 + nx*hb*side, y1 + ny*hb*side, 1, seg, order, float32(b.ColorPos), nb}
		}
		a0, a1, b0, b1 := va(1), va(-1), vb(1), vb(-1)
		for _, v := range [...][VertexStride]float32{a0, a1, b0, b0, a1, b1} {
			m.Vertices = append(m.Vertices, v[:]...)
		}
		m.Segments++
	}
	return m
}

// RasterTargets are the attachment planes written by RasterizeMesh.
type RasterTargets struct {
	Seed      []float32 // 4 channels: x, y, 0, valid
	Thickness []float32 // 1 channel
	ID        []float32 // 4 channels: id+1 as 24-bit RGB, alpha 1
	Depth     []float32 // 1 channel
}

// rowGrain is the minimum number of rows per parallel band.
const rowGrain = 8

type triangle struct {
	v                      [3][]float32
	minX, minY, maxX, maxY int
	area                   float32
}

// RasterizeMesh scan-converts vertices (a triangle list with VertexStride
// attributes) into a w×h target. A pixel is covered when its centre lies
// inside or on the edge of a triangle. Row bands run in parallel; within a
// band triangles are drawn in order, so later segments win.
func RasterizeMesh(vertices []float32, w, h int, out RasterTargets) {
	tris := setupTriangles(vertices, w, h)
	if len(tris) == 0 {
		return
	}
	parallel.Shared().ForRange(h, rowGrain, func(lo, hi int) {
		for i := range tris {
			tr := &tris[i]
			y0, y1 := max(tr.minY, lo), min(tr.maxY, hi-1)
			for y := y0; y <= y1; y++ {
				for x := tr.minX; x <= tr.maxX; x++ {
					shade(tr, x, y, w, out)
				}
			}
		}
	})
}

func setupTriangles(vertices []float32, w, h int) []triangle {
	n := len(vertices) / (VertexStride * 3)
	tris := make([]triangle, 0, n)
	for i := range n {
		base := i * VertexStride * 3
		var tr triangle
		for k := range 3 {
			o := base + k*VertexStride
			tr.v[k] = vertices[o : o+VertexStride]
		}
		tr.area = edge(tr.v[0], tr.v[1], tr.v[2][attrX], tr.v[2][attrY])
		if tr.area == 0 {
			continue
		}
		minX := math32.Min(tr.v[0][attrX], math32.Min(tr.v[1][attrX], tr.v[2][attrX]))
		maxX := math32.Max(tr.v[0][attrX], math32.Max(tr.v[1][attrX], tr.v[2][attrX]))
		minY := math32.Min(tr.v[0][attrY], math32.Min(tr.v[1][attrY], tr.v[2][attrY]))
		maxY := math32.Max(tr.v[0][attrY], math32.Max(tr.v[1][attrY], tr.v[2][attrY]))
		tr.minX = max(int(math32.Floor(minX-0.5)), 0)
		tr.minY = max(int(math32.Floor(minY-0.5)), 0)
		tr.maxX = min(int(math32.Ceil(maxX-0.5)), w-1)
		tr.maxY = min(int(math32.Ceil(maxY-0.5)), h-1)
		if tr.minX > tr.maxX || tr.minY > tr.maxY {
			continue
		}
		tris = append(tris, tr)
	}
	return tris
}

func edge(a, b []float32, px, py float32) float32 {
	return (b[attrX]-a[attrX])*(py-a[attrY]) - (b[attrY]-a[attrY])*(px-a[attrX])
}

func shade(tr *triangle, x, y, w int, out RasterTargets) {
	px, py := float32(x)+0.5, float32(y)+0.5
	w0 := edge(tr.v[1], tr.v[2], px, py) / tr.area
	w1 := edge(tr.v[2], tr.v[0], px, py) / tr.area
	w2 := edge(tr.v[0], tr.v[1], px, py) / tr.area
	if w0 < 0 || w1 < 0 || w2 < 0 {
		return
	}
	lerp := func(a int) float32 {
		return w0*tr.v[0][a] + w1*tr.v[1][a] + w2*tr.v[2][a]
	}

	i := y*w + x
	if out.Seed != nil {
		out.Seed[i*4+0] = px
		out.Seed[i*4+1] = py
		out.Seed[i*4+2] = 0
		out.Seed[i*4+3] = 1
	}
	if out.Thickness != nil {
		out.Thickness[i] = lerp(attrThickness)
	}
	if out.ID != nil {
		r, g, b := EncodeID(int(tr.v[0][attrSegment]))
		out.ID[i*4+0] = r
		out.ID[i*4+1] = g
		out.ID[i*4+2] = b
		out.ID[i*4+3] = 1
	}
	if out.Depth != nil {
		out.Depth[i] = lerp(attrDepth)
	}
}

// EncodeID packs segment id+1 into three normalized 8-bit channels, so a
// zero texel means no segment.
func EncodeID(id int) (r, g, b float32) {
	v := uint32(id + 1)
	return float32(v&0xff) / 255, float32(v>>8&0xff) / 255, float32(v>>16&0xff) / 255
}

// DecodeID reverses EncodeID. It returns -1 for an empty texel.
func DecodeID(r, g, b float32) int {
	q := func(c float32) uint32 { return uint32(math32.Floor(math32.Max(math32.Min(c, 1), 0)*255 + 0.5)) }
	return int(q(r)|q(g)<<8|q(b)<<16) - 1
}
