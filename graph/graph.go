// Package graph defines the branch graph shared by the growth generators and
// the texture map pipeline.
//
// A Graph is an arena: nodes and segments live in slices and reference each
// other by integer index. Nodes are never removed individually; regenerating a
// structure replaces the whole graph.
package graph

import (
	"time"

	"github.com/google/uuid"
)

// NodeID indexes Graph.Nodes.
type NodeID int32

// SegmentID indexes Graph.Segments.
type SegmentID int32

// NoNode marks an absent parent or detached turtle.
const NoNode NodeID = -1

// Source names the generator that produced a graph.
type Source string

// Known graph sources.
const (
	SourceLSystem  Source = "lsystem"
	SourceColonize Source = "colonize"
	SourceImport   Source = "import"
)

// Node is a branch point.
type Node struct {
	ID       NodeID
	Pos      Vec2
	Parent   NodeID
	Children []NodeID
	Depth    int

	// Order is the Strahler stream order, filled by ComputeStrahler.
	Order int

	Thickness float64

	// ColorPos is the node depth normalized to [0,1] over the graph.
	ColorPos float64

	// Age is the creation step: draw sequence for turtle graphs,
	// iteration for colonization graphs.
	Age int
}

// IsRoot reports whether n has no parent.
func (n *Node) IsRoot() bool { return n.Parent == NoNode }

// IsLeaf reports whether n has no children.
func (n *Node) IsLeaf() bool { return len(n.Children) == 0 }

// Segment is a parent to child edge.
type Segment struct {
	ID    SegmentID
	Start NodeID
	End   NodeID

	// Control holds optional curve control points. No generator fills it yet.
	Control []Vec2
}

// Bounds is an axis-aligned box grown as nodes are added.
type Bounds struct {
	Rect
	Valid bool
}

// Extend grows b to include p.
func (b *Bounds) Extend(p Vec2) {
	if !b.Valid {
		b.Min, b.Max, b.Valid = p, p, true
		return
	}
	b.Min.X = min(b.Min.X, p.X)
	b.Min.Y = min(b.Min.Y, p.Y)
	b.Max.X = max(b.Max.X, p.X)
	b.Max.Y = max(b.Max.Y, p.Y)
}

// Metadata records how a graph was produced.
type Metadata struct {
	ID      string
	Source  Source
	Params  map[string]any
	Created time.Time
}

// Graph is a forest of branch nodes connected by segments.
//
// A Graph is not safe for concurrent mutation. Generators own the graph they
// build; consumers receive either the finished graph or a Clone.
type Graph struct {
	Nodes    []Node
	Segments []Segment
	Roots    []NodeID
	Bounds   Bounds
	Meta     Metadata
}

// New returns an empty graph stamped with a fresh id and creation time.
func New(src Source) *Graph {
	return &Graph{
		Meta: Metadata{
			ID:      uuid.NewString(),
			Source:  src,
			Params:  map[string]any{},
			Created: time.Now().UTC(),
		},
	}
}

// Len returns the number of nodes.
func (g *Graph) Len() int { return len(g.Nodes) }

// Empty reports whether the graph has no nodes.
func (g *Graph) Empty() bool { return len(g.Nodes) == 0 }

// Node returns a pointer into the node arena. The pointer is invalidated by
// the next AddRoot or AddChild.
func (g *Graph) Node(id NodeID) *Node {
	return &g.Nodes[id]
}

// Has reports whether id addresses an existing node.
func (g *Graph) Has(id NodeID) bool {
	return id >= 0 && int(id) < len(g.Nodes)
}

// AddRoot appends a parentless node at pos.
func (g *Graph) AddRoot(pos Vec2) NodeID {
	id := g.push(pos, NoNode, 0)
	g.Roots = append(g.Roots, id)
	return id
}

// AddChild appends a node at pos below parent and links them with a segment.
// The child's depth is one more than the parent's.
func (g *Graph) AddChild(parent NodeID, pos Vec2) (NodeID, SegmentID) {
	depth := g.Nodes[parent].Depth + 1
	id := g.push(pos, parent, depth)
	g.Nodes[parent].Children = append(g.Nodes[parent].Children, id)

	sid := SegmentID(len(g.Segments))
	g.Segments = append(g.Segments, Segment{ID: sid, Start: parent, End: id})
	return id, sid
}

func (g *Graph) push(pos Vec2, parent NodeID, depth int) NodeID {
	id := NodeID(len(g.Nodes))
	g.Nodes = append(g.Nodes, Node{
		ID:        id,
		Pos:       pos,
		Parent:    parent,
		Depth:     depth,
		Order:     1,
		Thickness: 1,
	})
	g.Bounds.Extend(pos)
	return id
}

// Leaves returns the ids of all nodes without children, in arena order.
func (g *Graph) Leaves() []NodeID {
	var out []NodeID
	for i := range g.Nodes {
		if g.Nodes[i].IsLeaf() {
			out = append(out, NodeID(i))
		}
	}
	return out
}

// MaxDepth returns the largest node depth, or 0 for an empty graph.
func (g *Graph) MaxDepth() int {
	m := 0
	for i := range g.Nodes {
		m = max(m, g.Nodes[i].Depth)
	}
	return m
}

// MaxOrder returns the largest Strahler order, or 0 for an empty graph.
func (g *Graph) MaxOrder() int {
	m := 0
	for i := range g.Nodes {
		m = max(m, g.Nodes[i].Order)
	}
	return m
}

// MaxThickness returns the largest node thickness, or 0 for an empty graph.
func (g *Graph) MaxThickness() float64 {
	m := 0.0
	for i := range g.Nodes {
		m = max(m, g.Nodes[i].Thickness)
	}
	return m
}

// Clone returns a deep copy that shares no slices with g.
func (g *Graph) Clone() *Graph {
	c := &Graph{
		Nodes:    make([]Node, len(g.Nodes)),
		Segments: make([]Segment, len(g.Segments)),
		Roots:    append([]NodeID(nil), g.Roots...),
		Bounds:   g.Bounds,
		Meta:     g.Meta,
	}
	c.Meta.Params = make(map[string]any, len(g.Meta.Params))
	for k, v := range g.Meta.Params {
		c.Meta.Params[k] = v
	}
	for i, n := range g.Nodes {
		n.Children = append([]NodeID(nil), n.Children...)
		c.Nodes[i] = n
	}
	for i, s := range g.Segments {
		s.Control = append([]Vec2(nil), s.Control...)
		c.Segments[i] = s
	}
	return c
}

// NormalizeColor sets every node's ColorPos to depth / maxDepth.
// With a single level all nodes get 0.
func (g *Graph) NormalizeColor() {
	md := g.MaxDepth()
	for i := range g.Nodes {
		if md == 0 {
			g.Nodes[i].ColorPos = 0
			continue
		}
		g.Nodes[i].ColorPos = float64(g.Nodes[i].Depth) / float64(md)
	}
}
