package graph

import (
	"encoding/json"
	"fmt"
	"time"
)

type jsonNode struct {
	ID        NodeID   `json:"id"`
	X         float64  `json:"x"`
	Y         float64  `json:"y"`
	Parent    *NodeID  `json:"parent"`
	Children  []NodeID `json:"children"`
	Depth     int      `json:"depth"`
	Order     int      `json:"order"`
	Thickness float64  `json:"thickness"`
	ColorPos  float64  `json:"colorPos"`
	Age       int      `json:"age"`
}

type jsonSegment struct {
	ID      SegmentID `json:"id"`
	Start   NodeID    `json:"start"`
	End     NodeID    `json:"end"`
	Control []Vec2    `json:"control,omitempty"`
}

type jsonBounds struct {
	MinX float64 `json:"minX"`
	MinY float64 `json:"minY"`
	MaxX float64 `json:"maxX"`
	MaxY float64 `json:"maxY"`
}

type jsonMeta struct {
	ID      string         `json:"id"`
	Source  Source         `json:"algorithm"`
	Params  map[string]any `json:"params,omitempty"`
	Created time.Time      `json:"createdAt"`
}

type jsonGraph struct {
	Nodes    []jsonNode    `json:"nodes"`
	Segments []jsonSegment `json:"segments"`
	Roots    []NodeID      `json:"roots"`
	Bounds   *jsonBounds   `json:"bounds"`
	Meta     jsonMeta      `json:"metadata"`
}

// MarshalJSON encodes nodes, segments, roots, bounds and metadata.
// Root nodes carry a null parent.
func (g *Graph) MarshalJSON() ([]byte, error) {
	out := jsonGraph{
		Nodes:    make([]jsonNode, len(g.Nodes)),
		Segments: make([]jsonSegment, len(g.Segments)),
		Roots:    g.Roots,
		Meta: jsonMeta{
			ID:      g.Meta.ID,
			Source:  g.Meta.Source,
			Params:  g.Meta.Params,
			Created: g.Meta.Created,
		},
	}
	if out.Roots == nil {
		out.Roots = []NodeID{}
	}
	for i, n := range g.Nodes {
		jn := jsonNode{
			ID:        n.ID,
			X:         n.Pos.X,
			Y:         n.Pos.Y,
			Children:  n.Children,
			Depth:     n.Depth,
			Order:     n.Order,
			Thickness: n.Thickness,
			ColorPos:  n.ColorPos,
			Age:       n.Age,
		}
		if jn.Children == nil {
			jn.Children = []NodeID{}
		}
		if n.Parent != NoNode {
			p := n.Parent
			jn.Parent = &p
		}
		out.Nodes[i] = jn
	}
	for i, s := range g.Segments {
		out.Segments[i] = jsonSegment{ID: s.ID, Start: s.Start, End: s.End, Control: s.Control}
	}
	if g.Bounds.Valid {
		out.Bounds = &jsonBounds{MinX: g.Bounds.Min.X, MinY: g.Bounds.Min.Y, MaxX: g.Bounds.Max.X, MaxY: g.Bounds.Max.Y}
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes a graph written by MarshalJSON and validates it.
// Nodes must appear in id order.
func (g *Graph) UnmarshalJSON(data []byte) error {
	var in jsonGraph
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	dec := Graph{
		Nodes:    make([]Node, len(in.Nodes)),
		Segments: make([]Segment, len(in.Segments)),
		Roots:    in.Roots,
		Meta: Metadata{
			ID:      in.Meta.ID,
			Source:  in.Meta.Source,
			Params:  in.Meta.Params,
			Created: in.Meta.Created,
		},
	}
	if dec.Meta.Params == nil {
		dec.Meta.Params = map[string]any{}
	}
	for i, jn := range in.Nodes {
		if jn.ID != NodeID(i) {
			return fmt.Errorf("graph: node %d out of order (id %d)", i, jn.ID)
		}
		n := Node{
			ID:        jn.ID,
			Pos:       Vec2{X: jn.X, Y: jn.Y},
			Parent:    NoNode,
			Children:  jn.Children,
			Depth:     jn.Depth,
			Order:     jn.Order,
			Thickness: jn.Thickness,
			ColorPos:  jn.ColorPos,
			Age:       jn.Age,
		}
		if len(n.Children) == 0 {
			n.Children = nil
		}
		if jn.Parent != nil {
			n.Parent = *jn.Parent
		}
		dec.Nodes[i] = n
		dec.Bounds.Extend(n.Pos)
	}
	for i, js := range in.Segments {
		dec.Segments[i] = Segment{ID: js.ID, Start: js.Start, End: js.End, Control: js.Control}
	}
	if err := dec.Validate(); err != nil {
		return err
	}
	*g = dec
	return nil
}
