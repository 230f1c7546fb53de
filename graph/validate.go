package graph

import (
	"errors"
	"fmt"
	"slices"
)

// ErrCycle is reported by Validate when parent links loop.
var ErrCycle = errors.New("graph: parent links form a cycle")

// Validate checks the structural invariants of the graph:
//   - every node's ID matches its arena index
//   - every non-root node's parent exists and lists the node as a child
//   - every child link points back to its parent
//   - every segment's endpoints exist and match a parent/child link
//   - every root is parentless, and every parentless node is a root
//   - parent links contain no cycle
func (g *Graph) Validate() error {
	for i := range g.Nodes {
		n := &g.Nodes[i]
		if n.ID != NodeID(i) {
			return fmt.Errorf("graph: node at index %d has id %d", i, n.ID)
		}
		if n.Parent != NoNode {
			if !g.Has(n.Parent) {
				return fmt.Errorf("graph: node %d references missing parent %d", i, n.Parent)
			}
			if !slices.Contains(g.Nodes[n.Parent].Children, n.ID) {
				return fmt.Errorf("graph: parent %d does not list child %d", n.Parent, i)
			}
		}
		for _, c := range n.Children {
			if !g.Has(c) {
				return fmt.Errorf("graph: node %d references missing child %d", i, c)
			}
			if g.Nodes[c].Parent != n.ID {
				return fmt.Errorf("graph: child %d of node %d has parent %d", c, i, g.Nodes[c].Parent)
			}
		}
	}

	for i, s := range g.Segments {
		if !g.Has(s.Start) || !g.Has(s.End) {
			return fmt.Errorf("graph: segment %d references missing node (%d -> %d)", i, s.Start, s.End)
		}
		if g.Nodes[s.End].Parent != s.Start {
			return fmt.Errorf("graph: segment %d (%d -> %d) does not follow a parent link", i, s.Start, s.End)
		}
	}

	roots := 0
	for _, r := range g.Roots {
		if !g.Has(r) {
			return fmt.Errorf("graph: root %d does not exist", r)
		}
		if g.Nodes[r].Parent != NoNode {
			return fmt.Errorf("graph: root %d has parent %d", r, g.Nodes[r].Parent)
		}
	}
	for i := range g.Nodes {
		if g.Nodes[i].Parent == NoNode {
			roots++
		}
	}
	if roots != len(g.Roots) {
		return fmt.Errorf("graph: %d parentless nodes but %d roots", roots, len(g.Roots))
	}

	return g.checkAcyclic()
}

// checkAcyclic walks up from every node. A walk longer than the node count
// means a loop.
func (g *Graph) checkAcyclic() error {
	state := make([]uint8, len(g.Nodes)) // 0 unknown, 1 on path, 2 reaches a root
	path := make([]NodeID, 0, 32)
	for i := range g.Nodes {
		path = path[:0]
		id := NodeID(i)
		for id != NoNode && state[id] == 0 {
			state[id] = 1
			path = append(path, id)
			id = g.Nodes[id].Parent
		}
		if id != NoNode && state[id] == 1 {
			return ErrCycle
		}
		for _, p := range path {
			state[p] = 2
		}
	}
	return nil
}
