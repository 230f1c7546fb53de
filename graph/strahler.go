package graph

// ComputeStrahler assigns the Strahler stream order to every node.
//
// A leaf has order 1. An internal node takes the maximum order among its
// children, plus one when at least two children reach that maximum.
//
// The traversal is an explicit post-order walk from each root, so graph depth
// is bounded by memory rather than by the goroutine stack.
func (g *Graph) ComputeStrahler() {
	type frame struct {
		id   NodeID
		next int // index of the next child to visit
	}
	stack := make([]frame, 0, 64)

	for _, root := range g.Roots {
		stack = append(stack, frame{id: root})
		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			n := &g.Nodes[top.id]
			if top.next < len(n.Children) {
				child := n.Children[top.next]
				top.next++
				stack = append(stack, frame{id: child})
				continue
			}
			n.Order = strahlerOf(g, n)
			stack = stack[:len(stack)-1]
		}
	}
}

func strahlerOf(g *Graph, n *Node) int {
	if len(n.Children) == 0 {
		return 1
	}
	best, count := 0, 0
	for _, c := range n.Children {
		o := g.Nodes[c].Order
		switch {
		case o > best:
			best, count = o, 1
		case o == best:
			count++
		}
	}
	if count >= 2 {
		return best + 1
	}
	return best
}
