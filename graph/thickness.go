package graph

// ApplyStrahlerThickness sets thickness to width * order / maxOrder.
// ComputeStrahler must have run first.
func (g *Graph) ApplyStrahlerThickness(width float64) {
	mo := g.MaxOrder()
	if mo == 0 {
		return
	}
	for i := range g.Nodes {
		g.Nodes[i].Thickness = width * float64(g.Nodes[i].Order) / float64(mo)
	}
}

// ApplyDepthThickness sets thickness to width * (1 - depth/(maxDepth+1)),
// a linear falloff from the roots.
func (g *Graph) ApplyDepthThickness(width float64) {
	md := float64(g.MaxDepth() + 1)
	for i := range g.Nodes {
		g.Nodes[i].Thickness = width * (1 - float64(g.Nodes[i].Depth)/md)
	}
}

// ApplyConstantThickness sets every node's thickness to width.
func (g *Graph) ApplyConstantThickness(width float64) {
	for i := range g.Nodes {
		g.Nodes[i].Thickness = width
	}
}
