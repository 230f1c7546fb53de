// Package colonize grows branch graphs with the space colonization
// algorithm: seed nodes extend toward a cloud of attraction points, and
// points are consumed as branches reach them.
//
// A Solver runs the loop. Attraction points come from a Strategy (uniform,
// density mask, radial, Poisson disk) or from a caller-managed Set.
//
//	pts := colonize.Poisson{}.Generate(graph.R(0, 0, 400, 400), 800, random.New(1))
//	s := colonize.New(colonize.DefaultParams(), []graph.Vec2{graph.V2(200, 400)}, pts)
//	g, err := s.Run(ctx)
package colonize
