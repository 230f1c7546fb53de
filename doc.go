// Package arbor generates organic branching structures and bakes them into
// raster texture maps.
//
// # Overview
//
// Two generators produce a [graph.Graph]:
//
//   - lsystem rewrites a production-rule grammar and turtle interprets the
//     resulting symbol string.
//   - colonize grows branches toward a scattered attractor cloud
//     (space colonization).
//
// The texmap package converts a graph into distance, direction, thickness,
// depth and branch ID maps using a Jump Flood pass chain on a [texmap.Device].
//
// # Quick Start
//
//	g := lsystem.MustPreset("plant")
//	symbols := lsystem.NewEngine(random.New(7)).Rewrite(g.Axiom, g.Rules, g.Params.Iterations)
//	tree := turtle.New(turtle.FromGrammar(g.Params), random.New(7)).Interpret(symbols, graph.Vec2{})
//
//	p, err := texmap.NewPipeline(texmap.DefaultDevice())
//	if err != nil {
//	    return err
//	}
//	defer p.Close()
//	out, err := p.Rasterize(ctx, tree, texmap.DefaultSettings(512))
//
// # GPU
//
// The software device is always available. Import the gpu package to run the
// Jump Flood passes as wgpu compute shaders:
//
//	import _ "github.com/gogpu/arbor/gpu"
//
// # Coordinate System
//
// Graph space uses screen conventions: X increases right, Y increases down.
// The default turtle heading is (0, -1), i.e. "up".
package arbor

// Version is the current version of the library.
const Version = "0.3.0"
