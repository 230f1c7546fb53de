// Package texmap bakes a branch graph into 2D texture maps.
//
// Rasterize fits the graph into the target, draws every segment as a quad
// into four attachments (seed coordinates, thickness, segment id and depth),
// then propagates nearest seeds with the Jump Flood Algorithm and derives a
// normalized distance field and a direction field from the result.
//
// All GPU work goes through the Device interface. The software device is
// always available; importing github.com/gogpu/arbor/gpu registers a
// wgpu/hal device when an adapter is present.
//
//	p, err := texmap.NewPipeline(texmap.DefaultDevice())
//	if err != nil {
//		return err
//	}
//	defer p.Close()
//	out, err := p.Rasterize(ctx, g, texmap.DefaultSettings(512))
package texmap
