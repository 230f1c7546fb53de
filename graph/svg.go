package graph

import (
	"bufio"
	"fmt"
	"io"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// SVGOptions controls WriteSVG.
type SVGOptions struct {
	Width, Height int

	// StrokeScale multiplies node thickness (in graph units) before the
	// fit transform is applied.
	StrokeScale float64

	// Background fills the canvas when non-empty (any SVG paint).
	Background string

	// Colorize tints strokes along a perceptual hue ramp keyed on node
	// ColorPos. Strokes are black otherwise.
	Colorize bool
}

// DefaultSVGOptions returns a 512x512 black-on-white configuration.
func DefaultSVGOptions() SVGOptions {
	return SVGOptions{Width: 512, Height: 512, StrokeScale: 1, Background: "white"}
}

// WriteSVG renders every segment as a line scaled to fit the canvas.
// Stroke width interpolates the endpoint thicknesses.
func (g *Graph) WriteSVG(w io.Writer, opts SVGOptions) error {
	if opts.Width <= 0 || opts.Height <= 0 {
		return fmt.Errorf("graph: invalid svg size %dx%d", opts.Width, opts.Height)
	}
	if opts.StrokeScale <= 0 {
		opts.StrokeScale = 1
	}

	scale, off := FitTransform(g.Bounds, float64(opts.Width), float64(opts.Height), 0.9)

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`+"\n",
		opts.Width, opts.Height, opts.Width, opts.Height)
	if opts.Background != "" {
		fmt.Fprintf(bw, `<rect width="100%%" height="100%%" fill="%s"/>`+"\n", opts.Background)
	}
	fmt.Fprintf(bw, `<g stroke-linecap="round" fill="none">`+"\n")
	for _, s := range g.Segments {
		a, b := &g.Nodes[s.Start], &g.Nodes[s.End]
		p0 := a.Pos.Mul(scale).Add(off)
		p1 := b.Pos.Mul(scale).Add(off)
		width := (a.Thickness + b.Thickness) / 2 * opts.StrokeScale * scale
		fmt.Fprintf(bw, `<line x1="%.3f" y1="%.3f" x2="%.3f" y2="%.3f" stroke="%s" stroke-width="%.3f"/>`+"\n",
			p0.X, p0.Y, p1.X, p1.Y, strokeColor(b.ColorPos, opts.Colorize), max(width, 0.1))
	}
	fmt.Fprintf(bw, "</g>\n</svg>\n")
	return bw.Flush()
}

func strokeColor(pos float64, colorize bool) string {
	if !colorize {
		return "#000000"
	}
	// Trunk green-brown at the roots to yellow-green at the tips.
	c := colorful.HSLuv(40+pos*80, 0.7, 0.3+pos*0.35)
	return c.Clamped().Hex()
}

// FitTransform returns the uniform scale and offset that map b into a
// w x h canvas. The larger graph dimension fills fill (e.g. 0.9) of the
// matching canvas dimension and the result is centered.
// A degenerate box (a single point) maps to the canvas center at scale 1.
func FitTransform(b Bounds, w, h, fill float64) (scale float64, offset Vec2) {
	center := Vec2{X: w / 2, Y: h / 2}
	if !b.Valid {
		return 1, center
	}
	bw, bh := b.Width(), b.Height()
	switch {
	case bw <= 0 && bh <= 0:
		scale = 1
	case bw*h >= bh*w:
		scale = w * fill / bw
	default:
		scale = h * fill / bh
	}
	return scale, center.Sub(b.Center().Mul(scale))
}
