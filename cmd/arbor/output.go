package main

import (
	"encoding/json"
	"io"

	"github.com/spf13/cobra"

	"github.com/gogpu/arbor/graph"
)

func addGraphOutputFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("out", "o", "-", "Write the graph as JSON to this file (- for stdout)")
	cmd.Flags().String("svg", "", "Also write an SVG preview to this file")
	cmd.Flags().Int("svg-size", 512, "SVG preview size in pixels")
	cmd.Flags().Bool("colorize", false, "Tint the SVG preview by growth order")
}

// writeGraph writes g as indented JSON and, if requested, an SVG preview.
func writeGraph(cmd *cobra.Command, g *graph.Graph) error {
	out, _ := cmd.Flags().GetString("out")
	err := withOutput(cmd, out, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(g)
	})
	if err != nil {
		return err
	}

	svg, _ := cmd.Flags().GetString("svg")
	if svg == "" {
		return nil
	}
	size, _ := cmd.Flags().GetInt("svg-size")
	colorize, _ := cmd.Flags().GetBool("colorize")
	opts := graph.DefaultSVGOptions()
	opts.Width, opts.Height, opts.Colorize = size, size, colorize
	return withOutput(cmd, svg, func(w io.Writer) error { return g.WriteSVG(w, opts) })
}
