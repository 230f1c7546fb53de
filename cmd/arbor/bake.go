package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gogpu/arbor"
	"github.com/gogpu/arbor/config"
	"github.com/gogpu/arbor/graph"
	"github.com/gogpu/arbor/grow"
	"github.com/gogpu/arbor/texmap"
)

var bakeCmd = &cobra.Command{
	Use:   "bake",
	Short: "Bake a graph into texture maps",
	Long: `Rasterizes a graph and runs the jump flood pipeline, writing one PNG per
map plus a 16-bit TIFF of the distance field. The graph is read from --graph,
or grown from the lsystem or colonize section of the configuration.`,
	Example: `  arbor lsystem --preset plant -o plant.json && arbor bake --graph plant.json --size 1024 --out maps/
  arbor bake -c tree.yaml --maps distance,thickness --device software`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd,
			flagOverride{"size", "raster.width"},
			flagOverride{"size", "raster.height"},
			flagOverride{"maps", "raster.maps"},
			flagOverride{"max-distance", "raster.maxDistance"},
			flagOverride{"line-scale", "raster.lineScale"},
			flagOverride{"device", "raster.device"},
			flagOverride{"out", "raster.out"},
		)
		if err != nil {
			return err
		}
		dev, release, err := selectDevice(cfg.Raster.Device)
		if err != nil {
			return err
		}
		defer release()

		path, _ := cmd.Flags().GetString("graph")
		g, err := bakeSource(cmd, cfg, path)
		if err != nil {
			return err
		}
		p, err := texmap.NewPipeline(dev)
		if err != nil {
			return err
		}
		defer p.Close()

		settings, err := cfg.Raster.Settings()
		if err != nil {
			return err
		}
		out, err := p.Rasterize(cmd.Context(), g, settings)
		if err != nil {
			return err
		}
		paths, err := out.SaveAll(cfg.Raster.Out)
		for _, f := range paths {
			fmt.Fprintln(cmd.OutOrStdout(), f)
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(bakeCmd)

	bakeCmd.Flags().String("graph", "", "Graph JSON file to bake")
	bakeCmd.Flags().Int("size", 0, "Output width and height in pixels")
	bakeCmd.Flags().String("maps", "", "Maps to produce (all, or a list of distance, direction, thickness, id, depth)")
	bakeCmd.Flags().Float64("max-distance", 0, "Pixel distance mapped to white in the distance map")
	bakeCmd.Flags().Float64("line-scale", 0, "Multiplier for branch thickness")
	bakeCmd.Flags().String("device", "", "Texture device (auto, software, or a device name)")
	bakeCmd.Flags().StringP("out", "o", "", "Output directory")
}

// bakeSource loads the graph at path, or grows one from the configuration.
func bakeSource(cmd *cobra.Command, cfg *config.File, path string) (*graph.Graph, error) {
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		g := new(graph.Graph)
		if err := json.Unmarshal(data, g); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return g, nil
	}
	if cfg.LSystem == nil && cfg.Colonize == nil {
		return nil, errors.New("bake: need --graph or an lsystem or colonize section")
	}
	var r grow.Runner
	return r.Run(cmd.Context(), grow.Job{Name: "bake", LSystem: cfg.LSystem, Colonize: cfg.Colonize})
}

// selectDevice resolves a device name. The release func closes devices
// created here and leaves the registered default open.
func selectDevice(name string) (texmap.Device, func(), error) {
	keep := func() {}
	switch name {
	case "", "auto":
		return texmap.DefaultDevice(), keep, nil
	case "software":
		dev := texmap.NewSoftwareDevice(nil)
		return dev, func() { _ = dev.Close() }, nil
	}
	dev := texmap.DefaultDevice()
	if dev.Name() != name {
		return nil, nil, fmt.Errorf("bake: device %q not available (default is %q)", name, dev.Name())
	}
	arbor.Logger().Debug("bake: using device", "device", name)
	return dev, keep, nil
}
