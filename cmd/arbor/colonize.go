package main

import (
	"github.com/spf13/cobra"

	"github.com/gogpu/arbor"
	"github.com/gogpu/arbor/config"
	"github.com/gogpu/arbor/grow"
)

var colonizeCmd = &cobra.Command{
	Use:   "colonize",
	Short: "Grow a graph by space colonization",
	Long: `Scatters attractors over a region with the chosen strategy and grows
branches from the seeds toward them until they are consumed.`,
	Example: `  arbor colonize --strategy poisson --count 800 --svg crown.svg
  arbor colonize --strategy image --set colonize.image=leaf.png -o veins.json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd,
			flagOverride{"strategy", "colonize.strategy"},
			flagOverride{"count", "colonize.count"},
			flagOverride{"seed", "colonize.seed"},
			flagOverride{"iterations", "colonize.maxIterations"},
			flagOverride{"thickness", "colonize.thickness"},
		)
		if err != nil {
			return err
		}
		section := cfg.Colonize
		if section == nil {
			section = config.DefaultColonize()
		}

		r := grow.Runner{Buffer: 8}
		var final grow.Result
		for res := range r.Submit(cmd.Context(), grow.Job{Name: "colonize", Colonize: section}) {
			if res.Partial {
				arbor.Logger().Info("colonize: progress", "iteration", res.Iteration, "nodes", res.Graph.Len())
				continue
			}
			final = res
		}
		if final.Err != nil {
			return final.Err
		}
		return writeGraph(cmd, final.Graph)
	},
}

func init() {
	rootCmd.AddCommand(colonizeCmd)

	colonizeCmd.Flags().String("strategy", "", "Attractor placement (uniform, radial, poisson, noise, image)")
	colonizeCmd.Flags().Int("count", 0, "Number of attractors")
	colonizeCmd.Flags().Uint64("seed", 0, "Random seed for attractor placement")
	colonizeCmd.Flags().Int("iterations", 0, "Maximum growth iterations")
	colonizeCmd.Flags().String("thickness", "", "Thickness mode (constant, depth, flow)")
	addGraphOutputFlags(colonizeCmd)
}
