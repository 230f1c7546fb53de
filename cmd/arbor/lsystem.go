package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gogpu/arbor/config"
	"github.com/gogpu/arbor/grow"
	"github.com/gogpu/arbor/lsystem"
)

var lsystemCmd = &cobra.Command{
	Use:   "lsystem",
	Short: "Grow a graph from an L-system grammar",
	Long: `Rewrites a grammar (a built-in preset, or the lsystem section of the
configuration) and interprets the result with a turtle.`,
	Example: `  arbor lsystem --preset fern --iterations 5 --svg fern.svg -o fern.json
  arbor lsystem --set lsystem.axiom=F --set 'lsystem.rules+=F -> F[+F]F[-F]F'`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd,
			flagOverride{"preset", "lsystem.preset"},
			flagOverride{"iterations", "lsystem.params.iterations"},
			flagOverride{"seed", "lsystem.params.seed"},
			flagOverride{"max-length", "lsystem.maxLength"},
		)
		if err != nil {
			return err
		}
		section := cfg.LSystem
		if section == nil {
			section = &config.LSystem{Preset: "plant"}
		}

		if only, _ := cmd.Flags().GetBool("symbols"); only {
			g, err := section.Grammar()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), g.Generate(section.EngineOptions()...))
			return err
		}

		var r grow.Runner
		g, err := r.Run(cmd.Context(), grow.Job{Name: "lsystem", LSystem: section})
		if err != nil {
			return err
		}
		return writeGraph(cmd, g)
	},
}

func init() {
	rootCmd.AddCommand(lsystemCmd)

	lsystemCmd.Flags().String("preset", "", "Built-in grammar ("+strings.Join(lsystem.PresetNames(), ", ")+")")
	lsystemCmd.Flags().Int("iterations", 0, "Rewrite generations")
	lsystemCmd.Flags().Uint64("seed", 0, "Random seed for stochastic rules and angle variance")
	lsystemCmd.Flags().Int("max-length", 0, "Stop before a generation exceeds this many symbols")
	lsystemCmd.Flags().Bool("symbols", false, "Print the rewritten string instead of a graph")
	addGraphOutputFlags(lsystemCmd)
}
