package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/gogpu/arbor/lsystem"
)

var presetsCmd = &cobra.Command{
	Use:   "presets",
	Short: "List the built-in L-system grammars",
	Run: func(cmd *cobra.Command, args []string) {
		verbose, _ := cmd.Flags().GetBool("rules")
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tAXIOM\tANGLE\tITERATIONS\tRULES")
		for _, name := range lsystem.PresetNames() {
			g := lsystem.MustPreset(name)
			fmt.Fprintf(tw, "%s\t%s\t%g\t%d\t%d\n", g.Name, g.Axiom, g.Params.Angle, g.Params.Iterations, len(g.Rules))
			if verbose {
				for _, r := range g.Rules {
					fmt.Fprintf(tw, "\t  %s\t\t\t\n", r)
				}
			}
		}
		tw.Flush()
	},
}

func init() {
	rootCmd.AddCommand(presetsCmd)
	presetsCmd.Flags().Bool("rules", false, "Print each preset's rules")
}
