package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/gogpu/arbor"
	"github.com/gogpu/arbor/config"
	"github.com/gogpu/arbor/internal/metrics"
)

var rootCmd = &cobra.Command{
	Use:   "arbor",
	Short: "Arbor grows procedural branch structures and bakes them to texture maps",
	Long: `Arbor generates branch graphs with L-system grammars or space colonization,
writes them as JSON or SVG, and bakes distance, direction, thickness, id and
depth maps with a jump flood pipeline.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if on, _ := cmd.Flags().GetBool("metrics"); on {
			return metrics.WriteText(cmd.ErrOrStderr())
		}
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().StringP("config", "c", "", "YAML or TOML configuration file")
	rootCmd.PersistentFlags().StringArray("set", nil, "Override a configuration key (key=value or key+=value)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("metrics", false, "Print Prometheus metrics to stderr on exit")
}

// flagOverride maps a command flag to a configuration key.
type flagOverride struct {
	flag string
	key  string
}

// loadConfig reads --config, applies changed command flags and then --set
// values, and installs the configured logger.
func loadConfig(cmd *cobra.Command, mapped ...flagOverride) (*config.File, error) {
	path, _ := cmd.Flags().GetString("config")
	var overrides []string
	for _, m := range mapped {
		f := cmd.Flags().Lookup(m.flag)
		if f == nil || !f.Changed {
			continue
		}
		overrides = append(overrides, m.key+"="+f.Value.String())
	}
	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		overrides = append(overrides, "log.level="+lvl)
	}
	sets, _ := cmd.Flags().GetStringArray("set")
	overrides = append(overrides, sets...)

	cfg, err := config.LoadFile(path, overrides)
	if err != nil {
		return nil, err
	}
	logger, err := cfg.Log.Logger(cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}
	arbor.SetLogger(logger)
	return cfg, nil
}

// withOutput runs fn against the file at path, or stdout for "" and "-".
func withOutput(cmd *cobra.Command, path string, fn func(io.Writer) error) (err error) {
	if path == "" || path == "-" {
		return fn(cmd.OutOrStdout())
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return fn(f)
}
