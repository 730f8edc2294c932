package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

type globalFlags struct {
	configPath string
}

func newRootCommand(version, commit string) *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "railia",
		Short: "Railia resilience layer",
		Long: `railia guards calls to external services with timeouts, retries,
response caching and fallbacks, and supervises failure-isolated regions
with bounded automatic recovery.

Configuration is layered: built-in defaults, then the YAML file given by
--config, then RAILIA_* environment variables.`,
		Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "config file path")

	rootCmd.AddCommand(newServeCommand(flags, version))
	rootCmd.AddCommand(newDiagCommand(flags, version))
	return rootCmd
}
