package main

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Mlaiel/Railia-sub006/config"
	"github.com/Mlaiel/Railia-sub006/diagnostics"
)

func newDiagCommand(flags *globalFlags, version string) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "diag",
		Short: "Print one diagnostic report",
		Long: `diag wires the configured services and regions, constructs the regions
once, runs every health check and prints the diagnostic report.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			format = strings.ToLower(format)
			if !slices.Contains(diagnostics.Formats, format) {
				return fmt.Errorf("%w: %q", diagnostics.ErrUnknownFormat, format)
			}

			ctx := cmd.Context()
			cfg, err := config.Load(ctx, flags.configPath)
			if err != nil {
				return err
			}
			a, err := newApp(ctx, cfg, version, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			return a.diag(ctx, cmd.OutOrStdout(), format)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "json", "output format: json|yaml")
	return cmd
}

func (a *app) diag(ctx context.Context, w io.Writer, format string) (err error) {
	defer func() {
		if cerr := a.close(context.Background()); err == nil {
			err = cerr
		}
	}()

	a.start(ctx)
	hctx, cancel := context.WithTimeout(ctx, a.cfg.HealthTimeout())
	defer cancel()
	return diagnostics.Build(hctx, a.sources()).Write(w, format)
}
