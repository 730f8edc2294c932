package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/Mlaiel/Railia-sub006/config"
	"github.com/Mlaiel/Railia-sub006/diagnostics"
	"github.com/Mlaiel/Railia-sub006/health"
	"github.com/Mlaiel/Railia-sub006/observe"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(flags *globalFlags, version string) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve health probes and diagnostics",
		Long: `serve wires every configured service and region, constructs the regions,
and serves:

  /healthz       liveness
  /readyz        readiness (degraded is still ready)
  /health        detailed health report
  /diagnostics   diagnostic export (?format=yaml for YAML)
  /metrics       Prometheus metrics, when the prometheus exporter is enabled`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := config.Load(ctx, flags.configPath)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}

			a, err := newApp(ctx, cfg, version, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			return a.serve(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	return cmd
}

// mux returns the HTTP routes of the process.
func (a *app) mux() *http.ServeMux {
	mux := http.NewServeMux()
	health.RegisterHandlers(mux, a.health)
	mux.Handle("/diagnostics", diagnostics.Handler(a.sources(), a.cfg.HealthTimeout()))
	if a.cfg.Telemetry.Metrics.Enabled && a.cfg.Telemetry.Metrics.Exporter == "prometheus" {
		mux.Handle("/metrics", promhttp.Handler())
	}
	return mux
}

// serve runs the HTTP server and the region watchdog until ctx is done.
func (a *app) serve(ctx context.Context) error {
	a.start(ctx)

	watchCtx, stopWatch := context.WithCancel(ctx)
	defer stopWatch()
	go a.watch(watchCtx, a.cfg.HealthInterval())

	srv := &http.Server{
		Addr:              a.cfg.Server.Addr,
		Handler:           a.mux(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.inst.Logger.Info(ctx, "serving", observe.F("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	var serveErr error
	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			serveErr = err
		}
	case <-ctx.Done():
	}
	stopWatch()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	a.inst.Logger.Info(shutdownCtx, "shutting down")
	return errors.Join(serveErr, srv.Shutdown(shutdownCtx), a.close(shutdownCtx))
}
