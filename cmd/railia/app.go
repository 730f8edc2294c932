package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/Mlaiel/Railia-sub006/adapter"
	"github.com/Mlaiel/Railia-sub006/cache"
	"github.com/Mlaiel/Railia-sub006/config"
	"github.com/Mlaiel/Railia-sub006/diagnostics"
	"github.com/Mlaiel/Railia-sub006/fault"
	"github.com/Mlaiel/Railia-sub006/health"
	"github.com/Mlaiel/Railia-sub006/observe"
	"github.com/Mlaiel/Railia-sub006/recovery"
	"github.com/Mlaiel/Railia-sub006/resilience"
)

// app is the wired resilience layer of one process.
type app struct {
	cfg     *config.Config
	version string
	started time.Time

	obs      observe.Observer
	inst     observe.Instrumentation
	cache    *cache.MemoryCache
	handler  *fault.Handler
	services *adapter.Registry
	regions  *recovery.Registry
	health   *health.Aggregator
}

// newApp wires every component from cfg. Logs go to logOut.
func newApp(ctx context.Context, cfg *config.Config, version string, logOut io.Writer) (*app, error) {
	if cfg.Service.Version == "" || cfg.Service.Version == "dev" {
		cfg.Service.Version = version
	}

	oc := cfg.ObserveConfig()
	oc.Logging.Output = logOut
	obs, err := observe.NewObserver(ctx, oc)
	if err != nil {
		return nil, err
	}
	inst, err := observe.InstrumentationFromObserver(obs)
	if err != nil {
		_ = obs.Shutdown(ctx)
		return nil, err
	}

	a := &app{
		cfg:      cfg,
		version:  version,
		started:  time.Now(),
		obs:      obs,
		inst:     inst,
		cache:    cache.NewMemoryCache(),
		services: adapter.NewRegistry(),
		regions:  recovery.NewRegistry(),
		health:   health.NewAggregator(health.AggregatorConfig{Timeout: cfg.HealthTimeout()}),
	}

	if err := a.wireHandler(); err != nil {
		_ = obs.Shutdown(ctx)
		return nil, err
	}
	if err := a.wireServices(); err != nil {
		_ = obs.Shutdown(ctx)
		return nil, err
	}
	if err := a.wireRegions(); err != nil {
		_ = obs.Shutdown(ctx)
		return nil, err
	}

	a.health.Register("error_rate", health.NewErrorRateChecker(a.handler, cfg.ErrorRateConfig()))
	a.services.RegisterHealth(a.health, cfg.Health.ProbePath)
	a.regions.RegisterHealth(a.health)
	return a, nil
}

func (a *app) wireHandler() error {
	fc, err := a.cfg.FaultConfig()
	if err != nil {
		return err
	}
	opts := []fault.HandlerOption{fault.WithInstrumentation(a.inst)}
	if sc, ok := a.cfg.SinkConfig(); ok {
		sink, err := fault.NewHTTPSink(sc, nil)
		if err != nil {
			return fmt.Errorf("railia: fault sink: %w", err)
		}
		opts = append(opts, fault.WithSink(sink))
	}
	a.handler = fault.NewHandler(fc, opts...)
	return nil
}

func (a *app) wireServices() error {
	for _, name := range a.cfg.ServiceNames() {
		ec, kind, err := a.cfg.ServiceExecutorConfig(name)
		if err != nil {
			return err
		}
		exec, err := resilience.NewExecutor(ec,
			resilience.WithCache(a.cache),
			resilience.WithHandler(a.handler),
			resilience.WithInstrumentation(a.inst),
		)
		if err != nil {
			return fmt.Errorf("railia: service %s: %w", name, err)
		}
		svc, err := adapter.NewService(name, kind, exec)
		if err != nil {
			return err
		}
		if err := a.services.Register(svc); err != nil {
			return err
		}
	}
	return nil
}

func (a *app) wireRegions() error {
	for _, name := range a.cfg.RegionNames() {
		sc, kind, err := a.cfg.SupervisorConfig(name)
		if err != nil {
			return err
		}
		sup, err := recovery.NewSupervisor(a.region(name), sc,
			recovery.WithHandler(a.handler),
			recovery.WithKind(kind),
			recovery.WithInstrumentation(a.inst),
		)
		if err != nil {
			return fmt.Errorf("railia: region %s: %w", name, err)
		}
		if err := a.regions.Register(sup); err != nil {
			return err
		}
	}
	return nil
}

// region builds the guarded region for name. A region that depends on a
// service is constructed by pinging it.
func (a *app) region(name string) recovery.Region {
	svcName := a.cfg.RegionService(name)
	if svcName == "" {
		return recovery.NewRegion(name, nil, nil)
	}
	return recovery.NewRegion(name, func(ctx context.Context) error {
		svc, err := a.services.Get(svcName)
		if err != nil {
			return err
		}
		return svc.Ping(ctx, a.cfg.Health.ProbePath)
	}, nil)
}

// start constructs every region. Construction failures are already handled
// by their supervisors, so they are logged rather than returned.
func (a *app) start(ctx context.Context) {
	if err := a.regions.StartAll(ctx); err != nil {
		a.inst.Logger.Warn(ctx, "regions failed to start", observe.F("error", err.Error()))
	}
}

// watch pings the dependency of every Stable region each interval until
// ctx is done. A failed ping fails the region.
func (a *app) watch(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.sweep(ctx)
		}
	}
}

func (a *app) sweep(ctx context.Context) {
	for _, sup := range a.regions.Supervisors() {
		svcName := a.cfg.RegionService(sup.Name())
		if svcName == "" {
			continue
		}
		svc, err := a.services.Get(svcName)
		if err != nil {
			continue
		}
		err = sup.Guard(ctx, func(ctx context.Context) error {
			pctx, cancel := context.WithTimeout(ctx, a.cfg.HealthTimeout())
			defer cancel()
			return svc.Ping(pctx, a.cfg.Health.ProbePath)
		})
		if err != nil && !errors.Is(err, recovery.ErrRegionUnavailable) {
			a.inst.Logger.Debug(ctx, "watchdog ping failed",
				observe.F("region", sup.Name()),
				observe.F("error", err.Error()),
			)
		}
	}
}

func (a *app) sources() diagnostics.Sources {
	return diagnostics.Sources{
		Service:   a.cfg.Service.Name,
		Version:   a.cfg.Service.Version,
		StartedAt: a.started,
		Handler:   a.handler,
		Health:    a.health,
		Regions:   a.regions,
		Cache:     a.cache,
	}
}

// close tears down every region and flushes telemetry.
func (a *app) close(ctx context.Context) error {
	err := a.regions.CloseAll(ctx)
	a.handler.Wait()
	return errors.Join(err, a.obs.Shutdown(ctx))
}
