package config

import (
	"fmt"
	"time"

	"github.com/Mlaiel/Railia-sub006/fault"
	"github.com/Mlaiel/Railia-sub006/health"
	"github.com/Mlaiel/Railia-sub006/observe"
	"github.com/Mlaiel/Railia-sub006/recovery"
	"github.com/Mlaiel/Railia-sub006/resilience"
)

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }

// ObserveConfig returns the telemetry configuration.
func (c *Config) ObserveConfig() observe.Config {
	return observe.Config{
		ServiceName: c.Service.Name,
		Version:     c.Service.Version,
		Tracing: observe.TracingConfig{
			Enabled:   c.Telemetry.Tracing.Enabled,
			Exporter:  c.Telemetry.Tracing.Exporter,
			SamplePct: c.Telemetry.Tracing.SamplePct,
		},
		Metrics: observe.MetricsConfig{
			Enabled:  c.Telemetry.Metrics.Enabled,
			Exporter: c.Telemetry.Metrics.Exporter,
		},
		Logging: observe.LoggingConfig{
			Enabled: true,
			Level:   c.Log.Level,
			Format:  c.Log.Format,
		},
	}
}

// FaultConfig returns the fault handler configuration.
func (c *Config) FaultConfig() (fault.Config, error) {
	quiet := make([]fault.Kind, 0, len(c.Fault.QuietKinds))
	for _, name := range c.Fault.QuietKinds {
		k, err := fault.ParseKind(name)
		if err != nil {
			return fault.Config{}, fmt.Errorf("%w: fault.quiet_kinds: %w", ErrInvalidConfig, err)
		}
		quiet = append(quiet, k)
	}
	return fault.Config{
		HistorySize:  c.Fault.HistorySize,
		RecentSize:   c.Fault.RecentSize,
		QuietKinds:   quiet,
		SinkTimeout:  ms(c.Fault.SinkTimeoutMs),
		ForwardLimit: c.Fault.ForwardLimit,
	}, nil
}

// SinkConfig returns the upstream sink configuration. ok is false when no
// endpoint is configured.
func (c *Config) SinkConfig() (cfg fault.HTTPSinkConfig, ok bool) {
	s := c.Fault.Sink
	if s.Endpoint == "" {
		return fault.HTTPSinkConfig{}, false
	}
	cfg = fault.HTTPSinkConfig{
		Endpoint: s.Endpoint,
		Issuer:   s.Issuer,
		TokenTTL: ms(s.TokenTTLMs),
		Timeout:  ms(c.Fault.SinkTimeoutMs),
	}
	if s.SigningKey != "" {
		cfg.SigningKey = []byte(s.SigningKey)
	}
	return cfg, true
}

// ExecutorConfig returns the shared executor configuration.
func (c *Config) ExecutorConfig() resilience.Config {
	e := c.Executor
	return resilience.Config{
		BaseAddress:    e.BaseAddress,
		Timeout:        ms(e.TimeoutMs),
		RetryCount:     e.RetryCount,
		RetryDelay:     ms(e.RetryDelayMs),
		RetryJitter:    ms(e.RetryJitterMs),
		CachingEnabled: e.CachingEnabled,
		CacheTTL:       ms(e.CacheTTLMs),
	}
}

// ServiceExecutorConfig returns the executor configuration of a named
// service, inheriting unset fields from the shared executor settings.
func (c *Config) ServiceExecutorConfig(name string) (resilience.Config, fault.Kind, error) {
	svc, ok := c.Services[name]
	if !ok {
		return resilience.Config{}, 0, fmt.Errorf("%w: %q", ErrUnknownService, name)
	}

	cfg := c.ExecutorConfig()
	cfg.BaseAddress = svc.BaseAddress
	if svc.TimeoutMs > 0 {
		cfg.Timeout = ms(svc.TimeoutMs)
	}
	if svc.RetryCount != nil {
		cfg.RetryCount = *svc.RetryCount
	}
	if svc.RetryDelayMs != nil {
		cfg.RetryDelay = ms(*svc.RetryDelayMs)
	}
	if svc.CachingEnabled != nil {
		cfg.CachingEnabled = *svc.CachingEnabled
	}
	if svc.CacheTTLMs != nil {
		cfg.CacheTTL = ms(*svc.CacheTTLMs)
	}

	kind := fault.KindNetwork
	if svc.Kind != "" {
		k, err := fault.ParseKind(svc.Kind)
		if err != nil {
			return resilience.Config{}, 0, fmt.Errorf("%w: services.%s.kind: %w", ErrInvalidConfig, name, err)
		}
		kind = k
	}
	return cfg, kind, nil
}

// ServiceNames returns the configured service names.
func (c *Config) ServiceNames() []string {
	return sortedKeys(c.Services)
}

// SupervisorConfig returns the supervisor configuration of a named region.
func (c *Config) SupervisorConfig(name string) (recovery.Config, fault.Kind, error) {
	region, ok := c.Recovery.Regions[name]
	if !ok {
		return recovery.Config{}, 0, fmt.Errorf("%w: %q", ErrUnknownRegion, name)
	}

	tier, err := recovery.ParseTier(region.Tier)
	if err != nil {
		return recovery.Config{}, 0, fmt.Errorf("%w: recovery.regions.%s.tier: %w", ErrInvalidConfig, name, err)
	}

	cfg := recovery.DefaultConfig()
	cfg.Tier = tier
	cfg.MaxRetries = c.Recovery.MaxRetries
	cfg.RecoveryDelay = ms(c.Recovery.RecoveryDelayMs)
	if c.Recovery.PredictTimeoutMs > 0 {
		cfg.PredictTimeout = ms(c.Recovery.PredictTimeoutMs)
	}
	if region.MaxRetries != nil {
		cfg.MaxRetries = *region.MaxRetries
	}
	if region.RecoveryDelayMs != nil {
		cfg.RecoveryDelay = ms(*region.RecoveryDelayMs)
	}

	kind := fault.KindCriticalSystem
	if region.Kind != "" {
		k, err := fault.ParseKind(region.Kind)
		if err != nil {
			return recovery.Config{}, 0, fmt.Errorf("%w: recovery.regions.%s.kind: %w", ErrInvalidConfig, name, err)
		}
		kind = k
	}
	return cfg, kind, nil
}

// RegionNames returns the configured region names.
func (c *Config) RegionNames() []string {
	return sortedKeys(c.Recovery.Regions)
}

// RegionService returns the service a region depends on, or "".
func (c *Config) RegionService(name string) string {
	return c.Recovery.Regions[name].Service
}

// HealthInterval is the period of the region watchdog. Zero disables it.
func (c *Config) HealthInterval() time.Duration {
	return ms(c.Health.IntervalMs)
}

// HealthTimeout bounds each health check.
func (c *Config) HealthTimeout() time.Duration {
	return ms(c.Health.TimeoutMs)
}

// ErrorRateConfig returns the error-rate checker configuration.
func (c *Config) ErrorRateConfig() health.ErrorRateConfig {
	return health.ErrorRateConfig{
		Window:            ms(c.Health.ErrorWindowMs),
		WarningThreshold:  c.Health.WarningThreshold,
		CriticalThreshold: c.Health.CriticalThreshold,
	}
}
