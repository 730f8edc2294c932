package config

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/Mlaiel/Railia-sub006/fault"
)

// EnvPrefix is the prefix of environment overrides.
const EnvPrefix = "RAILIA_"

// Config is the full configuration of a railia process.
type Config struct {
	Service   ServiceInfo              `koanf:"service"`
	Log       LogConfig                `koanf:"log"`
	Telemetry TelemetryConfig          `koanf:"telemetry"`
	Fault     FaultConfig              `koanf:"fault"`
	Executor  ExecutorConfig           `koanf:"executor"`
	Services  map[string]ServiceConfig `koanf:"services" validate:"dive"`
	Recovery  RecoveryConfig           `koanf:"recovery"`
	Health    HealthConfig             `koanf:"health"`
	Server    ServerConfig             `koanf:"server"`
}

// ServiceInfo identifies the process in logs, traces and diagnostics.
type ServiceInfo struct {
	Name    string `koanf:"name" validate:"required"`
	Version string `koanf:"version"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	Level  string `koanf:"level" validate:"oneof=debug info warn error"`
	Format string `koanf:"format" validate:"oneof=json text"`
}

// TelemetryConfig configures OpenTelemetry export.
type TelemetryConfig struct {
	Tracing TracingConfig `koanf:"tracing"`
	Metrics MetricsConfig `koanf:"metrics"`
}

// TracingConfig configures trace export.
type TracingConfig struct {
	Enabled   bool    `koanf:"enabled"`
	Exporter  string  `koanf:"exporter" validate:"oneof=otlp stdout none"`
	SamplePct float64 `koanf:"sample_pct" validate:"gte=0,lte=1"`
}

// MetricsConfig configures metric export.
type MetricsConfig struct {
	Enabled  bool   `koanf:"enabled"`
	Exporter string `koanf:"exporter" validate:"oneof=otlp prometheus stdout none"`
}

// FaultConfig configures the fault handler.
type FaultConfig struct {
	HistorySize   int        `koanf:"history_size" validate:"gt=0"`
	RecentSize    int        `koanf:"recent_size" validate:"gt=0"`
	QuietKinds    []string   `koanf:"quiet_kinds" validate:"dive,fault_kind"`
	SinkTimeoutMs int        `koanf:"sink_timeout_ms" validate:"gte=0"`
	ForwardLimit  int        `koanf:"forward_limit" validate:"gte=0"`
	Sink          SinkConfig `koanf:"sink"`
}

// SinkConfig configures upstream reporting. An empty endpoint disables it.
type SinkConfig struct {
	Endpoint   string `koanf:"endpoint" validate:"omitempty,url"`
	SigningKey string `koanf:"signing_key"`
	Issuer     string `koanf:"issuer"`
	TokenTTLMs int    `koanf:"token_ttl_ms" validate:"gte=0"`
}

// ExecutorConfig is the default executor configuration shared by services.
type ExecutorConfig struct {
	BaseAddress    string `koanf:"base_address" validate:"omitempty,url"`
	TimeoutMs      int    `koanf:"timeout_ms" validate:"gt=0"`
	RetryCount     int    `koanf:"retry_count" validate:"gte=0"`
	RetryDelayMs   int    `koanf:"retry_delay_ms" validate:"gte=0"`
	RetryJitterMs  int    `koanf:"retry_jitter_ms" validate:"gte=0"`
	CachingEnabled bool   `koanf:"caching_enabled"`
	CacheTTLMs     int    `koanf:"cache_ttl_ms" validate:"gte=0"`
}

// ServiceConfig configures one named domain service. Unset fields inherit
// from Executor.
type ServiceConfig struct {
	BaseAddress    string `koanf:"base_address" validate:"required,url"`
	Kind           string `koanf:"kind" validate:"omitempty,fault_kind"`
	TimeoutMs      int    `koanf:"timeout_ms" validate:"gte=0"`
	RetryCount     *int   `koanf:"retry_count" validate:"omitempty,gte=0"`
	RetryDelayMs   *int   `koanf:"retry_delay_ms" validate:"omitempty,gte=0"`
	CachingEnabled *bool  `koanf:"caching_enabled"`
	CacheTTLMs     *int   `koanf:"cache_ttl_ms" validate:"omitempty,gte=0"`
}

// RecoveryConfig configures supervisors.
type RecoveryConfig struct {
	MaxRetries       int                     `koanf:"max_retries" validate:"gte=0"`
	RecoveryDelayMs  int                     `koanf:"recovery_delay_ms" validate:"gte=0"`
	PredictTimeoutMs int                     `koanf:"predict_timeout_ms" validate:"gte=0"`
	Regions          map[string]RegionConfig `koanf:"regions" validate:"dive"`
}

// RegionConfig configures one guarded region. Unset fields inherit from Recovery.
type RegionConfig struct {
	Tier            string `koanf:"tier" validate:"required,oneof=critical module component"`
	Kind            string `koanf:"kind" validate:"omitempty,fault_kind"`
	MaxRetries      *int   `koanf:"max_retries" validate:"omitempty,gte=0"`
	RecoveryDelayMs *int   `koanf:"recovery_delay_ms" validate:"omitempty,gte=0"`

	// Service names the configured service whose reachability the region
	// depends on. Empty means the region has no external dependency.
	Service string `koanf:"service"`
}

// HealthConfig configures health checks.
type HealthConfig struct {
	TimeoutMs         int    `koanf:"timeout_ms" validate:"gt=0"`
	IntervalMs        int    `koanf:"interval_ms" validate:"gte=0"`
	ProbePath         string `koanf:"probe_path"`
	ErrorWindowMs     int    `koanf:"error_window_ms" validate:"gt=0"`
	WarningThreshold  int    `koanf:"warning_threshold" validate:"gt=0"`
	CriticalThreshold int    `koanf:"critical_threshold" validate:"gtefield=WarningThreshold"`
}

// ServerConfig configures the HTTP server of the serve command.
type ServerConfig struct {
	Addr string `koanf:"addr" validate:"required"`
}

// Defaults returns the built-in defaults as koanf keys.
func Defaults() map[string]any {
	return map[string]any{
		"service.name":    "railia",
		"service.version": "dev",

		"log.level":  "info",
		"log.format": "json",

		"telemetry.tracing.enabled":    false,
		"telemetry.tracing.exporter":   "none",
		"telemetry.tracing.sample_pct": 1.0,
		"telemetry.metrics.enabled":    false,
		"telemetry.metrics.exporter":   "none",

		"fault.history_size":      100,
		"fault.recent_size":       10,
		"fault.quiet_kinds":       []string{"sensor_data"},
		"fault.sink_timeout_ms":   5000,
		"fault.forward_limit":     16,
		"fault.sink.issuer":       "railia",
		"fault.sink.token_ttl_ms": 60000,

		"executor.timeout_ms":      10000,
		"executor.retry_count":     2,
		"executor.retry_delay_ms":  1000,
		"executor.retry_jitter_ms": 0,
		"executor.caching_enabled": true,
		"executor.cache_ttl_ms":    300000,

		"recovery.max_retries":        3,
		"recovery.recovery_delay_ms":  2000,
		"recovery.predict_timeout_ms": 2000,

		"health.timeout_ms":         5000,
		"health.interval_ms":        15000,
		"health.probe_path":         "/healthz",
		"health.error_window_ms":    60000,
		"health.warning_threshold":  10,
		"health.critical_threshold": 50,

		"server.addr": ":8080",
	}
}

// Load reads defaults, then the YAML file at path (if non-empty), then the
// environment. References are resolved and the result validated.
func Load(ctx context.Context, path string) (*Config, error) {
	return LoadWith(ctx, path, NewResolver())
}

// LoadWith is Load with a caller-supplied secret resolver.
func LoadWith(ctx context.Context, path string, resolver *Resolver) (*Config, error) {
	k := koanf.New(".")

	for key, value := range Defaults() {
		if err := k.Set(key, value); err != nil {
			return nil, fmt.Errorf("config: default %s: %w", key, err)
		}
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("config: load %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", EnvKey), nil); err != nil {
		return nil, fmt.Errorf("config: load environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}

	if err := cfg.Resolve(ctx, resolver); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// EnvKey maps an environment variable name to a koanf key.
func EnvKey(name string) string {
	key := strings.ToLower(strings.TrimPrefix(name, EnvPrefix))
	if strings.Contains(key, "__") {
		return strings.ReplaceAll(key, "__", ".")
	}
	return strings.Replace(key, "_", ".", 1)
}

// Resolve expands environment and secret references in address and
// credential settings.
func (c *Config) Resolve(ctx context.Context, r *Resolver) error {
	if r == nil {
		r = NewResolver()
	}

	fields := map[string]*string{
		"executor.base_address":  &c.Executor.BaseAddress,
		"fault.sink.endpoint":    &c.Fault.Sink.Endpoint,
		"fault.sink.signing_key": &c.Fault.Sink.SigningKey,
	}
	for name, svc := range c.Services {
		resolved, err := r.ResolveValue(ctx, svc.BaseAddress)
		if err != nil {
			return fmt.Errorf("config: services.%s.base_address: %w", name, err)
		}
		svc.BaseAddress = resolved
		c.Services[name] = svc
	}

	for key, ptr := range fields {
		resolved, err := r.ResolveValue(ctx, *ptr)
		if err != nil {
			return fmt.Errorf("config: %s: %w", key, err)
		}
		*ptr = resolved
	}
	return nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("fault_kind", func(fl validator.FieldLevel) bool {
		_, err := fault.ParseKind(fl.Field().String())
		return err == nil
	})
	return v
}

// Validate checks every field constraint.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return c.validateRefs()
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msg := fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag())
		if fe.Param() != "" {
			msg = fmt.Sprintf("%s failed %q (%s)", fe.Namespace(), fe.Tag(), fe.Param())
		}
		msgs = append(msgs, msg)
	}
	sort.Strings(msgs)
	return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(msgs, "; "))
}

// validateRefs checks that regions only depend on configured services.
func (c *Config) validateRefs() error {
	for _, name := range sortedKeys(c.Recovery.Regions) {
		svc := c.Recovery.Regions[name].Service
		if svc == "" {
			continue
		}
		if _, ok := c.Services[svc]; !ok {
			return fmt.Errorf("%w: recovery.regions.%s.service: %w: %q", ErrInvalidConfig, name, ErrUnknownService, svc)
		}
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
