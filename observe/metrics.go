package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Outcome labels how an executor call resolved.
type Outcome string

const (
	OutcomeSuccess  Outcome = "success"
	OutcomeCache    Outcome = "cache"
	OutcomeFallback Outcome = "fallback"
	OutcomeFailure  Outcome = "failure"
)

// Metrics records resilience-layer metrics.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: must return quickly.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordExecution records one executor call.
	RecordExecution(ctx context.Context, meta Meta, duration time.Duration, attempts int, outcome Outcome)

	// RecordCacheLookup records a cache hit or miss.
	RecordCacheLookup(ctx context.Context, meta Meta, hit bool)

	// RecordFault records one classified error.
	RecordFault(ctx context.Context, kind, severity, component string)

	// RecordTransition records a supervisor state change.
	RecordTransition(ctx context.Context, region, from, to string)
}

type metricsImpl struct {
	execTotal    metric.Int64Counter
	execAttempts metric.Int64Histogram
	execDuration metric.Float64Histogram
	cacheLookups metric.Int64Counter
	faults       metric.Int64Counter
	transitions  metric.Int64Counter
}

// NewMetrics creates Metrics backed by the given meter.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	execTotal, err := meter.Int64Counter(
		"resilience.exec.total",
		metric.WithDescription("Executor calls by outcome"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	execAttempts, err := meter.Int64Histogram(
		"resilience.exec.attempts",
		metric.WithDescription("Operation attempts per executor call"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, err
	}

	execDuration, err := meter.Float64Histogram(
		"resilience.exec.duration_ms",
		metric.WithDescription("Executor call duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	cacheLookups, err := meter.Int64Counter(
		"resilience.cache.lookups",
		metric.WithDescription("Response cache lookups by result"),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		return nil, err
	}

	faults, err := meter.Int64Counter(
		"fault.classified.total",
		metric.WithDescription("Classified errors by kind and severity"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	transitions, err := meter.Int64Counter(
		"recovery.transitions.total",
		metric.WithDescription("Supervisor state transitions"),
		metric.WithUnit("{transition}"),
	)
	if err != nil {
		return nil, err
	}

	return &metricsImpl{
		execTotal:    execTotal,
		execAttempts: execAttempts,
		execDuration: execDuration,
		cacheLookups: cacheLookups,
		faults:       faults,
		transitions:  transitions,
	}, nil
}

func (m *metricsImpl) RecordExecution(ctx context.Context, meta Meta, duration time.Duration, attempts int, outcome Outcome) {
	attrs := append(meta.Attributes(), attribute.String("outcome", string(outcome)))
	opt := metric.WithAttributes(attrs...)

	m.execTotal.Add(ctx, 1, opt)
	m.execAttempts.Record(ctx, int64(attempts), opt)
	m.execDuration.Record(ctx, float64(duration.Milliseconds()), opt)
}

func (m *metricsImpl) RecordCacheLookup(ctx context.Context, meta Meta, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.Add(ctx, 1, metric.WithAttributes(
		attribute.String("component", meta.Component),
		attribute.String("result", result),
	))
}

func (m *metricsImpl) RecordFault(ctx context.Context, kind, severity, component string) {
	m.faults.Add(ctx, 1, metric.WithAttributes(
		attribute.String("fault.kind", kind),
		attribute.String("fault.severity", severity),
		attribute.String("component", component),
	))
}

func (m *metricsImpl) RecordTransition(ctx context.Context, region, from, to string) {
	m.transitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("region", region),
		attribute.String("from", from),
		attribute.String("to", to),
	))
}

type nopMetrics struct{}

// NopMetrics returns a Metrics implementation that does nothing.
func NopMetrics() Metrics { return nopMetrics{} }

func (nopMetrics) RecordExecution(context.Context, Meta, time.Duration, int, Outcome) {}
func (nopMetrics) RecordCacheLookup(context.Context, Meta, bool)                      {}
func (nopMetrics) RecordFault(context.Context, string, string, string)                {}
func (nopMetrics) RecordTransition(context.Context, string, string, string)           {}
