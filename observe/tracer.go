package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// Meta describes one guarded operation for telemetry purposes.
type Meta struct {
	Component string // Originating component (required)
	Kind      string // Fault kind the operation reports under
	Verb      string // Request verb, if any
	Address   string // Target address, if any
}

// SpanName returns the deterministic span name for the operation.
// Format: resilience.execute.<component>
func (m Meta) SpanName() string {
	return "resilience.execute." + m.Component
}

// Attributes returns the OpenTelemetry attributes describing m.
func (m Meta) Attributes() []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("component", m.Component),
	}
	if m.Kind != "" {
		attrs = append(attrs, attribute.String("fault.kind", m.Kind))
	}
	if m.Verb != "" {
		attrs = append(attrs, attribute.String("request.verb", m.Verb))
	}
	if m.Address != "" {
		attrs = append(attrs, attribute.String("request.address", m.Address))
	}
	return attrs
}

// Fields returns m as log fields.
func (m Meta) Fields() []Field {
	fields := []Field{F("component", m.Component)}
	if m.Kind != "" {
		fields = append(fields, F("kind", m.Kind))
	}
	if m.Verb != "" {
		fields = append(fields, F("verb", m.Verb))
	}
	if m.Address != "" {
		fields = append(fields, F("address", m.Address))
	}
	return fields
}

// Tracer wraps OpenTelemetry tracing with operation-specific span management.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: EndSpan must be best-effort and must not panic.
type Tracer interface {
	// StartSpan starts a new span for an operation.
	StartSpan(ctx context.Context, meta Meta) (context.Context, trace.Span)

	// EndSpan ends the span, recording any error.
	EndSpan(span trace.Span, err error)
}

type tracerImpl struct {
	tracer trace.Tracer
}

// NewTracer wraps an OpenTelemetry tracer. A nil tracer yields a no-op Tracer.
func NewTracer(t trace.Tracer) Tracer {
	if t == nil {
		t = tracenoop.NewTracerProvider().Tracer("noop")
	}
	return &tracerImpl{tracer: t}
}

func (t *tracerImpl) StartSpan(ctx context.Context, meta Meta) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, meta.SpanName(),
		trace.WithAttributes(meta.Attributes()...),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

func (t *tracerImpl) EndSpan(span trace.Span, err error) {
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
