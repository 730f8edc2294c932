package observe

// Instrumentation bundles the telemetry components handed to the fault,
// resilience and recovery packages.
type Instrumentation struct {
	Tracer  Tracer
	Metrics Metrics
	Logger  Logger
}

// NopInstrumentation returns an Instrumentation that records nothing.
func NopInstrumentation() Instrumentation {
	return Instrumentation{
		Tracer:  NewTracer(nil),
		Metrics: NopMetrics(),
		Logger:  NopLogger(),
	}
}

// InstrumentationFromObserver builds an Instrumentation from an Observer.
func InstrumentationFromObserver(obs Observer) (Instrumentation, error) {
	if obs == nil {
		return Instrumentation{}, ErrNilObserver
	}

	metrics, err := NewMetrics(obs.Meter())
	if err != nil {
		return Instrumentation{}, err
	}

	return Instrumentation{
		Tracer:  NewTracer(obs.Tracer()),
		Metrics: metrics,
		Logger:  obs.Logger(),
	}, nil
}

// WithDefaults fills nil members with no-op implementations.
func (i Instrumentation) WithDefaults() Instrumentation {
	if i.Tracer == nil {
		i.Tracer = NewTracer(nil)
	}
	if i.Metrics == nil {
		i.Metrics = NopMetrics()
	}
	if i.Logger == nil {
		i.Logger = NopLogger()
	}
	return i
}
