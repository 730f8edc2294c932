package resilience

import "errors"

// Sentinel errors for resilience operations.
var (
	// ErrTimeout is returned when an attempt overruns its deadline.
	ErrTimeout = errors.New("resilience: operation timed out")

	// ErrExhausted is returned when every attempt failed and no fallback was supplied.
	ErrExhausted = errors.New("resilience: retries exhausted")

	// ErrInvalidConfig is returned when an executor configuration is rejected.
	ErrInvalidConfig = errors.New("resilience: invalid config")

	// ErrNilOperation is returned when a request carries no operation.
	ErrNilOperation = errors.New("resilience: operation is nil")

	// ErrOperationPanic wraps a panic raised by an operation.
	ErrOperationPanic = errors.New("resilience: operation panicked")
)
