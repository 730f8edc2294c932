package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ExecuteWithTimeout runs op under a deadline of timeout.
//
// Exceeding the deadline yields an error wrapping ErrTimeout, even when op
// completes at the same instant. The overrunning goroutine is left to finish
// on its own; its result is dropped into a buffered channel nobody reads.
// Cancellation of ctx itself is returned as ctx.Err(), including when op
// finishes after ctx has already ended.
func ExecuteWithTimeout[T any](ctx context.Context, timeout time.Duration, op func(context.Context) (T, error)) (T, error) {
	var zero T
	if timeout <= 0 {
		return zero, fmt.Errorf("%w: timeout must be positive", ErrInvalidConfig)
	}

	tctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		value T
		err   error
	}
	done := make(chan outcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("%w: %v", ErrOperationPanic, r)}
			}
		}()
		v, err := op(tctx)
		done <- outcome{value: v, err: err}
	}()

	select {
	case out := <-done:
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		if overran(ctx, tctx) {
			return zero, timeoutError(timeout)
		}
		return out.value, out.err
	case <-tctx.Done():
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		return zero, timeoutError(timeout)
	}
}

// overran reports whether tctx hit its own deadline while ctx is still live.
func overran(ctx, tctx context.Context) bool {
	return ctx.Err() == nil && errors.Is(tctx.Err(), context.DeadlineExceeded)
}

func timeoutError(timeout time.Duration) error {
	return fmt.Errorf("%w after %s", ErrTimeout, timeout)
}
