package resilience

import (
	"context"
	"math/rand/v2"
	"time"
)

// RetryConfig configures the retry behavior.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (including initial).
	// Default: 1
	MaxAttempts int

	// Delay is the fixed floor between attempts.
	Delay time.Duration

	// Jitter is the maximum random extra added on top of Delay.
	// Zero disables jitter.
	Jitter time.Duration

	// RetryIf determines if an error should trigger a retry.
	// Default: all non-nil errors trigger retry.
	RetryIf func(err error) bool

	// OnRetry is called before each retry attempt.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// Retry runs an operation up to MaxAttempts times with a fixed delay.
type Retry struct {
	config RetryConfig
}

// NewRetry creates a new retry handler.
func NewRetry(config RetryConfig) *Retry {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 1
	}
	if config.Delay < 0 {
		config.Delay = 0
	}
	if config.Jitter < 0 {
		config.Jitter = 0
	}
	if config.RetryIf == nil {
		config.RetryIf = func(err error) bool { return err != nil }
	}

	return &Retry{config: config}
}

// Execute runs op until it succeeds, RetryIf rejects the error, the attempt
// budget is spent, or ctx is done. It returns the number of attempts made
// and the last error.
func (r *Retry) Execute(ctx context.Context, op func(ctx context.Context, attempt int) error) (int, error) {
	var lastErr error

	for attempt := 1; attempt <= r.config.MaxAttempts; attempt++ {
		err := op(ctx, attempt)
		if err == nil {
			return attempt, nil
		}
		lastErr = err

		if !r.config.RetryIf(err) || attempt >= r.config.MaxAttempts {
			return attempt, lastErr
		}

		delay := r.delay()
		if r.config.OnRetry != nil {
			r.config.OnRetry(attempt, err, delay)
		}

		if delay <= 0 {
			if ctx.Err() != nil {
				return attempt, lastErr
			}
			continue
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return attempt, lastErr
		case <-timer.C:
		}
	}

	return r.config.MaxAttempts, lastErr
}

func (r *Retry) delay() time.Duration {
	delay := r.config.Delay
	if r.config.Jitter > 0 {
		// #nosec G404 -- jitter is non-cryptographic timing variance.
		delay += time.Duration(rand.Int64N(int64(r.config.Jitter) + 1))
	}
	return delay
}

// Config returns the retry configuration.
func (r *Retry) Config() RetryConfig {
	return r.config
}
