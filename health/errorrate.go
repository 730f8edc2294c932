package health

import (
	"context"
	"fmt"
	"time"
)

// ErrorCounter counts classified errors recorded since a point in time.
// fault.Handler implements it.
type ErrorCounter interface {
	CountSince(t time.Time) int
}

// ErrorRateConfig configures the error rate checker.
type ErrorRateConfig struct {
	// Window is how far back errors are counted.
	// Default: 1 minute
	Window time.Duration

	// WarningThreshold is the count within Window that marks the layer degraded.
	// Default: 10
	WarningThreshold int

	// CriticalThreshold is the count within Window that marks it unhealthy.
	// Default: 50
	CriticalThreshold int
}

// ErrorRateChecker reports how many errors the fault handler classified recently.
type ErrorRateChecker struct {
	counter ErrorCounter
	config  ErrorRateConfig
	now     func() time.Time
}

// NewErrorRateChecker creates an error rate checker over counter.
func NewErrorRateChecker(counter ErrorCounter, config ErrorRateConfig) *ErrorRateChecker {
	if config.Window <= 0 {
		config.Window = time.Minute
	}
	if config.WarningThreshold <= 0 {
		config.WarningThreshold = 10
	}
	if config.CriticalThreshold <= 0 {
		config.CriticalThreshold = 50
	}
	if config.CriticalThreshold < config.WarningThreshold {
		config.CriticalThreshold = config.WarningThreshold
	}

	return &ErrorRateChecker{counter: counter, config: config, now: time.Now}
}

// Name returns the name of this checker.
func (c *ErrorRateChecker) Name() string {
	return "error_rate"
}

// Check performs the error rate check.
func (c *ErrorRateChecker) Check(ctx context.Context) Result {
	if err := ctx.Err(); err != nil {
		return Unhealthy("context cancelled", err)
	}

	count := c.counter.CountSince(c.now().Add(-c.config.Window))
	details := map[string]any{
		"errors":             count,
		"window":             c.config.Window.String(),
		"warning_threshold":  c.config.WarningThreshold,
		"critical_threshold": c.config.CriticalThreshold,
	}

	switch {
	case count >= c.config.CriticalThreshold:
		return Unhealthy(fmt.Sprintf("error rate critical: %d in %s", count, c.config.Window), ErrCheckFailed).WithDetails(details)
	case count >= c.config.WarningThreshold:
		return Degraded(fmt.Sprintf("error rate high: %d in %s", count, c.config.Window)).WithDetails(details)
	default:
		return Healthy(fmt.Sprintf("error rate normal: %d in %s", count, c.config.Window)).WithDetails(details)
	}
}
