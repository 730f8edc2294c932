package fault

import (
	"context"
	"fmt"
	"time"

	"github.com/Mlaiel/Railia-sub006/observe"
)

// Notice is a user-facing message raised for a classified error.
type Notice struct {
	Severity      Severity
	Message       string
	CorrelationID string

	// Persistent notices stay until the user acts (reload or navigate away).
	Persistent bool

	// Duration is how long a transient notice should stay visible.
	// Zero for persistent notices.
	Duration time.Duration
}

// Notifier surfaces notices to the user.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: Notify must not block for long; panics are recovered by the Handler.
type Notifier interface {
	Notify(ctx context.Context, n Notice)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(ctx context.Context, n Notice)

// Notify implements Notifier.
func (f NotifierFunc) Notify(ctx context.Context, n Notice) { f(ctx, n) }

// NewNotice builds the notice for e following the severity policy.
func NewNotice(e *Error) Notice {
	ref := e.ShortID()
	switch e.Severity {
	case SeverityCritical:
		return Notice{
			Severity:      e.Severity,
			Message:       fmt.Sprintf("Critical failure in %s. Reload or navigate away to continue. (ref: %s)", e.Component, ref),
			CorrelationID: e.ID,
			Persistent:    true,
		}
	case SeverityHigh:
		return Notice{
			Severity:      e.Severity,
			Message:       fmt.Sprintf("%s: %s (ref: %s)", e.Component, e.Message, ref),
			CorrelationID: e.ID,
			Duration:      6 * time.Second,
		}
	default:
		return Notice{
			Severity:      e.Severity,
			Message:       fmt.Sprintf("%s: %s (ref: %s)", e.Component, e.Message, ref),
			CorrelationID: e.ID,
			Duration:      4 * time.Second,
		}
	}
}

type logNotifier struct {
	logger observe.Logger
}

// LogNotifier returns a Notifier that writes notices to logger.
func LogNotifier(logger observe.Logger) Notifier {
	if logger == nil {
		logger = observe.NopLogger()
	}
	return &logNotifier{logger: logger}
}

func (n *logNotifier) Notify(ctx context.Context, notice Notice) {
	fields := []observe.Field{
		observe.F("severity", notice.Severity.String()),
		observe.F("correlation_id", notice.CorrelationID),
		observe.F("persistent", notice.Persistent),
	}
	if notice.Severity >= SeverityHigh {
		n.logger.Error(ctx, notice.Message, fields...)
		return
	}
	n.logger.Warn(ctx, notice.Message, fields...)
}
