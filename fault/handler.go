package fault

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Mlaiel/Railia-sub006/observe"
)

// Config configures the Handler.
type Config struct {
	// HistorySize is the number of errors retained. Older entries are evicted.
	// Default: 100
	HistorySize int

	// RecentSize is the number of errors listed in Snapshot.Recent.
	// Default: 10
	RecentSize int

	// QuietKinds are counted but never raise a notice.
	// Default: [KindSensorData]. Use an empty, non-nil slice to notify for all kinds.
	QuietKinds []Kind

	// SinkTimeout bounds each upstream report.
	// Default: 5 seconds
	SinkTimeout time.Duration

	// ForwardLimit caps concurrent background forwards to the predictor and
	// sink. Errors arriving while the limit is reached are recorded but not
	// forwarded.
	// Default: 16
	ForwardLimit int
}

// Snapshot aggregates the retained history. It is derived on demand.
type Snapshot struct {
	TotalErrors int              `json:"total_errors"`
	ByKind      map[Kind]int     `json:"by_kind"`
	BySeverity  map[Severity]int `json:"by_severity"`

	// Recent lists the latest errors, most recent first.
	Recent []*Error `json:"recent"`
}

// Handler classifies, records and reports failures.
type Handler struct {
	config    Config
	notifier  Notifier
	sink      Sink
	predictor Predictor
	inst      observe.Instrumentation
	now       func() time.Time

	mu      sync.Mutex
	history []*Error

	slots   chan struct{}
	pending sync.WaitGroup
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithNotifier sets the notifier. Default: LogNotifier over the handler logger.
func WithNotifier(n Notifier) HandlerOption {
	return func(h *Handler) { h.notifier = n }
}

// WithSink sets the upstream sink.
func WithSink(s Sink) HandlerOption {
	return func(h *Handler) { h.sink = s }
}

// WithPredictor binds the optional prediction capability.
func WithPredictor(p Predictor) HandlerOption {
	return func(h *Handler) { h.predictor = p }
}

// WithInstrumentation sets logging and metrics.
func WithInstrumentation(inst observe.Instrumentation) HandlerOption {
	return func(h *Handler) { h.inst = inst }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) HandlerOption {
	return func(h *Handler) { h.now = now }
}

// NewHandler creates a Handler.
func NewHandler(config Config, opts ...HandlerOption) *Handler {
	if config.HistorySize <= 0 {
		config.HistorySize = 100
	}
	if config.RecentSize <= 0 {
		config.RecentSize = 10
	}
	if config.QuietKinds == nil {
		config.QuietKinds = []Kind{KindSensorData}
	}
	if config.SinkTimeout <= 0 {
		config.SinkTimeout = 5 * time.Second
	}
	if config.ForwardLimit <= 0 {
		config.ForwardLimit = 16
	}

	h := &Handler{
		config: config,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	h.inst = h.inst.WithDefaults()
	if h.notifier == nil {
		h.notifier = LogNotifier(h.inst.Logger)
	}
	h.history = make([]*Error, 0, config.HistorySize)
	h.slots = make(chan struct{}, config.ForwardLimit)
	return h
}

// Option adjusts one Handle call.
type Option func(*options)

type options struct {
	severity       Severity
	severitySet    bool
	message        string
	notify         bool
	reportUpstream bool
	logLocally     bool
}

// WithSeverity overrides the kind's default severity.
func WithSeverity(s Severity) Option {
	return func(o *options) {
		o.severity = s
		o.severitySet = true
	}
}

// WithMessage replaces the cause text as the error message.
func WithMessage(msg string) Option {
	return func(o *options) { o.message = msg }
}

// WithNotify toggles the user notice. Default: true.
func WithNotify(enabled bool) Option {
	return func(o *options) { o.notify = enabled }
}

// WithReportUpstream toggles forwarding to the sink and predictor. Default: true.
func WithReportUpstream(enabled bool) Option {
	return func(o *options) { o.reportUpstream = enabled }
}

// WithLogLocally toggles the local log record. Default: true.
func WithLogLocally(enabled bool) Option {
	return func(o *options) { o.logLocally = enabled }
}

// Handle classifies raw and runs the reporting policy for it.
//
// Handle never panics and never returns nil. Passing an *Error that was
// already classified returns it unchanged without recording it twice.
// Forwarding to the predictor and sink happens in the background; Wait
// blocks until it is done.
func (h *Handler) Handle(ctx context.Context, raw error, kind Kind, component string, opts ...Option) (classified *Error) {
	if fe, ok := raw.(*Error); ok && fe != nil {
		return fe
	}
	if ctx == nil {
		ctx = context.Background()
	}

	o := options{notify: true, reportUpstream: true, logLocally: true}
	for _, opt := range opts {
		opt(&o)
	}

	defer func() {
		if r := recover(); r != nil {
			classified = h.degraded(raw, kind, component, r)
		}
	}()

	classified = h.classify(raw, kind, component, o)
	h.record(classified)
	h.inst.Metrics.RecordFault(ctx, classified.Kind.String(), classified.Severity.String(), classified.Component)

	if o.logLocally {
		h.logLocal(ctx, classified)
	}
	if o.notify && classified.Severity.Notifies() && !slices.Contains(h.config.QuietKinds, classified.Kind) {
		h.safely(ctx, "notifier", func() { h.notifier.Notify(ctx, NewNotice(classified)) })
	}
	if o.reportUpstream {
		h.forward(ctx, classified)
	}
	return classified
}

func (h *Handler) classify(raw error, kind Kind, component string, o options) *Error {
	if raw == nil {
		raw = ErrNilCause
	}
	if !kind.Valid() {
		kind = KindNetwork
	}
	if component == "" {
		component = "unknown"
	}
	severity := kind.DefaultSeverity()
	if o.severitySet {
		severity = o.severity
	}
	msg := o.message
	if msg == "" {
		msg = raw.Error()
	}

	return &Error{
		ID:        uuid.NewString(),
		Kind:      kind,
		Severity:  severity,
		Message:   msg,
		Component: component,
		Timestamp: h.now(),
		Cause:     raw,
	}
}

func (h *Handler) record(e *Error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.history) >= h.config.HistorySize {
		copy(h.history, h.history[1:])
		h.history = h.history[:len(h.history)-1]
	}
	h.history = append(h.history, e)
}

func (h *Handler) logLocal(ctx context.Context, e *Error) {
	fields := []observe.Field{
		observe.F("error_id", e.ID),
		observe.F("kind", e.Kind.String()),
		observe.F("severity", e.Severity.String()),
		observe.F("component", e.Component),
	}
	switch e.Severity {
	case SeverityLow:
		h.inst.Logger.Debug(ctx, e.Message, fields...)
	case SeverityMedium:
		h.inst.Logger.Warn(ctx, e.Message, fields...)
	default:
		h.inst.Logger.Error(ctx, e.Message, fields...)
	}
}

// forward hands e to the predictor and sink in the background, so their
// latency never delays Handle.
func (h *Handler) forward(ctx context.Context, e *Error) {
	toSink := h.sink != nil && e.Severity.Escalates()
	if h.predictor == nil && !toSink {
		return
	}

	select {
	case h.slots <- struct{}{}:
	default:
		h.inst.Logger.Warn(ctx, "forward limit reached, error not forwarded", observe.F("error_id", e.ID))
		return
	}

	ctx = context.WithoutCancel(ctx)
	h.pending.Add(1)
	go func() {
		defer func() {
			<-h.slots
			h.pending.Done()
		}()
		if h.predictor != nil {
			h.safely(ctx, "predictor", func() { h.predictor.AddErrorEvent(e) })
		}
		if toSink {
			h.safely(ctx, "sink", func() {
				sinkCtx, cancel := context.WithTimeout(ctx, h.config.SinkTimeout)
				defer cancel()
				if err := h.sink.Report(sinkCtx, e); err != nil {
					h.inst.Logger.Warn(ctx, "upstream report failed",
						observe.F("error_id", e.ID),
						observe.F("error", err.Error()),
					)
				}
			})
		}
	}()
}

// Wait blocks until every background forward has finished.
func (h *Handler) Wait() {
	h.pending.Wait()
}

// safely runs fn, logging and swallowing any panic.
func (h *Handler) safely(ctx context.Context, what string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			h.inst.Logger.Error(ctx, what+" panicked", observe.F("panic", fmt.Sprint(r)))
		}
	}()
	fn()
}

// degraded builds a best-effort record when the normal path panicked.
func (h *Handler) degraded(raw error, kind Kind, component string, r any) *Error {
	if raw == nil {
		raw = ErrNilCause
	}
	e := &Error{
		ID:        "local-" + strconv.FormatInt(time.Now().UnixNano(), 36),
		Kind:      kind,
		Severity:  kind.DefaultSeverity(),
		Message:   raw.Error(),
		Component: component,
		Timestamp: time.Now(),
		Cause:     fmt.Errorf("%w (handler panic: %v)", raw, r),
	}
	func() {
		defer func() { _ = recover() }()
		h.record(e)
	}()
	return e
}

// Metrics aggregates the retained history.
func (h *Handler) Metrics() Snapshot {
	h.mu.Lock()
	defer h.mu.Unlock()

	snap := Snapshot{
		TotalErrors: len(h.history),
		ByKind:      make(map[Kind]int),
		BySeverity:  make(map[Severity]int),
	}
	for _, e := range h.history {
		snap.ByKind[e.Kind]++
		snap.BySeverity[e.Severity]++
	}
	snap.Recent = h.recentLocked(h.config.RecentSize)
	return snap
}

// Recent returns up to n retained errors, most recent first.
func (h *Handler) Recent(n int) []*Error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.recentLocked(n)
}

func (h *Handler) recentLocked(n int) []*Error {
	if n < 0 {
		n = 0
	}
	if n > len(h.history) {
		n = len(h.history)
	}
	out := make([]*Error, 0, n)
	for i := len(h.history) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, h.history[i])
	}
	return out
}

// CountSince returns how many retained errors were recorded at or after t.
func (h *Handler) CountSince(t time.Time) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	count := 0
	for i := len(h.history) - 1; i >= 0; i-- {
		if h.history[i].Timestamp.Before(t) {
			break
		}
		count++
	}
	return count
}

// Clear drops the retained history.
func (h *Handler) Clear() {
	h.mu.Lock()
	h.history = h.history[:0]
	h.mu.Unlock()
}

// HasPredictor reports whether a Predictor is bound.
func (h *Handler) HasPredictor() bool {
	return h.predictor != nil
}

// Predictor returns the bound Predictor, or nil.
func (h *Handler) Predictor() Predictor {
	return h.predictor
}
