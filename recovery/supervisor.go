package recovery

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Mlaiel/Railia-sub006/fault"
	"github.com/Mlaiel/Railia-sub006/observe"
)

// Config configures a Supervisor.
type Config struct {
	// Tier sets the severity of failures and whether auto-recovery is allowed.
	Tier Tier

	// MaxRetries bounds automatic recoveries over the supervisor's lifetime.
	// Zero disables automatic recovery.
	MaxRetries int

	// RecoveryDelay is the wait between entering Failed and recovering.
	RecoveryDelay time.Duration

	// OperationTimeout bounds each Construct and Teardown call.
	// Default: 30 seconds
	OperationTimeout time.Duration

	// PredictTimeout bounds the background predictor query.
	// Default: 2 seconds
	PredictTimeout time.Duration
}

// DefaultConfig returns the configuration used for module regions.
func DefaultConfig() Config {
	return Config{
		Tier:             TierModule,
		MaxRetries:       3,
		RecoveryDelay:    2 * time.Second,
		OperationTimeout: 30 * time.Second,
		PredictTimeout:   2 * time.Second,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	switch {
	case c.Tier < TierComponent || c.Tier > TierCritical:
		return fmt.Errorf("%w: tier %d", ErrInvalidConfig, c.Tier)
	case c.MaxRetries < 0:
		return fmt.Errorf("%w: max retries must not be negative", ErrInvalidConfig)
	case c.RecoveryDelay < 0:
		return fmt.Errorf("%w: recovery delay must not be negative", ErrInvalidConfig)
	}
	return nil
}

// Supervisor isolates one Region and drives its recovery state machine.
type Supervisor struct {
	region  Region
	config  Config
	kind    fault.Kind
	handler *fault.Handler
	inst    observe.Instrumentation
	now     func() time.Time

	base   context.Context
	cancel context.CancelFunc

	// runMu serializes Construct and Teardown.
	runMu sync.Mutex

	mu         sync.Mutex
	state      State
	retryCount int
	incident   *Incident
	gen        uint64
	timer      *time.Timer
	closed     bool
	hooks      []func(Transition)
}

// Option configures a Supervisor.
type Option func(*Supervisor)

// WithHandler sets the fault handler used to classify failures.
func WithHandler(h *fault.Handler) Option {
	return func(s *Supervisor) { s.handler = h }
}

// WithKind sets the kind failures are reported under. Default: KindCriticalSystem.
func WithKind(k fault.Kind) Option {
	return func(s *Supervisor) { s.kind = k }
}

// WithInstrumentation sets logging and metrics.
func WithInstrumentation(inst observe.Instrumentation) Option {
	return func(s *Supervisor) { s.inst = inst }
}

// NewSupervisor creates a Supervisor in the Stable state. Call Start to
// construct the region.
func NewSupervisor(region Region, config Config, opts ...Option) (*Supervisor, error) {
	if region == nil {
		return nil, ErrNilRegion
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.OperationTimeout <= 0 {
		config.OperationTimeout = 30 * time.Second
	}
	if config.PredictTimeout <= 0 {
		config.PredictTimeout = 2 * time.Second
	}

	s := &Supervisor{
		region: region,
		config: config,
		kind:   fault.KindCriticalSystem,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.inst = s.inst.WithDefaults()
	if s.handler == nil {
		s.handler = fault.NewHandler(fault.Config{}, fault.WithInstrumentation(s.inst))
	}
	s.inst.Logger = s.inst.Logger.With(observe.F("region", region.Name()), observe.F("tier", config.Tier.String()))
	s.base, s.cancel = context.WithCancel(context.Background())
	return s, nil
}

// Name returns the region name.
func (s *Supervisor) Name() string {
	return s.region.Name()
}

// Start constructs the region. A construction failure is handled like any
// region failure and returned.
func (s *Supervisor) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	gen := s.gen
	s.mu.Unlock()

	s.runMu.Lock()
	err := s.call(ctx, s.region.Construct)
	s.runMu.Unlock()

	if err != nil {
		return s.fail(ctx, err, gen)
	}
	return nil
}

// Guard runs fn inside the region. A returned error or panic moves the
// supervisor to Failed; the classified *fault.Error is returned. While the
// region is not Stable, fn is not run and ErrRegionUnavailable is returned.
func (s *Supervisor) Guard(ctx context.Context, fn func(ctx context.Context) error) error {
	s.mu.Lock()
	state, closed, gen := s.state, s.closed, s.gen
	s.mu.Unlock()

	if closed {
		return ErrClosed
	}
	if state != StateStable {
		return fmt.Errorf("%w: %s is %s", ErrRegionUnavailable, s.region.Name(), state)
	}

	if err := s.call(ctx, fn); err != nil {
		return s.fail(ctx, err, gen)
	}
	return nil
}

// Fail reports a failure raised outside Guard, such as from a background
// goroutine owned by the region.
func (s *Supervisor) Fail(ctx context.Context, cause error) *fault.Error {
	var fe *fault.Error
	errors.As(s.fail(ctx, cause, 0), &fe)
	return fe
}

// fail classifies cause and, unless gen is stale, moves to Failed.
// A gen of zero always applies.
func (s *Supervisor) fail(ctx context.Context, cause error, gen uint64) error {
	if ctx == nil {
		ctx = context.Background()
	}
	fe := s.handler.Handle(ctx, cause, s.kind, s.region.Name(), fault.WithSeverity(s.config.Tier.Severity()))

	s.mu.Lock()
	if s.closed || (gen != 0 && gen != s.gen) || s.state == StateFailed {
		s.mu.Unlock()
		return fe
	}

	incident := &Incident{
		Region:     s.region.Name(),
		RetryCount: s.retryCount,
		At:         s.now(),
		Error:      fe,
	}
	s.incident = incident
	s.gen++
	s.stopTimerLocked()
	t := s.setStateLocked(StateFailed)

	auto := s.eligibleLocked()
	if auto {
		next := s.gen
		s.timer = time.AfterFunc(s.config.RecoveryDelay, func() { s.autoRecover(next) })
	}
	s.mu.Unlock()

	s.emit(ctx, t)
	if auto {
		s.inst.Logger.Info(ctx, "recovery scheduled",
			observe.F("retry_count", t.RetryCount),
			observe.F("delay_ms", s.config.RecoveryDelay.Milliseconds()),
		)
	} else {
		s.inst.Logger.Error(ctx, "region failed; manual action required",
			observe.F("retry_count", t.RetryCount),
			observe.F("error_id", fe.ID),
		)
	}
	if s.handler.HasPredictor() {
		go s.annotate(incident)
	}
	return fe
}

// eligibleLocked reports whether the current failure may auto-recover.
func (s *Supervisor) eligibleLocked() bool {
	if s.state != StateFailed || s.incident == nil {
		return false
	}
	return s.config.Tier != TierCritical &&
		s.incident.Error.Severity < fault.SeverityCritical &&
		s.retryCount < s.config.MaxRetries
}

func (s *Supervisor) autoRecover(gen uint64) {
	if err := s.recover(s.base, gen, false); err != nil && !errors.Is(err, ErrSuperseded) {
		s.inst.Logger.Warn(s.base, "automatic recovery failed", observe.F("error", err.Error()))
	}
}

// RetryNow recovers immediately, cancelling any scheduled recovery.
// It counts against the retry budget like an automatic recovery.
func (s *Supervisor) RetryNow(ctx context.Context) error {
	return s.recover(ctx, 0, true)
}

func (s *Supervisor) recover(ctx context.Context, gen uint64, manual bool) error {
	s.mu.Lock()
	switch {
	case s.closed:
		s.mu.Unlock()
		return ErrClosed
	case !manual && gen != s.gen:
		s.mu.Unlock()
		return ErrSuperseded
	case s.state == StateRecovering:
		s.mu.Unlock()
		return ErrRecoveryInProgress
	case s.state != StateFailed:
		s.mu.Unlock()
		return ErrNotFailed
	}
	s.gen++
	s.stopTimerLocked()
	s.retryCount++
	mine := s.gen
	t := s.setStateLocked(StateRecovering)
	s.mu.Unlock()

	s.emit(ctx, t)
	return s.rebuild(ctx, mine)
}

// Reset clears the failure state unconditionally and rebuilds the region.
// It cancels any scheduled recovery and does not consume retry budget.
func (s *Supervisor) Reset(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.gen++
	s.stopTimerLocked()
	s.incident = nil
	mine := s.gen
	var transitions []Transition
	if s.state != StateRecovering {
		transitions = append(transitions, s.setStateLocked(StateRecovering))
	}
	s.mu.Unlock()

	for _, t := range transitions {
		s.emit(ctx, t)
	}
	return s.rebuild(ctx, mine)
}

// rebuild tears down and constructs the region, then settles the state
// unless a newer action took over.
func (s *Supervisor) rebuild(ctx context.Context, gen uint64) error {
	s.runMu.Lock()
	if err := s.call(ctx, s.region.Teardown); err != nil {
		s.inst.Logger.Warn(ctx, "teardown failed", observe.F("error", err.Error()))
	}
	err := s.call(ctx, s.region.Construct)
	s.runMu.Unlock()

	if err != nil {
		return s.fail(ctx, err, gen)
	}

	s.mu.Lock()
	if s.closed || s.gen != gen || s.state != StateRecovering {
		s.mu.Unlock()
		return ErrSuperseded
	}
	t := s.setStateLocked(StateStable)
	s.mu.Unlock()

	s.emit(ctx, t)
	s.inst.Logger.Info(ctx, "region recovered", observe.F("retry_count", t.RetryCount))
	return nil
}

// call runs fn with the operation timeout, converting panics to errors.
func (s *Supervisor) call(ctx context.Context, fn func(context.Context) error) (err error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, s.config.OperationTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrRegionPanic, r)
		}
	}()
	return fn(ctx)
}

// annotate queries the predictor and attaches the result to incident if it
// is still current.
func (s *Supervisor) annotate(incident *Incident) {
	ctx, cancel := context.WithTimeout(s.base, s.config.PredictTimeout)
	defer cancel()

	var (
		predictions []fault.Prediction
		err         error
	)
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("predictor panicked: %v", r)
			}
		}()
		predictions, err = s.handler.Predictor().PredictFailures(ctx)
	}()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.incident != incident {
		return
	}
	annotated := *incident
	annotated.Predictions = predictions
	if err != nil {
		annotated.PredictErr = err.Error()
	}
	s.incident = &annotated
}

// Close cancels any scheduled recovery and tears the region down.
func (s *Supervisor) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.gen++
	s.stopTimerLocked()
	s.mu.Unlock()

	s.cancel()

	s.runMu.Lock()
	defer s.runMu.Unlock()
	return s.call(ctx, s.region.Teardown)
}

// OnStateChange registers fn to run after every transition. Hooks run on the
// goroutine that caused the transition; panics are recovered.
func (s *Supervisor) OnStateChange(fn func(Transition)) {
	s.mu.Lock()
	s.hooks = append(s.hooks, fn)
	s.mu.Unlock()
}

// State returns the current state.
func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// RetryCount returns the number of recoveries started so far.
func (s *Supervisor) RetryCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.retryCount
}

// Snapshot returns a point-in-time view of the supervisor.
func (s *Supervisor) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Region:          s.region.Name(),
		Tier:            s.config.Tier,
		State:           s.state,
		RetryCount:      s.retryCount,
		MaxRetries:      s.config.MaxRetries,
		Terminal:        s.state == StateFailed && !s.eligibleLocked(),
		RecoveryPending: s.timer != nil,
	}
	if s.incident != nil {
		incident := *s.incident
		snap.Incident = &incident
	}
	return snap
}

func (s *Supervisor) setStateLocked(to State) Transition {
	t := Transition{
		Region:     s.region.Name(),
		From:       s.state,
		To:         to,
		RetryCount: s.retryCount,
		At:         s.now(),
	}
	s.state = to
	return t
}

func (s *Supervisor) stopTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *Supervisor) emit(ctx context.Context, t Transition) {
	s.inst.Metrics.RecordTransition(ctx, t.Region, t.From.String(), t.To.String())
	s.inst.Logger.Debug(ctx, "state transition",
		observe.F("from", t.From.String()),
		observe.F("to", t.To.String()),
		observe.F("retry_count", t.RetryCount),
	)

	s.mu.Lock()
	hooks := make([]func(Transition), len(s.hooks))
	copy(hooks, s.hooks)
	s.mu.Unlock()

	for _, hook := range hooks {
		func() {
			defer func() {
				if r := recover(); r != nil {
					s.inst.Logger.Error(ctx, "state hook panicked", observe.F("panic", fmt.Sprint(r)))
				}
			}()
			hook(t)
		}()
	}
}
