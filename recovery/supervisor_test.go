package recovery

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Mlaiel/Railia-sub006/fault"
	"github.com/Mlaiel/Railia-sub006/health"
)

type testRegion struct {
	name          string
	constructs    atomic.Int32
	teardowns     atomic.Int32
	failConstruct atomic.Bool
}

func (r *testRegion) Name() string { return r.name }

func (r *testRegion) Construct(ctx context.Context) error {
	r.constructs.Add(1)
	if r.failConstruct.Load() {
		return errors.New("construct failed")
	}
	return nil
}

func (r *testRegion) Teardown(ctx context.Context) error {
	r.teardowns.Add(1)
	return nil
}

func quietHandler(opts ...fault.HandlerOption) *fault.Handler {
	opts = append([]fault.HandlerOption{
		fault.WithNotifier(fault.NotifierFunc(func(context.Context, fault.Notice) {})),
	}, opts...)
	return fault.NewHandler(fault.Config{}, opts...)
}

func newTestSupervisor(t *testing.T, region Region, cfg Config, opts ...Option) *Supervisor {
	t.Helper()
	opts = append([]Option{WithHandler(quietHandler())}, opts...)
	s, err := NewSupervisor(region, cfg, opts...)
	if err != nil {
		t.Fatalf("NewSupervisor() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close(context.Background()) })
	return s
}

func fastConfig(tier Tier, maxRetries int) Config {
	return Config{Tier: tier, MaxRetries: maxRetries, RecoveryDelay: 5 * time.Millisecond}
}

func waitForState(t *testing.T, s *Supervisor, want State) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for s.State() != want {
		if time.Now().After(deadline) {
			t.Fatalf("state = %s, want %s", s.State(), want)
		}
		time.Sleep(time.Millisecond)
	}
}

var errRegion = errors.New("region exploded")

func failGuard(t *testing.T, s *Supervisor) error {
	t.Helper()
	err := s.Guard(context.Background(), func(ctx context.Context) error { return errRegion })
	if err == nil {
		t.Fatal("Guard() should return the failure")
	}
	return err
}

func TestNewSupervisor_Validation(t *testing.T) {
	if _, err := NewSupervisor(nil, DefaultConfig()); !errors.Is(err, ErrNilRegion) {
		t.Errorf("nil region error = %v, want ErrNilRegion", err)
	}

	tests := []struct {
		name string
		cfg  Config
	}{
		{"bad tier", Config{Tier: Tier(9)}},
		{"negative retries", Config{MaxRetries: -1}},
		{"negative delay", Config{RecoveryDelay: -time.Second}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewSupervisor(&testRegion{name: "r"}, tt.cfg); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("error = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestSupervisor_GuardSuccess(t *testing.T) {
	region := &testRegion{name: "map"}
	s := newTestSupervisor(t, region, fastConfig(TierModule, 3))

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	ran := false
	if err := s.Guard(context.Background(), func(ctx context.Context) error {
		ran = true
		return nil
	}); err != nil {
		t.Fatalf("Guard() error = %v", err)
	}
	if !ran || s.State() != StateStable {
		t.Errorf("ran=%v state=%s, want ran and stable", ran, s.State())
	}
	if region.constructs.Load() != 1 {
		t.Errorf("constructs = %d, want 1", region.constructs.Load())
	}
}

func TestSupervisor_FailureClassified(t *testing.T) {
	handler := quietHandler()
	s := newTestSupervisor(t, &testRegion{name: "drone-panel"}, Config{Tier: TierComponent, MaxRetries: 1, RecoveryDelay: time.Hour},
		WithHandler(handler), WithKind(fault.KindDroneOperation))

	err := failGuard(t, s)

	fe, ok := fault.As(err)
	if !ok {
		t.Fatalf("Guard() error = %v, want *fault.Error", err)
	}
	if fe.Kind != fault.KindDroneOperation || fe.Severity != fault.SeverityMedium || fe.Component != "drone-panel" {
		t.Errorf("fault = %s/%s/%s", fe.Kind, fe.Severity, fe.Component)
	}
	if !errors.Is(err, errRegion) {
		t.Error("classified error should unwrap to the region failure")
	}

	snap := s.Snapshot()
	if snap.State != StateFailed || snap.Incident == nil || snap.Incident.RetryCount != 0 {
		t.Errorf("snapshot = %+v, want failed with incident at retry 0", snap)
	}
	if !snap.RecoveryPending || snap.Terminal {
		t.Errorf("pending=%v terminal=%v, want recovery pending", snap.RecoveryPending, snap.Terminal)
	}
	if handler.Metrics().TotalErrors != 1 {
		t.Errorf("TotalErrors = %d, want 1", handler.Metrics().TotalErrors)
	}
}

func TestTier_Severity(t *testing.T) {
	tests := []struct {
		tier Tier
		want fault.Severity
	}{
		{TierComponent, fault.SeverityMedium},
		{TierModule, fault.SeverityHigh},
		{TierCritical, fault.SeverityCritical},
	}
	for _, tt := range tests {
		if got := tt.tier.Severity(); got != tt.want {
			t.Errorf("%s.Severity() = %s, want %s", tt.tier, got, tt.want)
		}
	}
}

// Four consecutive failures of a module region with three retries end terminal.
func TestSupervisor_ModuleBudgetExhausted(t *testing.T) {
	region := &testRegion{name: "analytics"}
	s := newTestSupervisor(t, region, fastConfig(TierModule, 3))
	_ = s.Start(context.Background())

	for i := 1; i <= 3; i++ {
		failGuard(t, s)
		waitForState(t, s, StateStable)
		if got := s.RetryCount(); got != i {
			t.Fatalf("after recovery %d: RetryCount = %d", i, got)
		}
	}

	failGuard(t, s)
	time.Sleep(30 * time.Millisecond)

	snap := s.Snapshot()
	if snap.State != StateFailed || !snap.Terminal {
		t.Fatalf("snapshot = %+v, want terminal failed", snap)
	}
	if snap.RetryCount != 3 {
		t.Errorf("RetryCount = %d, want 3", snap.RetryCount)
	}
	if snap.RecoveryPending {
		t.Error("no recovery should be scheduled from the terminal state")
	}
	if snap.Incident == nil || snap.Incident.RetryCount != 3 {
		t.Errorf("incident = %+v, want retry count 3 captured", snap.Incident)
	}
	if got := region.constructs.Load(); got != 4 {
		t.Errorf("constructs = %d, want 1 start + 3 recoveries", got)
	}
}

func TestSupervisor_RecoveryBound(t *testing.T) {
	for _, m := range []int{0, 1, 2} {
		region := &testRegion{name: "r"}
		s := newTestSupervisor(t, region, fastConfig(TierComponent, m))
		_ = s.Start(context.Background())

		var recoveries atomic.Int32
		s.OnStateChange(func(tr Transition) {
			if tr.To == StateRecovering {
				recoveries.Add(1)
			}
		})

		for i := 0; i < m; i++ {
			failGuard(t, s)
			waitForState(t, s, StateStable)
		}
		failGuard(t, s)
		time.Sleep(30 * time.Millisecond)

		if s.State() != StateFailed || !s.Snapshot().Terminal {
			t.Errorf("m=%d: failure %d should be terminal", m, m+1)
		}
		if int(recoveries.Load()) != m {
			t.Errorf("m=%d: automatic recoveries = %d", m, recoveries.Load())
		}
	}
}

func TestSupervisor_CriticalTierNeverAutoRecovers(t *testing.T) {
	s := newTestSupervisor(t, &testRegion{name: "signalling"}, fastConfig(TierCritical, 10))
	_ = s.Start(context.Background())

	err := failGuard(t, s)
	if fe, _ := fault.As(err); fe == nil || fe.Severity != fault.SeverityCritical {
		t.Errorf("critical tier should report critical severity, got %v", err)
	}

	time.Sleep(30 * time.Millisecond)
	snap := s.Snapshot()
	if snap.State != StateFailed || !snap.Terminal || snap.RecoveryPending || snap.RetryCount != 0 {
		t.Errorf("snapshot = %+v, want terminal with untouched budget", snap)
	}
}

func TestSupervisor_CriticalSeverityNeverAutoRecovers(t *testing.T) {
	handler := quietHandler()
	s := newTestSupervisor(t, &testRegion{name: "camera-grid"}, fastConfig(TierComponent, 10), WithHandler(handler))
	_ = s.Start(context.Background())

	critical := handler.Handle(context.Background(), errors.New("power loss"), fault.KindCriticalSystem, "camera-grid")
	_ = s.Guard(context.Background(), func(ctx context.Context) error { return critical })

	time.Sleep(30 * time.Millisecond)
	snap := s.Snapshot()
	if snap.State != StateFailed || !snap.Terminal {
		t.Errorf("snapshot = %+v, critical severity must be terminal", snap)
	}
}

func TestSupervisor_GuardRejectsWhenNotStable(t *testing.T) {
	s := newTestSupervisor(t, &testRegion{name: "r"}, Config{Tier: TierModule, MaxRetries: 3, RecoveryDelay: time.Hour})
	_ = s.Start(context.Background())
	failGuard(t, s)

	ran := false
	err := s.Guard(context.Background(), func(ctx context.Context) error {
		ran = true
		return nil
	})
	if !errors.Is(err, ErrRegionUnavailable) || ran {
		t.Errorf("Guard() error = %v ran = %v, want ErrRegionUnavailable without running", err, ran)
	}
}

func TestSupervisor_SecondFailureWhileFailedOnlyReported(t *testing.T) {
	handler := quietHandler()
	s := newTestSupervisor(t, &testRegion{name: "r"}, Config{Tier: TierModule, MaxRetries: 3, RecoveryDelay: time.Hour}, WithHandler(handler))
	_ = s.Start(context.Background())

	failGuard(t, s)
	first := s.Snapshot().Incident

	s.Fail(context.Background(), errors.New("late background failure"))

	if s.Snapshot().Incident.Error.ID != first.Error.ID {
		t.Error("incident should keep the original failure")
	}
	if handler.Metrics().TotalErrors != 2 {
		t.Errorf("TotalErrors = %d, want both failures reported", handler.Metrics().TotalErrors)
	}
}

func TestSupervisor_PanicInRegion(t *testing.T) {
	s := newTestSupervisor(t, &testRegion{name: "r"}, Config{Tier: TierModule, MaxRetries: 1, RecoveryDelay: time.Hour})
	_ = s.Start(context.Background())

	err := s.Guard(context.Background(), func(ctx context.Context) error { panic("nil pointer") })
	if !errors.Is(err, ErrRegionPanic) {
		t.Errorf("Guard() error = %v, want ErrRegionPanic", err)
	}
	if s.State() != StateFailed {
		t.Errorf("state = %s, want failed", s.State())
	}
}

func TestSupervisor_RetryNowCancelsScheduled(t *testing.T) {
	region := &testRegion{name: "r"}
	s := newTestSupervisor(t, region, Config{Tier: TierModule, MaxRetries: 3, RecoveryDelay: 50 * time.Millisecond})
	_ = s.Start(context.Background())
	failGuard(t, s)

	if err := s.RetryNow(context.Background()); err != nil {
		t.Fatalf("RetryNow() error = %v", err)
	}
	if s.State() != StateStable || s.RetryCount() != 1 {
		t.Fatalf("state=%s rc=%d, want stable with 1 retry", s.State(), s.RetryCount())
	}

	// The cancelled timer must not fire a duplicate recovery.
	time.Sleep(100 * time.Millisecond)
	if s.RetryCount() != 1 || region.constructs.Load() != 2 {
		t.Errorf("rc=%d constructs=%d, stale timer fired", s.RetryCount(), region.constructs.Load())
	}
}

func TestSupervisor_RetryNowErrors(t *testing.T) {
	s := newTestSupervisor(t, &testRegion{name: "r"}, fastConfig(TierModule, 3))
	_ = s.Start(context.Background())

	if err := s.RetryNow(context.Background()); !errors.Is(err, ErrNotFailed) {
		t.Errorf("RetryNow() on stable = %v, want ErrNotFailed", err)
	}

	_ = s.Close(context.Background())
	if err := s.RetryNow(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("RetryNow() after Close = %v, want ErrClosed", err)
	}
}

func TestSupervisor_RetryNowFromTerminal(t *testing.T) {
	s := newTestSupervisor(t, &testRegion{name: "r"}, fastConfig(TierCritical, 0))
	_ = s.Start(context.Background())
	failGuard(t, s)

	if err := s.RetryNow(context.Background()); err != nil {
		t.Fatalf("RetryNow() error = %v", err)
	}
	if s.State() != StateStable || s.RetryCount() != 1 {
		t.Errorf("state=%s rc=%d", s.State(), s.RetryCount())
	}
}

func TestSupervisor_ResetKeepsRetryCount(t *testing.T) {
	region := &testRegion{name: "r"}
	s := newTestSupervisor(t, region, fastConfig(TierModule, 1))
	_ = s.Start(context.Background())

	failGuard(t, s)
	waitForState(t, s, StateStable)
	failGuard(t, s)
	time.Sleep(20 * time.Millisecond)
	if !s.Snapshot().Terminal {
		t.Fatal("second failure should be terminal")
	}

	if err := s.Reset(context.Background()); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}
	snap := s.Snapshot()
	if snap.State != StateStable || snap.Incident != nil {
		t.Errorf("snapshot = %+v, want stable without incident", snap)
	}
	if snap.RetryCount != 1 {
		t.Errorf("RetryCount = %d, Reset must not restore the budget", snap.RetryCount)
	}

	// The budget is still spent, so the next failure is terminal again.
	failGuard(t, s)
	time.Sleep(20 * time.Millisecond)
	if !s.Snapshot().Terminal {
		t.Error("failure after Reset should still respect the spent budget")
	}
}

func TestSupervisor_FailureDuringRecovery(t *testing.T) {
	region := &testRegion{name: "r"}
	s := newTestSupervisor(t, region, fastConfig(TierModule, 2))
	_ = s.Start(context.Background())

	region.failConstruct.Store(true)
	failGuard(t, s)

	deadline := time.Now().Add(2 * time.Second)
	for !s.Snapshot().Terminal {
		if time.Now().After(deadline) {
			t.Fatalf("snapshot = %+v, never became terminal", s.Snapshot())
		}
		time.Sleep(time.Millisecond)
	}

	snap := s.Snapshot()
	if snap.State != StateFailed || snap.RetryCount != 2 {
		t.Errorf("snapshot = %+v, want failed with retry count 2", snap)
	}
	if snap.Incident == nil || snap.Incident.RetryCount != 2 {
		t.Errorf("incident = %+v, want the construct failure at retry 2", snap.Incident)
	}
	if got := region.constructs.Load(); got != 3 {
		t.Errorf("constructs = %d, want start + 2 failed rebuilds", got)
	}
}

func TestSupervisor_StartFailure(t *testing.T) {
	region := &testRegion{name: "r"}
	region.failConstruct.Store(true)
	s := newTestSupervisor(t, region, Config{Tier: TierModule, MaxRetries: 1, RecoveryDelay: time.Hour})

	err := s.Start(context.Background())
	if _, ok := fault.As(err); !ok {
		t.Fatalf("Start() error = %v, want classified failure", err)
	}
	if s.State() != StateFailed {
		t.Errorf("state = %s, want failed", s.State())
	}
}

func TestSupervisor_Transitions(t *testing.T) {
	s := newTestSupervisor(t, &testRegion{name: "r"}, Config{Tier: TierModule, MaxRetries: 3, RecoveryDelay: time.Hour})
	_ = s.Start(context.Background())

	var mu sync.Mutex
	var got []Transition
	s.OnStateChange(func(tr Transition) {
		mu.Lock()
		got = append(got, tr)
		mu.Unlock()
	})
	s.OnStateChange(func(Transition) { panic("hook bug") })

	failGuard(t, s)
	_ = s.RetryNow(context.Background())

	mu.Lock()
	defer mu.Unlock()
	want := []struct{ from, to State }{
		{StateStable, StateFailed},
		{StateFailed, StateRecovering},
		{StateRecovering, StateStable},
	}
	if len(got) != len(want) {
		t.Fatalf("transitions = %+v", got)
	}
	for i, w := range want {
		if got[i].From != w.from || got[i].To != w.to || got[i].Region != "r" {
			t.Errorf("transition[%d] = %s->%s, want %s->%s", i, got[i].From, got[i].To, w.from, w.to)
		}
	}
}

func TestSupervisor_CloseCancelsRecovery(t *testing.T) {
	region := &testRegion{name: "r"}
	s := newTestSupervisor(t, region, Config{Tier: TierModule, MaxRetries: 3, RecoveryDelay: 20 * time.Millisecond})
	_ = s.Start(context.Background())
	failGuard(t, s)

	if err := s.Close(context.Background()); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	time.Sleep(50 * time.Millisecond)

	if s.RetryCount() != 0 || region.constructs.Load() != 1 {
		t.Errorf("rc=%d constructs=%d, recovery ran after Close", s.RetryCount(), region.constructs.Load())
	}
	if region.teardowns.Load() != 1 {
		t.Errorf("teardowns = %d, want 1", region.teardowns.Load())
	}
	if err := s.Guard(context.Background(), func(context.Context) error { return nil }); !errors.Is(err, ErrClosed) {
		t.Errorf("Guard() after Close = %v, want ErrClosed", err)
	}
}

type slowPredictor struct {
	delay  time.Duration
	events atomic.Int32
}

func (p *slowPredictor) PredictFailures(ctx context.Context) ([]fault.Prediction, error) {
	select {
	case <-time.After(p.delay):
		return []fault.Prediction{{Component: "r", Kind: fault.KindSensorData, Probability: 0.7}}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *slowPredictor) AddErrorEvent(*fault.Error) { p.events.Add(1) }

func TestSupervisor_PredictorAnnotatesWithoutBlocking(t *testing.T) {
	pred := &slowPredictor{delay: 40 * time.Millisecond}
	handler := quietHandler(fault.WithPredictor(pred))
	s := newTestSupervisor(t, &testRegion{name: "r"}, Config{Tier: TierModule, MaxRetries: 3, RecoveryDelay: time.Hour}, WithHandler(handler))
	_ = s.Start(context.Background())

	start := time.Now()
	failGuard(t, s)
	if elapsed := time.Since(start); elapsed >= pred.delay {
		t.Errorf("Guard() took %v, predictor must not block the failure path", elapsed)
	}
	if len(s.Snapshot().Incident.Predictions) != 0 {
		t.Error("predictions should arrive asynchronously")
	}

	deadline := time.Now().Add(2 * time.Second)
	for len(s.Snapshot().Incident.Predictions) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("predictions never attached")
		}
		time.Sleep(time.Millisecond)
	}
	handler.Wait()
	if pred.events.Load() != 1 {
		t.Errorf("AddErrorEvent calls = %d, want 1", pred.events.Load())
	}
}

type stallingPredictor struct {
	delay time.Duration
}

func (p stallingPredictor) PredictFailures(context.Context) ([]fault.Prediction, error) {
	return nil, nil
}

func (p stallingPredictor) AddErrorEvent(*fault.Error) { time.Sleep(p.delay) }

func TestSupervisor_SlowErrorEventDoesNotDelayFailure(t *testing.T) {
	pred := stallingPredictor{delay: 500 * time.Millisecond}
	handler := quietHandler(fault.WithPredictor(pred))
	s := newTestSupervisor(t, &testRegion{name: "r"}, Config{Tier: TierModule, MaxRetries: 3, RecoveryDelay: time.Hour}, WithHandler(handler))
	_ = s.Start(context.Background())

	start := time.Now()
	failGuard(t, s)
	if elapsed := time.Since(start); elapsed >= pred.delay {
		t.Errorf("Guard() took %v, error forwarding must not delay the failure", elapsed)
	}
	if s.State() != StateFailed {
		t.Errorf("State() = %s right after the failure, want failed", s.State())
	}
	handler.Wait()
}

func TestSupervisor_PredictorTimeoutRecorded(t *testing.T) {
	pred := &slowPredictor{delay: time.Hour}
	handler := quietHandler(fault.WithPredictor(pred))
	s := newTestSupervisor(t, &testRegion{name: "r"},
		Config{Tier: TierModule, MaxRetries: 3, RecoveryDelay: time.Hour, PredictTimeout: 10 * time.Millisecond},
		WithHandler(handler))
	_ = s.Start(context.Background())
	failGuard(t, s)

	deadline := time.Now().Add(2 * time.Second)
	for s.Snapshot().Incident.PredictErr == "" {
		if time.Now().After(deadline) {
			t.Fatal("predictor timeout never recorded")
		}
		time.Sleep(time.Millisecond)
	}
	if s.State() != StateFailed || !s.Snapshot().RecoveryPending {
		t.Error("predictor failure must not alter the state machine")
	}
}

func TestSupervisor_Check(t *testing.T) {
	s := newTestSupervisor(t, &testRegion{name: "r"}, Config{Tier: TierModule, MaxRetries: 0, RecoveryDelay: time.Hour})
	_ = s.Start(context.Background())

	if got := s.Check(context.Background()); got.Status != health.StatusHealthy {
		t.Errorf("stable Check() = %s, want healthy", got.Status)
	}

	failGuard(t, s)
	got := s.Check(context.Background())
	if got.Status != health.StatusUnhealthy || got.Error == nil {
		t.Errorf("failed Check() = %+v, want unhealthy with error", got)
	}
	if got.Message != "failed; manual action required" {
		t.Errorf("Message = %q", got.Message)
	}
	if got.Details["error_id"] == nil {
		t.Error("details should carry the error id")
	}
}
