package recovery

import (
	"fmt"
	"strings"
	"time"

	"github.com/Mlaiel/Railia-sub006/fault"
)

// State is the supervisor's position in the recovery state machine.
type State int

const (
	StateStable State = iota
	StateFailed
	StateRecovering
)

// String returns the lowercase name of the state.
func (s State) String() string {
	switch s {
	case StateStable:
		return "stable"
	case StateFailed:
		return "failed"
	case StateRecovering:
		return "recovering"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Tier is the criticality of a guarded region. It sets the severity of the
// region's failures and whether it may auto-recover.
type Tier int

const (
	TierComponent Tier = iota
	TierModule
	TierCritical
)

// String returns the lowercase name of the tier.
func (t Tier) String() string {
	switch t {
	case TierComponent:
		return "component"
	case TierModule:
		return "module"
	case TierCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// Severity maps the tier to the severity its failures are reported with.
func (t Tier) Severity() fault.Severity {
	switch t {
	case TierCritical:
		return fault.SeverityCritical
	case TierModule:
		return fault.SeverityHigh
	default:
		return fault.SeverityMedium
	}
}

// MarshalText implements encoding.TextMarshaler.
func (t Tier) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Tier) UnmarshalText(text []byte) error {
	parsed, err := ParseTier(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ParseTier parses a tier name, ignoring case.
func ParseTier(s string) (Tier, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "component":
		return TierComponent, nil
	case "module":
		return TierModule, nil
	case "critical":
		return TierCritical, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownTier, s)
}

// Incident is the context captured when a region fails.
type Incident struct {
	Region     string    `json:"region" yaml:"region"`
	RetryCount int       `json:"retry_count" yaml:"retry_count"`
	At         time.Time `json:"at" yaml:"at"`

	Error *fault.Error `json:"error" yaml:"-"`

	// Predictions are best-effort annotations from the bound Predictor.
	Predictions []fault.Prediction `json:"predictions,omitempty" yaml:"predictions,omitempty"`
	PredictErr  string             `json:"predict_error,omitempty" yaml:"predict_error,omitempty"`
}

// Transition describes one state change.
type Transition struct {
	Region     string
	From       State
	To         State
	RetryCount int
	At         time.Time
}

// Snapshot is a point-in-time view of a supervisor.
type Snapshot struct {
	Region          string    `json:"region"`
	Tier            Tier      `json:"tier"`
	State           State     `json:"state"`
	RetryCount      int       `json:"retry_count"`
	MaxRetries      int       `json:"max_retries"`
	Terminal        bool      `json:"terminal"`
	RecoveryPending bool      `json:"recovery_pending"`
	Incident        *Incident `json:"incident,omitempty"`
}
