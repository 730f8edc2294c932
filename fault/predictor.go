package fault

import (
	"context"
	"time"
)

// Prediction is one failure forecast produced by a Predictor.
type Prediction struct {
	Component   string        `json:"component" yaml:"component"`
	Kind        Kind          `json:"kind" yaml:"kind"`
	Probability float64       `json:"probability" yaml:"probability"`
	Horizon     time.Duration `json:"horizon" yaml:"horizon"`
	Reason      string        `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// Predictor is the optional failure-prediction capability. It is consumed
// only through these two methods and may be absent entirely; callers treat a
// nil Predictor as "feature not available".
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: PredictFailures should honor cancellation/deadlines.
// - Errors: failures are annotations only and never alter caller behavior.
type Predictor interface {
	PredictFailures(ctx context.Context) ([]Prediction, error)
	AddErrorEvent(e *Error)
}
