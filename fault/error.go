package fault

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Error is a classified failure. It is immutable after the Handler creates it
// and may be shared freely between the history, notices and supervisors.
type Error struct {
	ID        string
	Kind      Kind
	Severity  Severity
	Message   string
	Component string
	Timestamp time.Time
	Cause     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("[%s/%s] %s: %s", e.Kind, e.Severity, e.Component, e.Message)
}

// Unwrap returns the raw cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// ShortID returns the first eight characters of the id, used as the
// correlation suffix on notices.
func (e *Error) ShortID() string {
	if len(e.ID) > 8 {
		return e.ID[:8]
	}
	return e.ID
}

// MarshalJSON renders the error for upstream reports and diagnostics.
func (e *Error) MarshalJSON() ([]byte, error) {
	cause := ""
	if e.Cause != nil {
		cause = e.Cause.Error()
	}
	return json.Marshal(struct {
		ID        string    `json:"id"`
		Kind      Kind      `json:"kind"`
		Severity  Severity  `json:"severity"`
		Message   string    `json:"message"`
		Component string    `json:"component"`
		Timestamp time.Time `json:"timestamp"`
		Cause     string    `json:"cause,omitempty"`
	}{
		ID:        e.ID,
		Kind:      e.Kind,
		Severity:  e.Severity,
		Message:   e.Message,
		Component: e.Component,
		Timestamp: e.Timestamp,
		Cause:     cause,
	})
}

// As returns the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var fe *Error
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}
