package fault

import (
	"fmt"
	"strings"
)

// Kind tells where a failure happened. The set is closed.
type Kind int

const (
	KindNetwork Kind = iota
	KindTimeout
	KindAIProcessing
	KindWeatherAPI
	KindSensorData
	KindCameraSystem
	KindDroneOperation
	KindCriticalSystem
	KindValidation
)

var kindNames = [...]string{
	KindNetwork:        "network",
	KindTimeout:        "timeout",
	KindAIProcessing:   "ai_processing",
	KindWeatherAPI:     "weather_api",
	KindSensorData:     "sensor_data",
	KindCameraSystem:   "camera_system",
	KindDroneOperation: "drone_operation",
	KindCriticalSystem: "critical_system",
	KindValidation:     "validation",
}

// Kinds returns every kind in declaration order.
func Kinds() []Kind {
	out := make([]Kind, len(kindNames))
	for i := range kindNames {
		out[i] = Kind(i)
	}
	return out
}

// String returns the snake_case name of the kind.
func (k Kind) String() string {
	if k.Valid() {
		return kindNames[k]
	}
	return "unknown"
}

// Valid reports whether k is one of the declared kinds.
func (k Kind) Valid() bool {
	return k >= 0 && int(k) < len(kindNames)
}

// Family groups kinds for coarse reporting. Timeouts belong to the network
// family; every other kind is its own family.
func (k Kind) Family() Kind {
	if k == KindTimeout {
		return KindNetwork
	}
	return k
}

// DefaultSeverity is the severity used when the caller does not supply one.
func (k Kind) DefaultSeverity() Severity {
	switch k {
	case KindCriticalSystem:
		return SeverityCritical
	case KindAIProcessing, KindDroneOperation:
		return SeverityHigh
	case KindNetwork, KindTimeout, KindCameraSystem:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// ParseKind parses a kind name. Matching ignores case and accepts dashes in
// place of underscores.
func ParseKind(s string) (Kind, error) {
	norm := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	for i, name := range kindNames {
		if name == norm {
			return Kind(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Severity tells how bad a failure is. Severities are ordered.
type Severity int

const (
	SeverityLow Severity = iota
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

var severityNames = [...]string{
	SeverityLow:      "low",
	SeverityMedium:   "medium",
	SeverityHigh:     "high",
	SeverityCritical: "critical",
}

// Severities returns every severity from lowest to highest.
func Severities() []Severity {
	return []Severity{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}
}

// String returns the lowercase name of the severity.
func (s Severity) String() string {
	if s >= 0 && int(s) < len(severityNames) {
		return severityNames[s]
	}
	return "unknown"
}

// Notifies reports whether the severity raises a user notice.
func (s Severity) Notifies() bool { return s >= SeverityMedium }

// Escalates reports whether the severity is forwarded upstream.
func (s Severity) Escalates() bool { return s >= SeverityHigh }

// MarshalText implements encoding.TextMarshaler.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Severity) UnmarshalText(text []byte) error {
	parsed, err := ParseSeverity(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseSeverity parses a severity name, ignoring case.
func ParseSeverity(s string) (Severity, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	for i, name := range severityNames {
		if name == norm {
			return Severity(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownSeverity, s)
}
