package fault

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestKind_StringAndParse(t *testing.T) {
	for _, k := range Kinds() {
		parsed, err := ParseKind(k.String())
		if err != nil {
			t.Fatalf("ParseKind(%q) error = %v", k, err)
		}
		if parsed != k {
			t.Errorf("ParseKind(%q) = %v, want %v", k, parsed, k)
		}
	}

	if k, err := ParseKind("Weather-API"); err != nil || k != KindWeatherAPI {
		t.Errorf("ParseKind(Weather-API) = %v, %v", k, err)
	}
	if _, err := ParseKind("plumbing"); !errors.Is(err, ErrUnknownKind) {
		t.Errorf("ParseKind(plumbing) error = %v, want ErrUnknownKind", err)
	}
	if Kind(42).String() != "unknown" {
		t.Errorf("Kind(42).String() = %q", Kind(42).String())
	}
}

func TestKind_Family(t *testing.T) {
	if KindTimeout.Family() != KindNetwork {
		t.Errorf("timeout family = %v, want network", KindTimeout.Family())
	}
	if KindSensorData.Family() != KindSensorData {
		t.Errorf("sensor family = %v", KindSensorData.Family())
	}
}

func TestKind_DefaultSeverity(t *testing.T) {
	tests := map[Kind]Severity{
		KindNetwork:        SeverityMedium,
		KindTimeout:        SeverityMedium,
		KindAIProcessing:   SeverityHigh,
		KindWeatherAPI:     SeverityLow,
		KindSensorData:     SeverityLow,
		KindCameraSystem:   SeverityMedium,
		KindDroneOperation: SeverityHigh,
		KindCriticalSystem: SeverityCritical,
		KindValidation:     SeverityLow,
	}
	for k, want := range tests {
		if got := k.DefaultSeverity(); got != want {
			t.Errorf("%v.DefaultSeverity() = %v, want %v", k, got, want)
		}
	}
}

func TestSeverity_Ordering(t *testing.T) {
	sev := Severities()
	for i := 1; i < len(sev); i++ {
		if sev[i-1] >= sev[i] {
			t.Fatalf("severities not ordered: %v", sev)
		}
	}
	if SeverityLow.Notifies() || !SeverityMedium.Notifies() {
		t.Error("notice threshold should be medium")
	}
	if SeverityMedium.Escalates() || !SeverityHigh.Escalates() {
		t.Error("escalation threshold should be high")
	}
}

func TestSeverity_TextRoundTrip(t *testing.T) {
	data, err := json.Marshal(map[string]Severity{"s": SeverityHigh})
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"s":"high"}` {
		t.Errorf("marshal = %s", data)
	}

	var out map[string]Severity
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatal(err)
	}
	if out["s"] != SeverityHigh {
		t.Errorf("unmarshal = %v", out["s"])
	}
	if _, err := ParseSeverity("fatal"); !errors.Is(err, ErrUnknownSeverity) {
		t.Errorf("ParseSeverity(fatal) error = %v", err)
	}
}
