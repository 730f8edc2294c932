package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Mlaiel/Railia-sub006/config"
	"github.com/Mlaiel/Railia-sub006/recovery"
)

// upstream serves /healthz and /forecast; setting down makes every route fail.
type upstream struct {
	down atomic.Bool
	srv  *httptest.Server
}

func newUpstream(t *testing.T) *upstream {
	t.Helper()
	u := &upstream{}
	u.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if u.down.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		switch r.URL.Path {
		case "/healthz":
			w.WriteHeader(http.StatusOK)
		default:
			fmt.Fprint(w, `{"station":"KLN"}`)
		}
	}))
	t.Cleanup(u.srv.Close)
	return u
}

func writeConfig(t *testing.T, upstreamURL string) string {
	t.Helper()
	body := fmt.Sprintf(`
service:
  name: "railia-test"
log:
  level: "error"
executor:
  timeout_ms: 1000
  retry_count: 0
services:
  weather:
    base_address: %q
    kind: "weather_api"
recovery:
  max_retries: 2
  recovery_delay_ms: 100
  regions:
    forecasting:
      tier: "module"
      service: "weather"
    signalling:
      tier: "critical"
health:
  interval_ms: 0
  timeout_ms: 1000
`, upstreamURL)
	path := filepath.Join(t.TempDir(), "railia.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func newTestApp(t *testing.T, u *upstream) *app {
	t.Helper()
	ctx := context.Background()
	cfg, err := config.Load(ctx, writeConfig(t, u.srv.URL))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	a, err := newApp(ctx, cfg, "test", io.Discard)
	if err != nil {
		t.Fatalf("newApp() error = %v", err)
	}
	t.Cleanup(func() { _ = a.close(context.Background()) })
	return a
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestNewApp_Wiring(t *testing.T) {
	a := newTestApp(t, newUpstream(t))

	if names := a.services.Names(); len(names) != 1 || names[0] != "weather" {
		t.Fatalf("services = %v", names)
	}
	if len(a.regions.Supervisors()) != 2 {
		t.Fatalf("regions = %d, want 2", len(a.regions.Supervisors()))
	}
	want := []string{"error_rate", "region:forecasting", "region:signalling", "service:weather"}
	got := a.health.CheckerNames()
	if len(got) != len(want) {
		t.Fatalf("checkers = %v, want %v", got, want)
	}
	for _, name := range want {
		if _, err := a.health.Check(context.Background(), name); err != nil {
			t.Errorf("checker %s: %v", name, err)
		}
	}
}

func TestApp_WatchdogFailsAndRecoversRegion(t *testing.T) {
	u := newUpstream(t)
	a := newTestApp(t, u)
	ctx := context.Background()

	a.start(ctx)
	sup, _ := a.regions.Get("forecasting")
	if sup.State() != recovery.StateStable {
		t.Fatalf("initial state = %s", sup.State())
	}

	u.down.Store(true)
	a.sweep(ctx)
	if sup.State() == recovery.StateStable {
		t.Fatal("region should leave Stable after a failed ping")
	}

	u.down.Store(false)
	waitFor(t, func() bool { return sup.State() == recovery.StateStable })
	if sup.RetryCount() != 1 {
		t.Errorf("RetryCount() = %d, want 1", sup.RetryCount())
	}
	if got := a.handler.Metrics().TotalErrors; got != 1 {
		t.Errorf("handler recorded %d errors, want 1", got)
	}
}

func TestApp_Mux(t *testing.T) {
	a := newTestApp(t, newUpstream(t))
	a.start(context.Background())
	mux := a.mux()

	tests := []struct {
		path     string
		wantCode int
		contains string
	}{
		{"/healthz", http.StatusOK, "OK"},
		{"/readyz", http.StatusOK, "OK"},
		{"/health", http.StatusOK, `"region:forecasting"`},
		{"/diagnostics", http.StatusOK, `"service": "railia-test"`},
		{"/diagnostics?format=yaml", http.StatusOK, "service: railia-test"},
		{"/metrics", http.StatusNotFound, ""},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d; body:\n%s", rec.Code, tt.wantCode, rec.Body.String())
			}
			if !strings.Contains(rec.Body.String(), tt.contains) {
				t.Errorf("body missing %q:\n%s", tt.contains, rec.Body.String())
			}
		})
	}
}

func TestDiagCommand(t *testing.T) {
	u := newUpstream(t)
	path := writeConfig(t, u.srv.URL)

	var out bytes.Buffer
	cmd := newRootCommand("test", "abc123")
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{"diag", "--config", path, "--format", "json"})
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("diag error = %v", err)
	}

	var report struct {
		Environment struct {
			Service string `json:"service"`
			Version string `json:"version"`
		} `json:"environment"`
		Health struct {
			Status string `json:"status"`
		} `json:"health"`
		Regions []struct {
			Region string `json:"region"`
			State  string `json:"state"`
		} `json:"regions"`
	}
	if err := json.Unmarshal(out.Bytes(), &report); err != nil {
		t.Fatalf("invalid JSON output: %v\n%s", err, out.String())
	}
	if report.Environment.Service != "railia-test" || report.Environment.Version != "test" {
		t.Errorf("environment = %+v", report.Environment)
	}
	if report.Health.Status != "healthy" {
		t.Errorf("health = %q, want healthy", report.Health.Status)
	}
	if len(report.Regions) != 2 || report.Regions[0].State != "stable" {
		t.Errorf("regions = %+v", report.Regions)
	}
}

func TestDiagCommand_BadFormat(t *testing.T) {
	cmd := newRootCommand("test", "abc123")
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{"diag", "--format", "xml"})
	if err := cmd.ExecuteContext(context.Background()); err == nil {
		t.Fatal("diag --format xml should fail")
	}
}
