package diagnostics

import (
	"context"
	"os"
	"runtime"
	"sort"
	"time"

	"github.com/Mlaiel/Railia-sub006/cache"
	"github.com/Mlaiel/Railia-sub006/fault"
	"github.com/Mlaiel/Railia-sub006/health"
	"github.com/Mlaiel/Railia-sub006/recovery"
)

// Sources names what a report is built from. Nil members are omitted.
type Sources struct {
	Service   string
	Version   string
	StartedAt time.Time

	Handler *fault.Handler
	Health  *health.Aggregator
	Regions *recovery.Registry
	Cache   *cache.MemoryCache

	// RecentErrors caps Errors.Recent. Default: 10
	RecentErrors int
}

// Report is one diagnostic export.
type Report struct {
	GeneratedAt time.Time     `json:"generated_at" yaml:"generated_at"`
	Environment Environment   `json:"environment" yaml:"environment"`
	Errors      *ErrorMetrics `json:"errors,omitempty" yaml:"errors,omitempty"`
	Health      *HealthView   `json:"health,omitempty" yaml:"health,omitempty"`
	Regions     []RegionView  `json:"regions,omitempty" yaml:"regions,omitempty"`
	Cache       *CacheView    `json:"cache,omitempty" yaml:"cache,omitempty"`
}

// CacheView is the response cache occupancy and hit rate.
type CacheView struct {
	Entries int     `json:"entries" yaml:"entries"`
	Hits    int64   `json:"hits" yaml:"hits"`
	Misses  int64   `json:"misses" yaml:"misses"`
	HitRate float64 `json:"hit_rate" yaml:"hit_rate"`
}

// Environment describes the running process.
type Environment struct {
	Service    string    `json:"service" yaml:"service"`
	Version    string    `json:"version" yaml:"version"`
	GoVersion  string    `json:"go_version" yaml:"go_version"`
	OS         string    `json:"os" yaml:"os"`
	Arch       string    `json:"arch" yaml:"arch"`
	Hostname   string    `json:"hostname,omitempty" yaml:"hostname,omitempty"`
	PID        int       `json:"pid" yaml:"pid"`
	Goroutines int       `json:"goroutines" yaml:"goroutines"`
	StartedAt  time.Time `json:"started_at,omitzero" yaml:"started_at,omitempty"`
	Uptime     string    `json:"uptime,omitempty" yaml:"uptime,omitempty"`
}

// ErrorMetrics is the fault handler's aggregate view.
type ErrorMetrics struct {
	Total      int            `json:"total" yaml:"total"`
	ByKind     map[string]int `json:"by_kind" yaml:"by_kind"`
	BySeverity map[string]int `json:"by_severity" yaml:"by_severity"`
	Recent     []ErrorView    `json:"recent" yaml:"recent"`
}

// ErrorView is one classified error.
type ErrorView struct {
	ID        string    `json:"id" yaml:"id"`
	Kind      string    `json:"kind" yaml:"kind"`
	Severity  string    `json:"severity" yaml:"severity"`
	Component string    `json:"component" yaml:"component"`
	Message   string    `json:"message" yaml:"message"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
}

// HealthView is the aggregate health at report time.
type HealthView struct {
	Status string                          `json:"status" yaml:"status"`
	Checks map[string]health.CheckResponse `json:"checks,omitempty" yaml:"checks,omitempty"`
}

// RegionView is one supervisor snapshot.
type RegionView struct {
	Region          string        `json:"region" yaml:"region"`
	Tier            string        `json:"tier" yaml:"tier"`
	State           string        `json:"state" yaml:"state"`
	RetryCount      int           `json:"retry_count" yaml:"retry_count"`
	MaxRetries      int           `json:"max_retries" yaml:"max_retries"`
	Terminal        bool          `json:"terminal" yaml:"terminal"`
	RecoveryPending bool          `json:"recovery_pending" yaml:"recovery_pending"`
	Incident        *IncidentView `json:"incident,omitempty" yaml:"incident,omitempty"`
}

// IncidentView is the last failure of a region.
type IncidentView struct {
	At          time.Time        `json:"at" yaml:"at"`
	RetryCount  int              `json:"retry_count" yaml:"retry_count"`
	Error       *ErrorView       `json:"error,omitempty" yaml:"error,omitempty"`
	Predictions []PredictionView `json:"predictions,omitempty" yaml:"predictions,omitempty"`
	PredictErr  string           `json:"predict_error,omitempty" yaml:"predict_error,omitempty"`
}

// PredictionView is one predictor annotation.
type PredictionView struct {
	Component   string  `json:"component" yaml:"component"`
	Kind        string  `json:"kind" yaml:"kind"`
	Probability float64 `json:"probability" yaml:"probability"`
	Horizon     string  `json:"horizon" yaml:"horizon"`
	Reason      string  `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// Build assembles a report. Health checks run under ctx.
func Build(ctx context.Context, src Sources) Report {
	now := time.Now()
	report := Report{
		GeneratedAt: now.UTC(),
		Environment: environment(src, now),
	}

	if src.Handler != nil {
		report.Errors = errorMetrics(src.Handler, src.RecentErrors)
	}
	if src.Health != nil {
		hr := health.NewHealthResponse(src.Health.Run(ctx))
		report.Health = &HealthView{Status: hr.Status, Checks: hr.Checks}
	}
	if src.Regions != nil {
		for _, snap := range src.Regions.Snapshots() {
			report.Regions = append(report.Regions, regionView(snap))
		}
	}
	if src.Cache != nil {
		report.Cache = cacheView(src.Cache.Stats())
	}
	return report
}

func cacheView(st cache.Stats) *CacheView {
	v := &CacheView{Entries: st.Entries, Hits: st.Hits, Misses: st.Misses}
	if total := st.Hits + st.Misses; total > 0 {
		v.HitRate = float64(st.Hits) / float64(total)
	}
	return v
}

func environment(src Sources, now time.Time) Environment {
	env := Environment{
		Service:    src.Service,
		Version:    src.Version,
		GoVersion:  runtime.Version(),
		OS:         runtime.GOOS,
		Arch:       runtime.GOARCH,
		PID:        os.Getpid(),
		Goroutines: runtime.NumGoroutine(),
	}
	if host, err := os.Hostname(); err == nil {
		env.Hostname = host
	}
	if !src.StartedAt.IsZero() {
		env.StartedAt = src.StartedAt.UTC()
		env.Uptime = now.Sub(src.StartedAt).Round(time.Second).String()
	}
	return env
}

func errorMetrics(h *fault.Handler, recent int) *ErrorMetrics {
	if recent <= 0 {
		recent = 10
	}
	snap := h.Metrics()
	m := &ErrorMetrics{
		Total:      snap.TotalErrors,
		ByKind:     make(map[string]int, len(snap.ByKind)),
		BySeverity: make(map[string]int, len(snap.BySeverity)),
		Recent:     make([]ErrorView, 0, recent),
	}
	for k, n := range snap.ByKind {
		m.ByKind[k.String()] = n
	}
	for s, n := range snap.BySeverity {
		m.BySeverity[s.String()] = n
	}
	for _, e := range h.Recent(recent) {
		m.Recent = append(m.Recent, *errorView(e))
	}
	return m
}

func errorView(e *fault.Error) *ErrorView {
	return &ErrorView{
		ID:        e.ID,
		Kind:      e.Kind.String(),
		Severity:  e.Severity.String(),
		Component: e.Component,
		Message:   e.Message,
		Timestamp: e.Timestamp.UTC(),
	}
}

func regionView(s recovery.Snapshot) RegionView {
	v := RegionView{
		Region:          s.Region,
		Tier:            s.Tier.String(),
		State:           s.State.String(),
		RetryCount:      s.RetryCount,
		MaxRetries:      s.MaxRetries,
		Terminal:        s.Terminal,
		RecoveryPending: s.RecoveryPending,
	}
	if inc := s.Incident; inc != nil {
		iv := &IncidentView{
			At:         inc.At.UTC(),
			RetryCount: inc.RetryCount,
			PredictErr: inc.PredictErr,
		}
		if inc.Error != nil {
			iv.Error = errorView(inc.Error)
		}
		for _, p := range inc.Predictions {
			iv.Predictions = append(iv.Predictions, PredictionView{
				Component:   p.Component,
				Kind:        p.Kind.String(),
				Probability: p.Probability,
				Horizon:     p.Horizon.String(),
				Reason:      p.Reason,
			})
		}
		v.Incident = iv
	}
	return v
}

// RegionNames returns the region names in the report, sorted.
func (r Report) RegionNames() []string {
	names := make([]string, 0, len(r.Regions))
	for _, reg := range r.Regions {
		names = append(names, reg.Region)
	}
	sort.Strings(names)
	return names
}
