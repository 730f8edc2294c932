package recovery

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/Mlaiel/Railia-sub006/health"
)

// Registry tracks the supervisors of a process by region name.
type Registry struct {
	mu          sync.RWMutex
	supervisors map[string]*Supervisor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{supervisors: make(map[string]*Supervisor)}
}

// Register adds s. Region names must be unique.
func (r *Registry) Register(s *Supervisor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := s.Name()
	if _, exists := r.supervisors[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateRegion, name)
	}
	r.supervisors[name] = s
	return nil
}

// Get returns the supervisor for a region.
func (r *Registry) Get(name string) (*Supervisor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.supervisors[name]
	return s, ok
}

// Supervisors returns every supervisor ordered by region name.
func (r *Registry) Supervisors() []*Supervisor {
	r.mu.RLock()
	out := make([]*Supervisor, 0, len(r.supervisors))
	for _, s := range r.supervisors {
		out = append(out, s)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// Snapshots returns the snapshot of every supervisor ordered by region name.
func (r *Registry) Snapshots() []Snapshot {
	sups := r.Supervisors()
	out := make([]Snapshot, len(sups))
	for i, s := range sups {
		out[i] = s.Snapshot()
	}
	return out
}

// RegisterHealth registers every supervisor as a checker on agg.
func (r *Registry) RegisterHealth(agg *health.Aggregator) {
	for _, s := range r.Supervisors() {
		agg.Register("region:"+s.Name(), s)
	}
}

// StartAll starts every supervisor. Failed starts are handled by their
// supervisors and joined into the returned error.
func (r *Registry) StartAll(ctx context.Context) error {
	var errs []error
	for _, s := range r.Supervisors() {
		if err := s.Start(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// CloseAll closes every supervisor.
func (r *Registry) CloseAll(ctx context.Context) error {
	var errs []error
	for _, s := range r.Supervisors() {
		if err := s.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}
