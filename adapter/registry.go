package adapter

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"sync"

	"github.com/Mlaiel/Railia-sub006/health"
)

// Registry holds services by name.
type Registry struct {
	mu       sync.RWMutex
	services map[string]*Service
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{services: make(map[string]*Service)}
}

// Register adds s. Names are unique.
func (r *Registry) Register(s *Service) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.services[s.Name()]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateService, s.Name())
	}
	r.services[s.Name()] = s
	return nil
}

// Get returns the named service.
func (r *Registry) Get(name string) (*Service, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.services[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownService, name)
	}
	return s, nil
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.services))
	for name := range r.services {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RegisterHealth registers a reachability probe per service on agg, named
// "service:<name>". Probes GET probePath without retries or caching.
func (r *Registry) RegisterHealth(agg *health.Aggregator, probePath string) {
	for _, name := range r.Names() {
		s, err := r.Get(name)
		if err != nil {
			continue
		}
		agg.Register("service:"+name, ProbeChecker(s, probePath))
	}
}

// ProbeChecker reports whether s answers GET path. A 5xx answer or a
// transport error is unhealthy, a 4xx answer is degraded.
func ProbeChecker(s *Service, path string) health.Checker {
	return health.NewCheckerFunc("service:"+s.Name(), func(ctx context.Context) health.Result {
		code, elapsed, err := s.probe(ctx, path)
		details := map[string]any{"address": s.exec.Address(path)}
		if err != nil {
			return health.Unhealthy("unreachable", err).WithDetails(details).WithDuration(elapsed)
		}
		details["status_code"] = code
		switch {
		case code >= http.StatusInternalServerError:
			return health.Unhealthy(fmt.Sprintf("status %d", code), nil).WithDetails(details).WithDuration(elapsed)
		case code >= http.StatusBadRequest:
			return health.Degraded(fmt.Sprintf("status %d", code)).WithDetails(details).WithDuration(elapsed)
		}
		return health.Healthy("reachable").WithDetails(details).WithDuration(elapsed)
	})
}
