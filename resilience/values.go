package resilience

import (
	"sync"
	"time"
)

// valueStore keeps the typed value behind each cached response, so a cache
// hit returns exactly what the operation produced instead of a JSON decode.
// The byte cache stays authoritative for liveness; an entry here is only
// served while its byte counterpart is live.
type valueStore struct {
	mu      sync.Mutex
	entries map[string]typedEntry
	now     func() time.Time
}

type typedEntry struct {
	value     any
	expiresAt time.Time
}

func newValueStore() *valueStore {
	return &valueStore{entries: make(map[string]typedEntry), now: time.Now}
}

func (s *valueStore) get(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	return e.value, ok
}

// set stores value and drops entries past their own expiry.
func (s *valueStore) set(key string, value any, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for k, e := range s.entries {
		if !now.Before(e.expiresAt) {
			delete(s.entries, k)
		}
	}
	s.entries[key] = typedEntry{value: value, expiresAt: now.Add(ttl)}
}

func (s *valueStore) delete(key string) {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
}
