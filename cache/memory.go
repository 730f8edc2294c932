package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryCache is an in-memory Cache.
type MemoryCache struct {
	now func() time.Time

	mu      sync.RWMutex
	entries map[string]Entry
	hits    int64
	misses  int64
}

// Stats reports lookup counters.
type Stats struct {
	Entries int   `json:"entries"`
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
}

// MemoryOption configures a MemoryCache.
type MemoryOption func(*MemoryCache)

// WithClock overrides the time source used for expiry.
func WithClock(now func() time.Time) MemoryOption {
	return func(c *MemoryCache) { c.now = now }
}

// NewMemoryCache creates an empty in-memory cache.
func NewMemoryCache(opts ...MemoryOption) *MemoryCache {
	c := &MemoryCache{
		now:     time.Now,
		entries: make(map[string]Entry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get retrieves a value. Returns (nil, false) on miss or expiry.
func (c *MemoryCache) Get(ctx context.Context, key string) ([]byte, bool) {
	entry, ok := c.Lookup(ctx, key)
	if !ok {
		return nil, false
	}
	return entry.Value, true
}

// Lookup returns the live entry for key.
func (c *MemoryCache) Lookup(_ context.Context, key string) (Entry, bool) {
	now := c.now()

	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if ok && entry.Live(now) {
		c.mu.Lock()
		c.hits++
		c.mu.Unlock()
		return entry, true
	}

	c.mu.Lock()
	c.misses++
	// Re-check under the write lock: a concurrent Set may have replaced it.
	if current, exists := c.entries[key]; exists && !current.Live(now) {
		delete(c.entries, key)
	}
	c.mu.Unlock()
	return Entry{}, false
}

// Set stores a value for ttl. ttl <= 0 stores nothing.
func (c *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	if ttl <= 0 {
		return nil
	}

	now := c.now()
	stored := make([]byte, len(value))
	copy(stored, value)

	c.mu.Lock()
	c.entries[key] = Entry{
		Value:     stored,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	c.mu.Unlock()
	return nil
}

// Delete removes a value. Idempotent.
func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
	return nil
}

// Clear removes every value and resets the counters.
func (c *MemoryCache) Clear(_ context.Context) error {
	c.mu.Lock()
	c.entries = make(map[string]Entry)
	c.hits, c.misses = 0, 0
	c.mu.Unlock()
	return nil
}

// Purge drops expired entries and returns how many were removed.
func (c *MemoryCache) Purge() int {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, entry := range c.entries {
		if !entry.Live(now) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored entries, including expired ones not yet purged.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stats returns the current counters.
func (c *MemoryCache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Stats{Entries: len(c.entries), Hits: c.hits, Misses: c.misses}
}

var _ Cache = (*MemoryCache)(nil)
