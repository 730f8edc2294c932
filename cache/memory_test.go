package cache

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"
)

// fakeClock is a manually advanced time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestMemoryCache_GetSet(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	if _, ok := c.Get(ctx, "missing"); ok {
		t.Fatal("Get() on empty cache should miss")
	}

	if err := c.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	got, ok := c.Get(ctx, "k")
	if !ok {
		t.Fatal("Get() should hit after Set()")
	}
	if string(got) != "v" {
		t.Errorf("Get() = %q, want %q", got, "v")
	}
}

func TestMemoryCache_TTLBoundary(t *testing.T) {
	clock := newFakeClock()
	c := NewMemoryCache(WithClock(clock.Now))
	ctx := context.Background()

	_ = c.Set(ctx, "k", []byte("v"), 100*time.Millisecond)

	clock.Advance(99 * time.Millisecond)
	if _, ok := c.Get(ctx, "k"); !ok {
		t.Fatal("entry should be live just before expiry")
	}

	clock.Advance(time.Millisecond)
	if _, ok := c.Get(ctx, "k"); ok {
		t.Fatal("entry should be absent exactly at expiry")
	}
	if c.Len() != 0 {
		t.Errorf("Len() = %d, want expired entry dropped on read", c.Len())
	}
}

func TestMemoryCache_ZeroTTLStoresNothing(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	for _, ttl := range []time.Duration{0, -time.Second} {
		if err := c.Set(ctx, "k", []byte("v"), ttl); err != nil {
			t.Fatalf("Set(ttl=%v) error = %v", ttl, err)
		}
		if _, ok := c.Get(ctx, "k"); ok {
			t.Errorf("Set(ttl=%v) should not store", ttl)
		}
	}
}

func TestMemoryCache_ValueIsCopied(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	value := []byte("original")
	_ = c.Set(ctx, "k", value, time.Minute)
	copy(value, "mutated!")

	got, _ := c.Get(ctx, "k")
	if !bytes.Equal(got, []byte("original")) {
		t.Errorf("Get() = %q, stored value must not alias caller slice", got)
	}
}

func TestMemoryCache_Overwrite(t *testing.T) {
	clock := newFakeClock()
	c := NewMemoryCache(WithClock(clock.Now))
	ctx := context.Background()

	_ = c.Set(ctx, "k", []byte("first"), time.Second)
	clock.Advance(900 * time.Millisecond)
	_ = c.Set(ctx, "k", []byte("second"), time.Second)
	clock.Advance(500 * time.Millisecond)

	entry, ok := c.Lookup(ctx, "k")
	if !ok {
		t.Fatal("overwritten entry should carry the new TTL")
	}
	if string(entry.Value) != "second" {
		t.Errorf("Value = %q, want %q", entry.Value, "second")
	}
	if want := clock.Now().Add(-500 * time.Millisecond); !entry.CreatedAt.Equal(want) {
		t.Errorf("CreatedAt = %v, want %v", entry.CreatedAt, want)
	}
}

func TestMemoryCache_DeleteAndClear(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	_ = c.Set(ctx, "a", []byte("1"), time.Minute)
	_ = c.Set(ctx, "b", []byte("2"), time.Minute)

	if err := c.Delete(ctx, "a"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := c.Delete(ctx, "a"); err != nil {
		t.Fatalf("Delete() should be idempotent, error = %v", err)
	}
	if _, ok := c.Get(ctx, "a"); ok {
		t.Error("deleted key should miss")
	}

	if err := c.Clear(ctx); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if c.Len() != 0 {
		t.Errorf("Len() after Clear() = %d, want 0", c.Len())
	}
}

func TestMemoryCache_Purge(t *testing.T) {
	clock := newFakeClock()
	c := NewMemoryCache(WithClock(clock.Now))
	ctx := context.Background()

	_ = c.Set(ctx, "short", []byte("1"), time.Second)
	_ = c.Set(ctx, "long", []byte("2"), time.Hour)

	clock.Advance(2 * time.Second)
	if n := c.Purge(); n != 1 {
		t.Errorf("Purge() = %d, want 1", n)
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}
}

func TestMemoryCache_Stats(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	_ = c.Set(ctx, "k", []byte("v"), time.Minute)
	c.Get(ctx, "k")
	c.Get(ctx, "k")
	c.Get(ctx, "missing")

	stats := c.Stats()
	if stats.Hits != 2 || stats.Misses != 1 || stats.Entries != 1 {
		t.Errorf("Stats() = %+v, want {Entries:1 Hits:2 Misses:1}", stats)
	}
}

func TestMemoryCache_InvalidKey(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	tests := []struct {
		name string
		key  string
		want error
	}{
		{"empty", "", ErrInvalidKey},
		{"whitespace", "   ", ErrInvalidKey},
		{"newline", "a\nb", ErrInvalidKey},
		{"too long", strings.Repeat("k", MaxKeyLength+1), ErrKeyTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := c.Set(ctx, tt.key, []byte("v"), time.Minute)
			if !errors.Is(err, tt.want) {
				t.Errorf("Set() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestMemoryCache_Concurrent(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("key-%d", i%5)
			_ = c.Set(ctx, key, []byte("v"), time.Minute)
			c.Get(ctx, key)
			if i%7 == 0 {
				_ = c.Delete(ctx, key)
			}
			c.Purge()
		}(i)
	}
	wg.Wait()

	if c.Len() > 5 {
		t.Errorf("Len() = %d, want at most 5", c.Len())
	}
}
