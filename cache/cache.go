package cache

import (
	"context"
	"errors"
	"strings"
	"time"
)

// MaxKeyLength is the maximum allowed length for a cache key.
const MaxKeyLength = 512

// Sentinel errors for cache operations.
var (
	ErrInvalidKey = errors.New("cache: key is invalid")
	ErrKeyTooLong = errors.New("cache: key exceeds max length")
)

// Entry is one stored response.
type Entry struct {
	Value     []byte
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Live reports whether the entry is still present at now.
func (e Entry) Live(now time.Time) bool {
	return now.Before(e.ExpiresAt)
}

// Cache stores successful responses.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use; reads and
//   writes of one key are serialized, no cross-key atomicity is implied.
// - Context: methods should honor cancellation/deadlines where applicable.
// - Errors: Get never errors; it returns (nil, false) on miss or expiry.
type Cache interface {
	// Get retrieves a live value. Returns (nil, false) on miss.
	Get(ctx context.Context, key string) ([]byte, bool)

	// Set stores a value for ttl. ttl <= 0 stores nothing.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a value. Idempotent.
	Delete(ctx context.Context, key string) error

	// Clear removes every value.
	Clear(ctx context.Context) error
}

// ValidateKey checks if a key is valid for caching.
func ValidateKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return ErrInvalidKey
	}
	if len(key) > MaxKeyLength {
		return ErrKeyTooLong
	}
	if strings.ContainsAny(key, "\n\r") {
		return ErrInvalidKey
	}
	return nil
}
