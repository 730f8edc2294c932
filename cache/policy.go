package cache

import (
	"slices"
	"strings"
	"time"
)

// Policy configures which requests are cached and for how long.
type Policy struct {
	// DefaultTTL is the TTL to use when none is specified.
	// If zero, caching is disabled.
	DefaultTTL time.Duration

	// MaxTTL is the maximum allowed TTL. Override TTLs are clamped to this.
	// If zero, no maximum is enforced.
	MaxTTL time.Duration

	// ReadOnlyVerbs lists the verbs whose responses may be cached.
	// Default: GET, HEAD, OPTIONS
	ReadOnlyVerbs []string
}

// DefaultReadOnlyVerbs are the verbs cached when a Policy does not name any.
var DefaultReadOnlyVerbs = []string{"GET", "HEAD", "OPTIONS"}

// DefaultPolicy returns the default caching policy.
// DefaultTTL: 5 minutes, MaxTTL: 1 hour
func DefaultPolicy() Policy {
	return Policy{
		DefaultTTL:    5 * time.Minute,
		MaxTTL:        1 * time.Hour,
		ReadOnlyVerbs: DefaultReadOnlyVerbs,
	}
}

// NoCachePolicy returns a policy that disables caching entirely.
func NoCachePolicy() Policy {
	return Policy{}
}

// ShouldCache returns true if caching is enabled by this policy.
func (p Policy) ShouldCache() bool {
	return p.DefaultTTL > 0
}

// IsCacheable reports whether responses to verb may be cached.
// An empty verb is treated as GET.
func (p Policy) IsCacheable(verb string) bool {
	if !p.ShouldCache() {
		return false
	}
	verbs := p.ReadOnlyVerbs
	if len(verbs) == 0 {
		verbs = DefaultReadOnlyVerbs
	}
	verb = NormalizeVerb(verb)
	return slices.ContainsFunc(verbs, func(v string) bool {
		return strings.EqualFold(v, verb)
	})
}

// EffectiveTTL returns the TTL to use, applying defaults and clamping.
func (p Policy) EffectiveTTL(override time.Duration) time.Duration {
	ttl := override
	if ttl <= 0 {
		ttl = p.DefaultTTL
	}

	if p.MaxTTL > 0 && ttl > p.MaxTTL {
		ttl = p.MaxTTL
	}

	return ttl
}
