package resilience

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Mlaiel/Railia-sub006/cache"
	"github.com/Mlaiel/Railia-sub006/fault"
	"github.com/Mlaiel/Railia-sub006/observe"
)

// Config configures an Executor. It is immutable once the Executor is built.
type Config struct {
	// BaseAddress prefixes every request path when deriving cache keys.
	BaseAddress string

	// Timeout is the hard deadline for one attempt. Must be positive.
	Timeout time.Duration

	// RetryCount is the number of retries after the first attempt.
	RetryCount int

	// RetryDelay is the fixed delay between attempts.
	RetryDelay time.Duration

	// RetryJitter is the maximum random extra added to RetryDelay.
	RetryJitter time.Duration

	// CachingEnabled turns on response caching for read-only verbs.
	CachingEnabled bool

	// CacheTTL is how long a successful response stays cached.
	CacheTTL time.Duration
}

// DefaultConfig returns a configuration suitable for most services.
func DefaultConfig() Config {
	return Config{
		Timeout:        10 * time.Second,
		RetryCount:     2,
		RetryDelay:     time.Second,
		CachingEnabled: true,
		CacheTTL:       5 * time.Minute,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	switch {
	case c.Timeout <= 0:
		return fmt.Errorf("%w: timeout must be positive", ErrInvalidConfig)
	case c.RetryCount < 0:
		return fmt.Errorf("%w: retry count must not be negative", ErrInvalidConfig)
	case c.RetryDelay < 0:
		return fmt.Errorf("%w: retry delay must not be negative", ErrInvalidConfig)
	case c.RetryJitter < 0:
		return fmt.Errorf("%w: retry jitter must not be negative", ErrInvalidConfig)
	case c.CacheTTL < 0:
		return fmt.Errorf("%w: cache ttl must not be negative", ErrInvalidConfig)
	}
	return nil
}

// Executor runs operations through the cache, timeout, retry and fallback phases.
type Executor struct {
	config  Config
	cache   cache.Cache
	values  *valueStore
	keyer   cache.Keyer
	policy  cache.Policy
	handler *fault.Handler
	inst    observe.Instrumentation
	retry   *Retry

	coalesce bool
	group    singleflight.Group
}

// Option configures an Executor.
type Option func(*Executor)

// WithCache sets the response store. Default: a private cache.MemoryCache.
func WithCache(c cache.Cache) Option {
	return func(e *Executor) { e.cache = c }
}

// WithKeyer sets the cache key derivation. Default: cache.RequestKeyer.
func WithKeyer(k cache.Keyer) Option {
	return func(e *Executor) { e.keyer = k }
}

// WithReadOnlyVerbs overrides the verbs whose responses are cached.
func WithReadOnlyVerbs(verbs ...string) Option {
	return func(e *Executor) { e.policy.ReadOnlyVerbs = verbs }
}

// WithHandler sets the fault handler that classifies exhausted calls.
// Default: a handler with default config sharing the executor's instrumentation.
func WithHandler(h *fault.Handler) Option {
	return func(e *Executor) { e.handler = h }
}

// WithInstrumentation sets tracing, metrics and logging.
func WithInstrumentation(inst observe.Instrumentation) Option {
	return func(e *Executor) { e.inst = inst }
}

// WithCoalescing shares one in-flight execution among concurrent calls for
// the same cacheable key. Waiters receive the leader's result and attempt
// count, and run under the leader's context.
func WithCoalescing() Option {
	return func(e *Executor) { e.coalesce = true }
}

// NewExecutor creates an Executor.
func NewExecutor(config Config, opts ...Option) (*Executor, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	e := &Executor{
		config: config,
		values: newValueStore(),
		policy: cache.Policy{DefaultTTL: config.CacheTTL},
	}
	for _, opt := range opts {
		opt(e)
	}

	e.inst = e.inst.WithDefaults()
	if e.keyer == nil {
		e.keyer = cache.NewRequestKeyer()
	}
	if e.cache == nil && config.CachingEnabled {
		e.cache = cache.NewMemoryCache()
	}
	if e.handler == nil {
		e.handler = fault.NewHandler(fault.Config{}, fault.WithInstrumentation(e.inst))
	}
	e.retry = NewRetry(RetryConfig{
		MaxAttempts: config.RetryCount + 1,
		Delay:       config.RetryDelay,
		Jitter:      config.RetryJitter,
		RetryIf: func(err error) bool {
			return !errors.Is(err, context.Canceled)
		},
		OnRetry: func(attempt int, err error, delay time.Duration) {
			e.inst.Logger.Debug(context.Background(), "retrying operation",
				observe.F("attempt", attempt),
				observe.F("delay_ms", delay.Milliseconds()),
				observe.F("error", err.Error()),
			)
		},
	})
	return e, nil
}

// Config returns the executor configuration.
func (e *Executor) Config() Config {
	return e.config
}

// Handler returns the fault handler used for reporting.
func (e *Executor) Handler() *fault.Handler {
	return e.handler
}

// Address joins the base address and path.
func (e *Executor) Address(path string) string {
	if e.config.BaseAddress == "" {
		return path
	}
	if path == "" {
		return e.config.BaseAddress
	}
	return strings.TrimRight(e.config.BaseAddress, "/") + "/" + strings.TrimLeft(path, "/")
}

// InvalidateCache drops the cached response for a request identity.
func (e *Executor) InvalidateCache(ctx context.Context, verb, path string, body any) error {
	if e.cache == nil {
		return nil
	}
	key, err := e.keyer.Key(verb, e.Address(path), body)
	if err != nil {
		return err
	}
	e.values.delete(key)
	return e.cache.Delete(ctx, key)
}

// Request describes one guarded operation.
type Request[T any] struct {
	// Verb and Path identify the request for caching. An empty verb is GET.
	Verb string
	Path string

	// Body is serialized deterministically into the cache key.
	Body any

	// Kind and Component classify the failure reported on exhaustion.
	Kind      fault.Kind
	Component string

	// Fallback, when non-nil, is returned once retries are exhausted.
	Fallback *T

	// Operation produces the value. It should honor ctx cancellation.
	Operation func(ctx context.Context) (T, error)
}

// Result is the outcome of Execute.
type Result[T any] struct {
	Value T

	// FromCache is set when the value came from a live cache entry.
	FromCache bool

	// FromFallback is set when every attempt failed and Fallback was used.
	FromFallback bool

	// Attempts is the number of times the operation ran. Zero on a cache hit.
	Attempts int

	// Fault is the classified failure when attempts were exhausted.
	Fault *fault.Error

	Duration time.Duration
}

// Execute runs req through the executor's phases.
//
// A genuine success returns with FromCache and FromFallback unset. When every
// attempt fails the final error is reported to the fault handler; the call
// then returns the fallback with FromFallback set and a nil error, or an error
// wrapping both ErrExhausted and the classified *fault.Error.
func Execute[T any](ctx context.Context, e *Executor, req Request[T]) (Result[T], error) {
	if req.Operation == nil {
		return Result[T]{}, ErrNilOperation
	}
	if req.Component == "" {
		req.Component = "unknown"
	}

	start := time.Now()
	verb := cache.NormalizeVerb(req.Verb)
	meta := observe.Meta{
		Component: req.Component,
		Kind:      req.Kind.String(),
		Verb:      verb,
		Address:   e.Address(req.Path),
	}

	ctx, span := e.inst.Tracer.StartSpan(ctx, meta)
	res, err := run(ctx, e, req, meta)
	res.Duration = time.Since(start)
	e.inst.Tracer.EndSpan(span, err)
	e.inst.Metrics.RecordExecution(ctx, meta, res.Duration, res.Attempts, outcomeOf(res, err))
	return res, err
}

func run[T any](ctx context.Context, e *Executor, req Request[T], meta observe.Meta) (Result[T], error) {
	key, cacheable := e.cacheKey(ctx, cache.NormalizeVerb(req.Verb), req.Body, meta)

	if cacheable {
		if v, ok := lookup[T](ctx, e, key); ok {
			e.inst.Metrics.RecordCacheLookup(ctx, meta, true)
			return Result[T]{Value: v, FromCache: true}, nil
		}
		e.inst.Metrics.RecordCacheLookup(ctx, meta, false)
	}

	value, attempts, err := e.attemptAll(ctx, key, cacheable, func(ctx context.Context) (any, error) {
		v, err := ExecuteWithTimeout(ctx, e.config.Timeout, req.Operation)
		return v, err
	})
	if err == nil {
		v, _ := value.(T)
		if cacheable {
			e.store(ctx, key, v, meta)
		}
		return Result[T]{Value: v, Attempts: attempts}, nil
	}

	kind := req.Kind
	if errors.Is(err, ErrTimeout) {
		kind = fault.KindTimeout
	}
	classified := e.handler.Handle(ctx, err, kind, req.Component)

	if req.Fallback != nil {
		e.inst.Logger.Info(ctx, "using fallback value",
			append(meta.Fields(), observe.F("attempts", attempts), observe.F("error_id", classified.ID))...)
		return Result[T]{
			Value:        *req.Fallback,
			FromFallback: true,
			Attempts:     attempts,
			Fault:        classified,
		}, nil
	}
	return Result[T]{Attempts: attempts, Fault: classified}, fmt.Errorf("%w: %w", ErrExhausted, classified)
}

// cacheKey derives the key and reports whether the request is cacheable.
// A body that cannot be keyed disables caching for the call.
func (e *Executor) cacheKey(ctx context.Context, verb string, body any, meta observe.Meta) (string, bool) {
	if !e.config.CachingEnabled || e.cache == nil || !e.policy.IsCacheable(verb) {
		return "", false
	}
	key, err := e.keyer.Key(verb, meta.Address, body)
	if err != nil {
		e.inst.Logger.Warn(ctx, "request not cacheable", append(meta.Fields(), observe.F("error", err.Error()))...)
		return "", false
	}
	return key, true
}

// attemptAll runs op through the retry loop, sharing the run among
// concurrent callers when coalescing is enabled.
func (e *Executor) attemptAll(ctx context.Context, key string, cacheable bool, op func(context.Context) (any, error)) (any, int, error) {
	type shared struct {
		value    any
		attempts int
	}

	runOnce := func() (shared, error) {
		var value any
		attempts, err := e.retry.Execute(ctx, func(ctx context.Context, _ int) error {
			v, err := op(ctx)
			if err != nil {
				return err
			}
			value = v
			return nil
		})
		return shared{value: value, attempts: attempts}, err
	}

	if !e.coalesce || !cacheable {
		out, err := runOnce()
		return out.value, out.attempts, err
	}

	v, err, _ := e.group.Do(key, func() (any, error) {
		out, err := runOnce()
		return out, err
	})
	out, _ := v.(shared)
	return out.value, out.attempts, err
}

// lookup returns the typed value for a live cache entry. A live byte entry
// without a typed value of type T, such as one written by another executor
// sharing the cache, is a miss.
func lookup[T any](ctx context.Context, e *Executor, key string) (T, bool) {
	var zero T
	if _, ok := e.cache.Get(ctx, key); !ok {
		e.values.delete(key)
		return zero, false
	}
	raw, ok := e.values.get(key)
	if !ok {
		return zero, false
	}
	v, ok := raw.(T)
	if !ok && raw != nil {
		return zero, false
	}
	return v, true
}

// store records the JSON form in the byte cache, which governs liveness,
// and the value itself in the typed store.
func (e *Executor) store(ctx context.Context, key string, value any, meta observe.Meta) {
	data, err := json.Marshal(value)
	if err != nil {
		e.inst.Logger.Warn(ctx, "response not cached", append(meta.Fields(), observe.F("error", err.Error()))...)
		return
	}
	ttl := e.policy.EffectiveTTL(e.config.CacheTTL)
	if err := e.cache.Set(ctx, key, data, ttl); err != nil {
		e.inst.Logger.Warn(ctx, "response not cached", append(meta.Fields(), observe.F("error", err.Error()))...)
		return
	}
	e.values.set(key, value, ttl)
}

func outcomeOf[T any](res Result[T], err error) observe.Outcome {
	switch {
	case err != nil:
		return observe.OutcomeFailure
	case res.FromCache:
		return observe.OutcomeCache
	case res.FromFallback:
		return observe.OutcomeFallback
	default:
		return observe.OutcomeSuccess
	}
}
