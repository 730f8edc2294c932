// Package resilience executes outbound operations with a hard timeout,
// bounded retry, response caching and a guaranteed fallback.
//
// # Phases
//
// One Execute call runs its phases strictly in order:
//
//  1. Cache check: read-only verbs look up a live entry keyed by verb,
//     address and body. A hit returns immediately with FromCache set and
//     the operation is never invoked.
//  2. Execute: the operation runs under the configured deadline. An overrun
//     is a timeout failure; its late result is discarded.
//  3. Retry: failures are retried RetryCount more times with a fixed delay,
//     optionally jittered above that floor.
//  4. Report and fallback: on exhaustion the final failure is classified by
//     the fault.Handler, then the call resolves to the fallback value if one
//     was supplied or to an error wrapping ErrExhausted otherwise.
//
// Only a fully successful attempt populates the cache.
//
// # Usage
//
//	exec, err := resilience.NewExecutor(resilience.Config{
//	    BaseAddress:    "https://weather.internal",
//	    Timeout:        time.Second,
//	    RetryCount:     2,
//	    RetryDelay:     200 * time.Millisecond,
//	    CachingEnabled: true,
//	    CacheTTL:       5 * time.Second,
//	}, resilience.WithHandler(handler))
//
//	res, err := resilience.Execute(ctx, exec, resilience.Request[Forecast]{
//	    Verb:      "GET",
//	    Path:      "/forecast",
//	    Kind:      fault.KindWeatherAPI,
//	    Component: "forecast-panel",
//	    Fallback:  &lastKnown,
//	    Operation: fetchForecast,
//	})
//
// # Concurrency
//
// Concurrent calls sharing a cache key are not coalesced unless the executor
// is built WithCoalescing. Without it each call runs its own attempts and the
// last successful writer wins the cache slot.
package resilience
