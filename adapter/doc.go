// Package adapter binds named HTTP services to the resilience executor.
//
// A Service owns one executor (and so one timeout, retry and cache policy)
// and one resty client. Calls are typed:
//
//	forecast, err := adapter.Get[Forecast](ctx, weather, "/forecast?station=KLN", nil)
//
// Responses with status 400 or above fail the attempt with a *StatusError,
// so they are retried and classified like transport failures. A Registry
// holds every configured service by name and exposes reachability probes
// as health checkers.
package adapter
