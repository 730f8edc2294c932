// Package health reports the health of the resilience layer.
//
// A Checker reports one component: a guarded region's supervisor, the error
// rate seen by the fault handler, or any function wrapped with
// NewCheckerFunc. An Aggregator runs every registered checker in parallel
// under a shared deadline and folds the results into one Report.
//
// # HTTP Endpoints
//
//	mux := http.NewServeMux()
//	health.RegisterHandlers(mux, agg)
//
// registers /healthz (liveness), /readyz (readiness) and /health (JSON report).
// Degraded components keep the service ready; any unhealthy one does not.
package health
