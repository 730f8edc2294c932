// Package diagnostics assembles a point-in-time report of the resilience
// layer for support and field debugging.
//
// A Report combines environment metadata, the fault handler's error
// metrics, the latest health results and every supervisor snapshot. It
// serializes as JSON or YAML, and Handler serves it over HTTP:
//
//	GET /diagnostics               JSON
//	GET /diagnostics?format=yaml   YAML
//
// Reports never include raw causes of classified errors beyond their text,
// and never include configuration values.
package diagnostics
