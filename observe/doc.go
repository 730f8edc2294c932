// Package observe provides the logging, tracing and metrics primitives shared
// by the fault, resilience and recovery packages.
//
// It is a pure instrumentation library. Exporter setup is the only I/O it
// performs; consumers receive an Observer (or the Instrumentation bundle built
// from one) by construction and never reach for package globals.
//
// # Logging
//
// Logger is a small structured interface backed by log/slog. Records carry the
// trace and span identifiers of the active OpenTelemetry span, and keys that
// commonly hold credentials are redacted before they reach the handler.
//
// # Metrics
//
// Metrics records executor outcomes, cache lookups, classified faults and
// supervisor state transitions as OpenTelemetry instruments.
package observe
