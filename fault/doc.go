// Package fault is the error taxonomy and the single reporting path of the
// resilience layer.
//
// Raw failures are normalized once, at the Handler boundary, into an *Error
// carrying a closed Kind (where it happened) and an ordered Severity (how bad
// it is). Past that boundary no caller inspects ad hoc fields of the cause.
//
// The Handler keeps a bounded rolling history for metrics, raises notices
// scaled to severity, and optionally forwards errors to an upstream Sink and a
// Predictor. Handle never panics and never returns nil; it is the last line of
// defense for every failure the layer observes.
//
// # Severity policy
//
//   - Low: logged only.
//   - Medium: transient user notice.
//   - High: transient user notice and upstream report.
//   - Critical: persistent notice asking for a reload; supervisors stop
//     recovering automatically.
//
// Kinds listed in Config.QuietKinds (SensorData by default) are counted in
// metrics but never raise a notice.
package fault
