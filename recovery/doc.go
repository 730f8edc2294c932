// Package recovery supervises guarded regions: bounded units of
// functionality that are built, torn down and rebuilt as a whole.
//
// A Supervisor owns one Region and drives it through three states:
//
//	Stable ──failure──▶ Failed ──delay──▶ Recovering ──constructed──▶ Stable
//	                      ▲                    │
//	                      └─────construct failed┘
//
// Entering Failed classifies the failure through fault.Handler with a
// severity derived from the supervisor's Tier. Automatic recovery is
// scheduled once per failure, and only when the tier is not critical, the
// severity is below critical and the lifetime retry budget is not spent.
// The retry counter is never reset, so MaxRetries bounds automatic
// recoveries over the supervisor's whole lifetime.
//
// A Failed supervisor that cannot auto-recover is terminal: only RetryNow or
// Reset move it again. Either manual action cancels a pending scheduled
// recovery.
//
// When the fault.Handler carries a Predictor, the supervisor queries it in
// the background on each failure and attaches the predictions to the
// incident. Predictions never influence transitions.
package recovery
