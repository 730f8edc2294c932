package recovery

import "errors"

// Sentinel errors for recovery operations.
var (
	// ErrNilRegion is returned when a supervisor is built without a region.
	ErrNilRegion = errors.New("recovery: region is nil")

	// ErrInvalidConfig is returned when a supervisor configuration is rejected.
	ErrInvalidConfig = errors.New("recovery: invalid config")

	// ErrUnknownTier is returned when parsing an unknown tier name.
	ErrUnknownTier = errors.New("recovery: unknown tier")

	// ErrRegionUnavailable is returned by Guard while the region is not stable.
	ErrRegionUnavailable = errors.New("recovery: region unavailable")

	// ErrRegionPanic wraps a panic raised inside a guarded region.
	ErrRegionPanic = errors.New("recovery: region panicked")

	// ErrNotFailed is returned by RetryNow when there is nothing to recover.
	ErrNotFailed = errors.New("recovery: region has not failed")

	// ErrRecoveryInProgress is returned by RetryNow while a recovery is running.
	ErrRecoveryInProgress = errors.New("recovery: recovery in progress")

	// ErrSuperseded is returned when a manual action overtook a running recovery.
	ErrSuperseded = errors.New("recovery: superseded by a newer action")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("recovery: supervisor closed")

	// ErrDuplicateRegion is returned when registering a region name twice.
	ErrDuplicateRegion = errors.New("recovery: duplicate region")
)
