package recovery

import (
	"context"
	"fmt"
	"time"

	"github.com/Mlaiel/Railia-sub006/health"
)

// Check reports the supervisor's state as a health result:
// Stable is healthy, Recovering is degraded and Failed is unhealthy.
func (s *Supervisor) Check(_ context.Context) health.Result {
	snap := s.Snapshot()

	details := map[string]any{
		"tier":        snap.Tier.String(),
		"retry_count": snap.RetryCount,
		"max_retries": snap.MaxRetries,
	}

	var result health.Result
	switch snap.State {
	case StateStable:
		result = health.Healthy("stable")
	case StateRecovering:
		result = health.Degraded("recovering")
	default:
		msg := "failed; recovery scheduled"
		if snap.Terminal {
			msg = "failed; manual action required"
		}
		var err error
		if snap.Incident != nil && snap.Incident.Error != nil {
			err = snap.Incident.Error
			details["error_id"] = snap.Incident.Error.ID
			details["failed_at"] = snap.Incident.At.UTC().Format(time.RFC3339)
		}
		if err == nil {
			err = fmt.Errorf("%w: %s", ErrRegionUnavailable, snap.Region)
		}
		result = health.Unhealthy(msg, err)
	}
	return result.WithDetails(details)
}

var _ health.Checker = (*Supervisor)(nil)
