package notification

import "portal-notification-service/internal/models"

// CanTransition reports whether a channel status may move from one state to
// another. Statuses only move forward: pending -> sent|failed, sent ->
// delivered. Re-applying the current status is allowed so updates stay
// idempotent; everything else, including any regression out of a terminal
// state, is rejected.
func CanTransition(from, to models.ChannelStatus) bool {
	if from == to {
		return true
	}
	switch from {
	case "":
		// a notification that expires or has no usable sender may fail a
		// channel without ever having been pending
		return to == models.StatusPending || to == models.StatusFailed
	case models.StatusPending:
		return to == models.StatusSent || to == models.StatusFailed
	case models.StatusSent:
		return to == models.StatusDelivered
	default:
		// delivered and failed are terminal
		return false
	}
}
