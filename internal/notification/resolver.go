package notification

import (
	"portal-notification-service/internal/models"
)

// Suppression reasons recorded for audit. A suppression is a deliberate
// no-op, not an error.
const (
	ReasonGloballyDisabled = "globally disabled"
	ReasonBelowMinimum     = "below minimum level"
	ReasonTypeDisabled     = "type disabled"
	ReasonNoChannel        = "no eligible channel"
	ReasonExpired          = "expired"
)

// ResolvedDelivery is the output of preference resolution for one
// notification: the effective channel set and effective level.
type ResolvedDelivery struct {
	Channels []models.Channel
	Level    models.Level
}

// Suppression is a resolution outcome that drops the notification with a
// recorded reason.
type Suppression struct {
	Reason string
}

// Resolve computes the effective channel set and level for a notification
// against a snapshot of the user's preferences. Checks short-circuit in
// order: global switch, level floor (a type override's own floor takes
// precedence over the global one), type enable/disable, then intersection of
// the candidate channels with the channels the event itself requested. A
// channel disabled by either side is dropped silently, never an error.
func Resolve(n *models.Notification, prefs models.Preferences) (ResolvedDelivery, *Suppression) {
	if !prefs.Enabled {
		return ResolvedDelivery{}, &Suppression{Reason: ReasonGloballyDisabled}
	}

	override, hasOverride := prefs.TypeOverrides[n.Type]

	floor := prefs.MinimumLevel
	if hasOverride && override.Level != "" {
		floor = override.Level
	}
	if !n.Level.AtLeast(floor) {
		return ResolvedDelivery{}, &Suppression{Reason: ReasonBelowMinimum}
	}

	candidates := prefs.EnabledChannels()
	if hasOverride {
		if !override.Enabled {
			return ResolvedDelivery{}, &Suppression{Reason: ReasonTypeDisabled}
		}
		if len(override.Channels) > 0 {
			candidates = override.Channels
		}
	}

	channels := intersect(candidates, n.Channels)
	if len(channels) == 0 {
		return ResolvedDelivery{}, &Suppression{Reason: ReasonNoChannel}
	}

	level := n.Level
	if hasOverride && override.Level != "" {
		level = override.Level
	}

	return ResolvedDelivery{Channels: channels, Level: level}, nil
}

// intersect keeps the candidate channels the event also requested,
// preserving candidate order.
func intersect(candidates, requested []models.Channel) []models.Channel {
	want := make(map[models.Channel]bool, len(requested))
	for _, ch := range requested {
		want[ch] = true
	}
	var out []models.Channel
	for _, ch := range candidates {
		if want[ch] {
			out = append(out, ch)
		}
	}
	return out
}
