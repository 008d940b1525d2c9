package models

import "time"

// Event is the inbound payload produced by the portal services that raise
// notifications. It is converted to a Notification before submission.
type Event struct {
	Type         string         `json:"type"`
	Level        string         `json:"level"`
	Title        string         `json:"title"`
	Message      string         `json:"message"`
	UserID       string         `json:"user_id,omitempty"`
	UserIDs      []string       `json:"user_ids,omitempty"`
	RoleIDs      []string       `json:"role_ids,omitempty"`
	Broadcast    bool           `json:"broadcast,omitempty"`
	Channels     []string       `json:"channels,omitempty"`
	Data         map[string]any `json:"data,omitempty"`
	Source       string         `json:"source,omitempty"`
	ScheduledFor *time.Time     `json:"scheduled_for,omitempty"`
	ExpiresAt    *time.Time     `json:"expires_at,omitempty"`
}

// Target derives the tagged addressing variant from the populated fields,
// preferring the most specific one.
func (e Event) Target() Target {
	switch {
	case e.UserID != "":
		return Target{Kind: TargetUser, UserID: e.UserID}
	case len(e.UserIDs) > 0:
		return Target{Kind: TargetUsers, UserIDs: e.UserIDs}
	case len(e.RoleIDs) > 0:
		return Target{Kind: TargetRoles, RoleIDs: e.RoleIDs}
	case e.Broadcast:
		return Target{Kind: TargetBroadcast}
	default:
		return Target{}
	}
}

// ToNotification maps the event to an unresolved Notification.
func (e Event) ToNotification() Notification {
	channels := make([]Channel, 0, len(e.Channels))
	for _, c := range e.Channels {
		channels = append(channels, Channel(c))
	}
	return Notification{
		Type:         e.Type,
		Level:        Level(e.Level),
		Title:        e.Title,
		Message:      e.Message,
		Target:       e.Target(),
		Data:         e.Data,
		Channels:     channels,
		Source:       e.Source,
		ScheduledFor: e.ScheduledFor,
		ExpiresAt:    e.ExpiresAt,
	}
}
