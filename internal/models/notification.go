package models

import (
	"fmt"
	"time"
)

// Level is the ordered severity of a notification.
type Level string

const (
	LevelInfo     Level = "info"
	LevelSuccess  Level = "success"
	LevelWarning  Level = "warning"
	LevelError    Level = "error"
	LevelCritical Level = "critical"
)

var levelRank = map[Level]int{
	LevelInfo:     0,
	LevelSuccess:  1,
	LevelWarning:  2,
	LevelError:    3,
	LevelCritical: 4,
}

// Rank returns the position of the level in the severity order. Unknown
// levels rank below info so they never pass a configured floor.
func (l Level) Rank() int {
	if r, ok := levelRank[l]; ok {
		return r
	}
	return -1
}

// Valid reports whether the level is one of the known severities.
func (l Level) Valid() bool {
	_, ok := levelRank[l]
	return ok
}

// AtLeast reports whether l is at or above the given floor.
func (l Level) AtLeast(floor Level) bool {
	return l.Rank() >= floor.Rank()
}

// Channel is a delivery medium.
type Channel string

const (
	ChannelInApp    Channel = "in_app"
	ChannelEmail    Channel = "email"
	ChannelSMS      Channel = "sms"
	ChannelPush     Channel = "push"
	ChannelWebhook  Channel = "webhook"
	ChannelTelegram Channel = "telegram"
)

// AllChannels lists every channel the service can route to.
var AllChannels = []Channel{ChannelInApp, ChannelEmail, ChannelSMS, ChannelPush, ChannelWebhook, ChannelTelegram}

// ChannelStatus is the per-channel delivery state of a notification.
type ChannelStatus string

const (
	StatusPending   ChannelStatus = "pending"
	StatusSent      ChannelStatus = "sent"
	StatusDelivered ChannelStatus = "delivered"
	StatusFailed    ChannelStatus = "failed"
)

// Terminal reports whether the status is final for a channel.
func (s ChannelStatus) Terminal() bool {
	return s == StatusSent || s == StatusDelivered || s == StatusFailed
}

// TargetKind discriminates the notification targeting variants.
type TargetKind string

const (
	TargetUser      TargetKind = "user"
	TargetUsers     TargetKind = "users"
	TargetRoles     TargetKind = "roles"
	TargetBroadcast TargetKind = "broadcast"
)

// Target is the tagged addressing variant of a notification. Exactly one
// variant is populated according to Kind; role membership is resolved by an
// external directory, never by the engine itself.
type Target struct {
	Kind    TargetKind `json:"kind"`
	UserID  string     `json:"user_id,omitempty"`
	UserIDs []string   `json:"user_ids,omitempty"`
	RoleIDs []string   `json:"role_ids,omitempty"`
}

// Validate checks that the populated fields match the declared kind.
func (t Target) Validate() error {
	switch t.Kind {
	case TargetUser:
		if t.UserID == "" {
			return fmt.Errorf("target kind %q requires user_id", t.Kind)
		}
	case TargetUsers:
		if len(t.UserIDs) == 0 {
			return fmt.Errorf("target kind %q requires user_ids", t.Kind)
		}
	case TargetRoles:
		if len(t.RoleIDs) == 0 {
			return fmt.Errorf("target kind %q requires role_ids", t.Kind)
		}
	case TargetBroadcast:
	default:
		return fmt.Errorf("unknown target kind %q", t.Kind)
	}
	return nil
}

// Notification is a single event instance. Once resolved it is mutated only
// by channel-status transitions until every requested channel is terminal or
// the notification expires.
type Notification struct {
	ID            string                    `json:"id"`
	Type          string                    `json:"type"`
	Level         Level                     `json:"level"`
	Title         string                    `json:"title"`
	Message       string                    `json:"message"`
	Target        Target                    `json:"target"`
	RecipientID   string                    `json:"recipient_id,omitempty"`
	Data          map[string]any            `json:"data,omitempty"`
	Channels      []Channel                 `json:"channels"`
	ChannelStatus map[Channel]ChannelStatus `json:"channel_status,omitempty"`
	Source        string                    `json:"source,omitempty"`
	CreatedAt     time.Time                 `json:"created_at"`
	ScheduledFor  *time.Time                `json:"scheduled_for,omitempty"`
	ExpiresAt     *time.Time                `json:"expires_at,omitempty"`
	Read          bool                      `json:"read"`
	ReadAt        *time.Time                `json:"read_at,omitempty"`
	Dismissed     bool                      `json:"dismissed"`
	DismissedAt   *time.Time                `json:"dismissed_at,omitempty"`
}

// IsExpired reports whether the notification has passed its expiry.
func (n *Notification) IsExpired(now time.Time) bool {
	return n.ExpiresAt != nil && !now.Before(*n.ExpiresAt)
}

// Settled reports whether every requested channel has reached a terminal
// status. A channel with no recorded status at all counts as unsettled.
func (n *Notification) Settled() bool {
	if len(n.Channels) == 0 {
		return false
	}
	for _, ch := range n.Channels {
		if !n.ChannelStatus[ch].Terminal() {
			return false
		}
	}
	return true
}

// Clone returns a deep copy so per-recipient fan-out never shares mutable
// state between dispatch tasks.
func (n *Notification) Clone() Notification {
	cp := *n
	if n.Data != nil {
		cp.Data = make(map[string]any, len(n.Data))
		for k, v := range n.Data {
			cp.Data[k] = v
		}
	}
	cp.Channels = append([]Channel(nil), n.Channels...)
	if n.ChannelStatus != nil {
		cp.ChannelStatus = make(map[Channel]ChannelStatus, len(n.ChannelStatus))
		for k, v := range n.ChannelStatus {
			cp.ChannelStatus[k] = v
		}
	}
	return cp
}
