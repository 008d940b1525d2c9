package notification

import (
	"context"

	"portal-notification-service/internal/models"
)

// Filter narrows ListForUser results.
type Filter struct {
	Limit      int
	Offset     int
	UnreadOnly bool
	Type       string
}

// Store is the append/update log of Notification records and their channel
// statuses. Status updates are commutative-safe: re-applying the same update
// is a no-op and statuses only move forward per CanTransition.
type Store interface {
	Save(ctx context.Context, n models.Notification) error
	UpdateChannelStatus(ctx context.Context, id string, ch models.Channel, status models.ChannelStatus) error
	Get(ctx context.Context, id string) (models.Notification, error)
	ListForUser(ctx context.Context, userID string, f Filter) ([]models.Notification, error)
	MarkRead(ctx context.Context, id string) error
	MarkDismissed(ctx context.Context, id string) error
}

// PreferenceSource returns a user's stored preferences, or the system
// defaults when none exist yet.
type PreferenceSource interface {
	GetPreferences(ctx context.Context, userID string) (models.Preferences, error)
}

// Directory resolves a targeting variant to a concrete recipient list. Role
// membership and the broadcast population live outside the engine.
type Directory interface {
	ResolveTarget(ctx context.Context, t models.Target) ([]string, error)
}

// Sender delivers rendered content for one channel. Implementations wrap
// ErrPermanent for failures that must not be retried.
type Sender interface {
	Send(ctx context.Context, n *models.Notification, msg RenderedMessage) error
}
