package providers

import (
	"context"

	"portal-notification-service/internal/models"
)

// ContactSource looks up a user's per-channel destinations.
type ContactSource interface {
	GetContact(ctx context.Context, userID string) (models.Contact, error)
}
