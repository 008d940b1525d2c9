package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"portal-notification-service/internal/models"
)

// GetPreferences returns the user's stored preferences, or the system
// defaults when no record exists yet.
func (d *DB) GetPreferences(ctx context.Context, userID string) (models.Preferences, error) {
	var payload []byte
	var updatedAt time.Time
	err := d.Pool.QueryRow(ctx, `
        SELECT payload, updated_at
        FROM notification_preferences
        WHERE user_id = $1`, userID).Scan(&payload, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.DefaultPreferences(userID), nil
		}
		return models.Preferences{}, fmt.Errorf("failed to get preferences for user_id %s: %w", userID, err)
	}

	var prefs models.Preferences
	if err := json.Unmarshal(payload, &prefs); err != nil {
		return models.Preferences{}, fmt.Errorf("failed to unmarshal preferences for user_id %s: %w", userID, err)
	}
	prefs.UserID = userID
	prefs.UpdatedAt = updatedAt
	return prefs, nil
}

// UpsertPreferences stores a new version of the user's preferences. Records
// are superseded, never deleted.
func (d *DB) UpsertPreferences(ctx context.Context, prefs models.Preferences) error {
	payload, err := json.Marshal(prefs)
	if err != nil {
		return fmt.Errorf("failed to marshal preferences: %w", err)
	}
	_, err = d.Pool.Exec(ctx, `
        INSERT INTO notification_preferences (user_id, payload, updated_at)
        VALUES ($1, $2, NOW())
        ON CONFLICT (user_id) DO UPDATE SET payload = EXCLUDED.payload, updated_at = NOW()`,
		prefs.UserID, payload)
	if err != nil {
		return fmt.Errorf("failed to upsert preferences for user_id %s: %w", prefs.UserID, err)
	}
	return nil
}
