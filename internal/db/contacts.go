package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"portal-notification-service/internal/models"
)

// GetContact retrieves a user's per-channel destinations.
func (d *DB) GetContact(ctx context.Context, userID string) (models.Contact, error) {
	var c models.Contact
	err := d.Pool.QueryRow(ctx, `
        SELECT user_id, coalesce(email, ''), coalesce(phone, ''),
               coalesce(telegram_chat_id, 0), coalesce(webhook_url, ''),
               coalesce(push_token, ''), updated_at
        FROM contacts
        WHERE user_id = $1`, userID).Scan(
		&c.UserID, &c.Email, &c.Phone, &c.TelegramChatID, &c.WebhookURL, &c.PushToken, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Contact{UserID: userID}, nil
		}
		return models.Contact{}, fmt.Errorf("failed to get contact for user_id %s: %w", userID, err)
	}
	return c, nil
}

// UpsertContact stores a user's destinations.
func (d *DB) UpsertContact(ctx context.Context, c models.Contact) error {
	_, err := d.Pool.Exec(ctx, `
        INSERT INTO contacts (user_id, email, phone, telegram_chat_id, webhook_url, push_token, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, NOW())
        ON CONFLICT (user_id) DO UPDATE SET
            email = EXCLUDED.email,
            phone = EXCLUDED.phone,
            telegram_chat_id = EXCLUDED.telegram_chat_id,
            webhook_url = EXCLUDED.webhook_url,
            push_token = EXCLUDED.push_token,
            updated_at = NOW()`,
		c.UserID, c.Email, c.Phone, c.TelegramChatID, c.WebhookURL, c.PushToken)
	if err != nil {
		return fmt.Errorf("failed to upsert contact for user_id %s: %w", c.UserID, err)
	}
	return nil
}
