package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"portal-notification-service/internal/models"
	"portal-notification-service/internal/notification"
)

// Save inserts a notification record or refreshes its mutable columns.
func (d *DB) Save(ctx context.Context, n models.Notification) error {
	target, err := json.Marshal(n.Target)
	if err != nil {
		return fmt.Errorf("failed to marshal target: %w", err)
	}
	data, err := json.Marshal(n.Data)
	if err != nil {
		return fmt.Errorf("failed to marshal data: %w", err)
	}
	channels, err := json.Marshal(n.Channels)
	if err != nil {
		return fmt.Errorf("failed to marshal channels: %w", err)
	}
	statuses, err := json.Marshal(n.ChannelStatus)
	if err != nil {
		return fmt.Errorf("failed to marshal channel statuses: %w", err)
	}

	query := `
        INSERT INTO notifications (
            id, recipient_id, type, level, title, message, target, data,
            channels, channel_status, source, created_at, scheduled_for,
            expires_at, read, read_at, dismissed, dismissed_at
        )
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
        ON CONFLICT (id) DO UPDATE SET
            channel_status = EXCLUDED.channel_status,
            read = EXCLUDED.read,
            read_at = EXCLUDED.read_at,
            dismissed = EXCLUDED.dismissed,
            dismissed_at = EXCLUDED.dismissed_at`
	_, err = d.Pool.Exec(ctx, query,
		n.ID, n.RecipientID, n.Type, n.Level, n.Title, n.Message, target, data,
		channels, statuses, n.Source, n.CreatedAt, n.ScheduledFor,
		n.ExpiresAt, n.Read, n.ReadAt, n.Dismissed, n.DismissedAt)
	if err != nil {
		return fmt.Errorf("failed to save notification: %w", err)
	}
	return nil
}

// statusUpdateRetries bounds how often a race lost to a concurrent writer is
// retried before giving up.
const statusUpdateRetries = 3

// UpdateChannelStatus applies one monotonic status transition. The update is
// optimistic: the row is only touched while the channel is still in the state
// the transition was computed from, so duplicate and out-of-order updates
// degrade to no-ops. Losing that guard to a concurrent writer re-reads and
// re-evaluates, so a transition still legal from the new state is applied
// rather than dropped.
func (d *DB) UpdateChannelStatus(ctx context.Context, id string, ch models.Channel, status models.ChannelStatus) error {
	read := func() (models.ChannelStatus, error) {
		var current *string
		err := d.Pool.QueryRow(ctx,
			`SELECT channel_status->>$2 FROM notifications WHERE id = $1`, id, string(ch)).Scan(&current)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return "", notification.ErrNotFound
			}
			return "", fmt.Errorf("failed to read channel status: %w", err)
		}
		if current == nil {
			return "", nil
		}
		return models.ChannelStatus(*current), nil
	}

	update := func(from models.ChannelStatus) (bool, error) {
		query := `
        UPDATE notifications
        SET channel_status = jsonb_set(coalesce(channel_status, '{}'::jsonb), ARRAY[$2], to_jsonb($3::text))
        WHERE id = $1 AND coalesce(channel_status->>$2, '') = $4`
		tag, err := d.Pool.Exec(ctx, query, id, string(ch), string(status), string(from))
		if err != nil {
			return false, fmt.Errorf("failed to update channel status: %w", err)
		}
		return tag.RowsAffected() > 0, nil
	}

	return applyStatusUpdate(status, read, update)
}

// applyStatusUpdate runs the read-check-update cycle until the write lands,
// the transition becomes disallowed, or the retry budget is spent.
func applyStatusUpdate(status models.ChannelStatus, read func() (models.ChannelStatus, error), update func(from models.ChannelStatus) (bool, error)) error {
	for attempt := 0; attempt < statusUpdateRetries; attempt++ {
		from, err := read()
		if err != nil {
			return err
		}
		if !notification.CanTransition(from, status) {
			return nil
		}
		applied, err := update(from)
		if err != nil {
			return err
		}
		if applied {
			return nil
		}
	}
	return fmt.Errorf("status update to %s lost %d concurrent races", status, statusUpdateRetries)
}

// Get retrieves one notification by id.
func (d *DB) Get(ctx context.Context, id string) (models.Notification, error) {
	query := `
        SELECT id, recipient_id, type, level, title, message, target, data,
               channels, channel_status, source, created_at, scheduled_for,
               expires_at, read, read_at, dismissed, dismissed_at
        FROM notifications
        WHERE id = $1`
	n, err := scanNotification(d.Pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Notification{}, notification.ErrNotFound
		}
		return models.Notification{}, fmt.Errorf("failed to get notification %s: %w", id, err)
	}
	return n, nil
}

// ListForUser returns the user's notifications, newest first.
func (d *DB) ListForUser(ctx context.Context, userID string, f notification.Filter) ([]models.Notification, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	query := `
        SELECT id, recipient_id, type, level, title, message, target, data,
               channels, channel_status, source, created_at, scheduled_for,
               expires_at, read, read_at, dismissed, dismissed_at
        FROM notifications
        WHERE recipient_id = $1
          AND ($2 = '' OR type = $2)
          AND (NOT $3 OR read = false)
        ORDER BY created_at DESC
        LIMIT $4 OFFSET $5`
	rows, err := d.Pool.Query(ctx, query, userID, f.Type, f.UnreadOnly, limit, f.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications for user_id %s: %w", userID, err)
	}
	defer rows.Close()

	var notifications []models.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

// MarkRead flags a notification as read.
func (d *DB) MarkRead(ctx context.Context, id string) error {
	_, err := d.Pool.Exec(ctx, `
        UPDATE notifications
        SET read = true, read_at = NOW()
        WHERE id = $1 AND read = false`, id)
	if err != nil {
		return fmt.Errorf("failed to mark notification %s read: %w", id, err)
	}
	return nil
}

// MarkDismissed flags a notification as dismissed.
func (d *DB) MarkDismissed(ctx context.Context, id string) error {
	_, err := d.Pool.Exec(ctx, `
        UPDATE notifications
        SET dismissed = true, dismissed_at = NOW()
        WHERE id = $1 AND dismissed = false`, id)
	if err != nil {
		return fmt.Errorf("failed to mark notification %s dismissed: %w", id, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNotification(row rowScanner) (models.Notification, error) {
	var n models.Notification
	var target, data, channels, statuses []byte
	err := row.Scan(
		&n.ID, &n.RecipientID, &n.Type, &n.Level, &n.Title, &n.Message, &target, &data,
		&channels, &statuses, &n.Source, &n.CreatedAt, &n.ScheduledFor,
		&n.ExpiresAt, &n.Read, &n.ReadAt, &n.Dismissed, &n.DismissedAt,
	)
	if err != nil {
		return models.Notification{}, err
	}
	if len(target) > 0 {
		if err := json.Unmarshal(target, &n.Target); err != nil {
			return models.Notification{}, fmt.Errorf("failed to unmarshal target: %w", err)
		}
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &n.Data); err != nil {
			return models.Notification{}, fmt.Errorf("failed to unmarshal data: %w", err)
		}
	}
	if len(channels) > 0 {
		if err := json.Unmarshal(channels, &n.Channels); err != nil {
			return models.Notification{}, fmt.Errorf("failed to unmarshal channels: %w", err)
		}
	}
	if len(statuses) > 0 {
		if err := json.Unmarshal(statuses, &n.ChannelStatus); err != nil {
			return models.Notification{}, fmt.Errorf("failed to unmarshal channel statuses: %w", err)
		}
	}
	return n, nil
}
