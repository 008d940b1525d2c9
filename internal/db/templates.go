package db

import (
	"context"
	"encoding/json"
	"fmt"

	"portal-notification-service/internal/models"
)

// LoadTemplates returns every stored notification template. Used to seed the
// in-memory template store at startup.
func (d *DB) LoadTemplates(ctx context.Context) ([]models.Template, error) {
	rows, err := d.Pool.Query(ctx, `SELECT type, payload, updated_at FROM notification_templates`)
	if err != nil {
		return nil, fmt.Errorf("failed to load templates: %w", err)
	}
	defer rows.Close()

	var templates []models.Template
	for rows.Next() {
		var typ string
		var payload []byte
		var t models.Template
		if err := rows.Scan(&typ, &payload, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan template: %w", err)
		}
		if err := json.Unmarshal(payload, &t); err != nil {
			return nil, fmt.Errorf("failed to unmarshal template %s: %w", typ, err)
		}
		t.Type = typ
		templates = append(templates, t)
	}
	return templates, rows.Err()
}

// UpsertTemplate stores a template for one notification type.
func (d *DB) UpsertTemplate(ctx context.Context, t models.Template) error {
	payload, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("failed to marshal template: %w", err)
	}
	_, err = d.Pool.Exec(ctx, `
        INSERT INTO notification_templates (type, payload, updated_at)
        VALUES ($1, $2, NOW())
        ON CONFLICT (type) DO UPDATE SET payload = EXCLUDED.payload, updated_at = NOW()`,
		t.Type, payload)
	if err != nil {
		return fmt.Errorf("failed to upsert template %s: %w", t.Type, err)
	}
	return nil
}
