package db

import (
	"context"
	"fmt"

	"portal-notification-service/internal/models"
)

// ResolveTarget expands a targeting variant to a concrete user list. Role
// membership and the broadcast population come from the portal's user
// tables; the engine never interprets them itself.
func (d *DB) ResolveTarget(ctx context.Context, t models.Target) ([]string, error) {
	switch t.Kind {
	case models.TargetUser:
		return []string{t.UserID}, nil
	case models.TargetUsers:
		return dedupe(t.UserIDs), nil
	case models.TargetRoles:
		rows, err := d.Pool.Query(ctx, `
            SELECT DISTINCT user_id FROM user_roles WHERE role_id = ANY($1)`, t.RoleIDs)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve roles %v: %w", t.RoleIDs, err)
		}
		defer rows.Close()
		var userIDs []string
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				return nil, fmt.Errorf("failed to scan user_id: %w", err)
			}
			userIDs = append(userIDs, id)
		}
		return userIDs, rows.Err()
	case models.TargetBroadcast:
		rows, err := d.Pool.Query(ctx, `SELECT id FROM users WHERE status = 'active'`)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve broadcast: %w", err)
		}
		defer rows.Close()
		var userIDs []string
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				return nil, fmt.Errorf("failed to scan user_id: %w", err)
			}
			userIDs = append(userIDs, id)
		}
		return userIDs, rows.Err()
	default:
		return nil, fmt.Errorf("unknown target kind %q", t.Kind)
	}
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	var out []string
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
