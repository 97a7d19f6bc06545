package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/cojourney/cjagent/internal/audit"
)

// Log implements audit.Logger by appending to the logs table.
func (s *Store) Log(ctx context.Context, e audit.Entry) error {
	body, err := json.Marshal(e.Body)
	if err != nil {
		return fmt.Errorf("marshal log body: %w", err)
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now()
	}
	_, err = s.db.ExecContext(ctx, `
	INSERT INTO logs (id, body, user_id, room_id, type, created_at)
	VALUES (?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), string(body), e.UserID, e.RoomID, e.Type, toUnix(e.CreatedAt),
	)
	return err
}

// Logs returns the audit entries of roomID in insertion order.
func (s *Store) Logs(ctx context.Context, roomID string) ([]audit.Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT body, user_id, room_id, type, created_at FROM logs WHERE room_id = ? ORDER BY seq`, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []audit.Entry
	for rows.Next() {
		var (
			e       audit.Entry
			body    string
			created int64
		)
		if err := rows.Scan(&body, &e.UserID, &e.RoomID, &e.Type, &created); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(body), &e.Body); err != nil {
			return nil, fmt.Errorf("log body: %w", err)
		}
		e.CreatedAt = fromUnix(created)
		out = append(out, e)
	}
	return out, rows.Err()
}
