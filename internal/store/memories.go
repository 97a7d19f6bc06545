package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cojourney/cjagent/internal/memory"
)

// CreateMemory appends m to namespace.
func (s *Store) CreateMemory(ctx context.Context, namespace string, m *memory.Memory) error {
	userIDs, err := json.Marshal(m.UserIDs)
	if err != nil {
		return fmt.Errorf("marshal user ids: %w", err)
	}
	content, err := json.Marshal(m.Content)
	if err != nil {
		return fmt.Errorf("marshal content: %w", err)
	}
	var emb []byte
	if len(m.Embedding) > 0 {
		emb = memory.EncodeVector(m.Embedding)
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = s.now()
	}
	_, err = s.db.ExecContext(ctx, `
	INSERT INTO memories (id, namespace, user_id, room_id, user_ids, content, embedding, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, namespace, m.UserID, m.RoomID, string(userIDs), string(content), emb, toUnix(m.CreatedAt),
	)
	return err
}

// GetMemories returns memories of namespace matching q, oldest first. With
// q.Count > 0 only the newest q.Count are returned.
func (s *Store) GetMemories(ctx context.Context, namespace string, q memory.Query) ([]memory.Memory, error) {
	query := `SELECT id, user_id, room_id, user_ids, content, embedding, created_at FROM memories WHERE namespace = ?`
	args := []any{namespace}
	if q.RoomID != "" {
		query += " AND room_id = ?"
		args = append(args, q.RoomID)
	}
	if q.UserID != "" {
		query += " AND user_id = ?"
		args = append(args, q.UserID)
	}
	query += " ORDER BY created_at DESC, seq DESC"
	if q.Count > 0 {
		query += " LIMIT ?"
		args = append(args, q.Count)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []memory.Memory
	for rows.Next() {
		var (
			m                memory.Memory
			userIDs, content string
			emb              []byte
			created          int64
		)
		if err := rows.Scan(&m.ID, &m.UserID, &m.RoomID, &userIDs, &content, &emb, &created); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(userIDs), &m.UserIDs); err != nil {
			return nil, fmt.Errorf("memory %s user ids: %w", m.ID, err)
		}
		if err := json.Unmarshal([]byte(content), &m.Content); err != nil {
			return nil, fmt.Errorf("memory %s content: %w", m.ID, err)
		}
		m.Embedding = memory.DecodeVector(emb)
		m.CreatedAt = fromUnix(created)
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// RemoveAllByUserIDs deletes every memory of namespace authored by userIDs.
func (s *Store) RemoveAllByUserIDs(ctx context.Context, namespace string, userIDs []string) error {
	if len(userIDs) == 0 {
		return nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(userIDs)), ",")
	args := make([]any, 0, len(userIDs)+1)
	args = append(args, namespace)
	for _, id := range userIDs {
		args = append(args, id)
	}
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM memories WHERE namespace = ? AND user_id IN (`+placeholders+`)`, args...)
	return err
}
