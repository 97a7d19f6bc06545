package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrSelfRelationship is returned when both ends of a relationship are the
// same user.
var ErrSelfRelationship = errors.New("relationship needs two distinct users")

// RelationshipPending is the status of a freshly introduced pair.
const RelationshipPending = "PENDING"

// NormalizePair orders a pair so the smaller ID comes first.
func NormalizePair(a, b string) (string, string) {
	if b < a {
		return b, a
	}
	return a, b
}

// CreateRelationship records a relationship between a and b and opens a room
// for the pair. The pair is unordered; recording an existing pair returns
// the stored relationship with created=false.
func (s *Store) CreateRelationship(ctx context.Context, a, b string) (rel *Relationship, created bool, err error) {
	if a == "" || b == "" || a == b {
		return nil, false, ErrSelfRelationship
	}
	userA, userB := NormalizePair(a, b)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, err
	}
	defer func() {
		if err != nil || !created {
			_ = tx.Rollback()
		}
	}()

	now := s.now()
	roomID, err := createRoom(ctx, tx, "", toUnix(now))
	if err != nil {
		return nil, false, err
	}
	for _, u := range []string{userA, userB} {
		if err = addParticipant(ctx, tx, roomID, u, toUnix(now)); err != nil {
			return nil, false, err
		}
	}

	r := &Relationship{
		ID:        uuid.NewString(),
		UserA:     userA,
		UserB:     userB,
		Status:    RelationshipPending,
		RoomID:    roomID,
		CreatedAt: now,
	}
	res, err := tx.ExecContext(ctx, `
	INSERT INTO relationships (id, user_a, user_b, status, room_id, created_at)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(user_a, user_b) DO NOTHING`,
		r.ID, r.UserA, r.UserB, r.Status, r.RoomID, toUnix(r.CreatedAt),
	)
	if err != nil {
		return nil, false, fmt.Errorf("insert relationship: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, false, err
	}
	if n == 0 {
		// Already known: drop the speculative room and return what is stored.
		_ = tx.Rollback()
		existing, err := s.GetRelationship(ctx, userA, userB)
		return existing, false, err
	}
	created = true
	if err = tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("commit relationship: %w", err)
	}
	return r, true, nil
}

// GetRelationship returns the relationship between a and b in either order,
// or ErrNotFound.
func (s *Store) GetRelationship(ctx context.Context, a, b string) (*Relationship, error) {
	userA, userB := NormalizePair(a, b)
	var (
		r       Relationship
		created int64
	)
	err := s.db.QueryRowContext(ctx, `
	SELECT id, user_a, user_b, status, room_id, created_at
	FROM relationships WHERE user_a = ? AND user_b = ?`, userA, userB,
	).Scan(&r.ID, &r.UserA, &r.UserB, &r.Status, &r.RoomID, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	r.CreatedAt = fromUnix(created)
	return &r, nil
}

// GetRelationshipsByUser returns every relationship touching userID, oldest first.
func (s *Store) GetRelationshipsByUser(ctx context.Context, userID string) ([]Relationship, error) {
	rows, err := s.db.QueryContext(ctx, `
	SELECT id, user_a, user_b, status, room_id, created_at
	FROM relationships WHERE user_a = ? OR user_b = ?
	ORDER BY created_at, rowid`, userID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Relationship
	for rows.Next() {
		var (
			r       Relationship
			created int64
		)
		if err := rows.Scan(&r.ID, &r.UserA, &r.UserB, &r.Status, &r.RoomID, &created); err != nil {
			return nil, err
		}
		r.CreatedAt = fromUnix(created)
		out = append(out, r)
	}
	return out, rows.Err()
}
