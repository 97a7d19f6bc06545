package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// CreateAccount inserts or replaces an account.
func (s *Store) CreateAccount(ctx context.Context, a *Account) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	details, err := json.Marshal(a.Details)
	if err != nil {
		return fmt.Errorf("marshal account details: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
	INSERT INTO accounts (id, name, email, avatar_url, details, created_at)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET name = excluded.name, email = excluded.email,
		avatar_url = excluded.avatar_url, details = excluded.details`,
		a.ID, a.Name, a.Email, a.AvatarURL, string(details), toUnix(s.now()),
	)
	return err
}

// GetAccountByID returns the account or ErrNotFound.
func (s *Store) GetAccountByID(ctx context.Context, id string) (*Account, error) {
	var (
		a       Account
		details string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, email, avatar_url, details FROM accounts WHERE id = ?`, id,
	).Scan(&a.ID, &a.Name, &a.Email, &a.AvatarURL, &details)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("account %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if details != "" && details != "null" {
		if err := json.Unmarshal([]byte(details), &a.Details); err != nil {
			return nil, fmt.Errorf("account %s details: %w", id, err)
		}
	}
	return &a, nil
}

// CreateRoom creates an empty room and returns its ID.
func (s *Store) CreateRoom(ctx context.Context, name string) (string, error) {
	return createRoom(ctx, s.db, name, toUnix(s.now()))
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func createRoom(ctx context.Context, db execer, name string, at int64) (string, error) {
	id := uuid.NewString()
	if _, err := db.ExecContext(ctx, `INSERT INTO rooms (id, name, created_at) VALUES (?, ?, ?)`, id, name, at); err != nil {
		return "", fmt.Errorf("create room: %w", err)
	}
	return id, nil
}

func addParticipant(ctx context.Context, db execer, roomID, userID string, at int64) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO participants (room_id, user_id, created_at) VALUES (?, ?, ?) ON CONFLICT DO NOTHING`,
		roomID, userID, at)
	if err != nil {
		return fmt.Errorf("add participant %s to room %s: %w", userID, roomID, err)
	}
	return nil
}

// AddParticipant adds userID to roomID. Adding twice is a no-op.
func (s *Store) AddParticipant(ctx context.Context, roomID, userID string) error {
	return addParticipant(ctx, s.db, roomID, userID, toUnix(s.now()))
}

// GetParticipants returns the users in roomID in join order.
func (s *Store) GetParticipants(ctx context.Context, roomID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id FROM participants WHERE room_id = ? ORDER BY created_at, rowid`, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// FindRoomByParticipants returns the oldest room both users are in, or
// ErrNotFound.
func (s *Store) FindRoomByParticipants(ctx context.Context, userA, userB string) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `
	SELECT r.id FROM rooms r
	JOIN participants a ON a.room_id = r.id AND a.user_id = ?
	JOIN participants b ON b.room_id = r.id AND b.user_id = ?
	ORDER BY r.created_at, r.rowid
	LIMIT 1`, userA, userB).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	return id, err
}
