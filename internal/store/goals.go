package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cojourney/cjagent/internal/goal"
)

// CreateGoal inserts g.
func (s *Store) CreateGoal(ctx context.Context, g *goal.Goal) error {
	objectives, err := json.Marshal(g.Objectives)
	if err != nil {
		return fmt.Errorf("marshal objectives: %w", err)
	}
	now := toUnix(s.now())
	_, err = s.db.ExecContext(ctx, `
	INSERT INTO goals (id, name, status, room_id, user_id, objectives, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		g.ID, g.Name, string(g.Status), g.RoomID, g.UserID, string(objectives), now, now,
	)
	return err
}

// GetGoal returns the goal or ErrNotFound.
func (s *Store) GetGoal(ctx context.Context, id string) (*goal.Goal, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, status, room_id, user_id, objectives FROM goals WHERE id = ?`, id)
	g, err := scanGoal(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("goal %s: %w", id, ErrNotFound)
	}
	return g, err
}

// CompleteObjective marks objective index of goal id as completed and
// recomputes the goal status in one transaction. Each write touches only its
// own array element, so concurrent completions of different objectives never
// undo each other. It reports false when the objective was already complete.
func (s *Store) CompleteObjective(ctx context.Context, id string, index int) (changed bool, err error) {
	if index < 0 {
		return false, fmt.Errorf("goal %s objective %d: %w", id, index, goal.ErrObjectiveRange)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	path := fmt.Sprintf("$[%d].completed", index)
	res, err := tx.ExecContext(ctx, `
	UPDATE goals SET objectives = json_set(objectives, ?, json('true')), updated_at = ?
	WHERE id = ? AND json_extract(objectives, ?) = 0`,
		path, toUnix(s.now()), id, path)
	if err != nil {
		return false, fmt.Errorf("complete objective: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		var size sql.NullInt64
		err = tx.QueryRowContext(ctx, `SELECT json_array_length(objectives) FROM goals WHERE id = ?`, id).Scan(&size)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return false, fmt.Errorf("goal %s: %w", id, ErrNotFound)
		case err != nil:
			return false, err
		case int64(index) >= size.Int64:
			err = fmt.Errorf("goal %s objective %d: %w", id, index, goal.ErrObjectiveRange)
			return false, err
		}
		return false, tx.Commit()
	}

	_, err = tx.ExecContext(ctx, `
	UPDATE goals SET status = CASE
		WHEN EXISTS (SELECT 1 FROM json_each(goals.objectives) WHERE json_extract(value, '$.completed') = 0) THEN ?
		ELSE ? END
	WHERE id = ?`,
		string(goal.StatusInProgress), string(goal.StatusDone), id)
	if err != nil {
		return false, fmt.Errorf("update goal status: %w", err)
	}
	return true, tx.Commit()
}

// GetGoals returns the goals of userID in roomID in creation order.
func (s *Store) GetGoals(ctx context.Context, userID, roomID string) ([]goal.Goal, error) {
	rows, err := s.db.QueryContext(ctx, `
	SELECT id, name, status, room_id, user_id, objectives FROM goals
	WHERE user_id = ? AND room_id = ? ORDER BY seq`, userID, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []goal.Goal
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *g)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGoal(r rowScanner) (*goal.Goal, error) {
	var (
		g          goal.Goal
		status     string
		objectives string
	)
	if err := r.Scan(&g.ID, &g.Name, &status, &g.RoomID, &g.UserID, &objectives); err != nil {
		return nil, err
	}
	g.Status = goal.Status(status)
	if err := json.Unmarshal([]byte(objectives), &g.Objectives); err != nil {
		return nil, fmt.Errorf("goal %s objectives: %w", g.ID, err)
	}
	return &g, nil
}
