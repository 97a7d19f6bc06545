// Package goal tracks multi-step goals per (user, room) and their objectives.
package goal

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a goal.
type Status string

const (
	StatusNotStarted Status = "NOT_STARTED"
	StatusInProgress Status = "IN_PROGRESS"
	StatusDone       Status = "DONE"
)

// Objective is one step of a goal.
type Objective struct {
	Description string `json:"description"`
	Completed   bool   `json:"completed"`
}

// Goal is a named list of objectives scoped to a user and room.
type Goal struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	Status     Status      `json:"status"`
	RoomID     string      `json:"room_id"`
	UserID     string      `json:"user_id"`
	Objectives []Objective `json:"objectives"`
}

// AllObjectivesCompleted reports whether every objective of g is complete.
func AllObjectivesCompleted(g Goal) bool {
	for _, o := range g.Objectives {
		if !o.Completed {
			return false
		}
	}
	return len(g.Objectives) > 0
}

// Active reports whether the goal still has work left.
func (g Goal) Active() bool {
	return g.Status != StatusDone
}

var (
	// ErrNoObjectives is returned when creating a goal without objectives.
	ErrNoObjectives = errors.New("goal needs at least one objective")
	// ErrObjectiveRange is returned for an objective index outside the goal.
	ErrObjectiveRange = errors.New("objective index out of range")
)

// Store persists goals.
type Store interface {
	CreateGoal(ctx context.Context, g *Goal) error
	GetGoal(ctx context.Context, id string) (*Goal, error)
	// CompleteObjective atomically sets objective index of goal id to
	// completed and moves the goal to DONE when none is left, IN_PROGRESS
	// otherwise. It reports false when the objective was already complete.
	CompleteObjective(ctx context.Context, id string, index int) (bool, error)
	GetGoals(ctx context.Context, userID, roomID string) ([]Goal, error)
}

// Tracker applies goal rules on top of a Store.
type Tracker struct {
	store Store
}

// NewTracker creates a Tracker.
func NewTracker(store Store) *Tracker {
	return &Tracker{store: store}
}

// CreateGoal validates and stores g. Missing IDs and statuses are filled in.
func (t *Tracker) CreateGoal(ctx context.Context, g *Goal) error {
	if len(g.Objectives) == 0 {
		return ErrNoObjectives
	}
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	if g.Status == "" {
		g.Status = StatusNotStarted
	}
	if err := t.store.CreateGoal(ctx, g); err != nil {
		return fmt.Errorf("create goal %q: %w", g.Name, err)
	}
	return nil
}

// CompleteObjective marks objective index of goal goalID as completed.
// Completion never reverts; the goal moves to DONE once every objective is
// completed and to IN_PROGRESS otherwise. It reports whether anything changed.
func (t *Tracker) CompleteObjective(ctx context.Context, goalID string, index int) (bool, error) {
	if index < 0 {
		return false, fmt.Errorf("goal %s objective %d: %w", goalID, index, ErrObjectiveRange)
	}
	changed, err := t.store.CompleteObjective(ctx, goalID, index)
	if err != nil {
		return false, fmt.Errorf("complete objective: %w", err)
	}
	return changed, nil
}

// ActiveGoals returns goals of userID in roomID that are not DONE.
func (t *Tracker) ActiveGoals(ctx context.Context, userID, roomID string) ([]Goal, error) {
	all, err := t.store.GetGoals(ctx, userID, roomID)
	if err != nil {
		return nil, fmt.Errorf("get goals: %w", err)
	}
	out := all[:0]
	for _, g := range all {
		if g.Active() {
			out = append(out, g)
		}
	}
	return out, nil
}

// Format renders goals for prompts, numbering objectives so a model can
// refer to them by index.
func Format(goals []Goal) string {
	var sb strings.Builder
	for i, g := range goals {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "Goal: %s\nid: %s\nstatus: %s\nObjectives:\n", g.Name, g.ID, g.Status)
		for j, o := range g.Objectives {
			mark := "[ ]"
			if o.Completed {
				mark = "[x]"
			}
			fmt.Fprintf(&sb, "%d. %s %s\n", j, mark, o.Description)
		}
	}
	return sb.String()
}
