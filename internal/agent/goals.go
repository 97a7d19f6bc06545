package agent

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cojourney/cjagent/internal/actions"
	"github.com/cojourney/cjagent/internal/audit"
	"github.com/cojourney/cjagent/internal/completion"
	"github.com/cojourney/cjagent/internal/memory"
	"github.com/cojourney/cjagent/internal/prompt"
	"github.com/cojourney/cjagent/internal/state"
)

var goalSchema = completion.Schema{Required: []string{"goals"}}

type goalProgress struct {
	Goals []struct {
		ID        string `json:"id"`
		Completed []int  `json:"completed"`
	} `json:"goals"`
}

// GoalEvaluator marks objectives of the sender's active goals as completed
// when the conversation shows them done. It runs for every handled message.
func GoalEvaluator() actions.Evaluator {
	return actions.Evaluator{
		Name:        "UPDATE_GOAL",
		Description: "Update the progress of the sender's active goals",
		Handler:     evaluateGoals,
	}
}

func evaluateGoals(ctx context.Context, rt actions.Runtime, msg *memory.Message, st *state.State) error {
	if len(st.Goals) == 0 {
		return nil
	}
	known := make(map[string]bool, len(st.Goals))
	for _, g := range st.Goals {
		known[g.ID] = true
	}

	var out goalProgress
	req := completion.Request{
		Context: prompt.Compose(st.Vars(), prompt.GoalEvaluation),
		Message: msg,
		UserID:  msg.UserID,
		RoomID:  msg.RoomID,
		Type:    audit.TypeEvaluate,
	}
	if err := rt.Completion().Decode(ctx, req, goalSchema, &out); err != nil {
		return fmt.Errorf("goal evaluation: %w", err)
	}

	for _, g := range out.Goals {
		if !known[g.ID] {
			slog.Debug("Goal evaluation named unknown goal", "goal", g.ID)
			continue
		}
		for _, idx := range g.Completed {
			changed, err := rt.Goals().CompleteObjective(ctx, g.ID, idx)
			if err != nil {
				slog.Warn("Objective not completed", "goal", g.ID, "objective", idx, "error", err)
				continue
			}
			if changed {
				slog.Info("Objective completed", "goal", g.ID, "objective", idx, "user", msg.UserID)
			}
		}
	}
	return nil
}
