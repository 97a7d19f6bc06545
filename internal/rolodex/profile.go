package rolodex

import (
	"context"
	"fmt"
	"strings"

	"github.com/cojourney/cjagent/internal/actions"
	"github.com/cojourney/cjagent/internal/audit"
	"github.com/cojourney/cjagent/internal/completion"
	"github.com/cojourney/cjagent/internal/memory"
	"github.com/cojourney/cjagent/internal/prompt"
	"github.com/cojourney/cjagent/internal/state"
)

var profileSchema = completion.Schema{Required: []string{"description"}}

type profile struct {
	User        string `json:"user"`
	Description string `json:"description"`
}

// ProfileEvaluator keeps the sender's rolodex description up to date from
// the conversation. A description is stored only when it is new.
func ProfileEvaluator() actions.Evaluator {
	return actions.Evaluator{
		Name:        "UPDATE_PROFILE",
		Description: "Extract a short description of the sender for the rolodex",
		Validate: func(_ context.Context, rt actions.Runtime, msg *memory.Message) bool {
			return msg.UserID != "" && msg.UserID != rt.AgentID()
		},
		Handler: evaluateProfile,
	}
}

func evaluateProfile(ctx context.Context, rt actions.Runtime, msg *memory.Message, st *state.State) error {
	var out profile
	req := completion.Request{
		Context: prompt.Compose(st.Vars(), prompt.ProfileEvaluation),
		Message: msg,
		UserID:  msg.UserID,
		RoomID:  msg.RoomID,
		Type:    audit.TypeEvaluate,
	}
	if err := rt.Completion().Decode(ctx, req, profileSchema, &out); err != nil {
		return fmt.Errorf("profile evaluation: %w", err)
	}
	desc := strings.TrimSpace(out.Description)
	if desc == "" {
		return nil
	}

	existing, err := rt.Descriptions().GetMemories(ctx, memory.Query{UserID: msg.UserID})
	if err != nil {
		return err
	}
	if n := len(existing); n > 0 && strings.EqualFold(existing[n-1].Content.Text, desc) {
		return nil
	}

	mem := &memory.Memory{
		UserID:  msg.UserID,
		RoomID:  msg.RoomID,
		Content: memory.Content{Text: desc},
	}
	if err := rt.Descriptions().AddEmbedding(ctx, mem); err != nil {
		return err
	}
	return rt.Descriptions().CreateMemory(ctx, mem)
}
