package agent

import (
	"context"
	"log/slog"
	"strings"

	"github.com/cojourney/cjagent/internal/audit"
	"github.com/cojourney/cjagent/internal/memory"
	"github.com/cojourney/cjagent/internal/state"
)

// continueConversation lets the agent speak again after an ELABORATE reply.
// It runs in the background, so every failure is logged and dropped.
func (r *Runtime) continueConversation(ctx context.Context, msg *memory.Message) {
	log := slog.With("room", msg.RoomID, "user", msg.UserID)

	st, err := r.ComposeState(ctx, msg)
	if err != nil {
		log.Warn("Continuation stopped: compose state", "error", err)
		return
	}
	if ShouldSkip(st) {
		log.Debug("Continuation skipped, agent already spoke")
		return
	}

	content, err := r.loop.Generate(ctx, r.replyRequest(msg, st, audit.TypeElaborate))
	if err != nil {
		log.Warn("Continuation stopped: no valid reply", "error", err)
		return
	}
	if r.repeats(st, content) {
		log.Info("Continuation dropped repeated reply")
		return
	}
	if content.Action == ActionElaborate && r.elaborationCapped(st) {
		content.Action = ActionWait
	}

	if err := r.persistReply(ctx, msg.RoomID, content); err != nil {
		log.Error("Continuation reply not saved", "error", err)
		return
	}
	r.evaluate(ctx, msg, st.WithResponse(content))

	result, err := r.Dispatch(ctx, msg, content, st)
	if err != nil {
		log.Error("Continuation action failed", "action", content.Action, "error", err)
		return
	}
	if result.Content != nil && result.Content.Valid() {
		if err := r.persistReply(ctx, msg.RoomID, *result.Content); err != nil {
			log.Error("Continuation content not saved", "error", err)
		}
	}
	if result.Continuation != nil {
		if err := result.Continuation(ctx); err != nil {
			log.Warn("Continuation failed", "error", err)
		}
	}
}

// repeats reports whether c says what one of the agent's latest messages said.
func (r *Runtime) repeats(st *state.State, c memory.Content) bool {
	text := strings.TrimSpace(c.Text)
	if text == "" {
		return false
	}
	own := r.agentMessages(st, r.maxContinues+1)
	for _, m := range own {
		if strings.EqualFold(strings.TrimSpace(m.Content.Text), text) {
			return true
		}
	}
	return false
}

// elaborationCapped reports whether the agent's last maxContinues messages
// were all ELABORATE.
func (r *Runtime) elaborationCapped(st *state.State) bool {
	own := r.agentMessages(st, r.maxContinues)
	if len(own) < r.maxContinues {
		return false
	}
	for _, m := range own {
		if m.Content.Action != ActionElaborate {
			return false
		}
	}
	return true
}

// agentMessages returns up to n of the agent's most recent messages.
func (r *Runtime) agentMessages(st *state.State, n int) []memory.Memory {
	var out []memory.Memory
	for i := len(st.RecentMessages) - 1; i >= 0 && len(out) < n; i-- {
		if st.RecentMessages[i].UserID == r.agentID {
			out = append(out, st.RecentMessages[i])
		}
	}
	return out
}
