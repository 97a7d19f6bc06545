package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cojourney/cjagent/internal/actions"
	"github.com/cojourney/cjagent/internal/memory"
	"github.com/cojourney/cjagent/internal/state"
	"github.com/cojourney/cjagent/internal/store"
)

// timeProvider tells the model what time it is.
type timeProvider struct {
	now func() time.Time
}

func (p timeProvider) Get(context.Context, *memory.Message, *state.State) (string, error) {
	return "The current time is: " + p.now().UTC().Format("Monday, January 2, 2006 15:04 MST"), nil
}

// ComposeState builds a fresh snapshot for msg. It fails only when the store
// does; provider failures drop that provider's block.
func (r *Runtime) ComposeState(ctx context.Context, msg *memory.Message) (*state.State, error) {
	st := &state.State{
		AgentID:   r.agentID,
		AgentName: r.agentName,
		SenderID:  msg.UserID,
		RoomID:    msg.RoomID,
	}

	recent, err := r.messages.GetMemories(ctx, memory.Query{RoomID: msg.RoomID, Count: r.recentMessageCount})
	if err != nil {
		return nil, err
	}
	st.RecentMessages = recent

	if st.Actors, err = r.actors(ctx, msg); err != nil {
		return nil, err
	}
	st.SenderName = st.ActorName(msg.UserID)

	if st.Goals, err = r.goals.ActiveGoals(ctx, msg.UserID, msg.RoomID); err != nil {
		return nil, err
	}

	rels, err := r.store.GetRelationshipsByUser(ctx, msg.UserID)
	if err != nil {
		return nil, fmt.Errorf("get relationships: %w", err)
	}
	st.Relationships = rels
	st.Names = make(map[string]string, len(rels))
	for _, rel := range rels {
		other := rel.Other(msg.UserID)
		if _, ok := st.Names[other]; !ok {
			st.Names[other] = r.displayName(ctx, other)
		}
	}

	valid := r.registry.Valid(ctx, r, msg)
	st.ActionNames = actions.Names(valid)
	st.Actions = actions.FormatActions(valid)
	st.ActionExamples = actions.FormatExamples(valid, r.agentName, st.SenderName)

	var blocks []string
	for _, p := range r.providers {
		text, err := p.Get(ctx, msg, st)
		if err != nil {
			slog.Warn("State provider failed", "room", msg.RoomID, "error", err)
			continue
		}
		if text = strings.TrimSpace(text); text != "" {
			blocks = append(blocks, text)
		}
	}
	st.Providers = strings.Join(blocks, "\n")
	return st, nil
}

// actors lists the room's participants, plus the sender and any users named
// on the message, each with their latest rolodex description.
func (r *Runtime) actors(ctx context.Context, msg *memory.Message) ([]state.Actor, error) {
	ids, err := r.store.GetParticipants(ctx, msg.RoomID)
	if err != nil {
		return nil, fmt.Errorf("get participants: %w", err)
	}
	seen := make(map[string]bool, len(ids)+1)
	var ordered []string
	for _, id := range append(append(ids, msg.UserID), msg.UserIDs...) {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		ordered = append(ordered, id)
	}

	out := make([]state.Actor, 0, len(ordered))
	for _, id := range ordered {
		a := state.Actor{ID: id, Name: r.displayName(ctx, id)}
		descs, err := r.descriptions.GetMemories(ctx, memory.Query{UserID: id, Count: 1})
		if err != nil {
			return nil, err
		}
		if len(descs) > 0 {
			a.Details = descs[0].Content.Text
		}
		out = append(out, a)
	}
	return out, nil
}

func (r *Runtime) displayName(ctx context.Context, id string) string {
	if id == r.agentID {
		return r.agentName
	}
	acc, err := r.store.GetAccountByID(ctx, id)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			slog.Warn("Account lookup failed", "user", id, "error", err)
		}
		return id
	}
	if acc.Name == "" {
		return id
	}
	return acc.Name
}
