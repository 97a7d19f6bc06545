package rolodex

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cojourney/cjagent/internal/actions"
	"github.com/cojourney/cjagent/internal/audit"
	"github.com/cojourney/cjagent/internal/completion"
	"github.com/cojourney/cjagent/internal/memory"
	"github.com/cojourney/cjagent/internal/prompt"
	"github.com/cojourney/cjagent/internal/state"
)

// IntroduceName is the action tag for introductions.
const IntroduceName = "INTRODUCE"

// IntroductionSchema is the shape the introduction prompt must produce.
var IntroductionSchema = completion.Schema{
	Required: []string{"userA", "userB", "explanation"},
	NonEmpty: []string{"userA", "userB"},
}

// Introduction is a decoded pairing.
type Introduction struct {
	UserA       string `json:"userA"`
	UserB       string `json:"userB"`
	Explanation string `json:"explanation"`
}

// Action returns the INTRODUCE action backed by e.
func (e *Engine) Action() actions.Action {
	return actions.Action{
		Name: IntroduceName,
		Description: "Introduce the user to someone from the rolodex who they might like to chat with. " +
			"Only use this if the user is expressing interest in meeting someone new. " +
			"If the user has not expressed interest, DO NOT USE THIS ACTION.",
		Condition: "The agent wants to introduce the user to someone from the rolodex",
		Validate:  e.validate,
		Handler:   e.introduce,
		Examples:  introduceExamples,
	}
}

func (e *Engine) validate(ctx context.Context, rt actions.Runtime, msg *memory.Message) bool {
	ok, err := HasProfile(ctx, rt, msg.UserID)
	if err != nil {
		slog.Warn("Rolodex profile check failed", "user", msg.UserID, "error", err)
		return false
	}
	return ok
}

// introduce never fails the surrounding message; every problem is logged
// and no relationship is created.
func (e *Engine) introduce(ctx context.Context, rt actions.Runtime, msg *memory.Message, _ *state.State) (actions.Result, error) {
	log := slog.With("user", msg.UserID, "room", msg.RoomID)

	st, err := rt.ComposeState(ctx, msg)
	if err != nil {
		log.Warn("Introduction skipped: compose state", "error", err)
		return actions.Result{}, nil
	}
	candidates, err := e.Relevant(ctx, rt, msg, 0)
	if err != nil {
		log.Info("Introduction skipped", "error", err)
		return actions.Result{}, nil
	}
	st.RelevantRelationships = Format(candidates)

	var out Introduction
	req := completion.Request{
		Context: prompt.Compose(st.Vars(), prompt.Introduce),
		Message: msg,
		UserID:  msg.UserID,
		RoomID:  msg.RoomID,
		Type:    audit.TypeIntroduce,
	}
	if err := rt.Completion().Decode(ctx, req, IntroductionSchema, &out); err != nil {
		log.Warn("No introduction made", "error", err)
		return actions.Result{}, nil
	}

	a, b, err := resolvePair(out, rt.AgentID(), candidates, st.Actors)
	if err != nil {
		log.Warn("No introduction made", "userA", out.UserA, "userB", out.UserB, "error", err)
		return actions.Result{}, nil
	}
	rel, created, err := rt.Relationships().CreateRelationship(ctx, a, b)
	if err != nil {
		log.Error("Create relationship failed", "userA", a, "userB", b, "error", err)
		return actions.Result{}, nil
	}
	log.Info("Introduction made", "relationship", rel.ID, "created", created, "explanation", out.Explanation)
	return actions.Result{}, nil
}

// resolvePair maps the model's names to user IDs known from the rolodex and
// the room. Either a display name or a raw ID is accepted.
func resolvePair(in Introduction, agentID string, candidates []Candidate, actors []state.Actor) (string, string, error) {
	known := map[string]string{}
	add := func(id, name string) {
		if id == "" || id == agentID {
			return
		}
		known[strings.ToLower(id)] = id
		if name != "" {
			if _, taken := known[strings.ToLower(name)]; !taken {
				known[strings.ToLower(name)] = id
			}
		}
	}
	for _, a := range actors {
		add(a.ID, a.Name)
	}
	for _, c := range candidates {
		add(c.UserID, c.Name)
	}

	a, ok := known[strings.ToLower(strings.TrimSpace(in.UserA))]
	if !ok {
		return "", "", fmt.Errorf("unknown person %q", in.UserA)
	}
	b, ok := known[strings.ToLower(strings.TrimSpace(in.UserB))]
	if !ok {
		return "", "", fmt.Errorf("unknown person %q", in.UserB)
	}
	if a == b {
		return "", "", fmt.Errorf("cannot introduce %q to themselves", in.UserA)
	}
	return a, b, nil
}

var introduceExamples = [][]actions.Example{
	{
		{User: "{{user1}}", Content: memory.Content{Text: "I've been wanting to meet someone who's into indie music like I am.", Action: "WAIT"}},
		{User: "{{agent}}", Content: memory.Content{Text: "I know just the person! Let me introduce you to Alex, who is a huge indie music fan.", Action: IntroduceName}},
		{User: "{{agent}}", Content: memory.Content{Text: "I've sent Alex a message to see if they're up for a chat. Hang tight!", Action: "WAIT"}},
	},
	{
		{User: "{{user1}}", Content: memory.Content{Text: "I'm trying to expand my professional network in the graphic design field.", Action: "WAIT"}},
		{User: "{{agent}}", Content: memory.Content{Text: "Great! I'll introduce you to Jordan, who is well-connected in the graphic design community.", Action: IntroduceName}},
		{User: "{{agent}}", Content: memory.Content{Text: "Jordan is usually quick to respond. Let's give them a moment.", Action: "WAIT"}},
	},
}
