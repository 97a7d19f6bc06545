package agent

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
	"github.com/cojourney/cjagent/internal/worker"
)

// Phase is a step of handling one message.
type Phase string

const (
	PhaseReceived            Phase = "RECEIVED"
	PhaseContextComposed     Phase = "CONTEXT_COMPOSED"
	PhaseCompletionPending   Phase = "COMPLETION_PENDING"
	PhaseCompletionValid     Phase = "COMPLETION_VALID"
	PhaseCompletionExhausted Phase = "COMPLETION_EXHAUSTED"
	PhaseActionDispatched    Phase = "ACTION_DISPATCHED"
	PhasePersisted           Phase = "PERSISTED"
	PhaseEvaluated           Phase = "EVALUATED"
	PhaseFallbackPersisted   Phase = "FALLBACK_PERSISTED"
)

// Outcome reports what happened to one message.
type Outcome struct {
	Phases  []Phase
	Content memory.Content
	// DispatchErr is the action handler's error. It does not stop persistence.
	DispatchErr error
	// Continuation tracks background work scheduled by the action, if any.
	Continuation *worker.Handle
}

// Final returns the last phase reached.
func (o *Outcome) Final() Phase {
	if len(o.Phases) == 0 {
		return ""
	}
	return o.Phases[len(o.Phases)-1]
}

func (o *Outcome) enter(p Phase) { o.Phases = append(o.Phases, p) }

// Receive persists an inbound message and handles it.
func (r *Runtime) Receive(ctx context.Context, msg *memory.Message) (*Outcome, error) {
	if err := validateMessage(msg); err != nil {
		return nil, err
	}
	err := r.messages.CreateMemory(ctx, &memory.Memory{
		UserID:  msg.UserID,
		RoomID:  msg.RoomID,
		UserIDs: msg.UserIDs,
		Content: msg.Content,
	})
	if err != nil {
		return nil, err
	}
	return r.HandleMessage(ctx, msg)
}

// HandleMessage runs one unit of work for msg, which must already be stored.
// It returns once the reply, or the IGNORE fallback, is persisted and
// evaluated; continuations keep running in the background.
func (r *Runtime) HandleMessage(ctx context.Context, msg *memory.Message) (*Outcome, error) {
	if err := validateMessage(msg); err != nil {
		return nil, err
	}
	out := &Outcome{}
	out.enter(PhaseReceived)
	log := slog.With("room", msg.RoomID, "user", msg.UserID)

	st, err := r.ComposeState(ctx, msg)
	if err != nil {
		return out, fmt.Errorf("compose state: %w", err)
	}
	out.enter(PhaseContextComposed)

	out.enter(PhaseCompletionPending)
	content, err := r.loop.Generate(ctx, r.replyRequest(msg, st, audit.TypeHandleMessage))
	if err != nil {
		out.enter(PhaseCompletionExhausted)
		log.Warn("No valid reply, ignoring message", "error", err)
		out.Content = completion.Fallback()
		if err := r.persistReply(ctx, msg.RoomID, out.Content); err != nil {
			return out, err
		}
		// Goal and profile tracking still see every inbound message.
		r.evaluate(ctx, msg, st.WithResponse(out.Content))
		out.enter(PhaseFallbackPersisted)
		return out, nil
	}
	out.enter(PhaseCompletionValid)
	out.Content = content

	result, err := r.Dispatch(ctx, msg, content, st)
	if err != nil {
		log.Error("Action failed", "action", content.Action, "error", err)
		out.DispatchErr = err
	}
	out.enter(PhaseActionDispatched)

	if err := r.persistReply(ctx, msg.RoomID, content); err != nil {
		return out, err
	}
	if result.Content != nil && result.Content.Valid() {
		if err := r.persistReply(ctx, msg.RoomID, *result.Content); err != nil {
			return out, err
		}
	}
	out.enter(PhasePersisted)

	r.evaluate(ctx, msg, st.WithResponse(content))
	out.enter(PhaseEvaluated)

	if result.Continuation != nil {
		out.Continuation = r.schedule("continuation "+msg.RoomID, result.Continuation)
	}
	return out, nil
}

// Dispatch runs the handler of content's action. Unknown or empty actions
// are a no-op. Validity is decided once, when the state is composed.
func (r *Runtime) Dispatch(ctx context.Context, msg *memory.Message, content memory.Content, st *state.State) (actions.Result, error) {
	name := strings.TrimSpace(content.Action)
	if name == "" {
		return actions.Result{}, nil
	}
	a, ok := r.registry.Get(name)
	if !ok {
		slog.Debug("Unknown action ignored", "action", name, "room", msg.RoomID)
		return actions.Result{}, nil
	}
	return a.Handler(ctx, r, msg, st.WithResponse(content))
}

// evaluate runs every applicable evaluator for msg. Failures are logged.
func (r *Runtime) evaluate(ctx context.Context, msg *memory.Message, st *state.State) {
	for _, ev := range r.evaluators {
		if ev.Validate != nil && !ev.Validate(ctx, r, msg) {
			continue
		}
		if err := ev.Handler(ctx, r, msg, st); err != nil {
			slog.Warn("Evaluator failed", "evaluator", ev.Name, "room", msg.RoomID, "error", err)
		}
	}
}

func (r *Runtime) replyRequest(msg *memory.Message, st *state.State, typ string) completion.Request {
	return completion.Request{
		Context: prompt.Compose(st.Vars(), prompt.MessageHandler),
		Speaker: r.agentName,
		Message: msg,
		UserID:  msg.UserID,
		RoomID:  msg.RoomID,
		Type:    typ,
	}
}

// persistReply stores an agent message. An action-only reply such as the
// IGNORE fallback is stored too so the transcript shows the agent passed.
func (r *Runtime) persistReply(ctx context.Context, roomID string, c memory.Content) error {
	if !c.Valid() {
		return nil
	}
	return r.messages.CreateMemory(ctx, &memory.Memory{
		UserID:  r.agentID,
		RoomID:  roomID,
		Content: c,
	})
}

// schedule hands t to the pool, or runs it inline without one.
func (r *Runtime) schedule(name string, t worker.Task) *worker.Handle {
	if r.pool == nil {
		if err := t(context.Background()); err != nil {
			slog.Warn("Background task failed", "task", name, "error", err)
		}
		return nil
	}
	h, err := r.pool.Submit(name, t)
	if err != nil {
		slog.Error("Background task dropped", "task", name, "error", err)
		return nil
	}
	return h
}

func validateMessage(msg *memory.Message) error {
	if msg == nil {
		return fmt.Errorf("%w: nil message", ErrConfiguration)
	}
	if msg.RoomID == "" {
		return fmt.Errorf("%w: room id is required", ErrConfiguration)
	}
	if msg.UserID == "" {
		return fmt.Errorf("%w: user id is required", ErrConfiguration)
	}
	return nil
}
