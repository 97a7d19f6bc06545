package completion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cojourney/cjagent/internal/audit"
	"github.com/cojourney/cjagent/internal/memory"
	"github.com/cojourney/cjagent/internal/provider"
)

// ErrExhausted is returned by Decode when every attempt was invalid.
var ErrExhausted = errors.New("completion attempts exhausted")

// DefaultMaxTries is used when Options.MaxTries is not positive.
const DefaultMaxTries = 3

// ReplySchema is the shape of a conversational reply.
var ReplySchema = Schema{Required: []string{"user", "content"}, NonEmpty: []string{"user"}}

// Reply is a decoded conversational reply.
type Reply struct {
	User    string `json:"user"`
	Content string `json:"content"`
	Action  string `json:"action"`
}

// Fallback is returned by Obtain once every attempt failed.
func Fallback() memory.Content {
	return memory.Content{Text: "", Action: "IGNORE"}
}

// Request describes one completion task.
type Request struct {
	// Context is the fully composed prompt.
	Context string
	// Speaker is the name the reply must be attributed to.
	Speaker string
	Stop    []string

	// Message, UserID, RoomID and Type label the audit entries.
	Message *memory.Message
	UserID  string
	RoomID  string
	Type    string
}

// Options tune a Loop.
type Options struct {
	MaxTries int
	// AttemptTimeout bounds each completion call. Zero means no bound.
	AttemptTimeout time.Duration
}

// Loop calls the completion service until a valid reply arrives.
// Attempts are strictly sequential and each one is audit-logged in call order.
type Loop struct {
	completer provider.Completer
	audit     audit.Logger
	opts      Options
}

// NewLoop creates a Loop. A nil logger discards audit entries.
func NewLoop(c provider.Completer, log audit.Logger, opts Options) *Loop {
	if opts.MaxTries <= 0 {
		opts.MaxTries = DefaultMaxTries
	}
	if log == nil {
		log = audit.Discard
	}
	return &Loop{completer: c, audit: log, opts: opts}
}

// MaxTries returns the attempt budget.
func (l *Loop) MaxTries() int {
	return l.opts.MaxTries
}

// Obtain returns the first reply that parses, carries a user field naming
// req.Speaker (case-insensitive) and has text or an action. When every
// attempt fails it returns Fallback().
func (l *Loop) Obtain(ctx context.Context, req Request) memory.Content {
	c, err := l.Generate(ctx, req)
	if err != nil {
		slog.Warn("Completion exhausted, falling back", "type", req.Type, "room", req.RoomID, "tries", l.opts.MaxTries)
		return Fallback()
	}
	return c
}

// Generate is Obtain without the fallback: it returns an error wrapping
// ErrExhausted when no attempt produced a valid reply.
func (l *Loop) Generate(ctx context.Context, req Request) (memory.Content, error) {
	var out memory.Content
	err := l.run(ctx, req, func(raw string) error {
		var r Reply
		if err := DecodeInto(raw, ReplySchema, &r); err != nil {
			return err
		}
		if req.Speaker != "" && !strings.Contains(strings.ToLower(r.User), strings.ToLower(req.Speaker)) {
			return invalid(StageAttribution, "reply attributed to %q, want %q", r.User, req.Speaker)
		}
		c := memory.Content{Text: strings.TrimSpace(r.Content), Action: strings.ToUpper(strings.TrimSpace(r.Action))}
		if !c.Valid() {
			return invalid(StageSchema, "reply has neither text nor action")
		}
		out = c
		return nil
	})
	if err != nil {
		return memory.Content{}, err
	}
	return out, nil
}

// Decode runs the loop against an arbitrary schema and unmarshals the first
// valid object into dst.
func (l *Loop) Decode(ctx context.Context, req Request, schema Schema, dst any) error {
	return l.run(ctx, req, func(raw string) error {
		return DecodeInto(raw, schema, dst)
	})
}

func (l *Loop) run(ctx context.Context, req Request, accept func(raw string) error) error {
	var lastErr error
	for attempt := 1; attempt <= l.opts.MaxTries; attempt++ {
		raw, err := l.complete(ctx, req)
		if err == nil {
			err = accept(raw)
		} else {
			err = invalid(StageRequest, "%v", err)
		}
		l.record(ctx, req, attempt, raw, err)
		if err == nil {
			return nil
		}
		lastErr = err
		slog.Debug("Completion attempt rejected", "type", req.Type, "attempt", attempt, "error", err)
	}
	return fmt.Errorf("%w after %d tries: %w", ErrExhausted, l.opts.MaxTries, lastErr)
}

func (l *Loop) complete(ctx context.Context, req Request) (string, error) {
	if l.opts.AttemptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.opts.AttemptTimeout)
		defer cancel()
	}
	return l.completer.Complete(ctx, req.Context, req.Stop)
}

func (l *Loop) record(ctx context.Context, req Request, attempt int, raw string, err error) {
	body := map[string]any{
		"context":  req.Context,
		"response": raw,
		"attempt":  attempt,
	}
	if req.Message != nil {
		body["message"] = req.Message
	}
	if err != nil {
		body["error"] = err.Error()
	}
	entry := audit.Entry{Body: body, UserID: req.UserID, RoomID: req.RoomID, Type: req.Type, CreatedAt: time.Now().UTC()}
	if logErr := l.audit.Log(ctx, entry); logErr != nil {
		slog.Warn("Audit log write failed", "type", req.Type, "error", logErr)
	}
}
