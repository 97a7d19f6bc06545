// Package audit records every completion attempt the agent makes.
package audit

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Entry types written by the runtime.
const (
	TypeHandleMessage = "handle_message"
	TypeElaborate     = "elaborate"
	TypeIntroduce     = "introduce"
	TypeEvaluate      = "evaluate"
)

// Entry is one audit record. Body carries the prompt, the raw response, the
// attempt number and any parse error.
type Entry struct {
	Body      map[string]any `json:"body"`
	UserID    string         `json:"user_id"`
	RoomID    string         `json:"room_id"`
	Type      string         `json:"type"`
	CreatedAt time.Time      `json:"created_at"`
}

// Logger appends audit entries.
type Logger interface {
	Log(ctx context.Context, e Entry) error
}

// Multi fans an entry out to every logger and joins their errors.
type Multi []Logger

// Log implements Logger.
func (m Multi) Log(ctx context.Context, e Entry) error {
	var errs []error
	for _, l := range m {
		if l == nil {
			continue
		}
		if err := l.Log(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Discard drops every entry.
var Discard Logger = discard{}

type discard struct{}

func (discard) Log(context.Context, Entry) error { return nil }

// Recorder keeps entries in memory in the order they were logged.
type Recorder struct {
	mu      sync.Mutex
	entries []Entry
}

// Log implements Logger.
func (r *Recorder) Log(_ context.Context, e Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
	return nil
}

// Entries returns a copy of the recorded entries.
func (r *Recorder) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Entry(nil), r.entries...)
}
