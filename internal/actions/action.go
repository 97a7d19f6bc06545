// Package actions defines the capabilities a model can choose from and the
// read-only registry that holds them.
package actions

import (
	"context"
	"errors"

	"github.com/cojourney/cjagent/internal/completion"
	"github.com/cojourney/cjagent/internal/goal"
	"github.com/cojourney/cjagent/internal/memory"
	"github.com/cojourney/cjagent/internal/state"
	"github.com/cojourney/cjagent/internal/store"
)

// ErrNotApplicable marks an optional feature whose precondition is not met.
var ErrNotApplicable = errors.New("not applicable")

// RelationshipStore records and lists relationships.
type RelationshipStore interface {
	CreateRelationship(ctx context.Context, a, b string) (*store.Relationship, bool, error)
	GetRelationshipsByUser(ctx context.Context, userID string) ([]store.Relationship, error)
}

// AccountStore looks up user profiles.
type AccountStore interface {
	GetAccountByID(ctx context.Context, id string) (*store.Account, error)
}

// Runtime is what handlers and evaluators may use.
type Runtime interface {
	AgentID() string
	AgentName() string
	ComposeState(ctx context.Context, msg *memory.Message) (*state.State, error)
	Messages() *memory.Manager
	Descriptions() *memory.Manager
	Completion() *completion.Loop
	Goals() *goal.Tracker
	Relationships() RelationshipStore
	Accounts() AccountStore
}

// Validator is a cheap, side-effect free applicability check.
type Validator func(ctx context.Context, rt Runtime, msg *memory.Message) bool

// Handler executes an action.
type Handler func(ctx context.Context, rt Runtime, msg *memory.Message, st *state.State) (Result, error)

// Result is what a handler hands back to the dispatcher.
type Result struct {
	// Content is a supplementary message to persist and evaluate like the
	// primary reply.
	Content *memory.Content
	// Continuation runs in the background after the message is fully handled.
	Continuation func(ctx context.Context) error
}

// Example is one turn of a few-shot conversation.
type Example struct {
	User    string
	Content memory.Content
}

// Action is a named capability the model may pick.
type Action struct {
	Name        string
	Description string
	Condition   string
	Validate    Validator
	Handler     Handler
	Examples    [][]Example
}

// Valid reports whether the action applies to msg. A nil Validate always applies.
func (a Action) Valid(ctx context.Context, rt Runtime, msg *memory.Message) bool {
	return a.Validate == nil || a.Validate(ctx, rt, msg)
}

// Evaluator runs after a reply is persisted, independent of the chosen action.
type Evaluator struct {
	Name        string
	Description string
	Validate    Validator
	Handler     func(ctx context.Context, rt Runtime, msg *memory.Message, st *state.State) error
}
