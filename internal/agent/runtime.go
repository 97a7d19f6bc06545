// Package agent implements the message orchestration loop: it composes
// state, obtains a reply from the model, dispatches the chosen action and
// persists the outcome.
package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cojourney/cjagent/internal/actions"
	"github.com/cojourney/cjagent/internal/audit"
	"github.com/cojourney/cjagent/internal/completion"
	"github.com/cojourney/cjagent/internal/goal"
	"github.com/cojourney/cjagent/internal/memory"
	"github.com/cojourney/cjagent/internal/provider"
	"github.com/cojourney/cjagent/internal/rolodex"
	"github.com/cojourney/cjagent/internal/state"
	"github.com/cojourney/cjagent/internal/worker"
)

// ErrConfiguration is returned for messages the runtime cannot route.
var ErrConfiguration = errors.New("agent configuration error")

// Store is everything the runtime persists.
type Store interface {
	memory.Store
	goal.Store
	actions.RelationshipStore
	actions.AccountStore
	GetParticipants(ctx context.Context, roomID string) ([]string, error)
	FindRoomByParticipants(ctx context.Context, userA, userB string) (string, error)
	CreateRoom(ctx context.Context, name string) (string, error)
	AddParticipant(ctx context.Context, roomID, userID string) error
}

// Options contains configuration for the runtime.
type Options struct {
	AgentID   string
	AgentName string

	Store     Store
	Completer provider.Completer
	Embedder  provider.Embedder
	Audit     audit.Logger
	// Pool runs continuations and onboarding. When nil they run inline.
	Pool *worker.Pool

	// Actions are registered after the defaults; Overrides patch any of them by name.
	Actions    []actions.Action
	Overrides  map[string]actions.Override
	Evaluators []actions.Evaluator
	Providers  []state.Provider

	MaxTries           int
	AttemptTimeout     time.Duration
	RecentMessageCount int
	RelationshipCount  int
	MaxContinuesInARow int
	MinSimilarity      float64
	Similarity         rolodex.Similarity

	Now func() time.Time
}

// Runtime is the orchestration engine. It holds no per-message state and is
// safe for concurrent use.
type Runtime struct {
	agentID   string
	agentName string

	store        Store
	messages     *memory.Manager
	descriptions *memory.Manager
	goals        *goal.Tracker
	loop         *completion.Loop
	registry     *actions.Registry
	evaluators   []actions.Evaluator
	providers    []state.Provider
	rolodex      *rolodex.Engine
	pool         *worker.Pool

	recentMessageCount int
	maxContinues       int
}

// New builds a Runtime from opts.
func New(opts Options) (*Runtime, error) {
	if opts.Store == nil || opts.Completer == nil {
		return nil, fmt.Errorf("%w: store and completer are required", ErrConfiguration)
	}
	if opts.AgentID == "" {
		return nil, fmt.Errorf("%w: agent id is required", ErrConfiguration)
	}
	if opts.AgentName == "" {
		opts.AgentName = "CJ"
	}
	if opts.RecentMessageCount <= 0 {
		opts.RecentMessageCount = 20
	}
	if opts.RelationshipCount <= 0 {
		opts.RelationshipCount = 5
	}
	if opts.MaxContinuesInARow <= 0 {
		opts.MaxContinuesInARow = 2
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	r := &Runtime{
		agentID:            opts.AgentID,
		agentName:          opts.AgentName,
		store:              opts.Store,
		messages:           memory.NewManager(memory.NamespaceMessages, opts.Store, nil),
		descriptions:       memory.NewManager(memory.NamespaceDescriptions, opts.Store, opts.Embedder),
		goals:              goal.NewTracker(opts.Store),
		loop:               completion.NewLoop(opts.Completer, opts.Audit, completion.Options{MaxTries: opts.MaxTries, AttemptTimeout: opts.AttemptTimeout}),
		pool:               opts.Pool,
		recentMessageCount: opts.RecentMessageCount,
		maxContinues:       opts.MaxContinuesInARow,
		rolodex: &rolodex.Engine{
			Similarity:    opts.Similarity,
			MinSimilarity: opts.MinSimilarity,
			Count:         opts.RelationshipCount,
		},
	}

	entries := r.defaultEntries()
	for _, a := range opts.Actions {
		entries = append(entries, actions.Entry{Base: a})
	}
	entries, err := actions.WithOverrides(entries, opts.Overrides)
	if err != nil {
		return nil, err
	}
	if r.registry, err = actions.NewRegistry(entries...); err != nil {
		return nil, err
	}

	r.evaluators = append([]actions.Evaluator{GoalEvaluator(), rolodex.ProfileEvaluator()}, opts.Evaluators...)
	r.providers = append([]state.Provider{timeProvider{now: opts.Now}}, opts.Providers...)
	return r, nil
}

func (r *Runtime) AgentID() string                          { return r.agentID }
func (r *Runtime) AgentName() string                        { return r.agentName }
func (r *Runtime) Messages() *memory.Manager                { return r.messages }
func (r *Runtime) Descriptions() *memory.Manager            { return r.descriptions }
func (r *Runtime) Completion() *completion.Loop             { return r.loop }
func (r *Runtime) Goals() *goal.Tracker                     { return r.goals }
func (r *Runtime) Relationships() actions.RelationshipStore { return r.store }
func (r *Runtime) Accounts() actions.AccountStore           { return r.store }

// Registry returns the action registry.
func (r *Runtime) Registry() *actions.Registry { return r.registry }

// Rolodex returns the relationship recommendation engine.
func (r *Runtime) Rolodex() *rolodex.Engine { return r.rolodex }

var _ actions.Runtime = (*Runtime)(nil)
