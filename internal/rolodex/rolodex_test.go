package rolodex

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cojourney/cjagent/internal/actions"
	"github.com/cojourney/cjagent/internal/audit"
	"github.com/cojourney/cjagent/internal/completion"
	"github.com/cojourney/cjagent/internal/goal"
	"github.com/cojourney/cjagent/internal/memory"
	"github.com/cojourney/cjagent/internal/state"
	"github.com/cojourney/cjagent/internal/store"
)

const agentID = "agent"

type scripted struct {
	responses []string
	prompts   []string
}

func (s *scripted) Complete(_ context.Context, prompt string, _ []string) (string, error) {
	s.prompts = append(s.prompts, prompt)
	i := len(s.prompts) - 1
	if i >= len(s.responses) {
		i = len(s.responses) - 1
	}
	return s.responses[i], nil
}

type fakeRuntime struct {
	db     *store.Store
	msgs   *memory.Manager
	descs  *memory.Manager
	loop   *completion.Loop
	actors []state.Actor
}

func (f *fakeRuntime) AgentID() string   { return agentID }
func (f *fakeRuntime) AgentName() string { return "CJ" }
func (f *fakeRuntime) ComposeState(_ context.Context, msg *memory.Message) (*state.State, error) {
	return &state.State{AgentID: agentID, AgentName: "CJ", SenderID: msg.UserID, RoomID: msg.RoomID, Actors: f.actors}, nil
}
func (f *fakeRuntime) Messages() *memory.Manager                { return f.msgs }
func (f *fakeRuntime) Descriptions() *memory.Manager            { return f.descs }
func (f *fakeRuntime) Completion() *completion.Loop             { return f.loop }
func (f *fakeRuntime) Goals() *goal.Tracker                     { return nil }
func (f *fakeRuntime) Relationships() actions.RelationshipStore { return f.db }
func (f *fakeRuntime) Accounts() actions.AccountStore           { return f.db }

func newRuntime(t *testing.T, c *scripted, log audit.Logger) *fakeRuntime {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "rolodex.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return &fakeRuntime{
		db:    db,
		msgs:  memory.NewManager(memory.NamespaceMessages, db, nil),
		descs: memory.NewManager(memory.NamespaceDescriptions, db, nil),
		loop:  completion.NewLoop(c, log, completion.Options{}),
	}
}

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func describe(t *testing.T, rt *fakeRuntime, userID, name, text string, emb []float32, at int) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, rt.db.CreateAccount(ctx, &store.Account{ID: userID, Name: name}))
	require.NoError(t, rt.descs.CreateMemory(ctx, &memory.Memory{
		UserID:    userID,
		RoomID:    "room-" + userID,
		Content:   memory.Content{Text: text},
		Embedding: emb,
		CreatedAt: t0.Add(time.Duration(at) * time.Minute),
	}))
}

func TestRankOrdersBySimilarityAndDropsBelowThreshold(t *testing.T) {
	first := func(_, b []float32) float32 { return b[0] }
	candidates := []Candidate{
		{UserID: "low", Embedding: []float32{0.05}},
		{UserID: "mid", Embedding: []float32{0.4}},
		{UserID: "high", Embedding: []float32{0.9}},
	}

	ranked := Rank([]float32{1}, candidates, first, 0.1)
	require.Len(t, ranked, 2)
	assert.Equal(t, "high", ranked[0].UserID)
	assert.Equal(t, "mid", ranked[1].UserID)
	assert.True(t, ranked[0].Scored)

	all := Rank([]float32{1}, candidates, first, 0)
	require.Len(t, all, 3)
	assert.Equal(t, "low", all[2].UserID, "near-zero match ranks below every qualifying one")
}

func TestRankTiesKeepDirectoryOrder(t *testing.T) {
	same := func(_, _ []float32) float32 { return 0.5 }
	candidates := []Candidate{
		{UserID: "a", Embedding: []float32{1}},
		{UserID: "b", Embedding: []float32{1}},
		{UserID: "c", Embedding: []float32{1}},
	}
	ranked := Rank([]float32{1}, candidates, same, 0)
	assert.Equal(t, []string{"a", "b", "c"}, ids(ranked))
}

func TestRankWithoutRequesterEmbeddingKeepsOrder(t *testing.T) {
	candidates := []Candidate{{UserID: "a"}, {UserID: "b"}}
	ranked := Rank(nil, candidates, nil, 0.5)
	assert.Equal(t, []string{"a", "b"}, ids(ranked))
	assert.False(t, ranked[0].Scored)
}

func TestGetRelevantRelationshipsWithoutProfile(t *testing.T) {
	rt := newRuntime(t, &scripted{responses: []string{"{}"}}, nil)
	e := &Engine{}

	_, err := e.GetRelevantRelationships(context.Background(), rt, &memory.Message{UserID: "kyle", RoomID: "r"}, 5)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoProfile)
	assert.ErrorIs(t, err, actions.ErrNotApplicable)
	var ae *ApplicabilityError
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, "kyle", ae.UserID)
}

func TestGetRelevantRelationshipsRanksDescribedUsers(t *testing.T) {
	rt := newRuntime(t, &scripted{responses: []string{"{}"}}, nil)
	describe(t, rt, "kyle", "Kyle", "Plays Guitar Hero", []float32{1, 0}, 0)
	describe(t, rt, "lucius", "Lucius", "Tweets tech news", []float32{0, 1}, 1)
	describe(t, rt, "jamie", "Jamie", "Loves music", []float32{0.9, 0.1}, 2)
	describe(t, rt, agentID, "CJ", "The agent", []float32{1, 0}, 3)

	e := &Engine{MinSimilarity: 0.1, Count: 5}
	out, err := e.GetRelevantRelationships(context.Background(), rt, &memory.Message{UserID: "kyle", RoomID: "r"}, 0)
	require.NoError(t, err)
	assert.Equal(t, "## ROLODEX\n- Jamie: Loves music\n\n", out)
}

func TestIntroduceCreatesOneRelationship(t *testing.T) {
	c := &scripted{responses: []string{
		"not json",
		"```json\n{\"explanation\": \"music\", \"userA\": \"Kyle\", \"userB\": \"jamie\"}\n```",
	}}
	rec := &audit.Recorder{}
	rt := newRuntime(t, c, rec)
	rt.actors = []state.Actor{{ID: "kyle", Name: "Kyle"}, {ID: agentID, Name: "CJ"}}
	describe(t, rt, "kyle", "Kyle", "Plays Guitar Hero", []float32{1, 0}, 0)
	describe(t, rt, "jamie", "Jamie", "Loves music", []float32{1, 0}, 1)

	e := &Engine{Count: 5}
	act := e.Action()
	msg := &memory.Message{UserID: "kyle", RoomID: "r", Content: memory.Content{Text: "who should I meet?"}}
	require.True(t, act.Valid(context.Background(), rt, msg))

	_, err := act.Handler(context.Background(), rt, msg, nil)
	require.NoError(t, err)
	assert.Len(t, c.prompts, 2)
	assert.Contains(t, c.prompts[0], "- Jamie: Loves music")
	assert.Len(t, rec.Entries(), 2)
	assert.Equal(t, audit.TypeIntroduce, rec.Entries()[0].Type)

	rels, err := rt.db.GetRelationshipsByUser(context.Background(), "kyle")
	require.NoError(t, err)
	require.Len(t, rels, 1)
	assert.Equal(t, "jamie", rels[0].Other("kyle"))
}

func TestIntroduceSwallowsFailures(t *testing.T) {
	c := &scripted{responses: []string{`{"explanation": "x", "userA": "Kyle", "userB": "Nobody"}`}}
	rt := newRuntime(t, c, nil)
	describe(t, rt, "kyle", "Kyle", "Plays Guitar Hero", []float32{1, 0}, 0)
	msg := &memory.Message{UserID: "kyle", RoomID: "r"}

	_, err := (&Engine{}).Action().Handler(context.Background(), rt, msg, nil)
	require.NoError(t, err)
	rels, err := rt.db.GetRelationshipsByUser(context.Background(), "kyle")
	require.NoError(t, err)
	assert.Empty(t, rels)
}

func TestIntroduceNotValidWithoutProfile(t *testing.T) {
	rt := newRuntime(t, &scripted{responses: []string{"{}"}}, nil)
	act := (&Engine{}).Action()
	assert.False(t, act.Valid(context.Background(), rt, &memory.Message{UserID: "kyle", RoomID: "r"}))
}

func TestResolvePair(t *testing.T) {
	candidates := []Candidate{{UserID: "jamie", Name: "Jamie"}}
	actors := []state.Actor{{ID: "kyle", Name: "Kyle"}, {ID: agentID, Name: "CJ"}}

	a, b, err := resolvePair(Introduction{UserA: " kyle ", UserB: "JAMIE"}, agentID, candidates, actors)
	require.NoError(t, err)
	assert.Equal(t, "kyle", a)
	assert.Equal(t, "jamie", b)

	_, _, err = resolvePair(Introduction{UserA: "Kyle", UserB: "CJ"}, agentID, candidates, actors)
	assert.Error(t, err, "the agent is never introduced")

	_, _, err = resolvePair(Introduction{UserA: "Kyle", UserB: "kyle"}, agentID, candidates, actors)
	assert.Error(t, err)
}

func TestProfileEvaluatorStoresNewDescriptionsOnly(t *testing.T) {
	c := &scripted{responses: []string{`{"user": "Kyle", "description": "Kyle plays Guitar Hero."}`}}
	rt := newRuntime(t, c, nil)
	ev := ProfileEvaluator()
	msg := &memory.Message{UserID: "kyle", RoomID: "r"}
	st := &state.State{AgentName: "CJ", SenderName: "Kyle"}

	require.True(t, ev.Validate(context.Background(), rt, msg))
	require.NoError(t, ev.Handler(context.Background(), rt, msg, st))
	require.NoError(t, ev.Handler(context.Background(), rt, msg, st))

	descs, err := rt.descs.GetMemories(context.Background(), memory.Query{UserID: "kyle"})
	require.NoError(t, err)
	require.Len(t, descs, 1)
	assert.True(t, strings.HasPrefix(descs[0].Content.Text, "Kyle plays"))
	assert.False(t, ev.Validate(context.Background(), rt, &memory.Message{UserID: agentID}))
}

func ids(cs []Candidate) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.UserID
	}
	return out
}
