package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/cojourney/cjagent/internal/audit"
	"github.com/cojourney/cjagent/internal/goal"
	"github.com/cojourney/cjagent/internal/memory"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "cjagent.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// tick makes every store write land on a distinct, increasing timestamp.
func tick(s *Store) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	n := 0
	s.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		n++
		return base.Add(time.Duration(n) * time.Second)
	}
}

func TestMemoriesRoundTripNewestWindow(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	tick(s)

	for i, text := range []string{"one", "two", "three"} {
		m := &memory.Memory{
			ID:        text,
			UserID:    "u1",
			RoomID:    "r1",
			UserIDs:   []string{"u1", "agent"},
			Content:   memory.Content{Text: text, Action: "WAIT"},
			Embedding: []float32{float32(i), 1},
		}
		if err := s.CreateMemory(ctx, memory.NamespaceMessages, m); err != nil {
			t.Fatalf("create memory: %v", err)
		}
	}
	if err := s.CreateMemory(ctx, memory.NamespaceDescriptions, &memory.Memory{ID: "d", UserID: "u1", RoomID: "r1", Content: memory.Content{Text: "likes tea"}}); err != nil {
		t.Fatalf("create description: %v", err)
	}

	got, err := s.GetMemories(ctx, memory.NamespaceMessages, memory.Query{RoomID: "r1", Count: 2})
	if err != nil {
		t.Fatalf("get memories: %v", err)
	}
	if len(got) != 2 || got[0].Content.Text != "two" || got[1].Content.Text != "three" {
		t.Fatalf("expected newest two oldest-first, got %+v", got)
	}
	if got[1].Embedding[0] != 2 || len(got[1].UserIDs) != 2 || got[1].Content.Action != "WAIT" {
		t.Fatalf("fields not round-tripped: %+v", got[1])
	}

	all, err := s.GetMemories(ctx, memory.NamespaceMessages, memory.Query{})
	if err != nil {
		t.Fatalf("get all: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected namespaces to be separate, got %d", len(all))
	}

	if err := s.RemoveAllByUserIDs(ctx, memory.NamespaceMessages, []string{"u1"}); err != nil {
		t.Fatalf("remove: %v", err)
	}
	all, _ = s.GetMemories(ctx, memory.NamespaceMessages, memory.Query{})
	if len(all) != 0 {
		t.Fatalf("expected messages removed, got %d", len(all))
	}
	desc, _ := s.GetMemories(ctx, memory.NamespaceDescriptions, memory.Query{UserID: "u1"})
	if len(desc) != 1 {
		t.Fatalf("expected descriptions untouched, got %d", len(desc))
	}
}

func TestAccountsAndRooms(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	tick(s)

	if _, err := s.GetAccountByID(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	acct := &Account{ID: "u1", Name: "Ada", Email: "ada@example.com", Details: map[string]any{"tz": "UTC"}}
	if err := s.CreateAccount(ctx, acct); err != nil {
		t.Fatalf("create account: %v", err)
	}
	got, err := s.GetAccountByID(ctx, "u1")
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	if got.Name != "Ada" || got.Details["tz"] != "UTC" {
		t.Fatalf("unexpected account: %+v", got)
	}

	if _, err := s.FindRoomByParticipants(ctx, "u1", "agent"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected no room yet, got %v", err)
	}
	room, err := s.CreateRoom(ctx, "dm")
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	for _, u := range []string{"u1", "agent", "u1"} {
		if err := s.AddParticipant(ctx, room, u); err != nil {
			t.Fatalf("add participant: %v", err)
		}
	}
	parts, err := s.GetParticipants(ctx, room)
	if err != nil {
		t.Fatalf("participants: %v", err)
	}
	if len(parts) != 2 || parts[0] != "u1" || parts[1] != "agent" {
		t.Fatalf("unexpected participants: %v", parts)
	}
	found, err := s.FindRoomByParticipants(ctx, "agent", "u1")
	if err != nil || found != room {
		t.Fatalf("expected room %s, got %s (%v)", room, found, err)
	}
}

func TestCreateRelationshipIsIdempotentOnPair(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	first, created, err := s.CreateRelationship(ctx, "bob", "alice")
	if err != nil || !created {
		t.Fatalf("first create: created=%v err=%v", created, err)
	}
	if first.UserA != "alice" || first.UserB != "bob" {
		t.Fatalf("expected normalized pair, got %s/%s", first.UserA, first.UserB)
	}

	second, created, err := s.CreateRelationship(ctx, "alice", "bob")
	if err != nil {
		t.Fatalf("second create: %v", err)
	}
	if created {
		t.Fatal("expected second create to be a no-op")
	}
	if second.ID != first.ID || second.RoomID != first.RoomID {
		t.Fatalf("expected the stored relationship back, got %+v", second)
	}

	rels, err := s.GetRelationshipsByUser(ctx, "bob")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rels) != 1 {
		t.Fatalf("expected exactly one edge, got %d", len(rels))
	}
	if rels[0].Other("bob") != "alice" {
		t.Fatalf("unexpected counterpart %q", rels[0].Other("bob"))
	}

	parts, _ := s.GetParticipants(ctx, first.RoomID)
	if len(parts) != 2 {
		t.Fatalf("expected pair room with two participants, got %v", parts)
	}
	room, err := s.FindRoomByParticipants(ctx, "alice", "bob")
	if err != nil || room != first.RoomID {
		t.Fatalf("expected only the relationship room, got %s (%v)", room, err)
	}
}

func TestCreateRelationshipConcurrent(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			a, b := "u1", "u2"
			if i%2 == 0 {
				a, b = b, a
			}
			_, _, _ = s.CreateRelationship(ctx, a, b)
		}(i)
	}
	wg.Wait()

	rels, err := s.GetRelationshipsByUser(ctx, "u1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rels) != 1 {
		t.Fatalf("expected one relationship after concurrent writes, got %d", len(rels))
	}
}

func TestCreateRelationshipRejectsSelfPair(t *testing.T) {
	s := newTestStore(t)
	if _, _, err := s.CreateRelationship(context.Background(), "u1", "u1"); !errors.Is(err, ErrSelfRelationship) {
		t.Fatalf("expected ErrSelfRelationship, got %v", err)
	}
}

func TestGoalsPersistObjectives(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	tr := goal.NewTracker(s)

	g := &goal.Goal{
		Name:       "Intro",
		UserID:     "u1",
		RoomID:     "r1",
		Objectives: []goal.Objective{{Description: "a"}, {Description: "b"}},
	}
	if err := tr.CreateGoal(ctx, g); err != nil {
		t.Fatalf("create goal: %v", err)
	}
	if _, err := tr.CompleteObjective(ctx, g.ID, 1); err != nil {
		t.Fatalf("complete: %v", err)
	}
	got, err := s.GetGoal(ctx, g.ID)
	if err != nil {
		t.Fatalf("get goal: %v", err)
	}
	if got.Status != goal.StatusInProgress || !got.Objectives[1].Completed || got.Objectives[0].Completed {
		t.Fatalf("unexpected goal state: %+v", got)
	}
	active, err := tr.ActiveGoals(ctx, "u1", "r1")
	if err != nil || len(active) != 1 {
		t.Fatalf("expected one active goal, got %d (%v)", len(active), err)
	}
	if _, err := s.GetGoal(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestConcurrentObjectiveCompletionsAllStick(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	tr := goal.NewTracker(s)

	const n = 8
	objectives := make([]goal.Objective, n)
	for i := range objectives {
		objectives[i] = goal.Objective{Description: fmt.Sprintf("step %d", i)}
	}
	g := &goal.Goal{Name: "Intro", UserID: "u1", RoomID: "r1", Objectives: objectives}
	if err := tr.CreateGoal(ctx, g); err != nil {
		t.Fatalf("create goal: %v", err)
	}

	// Each objective is completed twice at once; exactly one call may win.
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		changed = map[int]int{}
	)
	for i := 0; i < n; i++ {
		for range 2 {
			wg.Add(1)
			go func(idx int) {
				defer wg.Done()
				ok, err := tr.CompleteObjective(ctx, g.ID, idx)
				if err != nil {
					t.Errorf("complete %d: %v", idx, err)
					return
				}
				if ok {
					mu.Lock()
					changed[idx]++
					mu.Unlock()
				}
			}(i)
		}
	}
	wg.Wait()

	got, err := s.GetGoal(ctx, g.ID)
	if err != nil {
		t.Fatalf("get goal: %v", err)
	}
	for i, o := range got.Objectives {
		if !o.Completed {
			t.Errorf("objective %d lost its completion", i)
		}
		if changed[i] != 1 {
			t.Errorf("objective %d reported changed %d times", i, changed[i])
		}
	}
	if got.Status != goal.StatusDone {
		t.Fatalf("status = %s, want DONE", got.Status)
	}
}

func TestCompleteObjectiveErrors(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	g := &goal.Goal{ID: "g1", Name: "Intro", Status: goal.StatusNotStarted, UserID: "u1", RoomID: "r1",
		Objectives: []goal.Objective{{Description: "a"}}}
	if err := s.CreateGoal(ctx, g); err != nil {
		t.Fatalf("create goal: %v", err)
	}
	if _, err := s.CompleteObjective(ctx, "g1", 1); !errors.Is(err, goal.ErrObjectiveRange) {
		t.Fatalf("expected ErrObjectiveRange, got %v", err)
	}
	if _, err := s.CompleteObjective(ctx, "missing", 0); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	changed, err := s.CompleteObjective(ctx, "g1", 0)
	if err != nil || !changed {
		t.Fatalf("first completion = %v, %v", changed, err)
	}
	changed, err = s.CompleteObjective(ctx, "g1", 0)
	if err != nil || changed {
		t.Fatalf("second completion = %v, %v", changed, err)
	}
}

func TestLogsKeepInsertionOrder(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	for i := 1; i <= 3; i++ {
		err := s.Log(ctx, audit.Entry{
			Body:   map[string]any{"attempt": i},
			UserID: "u1",
			RoomID: "r1",
			Type:   audit.TypeHandleMessage,
		})
		if err != nil {
			t.Fatalf("log: %v", err)
		}
	}
	logs, err := s.Logs(ctx, "r1")
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	if len(logs) != 3 {
		t.Fatalf("expected 3 logs, got %d", len(logs))
	}
	for i, e := range logs {
		if e.Body["attempt"] != float64(i+1) {
			t.Fatalf("log %d out of order: %v", i, e.Body)
		}
	}
}

func TestOpenInMemory(t *testing.T) {
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()
	if err := s.CreateAccount(context.Background(), &Account{ID: "x", Name: "X"}); err != nil {
		t.Fatalf("create account: %v", err)
	}
	if _, err := s.GetAccountByID(context.Background(), "x"); err != nil {
		t.Fatalf("get account: %v", err)
	}
}
