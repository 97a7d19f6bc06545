package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/cojourney/cjagent/internal/provider"
)

type sliceStore struct {
	rows map[string][]Memory
}

func (s *sliceStore) CreateMemory(_ context.Context, ns string, m *Memory) error {
	if s.rows == nil {
		s.rows = map[string][]Memory{}
	}
	s.rows[ns] = append(s.rows[ns], *m)
	return nil
}

func (s *sliceStore) GetMemories(_ context.Context, ns string, q Query) ([]Memory, error) {
	var out []Memory
	for _, m := range s.rows[ns] {
		if q.RoomID != "" && m.RoomID != q.RoomID {
			continue
		}
		if q.UserID != "" && m.UserID != q.UserID {
			continue
		}
		out = append(out, m)
	}
	if q.Count > 0 && len(out) > q.Count {
		out = out[len(out)-q.Count:]
	}
	return out, nil
}

func (s *sliceStore) RemoveAllByUserIDs(_ context.Context, ns string, ids []string) error {
	drop := map[string]bool{}
	for _, id := range ids {
		drop[id] = true
	}
	kept := s.rows[ns][:0]
	for _, m := range s.rows[ns] {
		if !drop[m.UserID] {
			kept = append(kept, m)
		}
	}
	s.rows[ns] = kept
	return nil
}

type fixedEmbedder struct{ calls int }

func (f *fixedEmbedder) Embed(_ context.Context, req *provider.EmbeddingRequest) (*provider.EmbeddingResponse, error) {
	f.calls++
	return &provider.EmbeddingResponse{Vector: []float32{float32(len(req.Input)), 1}}, nil
}

func TestManagerCreateMemory(t *testing.T) {
	store := &sliceStore{}
	mgr := NewManager(NamespaceMessages, store, nil)
	ctx := context.Background()

	mem := &Memory{UserID: "u1", RoomID: "r1", Content: Content{Text: "hello"}}
	if err := mgr.CreateMemory(ctx, mem); err != nil {
		t.Fatalf("create memory: %v", err)
	}
	if mem.ID == "" || mem.CreatedAt.IsZero() {
		t.Fatal("expected ID and timestamp to be assigned")
	}

	err := mgr.CreateMemory(ctx, &Memory{UserID: "u1", RoomID: "r1", Content: Content{Text: "  "}})
	if !errors.Is(err, ErrInvalidContent) {
		t.Fatalf("expected ErrInvalidContent, got %v", err)
	}

	if err := mgr.CreateMemory(ctx, &Memory{UserID: "u1", RoomID: "r1", Content: Content{Action: "WAIT"}}); err != nil {
		t.Fatalf("action-only content should be accepted: %v", err)
	}
	got, _ := mgr.GetMemories(ctx, Query{RoomID: "r1"})
	if len(got) != 2 {
		t.Fatalf("expected 2 memories, got %d", len(got))
	}
}

func TestManagerRemoveAllByUserIDs(t *testing.T) {
	store := &sliceStore{}
	mgr := NewManager(NamespaceDescriptions, store, nil)
	ctx := context.Background()
	for _, u := range []string{"a", "b", "a"} {
		_ = mgr.CreateMemory(ctx, &Memory{UserID: u, RoomID: "r", Content: Content{Text: "x"}})
	}
	if err := mgr.RemoveAllByUserIDs(ctx, []string{"a"}); err != nil {
		t.Fatal(err)
	}
	got, _ := mgr.GetMemories(ctx, Query{})
	if len(got) != 1 || got[0].UserID != "b" {
		t.Fatalf("expected only b to remain, got %+v", got)
	}
}

func TestManagerAddEmbedding(t *testing.T) {
	emb := &fixedEmbedder{}
	mgr := NewManager(NamespaceDescriptions, &sliceStore{}, emb)
	mem := &Memory{Content: Content{Text: "likes jazz"}}
	if err := mgr.AddEmbedding(context.Background(), mem); err != nil {
		t.Fatal(err)
	}
	if len(mem.Embedding) != 2 || emb.calls != 1 {
		t.Fatalf("expected embedding to be filled once, got %v (calls=%d)", mem.Embedding, emb.calls)
	}
	// Already embedded memories are left alone.
	_ = mgr.AddEmbedding(context.Background(), mem)
	if emb.calls != 1 {
		t.Errorf("expected no second embed call, got %d", emb.calls)
	}

	noop := NewManager(NamespaceDescriptions, &sliceStore{}, nil)
	bare := &Memory{Content: Content{Text: "x"}}
	if err := noop.AddEmbedding(context.Background(), bare); err != nil || bare.Embedding != nil {
		t.Fatalf("expected no-op without embedder, got %v %v", err, bare.Embedding)
	}
}
