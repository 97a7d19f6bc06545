package memory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cojourney/cjagent/internal/provider"
)

// ErrInvalidContent is returned when a memory has neither text nor action.
var ErrInvalidContent = errors.New("memory content needs text or an action")

// Store persists memories per namespace.
type Store interface {
	CreateMemory(ctx context.Context, namespace string, m *Memory) error
	GetMemories(ctx context.Context, namespace string, q Query) ([]Memory, error)
	RemoveAllByUserIDs(ctx context.Context, namespace string, userIDs []string) error
}

// Manager reads and writes one namespace of a Store.
// If embedder is nil, AddEmbedding is a no-op.
type Manager struct {
	namespace string
	store     Store
	embedder  provider.Embedder
}

// NewManager creates a Manager for namespace.
func NewManager(namespace string, store Store, embedder provider.Embedder) *Manager {
	return &Manager{namespace: namespace, store: store, embedder: embedder}
}

// Namespace returns the namespace this manager works on.
func (m *Manager) Namespace() string {
	return m.namespace
}

// CreateMemory validates and appends mem, assigning an ID and timestamp when
// they are missing.
func (m *Manager) CreateMemory(ctx context.Context, mem *Memory) error {
	if !mem.Content.Valid() {
		return ErrInvalidContent
	}
	if mem.ID == "" {
		mem.ID = uuid.NewString()
	}
	if mem.CreatedAt.IsZero() {
		mem.CreatedAt = time.Now().UTC()
	}
	if err := m.store.CreateMemory(ctx, m.namespace, mem); err != nil {
		return fmt.Errorf("create %s memory: %w", m.namespace, err)
	}
	return nil
}

// GetMemories returns matching memories, oldest first.
func (m *Manager) GetMemories(ctx context.Context, q Query) ([]Memory, error) {
	out, err := m.store.GetMemories(ctx, m.namespace, q)
	if err != nil {
		return nil, fmt.Errorf("get %s memories: %w", m.namespace, err)
	}
	return out, nil
}

// RemoveAllByUserIDs deletes every memory authored by the given users.
func (m *Manager) RemoveAllByUserIDs(ctx context.Context, userIDs []string) error {
	if len(userIDs) == 0 {
		return nil
	}
	if err := m.store.RemoveAllByUserIDs(ctx, m.namespace, userIDs); err != nil {
		return fmt.Errorf("remove %s memories: %w", m.namespace, err)
	}
	return nil
}

// AddEmbedding fills mem.Embedding from its text.
func (m *Manager) AddEmbedding(ctx context.Context, mem *Memory) error {
	if m.embedder == nil || len(mem.Embedding) > 0 {
		return nil
	}
	text := strings.TrimSpace(mem.Content.Text)
	if text == "" {
		return nil
	}
	resp, err := m.embedder.Embed(ctx, &provider.EmbeddingRequest{Input: text})
	if err != nil {
		return fmt.Errorf("embed memory: %w", err)
	}
	mem.Embedding = resp.Vector
	slog.Debug("Memory embedded", "namespace", m.namespace, "dims", len(resp.Vector))
	return nil
}
