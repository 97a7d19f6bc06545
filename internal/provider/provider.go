// Package provider implements completion and embedding clients.
package provider

import (
	"context"
)

// Chat roles understood by every backend.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// LLMProvider sends chat requests to one model backend.
type LLMProvider interface {
	Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error)
	// DefaultModel is used when a request leaves Model empty.
	DefaultModel() string
}

// ChatRequest is a single stateless chat call. The agent always sends the
// whole rendered context as one user turn.
type ChatRequest struct {
	Messages    []Message
	Model       string
	MaxTokens   int
	Temperature float64
	Stop        []string
}

type ChatResponse struct {
	Content      string
	FinishReason string
	Usage        Usage
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Usage is the token accounting reported by the backend, zero when absent.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Embedder turns description text into a vector for rolodex ranking.
type Embedder interface {
	Embed(ctx context.Context, req *EmbeddingRequest) (*EmbeddingResponse, error)
}

type EmbeddingRequest struct {
	Input string
	// Model overrides the provider's embedding model.
	Model string
}

type EmbeddingResponse struct {
	Vector []float32
	Usage  Usage
}
