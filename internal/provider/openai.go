package provider

import (
	"bytes"
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultEmbeddingModel = "text-embedding-3-small"

// OpenAIProvider implements LLMProvider and Embedder against the
// OpenAI-compatible API (OpenAI, OpenRouter, vLLM and friends).
type OpenAIProvider struct {
	apiKey         string
	apiBase        string
	defaultModel   string
	embeddingModel string
	httpClient     *http.Client
}

// NewOpenAIProvider creates a new OpenAI-compatible provider.
func NewOpenAIProvider(apiKey, apiBase, defaultModel string) *OpenAIProvider {
	if apiBase == "" {
		apiBase = "https://api.openai.com/v1"
	}
	if defaultModel == "" {
		defaultModel = "gpt-4o-mini"
	}
	return &OpenAIProvider{
		apiKey:         apiKey,
		apiBase:        strings.TrimSuffix(apiBase, "/"),
		defaultModel:   defaultModel,
		embeddingModel: defaultEmbeddingModel,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

// WithEmbeddingModel overrides the model used by Embed.
func (p *OpenAIProvider) WithEmbeddingModel(model string) *OpenAIProvider {
	if model != "" {
		p.embeddingModel = model
	}
	return p
}

// DefaultModel returns the configured default model.
func (p *OpenAIProvider) DefaultModel() string {
	return p.defaultModel
}

// Chat sends req to /chat/completions and returns the first choice.
func (p *OpenAIProvider) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	body := chatBody{
		Model:       cmp.Or(req.Model, p.defaultModel),
		Messages:    req.Messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		Stop:        req.Stop,
	}
	var out chatReply
	if err := p.post(ctx, "/chat/completions", body, &out); err != nil {
		return nil, err
	}
	if len(out.Choices) == 0 {
		return nil, errors.New("chat: response has no choices")
	}
	return &ChatResponse{
		Content:      out.Choices[0].Message.Content,
		FinishReason: out.Choices[0].FinishReason,
		Usage:        out.Usage,
	}, nil
}

// Embed returns the embedding of req.Input from /embeddings.
func (p *OpenAIProvider) Embed(ctx context.Context, req *EmbeddingRequest) (*EmbeddingResponse, error) {
	body := embedBody{Model: cmp.Or(req.Model, p.embeddingModel), Input: req.Input}
	var out embedReply
	if err := p.post(ctx, "/embeddings", body, &out); err != nil {
		return nil, fmt.Errorf("embedding: %w", err)
	}
	if len(out.Data) == 0 || len(out.Data[0].Embedding) == 0 {
		return nil, errors.New("embedding: response has no vector")
	}
	return &EmbeddingResponse{Vector: out.Data[0].Embedding, Usage: out.Usage}, nil
}

// APIError is a non-200 answer from the API. Body is truncated.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error (status %d): %s", e.Status, e.Body)
}

const maxErrorBody = 512

func (p *OpenAIProvider) post(ctx context.Context, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiBase+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &APIError{Status: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

type chatBody struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Stop        []string  `json:"stop,omitempty"`
}

type chatReply struct {
	Choices []struct {
		Message      Message `json:"message"`
		FinishReason string  `json:"finish_reason"`
	} `json:"choices"`
	Usage Usage `json:"usage"`
}

type embedBody struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type embedReply struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
	Usage Usage `json:"usage"`
}
