package provider

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

const (
	geminiDefaultModel     = "gemini-2.0-flash"
	geminiEmbeddingDefault = "text-embedding-004"
)

// GeminiProvider implements LLMProvider and Embedder with the Gemini API SDK.
type GeminiProvider struct {
	client         *genai.Client
	defaultModel   string
	embeddingModel string
}

// NewGeminiProvider creates a Gemini provider using a static API key.
func NewGeminiProvider(ctx context.Context, apiKey, defaultModel string) (*GeminiProvider, error) {
	if defaultModel == "" {
		defaultModel = geminiDefaultModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &GeminiProvider{
		client:         client,
		defaultModel:   defaultModel,
		embeddingModel: geminiEmbeddingDefault,
	}, nil
}

// DefaultModel returns the configured default model.
func (p *GeminiProvider) DefaultModel() string {
	return p.defaultModel
}

// Chat sends the conversation to Gemini. System messages become the system
// instruction; assistant messages are sent with the model role.
func (p *GeminiProvider) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	model := req.Model
	if model == "" {
		model = p.defaultModel
	}

	var (
		system   []string
		contents []*genai.Content
	)
	for _, m := range req.Messages {
		switch m.Role {
		case RoleSystem:
			system = append(system, m.Content)
		case RoleAssistant:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}

	temp := float32(req.Temperature)
	cfg := &genai.GenerateContentConfig{
		Temperature:   &temp,
		StopSequences: req.Stop,
	}
	if req.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxTokens)
	}
	if len(system) > 0 {
		cfg.SystemInstruction = genai.NewContentFromText(strings.Join(system, "\n\n"), genai.RoleUser)
	}

	res, err := p.client.Models.GenerateContent(ctx, model, contents, cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini generate content: %w", err)
	}

	out := &ChatResponse{Content: res.Text()}
	if len(res.Candidates) > 0 {
		out.FinishReason = string(res.Candidates[0].FinishReason)
	}
	if u := res.UsageMetadata; u != nil {
		out.Usage = Usage{
			PromptTokens:     int(u.PromptTokenCount),
			CompletionTokens: int(u.CandidatesTokenCount),
			TotalTokens:      int(u.TotalTokenCount),
		}
	}
	return out, nil
}

// Embed generates an embedding vector for the given input text.
func (p *GeminiProvider) Embed(ctx context.Context, req *EmbeddingRequest) (*EmbeddingResponse, error) {
	model := req.Model
	if model == "" {
		model = p.embeddingModel
	}
	res, err := p.client.Models.EmbedContent(ctx, model, genai.Text(req.Input), nil)
	if err != nil {
		return nil, fmt.Errorf("gemini embed content: %w", err)
	}
	if len(res.Embeddings) == 0 || res.Embeddings[0] == nil {
		return nil, fmt.Errorf("no embedding data in response")
	}
	return &EmbeddingResponse{Vector: res.Embeddings[0].Values}, nil
}
