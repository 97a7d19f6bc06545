package provider

import (
	"context"
	"fmt"
	"log/slog"
)

// Completer turns a fully rendered prompt into raw model text.
type Completer interface {
	Complete(ctx context.Context, prompt string, stop []string) (string, error)
}

// ChatCompleter adapts an LLMProvider to Completer by sending the prompt as a
// single user message.
type ChatCompleter struct {
	provider    LLMProvider
	model       string
	maxTokens   int
	temperature float64
}

// NewChatCompleter creates a ChatCompleter. An empty model uses the
// provider's default.
func NewChatCompleter(p LLMProvider, model string, maxTokens int, temperature float64) *ChatCompleter {
	return &ChatCompleter{provider: p, model: model, maxTokens: maxTokens, temperature: temperature}
}

// Complete implements Completer.
func (c *ChatCompleter) Complete(ctx context.Context, prompt string, stop []string) (string, error) {
	resp, err := c.provider.Chat(ctx, &ChatRequest{
		Messages:    []Message{{Role: RoleUser, Content: prompt}},
		Model:       c.model,
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
		Stop:        stop,
	})
	if err != nil {
		return "", fmt.Errorf("completion: %w", err)
	}
	slog.Debug("Completion finished",
		"model", c.model,
		"finish", resp.FinishReason,
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens)
	return resp.Content, nil
}
