package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/cojourney/cjagent/internal/config"
)

// providerAliases maps common aliases to canonical provider IDs.
var providerAliases = map[string]string{
	"google": "gemini",
	"gpt":    "openai",
}

// ParseModelString splits a "provider/model" string into provider ID and model name.
// A bare model name returns an empty provider ID.
func ParseModelString(s string) (providerID, modelName string) {
	s = strings.TrimSpace(s)
	id, model, found := strings.Cut(s, "/")
	if !found {
		return "", s
	}
	id = strings.ToLower(id)
	if canonical, ok := providerAliases[id]; ok {
		id = canonical
	}
	return id, model
}

// Client is a chat provider that can also embed text.
type Client interface {
	LLMProvider
	Embedder
}

// Resolve builds the provider named by cfg.Model.Name. Bare model names and
// unknown prefixes go to the OpenAI-compatible endpoint, which also covers
// OpenRouter and self-hosted gateways via providers.openai.apiBase.
func Resolve(ctx context.Context, cfg *config.Config) (Client, error) {
	provID, model := ParseModelString(cfg.Model.Name)
	switch provID {
	case "gemini":
		if cfg.Providers.Gemini.APIKey == "" {
			return nil, fmt.Errorf("gemini model %q requires providers.gemini.apiKey", model)
		}
		p, err := NewGeminiProvider(ctx, cfg.Providers.Gemini.APIKey, model)
		if err != nil {
			return nil, err
		}
		if cfg.Model.EmbeddingModel != "" {
			p.embeddingModel = cfg.Model.EmbeddingModel
		}
		return p, nil
	case "", "openai":
		return NewOpenAIProvider(cfg.Providers.OpenAI.APIKey, cfg.Providers.OpenAI.APIBase, model).
			WithEmbeddingModel(cfg.Model.EmbeddingModel), nil
	default:
		// OpenRouter-style "vendor/model" ids are passed through whole.
		return NewOpenAIProvider(cfg.Providers.OpenAI.APIKey, cfg.Providers.OpenAI.APIBase, cfg.Model.Name).
			WithEmbeddingModel(cfg.Model.EmbeddingModel), nil
	}
}
