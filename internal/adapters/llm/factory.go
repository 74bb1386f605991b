package llm

import (
	"context"
	"fmt"

	"github.com/hia-ai/hia/internal/domain/ports"
)

// Config selects and parameterizes a chat-completion provider.
type Config struct {
	// Provider: "groq", "ollama" or "genai"
	Provider string

	// BaseURL overrides the provider endpoint. Empty uses the default.
	BaseURL string

	// APIKey authenticates against hosted providers. Ignored by Ollama.
	APIKey string
}

// New creates a chat-completion service based on configuration.
func New(ctx context.Context, cfg Config) (ports.ChatCompletionService, error) {
	switch cfg.Provider {
	case "", "groq":
		return NewGroqAdapter(cfg.BaseURL, cfg.APIKey)
	case "ollama":
		return NewOllamaAdapter(cfg.BaseURL), nil
	case "genai":
		return NewGeminiAdapter(ctx, cfg.APIKey)
	default:
		return nil, fmt.Errorf("unsupported chat provider: %s (use 'groq', 'ollama' or 'genai')", cfg.Provider)
	}
}
