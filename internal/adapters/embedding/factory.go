package embedding

import (
	"context"
	"fmt"

	"github.com/hia-ai/hia/internal/domain/ports"
)

// Config selects and parameterizes an embedding provider.
type Config struct {
	// Provider: "ollama" or "genai"
	Provider string

	// BaseURL overrides the provider endpoint. Empty uses the default.
	BaseURL string

	// Model overrides the embedding model. Empty uses the default.
	Model string

	// APIKey authenticates against hosted providers. Ignored by Ollama.
	APIKey string
}

// New creates an embedding service based on configuration.
func New(ctx context.Context, cfg Config) (ports.EmbeddingService, error) {
	switch cfg.Provider {
	case "", "ollama":
		return NewOllamaAdapter(cfg.BaseURL, cfg.Model), nil
	case "genai":
		return NewGenAIAdapter(ctx, cfg.APIKey, cfg.Model)
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s (use 'ollama' or 'genai')", cfg.Provider)
	}
}
