package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/hia-ai/hia/internal/domain/entities"
	"github.com/hia-ai/hia/internal/domain/ports"
)

// GeminiAdapter implements ports.ChatCompletionService using Google's
// Gemini API.
type GeminiAdapter struct {
	client *genai.Client
}

// NewGeminiAdapter creates a new Gemini chat adapter.
func NewGeminiAdapter(ctx context.Context, apiKey string) (*GeminiAdapter, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is not set")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("creating Gemini client: %w", err)
	}
	return &GeminiAdapter{client: client}, nil
}

// Complete performs one blocking chat-completion call. System messages
// become the system instruction; the rest map onto Gemini's user/model
// turn structure.
func (a *GeminiAdapter) Complete(ctx context.Context, req ports.CompletionRequest) (string, error) {
	var system string
	var contents []*genai.Content
	for _, m := range req.Messages {
		switch m.Role {
		case entities.RoleSystem:
			if system != "" {
				system += "\n\n"
			}
			system += m.Content
		case entities.RoleAssistant:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}

	temp := req.Temperature
	cfg := &genai.GenerateContentConfig{
		Temperature:     &temp,
		MaxOutputTokens: int32(req.MaxTokens),
	}
	if system != "" {
		cfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}

	res, err := a.client.Models.GenerateContent(ctx, req.Model, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("generating content: %w", err)
	}

	text := res.Text()
	if text == "" {
		return "", fmt.Errorf("Gemini returned an empty response")
	}
	return text, nil
}
