// Package llm provides chat-completion adapters.
// Clean Architecture: Adapters implementing ports.ChatCompletionService.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/hia-ai/hia/internal/domain/ports"
)

// APIError is a non-2xx reply from a completion provider.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("completion API status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("completion API status %d", e.StatusCode)
}

// Retryable reports whether the failure can clear up on its own.
func (e *APIError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// GroqAdapter implements ports.ChatCompletionService against Groq's
// OpenAI-compatible chat completions API.
type GroqAdapter struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewGroqAdapter creates a new Groq adapter. The key is required: a
// missing key fails construction, and the orchestrator turns that into
// its stored init error.
func NewGroqAdapter(baseURL, apiKey string) (*GroqAdapter, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GROQ_API_KEY is not set")
	}
	if baseURL == "" {
		baseURL = "https://api.groq.com"
	}
	return &GroqAdapter{
		baseURL: baseURL,
		apiKey:  apiKey,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}, nil
}

type groqMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// groqChatRequest is the chat completions API request.
type groqChatRequest struct {
	Model       string        `json:"model"`
	Messages    []groqMessage `json:"messages"`
	Temperature float32       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

// groqChatResponse is the chat completions API response.
type groqChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Complete performs one blocking chat-completion call.
func (a *GroqAdapter) Complete(ctx context.Context, req ports.CompletionRequest) (string, error) {
	body := groqChatRequest{
		Model:       req.Model,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	for _, m := range req.Messages {
		body.Messages = append(body.Messages, groqMessage{Role: string(m.Role), Content: m.Content})
	}

	jsonData, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", a.baseURL+"/openai/v1/chat/completions", bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+a.apiKey)

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("calling Groq: %w", err)
	}
	defer resp.Body.Close()

	var chatResp groqChatResponse
	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if json.NewDecoder(resp.Body).Decode(&chatResp) == nil && chatResp.Error != nil {
			apiErr.Message = chatResp.Error.Message
		}
		return "", apiErr
	}

	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("Groq returned no choices")
	}
	return chatResp.Choices[0].Message.Content, nil
}
