package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hia-ai/hia/internal/domain/entities"
	"github.com/hia-ai/hia/internal/domain/ports"
)

func TestOllama_Complete(t *testing.T) {
	var got ollamaChatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"message": map[string]string{"role": "assistant", "content": "Hello there!"},
			"done":    true,
		})
	}))
	defer server.Close()

	adapter := NewOllamaAdapter(server.URL)
	resp, err := adapter.Complete(context.Background(), ports.CompletionRequest{
		Model:       "llama3.2",
		Messages:    []ports.PromptMessage{{Role: entities.RoleUser, Content: "Hi"}},
		Temperature: 0.7,
		MaxTokens:   500,
	})

	if err != nil {
		t.Fatalf("complete failed: %v", err)
	}
	if resp != "Hello there!" {
		t.Errorf("unexpected response: %s", resp)
	}
	if got.Model != "llama3.2" {
		t.Errorf("unexpected model: %s", got.Model)
	}
	if got.Stream {
		t.Error("stream should be disabled")
	}
	if got.Options.NumPredict != 500 {
		t.Errorf("unexpected num_predict: %d", got.Options.NumPredict)
	}
}

func TestOllama_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	adapter := NewOllamaAdapter(server.URL)
	_, err := adapter.Complete(context.Background(), ports.CompletionRequest{Model: "test"})

	if err == nil {
		t.Fatal("should error on 404")
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %T", err)
	}
	if apiErr.StatusCode != http.StatusNotFound {
		t.Errorf("unexpected status: %d", apiErr.StatusCode)
	}
}

func TestOllama_DefaultBaseURL(t *testing.T) {
	adapter := NewOllamaAdapter("")
	if adapter.baseURL != "http://localhost:11434" {
		t.Error("should default to localhost")
	}
}
