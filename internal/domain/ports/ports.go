// Package ports defines interfaces for external dependencies.
// Clean Architecture: These are the boundaries - usecases depend on these abstractions,
// not concrete implementations. Adapters implement these interfaces.
// This follows Dependency Inversion Principle (DIP) strictly.
package ports

import (
	"context"
	"errors"

	"github.com/hia-ai/hia/internal/domain/entities"
)

// ErrSessionNotFound is returned by stores when a session ID is unknown.
var ErrSessionNotFound = errors.New("session not found")

// EmbeddingService generates vector embeddings for text.
// Interface Segregation: Only embedding responsibility, nothing else.
type EmbeddingService interface {
	// Embed generates a vector embedding for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts efficiently.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// PromptMessage is a single entry in a chat-completion request.
type PromptMessage struct {
	Role    entities.Role
	Content string
}

// CompletionRequest carries one chat-completion call: the model, the
// assembled messages, and the sampling knobs the caller picked.
type CompletionRequest struct {
	Model       string
	Messages    []PromptMessage
	Temperature float32
	MaxTokens   int
}

// ChatCompletionService generates a response from a hosted chat model.
// Single Responsibility: Only chat inference, no embedding logic.
type ChatCompletionService interface {
	// Complete performs one blocking chat-completion call and returns
	// the assistant's text.
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// VectorIndex answers similarity queries over an embedded report.
// Indexes are ephemeral - built in memory per report text, replaced
// wholesale when the text changes, never persisted.
type VectorIndex interface {
	// Search finds the most similar chunks to a query embedding.
	Search(ctx context.Context, embedding []float32, topK int) ([]entities.SearchResult, error)

	// Len returns the number of indexed chunks.
	Len() int
}

// VectorIndexBuilder assembles an ephemeral index from embedded chunks.
type VectorIndexBuilder interface {
	Build(chunks []entities.Chunk) VectorIndex
}

// SessionStore persists conversation sessions.
type SessionStore interface {
	// CreateSession saves a new session.
	CreateSession(ctx context.Context, session entities.Session) error

	// GetSession returns the session with the given ID, or ErrSessionNotFound.
	GetSession(ctx context.Context, id string) (entities.Session, error)

	// TouchSession bumps the session's UpdatedAt timestamp.
	TouchSession(ctx context.Context, id string) error
}

// MessageStore persists chat messages in insertion order.
type MessageStore interface {
	// AppendMessage saves a message at the end of its session's history.
	AppendMessage(ctx context.Context, msg entities.ChatMessage) error

	// ListMessages returns a session's messages oldest-first.
	ListMessages(ctx context.Context, sessionID string) ([]entities.ChatMessage, error)
}

// ReportLoader reads report files from disk into extracted text.
type ReportLoader interface {
	// Load reads and extracts the report at the given path.
	Load(ctx context.Context, path string) (*entities.Report, error)

	// SupportedExtensions returns file extensions this loader handles.
	SupportedExtensions() []string
}

// ReportParser extracts text from binary report formats (PDF, TXT, MD).
// Interface Segregation: Separate from ReportLoader for different responsibilities.
type ReportParser interface {
	// Parse extracts text content from report bytes.
	Parse(ctx context.Context, data []byte, filename string) (string, error)

	// SupportedFormats returns formats this parser handles (e.g., "pdf", "txt").
	SupportedFormats() []string
}

// FileWatcher monitors a directory for changes.
type FileWatcher interface {
	// Watch starts monitoring the directory and emits events.
	Watch(ctx context.Context, dir string) (<-chan FileEvent, error)

	// Stop stops the watcher.
	Stop() error
}

// FileEvent represents a file system change.
type FileEvent struct {
	Path      string
	Operation FileOperation
}

// FileOperation is the type of file change.
type FileOperation int

const (
	FileCreated FileOperation = iota
	FileModified
	FileDeleted
)
