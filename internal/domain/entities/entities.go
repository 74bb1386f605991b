// Package entities contains core business entities.
// These are the enterprise business rules - pure domain objects with no external dependencies.
package entities

import "time"

// Role identifies the author of a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// ParseRole maps a raw string onto a known role. Unknown values fall
// back to RoleUser so persisted history never carries an invalid role.
func ParseRole(s string) Role {
	switch Role(s) {
	case RoleUser, RoleAssistant, RoleSystem:
		return Role(s)
	default:
		return RoleUser
	}
}

// Session groups the messages of one conversation.
type Session struct {
	ID        string
	UserID    string
	Title     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ChatMessage represents a conversation turn.
// System-role messages may carry embedded report text (see report.go).
type ChatMessage struct {
	ID        string
	SessionID string
	Role      Role
	Content   string
	CreatedAt time.Time
}

// Report holds the extracted text of an uploaded health report.
// The text is stored as-is - no validation, no schema.
type Report struct {
	ID         string
	SessionID  string
	Filename   string
	Text       string
	UploadedAt time.Time
}

// Chunk represents a piece of report text prepared for embedding.
type Chunk struct {
	ID        string
	Index     int       // Position in the source text
	Content   string
	Embedding []float32 // Vector representation (populated by adapter)
}

// SearchResult represents a retrieved chunk with relevance.
type SearchResult struct {
	Chunk Chunk
	Score float64 // Similarity score
}

// AnalysisResult is the model-generated breakdown of an uploaded report.
type AnalysisResult struct {
	Text        string
	Model       string
	GeneratedAt time.Time
}
