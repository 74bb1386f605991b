package store

import (
	"context"
	"sync"
	"time"

	"github.com/hia-ai/hia/internal/domain/entities"
	"github.com/hia-ai/hia/internal/domain/ports"
)

// MemoryStore keeps sessions and messages in process maps. It backs
// tests and local development where a database file is unwanted.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]entities.Session
	messages map[string][]entities.ChatMessage
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]entities.Session),
		messages: make(map[string][]entities.ChatMessage),
	}
}

// CreateSession saves a new session.
func (s *MemoryStore) CreateSession(ctx context.Context, session entities.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = session
	return nil
}

// Sessions returns a snapshot of all stored sessions, in no particular
// order. Handy for dev tooling; not part of any port.
func (s *MemoryStore) Sessions() []entities.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]entities.Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		out = append(out, session)
	}
	return out
}

// GetSession returns the session with the given ID.
func (s *MemoryStore) GetSession(ctx context.Context, id string) (entities.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	if !ok {
		return entities.Session{}, ports.ErrSessionNotFound
	}
	return session, nil
}

// TouchSession bumps the session's UpdatedAt timestamp.
func (s *MemoryStore) TouchSession(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return ports.ErrSessionNotFound
	}
	session.UpdatedAt = time.Now().UTC()
	s.sessions[id] = session
	return nil
}

// AppendMessage saves a message at the end of its session's history.
func (s *MemoryStore) AppendMessage(ctx context.Context, msg entities.ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages[msg.SessionID] = append(s.messages[msg.SessionID], msg)
	return nil
}

// ListMessages returns a copy of a session's messages oldest-first.
func (s *MemoryStore) ListMessages(ctx context.Context, sessionID string) ([]entities.ChatMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msgs := s.messages[sessionID]
	out := make([]entities.ChatMessage, len(msgs))
	copy(out, msgs)
	return out, nil
}
