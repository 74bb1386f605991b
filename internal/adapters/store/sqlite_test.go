package store

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/hia-ai/hia/internal/domain/entities"
	"github.com/hia-ai/hia/internal/domain/ports"
)

func TestSQLiteStore_SessionRoundTrip(t *testing.T) {
	dir, _ := os.MkdirTemp("", "hia-store-test-*")
	defer os.RemoveAll(dir)

	store, err := NewSQLiteStore(dir)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)
	session := entities.Session{
		ID:        "sess-1",
		UserID:    "user-1",
		Title:     "Blood work March",
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := store.CreateSession(ctx, session); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	got, err := store.GetSession(ctx, "sess-1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.Title != "Blood work March" || got.UserID != "user-1" {
		t.Errorf("unexpected session %+v", got)
	}
}

func TestSQLiteStore_GetSession_NotFound(t *testing.T) {
	dir, _ := os.MkdirTemp("", "hia-store-test-*")
	defer os.RemoveAll(dir)

	store, _ := NewSQLiteStore(dir)
	defer store.Close()

	_, err := store.GetSession(context.Background(), "nope")
	if !errors.Is(err, ports.ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestSQLiteStore_TouchSession(t *testing.T) {
	dir, _ := os.MkdirTemp("", "hia-store-test-*")
	defer os.RemoveAll(dir)

	store, _ := NewSQLiteStore(dir)
	defer store.Close()

	ctx := context.Background()
	created := time.Now().UTC().Add(-time.Hour)
	store.CreateSession(ctx, entities.Session{ID: "sess-1", UserID: "u", Title: "t", CreatedAt: created, UpdatedAt: created})

	if err := store.TouchSession(ctx, "sess-1"); err != nil {
		t.Fatalf("touch failed: %v", err)
	}

	got, _ := store.GetSession(ctx, "sess-1")
	if !got.UpdatedAt.After(created) {
		t.Errorf("UpdatedAt should move forward, got %v", got.UpdatedAt)
	}

	if err := store.TouchSession(ctx, "missing"); !errors.Is(err, ports.ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestSQLiteStore_MessagesKeepInsertionOrder(t *testing.T) {
	dir, _ := os.MkdirTemp("", "hia-store-test-*")
	defer os.RemoveAll(dir)

	store, _ := NewSQLiteStore(dir)
	defer store.Close()

	ctx := context.Background()
	now := time.Now().UTC()
	// Identical timestamps on purpose: order must come from insertion.
	for i, content := range []string{"first", "second", "third"} {
		err := store.AppendMessage(ctx, entities.ChatMessage{
			ID:        string(rune('a' + i)),
			SessionID: "sess-1",
			Role:      entities.RoleUser,
			Content:   content,
			CreatedAt: now,
		})
		if err != nil {
			t.Fatalf("append failed: %v", err)
		}
	}

	messages, err := store.ListMessages(ctx, "sess-1")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(messages) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(messages))
	}
	for i, want := range []string{"first", "second", "third"} {
		if messages[i].Content != want {
			t.Errorf("message %d: expected %q, got %q", i, want, messages[i].Content)
		}
	}

	count, err := store.MessageCount(ctx, "sess-1")
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 3 {
		t.Errorf("expected count 3, got %d", count)
	}
}

func TestSQLiteStore_ListMessages_ScopedToSession(t *testing.T) {
	dir, _ := os.MkdirTemp("", "hia-store-test-*")
	defer os.RemoveAll(dir)

	store, _ := NewSQLiteStore(dir)
	defer store.Close()

	ctx := context.Background()
	store.AppendMessage(ctx, entities.ChatMessage{ID: "m1", SessionID: "s1", Role: entities.RoleUser, Content: "mine", CreatedAt: time.Now()})
	store.AppendMessage(ctx, entities.ChatMessage{ID: "m2", SessionID: "s2", Role: entities.RoleUser, Content: "other", CreatedAt: time.Now()})

	messages, _ := store.ListMessages(ctx, "s1")
	if len(messages) != 1 || messages[0].Content != "mine" {
		t.Errorf("expected only s1 messages, got %+v", messages)
	}

	empty, err := store.ListMessages(ctx, "s3")
	if err != nil {
		t.Fatalf("empty session list failed: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("expected no messages, got %d", len(empty))
	}
}

func TestSQLiteStore_SurvivesReopen(t *testing.T) {
	dir, _ := os.MkdirTemp("", "hia-store-test-*")
	defer os.RemoveAll(dir)

	ctx := context.Background()
	now := time.Now().UTC()

	store, _ := NewSQLiteStore(dir)
	store.CreateSession(ctx, entities.Session{ID: "s1", UserID: "u", Title: "t", CreatedAt: now, UpdatedAt: now})
	store.AppendMessage(ctx, entities.ChatMessage{ID: "m1", SessionID: "s1", Role: entities.RoleSystem, Content: entities.EncodeReportContext("Patient BP 140/90."), CreatedAt: now})
	store.Close()

	reopened, err := NewSQLiteStore(dir)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()

	messages, err := reopened.ListMessages(ctx, "s1")
	if err != nil {
		t.Fatalf("list after reopen failed: %v", err)
	}
	if len(messages) != 1 {
		t.Fatalf("expected persisted message, got %d", len(messages))
	}
	if messages[0].Role != entities.RoleSystem {
		t.Errorf("role should persist, got %s", messages[0].Role)
	}
	if text, ok := entities.ExtractReportContext(messages[0].Content); !ok || text != "Patient BP 140/90." {
		t.Errorf("report context should survive storage, got %q", messages[0].Content)
	}
}
