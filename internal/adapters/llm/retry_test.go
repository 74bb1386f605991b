package llm

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/hia-ai/hia/internal/domain/ports"
)

type flakyCompleter struct {
	calls    int
	failures int
	err      error
}

func (f *flakyCompleter) Complete(ctx context.Context, req ports.CompletionRequest) (string, error) {
	f.calls++
	if f.calls <= f.failures {
		return "", f.err
	}
	return "recovered", nil
}

func TestRetrying_RetriesTransientFailures(t *testing.T) {
	inner := &flakyCompleter{failures: 2, err: &APIError{StatusCode: http.StatusServiceUnavailable}}
	svc := NewRetryingService(inner, 3, time.Millisecond)

	out, err := svc.Complete(context.Background(), ports.CompletionRequest{Model: "test"})
	if err != nil {
		t.Fatalf("complete failed: %v", err)
	}
	if out != "recovered" {
		t.Errorf("unexpected output: %s", out)
	}
	if inner.calls != 3 {
		t.Errorf("expected 3 attempts, got %d", inner.calls)
	}
}

func TestRetrying_PermanentFailureStops(t *testing.T) {
	inner := &flakyCompleter{failures: 10, err: &APIError{StatusCode: http.StatusBadRequest}}
	svc := NewRetryingService(inner, 3, time.Millisecond)

	if _, err := svc.Complete(context.Background(), ports.CompletionRequest{Model: "test"}); err == nil {
		t.Fatal("expected error")
	}
	if inner.calls != 1 {
		t.Errorf("permanent failure should not retry, got %d attempts", inner.calls)
	}
}

func TestRetrying_ExhaustsBudget(t *testing.T) {
	inner := &flakyCompleter{failures: 10, err: &APIError{StatusCode: http.StatusInternalServerError}}
	svc := NewRetryingService(inner, 2, time.Millisecond)

	if _, err := svc.Complete(context.Background(), ports.CompletionRequest{Model: "test"}); err == nil {
		t.Fatal("expected error after budget exhausted")
	}
	if inner.calls != 3 {
		t.Errorf("expected initial attempt plus 2 retries, got %d", inner.calls)
	}
}
