package llm

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/hia-ai/hia/internal/domain/ports"
)

// RetryingService decorates a ChatCompletionService with Fibonacci
// backoff on transient provider failures.
type RetryingService struct {
	inner      ports.ChatCompletionService
	maxRetries uint64
	base       time.Duration
}

// NewRetryingService wraps inner with up to maxRetries retries starting
// at the base backoff interval.
func NewRetryingService(inner ports.ChatCompletionService, maxRetries uint64, base time.Duration) *RetryingService {
	if maxRetries == 0 {
		maxRetries = 3
	}
	if base <= 0 {
		base = 1 * time.Second
	}
	return &RetryingService{
		inner:      inner,
		maxRetries: maxRetries,
		base:       base,
	}
}

// Complete performs one chat-completion call, retrying rate limits,
// server errors, and transport failures.
func (s *RetryingService) Complete(ctx context.Context, req ports.CompletionRequest) (string, error) {
	var out string
	b := retry.NewFibonacci(s.base)
	err := retry.Do(ctx, retry.WithMaxRetries(s.maxRetries, b), func(ctx context.Context) error {
		text, err := s.inner.Complete(ctx, req)
		if err != nil {
			if shouldRetry(err) {
				return retry.RetryableError(err)
			}
			return err
		}
		out = text
		return nil
	})
	if err != nil {
		return "", err
	}
	return out, nil
}

// shouldRetry reports whether the failure can clear up on its own.
// Provider 429/5xx replies and transport errors qualify; malformed
// requests and context cancellation do not.
func shouldRetry(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Retryable()
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
