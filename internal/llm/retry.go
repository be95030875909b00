package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync/atomic"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// ErrGenerationUnavailable is returned when the LLM provider keeps failing
// after the retry budget is exhausted. Callers must surface it instead of
// answering without the model.
var ErrGenerationUnavailable = errors.New("llm: generation unavailable")

// Retryable reports whether a provider error is transient: rate limits,
// overload, timeouts, and 5xx responses qualify; anything else fails fast.
func Retryable(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == 429 || apiErr.HTTPStatusCode >= 500
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	errStr := err.Error()
	return strings.Contains(errStr, "rate_limit") ||
		strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "too many requests") ||
		strings.Contains(errStr, "overloaded")
}

// RetryProvider wraps a Provider with bounded exponential backoff on
// transient failures.
type RetryProvider struct {
	provider    Provider
	maxRetries  int
	baseBackoff time.Duration
	maxBackoff  time.Duration

	attempts atomic.Int64
}

// Attempts reports how many completion calls were made, including retries.
// Concurrent request handlers share one wrapper, so the counter is atomic.
func (r *RetryProvider) Attempts() int64 { return r.attempts.Load() }

// NewRetryProvider wraps the given provider. A maxRetries of 0 means a
// single attempt with no retry.
func NewRetryProvider(provider Provider, maxRetries int, baseBackoff time.Duration) *RetryProvider {
	if baseBackoff <= 0 {
		baseBackoff = time.Second
	}
	return &RetryProvider{
		provider:    provider,
		maxRetries:  maxRetries,
		baseBackoff: baseBackoff,
		maxBackoff:  2 * time.Minute,
	}
}

func (r *RetryProvider) Name() string {
	return r.provider.Name()
}

func (r *RetryProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	backoff := r.baseBackoff

	var lastErr error
	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		r.attempts.Add(1)
		resp, err := r.provider.Complete(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if !Retryable(err) {
			return nil, err
		}
		if attempt == r.maxRetries {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
			backoff *= 2
			if backoff > r.maxBackoff {
				backoff = r.maxBackoff
			}
		}
	}

	return nil, fmt.Errorf("%w: after %d attempts: %v", ErrGenerationUnavailable, r.maxRetries+1, lastErr)
}
