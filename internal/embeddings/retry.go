package embeddings

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/luisromp/personarag/internal/llm"
)

// ErrEmbeddingUnavailable is returned when the embedding provider keeps
// failing after the retry budget is exhausted.
var ErrEmbeddingUnavailable = errors.New("embeddings: provider unavailable")

// RetryEmbedder wraps an Embedder with bounded exponential backoff on
// transient failures, sharing the retryability classification with the
// LLM provider wrapper.
type RetryEmbedder struct {
	embedder    Embedder
	maxRetries  int
	baseBackoff time.Duration
	maxBackoff  time.Duration

	attempts atomic.Int64
}

// Attempts reports how many embed calls were made, including retries.
// The wrapper is shared across ingestion workers, so the counter is atomic.
func (r *RetryEmbedder) Attempts() int64 { return r.attempts.Load() }

// NewRetryEmbedder wraps the given embedder. A maxRetries of 0 means a
// single attempt with no retry.
func NewRetryEmbedder(embedder Embedder, maxRetries int, baseBackoff time.Duration) *RetryEmbedder {
	if baseBackoff <= 0 {
		baseBackoff = time.Second
	}
	return &RetryEmbedder{
		embedder:    embedder,
		maxRetries:  maxRetries,
		baseBackoff: baseBackoff,
		maxBackoff:  time.Minute,
	}
}

func (r *RetryEmbedder) Name() string    { return r.embedder.Name() }
func (r *RetryEmbedder) Dimensions() int { return r.embedder.Dimensions() }

func (r *RetryEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	backoff := r.baseBackoff

	var lastErr error
	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		r.attempts.Add(1)
		vecs, err := r.embedder.Embed(ctx, texts)
		if err == nil {
			return vecs, nil
		}
		lastErr = err

		if !llm.Retryable(err) {
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

	return nil, fmt.Errorf("%w: after %d attempts: %v", ErrEmbeddingUnavailable, r.maxRetries+1, lastErr)
}
