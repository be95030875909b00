package llm

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// scriptedProvider returns canned outcomes in order, recording every
// request it receives.
type scriptedProvider struct {
	outcomes []outcome
	requests []CompletionRequest
}

type outcome struct {
	content string
	err     error
}

func (s *scriptedProvider) Name() string { return "scripted" }

func (s *scriptedProvider) Complete(_ context.Context, req CompletionRequest) (*CompletionResponse, error) {
	s.requests = append(s.requests, req)
	if len(s.outcomes) == 0 {
		return &CompletionResponse{Content: "default"}, nil
	}
	o := s.outcomes[0]
	s.outcomes = s.outcomes[1:]
	if o.err != nil {
		return nil, o.err
	}
	return &CompletionResponse{Content: o.content}, nil
}

func transientErr() error {
	return &openai.APIError{HTTPStatusCode: 429, Message: "rate limited"}
}

func TestRetryProviderSucceedsAfterTransientFailures(t *testing.T) {
	inner := &scriptedProvider{outcomes: []outcome{
		{err: transientErr()},
		{err: transientErr()},
		{content: "third time lucky"},
	}}
	r := NewRetryProvider(inner, 3, time.Millisecond)

	resp, err := r.Complete(context.Background(), CompletionRequest{Model: "m"})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.Content != "third time lucky" {
		t.Errorf("content = %q", resp.Content)
	}
	if r.Attempts() != 3 {
		t.Errorf("Attempts() = %d, want 3", r.Attempts())
	}
}

func TestRetryProviderFailsFastOnPermanentError(t *testing.T) {
	permanent := &openai.APIError{HTTPStatusCode: 400, Message: "bad request"}
	inner := &scriptedProvider{outcomes: []outcome{{err: permanent}}}
	r := NewRetryProvider(inner, 3, time.Millisecond)

	_, err := r.Complete(context.Background(), CompletionRequest{Model: "m"})
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.Is(err, ErrGenerationUnavailable) {
		t.Error("permanent error should not be wrapped as unavailability")
	}
	if r.Attempts() != 1 {
		t.Errorf("Attempts() = %d, want 1", r.Attempts())
	}
}

func TestRetryProviderExhaustsBudget(t *testing.T) {
	inner := &scriptedProvider{outcomes: []outcome{
		{err: transientErr()},
		{err: transientErr()},
		{err: transientErr()},
	}}
	r := NewRetryProvider(inner, 2, time.Millisecond)

	_, err := r.Complete(context.Background(), CompletionRequest{Model: "m"})
	if !errors.Is(err, ErrGenerationUnavailable) {
		t.Fatalf("err = %v, want ErrGenerationUnavailable", err)
	}
	if r.Attempts() != 3 {
		t.Errorf("Attempts() = %d, want 3", r.Attempts())
	}
}

// steadyProvider never fails and keeps no state, so it is safe to call
// from several goroutines at once.
type steadyProvider struct{}

func (steadyProvider) Name() string { return "steady" }
func (steadyProvider) Complete(context.Context, CompletionRequest) (*CompletionResponse, error) {
	return &CompletionResponse{Content: "ok"}, nil
}

// The server handles chat requests concurrently against one shared
// wrapper, so parallel Complete calls must keep the counter consistent.
func TestRetryProviderConcurrentCallers(t *testing.T) {
	r := NewRetryProvider(steadyProvider{}, 3, time.Millisecond)

	const callers = 8
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := r.Complete(context.Background(), CompletionRequest{Model: "m"}); err != nil {
				t.Errorf("Complete: %v", err)
			}
		}()
	}
	wg.Wait()

	if r.Attempts() != callers {
		t.Errorf("Attempts() = %d, want %d", r.Attempts(), callers)
	}
}

func TestRetryProviderHonorsContextCancellation(t *testing.T) {
	inner := &scriptedProvider{outcomes: []outcome{
		{err: transientErr()},
		{err: transientErr()},
	}}
	r := NewRetryProvider(inner, 5, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := r.Complete(ctx, CompletionRequest{Model: "m"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestRetryable(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"rate limit", &openai.APIError{HTTPStatusCode: 429}, true},
		{"server error", &openai.APIError{HTTPStatusCode: 503}, true},
		{"bad request", &openai.APIError{HTTPStatusCode: 400}, false},
		{"auth", &openai.APIError{HTTPStatusCode: 401}, false},
		{"string rate_limit", errors.New("rate_limit_exceeded"), true},
		{"string overloaded", errors.New("model overloaded, retry later"), true},
		{"plain", errors.New("no such model"), false},
	}
	for _, c := range cases {
		if got := Retryable(c.err); got != c.want {
			t.Errorf("Retryable(%s) = %v, want %v", c.name, got, c.want)
		}
	}
}
