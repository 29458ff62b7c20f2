package llm

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
)

// flakyLLM fails a set number of times before succeeding.
type flakyLLM struct {
	failures int
	err      error
	calls    int
}

func (f *flakyLLM) ProviderName() string      { return "flaky" }
func (f *flakyLLM) SupportedModels() []string { return nil }
func (f *flakyLLM) Close() error              { return nil }
func (f *flakyLLM) Stream(context.Context, Prompt, ...CallOption) (Stream, error) {
	return nil, nil
}

func (f *flakyLLM) Chat(context.Context, Prompt, ...CallOption) (*Response, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, f.err
	}
	return &Response{Content: "ok"}, nil
}

func (f *flakyLLM) Embedding(context.Context, []string, ...CallOption) ([][]float64, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, f.err
	}
	return [][]float64{{1.0}}, nil
}

func TestRetryingRecoversFromRetryableError(t *testing.T) {
	inner := &flakyLLM{failures: 1, err: NewAPIError("flaky", "upstream hiccup", 503)}
	wrapped := NewRetrying(inner, 3, zerolog.Nop())

	resp, err := wrapped.Chat(context.Background(), Text("hi"))
	if err != nil {
		t.Fatalf("chat failed after retries: %v", err)
	}
	if resp.Content != "ok" {
		t.Errorf("content = %q, want ok", resp.Content)
	}
	if inner.calls != 2 {
		t.Errorf("calls = %d, want 2", inner.calls)
	}
}

func TestRetryingStopsOnNonRetryableError(t *testing.T) {
	inner := &flakyLLM{failures: 10, err: NewAuthenticationError("flaky", "bad key")}
	wrapped := NewRetrying(inner, 3, zerolog.Nop())

	_, err := wrapped.Chat(context.Background(), Text("hi"))
	if !IsAuthenticationError(err) {
		t.Fatalf("expected authentication error, got %v", err)
	}
	if inner.calls != 1 {
		t.Errorf("calls = %d, non-retryable errors must not be retried", inner.calls)
	}
}

func TestRetryingGivesUpAfterMaxRetries(t *testing.T) {
	inner := &flakyLLM{failures: 10, err: NewNetworkError("flaky", nil)}
	wrapped := NewRetrying(inner, 2, zerolog.Nop())

	_, err := wrapped.Embedding(context.Background(), []string{"x"})
	if !IsNetworkError(err) {
		t.Fatalf("expected network error, got %v", err)
	}
	// initial attempt plus two retries
	if inner.calls != 3 {
		t.Errorf("calls = %d, want 3", inner.calls)
	}
}

func TestRetryingZeroRetriesReturnsInner(t *testing.T) {
	inner := &flakyLLM{}
	if wrapped := NewRetrying(inner, 0, zerolog.Nop()); wrapped != inner {
		t.Error("maxRetries <= 0 should return the inner adapter unchanged")
	}
}
