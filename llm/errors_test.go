package llm

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestErrorPredicates(t *testing.T) {
	retryAfter := 5 * time.Second
	cases := []struct {
		err  error
		pred func(error) bool
	}{
		{NewConfigError("missing key"), IsConfigError},
		{NewProviderNotFoundError("nope"), IsProviderNotFoundError},
		{NewModelNotFoundError("m", "p"), IsModelNotFoundError},
		{NewAuthenticationError("p", "bad key"), IsAuthenticationError},
		{NewRateLimitError("p", "slow down", &retryAfter), IsRateLimitError},
		{NewAPIError("p", "boom", 500), IsAPIError},
		{NewTimeoutError("p", time.Second, nil), IsTimeoutError},
		{NewNetworkError("p", errors.New("refused")), IsNetworkError},
		{NewFrameworkError("langchain", "not available"), IsFrameworkError},
	}
	for _, c := range cases {
		if !c.pred(c.err) {
			t.Errorf("predicate did not match its own error: %v", c.err)
		}
	}

	if IsConfigError(NewNetworkError("p", nil)) {
		t.Error("IsConfigError matched a network error")
	}
	if IsRateLimitError(errors.New("plain")) {
		t.Error("IsRateLimitError matched a plain error")
	}
}

func TestErrorPredicatesThroughWrapping(t *testing.T) {
	err := fmt.Errorf("create adapter: %w", NewAuthenticationError("zhipu", "invalid key"))
	if !IsAuthenticationError(err) {
		t.Error("predicate should match through fmt.Errorf wrapping")
	}
	if StatusCode(err) != 401 {
		t.Errorf("StatusCode = %d, want 401", StatusCode(err))
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewNetworkError("tongyi", cause)
	if !errors.Is(err, cause) {
		t.Error("errors.Is should find the cause")
	}
	if err.Unwrap() != cause {
		t.Error("Unwrap should return the cause")
	}
}

func TestRetryability(t *testing.T) {
	if !IsRetryable(NewRateLimitError("p", "x", nil)) {
		t.Error("rate limit errors should be retryable")
	}
	if !IsRetryable(NewTimeoutError("p", time.Second, nil)) {
		t.Error("timeout errors should be retryable")
	}
	if !IsRetryable(NewNetworkError("p", nil)) {
		t.Error("network errors should be retryable")
	}
	if !IsRetryable(NewAPIError("p", "server blew up", 503)) {
		t.Error("5xx API errors should be retryable")
	}
	if IsRetryable(NewAPIError("p", "bad request", 400)) {
		t.Error("4xx API errors should not be retryable")
	}
	if IsRetryable(NewAuthenticationError("p", "x")) {
		t.Error("authentication errors should not be retryable")
	}
	if IsRetryable(NewConfigError("x")) {
		t.Error("config errors should not be retryable")
	}
}

func TestExtractRetryAfter(t *testing.T) {
	hint := 30 * time.Second
	err := NewRateLimitError("p", "x", &hint)
	got := ExtractRetryAfter(err)
	if got == nil || *got != hint {
		t.Errorf("ExtractRetryAfter = %v, want %v", got, hint)
	}
	if ExtractRetryAfter(NewAPIError("p", "x", 500)) != nil {
		t.Error("ExtractRetryAfter should be nil without a hint")
	}
}

func TestProviderNotFoundMessage(t *testing.T) {
	err := NewProviderNotFoundError("volcano")
	want := `LLM provider "volcano" not found`
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestErrorStringIncludesProviderAndCause(t *testing.T) {
	err := NewNetworkError("moonshot", errors.New("dial tcp: refused"))
	got := err.Error()
	want := "moonshot: network error: dial tcp: refused"
	if got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
