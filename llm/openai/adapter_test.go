package openai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/omnillm/omnillm/llm"
	"github.com/rs/zerolog"
)

func newTestAdapter(t *testing.T, baseURL string) *Adapter {
	t.Helper()
	a, err := New(llm.ProviderSettings{APIKey: "test-key", BaseURL: baseURL}, zerolog.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestNewRequiresAPIKey(t *testing.T) {
	_, err := New(llm.ProviderSettings{}, zerolog.Nop())
	if !llm.IsConfigError(err) {
		t.Fatalf("expected config error, got %v", err)
	}
}

func TestChatSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q", got)
		}

		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if body["model"] != "gpt-4o-mini" {
			t.Errorf("model = %v", body["model"])
		}
		msgs := body["messages"].([]any)
		first := msgs[0].(map[string]any)
		if first["role"] != "user" || first["content"] != "hello" {
			t.Errorf("messages[0] = %v", first)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"model": "gpt-4o-mini",
			"choices": [{"message": {"role": "assistant", "content": "hi there"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 3, "completion_tokens": 2, "total_tokens": 5}
		}`)
	}))
	defer srv.Close()

	a := newTestAdapter(t, srv.URL)
	resp, err := a.Chat(context.Background(), llm.Text("hello"))
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if resp.Content != "hi there" {
		t.Errorf("content = %q", resp.Content)
	}
	if resp.Role != llm.RoleAssistant {
		t.Errorf("role = %q", resp.Role)
	}
	if resp.Metadata["finish_reason"] != "stop" {
		t.Errorf("finish_reason = %v", resp.Metadata["finish_reason"])
	}
	if resp.Usage["total_tokens"] != 5 {
		t.Errorf("total_tokens = %v", resp.Usage["total_tokens"])
	}
}

func TestOrganizationHeaderFromExtra(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("OpenAI-Organization"); got != "org-42" {
			t.Errorf("OpenAI-Organization = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"choices": [{"message": {"content": "ok"}}]}`)
	}))
	defer srv.Close()

	a, err := New(llm.ProviderSettings{
		APIKey:  "test-key",
		BaseURL: srv.URL,
		Extra:   map[string]any{"organization": "org-42"},
	}, zerolog.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	if _, err := a.Chat(context.Background(), llm.Text("hello")); err != nil {
		t.Fatalf("Chat: %v", err)
	}
}

func TestChatAuthenticationError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"error": {"message": "invalid api key", "type": "invalid_request_error"}}`)
	}))
	defer srv.Close()

	a := newTestAdapter(t, srv.URL)
	_, err := a.Chat(context.Background(), llm.Text("hello"))
	if !llm.IsAuthenticationError(err) {
		t.Fatalf("expected authentication error, got %v", err)
	}
	if llm.IsRetryable(err) {
		t.Error("authentication errors must not be retryable")
	}
}

func TestChatRateLimitRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, `{"error": {"message": "slow down", "type": "rate_limit_error"}}`)
	}))
	defer srv.Close()

	a := newTestAdapter(t, srv.URL)
	_, err := a.Chat(context.Background(), llm.Text("hello"))
	if !llm.IsRateLimitError(err) {
		t.Fatalf("expected rate limit error, got %v", err)
	}
	if !llm.IsRetryable(err) {
		t.Error("rate limit errors must be retryable")
	}
}

func TestStreamDeliversChunksInOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if body["stream"] != true {
			t.Errorf("stream = %v", body["stream"])
		}

		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = io.WriteString(w, "data: {\"model\":\"gpt-4o-mini\",\"choices\":[{\"delta\":{\"content\":\"Hel\"}}]}\n\n")
		_, _ = io.WriteString(w, "data: {\"model\":\"gpt-4o-mini\",\"choices\":[{\"delta\":{\"content\":\"lo\"}}]}\n\n")
		_, _ = io.WriteString(w, "data: {\"model\":\"gpt-4o-mini\",\"choices\":[{\"delta\":{},\"finish_reason\":\"stop\"}]}\n\n")
		_, _ = io.WriteString(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	a := newTestAdapter(t, srv.URL)
	s, err := a.Stream(context.Background(), llm.Text("hello"))
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	defer s.Close()

	var contents []string
	var terminal *llm.StreamChunk
	for s.Next() {
		c := s.Chunk()
		if c.IsComplete {
			terminal = c
			continue
		}
		contents = append(contents, c.Content)
	}
	if err := s.Err(); err != nil {
		t.Fatalf("stream error: %v", err)
	}
	if len(contents) != 2 || contents[0] != "Hel" || contents[1] != "lo" {
		t.Errorf("contents = %v", contents)
	}
	if terminal == nil {
		t.Fatal("terminal chunk never delivered")
	}
	if terminal.Metadata["finish_reason"] != "stop" {
		t.Errorf("finish_reason = %v", terminal.Metadata["finish_reason"])
	}
	if s.Next() {
		t.Error("Next returned true after the terminal chunk")
	}
}

func TestEmbeddingPreservesOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("path = %q", r.URL.Path)
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if body["model"] != "text-embedding-3-small" {
			t.Errorf("model = %v", body["model"])
		}
		input := body["input"].([]any)
		if len(input) != 2 || input[0] != "first" || input[1] != "second" {
			t.Errorf("input = %v", input)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"data": [
				{"index": 0, "embedding": [0.25, 0.5]},
				{"index": 1, "embedding": [0.75, 1.0]}
			]
		}`)
	}))
	defer srv.Close()

	a := newTestAdapter(t, srv.URL)
	vecs, err := a.Embedding(context.Background(), []string{"first", "second"})
	if err != nil {
		t.Fatalf("Embedding: %v", err)
	}
	if len(vecs) != 2 {
		t.Fatalf("got %d vectors, want 2", len(vecs))
	}
	if vecs[0][0] != 0.25 || vecs[0][1] != 0.5 {
		t.Errorf("vecs[0] = %v", vecs[0])
	}
	if vecs[1][0] != 0.75 || vecs[1][1] != 1.0 {
		t.Errorf("vecs[1] = %v", vecs[1])
	}
}

func TestChatEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"choices": []}`)
	}))
	defer srv.Close()

	a := newTestAdapter(t, srv.URL)
	_, err := a.Chat(context.Background(), llm.Text("hello"))
	if !llm.IsAPIError(err) {
		t.Fatalf("expected api error, got %v", err)
	}
	if got := llm.StatusCode(err); got != 0 {
		t.Errorf("status code = %d, want 0", got)
	}
}
