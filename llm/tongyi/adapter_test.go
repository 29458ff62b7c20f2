package tongyi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

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

func TestChatUsesDashScopeEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/services/aigc/text-generation/generation" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q", got)
		}

		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if body["model"] != "qwen-turbo" {
			t.Errorf("model = %v", body["model"])
		}
		input := body["input"].(map[string]any)
		msgs := input["messages"].([]any)
		first := msgs[0].(map[string]any)
		if first["role"] != "user" || first["content"] != "hello" {
			t.Errorf("input.messages[0] = %v", first)
		}
		params := body["parameters"].(map[string]any)
		if params["result_format"] != "message" {
			t.Errorf("result_format = %v", params["result_format"])
		}
		if _, ok := params["incremental_output"]; ok {
			t.Error("incremental_output should be absent on unary chat")
		}

		_, _ = io.WriteString(w, `{
			"output": {
				"choices": [{"message": {"role": "assistant", "content": "ni hao"}, "finish_reason": "stop"}],
				"usage": {"input_tokens": 4, "output_tokens": 3}
			}
		}`)
	}))
	defer srv.Close()

	a := newTestAdapter(t, srv.URL)
	resp, err := a.Chat(context.Background(), llm.Text("hello"))
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if resp.Content != "ni hao" {
		t.Errorf("content = %q", resp.Content)
	}
	if resp.Metadata["model"] != "qwen-turbo" {
		t.Errorf("model = %v", resp.Metadata["model"])
	}
	if resp.Usage["input_tokens"] != float64(4) {
		t.Errorf("usage = %v", resp.Usage)
	}
}

func TestChatTopLevelErrorMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"code": "InvalidApiKey", "message": "Invalid API-key provided."}`)
	}))
	defer srv.Close()

	a := newTestAdapter(t, srv.URL)
	_, err := a.Chat(context.Background(), llm.Text("x"))
	if !llm.IsAuthenticationError(err) {
		t.Fatalf("expected authentication error, got %v", err)
	}
	var lerr *llm.Error
	if !errors.As(err, &lerr) {
		t.Fatalf("not an *llm.Error: %v", err)
	}
	if lerr.Provider != "tongyi" {
		t.Errorf("provider = %q", lerr.Provider)
	}
}

func TestChatRateLimitRetryAfter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "3")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, `{"message": "Throttling.RateQuota"}`)
	}))
	defer srv.Close()

	a := newTestAdapter(t, srv.URL)
	_, err := a.Chat(context.Background(), llm.Text("x"))
	if !llm.IsRateLimitError(err) {
		t.Fatalf("expected rate limit error, got %v", err)
	}
	if hint := llm.ExtractRetryAfter(err); hint == nil || *hint != 3*time.Second {
		t.Errorf("retry-after = %v, want 3s", hint)
	}
}

func TestChatMalformedSuccessBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"output": {}}`)
	}))
	defer srv.Close()

	a := newTestAdapter(t, srv.URL)
	_, err := a.Chat(context.Background(), llm.Text("x"))
	if !llm.IsAPIError(err) {
		t.Fatalf("expected api error, got %v", err)
	}
	if llm.StatusCode(err) != 0 {
		t.Errorf("status = %d, want 0 for a bad 2xx body", llm.StatusCode(err))
	}
}

func TestStreamSetsSSEHeadersAndIncrementalOutput(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("X-DashScope-SSE"); got != "enable" {
			t.Errorf("X-DashScope-SSE = %q", got)
		}
		if got := r.Header.Get("Accept"); got != "text/event-stream" {
			t.Errorf("Accept = %q", got)
		}

		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		params := body["parameters"].(map[string]any)
		if params["incremental_output"] != true {
			t.Errorf("incremental_output = %v, want true", params["incremental_output"])
		}

		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = io.WriteString(w, "id:1\n")
		_, _ = io.WriteString(w, "event:result\n")
		_, _ = io.WriteString(w, "data:{\"output\":{\"choices\":[{\"message\":{\"content\":\"Qian\"},\"finish_reason\":\"null\"}]}}\n")
		_, _ = io.WriteString(w, "data:not json\n")
		_, _ = io.WriteString(w, "data:{\"output\":{\"choices\":[{\"message\":{\"content\":\"wen\"},\"finish_reason\":\"stop\"}]}}\n")
		_, _ = io.WriteString(w, "data:[DONE]\n")
	}))
	defer srv.Close()

	a := newTestAdapter(t, srv.URL)
	stream, err := a.Stream(context.Background(), llm.Text("hi"))
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	defer stream.Close()

	var contents []string
	var sawComplete bool
	for stream.Next() {
		chunk := stream.Chunk()
		if chunk.IsComplete {
			sawComplete = true
			break
		}
		if chunk.Metadata["model"] != "qwen-turbo" {
			t.Errorf("chunk model = %v", chunk.Metadata["model"])
		}
		contents = append(contents, chunk.Content)
	}
	if err := stream.Err(); err != nil {
		t.Fatalf("stream error: %v", err)
	}
	if !sawComplete {
		t.Error("missing terminal chunk")
	}
	if len(contents) != 2 || contents[0] != "Qian" || contents[1] != "wen" {
		t.Errorf("contents = %v, want [Qian wen]", contents)
	}
}

func TestStreamServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = io.WriteString(w, `{"message": "model overloaded"}`)
	}))
	defer srv.Close()

	a := newTestAdapter(t, srv.URL)
	_, err := a.Stream(context.Background(), llm.Text("x"))
	if !llm.IsAPIError(err) {
		t.Fatalf("expected api error, got %v", err)
	}
	if !llm.IsRetryable(err) {
		t.Error("503 should be retryable")
	}
}

func TestEmbeddingNestedInputAndOutput(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/services/embeddings/text-embedding/text-embedding" {
			t.Errorf("path = %q", r.URL.Path)
		}
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["model"] != "text-embedding-v1" {
			t.Errorf("model = %v", body["model"])
		}
		input := body["input"].(map[string]any)
		texts := input["texts"].([]any)
		if len(texts) != 2 || texts[0] != "alpha" || texts[1] != "beta" {
			t.Errorf("input.texts = %v", texts)
		}

		_, _ = io.WriteString(w, `{
			"output": {"embeddings": [{"embedding": [0.5, 0.6]}, {"embedding": [0.7, 0.8]}]}
		}`)
	}))
	defer srv.Close()

	a := newTestAdapter(t, srv.URL)
	vectors, err := a.Embedding(context.Background(), []string{"alpha", "beta"})
	if err != nil {
		t.Fatalf("Embedding: %v", err)
	}
	if len(vectors) != 2 {
		t.Fatalf("got %d vectors", len(vectors))
	}
	if vectors[0][0] != 0.5 || vectors[1][0] != 0.7 {
		t.Errorf("vectors out of order: %v", vectors)
	}
}
