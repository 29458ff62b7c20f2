package zhipu

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

func TestChatSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["model"] != "glm-4" {
			t.Errorf("model = %v", body["model"])
		}

		_, _ = io.WriteString(w, `{
			"model": "glm-4",
			"choices": [{"message": {"role": "assistant", "content": "answer"}, "finish_reason": "stop"}],
			"usage": {"total_tokens": 9}
		}`)
	}))
	defer srv.Close()

	a := newTestAdapter(t, srv.URL)
	resp, err := a.Chat(context.Background(), llm.Text("question"))
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if resp.Content != "answer" {
		t.Errorf("content = %q", resp.Content)
	}
	if resp.Metadata["model"] != "glm-4" {
		t.Errorf("model = %v", resp.Metadata["model"])
	}
}

func TestChatCallOptionsOverrideSettings(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["model"] != "glm-4-air" {
			t.Errorf("model = %v, want call-site override", body["model"])
		}
		if body["temperature"] != 0.1 {
			t.Errorf("temperature = %v, want 0.1", body["temperature"])
		}
		if body["max_tokens"] != float64(64) {
			t.Errorf("max_tokens = %v, want 64", body["max_tokens"])
		}

		_, _ = io.WriteString(w, `{"choices": [{"message": {"content": "ok"}}]}`)
	}))
	defer srv.Close()

	a := newTestAdapter(t, srv.URL)
	_, err := a.Chat(context.Background(), llm.Text("x"),
		llm.WithModel("glm-4-air"),
		llm.WithTemperature(0.1),
		llm.WithMaxTokens(64),
	)
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
}

func TestStreamDeliversChunksInOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = io.WriteString(w, "data: {\"model\":\"glm-4\",\"choices\":[{\"delta\":{\"content\":\"foo\"}}]}\n")
		_, _ = io.WriteString(w, "data: {\"model\":\"glm-4\",\"choices\":[{\"delta\":{\"content\":\"bar\"}}]}\n")
		_, _ = io.WriteString(w, "data: [DONE]\n")
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
		contents = append(contents, chunk.Content)
	}
	if err := stream.Err(); err != nil {
		t.Fatalf("stream error: %v", err)
	}
	if !sawComplete {
		t.Error("missing terminal chunk")
	}
	if len(contents) != 2 || contents[0] != "foo" || contents[1] != "bar" {
		t.Errorf("contents = %v, want [foo bar]", contents)
	}
}

func TestChatAuthenticationError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"error": {"message": "invalid token"}}`)
	}))
	defer srv.Close()

	a := newTestAdapter(t, srv.URL)
	_, err := a.Chat(context.Background(), llm.Text("x"))
	if !llm.IsAuthenticationError(err) {
		t.Fatalf("expected authentication error, got %v", err)
	}
}

func TestEmbeddingDefaultsModel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["model"] != "embedding-2" {
			t.Errorf("model = %v", body["model"])
		}
		_, _ = io.WriteString(w, `{"data": [{"embedding": [1, 2, 3]}]}`)
	}))
	defer srv.Close()

	a := newTestAdapter(t, srv.URL)
	vectors, err := a.Embedding(context.Background(), []string{"x"})
	if err != nil {
		t.Fatalf("Embedding: %v", err)
	}
	if len(vectors) != 1 || len(vectors[0]) != 3 {
		t.Errorf("vectors = %v", vectors)
	}
}
