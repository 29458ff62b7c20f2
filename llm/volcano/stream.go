package volcano

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/omnillm/omnillm/llm"
	"github.com/omnillm/omnillm/llm/internal/httpx"
)

// streamFrame is one Ark SSE data frame.
type streamFrame struct {
	Model   string `json:"model"`
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// Stream implements llm.LLM. Frames arrive as "data: <json>" lines and the
// stream ends at the "[DONE]" sentinel.
func (a *Adapter) Stream(ctx context.Context, prompt llm.Prompt, opts ...llm.CallOption) (llm.Stream, error) {
	o := llm.ApplyCallOptions(opts)
	payload := a.chatPayload(prompt.Normalize(), o, true)

	resp, err := a.http.PostStream(ctx, a.baseURL+"/chat/completions", a.apiKey, nil, payload)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, a.apiError(resp)
	}

	return &stream{
		body:    resp.Body,
		scanner: httpx.NewLineScanner(resp.Body),
		http:    a.http,
	}, nil
}

// stream yields chunks in vendor-transmission order. It is consumed exactly
// once; Close releases the connection whether or not the stream was drained.
type stream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
	http    *httpx.Client
	chunk   *llm.StreamChunk
	err     error
	done    bool
	closed  bool
}

// Next implements llm.Stream. Frames that are not data frames, or whose
// payload does not parse, are skipped rather than failing the stream.
func (s *stream) Next() bool {
	if s.done || s.err != nil {
		return false
	}
	for s.scanner.Scan() {
		line := s.scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		data := strings.TrimPrefix(line, "data: ")

		if strings.TrimSpace(data) == "[DONE]" {
			s.chunk = &llm.StreamChunk{IsComplete: true}
			s.finish()
			return true
		}

		var frame streamFrame
		if err := json.Unmarshal([]byte(data), &frame); err != nil {
			continue
		}
		if len(frame.Choices) == 0 {
			continue
		}
		choice := frame.Choices[0]
		if choice.Delta.Content == "" {
			continue
		}

		s.chunk = &llm.StreamChunk{
			Content: choice.Delta.Content,
			Metadata: map[string]any{
				"model":         frame.Model,
				"finish_reason": choice.FinishReason,
			},
		}
		return true
	}

	if err := s.scanner.Err(); err != nil {
		s.err = s.http.ClassifyTransportError(err)
	}
	s.finish()
	return false
}

// Chunk implements llm.Stream.
func (s *stream) Chunk() *llm.StreamChunk { return s.chunk }

// Err implements llm.Stream.
func (s *stream) Err() error { return s.err }

// Close implements llm.Stream.
func (s *stream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.done = true
	return s.body.Close()
}

// finish marks natural termination and releases the connection.
func (s *stream) finish() {
	s.done = true
	if !s.closed {
		s.closed = true
		_ = s.body.Close()
	}
}

var _ llm.Stream = (*stream)(nil)
