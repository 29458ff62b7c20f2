package zhipu

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

type streamFrame struct {
	Model   string `json:"model"`
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// Stream implements llm.LLM using BigModel's SSE framing: "data: <json>"
// lines terminated by a "[DONE]" sentinel.
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

type stream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
	http    *httpx.Client
	chunk   *llm.StreamChunk
	err     error
	done    bool
	closed  bool
}

// Next implements llm.Stream. Unparseable frames are skipped; one bad frame
// never aborts the stream.
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
		if len(frame.Choices) == 0 || frame.Choices[0].Delta.Content == "" {
			continue
		}

		s.chunk = &llm.StreamChunk{
			Content: frame.Choices[0].Delta.Content,
			Metadata: map[string]any{
				"model":         frame.Model,
				"finish_reason": frame.Choices[0].FinishReason,
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

func (s *stream) Chunk() *llm.StreamChunk { return s.chunk }

func (s *stream) Err() error { return s.err }

func (s *stream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.done = true
	return s.body.Close()
}

func (s *stream) finish() {
	s.done = true
	if !s.closed {
		s.closed = true
		_ = s.body.Close()
	}
}

var _ llm.Stream = (*stream)(nil)
