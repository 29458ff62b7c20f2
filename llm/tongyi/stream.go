package tongyi

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

// streamFrame is one DashScope SSE data frame. With incremental_output the
// message content carries only the delta.
type streamFrame struct {
	Output struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
			FinishReason string `json:"finish_reason"`
		} `json:"choices"`
	} `json:"output"`
}

// Stream implements llm.LLM. DashScope requires the X-DashScope-SSE header
// to switch the endpoint into SSE mode; frames use a "data:" prefix and the
// stream ends at the "[DONE]" sentinel.
func (a *Adapter) Stream(ctx context.Context, prompt llm.Prompt, opts ...llm.CallOption) (llm.Stream, error) {
	o := llm.ApplyCallOptions(opts)
	payload := a.chatPayload(prompt.Normalize(), o, true)

	headers := map[string]string{
		"Accept":          "text/event-stream",
		"X-DashScope-SSE": "enable",
	}
	resp, err := a.http.PostStream(ctx, a.baseURL+chatPath, a.apiKey, headers, payload)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, a.apiError(resp)
	}

	return &stream{
		model:   a.model,
		body:    resp.Body,
		scanner: httpx.NewLineScanner(resp.Body),
		http:    a.http,
	}, nil
}

type stream struct {
	model   string
	body    io.ReadCloser
	scanner *bufio.Scanner
	http    *httpx.Client
	chunk   *llm.StreamChunk
	err     error
	done    bool
	closed  bool
}

// Next implements llm.Stream. Non-data frames (event/id lines) and frames
// that fail to parse are skipped without failing the stream.
func (s *stream) Next() bool {
	if s.done || s.err != nil {
		return false
	}
	for s.scanner.Scan() {
		line := s.scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))

		if data == "[DONE]" {
			s.chunk = &llm.StreamChunk{IsComplete: true}
			s.finish()
			return true
		}

		var frame streamFrame
		if err := json.Unmarshal([]byte(data), &frame); err != nil {
			continue
		}
		if len(frame.Output.Choices) == 0 {
			continue
		}
		choice := frame.Output.Choices[0]
		if choice.Message.Content == "" {
			continue
		}

		s.chunk = &llm.StreamChunk{
			Content: choice.Message.Content,
			Metadata: map[string]any{
				"model":         s.model,
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
