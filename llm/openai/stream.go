package openai

import (
	"context"
	"errors"
	"io"

	"github.com/omnillm/omnillm/llm"
	openai "github.com/sashabaranov/go-openai"
)

// Stream implements llm.LLM.
func (a *Adapter) Stream(ctx context.Context, prompt llm.Prompt, opts ...llm.CallOption) (llm.Stream, error) {
	o := llm.ApplyCallOptions(opts)
	req := a.chatRequest(prompt.Normalize(), o, true)

	sdk, err := a.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return nil, a.convertError(err)
	}
	return &stream{adapter: a, sdk: sdk}, nil
}

// stream pulls delta frames from the SDK stream one Recv at a time.
type stream struct {
	adapter      *Adapter
	sdk          *openai.ChatCompletionStream
	chunk        *llm.StreamChunk
	finishReason string
	err          error
	done         bool
	closed       bool
}

// Next advances to the next content chunk. Frames without content are
// skipped; the SDK's io.EOF becomes the terminal IsComplete chunk.
func (s *stream) Next() bool {
	if s.done || s.err != nil {
		return false
	}
	for {
		resp, err := s.sdk.Recv()
		if errors.Is(err, io.EOF) {
			s.chunk = &llm.StreamChunk{
				IsComplete: true,
				Metadata:   map[string]any{"finish_reason": s.finishReason},
			}
			s.done = true
			return true
		}
		if err != nil {
			s.err = s.adapter.convertError(err)
			s.done = true
			return false
		}

		if len(resp.Choices) == 0 {
			continue
		}
		choice := resp.Choices[0]
		if choice.FinishReason != "" {
			s.finishReason = string(choice.FinishReason)
		}
		if choice.Delta.Content == "" {
			continue
		}

		s.chunk = &llm.StreamChunk{
			Content:  choice.Delta.Content,
			Metadata: map[string]any{"model": resp.Model},
		}
		return true
	}
}

// Chunk returns the chunk produced by the last successful Next.
func (s *stream) Chunk() *llm.StreamChunk { return s.chunk }

// Err reports the first error seen while streaming.
func (s *stream) Err() error { return s.err }

// Close releases the underlying SDK stream. Safe to call more than once.
func (s *stream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.done = true
	return s.sdk.Close()
}

var _ llm.Stream = (*stream)(nil)
