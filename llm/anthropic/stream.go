package anthropic

import (
	"context"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"
	"github.com/omnillm/omnillm/llm"
)

// Stream implements llm.LLM.
func (a *Adapter) Stream(ctx context.Context, prompt llm.Prompt, opts ...llm.CallOption) (llm.Stream, error) {
	o := llm.ApplyCallOptions(opts)
	params := a.messageParams(prompt.Normalize(), o)

	sdk := a.client.Messages.NewStreaming(ctx, params)
	if err := sdk.Err(); err != nil {
		_ = sdk.Close()
		return nil, a.convertError(err)
	}
	return &stream{adapter: a, sdk: sdk, usage: map[string]any{}}, nil
}

// stream pulls Messages API events and surfaces text deltas as chunks.
type stream struct {
	adapter      *Adapter
	sdk          *ssestream.Stream[anthropic.MessageStreamEventUnion]
	chunk        *llm.StreamChunk
	usage        map[string]any
	finishReason string
	err          error
	done         bool
	closed       bool
}

// Next advances to the next content chunk. Events without text are consumed
// silently; message_stop (or stream exhaustion) becomes the terminal
// IsComplete chunk.
func (s *stream) Next() bool {
	if s.done || s.err != nil {
		return false
	}
	for s.sdk.Next() {
		switch evt := s.sdk.Current().AsAny().(type) {
		case anthropic.ContentBlockDeltaEvent:
			delta, ok := evt.Delta.AsAny().(anthropic.TextDelta)
			if !ok || delta.Text == "" {
				continue
			}
			s.chunk = &llm.StreamChunk{
				Content:  delta.Text,
				Metadata: map[string]any{"model": s.adapter.model},
			}
			return true

		case anthropic.MessageDeltaEvent:
			s.usage["input_tokens"] = evt.Usage.InputTokens
			s.usage["output_tokens"] = evt.Usage.OutputTokens
			if evt.Delta.StopReason != "" {
				s.finishReason = string(evt.Delta.StopReason)
			}

		case anthropic.MessageStopEvent:
			s.finish()
			return true
		}
	}

	if err := s.sdk.Err(); err != nil {
		s.err = s.adapter.convertError(err)
		s.done = true
		return false
	}

	// Stream ended without an explicit stop event.
	s.finish()
	return true
}

func (s *stream) finish() {
	s.chunk = &llm.StreamChunk{
		IsComplete: true,
		Metadata: map[string]any{
			"finish_reason": s.finishReason,
			"usage":         s.usage,
		},
	}
	s.done = true
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
