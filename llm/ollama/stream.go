package ollama

import (
	"context"
	"sync"

	"github.com/ollama/ollama/api"
	"github.com/omnillm/omnillm/llm"
)

// Stream implements llm.LLM. The daemon API is callback-driven, so a
// goroutine pumps callback frames into a channel the stream reads from.
func (a *Adapter) Stream(ctx context.Context, prompt llm.Prompt, opts ...llm.CallOption) (llm.Stream, error) {
	o := llm.ApplyCallOptions(opts)
	req := a.chatRequest(prompt.Normalize(), o, true)

	ctx, cancel := context.WithCancel(ctx)
	s := &stream{
		cancel: cancel,
		ch:     make(chan llm.StreamChunk, 16),
	}
	go s.pump(ctx, a, req)
	return s, nil
}

type stream struct {
	cancel context.CancelFunc
	ch     chan llm.StreamChunk
	chunk  *llm.StreamChunk

	mu     sync.Mutex
	err    error
	closed bool
}

func (s *stream) pump(ctx context.Context, a *Adapter, req *api.ChatRequest) {
	defer close(s.ch)

	err := a.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		if resp.Message.Content != "" {
			if !s.send(ctx, llm.StreamChunk{
				Content:  resp.Message.Content,
				Metadata: map[string]any{"model": resp.Model},
			}) {
				return ctx.Err()
			}
		}
		if resp.Done {
			if !s.send(ctx, llm.StreamChunk{
				IsComplete: true,
				Metadata: map[string]any{
					"finish_reason": resp.DoneReason,
					"usage": map[string]any{
						"prompt_eval_count": resp.PromptEvalCount,
						"eval_count":        resp.EvalCount,
					},
				},
			}) {
				return ctx.Err()
			}
		}
		return nil
	})

	if err != nil && ctx.Err() == nil {
		s.mu.Lock()
		s.err = a.convertError(err)
		s.mu.Unlock()
	}
}

func (s *stream) send(ctx context.Context, chunk llm.StreamChunk) bool {
	select {
	case s.ch <- chunk:
		return true
	case <-ctx.Done():
		return false
	}
}

// Next advances to the next chunk. It blocks until the pump produces one or
// the stream ends.
func (s *stream) Next() bool {
	chunk, ok := <-s.ch
	if !ok {
		return false
	}
	s.chunk = &chunk
	return true
}

// Chunk returns the chunk produced by the last successful Next.
func (s *stream) Chunk() *llm.StreamChunk { return s.chunk }

// Err reports the first error seen while streaming.
func (s *stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close cancels the request and drains the pump. Safe to call more than once.
func (s *stream) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	for range s.ch {
	}
	return nil
}

var _ llm.Stream = (*stream)(nil)
