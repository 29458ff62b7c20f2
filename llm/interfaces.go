package llm

import (
	"context"

	"github.com/samber/lo"
)

// LLM is the provider-neutral contract every vendor adapter implements.
// Implementations own one HTTP transport for their lifetime, copy their
// configuration at construction, and never mutate it afterwards, so a single
// instance is safe for concurrent calls.
type LLM interface {
	// ProviderName returns the stable short identifier for the vendor.
	ProviderName() string

	// SupportedModels returns the static list of model identifiers the
	// adapter recognizes for this vendor.
	SupportedModels() []string

	// Chat sends a single non-streaming request and returns the complete
	// response.
	Chat(ctx context.Context, prompt Prompt, opts ...CallOption) (*Response, error)

	// Stream sends a streaming request and returns a lazy, finite,
	// non-restartable chunk sequence. The caller must drain or Close the
	// stream to release its connection.
	Stream(ctx context.Context, prompt Prompt, opts ...CallOption) (Stream, error)

	// Embedding returns one vector per input text, in input order.
	Embedding(ctx context.Context, texts []string, opts ...CallOption) ([][]float64, error)

	// Close releases the adapter's transport resources. The adapter must not
	// be used after Close.
	Close() error
}

// Stream represents a streaming response. Chunks are delivered strictly in
// vendor-transmission order and the sequence is consumed exactly once.
type Stream interface {
	// Next advances to the next chunk, suspending until one arrives.
	// Returns false when the stream is complete or an error occurs.
	Next() bool

	// Chunk returns the current chunk. Only valid after Next returns true.
	Chunk() *StreamChunk

	// Err returns any error that occurred during streaming.
	Err() error

	// Close releases the stream's connection. Safe to call at any point,
	// including mid-iteration abandonment.
	Close() error
}

// SettingsSource is the narrow configuration interface the registry consumes.
// The config package implements it; tests supply fakes.
type SettingsSource interface {
	// Settings returns the stored configuration for a provider, if any.
	Settings(provider string) (ProviderSettings, bool)

	// DefaultProvider returns the globally configured default provider name.
	DefaultProvider() string
}

// ValidateModel checks a model against an adapter's supported list. The
// check is advisory: registries and adapters do not enforce it before a
// call, since vendors routinely accept models newer than the static list.
func ValidateModel(adapter LLM, model string) error {
	if model == "" {
		return nil
	}
	if lo.Contains(adapter.SupportedModels(), model) {
		return nil
	}
	return NewModelNotFoundError(model, adapter.ProviderName())
}
