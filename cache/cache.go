package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/omnillm/omnillm/llm"
	"github.com/rs/zerolog"
)

// Wrap returns an adapter that serves Chat and Embedding results from the
// store when a fresh entry exists. Stream is never cached.
func Wrap(inner llm.LLM, store *Store, ttl time.Duration, logger zerolog.Logger) llm.LLM {
	return &caching{
		inner:  inner,
		store:  store,
		ttl:    ttl,
		logger: logger.With().Str("component", "cache").Str("provider", inner.ProviderName()).Logger(),
	}
}

type caching struct {
	inner  llm.LLM
	store  *Store
	ttl    time.Duration
	logger zerolog.Logger
}

func (c *caching) ProviderName() string      { return c.inner.ProviderName() }
func (c *caching) SupportedModels() []string { return c.inner.SupportedModels() }
func (c *caching) Close() error              { return c.inner.Close() }

// Stream implements llm.LLM. Streamed replies bypass the cache.
func (c *caching) Stream(ctx context.Context, prompt llm.Prompt, opts ...llm.CallOption) (llm.Stream, error) {
	return c.inner.Stream(ctx, prompt, opts...)
}

// Chat implements llm.LLM.
func (c *caching) Chat(ctx context.Context, prompt llm.Prompt, opts ...llm.CallOption) (*llm.Response, error) {
	key := c.digest("chat", prompt.Normalize(), llm.ApplyCallOptions(opts))

	if payload, ok := c.lookup(ctx, key); ok {
		var resp llm.Response
		if err := json.Unmarshal([]byte(payload), &resp); err == nil {
			c.logger.Debug().Str("digest", key).Msg("chat cache hit")
			return &resp, nil
		}
	}

	resp, err := c.inner.Chat(ctx, prompt, opts...)
	if err != nil {
		return nil, err
	}
	c.save(ctx, key, "chat", resp)
	return resp, nil
}

// Embedding implements llm.LLM.
func (c *caching) Embedding(ctx context.Context, texts []string, opts ...llm.CallOption) ([][]float64, error) {
	key := c.digest("embedding", texts, llm.ApplyCallOptions(opts))

	if payload, ok := c.lookup(ctx, key); ok {
		var vectors [][]float64
		if err := json.Unmarshal([]byte(payload), &vectors); err == nil {
			c.logger.Debug().Str("digest", key).Msg("embedding cache hit")
			return vectors, nil
		}
	}

	vectors, err := c.inner.Embedding(ctx, texts, opts...)
	if err != nil {
		return nil, err
	}
	c.save(ctx, key, "embedding", vectors)
	return vectors, nil
}

// digest derives the cache key from the provider, operation, input, and the
// per-call options.
func (c *caching) digest(kind string, input any, o llm.CallOptions) string {
	raw, _ := json.Marshal(struct {
		Provider string          `json:"provider"`
		Kind     string          `json:"kind"`
		Input    any             `json:"input"`
		Options  llm.CallOptions `json:"options"`
	}{c.inner.ProviderName(), kind, input, o})
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

func (c *caching) lookup(ctx context.Context, key string) (string, bool) {
	payload, ok, err := c.store.Get(ctx, key)
	if err != nil {
		c.logger.Warn().Err(err).Msg("cache lookup failed")
		return "", false
	}
	return payload, ok
}

func (c *caching) save(ctx context.Context, key, kind string, value any) {
	payload, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := c.store.Put(ctx, key, kind, c.inner.ProviderName(), string(payload), c.ttl); err != nil {
		c.logger.Warn().Err(err).Msg("cache store failed")
	}
}

var _ llm.LLM = (*caching)(nil)
