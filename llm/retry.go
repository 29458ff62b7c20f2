package llm

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
)

const (
	retryInitialInterval     = 1 * time.Second
	retryMaxInterval         = 2 * time.Minute
	retryMultiplier          = 2.0
	retryRandomizationFactor = 0.2
)

// retrying wraps an LLM with a retry loop. Adapters themselves never retry;
// this wrapper is the layer that consumes the MaxRetries hint.
type retrying struct {
	inner      LLM
	maxRetries int
	logger     zerolog.Logger
}

// NewRetrying wraps inner so that Chat and Embedding retry retryable
// failures (rate limits, timeouts, network errors, 5xx responses) up to
// maxRetries times with exponential backoff, honoring any retry-after hint.
// Stream is not retried: a stream that has begun yielding chunks cannot be
// transparently restarted.
func NewRetrying(inner LLM, maxRetries int, logger zerolog.Logger) LLM {
	if maxRetries <= 0 {
		return inner
	}
	return &retrying{inner: inner, maxRetries: maxRetries, logger: logger}
}

func (r *retrying) ProviderName() string      { return r.inner.ProviderName() }
func (r *retrying) SupportedModels() []string { return r.inner.SupportedModels() }
func (r *retrying) Close() error              { return r.inner.Close() }

func (r *retrying) Chat(ctx context.Context, prompt Prompt, opts ...CallOption) (*Response, error) {
	var resp *Response
	err := r.retry(ctx, func() error {
		var err error
		resp, err = r.inner.Chat(ctx, prompt, opts...)
		return err
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (r *retrying) Stream(ctx context.Context, prompt Prompt, opts ...CallOption) (Stream, error) {
	return r.inner.Stream(ctx, prompt, opts...)
}

func (r *retrying) Embedding(ctx context.Context, texts []string, opts ...CallOption) ([][]float64, error) {
	var vectors [][]float64
	err := r.retry(ctx, func() error {
		var err error
		vectors, err = r.inner.Embedding(ctx, texts, opts...)
		return err
	})
	if err != nil {
		return nil, err
	}
	return vectors, nil
}

func (r *retrying) retry(ctx context.Context, op func() error) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = retryInitialInterval
	bo.MaxInterval = retryMaxInterval
	bo.Multiplier = retryMultiplier
	bo.RandomizationFactor = retryRandomizationFactor

	attempt := 0
	wrapped := func() error {
		err := op()
		if err == nil {
			return nil
		}
		if !IsRetryable(err) {
			return backoff.Permanent(err)
		}
		attempt++
		if hint := ExtractRetryAfter(err); hint != nil && *hint > bo.InitialInterval {
			bo.InitialInterval = *hint
			bo.Reset()
		}
		r.logger.Warn().
			Err(err).
			Int("attempt", attempt).
			Str("provider", r.inner.ProviderName()).
			Msg("retrying LLM call")
		return err
	}

	return backoff.Retry(wrapped, backoff.WithContext(
		backoff.WithMaxRetries(bo, uint64(r.maxRetries)), ctx))
}
