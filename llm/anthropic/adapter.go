// Package anthropic implements the llm contract on top of the official
// Anthropic SDK. The Messages API has no embedding endpoint, so Embedding
// always fails with an api-kind error.
package anthropic

import (
	"strings"
	"time"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/omnillm/omnillm/llm"
	"github.com/omnillm/omnillm/llm/internal/httpx"
	"github.com/rs/zerolog"
)

const (
	providerName = "anthropic"
	defaultModel = "claude-haiku-4-5"

	// The Messages API requires max_tokens on every request.
	defaultMaxTokens = 4096
)

var supportedModels = []string{
	"claude-opus-4-1",
	"claude-sonnet-4-5",
	"claude-haiku-4-5",
	"claude-3-5-haiku-latest",
}

// Adapter wraps an SDK client. All fields are copied at construction and
// read-only afterwards, so one instance is safe for concurrent calls.
type Adapter struct {
	client      *anthropic.Client
	model       string
	temperature float64
	maxTokens   int
	timeout     time.Duration
	logger      zerolog.Logger
}

// New builds an Anthropic adapter from resolved settings.
func New(s llm.ProviderSettings, logger zerolog.Logger) (*Adapter, error) {
	if s.APIKey == "" {
		return nil, llm.NewConfigError("anthropic: API key is required")
	}
	s = s.WithDefaults()

	reqOpts := []option.RequestOption{
		option.WithAPIKey(s.APIKey),
		option.WithHTTPClient(httpx.SDKClient(s.Timeout)),
		// Retries are handled by the outer wrapper, not the SDK.
		option.WithMaxRetries(0),
	}
	if s.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(strings.TrimRight(s.BaseURL, "/")))
	}
	client := anthropic.NewClient(reqOpts...)

	model := s.Model
	if model == "" {
		model = defaultModel
	}
	maxTokens := s.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	return &Adapter{
		client:      &client,
		model:       model,
		temperature: *s.Temperature,
		maxTokens:   maxTokens,
		timeout:     s.Timeout,
		logger:      logger.With().Str("provider", providerName).Logger(),
	}, nil
}

// Constructor adapts New to the registry's constructor signature.
func Constructor() llm.Constructor {
	return func(s llm.ProviderSettings, logger zerolog.Logger) (llm.LLM, error) {
		return New(s, logger)
	}
}

// ProviderName implements llm.LLM.
func (a *Adapter) ProviderName() string { return providerName }

// SupportedModels implements llm.LLM.
func (a *Adapter) SupportedModels() []string {
	out := make([]string, len(supportedModels))
	copy(out, supportedModels)
	return out
}

// Close implements llm.LLM.
func (a *Adapter) Close() error { return nil }

var _ llm.LLM = (*Adapter)(nil)
