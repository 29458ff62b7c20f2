// Package openai implements the llm contract on top of the go-openai SDK.
// A custom BaseURL points the adapter at any OpenAI-compatible gateway.
package openai

import (
	"strings"
	"time"

	"github.com/omnillm/omnillm/llm"
	"github.com/omnillm/omnillm/llm/internal/httpx"
	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
)

const (
	providerName          = "openai"
	defaultModel          = "gpt-4o-mini"
	defaultEmbeddingModel = "text-embedding-3-small"
)

var supportedModels = []string{
	"gpt-4o",
	"gpt-4o-mini",
	"gpt-4-turbo",
	"gpt-3.5-turbo",
}

// Adapter wraps an SDK client. All fields are copied at construction and
// read-only afterwards, so one instance is safe for concurrent calls.
type Adapter struct {
	client      *openai.Client
	model       string
	temperature float64
	maxTokens   int
	timeout     time.Duration
	logger      zerolog.Logger
}

// New builds an OpenAI adapter from resolved settings. The "organization"
// extra maps to the SDK's organization header.
func New(s llm.ProviderSettings, logger zerolog.Logger) (*Adapter, error) {
	if s.APIKey == "" {
		return nil, llm.NewConfigError("openai: API key is required")
	}
	s = s.WithDefaults()

	cfg := openai.DefaultConfig(s.APIKey)
	if s.BaseURL != "" {
		cfg.BaseURL = strings.TrimRight(s.BaseURL, "/")
	}
	if org, ok := s.Extra["organization"].(string); ok && org != "" {
		cfg.OrgID = org
	}
	cfg.HTTPClient = httpx.SDKClient(s.Timeout)

	model := s.Model
	if model == "" {
		model = defaultModel
	}

	return &Adapter{
		client:      openai.NewClientWithConfig(cfg),
		model:       model,
		temperature: *s.Temperature,
		maxTokens:   s.MaxTokens,
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

// Close implements llm.LLM. The SDK client owns no resources beyond idle
// connections, which the shared transport reclaims on its own.
func (a *Adapter) Close() error { return nil }

var _ llm.LLM = (*Adapter)(nil)
