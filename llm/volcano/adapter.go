// Package volcano implements the llm contract for the Volcano Engine (Ark)
// chat and embedding APIs.
package volcano

import (
	"strings"
	"time"

	"github.com/omnillm/omnillm/llm"
	"github.com/omnillm/omnillm/llm/internal/httpx"
	"github.com/rs/zerolog"
)

const (
	providerName          = "volcano"
	defaultBaseURL        = "https://ark.cn-beijing.volces.com/api/v3"
	defaultModel          = "doubao-lite-4k"
	defaultEmbeddingModel = "doubao-embedding"
)

var supportedModels = []string{
	"doubao-lite-4k",
	"doubao-lite-32k",
	"doubao-lite-128k",
	"doubao-pro-4k",
	"doubao-pro-32k",
	"doubao-pro-128k",
}

// Adapter talks to the Ark OpenAI-compatible endpoints. All fields are
// copied at construction and read-only afterwards, so one instance is safe
// for concurrent calls.
type Adapter struct {
	apiKey      string
	baseURL     string
	model       string
	temperature float64
	maxTokens   int
	timeout     time.Duration
	maxRetries  int
	http        *httpx.Client
	logger      zerolog.Logger
}

// New builds a Volcano adapter from resolved settings.
func New(s llm.ProviderSettings, logger zerolog.Logger) (*Adapter, error) {
	if s.APIKey == "" {
		return nil, llm.NewConfigError("volcano: API key is required")
	}
	s = s.WithDefaults()

	baseURL := s.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	model := s.Model
	if model == "" {
		model = defaultModel
	}

	return &Adapter{
		apiKey:      s.APIKey,
		baseURL:     strings.TrimRight(baseURL, "/"),
		model:       model,
		temperature: *s.Temperature,
		maxTokens:   s.MaxTokens,
		timeout:     s.Timeout,
		maxRetries:  *s.MaxRetries,
		http:        httpx.NewClient(providerName, s.Timeout),
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

// Close releases the adapter's transport.
func (a *Adapter) Close() error { return a.http.Close() }

var _ llm.LLM = (*Adapter)(nil)
