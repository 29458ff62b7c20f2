// Package zhipu implements the llm contract for the Zhipu AI (BigModel)
// open platform chat and embedding APIs.
package zhipu

import (
	"strings"
	"time"

	"github.com/omnillm/omnillm/llm"
	"github.com/omnillm/omnillm/llm/internal/httpx"
	"github.com/rs/zerolog"
)

const (
	providerName          = "zhipu"
	defaultBaseURL        = "https://open.bigmodel.cn/api/paas/v4"
	defaultModel          = "glm-4"
	defaultEmbeddingModel = "embedding-2"
)

var supportedModels = []string{
	"glm-4",
	"glm-4v",
	"glm-4-air",
	"glm-4-flash",
	"glm-3-turbo",
}

// Adapter talks to the BigModel OpenAI-compatible endpoints. Configuration
// is copied at construction and never mutated, so instances are safe for
// concurrent use.
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

// New builds a Zhipu adapter from resolved settings.
func New(s llm.ProviderSettings, logger zerolog.Logger) (*Adapter, error) {
	if s.APIKey == "" {
		return nil, llm.NewConfigError("zhipu: API key is required")
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
