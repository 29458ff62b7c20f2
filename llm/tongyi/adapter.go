// Package tongyi implements the llm contract for the Alibaba Tongyi Qianwen
// (DashScope) text-generation and embedding APIs.
//
// DashScope uses its own request envelope rather than the OpenAI-flat shape:
// messages nest under "input", tuning parameters under "parameters", and the
// success payload under "output".
package tongyi

import (
	"strings"
	"time"

	"github.com/omnillm/omnillm/llm"
	"github.com/omnillm/omnillm/llm/internal/httpx"
	"github.com/rs/zerolog"
)

const (
	providerName          = "tongyi"
	defaultBaseURL        = "https://dashscope.aliyuncs.com/api/v1"
	defaultModel          = "qwen-turbo"
	defaultEmbeddingModel = "text-embedding-v1"

	chatPath      = "/services/aigc/text-generation/generation"
	embeddingPath = "/services/embeddings/text-embedding/text-embedding"
)

var supportedModels = []string{
	"qwen-turbo",
	"qwen-plus",
	"qwen-max",
	"qwen-max-1201",
	"qwen-max-longcontext",
	"qwen1.5-72b-chat",
	"qwen1.5-14b-chat",
	"qwen1.5-7b-chat",
}

// Adapter talks to the DashScope endpoints. Configuration fields are copied
// at construction and read-only afterwards.
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

// New builds a Tongyi adapter from resolved settings.
func New(s llm.ProviderSettings, logger zerolog.Logger) (*Adapter, error) {
	if s.APIKey == "" {
		return nil, llm.NewConfigError("tongyi: API key is required")
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
