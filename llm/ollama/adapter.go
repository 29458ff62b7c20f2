// Package ollama implements the llm contract against a local or remote
// Ollama daemon. No API key is involved; the registry registers this
// provider as keyless.
package ollama

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
	"github.com/omnillm/omnillm/llm"
	"github.com/omnillm/omnillm/llm/internal/httpx"
	"github.com/rs/zerolog"
)

const (
	providerName          = "ollama"
	defaultModel          = "llama3.2"
	defaultEmbeddingModel = "nomic-embed-text"
)

var supportedModels = []string{
	"llama3.2",
	"llama3.1",
	"qwen2.5",
	"mistral",
	"nomic-embed-text",
}

// Adapter wraps the Ollama API client. All fields are copied at construction
// and read-only afterwards, so one instance is safe for concurrent calls.
type Adapter struct {
	client      *api.Client
	model       string
	temperature float64
	maxTokens   int
	timeout     time.Duration
	logger      zerolog.Logger
}

// New builds an Ollama adapter from resolved settings. An empty BaseURL
// falls back to OLLAMA_HOST or the default local daemon address.
func New(s llm.ProviderSettings, logger zerolog.Logger) (*Adapter, error) {
	s = s.WithDefaults()

	var client *api.Client
	if s.BaseURL != "" {
		base, err := parseHost(s.BaseURL)
		if err != nil {
			return nil, llm.NewConfigError(fmt.Sprintf("ollama: invalid base URL %q: %v", s.BaseURL, err))
		}
		client = api.NewClient(base, httpx.SDKClient(s.Timeout))
	} else {
		var err error
		client, err = api.ClientFromEnvironment()
		if err != nil {
			return nil, llm.NewConfigError("ollama: " + err.Error())
		}
	}

	model := s.Model
	if model == "" {
		model = defaultModel
	}

	return &Adapter{
		client:      client,
		model:       model,
		temperature: *s.Temperature,
		maxTokens:   s.MaxTokens,
		timeout:     s.Timeout,
		logger:      logger.With().Str("provider", providerName).Logger(),
	}, nil
}

// parseHost normalizes a host string into a URL, defaulting the scheme.
func parseHost(host string) (*url.URL, error) {
	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		host = "http://" + host
	}
	return url.Parse(host)
}

// Constructor adapts New to the registry's constructor signature.
func Constructor() llm.Constructor {
	return func(s llm.ProviderSettings, logger zerolog.Logger) (llm.LLM, error) {
		return New(s, logger)
	}
}

// ProviderName implements llm.LLM.
func (a *Adapter) ProviderName() string { return providerName }

// SupportedModels implements llm.LLM. The daemon serves whatever has been
// pulled locally; this list is advisory only.
func (a *Adapter) SupportedModels() []string {
	out := make([]string, len(supportedModels))
	copy(out, supportedModels)
	return out
}

// Close implements llm.LLM.
func (a *Adapter) Close() error { return nil }

var _ llm.LLM = (*Adapter)(nil)
