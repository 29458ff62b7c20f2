package llm

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Constructor builds one adapter instance from fully resolved settings.
type Constructor func(s ProviderSettings, logger zerolog.Logger) (LLM, error)

// Registry maps provider names to adapter constructors and resolves
// construction parameters against a configuration source. It is an
// explicitly constructed object rather than package-global state so tests
// can build isolated registries.
type Registry struct {
	mu      sync.RWMutex
	ctors   map[string]Constructor
	order   []string
	keyless map[string]bool
	source  SettingsSource
	logger  zerolog.Logger
}

// NewRegistry creates an empty registry. source may be nil, in which case
// only explicit call-site arguments are used during Create.
func NewRegistry(source SettingsSource, logger zerolog.Logger) *Registry {
	return &Registry{
		ctors:   make(map[string]Constructor),
		keyless: make(map[string]bool),
		source:  source,
		logger:  logger,
	}
}

// Register inserts or overwrites the constructor for name. Re-registering a
// name keeps its original position in the provider list.
func (r *Registry) Register(name string, ctor Constructor) {
	if name == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.ctors[name]; !exists {
		r.order = append(r.order, name)
	}
	r.ctors[name] = ctor
}

// RegisterKeyless registers a provider that does not require an API key
// (local runtimes such as Ollama).
func (r *Registry) RegisterKeyless(name string, ctor Constructor) {
	r.Register(name, ctor)
	r.mu.Lock()
	r.keyless[name] = true
	r.mu.Unlock()
}

// Providers returns the registered provider names in registration order.
func (r *Registry) Providers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// CreateOption supplies an explicit construction argument to Create.
type CreateOption func(*createOptions)

type createOptions struct {
	apiKey      string
	baseURL     string
	model       string
	temperature *float64
	maxTokens   *int
	timeout     *time.Duration
	maxRetries  *int
	extra       map[string]any
}

// APIKey sets the API key explicitly, overriding any configured value.
func APIKey(key string) CreateOption {
	return func(o *createOptions) { o.apiKey = key }
}

// BaseURL sets the endpoint base URL explicitly.
func BaseURL(url string) CreateOption {
	return func(o *createOptions) { o.baseURL = url }
}

// Model sets the default model explicitly.
func Model(model string) CreateOption {
	return func(o *createOptions) { o.model = model }
}

// Temperature overrides the configured sampling temperature.
func Temperature(t float64) CreateOption {
	return func(o *createOptions) { o.temperature = &t }
}

// MaxTokens overrides the configured completion token limit.
func MaxTokens(n int) CreateOption {
	return func(o *createOptions) { o.maxTokens = &n }
}

// Timeout overrides the configured request timeout.
func Timeout(d time.Duration) CreateOption {
	return func(o *createOptions) { o.timeout = &d }
}

// MaxRetries overrides the configured retry hint.
func MaxRetries(n int) CreateOption {
	return func(o *createOptions) { o.maxRetries = &n }
}

// Extra sets a vendor-specific construction parameter.
func Extra(key string, value any) CreateOption {
	return func(o *createOptions) {
		if o.extra == nil {
			o.extra = map[string]any{}
		}
		o.extra[key] = value
	}
}

// Create instantiates a fresh adapter for provider. Explicit arguments win
// over configured values for api key, base URL, and model; tuning options
// start from the configuration entry and are then overridden key-by-key by
// the call site. Fails with a provider-not-found error for unregistered
// names and a config error when no API key is resolvable.
func (r *Registry) Create(provider string, opts ...CreateOption) (LLM, error) {
	ctor, keyless, err := r.lookup(provider)
	if err != nil {
		return nil, err
	}

	var o createOptions
	for _, opt := range opts {
		opt(&o)
	}

	s := ProviderSettings{Provider: provider}
	if r.source != nil {
		if cfg, ok := r.source.Settings(provider); ok {
			s = cfg
			s.Provider = provider
		}
	}

	if o.apiKey != "" {
		s.APIKey = o.apiKey
	}
	if o.baseURL != "" {
		s.BaseURL = o.baseURL
	}
	if o.model != "" {
		s.Model = o.model
	}
	if o.temperature != nil {
		s.Temperature = o.temperature
	}
	if o.maxTokens != nil {
		s.MaxTokens = *o.maxTokens
	}
	if o.timeout != nil {
		s.Timeout = *o.timeout
	}
	if o.maxRetries != nil {
		s.MaxRetries = o.maxRetries
	}
	if len(o.extra) > 0 {
		// The configured map belongs to the settings source; merge into a
		// fresh one so call-site extras never leak back into it.
		merged := make(map[string]any, len(s.Extra)+len(o.extra))
		for k, v := range s.Extra {
			merged[k] = v
		}
		for k, v := range o.extra {
			merged[k] = v
		}
		s.Extra = merged
	}

	return r.construct(ctor, provider, keyless, s)
}

// CreateFromConfig instantiates an adapter from a supplied settings value,
// bypassing the registry's configuration source entirely.
func (r *Registry) CreateFromConfig(provider string, s ProviderSettings) (LLM, error) {
	ctor, keyless, err := r.lookup(provider)
	if err != nil {
		return nil, err
	}
	s.Provider = provider
	return r.construct(ctor, provider, keyless, s)
}

// AutoCreate behaves as Create using the configured default provider when
// provider is empty.
func (r *Registry) AutoCreate(provider string) (LLM, error) {
	if provider == "" {
		if r.source == nil {
			return nil, NewConfigError("no default provider configured")
		}
		provider = r.source.DefaultProvider()
		if provider == "" {
			return nil, NewConfigError("no default provider configured")
		}
	}
	return r.Create(provider)
}

func (r *Registry) lookup(provider string) (Constructor, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ctor, ok := r.ctors[provider]
	if !ok {
		return nil, false, NewProviderNotFoundError(provider)
	}
	return ctor, r.keyless[provider], nil
}

func (r *Registry) construct(ctor Constructor, provider string, keyless bool, s ProviderSettings) (LLM, error) {
	s = s.WithDefaults()
	if s.APIKey == "" && !keyless {
		return nil, NewConfigError("API key not provided for provider '" + provider + "'")
	}
	r.logger.Debug().
		Str("provider", provider).
		Str("model", s.Model).
		Msg("creating LLM adapter")
	return ctor(s, r.logger)
}
