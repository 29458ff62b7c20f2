// Package config loads, layers, and persists omnillm configuration.
// Resolution order per provider is environment first, then the config file,
// then package defaults. The resulting Config implements llm.SettingsSource.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"dario.cat/mergo"
	"github.com/omnillm/omnillm/llm"
	"gopkg.in/yaml.v3"
)

// KnownProviders lists every provider the library ships an adapter for.
var KnownProviders = []string{
	"zhipu",
	"moonshot",
	"tongyi",
	"volcano",
	"openai",
	"anthropic",
	"ollama",
}

// GlobalConfig carries library-wide settings.
type GlobalConfig struct {
	LogLevel        string `yaml:"log_level,omitempty" json:"log_level,omitempty"`
	DefaultProvider string `yaml:"default_provider,omitempty" json:"default_provider,omitempty"`
	AsyncTimeout    int    `yaml:"async_timeout,omitempty" json:"async_timeout,omitempty"` // seconds
	CacheEnabled    *bool  `yaml:"cache_enabled,omitempty" json:"cache_enabled,omitempty"`
	CacheTTL        int    `yaml:"cache_ttl,omitempty" json:"cache_ttl,omitempty"` // seconds
}

// CacheOn reports whether response caching is enabled. Defaults to true when
// the file leaves cache_enabled unset.
func (g GlobalConfig) CacheOn() bool {
	return g.CacheEnabled == nil || *g.CacheEnabled
}

// LLMConfig carries per-provider settings. Temperature and MaxRetries are
// pointers so a configured zero is distinguishable from "use the library
// default".
type LLMConfig struct {
	Provider    string         `yaml:"provider,omitempty" json:"provider,omitempty"`
	APIKey      string         `yaml:"api_key,omitempty" json:"api_key,omitempty"`
	BaseURL     string         `yaml:"base_url,omitempty" json:"base_url,omitempty"`
	Model       string         `yaml:"model,omitempty" json:"model,omitempty"`
	Temperature *float64       `yaml:"temperature,omitempty" json:"temperature,omitempty"`
	MaxTokens   int            `yaml:"max_tokens,omitempty" json:"max_tokens,omitempty"`
	Timeout     int            `yaml:"timeout,omitempty" json:"timeout,omitempty"` // seconds
	MaxRetries  *int           `yaml:"max_retries,omitempty" json:"max_retries,omitempty"`
	ExtraParams map[string]any `yaml:"extra_params,omitempty" json:"extra_params,omitempty"`
}

// FrameworkConfig carries per-integration settings for the frameworks
// package.
type FrameworkConfig struct {
	Framework string         `yaml:"framework,omitempty" json:"framework,omitempty"`
	Enabled   *bool          `yaml:"enabled,omitempty" json:"enabled,omitempty"`
	Config    map[string]any `yaml:"config,omitempty" json:"config,omitempty"`
}

// On reports whether the integration is enabled. Defaults to true.
func (f FrameworkConfig) On() bool {
	return f.Enabled == nil || *f.Enabled
}

// Config is the root configuration document.
type Config struct {
	Global     GlobalConfig               `yaml:"global,omitempty" json:"global,omitempty"`
	LLM        map[string]LLMConfig       `yaml:"llm,omitempty" json:"llm,omitempty"`
	Frameworks map[string]FrameworkConfig `yaml:"frameworks,omitempty" json:"frameworks,omitempty"`
}

// New returns a Config holding only defaults.
func New() *Config {
	return &Config{
		Global: GlobalConfig{
			LogLevel:        "info",
			DefaultProvider: "zhipu",
			AsyncTimeout:    60,
			CacheTTL:        3600,
		},
		LLM:        make(map[string]LLMConfig),
		Frameworks: make(map[string]FrameworkConfig),
	}
}

// Load builds a Config from defaults, the given file (optional), and the
// environment, in increasing precedence. An empty path skips the file layer.
func Load(path string) (*Config, error) {
	cfg := New()

	if path != "" {
		expanded := expandPath(path)
		data, err := os.ReadFile(expanded) //#nosec G304 -- intentional config file read
		if err != nil {
			return nil, llm.NewConfigError(fmt.Sprintf("failed to read config file %q: %v", expanded, err))
		}

		var fileCfg Config
		if strings.HasSuffix(expanded, ".json") {
			err = json.Unmarshal(data, &fileCfg)
		} else {
			err = yaml.Unmarshal(data, &fileCfg)
		}
		if err != nil {
			return nil, llm.NewConfigError(fmt.Sprintf("failed to parse config file %q: %v", expanded, err))
		}

		if err := mergo.Merge(cfg, fileCfg, mergo.WithOverride); err != nil {
			return nil, llm.NewConfigError(fmt.Sprintf("failed to merge config file %q: %v", expanded, err))
		}
	}

	cfg.applyEnv()

	if cfg.LLM == nil {
		cfg.LLM = make(map[string]LLMConfig)
	}
	if cfg.Frameworks == nil {
		cfg.Frameworks = make(map[string]FrameworkConfig)
	}
	return cfg, nil
}

// LoadDefault loads configuration from the default search path. When no file
// is found, the environment and defaults alone decide.
func LoadDefault() (*Config, error) {
	return Load(DefaultPath())
}

// DefaultPath returns the first config file found on the search path, or ""
// when none exists. OMNILLM_CONFIG_PATH overrides the search entirely.
func DefaultPath() string {
	if envPath := os.Getenv("OMNILLM_CONFIG_PATH"); envPath != "" {
		return expandPath(envPath)
	}

	candidates := []string{"./omnillm.yaml", "./omnillm.yml", "./omnillm.json"}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates,
			filepath.Join(home, ".omnillm.yaml"),
			filepath.Join(home, ".omnillm.yml"),
			filepath.Join(home, ".omnillm.json"),
		)
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c
		}
	}
	return ""
}

// applyEnv overlays environment variables onto the config. Provider keys use
// the {PROVIDER}_API_KEY / _BASE_URL / _MODEL convention.
func (c *Config) applyEnv() {
	if v := os.Getenv("OMNILLM_LOG_LEVEL"); v != "" {
		c.Global.LogLevel = v
	}
	if v := os.Getenv("OMNILLM_DEFAULT_PROVIDER"); v != "" {
		c.Global.DefaultProvider = v
	}

	for _, provider := range KnownProviders {
		prefix := strings.ToUpper(provider)
		apiKey := os.Getenv(prefix + "_API_KEY")
		baseURL := os.Getenv(prefix + "_BASE_URL")
		model := os.Getenv(prefix + "_MODEL")
		if apiKey == "" && baseURL == "" && model == "" {
			continue
		}

		entry := c.LLM[provider]
		entry.Provider = provider
		if apiKey != "" {
			entry.APIKey = apiKey
		}
		if baseURL != "" {
			entry.BaseURL = baseURL
		}
		if model != "" {
			entry.Model = model
		}
		c.LLM[provider] = entry
	}
}

// Save writes the config to path, creating parent directories as needed.
// The extension selects the format: .json for JSON, anything else YAML.
func (c *Config) Save(path string) error {
	expanded := expandPath(path)
	if err := os.MkdirAll(filepath.Dir(expanded), 0o750); err != nil {
		return llm.NewConfigError(fmt.Sprintf("failed to create config directory: %v", err))
	}

	var (
		data []byte
		err  error
	)
	if strings.HasSuffix(expanded, ".json") {
		data, err = json.MarshalIndent(c, "", "  ")
	} else {
		data, err = yaml.Marshal(c)
	}
	if err != nil {
		return llm.NewConfigError(fmt.Sprintf("failed to marshal config: %v", err))
	}

	if err := os.WriteFile(expanded, data, 0o600); err != nil {
		return llm.NewConfigError(fmt.Sprintf("failed to write config file %q: %v", expanded, err))
	}
	return nil
}

// SetLLMConfig stores a provider entry, normalizing the Provider field.
func (c *Config) SetLLMConfig(provider string, entry LLMConfig) {
	if c.LLM == nil {
		c.LLM = make(map[string]LLMConfig)
	}
	entry.Provider = provider
	c.LLM[provider] = entry
}

// Providers returns the providers with a configuration entry.
func (c *Config) Providers() []string {
	out := make([]string, 0, len(c.LLM))
	for _, p := range KnownProviders {
		if _, ok := c.LLM[p]; ok {
			out = append(out, p)
		}
	}
	return out
}

// FrameworkConfigFor returns the configuration for a framework integration.
// Missing entries come back enabled with an empty config map.
func (c *Config) FrameworkConfigFor(name string) FrameworkConfig {
	if f, ok := c.Frameworks[name]; ok {
		if f.Framework == "" {
			f.Framework = name
		}
		return f
	}
	return FrameworkConfig{Framework: name, Config: map[string]any{}}
}

// Settings implements llm.SettingsSource.
func (c *Config) Settings(provider string) (llm.ProviderSettings, bool) {
	entry, ok := c.LLM[provider]
	if !ok {
		return llm.ProviderSettings{}, false
	}
	return llm.ProviderSettings{
		Provider:    provider,
		APIKey:      entry.APIKey,
		BaseURL:     entry.BaseURL,
		Model:       entry.Model,
		Temperature: entry.Temperature,
		MaxTokens:   entry.MaxTokens,
		Timeout:     time.Duration(entry.Timeout) * time.Second,
		MaxRetries:  entry.MaxRetries,
		Extra:       entry.ExtraParams,
	}, true
}

// DefaultProvider implements llm.SettingsSource.
func (c *Config) DefaultProvider() string {
	return c.Global.DefaultProvider
}

// expandPath expands a leading ~ to the user's home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}

var _ llm.SettingsSource = (*Config)(nil)
