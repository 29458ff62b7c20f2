// Package omnillm wires the built-in vendor adapters into a ready-to-use
// registry. The llm package holds the provider-neutral contract; this package
// is the assembly point applications import.
package omnillm

import (
	"github.com/omnillm/omnillm/llm"
	"github.com/omnillm/omnillm/llm/anthropic"
	"github.com/omnillm/omnillm/llm/moonshot"
	"github.com/omnillm/omnillm/llm/ollama"
	"github.com/omnillm/omnillm/llm/openai"
	"github.com/omnillm/omnillm/llm/tongyi"
	"github.com/omnillm/omnillm/llm/volcano"
	"github.com/omnillm/omnillm/llm/zhipu"
	"github.com/rs/zerolog"
)

// Version is the library version reported to framework integrations.
const Version = "1.0.0"

// DefaultRegistry builds a registry with every built-in provider registered.
// source may be nil; in that case only explicit Create arguments apply.
func DefaultRegistry(source llm.SettingsSource, logger zerolog.Logger) *llm.Registry {
	r := llm.NewRegistry(source, logger)
	r.Register("zhipu", zhipu.Constructor())
	r.Register("moonshot", moonshot.Constructor())
	r.Register("tongyi", tongyi.Constructor())
	r.Register("volcano", volcano.Constructor())
	r.Register("openai", openai.Constructor())
	r.Register("anthropic", anthropic.Constructor())
	r.RegisterKeyless("ollama", ollama.Constructor())
	return r
}
