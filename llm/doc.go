// Package llm provides a provider-neutral abstraction layer for remote
// Large Language Model (LLM) APIs.
//
// This package defines the common types, the adapter contract, the error
// taxonomy, and the registry that allow callers to address any supported
// vendor through one interface without being coupled to a vendor's wire
// protocol.
//
// # Core Concepts
//
//  1. Messages: the Message type represents one conversational turn with a
//     role (system, user, assistant, function) and text content. Response and
//     StreamChunk carry complete and incremental replies back in the same
//     neutral shape.
//
//  2. Prompts: Chat and Stream accept a Prompt, built from either free text
//     (Text) or an ordered message sequence (Conversation). Raw text is
//     normalized to a single user message before any adapter logic runs.
//
//  3. LLM interface: ProviderName, SupportedModels, Chat, Stream, Embedding,
//     and Close. Vendor subpackages (zhipu, moonshot, tongyi, volcano,
//     openai, anthropic, ollama) implement it, each translating the neutral
//     types into its vendor's request envelope, streaming frames, and error
//     bodies.
//
//  4. Registry: maps provider names to adapter constructors and resolves
//     construction parameters by merging explicit arguments with a
//     SettingsSource. Each Create call yields a fresh, independently owned
//     adapter whose transport the caller releases via Close.
//
//  5. Errors: every failing operation returns a *Error categorized by
//     ErrorKind (authentication, rate_limit, api, timeout, network, and the
//     config/factory kinds), with errors.As-based predicates.
//
// # Usage
//
//	registry := llm.NewRegistry(cfg, logger)
//	registry.Register("zhipu", zhipu.Constructor())
//
//	adapter, err := registry.Create("zhipu", llm.Model("glm-4"))
//	if err != nil {
//		return err
//	}
//	defer adapter.Close()
//
//	resp, err := adapter.Chat(ctx, llm.Text("Hello!"))
//
// Adapters never retry failed calls; wrap with NewRetrying to consume the
// MaxRetries hint, or with the cache package for response caching.
package llm
