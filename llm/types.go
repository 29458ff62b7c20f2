package llm

import (
	"encoding/json"
	"time"
)

// MessageRole represents the role of a message in a conversation.
type MessageRole string

const (
	RoleSystem    MessageRole = "system"
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleFunction  MessageRole = "function"
)

// Message represents a single conversational turn in the provider-neutral
// format. Content may be empty but is always present; Metadata is optional
// and carries provider- or caller-specific annotations.
type Message struct {
	Role     MessageRole
	Content  string
	Metadata map[string]any
}

// SystemMessage creates a system-role message.
func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// UserMessage creates a user-role message.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// AssistantMessage creates an assistant-role message.
func AssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// FunctionMessage creates a function-role message. The function name is
// carried in metadata so the message shape stays uniform across roles.
func FunctionMessage(content, functionName string) Message {
	return Message{
		Role:     RoleFunction,
		Content:  content,
		Metadata: map[string]any{"function_name": functionName},
	}
}

// ToJSON marshals a message for debugging and logging.
func (m Message) ToJSON() ([]byte, error) {
	return json.Marshal(struct {
		Role     string         `json:"role"`
		Content  string         `json:"content"`
		Metadata map[string]any `json:"metadata,omitempty"`
	}{string(m.Role), m.Content, m.Metadata})
}

// Response represents a complete non-streaming reply from a provider.
type Response struct {
	Content  string
	Role     MessageRole // defaults to RoleAssistant
	Usage    map[string]any
	Metadata map[string]any
}

// Message converts a response into a Message for history accumulation.
func (r *Response) Message() Message {
	role := r.Role
	if role == "" {
		role = RoleAssistant
	}
	return Message{Role: role, Content: r.Content, Metadata: r.Metadata}
}

// StreamChunk is one incremental fragment of a streamed reply. A chunk with
// IsComplete set carries no content and terminates the stream.
type StreamChunk struct {
	Content    string
	IsComplete bool
	Metadata   map[string]any
}

// Prompt is the tagged input accepted by Chat and Stream: either raw text
// (normalized to a single user message) or an ordered message sequence.
type Prompt struct {
	text     string
	messages []Message
	isText   bool
}

// Text builds a prompt from free text.
func Text(s string) Prompt {
	return Prompt{text: s, isText: true}
}

// Conversation builds a prompt from an ordered message sequence.
func Conversation(msgs ...Message) Prompt {
	return Prompt{messages: msgs}
}

// Normalize returns the prompt as a message sequence. Raw text becomes a
// single user-role message. Adapters call this before any request building.
func (p Prompt) Normalize() []Message {
	if p.isText {
		return []Message{UserMessage(p.text)}
	}
	return p.messages
}

// ProviderSettings holds the fully resolved construction parameters for one
// adapter instance. The registry produces these by merging call-site
// arguments with configuration; adapters copy the values at construction and
// never mutate them afterwards. Temperature and MaxRetries are pointers so
// an explicit zero survives default filling: nil means unset.
type ProviderSettings struct {
	Provider    string
	APIKey      string
	BaseURL     string
	Model       string
	Temperature *float64
	MaxTokens   int
	Timeout     time.Duration
	MaxRetries  *int
	Extra       map[string]any
}

// Defaults applied when the corresponding tuning field is unset.
const (
	DefaultTemperature = 0.7
	DefaultTimeout     = 30 * time.Second
	DefaultMaxRetries  = 3
)

// WithDefaults fills unset tuning fields with package defaults. The Extra
// map is copied so the result never aliases caller-owned state.
func (s ProviderSettings) WithDefaults() ProviderSettings {
	if s.Temperature == nil {
		t := float64(DefaultTemperature)
		s.Temperature = &t
	}
	if s.Timeout == 0 {
		s.Timeout = DefaultTimeout
	}
	if s.MaxRetries == nil {
		n := DefaultMaxRetries
		s.MaxRetries = &n
	}
	extra := make(map[string]any, len(s.Extra))
	for k, v := range s.Extra {
		extra[k] = v
	}
	s.Extra = extra
	return s
}

// CallOptions carries per-call overrides for Chat, Stream, and Embedding.
// Zero values mean "use the adapter's configured default".
type CallOptions struct {
	Model       string
	Temperature *float64
	MaxTokens   *int
	Extra       map[string]any
}

// CallOption mutates CallOptions.
type CallOption func(*CallOptions)

// WithModel overrides the model for a single call.
func WithModel(model string) CallOption {
	return func(o *CallOptions) { o.Model = model }
}

// WithTemperature overrides the sampling temperature for a single call.
func WithTemperature(t float64) CallOption {
	return func(o *CallOptions) { o.Temperature = &t }
}

// WithMaxTokens overrides the completion token limit for a single call.
func WithMaxTokens(n int) CallOption {
	return func(o *CallOptions) { o.MaxTokens = &n }
}

// WithExtra attaches a vendor-specific request parameter for a single call.
func WithExtra(key string, value any) CallOption {
	return func(o *CallOptions) {
		if o.Extra == nil {
			o.Extra = map[string]any{}
		}
		o.Extra[key] = value
	}
}

// ApplyCallOptions folds a list of options into a CallOptions value.
func ApplyCallOptions(opts []CallOption) CallOptions {
	var o CallOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
