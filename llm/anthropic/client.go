package anthropic

import (
	"context"
	"errors"
	"net/http"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/omnillm/omnillm/llm"
)

// Chat implements llm.LLM.
func (a *Adapter) Chat(ctx context.Context, prompt llm.Prompt, opts ...llm.CallOption) (*llm.Response, error) {
	o := llm.ApplyCallOptions(opts)
	params := a.messageParams(prompt.Normalize(), o)

	message, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return nil, a.convertError(err)
	}

	var text strings.Builder
	for _, blockUnion := range message.Content {
		if block, ok := blockUnion.AsAny().(anthropic.TextBlock); ok {
			text.WriteString(block.Text)
		}
	}

	return &llm.Response{
		Content: text.String(),
		Role:    llm.RoleAssistant,
		Usage: map[string]any{
			"input_tokens":  message.Usage.InputTokens,
			"output_tokens": message.Usage.OutputTokens,
		},
		Metadata: map[string]any{
			"model":         string(message.Model),
			"finish_reason": string(message.StopReason),
		},
	}, nil
}

// Embedding implements llm.LLM. Anthropic exposes no embedding endpoint.
func (a *Adapter) Embedding(ctx context.Context, texts []string, opts ...llm.CallOption) ([][]float64, error) {
	return nil, llm.NewAPIError(providerName, "embeddings are not supported by the Anthropic API", 0)
}

// messageParams builds the SDK request. System-role messages are lifted into
// the system prompt; function-role results travel as user turns since the
// Messages API has no function role.
func (a *Adapter) messageParams(msgs []llm.Message, o llm.CallOptions) anthropic.MessageNewParams {
	var system strings.Builder
	wire := make([]anthropic.MessageParam, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case llm.RoleSystem:
			if system.Len() > 0 {
				system.WriteString("\n\n")
			}
			system.WriteString(m.Content)
		case llm.RoleAssistant:
			wire = append(wire, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			wire = append(wire, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}

	model := o.Model
	if model == "" {
		model = a.model
	}
	temperature := a.temperature
	if o.Temperature != nil {
		temperature = *o.Temperature
	}
	maxTokens := a.maxTokens
	if o.MaxTokens != nil && *o.MaxTokens > 0 {
		maxTokens = *o.MaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(model),
		MaxTokens:   int64(maxTokens),
		Messages:    wire,
		Temperature: anthropic.Float(temperature),
	}
	if system.Len() > 0 {
		params.System = []anthropic.TextBlockParam{{Text: system.String()}}
	}
	return params
}

// convertError maps SDK failures into the error taxonomy.
func (a *Adapter) convertError(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusUnauthorized:
			return llm.NewAuthenticationError(providerName, apiErr.Error())
		case http.StatusTooManyRequests:
			return llm.NewRateLimitError(providerName, apiErr.Error(), nil)
		default:
			return llm.NewAPIError(providerName, "API error: "+apiErr.Error(), apiErr.StatusCode)
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return llm.NewTimeoutError(providerName, a.timeout, err)
	}
	return llm.NewNetworkError(providerName, err)
}
