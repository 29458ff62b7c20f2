package openai

import (
	"context"
	"errors"
	"net/http"

	"github.com/omnillm/omnillm/llm"
	"github.com/samber/lo"
	openai "github.com/sashabaranov/go-openai"
)

// Chat implements llm.LLM.
func (a *Adapter) Chat(ctx context.Context, prompt llm.Prompt, opts ...llm.CallOption) (*llm.Response, error) {
	o := llm.ApplyCallOptions(opts)
	req := a.chatRequest(prompt.Normalize(), o, false)

	resp, err := a.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, a.convertError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, llm.NewAPIError(providerName, "invalid response format from OpenAI API", 0)
	}

	choice := resp.Choices[0]
	return &llm.Response{
		Content: choice.Message.Content,
		Role:    llm.RoleAssistant,
		Usage: map[string]any{
			"prompt_tokens":     resp.Usage.PromptTokens,
			"completion_tokens": resp.Usage.CompletionTokens,
			"total_tokens":      resp.Usage.TotalTokens,
		},
		Metadata: map[string]any{
			"model":         resp.Model,
			"finish_reason": string(choice.FinishReason),
		},
	}, nil
}

// Embedding implements llm.LLM.
func (a *Adapter) Embedding(ctx context.Context, texts []string, opts ...llm.CallOption) ([][]float64, error) {
	o := llm.ApplyCallOptions(opts)
	model := o.Model
	if model == "" {
		model = defaultEmbeddingModel
	}

	resp, err := a.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(model),
	})
	if err != nil {
		return nil, a.convertError(err)
	}

	return lo.Map(resp.Data, func(d openai.Embedding, _ int) []float64 {
		return lo.Map(d.Embedding, func(v float32, _ int) float64 {
			return float64(v)
		})
	}), nil
}

// chatRequest builds the SDK request. Per-call options override the adapter's
// configured defaults; extras that the SDK models as typed fields are not
// forwarded.
func (a *Adapter) chatRequest(msgs []llm.Message, o llm.CallOptions, stream bool) openai.ChatCompletionRequest {
	wire := lo.Map(msgs, func(m llm.Message, _ int) openai.ChatCompletionMessage {
		out := openai.ChatCompletionMessage{
			Role:    string(m.Role),
			Content: m.Content,
		}
		if m.Role == llm.RoleFunction {
			if name, ok := m.Metadata["function_name"].(string); ok {
				out.Name = name
			}
		}
		return out
	})

	model := o.Model
	if model == "" {
		model = a.model
	}
	temperature := a.temperature
	if o.Temperature != nil {
		temperature = *o.Temperature
	}

	req := openai.ChatCompletionRequest{
		Model:       model,
		Messages:    wire,
		Temperature: float32(temperature),
		Stream:      stream,
	}

	maxTokens := a.maxTokens
	if o.MaxTokens != nil {
		maxTokens = *o.MaxTokens
	}
	if maxTokens > 0 {
		req.MaxTokens = maxTokens
	}
	return req
}

// convertError maps SDK failures into the error taxonomy.
func (a *Adapter) convertError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusUnauthorized:
			return llm.NewAuthenticationError(providerName, apiErr.Message)
		case http.StatusTooManyRequests:
			return llm.NewRateLimitError(providerName, apiErr.Message, nil)
		default:
			return llm.NewAPIError(providerName, "API error: "+apiErr.Message, apiErr.HTTPStatusCode)
		}
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return llm.NewAPIError(providerName, "API error: "+reqErr.Error(), reqErr.HTTPStatusCode)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return llm.NewTimeoutError(providerName, a.timeout, err)
	}
	return llm.NewNetworkError(providerName, err)
}
