package ollama

import (
	"context"
	"errors"
	"net/http"

	"github.com/ollama/ollama/api"
	"github.com/omnillm/omnillm/llm"
	"github.com/samber/lo"
)

// Chat implements llm.LLM.
func (a *Adapter) Chat(ctx context.Context, prompt llm.Prompt, opts ...llm.CallOption) (*llm.Response, error) {
	o := llm.ApplyCallOptions(opts)
	req := a.chatRequest(prompt.Normalize(), o, false)

	var last api.ChatResponse
	err := a.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		last = resp
		return nil
	})
	if err != nil {
		return nil, a.convertError(err)
	}

	return &llm.Response{
		Content: last.Message.Content,
		Role:    llm.RoleAssistant,
		Usage: map[string]any{
			"prompt_eval_count": last.PromptEvalCount,
			"eval_count":        last.EvalCount,
		},
		Metadata: map[string]any{
			"model":         last.Model,
			"finish_reason": last.DoneReason,
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

	resp, err := a.client.Embed(ctx, &api.EmbedRequest{
		Model: model,
		Input: texts,
	})
	if err != nil {
		return nil, a.convertError(err)
	}

	return lo.Map(resp.Embeddings, func(e []float32, _ int) []float64 {
		return lo.Map(e, func(v float32, _ int) float64 {
			return float64(v)
		})
	}), nil
}

// chatRequest builds the daemon request. Tuning values travel in the options
// map; extras are merged there as well.
func (a *Adapter) chatRequest(msgs []llm.Message, o llm.CallOptions, streaming bool) *api.ChatRequest {
	wire := lo.Map(msgs, func(m llm.Message, _ int) api.Message {
		role := string(m.Role)
		if m.Role == llm.RoleFunction {
			role = "tool"
		}
		return api.Message{Role: role, Content: m.Content}
	})

	model := o.Model
	if model == "" {
		model = a.model
	}
	temperature := a.temperature
	if o.Temperature != nil {
		temperature = *o.Temperature
	}

	options := map[string]any{"temperature": temperature}
	maxTokens := a.maxTokens
	if o.MaxTokens != nil {
		maxTokens = *o.MaxTokens
	}
	if maxTokens > 0 {
		options["num_predict"] = maxTokens
	}
	for k, v := range o.Extra {
		options[k] = v
	}

	stream := streaming
	return &api.ChatRequest{
		Model:    model,
		Messages: wire,
		Stream:   &stream,
		Options:  options,
	}
}

// convertError maps daemon failures into the error taxonomy.
func (a *Adapter) convertError(err error) error {
	var statusErr api.StatusError
	if errors.As(err, &statusErr) {
		switch statusErr.StatusCode {
		case http.StatusUnauthorized:
			return llm.NewAuthenticationError(providerName, statusErr.Error())
		case http.StatusTooManyRequests:
			return llm.NewRateLimitError(providerName, statusErr.Error(), nil)
		default:
			return llm.NewAPIError(providerName, "API error: "+statusErr.Error(), statusErr.StatusCode)
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return llm.NewTimeoutError(providerName, a.timeout, err)
	}
	return llm.NewNetworkError(providerName, err)
}
