package volcano

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/omnillm/omnillm/llm"
	"github.com/omnillm/omnillm/llm/internal/httpx"
	"github.com/samber/lo"
)

// chatResponse is the Ark chat-completion success shape.
type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage map[string]any `json:"usage"`
}

// embeddingResponse is the Ark embeddings success shape.
type embeddingResponse struct {
	Data []embeddingItem `json:"data"`
}

type embeddingItem struct {
	Embedding []float64 `json:"embedding"`
}

// Chat implements llm.LLM.
func (a *Adapter) Chat(ctx context.Context, prompt llm.Prompt, opts ...llm.CallOption) (*llm.Response, error) {
	o := llm.ApplyCallOptions(opts)
	payload := a.chatPayload(prompt.Normalize(), o, false)

	resp, err := a.http.PostJSON(ctx, a.baseURL+"/chat/completions", a.apiKey, payload)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, a.apiError(resp)
	}

	var body chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || len(body.Choices) == 0 {
		return nil, llm.NewAPIError(providerName, "invalid response format from Volcano API", 0)
	}

	choice := body.Choices[0]
	return &llm.Response{
		Content: choice.Message.Content,
		Role:    llm.RoleAssistant,
		Usage:   body.Usage,
		Metadata: map[string]any{
			"model":         body.Model,
			"finish_reason": choice.FinishReason,
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

	payload := map[string]any{
		"model": model,
		"input": texts,
	}

	resp, err := a.http.PostJSON(ctx, a.baseURL+"/embeddings", a.apiKey, payload)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, a.apiError(resp)
	}

	var body embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || body.Data == nil {
		return nil, llm.NewAPIError(providerName, "invalid response format from Volcano embedding API", 0)
	}

	return lo.Map(body.Data, func(d embeddingItem, _ int) []float64 {
		return d.Embedding
	}), nil
}

// chatPayload builds the Ark request body. Per-call options override the
// adapter's configured defaults; vendor-specific extras land on the body
// top level.
func (a *Adapter) chatPayload(msgs []llm.Message, o llm.CallOptions, stream bool) map[string]any {
	wire := lo.Map(msgs, func(m llm.Message, _ int) map[string]any {
		return map[string]any{"role": string(m.Role), "content": m.Content}
	})

	model := o.Model
	if model == "" {
		model = a.model
	}
	temperature := a.temperature
	if o.Temperature != nil {
		temperature = *o.Temperature
	}

	payload := map[string]any{
		"model":       model,
		"messages":    wire,
		"temperature": temperature,
		"stream":      stream,
	}

	maxTokens := a.maxTokens
	if o.MaxTokens != nil {
		maxTokens = *o.MaxTokens
	}
	if maxTokens > 0 {
		payload["max_tokens"] = maxTokens
	}

	for k, v := range o.Extra {
		payload[k] = v
	}
	return payload
}

// apiError maps a non-2xx Ark response into the error taxonomy. The vendor
// error body nests the message under "error".
func (a *Adapter) apiError(resp *http.Response) error {
	raw, _ := io.ReadAll(resp.Body)

	message := strings.TrimSpace(string(raw))
	var wire struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &wire); err == nil && wire.Error.Message != "" {
		message = wire.Error.Message
	}
	if message == "" {
		message = http.StatusText(resp.StatusCode)
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return llm.NewAuthenticationError(providerName, message)
	case http.StatusTooManyRequests:
		return llm.NewRateLimitError(providerName, message, httpx.RetryAfter(resp.Header))
	default:
		return llm.NewAPIError(providerName, "API error: "+message, resp.StatusCode)
	}
}
