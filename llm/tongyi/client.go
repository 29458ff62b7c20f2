package tongyi

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

// chatResponse is the DashScope text-generation success shape with
// result_format=message.
type chatResponse struct {
	Output struct {
		Choices []struct {
			Message struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"message"`
			FinishReason string `json:"finish_reason"`
		} `json:"choices"`
		Usage map[string]any `json:"usage"`
	} `json:"output"`
}

// embeddingResponse is the DashScope text-embedding success shape.
type embeddingResponse struct {
	Output struct {
		Embeddings []embeddingItem `json:"embeddings"`
	} `json:"output"`
}

type embeddingItem struct {
	Embedding []float64 `json:"embedding"`
}

// Chat implements llm.LLM.
func (a *Adapter) Chat(ctx context.Context, prompt llm.Prompt, opts ...llm.CallOption) (*llm.Response, error) {
	o := llm.ApplyCallOptions(opts)
	payload := a.chatPayload(prompt.Normalize(), o, false)

	resp, err := a.http.PostJSON(ctx, a.baseURL+chatPath, a.apiKey, payload)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, a.apiError(resp)
	}

	var body chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || len(body.Output.Choices) == 0 {
		return nil, llm.NewAPIError(providerName, "invalid response format from Tongyi API", 0)
	}

	choice := body.Output.Choices[0]
	return &llm.Response{
		Content: choice.Message.Content,
		Role:    llm.RoleAssistant,
		Usage:   body.Output.Usage,
		Metadata: map[string]any{
			"model":         a.model,
			"finish_reason": choice.FinishReason,
		},
	}, nil
}

// Embedding implements llm.LLM. Input texts nest under "input.texts" and
// vectors come back under "output.embeddings" in input order.
func (a *Adapter) Embedding(ctx context.Context, texts []string, opts ...llm.CallOption) ([][]float64, error) {
	o := llm.ApplyCallOptions(opts)
	model := o.Model
	if model == "" {
		model = defaultEmbeddingModel
	}

	payload := map[string]any{
		"model": model,
		"input": map[string]any{"texts": texts},
	}

	resp, err := a.http.PostJSON(ctx, a.baseURL+embeddingPath, a.apiKey, payload)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, a.apiError(resp)
	}

	var body embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || body.Output.Embeddings == nil {
		return nil, llm.NewAPIError(providerName, "invalid response format from Tongyi embedding API", 0)
	}

	return lo.Map(body.Output.Embeddings, func(e embeddingItem, _ int) []float64 {
		return e.Embedding
	}), nil
}

// chatPayload builds the DashScope envelope: messages under "input",
// tuning values and vendor extras under "parameters".
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

	params := map[string]any{
		"temperature":   temperature,
		"result_format": "message",
	}

	maxTokens := a.maxTokens
	if o.MaxTokens != nil {
		maxTokens = *o.MaxTokens
	}
	if maxTokens > 0 {
		params["max_tokens"] = maxTokens
	}
	if stream {
		params["incremental_output"] = true
	}
	for k, v := range o.Extra {
		params[k] = v
	}

	return map[string]any{
		"model":      model,
		"input":      map[string]any{"messages": wire},
		"parameters": params,
	}
}

// apiError maps a non-2xx DashScope response. Unlike the OpenAI-flat
// vendors, the error message sits at the body top level.
func (a *Adapter) apiError(resp *http.Response) error {
	raw, _ := io.ReadAll(resp.Body)

	message := strings.TrimSpace(string(raw))
	var wire struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &wire); err == nil && wire.Message != "" {
		message = wire.Message
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
