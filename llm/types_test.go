package llm

import (
	"testing"
	"time"
)

func TestTextPromptNormalize(t *testing.T) {
	msgs := Text("hello").Normalize()
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(msgs))
	}
	if msgs[0].Role != RoleUser || msgs[0].Content != "hello" {
		t.Errorf("unexpected message: %+v", msgs[0])
	}
}

func TestConversationPromptNormalize(t *testing.T) {
	msgs := Conversation(
		SystemMessage("be terse"),
		UserMessage("hi"),
		AssistantMessage("hello"),
		UserMessage("bye"),
	).Normalize()

	if len(msgs) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(msgs))
	}
	wantRoles := []MessageRole{RoleSystem, RoleUser, RoleAssistant, RoleUser}
	for i, want := range wantRoles {
		if msgs[i].Role != want {
			t.Errorf("message %d role = %q, want %q", i, msgs[i].Role, want)
		}
	}
}

func TestFunctionMessageCarriesName(t *testing.T) {
	m := FunctionMessage(`{"temp": 21}`, "get_weather")
	if m.Role != RoleFunction {
		t.Errorf("role = %q, want %q", m.Role, RoleFunction)
	}
	if name, _ := m.Metadata["function_name"].(string); name != "get_weather" {
		t.Errorf("function_name = %q, want get_weather", name)
	}
}

func TestResponseMessageDefaultsRole(t *testing.T) {
	r := &Response{Content: "hi"}
	m := r.Message()
	if m.Role != RoleAssistant {
		t.Errorf("role = %q, want assistant", m.Role)
	}
	if m.Content != "hi" {
		t.Errorf("content = %q, want hi", m.Content)
	}
}

func TestProviderSettingsWithDefaults(t *testing.T) {
	s := ProviderSettings{}.WithDefaults()
	if s.Temperature == nil || *s.Temperature != DefaultTemperature {
		t.Errorf("temperature = %v, want %v", s.Temperature, DefaultTemperature)
	}
	if s.Timeout != DefaultTimeout {
		t.Errorf("timeout = %v, want %v", s.Timeout, DefaultTimeout)
	}
	if s.MaxRetries == nil || *s.MaxRetries != DefaultMaxRetries {
		t.Errorf("maxRetries = %v, want %v", s.MaxRetries, DefaultMaxRetries)
	}

	temp := 0.2
	retries := 1
	custom := ProviderSettings{Temperature: &temp, Timeout: time.Minute, MaxRetries: &retries}.WithDefaults()
	if *custom.Temperature != 0.2 || custom.Timeout != time.Minute || *custom.MaxRetries != 1 {
		t.Errorf("WithDefaults overwrote explicit values: %+v", custom)
	}
}

func TestWithDefaultsKeepsExplicitZeros(t *testing.T) {
	zero := 0.0
	noRetries := 0
	s := ProviderSettings{Temperature: &zero, MaxRetries: &noRetries}.WithDefaults()
	if *s.Temperature != 0 {
		t.Errorf("temperature = %v, explicit zero should survive", *s.Temperature)
	}
	if *s.MaxRetries != 0 {
		t.Errorf("maxRetries = %v, explicit zero should survive", *s.MaxRetries)
	}
}

func TestWithDefaultsCopiesExtra(t *testing.T) {
	extra := map[string]any{"region": "cn"}
	s := ProviderSettings{Extra: extra}.WithDefaults()
	s.Extra["added"] = true
	if _, ok := extra["added"]; ok {
		t.Errorf("WithDefaults aliased the caller's Extra map: %v", extra)
	}
}

func TestApplyCallOptions(t *testing.T) {
	o := ApplyCallOptions([]CallOption{
		WithModel("glm-4"),
		WithTemperature(0.1),
		WithMaxTokens(256),
		WithExtra("top_p", 0.9),
	})
	if o.Model != "glm-4" {
		t.Errorf("model = %q", o.Model)
	}
	if o.Temperature == nil || *o.Temperature != 0.1 {
		t.Errorf("temperature = %v", o.Temperature)
	}
	if o.MaxTokens == nil || *o.MaxTokens != 256 {
		t.Errorf("maxTokens = %v", o.MaxTokens)
	}
	if o.Extra["top_p"] != 0.9 {
		t.Errorf("extra = %v", o.Extra)
	}
}

func TestApplyCallOptionsZeroValue(t *testing.T) {
	o := ApplyCallOptions(nil)
	if o.Model != "" || o.Temperature != nil || o.MaxTokens != nil || o.Extra != nil {
		t.Errorf("zero options should stay zero: %+v", o)
	}
}
