package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

const chatCompletionJSON = `{
  "id": "chatcmpl-1",
  "object": "chat.completion",
  "created": 1700000000,
  "model": "llama-3.1-8b-instant",
  "choices": [{"index": 0, "message": {"role": "assistant", "content": "Hallo Marco,"}, "finish_reason": "stop"}],
  "usage": {"prompt_tokens": 12, "completion_tokens": 4, "total_tokens": 16}
}`

const groqRateLimitJSON = `{"error":{"message":"Rate limit reached for model llama-3.1-8b-instant. Please try again in 4.1175s.","type":"tokens","code":"rate_limit_exceeded"}}`

// --- OpenAI-compatible Provider Tests ---

func TestOpenAICompatible_Execute(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected Authorization header %q", got)
		}
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, chatCompletionJSON)
	}))
	defer srv.Close()

	p, err := NewOpenAICompatibleProvider("groq", ProviderConfig{APIKey: "test-key", BaseURL: srv.URL, Model: "llama-3.1-8b-instant"})
	if err != nil {
		t.Fatalf("NewOpenAICompatibleProvider() error = %v", err)
	}

	resp, err := p.Execute(context.Background(), Request{
		Messages: []Message{
			{Role: RoleSystem, Content: "system"},
			{Role: RoleUser, Content: "user"},
		},
		Temperature: 0.8,
		MaxTokens:   2048,
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if resp.Content != "Hallo Marco," {
		t.Errorf("unexpected content %q", resp.Content)
	}
	if resp.Usage.InputTokens != 12 || resp.Usage.OutputTokens != 4 {
		t.Errorf("unexpected usage %+v", resp.Usage)
	}
	if gotBody["model"] != "llama-3.1-8b-instant" {
		t.Errorf("unexpected model in request: %v", gotBody["model"])
	}
	if msgs, ok := gotBody["messages"].([]any); !ok || len(msgs) != 2 {
		t.Errorf("expected 2 messages in request, got %v", gotBody["messages"])
	}
}

func TestOpenAICompatible_RateLimit(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, groqRateLimitJSON)
	}))
	defer srv.Close()

	p, err := NewOpenAICompatibleProvider("groq", ProviderConfig{APIKey: "k", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("NewOpenAICompatibleProvider() error = %v", err)
	}

	_, err = p.Execute(context.Background(), Request{Messages: []Message{{Role: RoleUser, Content: "x"}}})
	if err == nil {
		t.Fatal("expected error")
	}

	var rl *RateLimitError
	if !errors.As(err, &rl) {
		t.Fatalf("expected *RateLimitError, got %T: %v", err, err)
	}
	if !strings.Contains(rl.Message, "try again in 4.1175s") {
		t.Errorf("rate limit message should keep retry hint, got %q", rl.Message)
	}
	if rl.Provider != "groq" {
		t.Errorf("unexpected provider %q", rl.Provider)
	}
	if calls != 1 {
		t.Errorf("SDK should not retry on its own, got %d calls", calls)
	}
}

func TestOpenAICompatible_OtherErrorNotRateLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"error":{"message":"Invalid API Key","type":"invalid_request_error","code":"invalid_api_key"}}`)
	}))
	defer srv.Close()

	p, _ := NewOpenAICompatibleProvider("groq", ProviderConfig{APIKey: "bad", BaseURL: srv.URL})
	_, err := p.Execute(context.Background(), Request{Messages: []Message{{Role: RoleUser, Content: "x"}}})
	if err == nil {
		t.Fatal("expected error")
	}
	if IsRateLimit(err) {
		t.Error("401 must not be classified as rate limit")
	}
}

func TestOpenAICompatible_MissingKey(t *testing.T) {
	_, err := NewOpenAICompatibleProvider("groq", ProviderConfig{})
	if !errors.Is(err, ErrMissingAPIKey) {
		t.Errorf("expected ErrMissingAPIKey, got %v", err)
	}

	// ollama runs locally without a key
	if _, err := NewOpenAICompatibleProvider("ollama", ProviderConfig{BaseURL: OllamaBaseURL}); err != nil {
		t.Errorf("ollama should not require a key: %v", err)
	}
}

// --- Anthropic Provider Tests ---

func TestAnthropic_Execute(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/messages") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"id": "msg_1", "type": "message", "role": "assistant", "model": "claude-sonnet-4-20250514",
			"content": [{"type": "text", "text": "Hallo Lisa,"}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 7, "output_tokens": 3}
		}`)
	}))
	defer srv.Close()

	p, err := NewAnthropicProvider(ProviderConfig{APIKey: "k", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("NewAnthropicProvider() error = %v", err)
	}

	resp, err := p.Execute(context.Background(), Request{Messages: []Message{
		{Role: RoleSystem, Content: "s"},
		{Role: RoleUser, Content: "u"},
	}})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if resp.Content != "Hallo Lisa," {
		t.Errorf("unexpected content %q", resp.Content)
	}
	if p.Model() != "claude-sonnet-4-20250514" {
		t.Errorf("unexpected default model %q", p.Model())
	}
}

func TestAnthropic_RateLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, `{"type":"error","error":{"type":"rate_limit_error","message":"Please try again in 10s"}}`)
	}))
	defer srv.Close()

	p, _ := NewAnthropicProvider(ProviderConfig{APIKey: "k", BaseURL: srv.URL})
	_, err := p.Execute(context.Background(), Request{Messages: []Message{{Role: RoleUser, Content: "x"}}})
	if !IsRateLimit(err) {
		t.Fatalf("expected rate limit error, got %v", err)
	}
}

// --- Registry Tests ---

func TestNewProvider_Registry(t *testing.T) {
	p, err := NewProvider("groq", ProviderConfig{APIKey: "k"})
	if err != nil {
		t.Fatalf("NewProvider(groq) error = %v", err)
	}
	if p.Name() != "groq" {
		t.Errorf("unexpected name %q", p.Name())
	}
	if p.Model() != "llama-3.1-8b-instant" {
		t.Errorf("unexpected default model %q", p.Model())
	}

	if _, err := NewProvider("nope", ProviderConfig{}); err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestAvailableProviders_Sorted(t *testing.T) {
	got := AvailableProviders()
	want := []string{"anthropic", "groq", "ollama", "openai", "openrouter"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("AvailableProviders() = %v, want %v", got, want)
	}
}

// --- Observer Tests ---

func TestMultiObserver(t *testing.T) {
	var a, b int
	m := NewMultiObserver(
		ObserverFunc(func(context.Context, CallEvent) { a++ }),
		ObserverFunc(func(context.Context, CallEvent) { b++ }),
	)

	m.OnCall(context.Background(), CallEvent{})

	if a != 1 || b != 1 {
		t.Errorf("expected both observers called once, got a=%d b=%d", a, b)
	}
}

func TestRateLimitError_Unwrap(t *testing.T) {
	inner := errors.New("inner")
	err := &RateLimitError{Provider: "groq", Message: "slow down", Err: inner}
	if !errors.Is(err, inner) {
		t.Error("RateLimitError should unwrap to inner error")
	}
	if !strings.Contains(err.Error(), "slow down") {
		t.Errorf("unexpected Error() %q", err.Error())
	}
}
