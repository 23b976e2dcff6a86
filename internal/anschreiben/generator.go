// Package anschreiben generates outreach messages ("Anschreiben") for listings
// with an LLM and cleans up what the model returns.
package anschreiben

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmylchreest/flatscraper/internal/listing"
	"github.com/jmylchreest/flatscraper/internal/logger"
	"github.com/jmylchreest/flatscraper/pkg/llm"
)

var (
	// ErrMissingAPIKey is returned when no provider could be configured.
	ErrMissingAPIKey = errors.New("LLM API key not set (GROQ_API_KEY in .env or environment)")

	// ErrEmptyResponse is returned when the model answered with no text.
	ErrEmptyResponse = errors.New("LLM returned empty response")
)

// Generation parameters used for messages.
const (
	MessageTemperature = 0.8
	MessageMaxTokens   = 2048
)

// Generator turns listing details into a ready-to-send message.
type Generator struct {
	provider llm.Provider
	persona  Persona
	backoff  Backoff
	observer llm.Observer
}

// Option configures a Generator.
type Option func(*Generator)

// WithBackoff replaces the default rate-limit policy.
func WithBackoff(b Backoff) Option {
	return func(g *Generator) { g.backoff = b }
}

// WithObserver sets an observer notified after every provider call.
func WithObserver(obs llm.Observer) Option {
	return func(g *Generator) { g.observer = obs }
}

// NewGenerator creates a Generator. provider may be nil when no API key is
// configured; Generate then fails with ErrMissingAPIKey so that a run can
// report it per listing instead of aborting.
func NewGenerator(provider llm.Provider, persona Persona, opts ...Option) *Generator {
	g := &Generator{
		provider: provider,
		persona:  persona,
		backoff:  DefaultBackoff(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Model returns the configured model, or "" without a provider.
func (g *Generator) Model() string {
	if g.provider == nil {
		return ""
	}
	return g.provider.Model()
}

// Generate writes a message for req. onRetry, if set, is called before each
// rate-limit wait.
func (g *Generator) Generate(ctx context.Context, req listing.GenerationRequest, onRetry RetryObserver) (string, error) {
	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: SystemPrompt(g.persona)},
		{Role: llm.RoleUser, Content: MessagePrompt(req, g.persona.Name)},
	}

	content, err := g.complete(ctx, messages, MessageTemperature, MessageMaxTokens, onRetry)
	if err != nil {
		return "", err
	}
	return ExtractMessage(content), nil
}

// RefinePersona asks the model to turn raw persona notes into a compact
// persona block. The result starts with "DEINE PERSONA:".
func (g *Generator) RefinePersona(ctx context.Context, raw string) (string, error) {
	messages := []llm.Message{
		{Role: llm.RoleUser, Content: personaRefinementPrompt + raw},
	}
	content, err := g.complete(ctx, messages, 0.5, 500, nil)
	if err != nil {
		return "", err
	}
	return "DEINE PERSONA:\n" + content, nil
}

func (g *Generator) complete(ctx context.Context, messages []llm.Message, temperature float64, maxTokens int, onRetry RetryObserver) (string, error) {
	if g.provider == nil {
		return "", ErrMissingAPIKey
	}

	b := g.backoff
	if onRetry != nil {
		b.OnRetry = onRetry
	}

	var resp *llm.Response
	attempt := 0
	err := b.Do(ctx, func(ctx context.Context) error {
		attempt++
		start := time.Now()
		r, err := g.provider.Execute(ctx, llm.Request{
			Messages:    messages,
			Temperature: temperature,
			MaxTokens:   maxTokens,
			TopP:        1,
		})
		g.notify(ctx, messages, temperature, maxTokens, r, err, attempt, start)
		resp = r
		return err
	})
	if err != nil {
		return "", fmt.Errorf("generate with %s: %w", g.provider.Name(), err)
	}

	content := ""
	if resp != nil {
		content = strings.TrimSpace(resp.Content)
	}
	if content == "" {
		return "", ErrEmptyResponse
	}

	logger.Debug("message generated",
		"provider", g.provider.Name(),
		"model", resp.Model,
		"input_tokens", resp.Usage.InputTokens,
		"output_tokens", resp.Usage.OutputTokens,
		"attempts", attempt)

	return content, nil
}

func (g *Generator) notify(ctx context.Context, messages []llm.Message, temperature float64, maxTokens int, resp *llm.Response, err error, attempt int, start time.Time) {
	if g.observer == nil {
		return
	}
	event := llm.CallEvent{
		Provider:    g.provider.Name(),
		Model:       g.provider.Model(),
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: temperature,
		Response:    resp,
		Error:       err,
		Duration:    time.Since(start),
		Attempt:     attempt,
		StartedAt:   start,
	}
	if resp != nil && resp.Model != "" {
		event.Model = resp.Model
	}
	g.observer.OnCall(ctx, event)
}
