package llm

import (
	"fmt"
	"sort"
	"strings"
)

// ProviderFactory creates providers from config.
type ProviderFactory func(cfg ProviderConfig) (Provider, error)

// DefaultModels maps provider names to their default models.
var DefaultModels = map[string]string{
	"groq":       "llama-3.1-8b-instant",
	"openai":     "gpt-4o-mini",
	"openrouter": "openrouter/auto",
	"ollama":     "llama3.2",
	"anthropic":  "claude-sonnet-4-20250514",
}

// defaultBaseURLs for providers reached through the OpenAI-compatible API.
var defaultBaseURLs = map[string]string{
	"groq":       GroqBaseURL,
	"openrouter": OpenRouterBaseURL,
	"ollama":     OllamaBaseURL,
}

var registry = map[string]ProviderFactory{}

func init() {
	for _, name := range []string{"groq", "openrouter", "ollama"} {
		name := name
		RegisterProvider(name, func(cfg ProviderConfig) (Provider, error) {
			if cfg.BaseURL == "" {
				cfg.BaseURL = defaultBaseURLs[name]
			}
			return NewOpenAICompatibleProvider(name, cfg)
		})
	}
	RegisterProvider("openai", func(cfg ProviderConfig) (Provider, error) {
		return NewOpenAIProvider(cfg)
	})
	RegisterProvider("anthropic", func(cfg ProviderConfig) (Provider, error) {
		return NewAnthropicProvider(cfg)
	})
}

// NewProvider creates a provider by name.
func NewProvider(name string, cfg ProviderConfig) (Provider, error) {
	factory, ok := registry[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unknown provider: %s (available: %s)", name, strings.Join(AvailableProviders(), ", "))
	}
	return factory(cfg)
}

// RegisterProvider adds a custom provider factory.
func RegisterProvider(name string, factory ProviderFactory) {
	registry[name] = factory
}

// AvailableProviders returns the sorted list of registered providers.
func AvailableProviders() []string {
	providers := make([]string, 0, len(registry))
	for name := range registry {
		providers = append(providers, name)
	}
	sort.Strings(providers)
	return providers
}

// GetDefaultModel returns the default model for a provider.
func GetDefaultModel(provider string) string {
	return DefaultModels[provider]
}

// IsRegistered returns true if a provider is registered.
func IsRegistered(name string) bool {
	_, ok := registry[strings.ToLower(name)]
	return ok
}
