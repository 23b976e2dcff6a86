package llm

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/openai/openai-go"
)

// ErrMissingAPIKey is returned by provider constructors that need a key.
var ErrMissingAPIKey = errors.New("API key required")

// RateLimitError is returned when the provider rejected a request with HTTP
// 429. Message keeps the provider's human-readable text, which usually says
// how long to wait ("Please try again in 4.1175s").
type RateLimitError struct {
	Provider string
	Message  string
	Err      error
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s rate limit: %s", e.Provider, e.Message)
}

func (e *RateLimitError) Unwrap() error {
	return e.Err
}

// IsRateLimit reports whether err is, or wraps, a *RateLimitError.
func IsRateLimit(err error) bool {
	var rl *RateLimitError
	return errors.As(err, &rl)
}

// classify converts SDK errors carrying HTTP 429 into *RateLimitError and
// wraps everything else with the provider name.
func classify(provider string, err error) error {
	if err == nil {
		return nil
	}

	var oaErr *openai.Error
	if errors.As(err, &oaErr) && oaErr.StatusCode == http.StatusTooManyRequests {
		msg := oaErr.Message
		if msg == "" {
			msg = oaErr.Error()
		}
		return &RateLimitError{Provider: provider, Message: msg, Err: err}
	}

	var anErr *anthropic.Error
	if errors.As(err, &anErr) && anErr.StatusCode == http.StatusTooManyRequests {
		return &RateLimitError{Provider: provider, Message: anErr.Error(), Err: err}
	}

	return fmt.Errorf("%s API error: %w", provider, err)
}
