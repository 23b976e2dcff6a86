package llm

import (
	"context"
	"time"
)

// Observer receives notifications about LLM calls for observability.
// It is called after every Execute, whether successful or failed.
type Observer interface {
	OnCall(ctx context.Context, event CallEvent)
}

// CallEvent contains all information about an LLM call.
type CallEvent struct {
	Provider string
	Model    string

	// Messages sent to the LLM
	Messages    []Message
	MaxTokens   int
	Temperature float64

	// Response is nil if the call failed before getting a response.
	Response *Response
	Error    error

	Duration time.Duration

	// Attempt is 1-based.
	Attempt int

	StartedAt time.Time
}

// ObserverFunc is a convenience type for using a function as an Observer.
type ObserverFunc func(ctx context.Context, event CallEvent)

// OnCall implements Observer.
func (f ObserverFunc) OnCall(ctx context.Context, event CallEvent) {
	f(ctx, event)
}

// MultiObserver combines multiple observers into one.
type MultiObserver struct {
	observers []Observer
}

// NewMultiObserver creates an observer that dispatches to multiple observers.
func NewMultiObserver(observers ...Observer) *MultiObserver {
	return &MultiObserver{observers: observers}
}

// OnCall dispatches the event to all registered observers.
func (m *MultiObserver) OnCall(ctx context.Context, event CallEvent) {
	for _, obs := range m.observers {
		obs.OnCall(ctx, event)
	}
}
