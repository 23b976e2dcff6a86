package anschreiben

import (
	"context"
	"errors"
	"regexp"
	"strconv"
	"time"

	"github.com/jmylchreest/flatscraper/internal/logger"
	"github.com/jmylchreest/flatscraper/pkg/llm"
)

var retryAfterPattern = regexp.MustCompile(`(?i)try again in\s+(\d+(?:\.\d+)?)s`)

// ParseRetryAfter extracts the suggested wait in seconds from a rate-limit
// message such as "Please try again in 4.1175s".
func ParseRetryAfter(message string) (seconds float64, ok bool) {
	m := retryAfterPattern.FindStringSubmatch(message)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// RetryObserver is told about each rate-limit wait before it starts. attempt
// is the 1-based number of the attempt that will follow the wait.
type RetryObserver func(wait time.Duration, attempt int)

// Backoff retries an operation that failed with *llm.RateLimitError, waiting
// for the duration the provider suggested. Other errors are returned at once.
type Backoff struct {
	// MaxAttempts is the total number of tries, including the first.
	MaxAttempts int

	// Fallback is used when the error carries no "try again in" hint.
	Fallback time.Duration

	// OnRetry is optional and only used for reporting.
	OnRetry RetryObserver

	// sleep is replaceable in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// DefaultBackoff returns the standard policy: 4 attempts, 5s fallback wait.
func DefaultBackoff() Backoff {
	return Backoff{
		MaxAttempts: 4,
		Fallback:    5 * time.Second,
	}
}

// Do runs fn until it succeeds, fails with a non rate-limit error, or the
// attempts are exhausted. The last error is returned unchanged.
func (b Backoff) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	attempts := b.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	sleep := b.sleep
	if sleep == nil {
		sleep = sleepContext
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = fn(ctx)
		if err == nil {
			return nil
		}

		var rl *llm.RateLimitError
		if !errors.As(err, &rl) || attempt == attempts {
			return err
		}

		wait := b.Fallback
		if secs, ok := ParseRetryAfter(rl.Message); ok {
			wait = time.Duration(secs * float64(time.Second))
		}

		logger.Debug("rate limited, backing off",
			"provider", rl.Provider,
			"wait", wait,
			"next_attempt", attempt+1,
			"max_attempts", attempts)

		if b.OnRetry != nil {
			b.OnRetry(wait, attempt+1)
		}
		if serr := sleep(ctx, wait); serr != nil {
			return serr
		}
	}
	return err
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
