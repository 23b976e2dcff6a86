// Package scheduler repeats a task at a fixed pause between runs.
package scheduler

import (
	"context"
	"time"

	"github.com/jmylchreest/flatscraper/internal/logger"
)

// Task is one unit of scheduled work.
type Task func(ctx context.Context) error

// Option configures Every.
type Option func(*schedule)

type schedule struct {
	onWait func(d time.Duration)
	after  func(d time.Duration) <-chan time.Time
}

// WithWaitNotice calls fn before every pause.
func WithWaitNotice(fn func(d time.Duration)) Option {
	return func(s *schedule) { s.onWait = fn }
}

// Every runs task immediately and then again interval after each run
// finishes, so runs never overlap. A failed run is logged and the schedule
// continues. Every returns when ctx is done.
func Every(ctx context.Context, interval time.Duration, name string, task Task, opts ...Option) {
	s := &schedule{after: time.After}
	for _, opt := range opts {
		opt(s)
	}
	log := logger.Component("scheduler")

	for cycle := 1; ; cycle++ {
		log.Debug("cycle started", "task", name, "cycle", cycle)
		if err := task(ctx); err != nil && ctx.Err() == nil {
			log.Error("cycle failed", "task", name, "cycle", cycle, "error", err)
		}

		if ctx.Err() != nil {
			return
		}
		if s.onWait != nil {
			s.onWait(interval)
		}

		select {
		case <-ctx.Done():
			return
		case <-s.after(interval):
		}
	}
}
