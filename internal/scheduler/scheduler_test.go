package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"
)

// --- Every Tests ---

func TestEvery_RepeatsUntilCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var runs int
	var waits []time.Duration
	task := func(context.Context) error {
		runs++
		if runs == 3 {
			cancel()
		}
		if runs == 2 {
			return errors.New("login failed")
		}
		return nil
	}

	ready := make(chan time.Time)
	close(ready)

	Every(ctx, 30*time.Minute, "test", task,
		WithWaitNotice(func(d time.Duration) { waits = append(waits, d) }),
		func(s *schedule) { s.after = func(time.Duration) <-chan time.Time { return ready } },
	)

	if runs != 3 {
		t.Errorf("runs = %d, want 3", runs)
	}
	if len(waits) != 2 {
		t.Fatalf("waits = %d, want 2", len(waits))
	}
	if waits[0] != 30*time.Minute {
		t.Errorf("wait = %v, want 30m", waits[0])
	}
}

func TestEvery_CancelDuringWait(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	var runs int
	done := make(chan struct{})
	go func() {
		Every(ctx, time.Hour, "test", func(context.Context) error {
			runs++
			return nil
		}, WithWaitNotice(func(time.Duration) { cancel() }))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Every did not return after cancel")
	}
	if runs != 1 {
		t.Errorf("runs = %d, want 1", runs)
	}
}
