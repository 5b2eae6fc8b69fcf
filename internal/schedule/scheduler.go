// ABOUTME: Timer abstraction for recurring callbacks and cancellable delays
// ABOUTME: Real implementation backed by time.Ticker and time.Timer
package schedule

import (
	"context"
	"sync"
	"time"

	"go.uber.org/atomic"
)

// Handle cancels a recurring callback registered with Every
type Handle interface {
	// Cancel stops the callback. No invocation starts after Cancel returns.
	// Safe to call more than once.
	Cancel()
}

// Scheduler drives the engine's timers
type Scheduler interface {
	// Every invokes fn once per interval until the handle is cancelled
	Every(interval time.Duration, fn func()) Handle

	// Delay blocks for d or until ctx is done, whichever comes first
	Delay(ctx context.Context, d time.Duration) error
}

// Real is the wall-clock scheduler
type Real struct{}

// NewReal creates a wall-clock scheduler
func NewReal() *Real {
	return &Real{}
}

// Every starts a ticker goroutine that calls fn on each tick
func (Real) Every(interval time.Duration, fn func()) Handle {
	h := &tickerHandle{done: make(chan struct{})}
	ticker := time.NewTicker(interval)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-h.done:
				return
			case <-ticker.C:
				if h.stopped.Load() {
					return
				}
				fn()
			}
		}
	}()

	return h
}

// Delay waits for d unless ctx is cancelled first
func (Real) Delay(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

type tickerHandle struct {
	once    sync.Once
	stopped atomic.Bool
	done    chan struct{}
}

func (h *tickerHandle) Cancel() {
	h.once.Do(func() {
		h.stopped.Store(true)
		close(h.done)
	})
}
