// ABOUTME: Simulated-time scheduler for deterministic tests
// ABOUTME: Time only moves when Advance or Delay is called
package schedule

import (
	"context"
	"sync"
	"time"
)

// Manual is a Scheduler whose clock advances only on demand.
// Callbacks run synchronously on the goroutine that advances time.
type Manual struct {
	mu      sync.Mutex
	now     time.Duration
	entries []*manualEntry
	delays  []time.Duration
}

type manualEntry struct {
	next      time.Duration
	interval  time.Duration
	fn        func()
	cancelled bool
	owner     *Manual
}

// NewManual creates a simulated scheduler at virtual time zero
func NewManual() *Manual {
	return &Manual{}
}

// Every registers fn to run each time virtual time crosses a multiple of
// interval. interval must be positive, as with time.NewTicker.
func (m *Manual) Every(interval time.Duration, fn func()) Handle {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := &manualEntry{
		next:     m.now + interval,
		interval: interval,
		fn:       fn,
		owner:    m,
	}
	m.entries = append(m.entries, e)
	return e
}

// Delay records the request and advances virtual time by d, firing any
// callbacks that fall due. Returns ctx.Err() if ctx is already done.
func (m *Manual) Delay(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	m.delays = append(m.delays, d)
	m.mu.Unlock()

	m.Advance(d)
	return ctx.Err()
}

// Advance moves virtual time forward by d, running due callbacks in order
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now + d

	for {
		due := m.nextDueLocked(target)
		if due == nil {
			break
		}
		m.now = due.next
		due.next += due.interval

		m.mu.Unlock()
		due.fn()
		m.mu.Lock()
	}

	if m.now < target {
		m.now = target
	}
	m.mu.Unlock()
}

// Now returns the elapsed virtual time
func (m *Manual) Now() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Delays returns every duration passed to Delay so far
func (m *Manual) Delays() []time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]time.Duration, len(m.delays))
	copy(out, m.delays)
	return out
}

// Active reports how many recurring callbacks are still registered
func (m *Manual) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, e := range m.entries {
		if !e.cancelled {
			n++
		}
	}
	return n
}

func (m *Manual) nextDueLocked(target time.Duration) *manualEntry {
	var due *manualEntry
	for _, e := range m.entries {
		if e.cancelled || e.next > target {
			continue
		}
		if due == nil || e.next < due.next {
			due = e
		}
	}
	return due
}

func (e *manualEntry) Cancel() {
	e.owner.mu.Lock()
	defer e.owner.mu.Unlock()
	e.cancelled = true
}
