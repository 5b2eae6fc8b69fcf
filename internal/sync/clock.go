// ABOUTME: Local elapsed-seconds clock reconciled with authoritative readings
// ABOUTME: Ticks once per second after the first reading; never ticks without an epoch
package sync

import (
	"fmt"
	"sync"
	"time"

	"github.com/anymaplay/uptime-go/internal/schedule"
	"github.com/charmbracelet/log"
)

// RegressionPolicy decides what happens when a reading is behind the local count
type RegressionPolicy int

const (
	// AcceptRegression applies the reading as-is, even if the display steps back
	AcceptRegression RegressionPolicy = iota
	// HoldMax keeps the larger of the local count and the reading
	HoldMax
)

func (p RegressionPolicy) String() string {
	if p == HoldMax {
		return "max"
	}
	return "accept"
}

// ParsePolicy parses "accept" or "max"
func ParsePolicy(s string) (RegressionPolicy, error) {
	switch s {
	case "accept", "":
		return AcceptRegression, nil
	case "max":
		return HoldMax, nil
	}
	return AcceptRegression, fmt.Errorf("unknown regression policy %q", s)
}

// Source identifies what produced an update
type Source int

const (
	SourceReading Source = iota
	SourceTick
)

func (s Source) String() string {
	if s == SourceTick {
		return "tick"
	}
	return "reading"
}

// Update is delivered to the OnUpdate callback
type Update struct {
	Elapsed int64
	Source  Source
}

// EpochSource reports whether the remote epoch is known
type EpochSource interface {
	HasEpoch() bool
}

// Config holds clock configuration
type Config struct {
	// Interval between local ticks (default: 1s)
	Interval time.Duration

	Policy    RegressionPolicy
	Scheduler schedule.Scheduler
	Epoch     EpochSource

	// OnUpdate is called with the clock lock held, so updates are delivered
	// strictly in order. It must not call back into the Clock.
	OnUpdate func(Update)
}

// Clock owns the local elapsed-seconds count and its ticker
type Clock struct {
	mu       sync.RWMutex
	config   Config
	elapsed  int64
	readings int
	ticks    int64
	ticker   schedule.Handle
	stopped  bool
}

// NewClock creates a clock at zero with the ticker not yet running
func NewClock(config Config) *Clock {
	if config.Interval <= 0 {
		config.Interval = time.Second
	}
	if config.Scheduler == nil {
		config.Scheduler = schedule.NewReal()
	}

	return &Clock{config: config}
}

// OnAuthoritativeReading merges a reading from the remote service and
// starts the ticker if this is the first one. It reports false when the
// clock is stopped and the reading was dropped.
func (c *Clock) OnAuthoritativeReading(value int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopped {
		return false
	}
	c.readings++

	next := value
	if value < c.elapsed {
		switch c.config.Policy {
		case HoldMax:
			log.Debug("Holding local count over regressed reading", "local", c.elapsed, "reading", value)
			next = c.elapsed
		default:
			log.Warn("Reading behind local count", "local", c.elapsed, "reading", value)
		}
	}

	if next != c.elapsed {
		c.elapsed = next
		c.notify(SourceReading)
	}

	if c.ticker == nil {
		c.ticker = c.config.Scheduler.Every(c.config.Interval, c.OnTick)
		log.Info("Local ticker started", "interval", c.config.Interval, "elapsed", c.elapsed)
	}
	return true
}

// OnTick advances the count by one second. It does nothing until the epoch
// is known.
func (c *Clock) OnTick() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopped {
		return
	}
	if c.config.Epoch != nil && !c.config.Epoch.HasEpoch() {
		return
	}

	c.elapsed++
	c.ticks++
	c.notify(SourceTick)
}

func (c *Clock) notify(src Source) {
	if c.config.OnUpdate != nil {
		c.config.OnUpdate(Update{Elapsed: c.elapsed, Source: src})
	}
}

// Elapsed returns the current local count
func (c *Clock) Elapsed() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.elapsed
}

// Running reports whether the ticker has been started and not stopped
func (c *Clock) Running() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ticker != nil && !c.stopped
}

// GetStats returns counts of applied readings and ticks
func (c *Clock) GetStats() (readings int, ticks int64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.readings, c.ticks
}

// Stop cancels the ticker. Later readings and ticks are ignored.
func (c *Clock) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopped {
		return
	}
	c.stopped = true
	if c.ticker != nil {
		c.ticker.Cancel()
	}
}
