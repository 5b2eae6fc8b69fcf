// ABOUTME: Uptime engine orchestration
// ABOUTME: Wires the uptime client, local clock, poll timer, and presenter together
package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/anymaplay/uptime-go/internal/schedule"
	clocksync "github.com/anymaplay/uptime-go/internal/sync"
	"github.com/charmbracelet/log"
	"go.uber.org/atomic"
)

var (
	// ErrFetchInFlight is returned by Refresh when a previous fetch chain
	// has not finished; the new poll is skipped
	ErrFetchInFlight = errors.New("uptime fetch already in flight")

	// ErrStopped is returned by Refresh after Stop
	ErrStopped = errors.New("engine stopped")
)

// UptimeSource is the remote side of the engine. *client.Client implements it.
type UptimeSource interface {
	Uptime(ctx context.Context) (int64, error)
	HasEpoch() bool
	CurrentDate(elapsedSeconds int64) (time.Time, error)
}

// Config holds engine configuration
type Config struct {
	// PollInterval between authoritative fetches (default: 60s)
	PollInterval time.Duration

	// TickInterval of the local clock (default: 1s)
	TickInterval time.Duration

	Policy    clocksync.RegressionPolicy
	Scheduler schedule.Scheduler
}

// Engine owns one uptime display session
type Engine struct {
	config    Config
	source    UptimeSource
	clock     *clocksync.Clock
	presenter *Presenter

	inFlight atomic.Bool
	skipped  atomic.Int64

	mu      sync.Mutex
	started bool
	stopped atomic.Bool
	poller  schedule.Handle
	fetches sync.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc
}

// NewEngine creates an engine in the Loading state. Nothing runs until Start.
func NewEngine(source UptimeSource, display Display, config Config) *Engine {
	if config.PollInterval <= 0 {
		config.PollInterval = 60 * time.Second
	}
	if config.TickInterval <= 0 {
		config.TickInterval = time.Second
	}
	if config.Scheduler == nil {
		config.Scheduler = schedule.NewReal()
	}

	ctx, cancel := context.WithCancel(context.Background())
	presenter := NewPresenter(display, source.CurrentDate)

	clock := clocksync.NewClock(clocksync.Config{
		Interval:  config.TickInterval,
		Policy:    config.Policy,
		Scheduler: config.Scheduler,
		Epoch:     source,
		OnUpdate:  presenter.Update,
	})

	return &Engine{
		config:    config,
		source:    source,
		clock:     clock,
		presenter: presenter,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start shows the loading state, fetches immediately, and polls on the
// configured interval until Stop
func (e *Engine) Start() {
	e.mu.Lock()
	if e.started || e.stopped.Load() {
		e.mu.Unlock()
		return
	}
	e.started = true
	e.poller = e.config.Scheduler.Every(e.config.PollInterval, e.poll)
	e.mu.Unlock()

	log.Info("Engine started", "poll", e.config.PollInterval, "tick", e.config.TickInterval,
		"regression", e.config.Policy)

	e.presenter.Start()
	e.poll()
}

// poll runs one Refresh in the background
func (e *Engine) poll() {
	e.mu.Lock()
	if e.stopped.Load() {
		e.mu.Unlock()
		return
	}
	e.fetches.Add(1)
	e.mu.Unlock()

	go func() {
		defer e.fetches.Done()
		_ = e.Refresh(e.ctx)
	}()
}

// Refresh performs one authoritative fetch, including retries, and applies
// the outcome. Only one fetch chain runs at a time; an overlapping call
// returns ErrFetchInFlight without touching the network.
func (e *Engine) Refresh(ctx context.Context) error {
	if e.stopped.Load() {
		return ErrStopped
	}
	if !e.inFlight.CompareAndSwap(false, true) {
		n := e.skipped.Inc()
		log.Info("Skipping poll, fetch already in flight", "skipped", n)
		return ErrFetchInFlight
	}
	defer e.inFlight.Store(false)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(e.ctx, cancel)
	defer stop()

	seconds, err := e.source.Uptime(ctx)
	if e.stopped.Load() {
		return ErrStopped
	}
	if err != nil {
		e.presenter.Fail(err)
		return err
	}

	if !e.clock.OnAuthoritativeReading(seconds) {
		// Stop landed after the check above
		return ErrStopped
	}
	e.presenter.Succeeded()
	return nil
}

// Pulse requests an emphasis effect on the live display
func (e *Engine) Pulse() {
	e.presenter.Pulse()
}

// Stop cancels both timers and any pending retry, waits for background
// fetches to return, and tears down the display
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.stopped.CompareAndSwap(false, true) {
		e.mu.Unlock()
		return
	}
	if e.poller != nil {
		e.poller.Cancel()
	}
	e.mu.Unlock()

	e.cancel()
	e.clock.Stop()
	e.fetches.Wait()
	e.presenter.Teardown()

	log.Info("Engine stopped", "elapsed", e.clock.Elapsed())
}

// State returns the presentation state
func (e *Engine) State() State {
	return e.presenter.State()
}

// LastError returns the most recent poll failure
func (e *Engine) LastError() error {
	return e.presenter.LastError()
}

// Elapsed returns the local elapsed-seconds count
func (e *Engine) Elapsed() int64 {
	return e.clock.Elapsed()
}

// Ticking reports whether the local ticker is running
func (e *Engine) Ticking() bool {
	return e.clock.Running()
}

// Skipped returns how many polls were skipped because a fetch was in flight
func (e *Engine) Skipped() int64 {
	return e.skipped.Load()
}
