// ABOUTME: Loading/live/error state machine in front of the display
// ABOUTME: Routes clock updates and fetch outcomes to Display calls
package app

import (
	"sync"
	"time"

	"github.com/anymaplay/uptime-go/internal/client"
	clocksync "github.com/anymaplay/uptime-go/internal/sync"
	"github.com/anymaplay/uptime-go/internal/timeutil"
	"github.com/charmbracelet/log"
)

// State is the presentation state
type State int

const (
	StateLoading State = iota
	StateLive
	StateError
)

func (s State) String() string {
	switch s {
	case StateLive:
		return "live"
	case StateError:
		return "error"
	default:
		return "loading"
	}
}

// DateFunc maps elapsed seconds to an absolute date
type DateFunc func(elapsedSeconds int64) (time.Time, error)

// Presenter drives a Display from engine events.
//
// Loading moves to Live on the first reading and never comes back.
// Any failed poll moves to Error; the next successful poll returns to Live.
// Ticks while in Error keep counting but are not rendered.
type Presenter struct {
	mu      sync.Mutex
	display Display
	dates   DateFunc

	state   State
	elapsed int64
	lastErr error
	started bool
	torn    bool
}

// NewPresenter creates a presenter in the Loading state
func NewPresenter(display Display, dates DateFunc) *Presenter {
	return &Presenter{
		display: display,
		dates:   dates,
		state:   StateLoading,
	}
}

// Start shows the loading screen if nothing has been rendered yet
func (p *Presenter) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.torn || p.started || p.state != StateLoading {
		return
	}
	p.started = true
	p.display.RenderLoading()
}

// Update receives every change of the local clock
func (p *Presenter) Update(u clocksync.Update) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.torn {
		return
	}
	p.elapsed = u.Elapsed

	switch p.state {
	case StateLive:
		p.render()
	case StateLoading, StateError:
		if u.Source == clocksync.SourceReading {
			p.transition(StateLive)
			p.render()
		}
	}
}

// Succeeded is called after every successful poll. It makes the first or
// recovering transition to Live even when the reading left the clock unchanged.
func (p *Presenter) Succeeded() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.torn || p.state == StateLive {
		return
	}
	p.transition(StateLive)
	p.render()
}

// Fail records a poll that ultimately failed
func (p *Presenter) Fail(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.torn {
		return
	}
	p.fail(err)
}

// Pulse asks the display for an emphasis effect. Ignored unless Live.
func (p *Presenter) Pulse() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.torn || p.state != StateLive {
		return
	}
	p.display.PulseEmphasis()
}

// Teardown releases the display; all later calls are ignored
func (p *Presenter) Teardown() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.torn {
		return
	}
	p.torn = true
	p.display.Teardown()
}

// State returns the current state
func (p *Presenter) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// LastError returns the most recent failure, kept after recovery
func (p *Presenter) LastError() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastErr
}

func (p *Presenter) render() {
	date, err := p.dates(p.elapsed)
	if err != nil {
		p.fail(err)
		return
	}

	p.display.RenderLive(Frame{
		Elapsed: p.elapsed,
		Parts:   timeutil.Decompose(p.elapsed),
		Date:    date,
	})
}

func (p *Presenter) fail(err error) {
	p.lastErr = err
	if p.state != StateError {
		p.transition(StateError)
	}

	kind := client.KindOf(err)
	log.Error("Uptime unavailable", "kind", kind, "err", err)
	p.display.RenderError(kind)
}

func (p *Presenter) transition(to State) {
	log.Info("Display state", "from", p.state, "to", to)
	p.state = to
}
