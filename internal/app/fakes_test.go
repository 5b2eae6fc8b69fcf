// ABOUTME: Test doubles for the engine and presenter
// ABOUTME: Scriptable uptime source and a display that records every call
package app

import (
	"context"
	"sync"
	"time"

	"github.com/anymaplay/uptime-go/internal/client"
	"go.uber.org/atomic"
)

type result struct {
	seconds int64
	err     error
}

// fakeSource returns scripted results in order; the last one repeats
type fakeSource struct {
	mu      sync.Mutex
	results []result
	next    int
	calls   int
	block   chan struct{}
	entered chan struct{}

	epoch atomic.Bool
	start time.Time
}

func newFakeSource(results ...result) *fakeSource {
	return &fakeSource{
		results: results,
		start:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (f *fakeSource) push(results ...result) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results = append(f.results, results...)
}

func (f *fakeSource) Uptime(ctx context.Context) (int64, error) {
	f.mu.Lock()
	f.calls++
	r := f.results[len(f.results)-1]
	if f.next < len(f.results) {
		r = f.results[f.next]
		f.next++
	}
	block, entered := f.block, f.entered
	f.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return 0, &client.Error{Kind: client.KindNetwork, Retryable: true, Op: "uptime", Err: ctx.Err()}
		}
	}

	if r.err == nil {
		f.epoch.Store(true)
	}
	return r.seconds, r.err
}

func (f *fakeSource) HasEpoch() bool {
	return f.epoch.Load()
}

func (f *fakeSource) CurrentDate(elapsed int64) (time.Time, error) {
	if !f.epoch.Load() {
		return time.Time{}, client.ErrNotInitialized
	}
	return f.start.Add(time.Duration(elapsed) * time.Second), nil
}

func (f *fakeSource) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type displayEvent struct {
	call  string
	frame Frame
	kind  client.Kind
}

// recordingDisplay keeps every call in order
type recordingDisplay struct {
	mu     sync.Mutex
	events []displayEvent
}

func (d *recordingDisplay) add(ev displayEvent) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, ev)
}

func (d *recordingDisplay) RenderLoading() { d.add(displayEvent{call: "loading"}) }
func (d *recordingDisplay) RenderLive(f Frame) { d.add(displayEvent{call: "live", frame: f}) }
func (d *recordingDisplay) RenderError(k client.Kind) { d.add(displayEvent{call: "error", kind: k}) }
func (d *recordingDisplay) PulseEmphasis() { d.add(displayEvent{call: "pulse"}) }
func (d *recordingDisplay) Teardown() { d.add(displayEvent{call: "teardown"}) }

func (d *recordingDisplay) snapshot() []displayEvent {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]displayEvent, len(d.events))
	copy(out, d.events)
	return out
}

func (d *recordingDisplay) count(call string) int {
	n := 0
	for _, ev := range d.snapshot() {
		if ev.call == call {
			n++
		}
	}
	return n
}

func (d *recordingDisplay) last() displayEvent {
	evs := d.snapshot()
	if len(evs) == 0 {
		return displayEvent{}
	}
	return evs[len(evs)-1]
}

func (d *recordingDisplay) lastLive() Frame {
	evs := d.snapshot()
	for i := len(evs) - 1; i >= 0; i-- {
		if evs[i].call == "live" {
			return evs[i].frame
		}
	}
	return Frame{}
}

// waitIdle blocks until background fetches started so far have returned
func (e *Engine) waitIdle() {
	e.fetches.Wait()
}

func apiFailure(status int) error {
	return &client.Error{Kind: client.KindAPI, Retryable: status >= 500, Op: "uptime", StatusCode: status}
}
