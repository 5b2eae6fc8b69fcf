// ABOUTME: Tests for the presentation state machine
// ABOUTME: Drives the presenter directly with clock updates and fetch outcomes
package app

import (
	"errors"
	"testing"
	"time"

	"github.com/anymaplay/uptime-go/internal/client"
	clocksync "github.com/anymaplay/uptime-go/internal/sync"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedDates(elapsed int64) (time.Time, error) {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(elapsed) * time.Second), nil
}

func reading(n int64) clocksync.Update { return clocksync.Update{Elapsed: n, Source: clocksync.SourceReading} }
func tick(n int64) clocksync.Update { return clocksync.Update{Elapsed: n, Source: clocksync.SourceTick} }

func TestPresenterStartRendersLoadingOnce(t *testing.T) {
	display := &recordingDisplay{}
	p := NewPresenter(display, fixedDates)

	p.Start()
	p.Start()

	assert.Equal(t, 1, display.count("loading"))
	assert.Equal(t, StateLoading, p.State())
}

func TestPresenterStartAfterLiveDoesNothing(t *testing.T) {
	display := &recordingDisplay{}
	p := NewPresenter(display, fixedDates)

	p.Update(reading(5))
	p.Start()

	assert.Equal(t, 0, display.count("loading"))
	assert.Equal(t, StateLive, p.State())
}

func TestPresenterTickBeforeReadingIgnored(t *testing.T) {
	display := &recordingDisplay{}
	p := NewPresenter(display, fixedDates)
	p.Start()

	p.Update(tick(1))

	assert.Equal(t, StateLoading, p.State())
	assert.Equal(t, 0, display.count("live"))
}

func TestPresenterReadingGoesLive(t *testing.T) {
	display := &recordingDisplay{}
	p := NewPresenter(display, fixedDates)
	p.Start()

	p.Update(reading(61))
	p.Succeeded()

	assert.Equal(t, StateLive, p.State())
	assert.Equal(t, 1, display.count("live"))
	assert.Equal(t, "00:01:01", display.lastLive().Parts.Clock())
	assert.Equal(t, time.Date(2024, 1, 1, 0, 1, 1, 0, time.UTC), display.lastLive().Date)

	// Start after going live does not bring the loading screen back
	p.Start()
	assert.Equal(t, 1, display.count("loading"))
}

func TestPresenterTicksIgnoredDuringError(t *testing.T) {
	display := &recordingDisplay{}
	p := NewPresenter(display, fixedDates)
	p.Update(reading(10))

	p.Fail(apiFailure(503))
	p.Update(tick(11))
	p.Update(tick(12))

	assert.Equal(t, StateError, p.State())
	assert.Equal(t, 1, display.count("live"))
	assert.Equal(t, "error", display.last().call)

	// Recovery with no clock change renders the locally counted value
	p.Succeeded()
	assert.Equal(t, StateLive, p.State())
	assert.Equal(t, int64(12), display.lastLive().Elapsed)
}

func TestPresenterRepeatedFailuresRenderEach(t *testing.T) {
	display := &recordingDisplay{}
	p := NewPresenter(display, fixedDates)

	p.Fail(&client.Error{Kind: client.KindNetwork})
	p.Fail(&client.Error{Kind: client.KindData})

	evs := display.snapshot()
	require.Len(t, evs, 2)
	assert.Equal(t, client.KindNetwork, evs[0].kind)
	assert.Equal(t, client.KindData, evs[1].kind)
	assert.Equal(t, client.KindData, client.KindOf(p.LastError()))
}

func TestPresenterUnclassifiedErrorIsUnknown(t *testing.T) {
	display := &recordingDisplay{}
	p := NewPresenter(display, fixedDates)

	p.Fail(errors.New("boom"))

	assert.Equal(t, displayEvent{call: "error", kind: client.KindUnknown}, display.last())
}

func TestPresenterDateFailureBecomesDataError(t *testing.T) {
	display := &recordingDisplay{}
	p := NewPresenter(display, func(int64) (time.Time, error) {
		return time.Time{}, client.ErrNotInitialized
	})

	p.Update(reading(5))

	assert.Equal(t, StateError, p.State())
	assert.Equal(t, displayEvent{call: "error", kind: client.KindData}, display.last())
	assert.ErrorIs(t, p.LastError(), client.ErrNotInitialized)
}

func TestPresenterPulseOnlyWhenLive(t *testing.T) {
	display := &recordingDisplay{}
	p := NewPresenter(display, fixedDates)

	p.Pulse()
	p.Fail(apiFailure(500))
	p.Pulse()
	assert.Equal(t, 0, display.count("pulse"))

	p.Succeeded()
	p.Pulse()
	assert.Equal(t, 1, display.count("pulse"))
}

func TestPresenterTeardownIgnoresLaterCalls(t *testing.T) {
	display := &recordingDisplay{}
	p := NewPresenter(display, fixedDates)
	p.Update(reading(1))

	p.Teardown()
	p.Teardown()
	n := len(display.snapshot())

	p.Update(tick(2))
	p.Fail(apiFailure(500))
	p.Succeeded()
	p.Pulse()
	p.Start()

	assert.Len(t, display.snapshot(), n)
	assert.Equal(t, 1, display.count("teardown"))
}

func TestStateStrings(t *testing.T) {
	assert.Equal(t, "loading", StateLoading.String())
	assert.Equal(t, "live", StateLive.String())
	assert.Equal(t, "error", StateError.String())
}
