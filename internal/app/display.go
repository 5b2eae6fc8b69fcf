// ABOUTME: Contract between the uptime engine and whatever draws it
// ABOUTME: The engine calls these; it never knows how they are rendered
package app

import (
	"time"

	"github.com/anymaplay/uptime-go/internal/client"
	"github.com/anymaplay/uptime-go/internal/timeutil"
)

// Frame is one live reading ready for display
type Frame struct {
	Elapsed int64
	Parts   timeutil.Parts

	// Date is the epoch plus Elapsed
	Date time.Time
}

// Display is implemented by the presentation layer
type Display interface {
	RenderLoading()
	RenderLive(frame Frame)
	RenderError(kind client.Kind)
	PulseEmphasis()
	Teardown()
}
