// ABOUTME: TUI initialization and display adapters
// ABOUTME: Bridges engine display calls into the bubbletea program or the log stream
package ui

import (
	"github.com/anymaplay/uptime-go/internal/app"
	"github.com/anymaplay/uptime-go/internal/client"
	"github.com/anymaplay/uptime-go/internal/timeutil"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
)

// Controls holds channels for user input the engine acts on
type Controls struct {
	Pulse chan struct{}
	Quit  chan struct{}
}

// NewControls creates a new control handler
func NewControls() *Controls {
	return &Controls{
		Pulse: make(chan struct{}, 1),
		Quit:  make(chan struct{}, 1),
	}
}

// Run creates the TUI program. The caller starts it with Run on the returned program.
func Run(controls *Controls) *tea.Program {
	return tea.NewProgram(NewModel(controls), tea.WithAltScreen())
}

// sender is the part of *tea.Program the display needs
type sender interface {
	Send(msg tea.Msg)
	Quit()
}

// TeaDisplay forwards display calls to a running bubbletea program
type TeaDisplay struct {
	prog sender
}

// NewTeaDisplay wraps a program started by Run
func NewTeaDisplay(prog *tea.Program) *TeaDisplay {
	return &TeaDisplay{prog: prog}
}

func (d *TeaDisplay) RenderLoading() { d.prog.Send(LoadingMsg{}) }
func (d *TeaDisplay) RenderLive(f app.Frame) { d.prog.Send(LiveMsg{Frame: f}) }
func (d *TeaDisplay) RenderError(k client.Kind) { d.prog.Send(ErrorMsg{Kind: k}) }
func (d *TeaDisplay) PulseEmphasis() { d.prog.Send(PulseMsg{}) }
func (d *TeaDisplay) Teardown() { d.prog.Quit() }

// LogDisplay renders to the process log for streaming mode.
// State changes log at info; repeated live frames log at debug.
type LogDisplay struct {
	last app.State
	seen bool
}

// NewLogDisplay creates a streaming-log display
func NewLogDisplay() *LogDisplay {
	return &LogDisplay{}
}

func (d *LogDisplay) RenderLoading() {
	log.Info("Loading uptime...")
	d.mark(app.StateLoading)
}

func (d *LogDisplay) RenderLive(f app.Frame) {
	p := f.Parts
	if d.mark(app.StateLive) {
		log.Info("Uptime", "days", p.Days, "clock", p.Clock(), "date", timeutil.FormatDate(f.Date))
		return
	}
	log.Debug("Uptime", "days", p.Days, "clock", p.Clock(), "date", timeutil.FormatDate(f.Date))
}

func (d *LogDisplay) RenderError(k client.Kind) {
	log.Error(ErrorMessage(k), "kind", k)
	d.mark(app.StateError)
}

func (d *LogDisplay) PulseEmphasis() {
	log.Info("Pulse")
}

func (d *LogDisplay) Teardown() {
	log.Info("Display closed")
}

// mark records the state and reports whether it changed
func (d *LogDisplay) mark(s app.State) bool {
	changed := !d.seen || d.last != s
	d.last, d.seen = s, true
	return changed
}
