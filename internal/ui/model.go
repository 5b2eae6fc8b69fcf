// ABOUTME: Bubbletea model for the uptime clock TUI
// ABOUTME: Loading bar, live clock with date, per-kind error line, pulse effect
package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/anymaplay/uptime-go/internal/app"
	"github.com/anymaplay/uptime-go/internal/client"
	"github.com/anymaplay/uptime-go/internal/timeutil"
	"github.com/anymaplay/uptime-go/internal/version"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	loadStep     = 0.05
	loadInterval = 50 * time.Millisecond

	pulseFrames   = 5
	pulseInterval = 50 * time.Millisecond
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			MarginBottom(1)

	clockStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86"))

	pulseStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("86"))

	labelStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("220"))

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("250"))

	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("196"))

	helpStyle = lipgloss.NewStyle().Faint(true)
)

// LoadingMsg shows the loading screen
type LoadingMsg struct{}

// LiveMsg carries one live frame
type LiveMsg struct {
	Frame app.Frame
}

// ErrorMsg shows the error line for a failure kind
type ErrorMsg struct {
	Kind client.Kind
}

// PulseMsg starts the emphasis effect
type PulseMsg struct{}

type loadTickMsg time.Time
type pulseTickMsg time.Time

// ErrorMessage is the user-facing line for each failure kind
func ErrorMessage(kind client.Kind) string {
	switch kind {
	case client.KindNetwork:
		return "Network Error - Check your connection"
	case client.KindAPI:
		return "Server Error - Try again later"
	case client.KindData:
		return "Data Error - Contact support"
	default:
		return "Unknown Error"
	}
}

// Model represents the TUI state
type Model struct {
	state   app.State
	frame   app.Frame
	hasLive bool
	errKind client.Kind

	// Loading
	spinner spinner.Model
	bar     progress.Model
	loaded  float64

	// Remaining frames of the pulse effect
	pulse int

	controls *Controls
	quitting bool
	width    int
}

// NewModel creates a model in the loading state
func NewModel(controls *Controls) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = clockStyle

	return Model{
		state:    app.StateLoading,
		spinner:  s,
		bar:      progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
		controls: controls,
	}
}

// Init starts the spinner and the loading bar
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, loadTick())
}

func loadTick() tea.Cmd {
	return tea.Tick(loadInterval, func(t time.Time) tea.Msg {
		return loadTickMsg(t)
	})
}

func pulseTick() tea.Cmd {
	return tea.Tick(pulseInterval, func(t time.Time) tea.Msg {
		return pulseTickMsg(t)
	})
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.bar.Width = min(msg.Width-4, 60)

	case LoadingMsg:
		m.state = app.StateLoading

	case LiveMsg:
		m.state = app.StateLive
		m.frame = msg.Frame
		m.hasLive = true

	case ErrorMsg:
		m.state = app.StateError
		m.errKind = msg.Kind
		m.pulse = 0

	case PulseMsg:
		if m.state != app.StateLive {
			return m, nil
		}
		start := m.pulse == 0
		m.pulse = pulseFrames
		if start {
			return m, pulseTick()
		}

	case pulseTickMsg:
		if m.pulse > 0 {
			m.pulse--
		}
		if m.pulse > 0 {
			return m, pulseTick()
		}

	case loadTickMsg:
		if m.state != app.StateLoading || m.loaded >= 1 {
			return m, nil
		}
		m.loaded = min(m.loaded+loadStep, 1)
		if m.loaded < 1 {
			return m, loadTick()
		}

	case spinner.TickMsg:
		if m.state != app.StateLoading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the TUI
func (m Model) View() string {
	if m.quitting {
		return "Stopping...\n"
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(version.Product))
	b.WriteString("\n")

	switch m.state {
	case app.StateLoading:
		b.WriteString(m.renderLoading())
	case app.StateLive:
		b.WriteString(m.renderLive())
	case app.StateError:
		b.WriteString(m.renderError())
	}

	b.WriteString("\n\n")
	b.WriteString(helpStyle.Render("space: pulse  q: quit"))
	b.WriteString("\n")
	return b.String()
}

func (m Model) renderLoading() string {
	return fmt.Sprintf("%s Loading...\n%s", m.spinner.View(), m.bar.ViewAs(m.loaded))
}

func (m Model) renderLive() string {
	p := m.frame.Parts
	style := clockStyle
	if m.pulse > 0 {
		style = pulseStyle
	}

	var b strings.Builder
	b.WriteString(style.Render(p.Clock()))
	b.WriteString("\n")
	b.WriteString(labelStyle.Render("Days: "))
	b.WriteString(valueStyle.Render(fmt.Sprintf("%d", p.Days)))
	b.WriteString("\n")
	b.WriteString(labelStyle.Render("Date: "))
	b.WriteString(valueStyle.Render(timeutil.FormatDateOnly(m.frame.Date)))
	return b.String()
}

func (m Model) renderError() string {
	s := errorStyle.Render(ErrorMessage(m.errKind))
	if m.hasLive {
		// Last known value stays on screen, dimmed
		s += "\n" + helpStyle.Render("last: "+m.frame.Parts.Clock())
	}
	return s
}

// handleKey handles keyboard input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		if m.controls != nil {
			select {
			case m.controls.Quit <- struct{}{}:
			default:
			}
		}
		return m, tea.Quit
	case " ", "space", "p":
		if m.controls != nil && m.state == app.StateLive {
			select {
			case m.controls.Pulse <- struct{}{}:
			default:
			}
		}
	}

	return m, nil
}
