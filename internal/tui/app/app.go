// Package app provides the root Bubble Tea model for the calibration TUI.
package app

import (
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/semg-lab/semgcal/internal/session"
	"github.com/semg-lab/semgcal/internal/tui"
	"github.com/semg-lab/semgcal/internal/tui/commands"
	"github.com/semg-lab/semgcal/internal/tui/views"
)

// App is the root model. It translates key presses into session events
// and advances the session once per frame.
type App struct {
	model    *tui.Model
	interval time.Duration
	now      func() time.Time
}

// New creates an App driving machine, redrawing every interval.
func New(machine *session.Machine, interval time.Duration) *App {
	if interval <= 0 {
		interval = time.Second / 60
	}
	return &App{
		model:    tui.NewModel(machine),
		interval: interval,
		now:      time.Now,
	}
}

// Machine returns the session the app is driving.
func (a *App) Machine() *session.Machine {
	return a.model.Machine
}

// Init starts the frame clock.
func (a *App) Init() tea.Cmd {
	return commands.FrameCmd(a.interval)
}

// Update handles incoming messages.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	m := a.model.Machine

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.model.Width = msg.Width
		a.model.Height = msg.Height
		return a, nil

	case tea.KeyMsg:
		return a.handleKey(msg)

	case tui.FrameMsg:
		m.Tick(time.Time(msg))
		if m.State() == session.StateTerminated {
			return a, tea.Quit
		}
		return a, commands.FrameCmd(a.interval)
	}

	return a, nil
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m := a.model.Machine
	keys := a.model.Keys

	if key.Matches(msg, keys.Quit) {
		m.Quit(a.now())
		return a, tea.Quit
	}

	switch m.State() {
	case session.StateTitle:
		switch {
		case key.Matches(msg, keys.Begin):
			m.Begin(a.now())
		case key.Matches(msg, keys.Instructions):
			m.ShowInstructions()
		}
	case session.StateInstructions:
		if key.Matches(msg, keys.Back) {
			m.Back()
		}
	case session.StateThankYou:
		if key.Matches(msg, keys.Finish) {
			m.Confirm(a.now())
		}
	}

	if m.State() == session.StateTerminated {
		return a, tea.Quit
	}
	return a, nil
}

// View renders the screen for the current session state.
func (a *App) View() string {
	switch a.model.Machine.State() {
	case session.StateTitle:
		return views.RenderTitle(a.model)
	case session.StateInstructions:
		return views.RenderInstructions(a.model)
	case session.StateCountdown:
		return views.RenderCountdown(a.model)
	case session.StateRest, session.StateFlex:
		return views.RenderStimulus(a.model)
	case session.StateThankYou:
		return views.RenderThankYou(a.model)
	default:
		return ""
	}
}
