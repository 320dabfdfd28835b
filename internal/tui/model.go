package tui

import (
	"github.com/charmbracelet/bubbles/help"

	"github.com/semg-lab/semgcal/internal/session"
)

// Model is the TUI state shared by the app and its views.
type Model struct {
	Machine *session.Machine
	Keys    KeyMap
	Help    help.Model

	// Terminal dimensions
	Width  int
	Height int
}

// NewModel creates a Model driving machine.
func NewModel(machine *session.Machine) *Model {
	h := help.New()
	h.ShortSeparator = "   "

	return &Model{
		Machine: machine,
		Keys:    DefaultKeyMap,
		Help:    h,

		// Default dimensions (will be updated on WindowSizeMsg)
		Width:  80,
		Height: 24,
	}
}
