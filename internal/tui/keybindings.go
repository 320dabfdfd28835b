package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines all key bindings for the TUI.
type KeyMap struct {
	Begin        key.Binding
	Instructions key.Binding
	Back         key.Binding
	Finish       key.Binding
	Quit         key.Binding
}

// DefaultKeyMap provides the default key bindings for the TUI.
var DefaultKeyMap = KeyMap{
	Begin: key.NewBinding(
		key.WithKeys(KeyEnter, "b"),
		key.WithHelp("enter", "begin calibration"),
	),
	Instructions: key.NewBinding(
		key.WithKeys("i"),
		key.WithHelp("i", "instructions"),
	),
	Back: key.NewBinding(
		key.WithKeys(KeyEsc, "backspace"),
		key.WithHelp("esc", "back"),
	),
	Finish: key.NewBinding(
		key.WithKeys(KeyEnter, "f"),
		key.WithHelp("enter", "finish"),
	),
	Quit: key.NewBinding(
		key.WithKeys(KeyCtrlC, "q"),
		key.WithHelp("q", "quit"),
	),
}
