// Package views renders the individual calibration screens.
package views

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"github.com/semg-lab/semgcal/internal/tui"
)

// Screen titles.
const (
	TitleHeading        = "sEMG Calibration"
	InstructionsHeading = "Instructions"
	ThankYouHeading     = "Thank you!"
)

// RenderTitle renders the title screen with its two buttons.
func RenderTitle(m *tui.Model) string {
	var b strings.Builder
	b.WriteString(tui.HeadingStyle.Render(TitleHeading))
	b.WriteString("\n\n")

	buttons := lipgloss.JoinHorizontal(lipgloss.Top,
		tui.ButtonStyle.Render("Begin Calibration [enter]"),
		tui.TextStyle.Render("   "),
		tui.ButtonStyle.Render("Instructions [i]"),
	)
	b.WriteString(buttons)
	b.WriteString("\n\n")
	b.WriteString(m.Help.ShortHelpView([]key.Binding{m.Keys.Begin, m.Keys.Instructions, m.Keys.Quit}))

	return place(m, tui.TitleBackground, b.String())
}

// place centers content on a full-screen background.
func place(m *tui.Model, bg lipgloss.Color, content string) string {
	return lipgloss.Place(m.Width, m.Height,
		lipgloss.Center, lipgloss.Center,
		content,
		lipgloss.WithWhitespaceBackground(bg),
	)
}
