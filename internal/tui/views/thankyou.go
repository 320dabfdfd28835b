package views

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/semg-lab/semgcal/internal/tui"
)

// RenderThankYou renders the final screen with its finish button.
func RenderThankYou(m *tui.Model) string {
	bg := tui.ThankYouBackground
	text := lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF")).Background(bg)

	var b strings.Builder
	b.WriteString(text.Bold(true).Render(ThankYouHeading))
	b.WriteString("\n\n")
	if m.Machine.AcquisitionEnabled() {
		b.WriteString(text.Render(fmt.Sprintf("%d samples captured", m.Machine.Samples())))
		b.WriteString("\n")
	}
	b.WriteString(tui.ButtonStyle.
		Foreground(lipgloss.Color("#000000")).
		Background(lipgloss.Color("#FFFFFF")).
		Render("Finish [enter]"))

	return place(m, bg, b.String())
}
