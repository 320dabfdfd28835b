package views

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"

	"github.com/semg-lab/semgcal/internal/tui"
)

// instructionLines is the subject-facing protocol description.
var instructionLines = []string{
	"1. Sit comfortably with the electrodes attached.",
	"2. A countdown runs before recording starts.",
	"3. On a RED screen, relax the muscle completely.",
	"4. On a BLUE screen, flex the muscle and hold.",
	"5. Follow the screens until the thank-you screen.",
}

// RenderInstructions renders the instructions screen along with the
// device configuration the session was started with.
func RenderInstructions(m *tui.Model) string {
	var b strings.Builder
	b.WriteString(tui.HeadingStyle.Render(InstructionsHeading))
	b.WriteString("\n\n")

	for _, line := range instructionLines {
		b.WriteString(tui.TextStyle.Render(line))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	b.WriteString(tui.TextStyle.Render(DeviceSummary(m)))
	b.WriteString("\n\n")
	b.WriteString(tui.ButtonStyle.Render("Back [esc]"))
	b.WriteString("\n\n")
	b.WriteString(m.Help.ShortHelpView([]key.Binding{m.Keys.Back, m.Keys.Quit}))

	return place(m, tui.TitleBackground, b.String())
}

// DeviceSummary describes the configured port, rate and whether samples
// will be read.
func DeviceSummary(m *tui.Model) string {
	target := m.Machine.Target()
	port := target.Path
	if port == "" {
		port = "(none)"
	}
	baud := "(none)"
	if target.BaudRate > 0 {
		baud = fmt.Sprintf("%d", target.BaudRate)
	}
	enabled := "No"
	if m.Machine.AcquisitionEnabled() {
		enabled = "Yes"
	}
	return fmt.Sprintf("Port: %s\nBaud Rate: %s\nData Reading Enabled: %s", port, baud, enabled)
}
