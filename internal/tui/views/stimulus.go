package views

import (
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/semg-lab/semgcal/internal/phase"
	"github.com/semg-lab/semgcal/internal/tui"
)

// RenderCountdown renders the pre-protocol countdown digit.
func RenderCountdown(m *tui.Model) string {
	p, pr, ok := m.Machine.Phase()
	if !ok {
		return place(m, tui.TitleBackground, "")
	}
	digit := tui.CountdownStyle.Render(strconv.Itoa(CountdownDigit(p, pr)))
	return place(m, tui.TitleBackground, digit)
}

// RenderStimulus renders a REST or FLEX screen with its progress markers.
func RenderStimulus(m *tui.Model) string {
	p, pr, ok := m.Machine.Phase()
	if !ok {
		return place(m, tui.TitleBackground, "")
	}

	bg := tui.RestBackground
	if p.Kind == phase.KindFlex {
		bg = tui.FlexBackground
	}

	caption := tui.StimulusStyle.Background(bg).Render(p.Text)
	markers := ProgressMarkers(pr.Filled, p.ProgressUnits, bg)
	content := lipgloss.JoinVertical(lipgloss.Center, caption, "", markers)

	if !m.Machine.AcquisitionEnabled() {
		note := tui.DimStyle.Background(bg).Render("display only: no device")
		content = lipgloss.JoinVertical(lipgloss.Center, content, "", note)
	}
	return place(m, bg, content)
}

// CountdownDigit returns the whole seconds left in p, rounded up and never
// below 1.
func CountdownDigit(p phase.Phase, pr phase.Progress) int {
	rem := p.Remaining(pr)
	n := int((rem + time.Second - 1) / time.Second)
	if n < 1 {
		return 1
	}
	return n
}

// ProgressMarkers renders units circles, the first filled of them solid.
func ProgressMarkers(filled, units int, bg lipgloss.Color) string {
	if units <= 0 {
		return ""
	}
	if filled > units {
		filled = units
	}
	full := tui.ProgressFullStyle.Background(bg)
	empty := tui.ProgressEmptyStyle.Background(bg)
	space := lipgloss.NewStyle().Background(bg).Render(" ")

	parts := make([]string, 0, units)
	for i := 0; i < units; i++ {
		if i < filled {
			parts = append(parts, full.Render(tui.MarkerFull))
		} else {
			parts = append(parts, empty.Render(tui.MarkerEmpty))
		}
	}
	return strings.Join(parts, space)
}
