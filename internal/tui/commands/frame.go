// Package commands provides the Bubble Tea commands used by the app.
package commands

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/semg-lab/semgcal/internal/tui"
)

// FrameCmd schedules the next FrameMsg after interval.
func FrameCmd(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return tui.FrameMsg(t)
	})
}
