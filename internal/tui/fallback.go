package tui

import (
	"context"
	"io"
	"time"

	"github.com/semg-lab/semgcal/internal/phase"
	"github.com/semg-lab/semgcal/internal/session"
	"github.com/semg-lab/semgcal/internal/ui"
)

// FallbackRunner runs a session without an interactive display. Screens
// that wait for input are confirmed automatically and phase progress is
// printed as plain text.
type FallbackRunner struct {
	machine  *session.Machine
	phases   []phase.Phase
	interval time.Duration
	out      io.Writer
}

// NewFallbackRunner creates a new FallbackRunner ticking every interval.
// A nil out disables progress output.
func NewFallbackRunner(machine *session.Machine, phases []phase.Phase, interval time.Duration, out io.Writer) *FallbackRunner {
	if interval <= 0 {
		interval = time.Second / 60
	}
	return &FallbackRunner{
		machine:  machine,
		phases:   phases,
		interval: interval,
		out:      out,
	}
}

// Run drives the session until it terminates or ctx is cancelled.
func (f *FallbackRunner) Run(ctx context.Context) error {
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	var display *ui.ProgressDisplay
	var onFrame func(*session.Machine)
	if f.out != nil {
		display = ui.NewProgressDisplay(f.out, "Running in non-interactive mode...", f.phases)
		onFrame = display.Observe
	}

	err := session.Run(ctx, f.machine, ticker.C, onFrame)
	if display != nil {
		display.Finish(f.machine.Result())
	}
	return err
}
