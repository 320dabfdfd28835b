// Package ui provides plain terminal output for headless sessions.
// This file implements the phase progress display shown when no
// interactive screen is available.
package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/term"

	"github.com/semg-lab/semgcal/internal/phase"
	"github.com/semg-lab/semgcal/internal/session"
)

// PhaseStatus represents the display status of a single phase.
type PhaseStatus int

const (
	StatusPending PhaseStatus = iota // Not started
	StatusRunning                    // Currently running
	StatusDone                       // Finished
)

// PhaseState holds the display state of a single phase.
type PhaseState struct {
	Index    int
	Kind     phase.Kind
	Text     string
	Status   PhaseStatus
	Units    int
	Filled   int
	Accepted int
	Rejected int
	Duration time.Duration
}

// ProgressDisplay manages a live-updating terminal progress view.
type ProgressDisplay struct {
	mu          sync.Mutex
	w           io.Writer
	title       string
	phases      []*PhaseState
	started     bool
	isTTY       bool
	linesDrawn  int
	lastPrinted map[int]PhaseStatus // last printed status per phase (non-TTY)
}

// NewProgressDisplay creates a ProgressDisplay writing to w for the given
// phase list.
func NewProgressDisplay(w io.Writer, title string, phases []phase.Phase) *ProgressDisplay {
	p := &ProgressDisplay{
		w:           w,
		title:       title,
		lastPrinted: make(map[int]PhaseStatus),
	}
	if f, ok := w.(*os.File); ok {
		p.isTTY = term.IsTerminal(int(f.Fd()))
	}
	for i, ph := range phases {
		text := ph.Text
		if text == "" {
			text = strings.ToUpper(ph.Kind.String())
		}
		p.phases = append(p.phases, &PhaseState{
			Index:    i,
			Kind:     ph.Kind,
			Text:     text,
			Units:    ph.ProgressUnits,
			Duration: ph.Duration,
		})
	}
	return p
}

// Observe refreshes the display from the session's current phase and its
// completed phase statistics.
func (p *ProgressDisplay) Observe(m *session.Machine) {
	p.mu.Lock()
	defer p.mu.Unlock()

	completed := m.Result().Phases
	for _, st := range completed {
		if st.Index < 0 || st.Index >= len(p.phases) {
			continue
		}
		ps := p.phases[st.Index]
		ps.Status = StatusDone
		ps.Filled = ps.Units
		ps.Accepted = st.Accepted
		ps.Rejected = st.Rejected
	}

	if _, pr, ok := m.Phase(); ok && len(completed) < len(p.phases) {
		ps := p.phases[len(completed)]
		ps.Status = StatusRunning
		ps.Filled = pr.Filled
		ps.Accepted = pr.Accepted
		ps.Rejected = pr.Rejected
	}

	if !p.started {
		p.started = true
		if p.title != "" {
			fmt.Fprintf(p.w, "%s\n", p.title)
		}
	}
	p.render()
}

// Finish finalizes the display and prints a summary line.
func (p *ProgressDisplay) Finish(res session.Result) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.isTTY && p.linesDrawn > 0 {
		fmt.Fprint(p.w, "\n")
	}

	done := 0
	for _, ps := range p.phases {
		if ps.Status == StatusDone {
			done++
		}
	}

	fmt.Fprintf(p.w, "\nDone: %d/%d phases, %d samples", done, len(p.phases), res.Samples)
	if res.Rejected > 0 {
		fmt.Fprintf(p.w, ", %d rejected", res.Rejected)
	}
	if res.Outcome == session.OutcomeQuit {
		fmt.Fprint(p.w, " (quit)")
	}
	fmt.Fprintln(p.w)
}

// render draws or redraws the progress display.
func (p *ProgressDisplay) render() {
	if !p.isTTY {
		p.renderPlain()
		return
	}
	p.renderTTY()
}

// renderTTY draws the progress display using ANSI escape codes for in-place updates.
func (p *ProgressDisplay) renderTTY() {
	if p.linesDrawn > 0 {
		fmt.Fprintf(p.w, "\033[%dA", p.linesDrawn)
	}

	var buf strings.Builder
	for _, ps := range p.phases {
		buf.WriteString("\033[2K")
		buf.WriteString(formatPhaseLine(ps))
		buf.WriteString("\n")
	}

	fmt.Fprint(p.w, buf.String())
	p.linesDrawn = len(p.phases)
}

// renderPlain writes non-TTY output (for CI/piping).
// Only prints on status transitions to avoid duplicate lines.
func (p *ProgressDisplay) renderPlain() {
	for _, ps := range p.phases {
		if ps.Status == StatusPending {
			continue
		}
		if prev, seen := p.lastPrinted[ps.Index]; seen && prev == ps.Status {
			continue
		}
		fmt.Fprintln(p.w, formatPhaseLinePlain(ps))
		p.lastPrinted[ps.Index] = ps.Status
	}
}

// formatPhaseLine formats a single phase line with ANSI colors and markers.
func formatPhaseLine(ps *PhaseState) string {
	return fmt.Sprintf("  %s %-8s %s  %s", statusIcon(ps.Status), ps.Text, markers(ps.Filled, ps.Units), statusDetail(ps))
}

// formatPhaseLinePlain formats a phase line for non-TTY output.
func formatPhaseLinePlain(ps *PhaseState) string {
	var status string
	switch ps.Status {
	case StatusRunning:
		status = "RUNNING"
	case StatusDone:
		status = "DONE"
	default:
		status = "PENDING"
	}
	line := fmt.Sprintf("[%s] %d: %s (%s)", status, ps.Index, ps.Text, formatDuration(ps.Duration))
	if ps.Status == StatusDone && ps.Kind != phase.KindCountdown {
		line += fmt.Sprintf(" accepted=%d rejected=%d", ps.Accepted, ps.Rejected)
	}
	return line
}

func markers(filled, units int) string {
	if units <= 0 {
		return ""
	}
	if filled > units {
		filled = units
	}
	return strings.Repeat("●", filled) + strings.Repeat("○", units-filled)
}

// statusIcon returns the status icon for a phase.
func statusIcon(status PhaseStatus) string {
	switch status {
	case StatusDone:
		return "\033[32m✔\033[0m" // green check
	case StatusRunning:
		return "\033[33m▶\033[0m" // yellow play
	default:
		return "\033[90m○\033[0m" // dim circle
	}
}

// statusDetail returns the right-side detail text for a phase.
func statusDetail(ps *PhaseState) string {
	if ps.Kind == phase.KindCountdown {
		return fmt.Sprintf("\033[90m[%s]\033[0m", formatDuration(ps.Duration))
	}
	switch ps.Status {
	case StatusDone:
		return fmt.Sprintf("\033[90m[%d samples]\033[0m", ps.Accepted)
	case StatusRunning:
		detail := fmt.Sprintf("[%d samples", ps.Accepted)
		if ps.Rejected > 0 {
			detail += fmt.Sprintf(", %d rejected", ps.Rejected)
		}
		return "\033[33m" + detail + "]\033[0m"
	default:
		return fmt.Sprintf("\033[90m[%s]\033[0m", formatDuration(ps.Duration))
	}
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	d = d.Round(100 * time.Millisecond)
	if d < time.Minute {
		return fmt.Sprintf("%gs", d.Seconds())
	}
	m := int(d.Minutes())
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%dm%ds", m, s)
}
