// Package report generates the summary printed after a calibration session.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/semg-lab/semgcal/internal/sample"
	"github.com/semg-lab/semgcal/internal/session"
)

// Report holds the aggregated statistics of a terminated session.
type Report struct {
	Outcome      string
	Device       string
	Acquisition  bool
	DeviceOpened bool
	Samples      int
	Rest         int
	Flex         int
	Rejected     int
	Phases       []session.PhaseStat
	ExportPath   string // empty when nothing was written
	ExportErr    error
	Duration     time.Duration
}

// FromResult builds a Report from a session result.
func FromResult(res session.Result) *Report {
	r := &Report{
		Outcome:      res.Outcome.String(),
		Device:       res.Target.String(),
		Acquisition:  res.Acquisition,
		DeviceOpened: res.DeviceOpened,
		Samples:      res.Samples,
		Rest:         res.ByLabel[sample.Rest],
		Flex:         res.ByLabel[sample.Flex],
		Rejected:     res.Rejected,
		Phases:       res.Phases,
		ExportErr:    res.ExportErr,
	}
	if res.Export.Written {
		r.ExportPath = res.Export.Path
	}
	if !res.StartedAt.IsZero() && res.EndedAt.After(res.StartedAt) {
		r.Duration = res.EndedAt.Sub(res.StartedAt)
	}
	return r
}

// FormatReport produces a terminal-friendly, human-readable summary string.
func FormatReport(r *Report) string {
	var b strings.Builder

	b.WriteString("========================================\n")
	b.WriteString("  Calibration Report\n")
	b.WriteString("========================================\n")
	b.WriteString("\n")

	fmt.Fprintf(&b, "Outcome:     %s\n", r.Outcome)
	fmt.Fprintf(&b, "Device:      %s\n", r.Device)
	switch {
	case !r.Acquisition:
		b.WriteString("Acquisition: disabled\n")
	case !r.DeviceOpened:
		b.WriteString("Acquisition: device failed to open\n")
	default:
		b.WriteString("Acquisition: enabled\n")
	}
	b.WriteString("\n")

	if r.Acquisition {
		fmt.Fprintf(&b, "Samples:     %d total\n", r.Samples)
		fmt.Fprintf(&b, "  Rest:      %d\n", r.Rest)
		fmt.Fprintf(&b, "  Flex:      %d\n", r.Flex)
		fmt.Fprintf(&b, "  Rejected:  %d\n", r.Rejected)
		b.WriteString("\n")
	}

	if len(r.Phases) > 0 {
		b.WriteString("Phases:\n")
		for _, p := range r.Phases {
			fmt.Fprintf(&b, "  %d. %-9s accepted=%d rejected=%d\n", p.Index, p.Kind, p.Accepted, p.Rejected)
		}
		b.WriteString("\n")
	}

	switch {
	case r.ExportErr != nil:
		fmt.Fprintf(&b, "Export:      failed: %v\n", r.ExportErr)
	case r.ExportPath != "":
		fmt.Fprintf(&b, "Export:      %s\n", r.ExportPath)
	default:
		b.WriteString("Export:      nothing to export\n")
	}

	if r.Duration > 0 {
		fmt.Fprintf(&b, "Duration:    %s\n", formatDuration(r.Duration))
	}

	b.WriteString("========================================\n")

	return b.String()
}

// formatDuration produces a human-readable duration string such as "5m 32s"
// or "1h 12m 5s". Sub-second durations are shown as "< 1s".
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return "< 1s"
	}

	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60

	switch {
	case h > 0:
		return fmt.Sprintf("%dh %dm %ds", h, m, s)
	case m > 0:
		return fmt.Sprintf("%dm %ds", m, s)
	default:
		return fmt.Sprintf("%ds", s)
	}
}
