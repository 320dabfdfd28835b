package ui

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/semg-lab/semgcal/internal/phase"
	"github.com/semg-lab/semgcal/internal/session"
)

func testProtocol() phase.Protocol {
	return phase.Protocol{
		Countdown:        100 * time.Millisecond,
		Cycles:           1,
		ProgressInterval: 100 * time.Millisecond,
		Rest:             phase.Stimulus{Duration: 100 * time.Millisecond, ProgressUnits: 1, Text: "REST"},
		Flex:             phase.Stimulus{Duration: 200 * time.Millisecond, ProgressUnits: 2, Text: "FLEX"},
	}
}

func TestPlainOutputPrintsTransitionsOnce(t *testing.T) {
	proto := testProtocol()
	m := session.New(session.Config{Protocol: proto, ExportPath: t.TempDir() + "/out.csv"})

	var out bytes.Buffer
	d := NewProgressDisplay(&out, "calibrating", proto.Phases())
	assert.False(t, d.isTTY)

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	require.True(t, m.Begin(now))
	d.Observe(m)
	d.Observe(m)

	for i := 0; m.State() != session.StateThankYou; i++ {
		require.Less(t, i, 100)
		now = now.Add(50 * time.Millisecond)
		m.Tick(now)
		d.Observe(m)
	}
	m.Confirm(now)
	d.Finish(m.Result())

	got := out.String()
	assert.True(t, strings.HasPrefix(got, "calibrating\n"))
	assert.Equal(t, 1, strings.Count(got, "[RUNNING] 0: COUNTDOWN"))
	assert.Equal(t, 1, strings.Count(got, "[DONE] 0: COUNTDOWN"))
	assert.Contains(t, got, "[DONE] 2: FLEX 1 (200ms) accepted=0 rejected=0")
	assert.Contains(t, got, "Done: 3/3 phases, 0 samples")
}

func TestFinishMarksQuit(t *testing.T) {
	var out bytes.Buffer
	d := NewProgressDisplay(&out, "", testProtocol().Phases())
	d.Finish(session.Result{Outcome: session.OutcomeQuit, Samples: 4, Rejected: 1})
	assert.Contains(t, out.String(), "Done: 0/3 phases, 4 samples, 1 rejected (quit)")
}

func TestMarkers(t *testing.T) {
	assert.Equal(t, "●●○", markers(2, 3))
	assert.Equal(t, "●●", markers(5, 2))
	assert.Empty(t, markers(1, 0))
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "250ms", formatDuration(250*time.Millisecond))
	assert.Equal(t, "4s", formatDuration(4*time.Second))
	assert.Equal(t, "1.5s", formatDuration(1500*time.Millisecond))
	assert.Equal(t, "2m5s", formatDuration(125*time.Second))
}
