package session

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/semg-lab/semgcal/internal/device"
	"github.com/semg-lab/semgcal/internal/log"
	"github.com/semg-lab/semgcal/internal/phase"
	"github.com/semg-lab/semgcal/internal/sample"
	"github.com/semg-lab/semgcal/internal/testutil"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type clock struct{ now time.Time }

func (c *clock) advance(d time.Duration) time.Time {
	c.now = c.now.Add(d)
	return c.now
}

func shortProtocol() phase.Protocol {
	return phase.Protocol{
		Countdown:        300 * time.Millisecond,
		Cycles:           2,
		ProgressInterval: 100 * time.Millisecond,
		Rest:             phase.Stimulus{Duration: 400 * time.Millisecond, ProgressUnits: 3, Text: "REST"},
		Flex:             phase.Stimulus{Duration: 600 * time.Millisecond, ProgressUnits: 5, Text: "FLEX"},
	}
}

var target = device.Target{Path: "/dev/ttyFAKE", BaudRate: 115200}

func line(first float64) string {
	return fmt.Sprintf("%g,2,3,4,5,6,7,8", first)
}

// feedPhase pushes one line per value while the machine is in want, then
// ticks until the phase hands over.
func feedPhase(t *testing.T, m *Machine, clk *clock, port *testutil.FakePort, want State, values ...float64) {
	t.Helper()
	require.Equal(t, want, m.State())
	for _, v := range values {
		port.Push(line(v))
	}
	m.Tick(clk.advance(10 * time.Millisecond))
	for i := 0; m.State() == want; i++ {
		require.Less(t, i, 1000, "phase %s never finished", want)
		m.Tick(clk.advance(50 * time.Millisecond))
	}
}

func tickUntil(t *testing.T, m *Machine, clk *clock, want State) {
	t.Helper()
	for i := 0; m.State() != want; i++ {
		require.Less(t, i, 1000, "never reached %s, stuck in %s", want, m.State())
		require.NotEqual(t, StateTerminated, m.State())
		m.Tick(clk.advance(16 * time.Millisecond))
	}
}

func TestTitleInstructionsNavigation(t *testing.T) {
	m := New(Config{Protocol: shortProtocol()})
	assert.Equal(t, StateTitle, m.State())

	assert.False(t, m.Back())
	assert.True(t, m.ShowInstructions())
	assert.Equal(t, StateInstructions, m.State())

	assert.False(t, m.Confirm(time.Now()), "confirm must not begin from instructions")
	assert.False(t, m.ShowInstructions())
	assert.True(t, m.Back())
	assert.Equal(t, StateTitle, m.State())
}

func TestFullSessionLabelsAndOrder(t *testing.T) {
	port := &testutil.FakePort{}
	opens := 0
	out := filepath.Join(t.TempDir(), "calibration_data.csv")
	clk := &clock{now: time.Unix(1000, 0)}

	m := New(Config{
		Target:     target,
		Opener:     testutil.OpenerFor(port, &opens),
		Settle:     200 * time.Millisecond,
		Protocol:   shortProtocol(),
		ExportPath: out,
	})
	require.True(t, m.AcquisitionEnabled())
	assert.Equal(t, 0, opens, "device must not open before the countdown")

	require.True(t, m.Confirm(clk.now))
	assert.Equal(t, StateCountdown, m.State())
	assert.Equal(t, 1, opens)
	assert.True(t, m.DeviceOpen())

	// Boot noise sent during the settle delay is discarded.
	port.Push("boot banner", line(-1))
	tickUntil(t, m, clk, StateRest)
	assert.Equal(t, 1, port.Resets)
	assert.Equal(t, 0, m.Samples())

	feedPhase(t, m, clk, port, StateRest, 1, 2)
	feedPhase(t, m, clk, port, StateFlex, 3, 4, 5)
	feedPhase(t, m, clk, port, StateRest, 6)
	feedPhase(t, m, clk, port, StateFlex, 7, 8)

	require.Equal(t, StateThankYou, m.State())
	assert.Equal(t, 1, port.Closes, "device closes when the last flex ends")
	assert.False(t, m.DeviceOpen())
	assert.Equal(t, 8, m.Samples())

	require.True(t, m.Confirm(clk.advance(time.Second)))
	assert.Equal(t, StateTerminated, m.State())
	assert.Equal(t, 1, port.Closes)

	res := m.Result()
	assert.Equal(t, OutcomeCompleted, res.Outcome)
	assert.True(t, res.Export.Written)
	assert.NoError(t, res.ExportErr)
	assert.Equal(t, 8, res.Samples)
	assert.Equal(t, 3, res.ByLabel[sample.Rest])
	assert.Equal(t, 5, res.ByLabel[sample.Flex])
	require.Len(t, res.Phases, 5)
	assert.Equal(t, phase.KindCountdown, res.Phases[0].Kind)
	assert.Equal(t, 3, res.Phases[2].Accepted)

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 9)

	wantFirst := []string{"1.0", "2.0", "3.0", "4.0", "5.0", "6.0", "7.0", "8.0"}
	wantLabel := []string{"0", "0", "1", "1", "1", "0", "1", "1"}
	for i, row := range rows[1:] {
		assert.Equal(t, wantFirst[i], row[0], "row %d order", i+1)
		assert.Equal(t, wantLabel[i], row[8], "row %d label", i+1)
	}
}

func TestAcquisitionDisabledRunsOnTimer(t *testing.T) {
	out := filepath.Join(t.TempDir(), "calibration_data.csv")
	core, logs := observer.New(zapcore.InfoLevel)
	opens := 0
	clk := &clock{now: time.Unix(0, 0)}

	m := New(Config{
		Opener:     testutil.OpenerFor(&testutil.FakePort{}, &opens),
		Protocol:   shortProtocol(),
		ExportPath: out,
		Logger:     zap.New(core),
	})
	require.False(t, m.AcquisitionEnabled())

	m.Begin(clk.now)
	tickUntil(t, m, clk, StateThankYou)
	assert.Equal(t, 0, opens)
	assert.Equal(t, 0, m.Samples())

	m.Confirm(clk.now)
	res := m.Result()
	assert.Equal(t, OutcomeCompleted, res.Outcome)
	assert.False(t, res.Export.Written)
	assert.Equal(t, 1, logs.FilterMessage(log.EventExportSkipped).Len())

	_, err := os.Stat(out)
	assert.True(t, os.IsNotExist(err))
}

func TestQuitMidFlexClosesOnceWithoutExport(t *testing.T) {
	port := &testutil.FakePort{}
	out := filepath.Join(t.TempDir(), "calibration_data.csv")
	clk := &clock{now: time.Unix(0, 0)}

	m := New(Config{
		Target:     target,
		Opener:     testutil.OpenerFor(port, nil),
		Protocol:   shortProtocol(),
		ExportPath: out,
	})
	m.Begin(clk.now)
	tickUntil(t, m, clk, StateFlex)
	port.Push(line(1))
	m.Tick(clk.advance(16 * time.Millisecond))
	require.Equal(t, 1, m.Samples())

	m.Quit(clk.advance(time.Millisecond))
	assert.Equal(t, StateTerminated, m.State())
	assert.Equal(t, 1, port.Closes)

	m.Quit(clk.advance(time.Millisecond))
	m.Tick(clk.advance(time.Second))
	assert.Equal(t, 1, port.Closes)
	assert.False(t, m.Confirm(clk.now))

	res := m.Result()
	assert.Equal(t, OutcomeQuit, res.Outcome)
	assert.False(t, res.Export.Written)
	assert.Equal(t, 1, res.Samples)
	_, err := os.Stat(out)
	assert.True(t, os.IsNotExist(err))
}

func TestQuitFromTitleNeverOpensDevice(t *testing.T) {
	opens := 0
	m := New(Config{Target: target, Opener: testutil.OpenerFor(&testutil.FakePort{}, &opens), Protocol: shortProtocol()})
	m.Quit(time.Now())
	assert.Equal(t, StateTerminated, m.State())
	assert.Equal(t, 0, opens)
	assert.Equal(t, OutcomeQuit, m.Result().Outcome)
}

func TestOpenFailureDegradesToDisplayOnly(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	clk := &clock{now: time.Unix(0, 0)}
	m := New(Config{
		Target:   target,
		Opener:   testutil.FailingOpener(),
		Protocol: shortProtocol(),
		Logger:   zap.New(core),
	})

	m.Begin(clk.now)
	assert.Equal(t, StateCountdown, m.State())
	assert.False(t, m.AcquisitionEnabled())
	assert.False(t, m.DeviceOpen())
	assert.Equal(t, 1, logs.FilterMessage(log.EventDeviceOpenFailed).Len())

	tickUntil(t, m, clk, StateThankYou)
	assert.True(t, m.Result().Acquisition, "startup decision is kept in the result")
	assert.False(t, m.Result().DeviceOpened)
}

func TestExportFailureStillTerminates(t *testing.T) {
	port := &testutil.FakePort{}
	clk := &clock{now: time.Unix(0, 0)}
	m := New(Config{
		Target:     target,
		Opener:     testutil.OpenerFor(port, nil),
		Protocol:   shortProtocol(),
		ExportPath: filepath.Join(t.TempDir(), "no", "such", "dir.csv"),
	})
	m.Begin(clk.now)
	tickUntil(t, m, clk, StateRest)
	port.Push(line(1))
	tickUntil(t, m, clk, StateThankYou)

	m.Confirm(clk.now)
	res := m.Result()
	assert.Equal(t, StateTerminated, m.State())
	assert.Equal(t, OutcomeCompleted, res.Outcome)
	assert.Error(t, res.ExportErr)
	assert.False(t, res.Export.Written)
}

func TestZeroCyclesGoesStraightToThankYou(t *testing.T) {
	p := shortProtocol()
	p.Cycles = 0
	port := &testutil.FakePort{}
	clk := &clock{now: time.Unix(0, 0)}

	m := New(Config{Target: target, Opener: testutil.OpenerFor(port, nil), Protocol: p})
	m.Begin(clk.now)
	tickUntil(t, m, clk, StateThankYou)
	assert.Equal(t, 1, port.Closes)
}

func TestPhaseAccessor(t *testing.T) {
	clk := &clock{now: time.Unix(0, 0)}
	m := New(Config{Protocol: shortProtocol()})
	_, _, ok := m.Phase()
	assert.False(t, ok)

	m.Begin(clk.now)
	m.Tick(clk.advance(150 * time.Millisecond))
	p, pr, ok := m.Phase()
	require.True(t, ok)
	assert.Equal(t, phase.KindCountdown, p.Kind)
	assert.Equal(t, 1, pr.Filled)
}

func TestRunHeadlessCompletes(t *testing.T) {
	out := filepath.Join(t.TempDir(), "calibration_data.csv")
	port := &testutil.FakePort{}
	m := New(Config{Target: target, Opener: testutil.OpenerFor(port, nil), Protocol: shortProtocol(), ExportPath: out})

	frames := make(chan time.Time)
	done := make(chan error, 1)
	feed := func(m *Machine) {
		if m.State() == StateRest && m.Samples() == 0 {
			port.Push(line(1))
		}
	}
	go func() {
		done <- Run(context.Background(), m, frames, feed)
	}()

	clk := &clock{now: time.Unix(0, 0)}
	for {
		select {
		case err := <-done:
			require.NoError(t, err)
			assert.Equal(t, OutcomeCompleted, m.Result().Outcome)
			assert.True(t, m.Result().Export.Written)
			return
		case frames <- clk.advance(16 * time.Millisecond):
		}
	}
}

func TestRunHeadlessCancel(t *testing.T) {
	port := &testutil.FakePort{}
	m := New(Config{Target: target, Opener: testutil.OpenerFor(port, nil), Protocol: shortProtocol()})

	ctx, cancel := context.WithCancel(context.Background())
	frames := make(chan time.Time, 1)
	frames <- time.Unix(0, 0)

	err := Run(ctx, m, frames, func(m *Machine) { cancel() })
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateTerminated, m.State())
	assert.Equal(t, OutcomeQuit, m.Result().Outcome)
	assert.Equal(t, 1, port.Closes)
}
