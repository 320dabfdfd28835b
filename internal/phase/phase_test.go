package phase

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/semg-lab/semgcal/internal/log"
	"github.com/semg-lab/semgcal/internal/sample"
	"github.com/semg-lab/semgcal/internal/testutil"
)

func restPhase() Phase {
	return Phase{
		Kind:             KindRest,
		Duration:         4 * time.Second,
		Label:            sample.Rest,
		Collect:          true,
		Text:             "REST",
		ProgressUnits:    3,
		ProgressInterval: time.Second,
	}
}

func observed() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return zap.New(core), logs
}

func TestDriverAppendsValidLine(t *testing.T) {
	port := &testutil.FakePort{}
	port.Push(testutil.ValidLine)
	buf := sample.NewBuffer(0)

	d := NewDriver(restPhase(), port, buf, nil)
	pr := d.Tick(time.Unix(100, 0))

	require.Equal(t, 1, buf.Len())
	assert.Equal(t, 1, pr.Accepted)
	got := buf.DrainAll()[0]
	assert.Equal(t, [sample.NumChannels]float64{1, 2, 3, 4, 5, 6, 7, 8}, got.Channels)
	assert.Equal(t, sample.Rest, got.Label)
}

func TestDriverDropsMalformedLines(t *testing.T) {
	logger, logs := observed()
	port := &testutil.FakePort{}
	buf := sample.NewBuffer(0)
	d := NewDriver(restPhase(), port, buf, logger)

	port.Push("1.0,2.0,3.0")
	d.Tick(time.Unix(0, 0))
	assert.Equal(t, 0, buf.Len())
	assert.Equal(t, 1, logs.FilterMessage(log.EventSampleRejected).Len())

	port.Push("a,b,c,d,e,f,g,h")
	pr := d.Tick(time.Unix(0, int64(10*time.Millisecond)))
	assert.Equal(t, 0, buf.Len())
	assert.Equal(t, 2, pr.Rejected)
	assert.Equal(t, 2, logs.FilterMessage(log.EventSampleRejected).Len())
}

func TestDriverContinuesAfterCorruptLine(t *testing.T) {
	port := &testutil.FakePort{}
	port.Push("1,2,3,4,5,6,7,8", "garbage", "9,10,11,12,13,14,15,16")
	buf := sample.NewBuffer(0)

	NewDriver(restPhase(), port, buf, zap.NewNop()).Tick(time.Now())

	got := buf.DrainAll()
	require.Len(t, got, 2)
	assert.Equal(t, 1.0, got[0].Channels[0])
	assert.Equal(t, 9.0, got[1].Channels[0])
}

func TestDriverDrainsEverythingEachTick(t *testing.T) {
	port := &testutil.FakePort{}
	for i := 0; i < 500; i++ {
		port.Push(testutil.ValidLine)
	}
	buf := sample.NewBuffer(0)

	NewDriver(restPhase(), port, buf, nil).Tick(time.Now())

	assert.Equal(t, 500, buf.Len())
	assert.Empty(t, port.Lines)
}

func TestDriverLabelsWithPhaseLabel(t *testing.T) {
	p := restPhase()
	p.Kind = KindFlex
	p.Label = sample.Flex

	port := &testutil.FakePort{}
	port.Push(testutil.ValidLine, testutil.ValidLine, testutil.ValidLine)
	buf := sample.NewBuffer(0)
	NewDriver(p, port, buf, nil).Tick(time.Now())

	for _, s := range buf.DrainAll() {
		assert.Equal(t, sample.Flex, s.Label)
	}
}

func TestDriverReadErrorSkipsTick(t *testing.T) {
	logger, logs := observed()
	port := &testutil.FakePort{ReadErr: errors.New("transient disconnect")}
	port.Push(testutil.ValidLine)
	buf := sample.NewBuffer(0)
	d := NewDriver(restPhase(), port, buf, logger)

	start := time.Unix(0, 0)
	pr := d.Tick(start)
	assert.Equal(t, 0, buf.Len())
	assert.False(t, pr.Done)
	assert.Equal(t, 1, logs.FilterMessage(log.EventDeviceReadFailed).Len())

	d.Tick(start.Add(16 * time.Millisecond))
	assert.Equal(t, 1, buf.Len())
}

func TestDriverTimingAndProgress(t *testing.T) {
	d := NewDriver(restPhase(), nil, sample.NewBuffer(0), nil)
	start := time.Unix(50, 0)

	tests := []struct {
		at     time.Duration
		filled int
		done   bool
	}{
		{0, 0, false},
		{999 * time.Millisecond, 0, false},
		{time.Second, 1, false},
		{2500 * time.Millisecond, 2, false},
		{3999 * time.Millisecond, 3, false},
		{4 * time.Second, 3, true},
		{9 * time.Second, 3, true},
	}
	for _, tt := range tests {
		pr := d.Tick(start.Add(tt.at))
		assert.Equal(t, tt.filled, pr.Filled, "filled at %v", tt.at)
		assert.Equal(t, tt.done, pr.Done, "done at %v", tt.at)
	}
}

func TestDriverWithoutCollectIgnoresSource(t *testing.T) {
	p := restPhase()
	p.Kind = KindCountdown
	p.Collect = false

	port := &testutil.FakePort{}
	port.Push(testutil.ValidLine)
	buf := sample.NewBuffer(0)
	NewDriver(p, port, buf, nil).Tick(time.Now())

	assert.Equal(t, 0, buf.Len())
	assert.Len(t, port.Lines, 1)
}

func TestFilledUnits(t *testing.T) {
	assert.Equal(t, 0, FilledUnits(5*time.Second, 0, 3))
	assert.Equal(t, 0, FilledUnits(-time.Second, time.Second, 3))
	assert.Equal(t, 2, FilledUnits(2*time.Second, time.Second, 3))
	assert.Equal(t, 3, FilledUnits(time.Minute, time.Second, 3))
}

func TestRemaining(t *testing.T) {
	p := restPhase()
	assert.Equal(t, 3*time.Second, p.Remaining(Progress{Elapsed: time.Second}))
	assert.Equal(t, time.Duration(0), p.Remaining(Progress{Elapsed: 5 * time.Second}))
}

func TestDefaultProtocolPhases(t *testing.T) {
	phases := DefaultProtocol().Phases()
	require.Len(t, phases, 5)

	assert.Equal(t, KindCountdown, phases[0].Kind)
	assert.False(t, phases[0].Collect)
	assert.Equal(t, 3, phases[0].ProgressUnits)

	wantText := []string{"REST", "FLEX 1", "REST", "FLEX 2"}
	for i, p := range phases[1:] {
		assert.Equal(t, wantText[i], p.Text)
		assert.True(t, p.Collect)
		if i%2 == 0 {
			assert.Equal(t, sample.Rest, p.Label)
			assert.Equal(t, 4*time.Second, p.Duration)
		} else {
			assert.Equal(t, sample.Flex, p.Label)
			assert.Equal(t, 6*time.Second, p.Duration)
		}
	}
	assert.Equal(t, 23*time.Second, DefaultProtocol().Total())
}
