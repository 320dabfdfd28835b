// Package phase runs one timed stimulus segment of a calibration session.
// A Driver is ticked once per frame: it reports visual progress and drains
// every line the device has ready, labeling accepted samples with the
// phase's stimulus.
package phase

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/semg-lab/semgcal/internal/device"
	"github.com/semg-lab/semgcal/internal/log"
	"github.com/semg-lab/semgcal/internal/sample"
)

// Kind identifies what a phase shows the subject.
type Kind int

const (
	KindCountdown Kind = iota
	KindRest
	KindFlex
)

func (k Kind) String() string {
	switch k {
	case KindCountdown:
		return "countdown"
	case KindRest:
		return "rest"
	case KindFlex:
		return "flex"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Phase describes one timed segment.
type Phase struct {
	Kind     Kind
	Duration time.Duration
	// Label tags samples captured while the phase runs. Ignored unless Collect.
	Label   sample.Label
	Collect bool
	Text    string
	// ProgressUnits is the number of progress markers; one fills per
	// ProgressInterval.
	ProgressUnits    int
	ProgressInterval time.Duration
}

// Progress is the result of one tick.
type Progress struct {
	Elapsed  time.Duration
	Filled   int
	Accepted int // samples appended during this phase so far
	Rejected int // lines dropped during this phase so far
	Done     bool
}

// Remaining returns the time left in p at progress pr, never negative.
func (p Phase) Remaining(pr Progress) time.Duration {
	if pr.Elapsed >= p.Duration {
		return 0
	}
	return p.Duration - pr.Elapsed
}

// FilledUnits returns floor(elapsed/interval) clamped to [0, units].
func FilledUnits(elapsed, interval time.Duration, units int) int {
	if interval <= 0 || elapsed <= 0 || units <= 0 {
		return 0
	}
	n := int(elapsed / interval)
	if n > units {
		return units
	}
	return n
}

// Driver runs a single Phase.
type Driver struct {
	phase    Phase
	src      device.LineSource
	buf      *sample.Buffer
	logger   *zap.Logger
	start    time.Time
	started  bool
	progress Progress
}

// NewDriver creates a Driver for p. src may be nil when acquisition is
// disabled; buf receives accepted samples.
func NewDriver(p Phase, src device.LineSource, buf *sample.Buffer, logger *zap.Logger) *Driver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Driver{
		phase:  p,
		src:    src,
		buf:    buf,
		logger: logger,
	}
}

// Phase returns the phase being driven.
func (d *Driver) Phase() Phase {
	return d.phase
}

// Progress returns the result of the latest tick.
func (d *Driver) Progress() Progress {
	return d.progress
}

// Tick advances the phase to now. The first tick marks the phase start.
// When the phase collects data, all lines currently available are drained
// before Tick returns.
func (d *Driver) Tick(now time.Time) Progress {
	if !d.started {
		d.start = now
		d.started = true
	}

	elapsed := now.Sub(d.start)
	if elapsed < 0 {
		elapsed = 0
	}
	d.progress.Elapsed = elapsed
	d.progress.Filled = FilledUnits(elapsed, d.phase.ProgressInterval, d.phase.ProgressUnits)
	d.progress.Done = elapsed >= d.phase.Duration

	if d.phase.Collect && d.src != nil {
		d.drain()
	}
	return d.progress
}

// drain reads until the source has nothing ready. A read failure ends the
// drain for this tick only.
func (d *Driver) drain() {
	for {
		ok, err := d.src.Available()
		if err != nil {
			d.logger.Warn(log.EventDeviceReadFailed, zap.Error(err))
			return
		}
		if !ok {
			return
		}

		line, err := d.src.ReadLine()
		if err != nil {
			d.logger.Warn(log.EventDeviceReadFailed, zap.Error(err))
			return
		}

		s, err := sample.Parse(line, d.phase.Label)
		if err != nil {
			d.progress.Rejected++
			d.logger.Warn(log.EventSampleRejected,
				zap.String("phase", d.phase.Kind.String()),
				zap.String("line", line),
				zap.Error(err))
			continue
		}
		d.buf.Append(s)
		d.progress.Accepted++
	}
}
