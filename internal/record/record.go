// Package record logs raw device lines to a timestamped CSV file without
// parsing or labeling them.
package record

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/semg-lab/semgcal/internal/device"
	"github.com/semg-lab/semgcal/internal/log"
)

// Header is the first row of every recording.
var Header = []string{"Timestamp", "Message"}

// Recorder copies lines from an open device connection to CSV rows.
type Recorder struct {
	conn   *device.Conn
	w      *csv.Writer
	echo   io.Writer
	logger *zap.Logger
	now    func() time.Time
	lines  int
}

// New creates a Recorder writing rows to w. Each recorded line is also
// written to echo when it is non-nil.
func New(conn *device.Conn, w io.Writer, echo io.Writer, logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{
		conn:   conn,
		w:      csv.NewWriter(w),
		echo:   echo,
		logger: logger,
		now:    time.Now,
	}
}

// Lines returns the number of rows recorded so far.
func (r *Recorder) Lines() int {
	return r.lines
}

// Run writes the header, then drains the device on every tick until ctx
// is cancelled. Cancellation is the normal way to stop and is not an
// error. The connection is closed before Run returns.
func (r *Recorder) Run(ctx context.Context, ticks <-chan time.Time) error {
	defer func() {
		if err := r.conn.Close(); err != nil {
			r.logger.Warn(log.EventDeviceClosed, zap.Error(err))
		}
	}()

	if err := r.writeRow(Header); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticks:
			if err := r.Tick(now); err != nil {
				return err
			}
		}
	}
}

// Tick polls the settle gate and records every line that is ready.
// Device read errors are logged and end the drain for this tick; write
// errors are returned.
func (r *Recorder) Tick(now time.Time) error {
	if !r.conn.Settled() {
		if err := r.conn.Poll(now); err != nil {
			r.logger.Warn(log.EventDeviceReadFailed, zap.Error(err))
			return nil
		}
		if r.conn.Settled() {
			r.logger.Info(log.EventDeviceSettled, zap.String("device", r.conn.Target().String()))
		}
	}

	for {
		ok, err := r.conn.Available()
		if err != nil {
			r.logger.Warn(log.EventDeviceReadFailed, zap.Error(err))
			return nil
		}
		if !ok {
			return nil
		}
		line, err := r.conn.ReadLine()
		if err != nil {
			r.logger.Warn(log.EventDeviceReadFailed, zap.Error(err))
			return nil
		}
		line = strings.TrimRight(line, " \t")
		if line == "" {
			continue
		}

		if r.echo != nil {
			fmt.Fprintln(r.echo, line)
		}
		if err := r.writeRow([]string{r.now().Format(time.RFC3339Nano), line}); err != nil {
			return err
		}
		r.lines++
		r.logger.Debug(log.EventLineRecorded, zap.Int("lines", r.lines))
	}
}

func (r *Recorder) writeRow(row []string) error {
	if err := r.w.Write(row); err != nil {
		return fmt.Errorf("write recording: %w", err)
	}
	r.w.Flush()
	if err := r.w.Error(); err != nil {
		return fmt.Errorf("write recording: %w", err)
	}
	return nil
}
