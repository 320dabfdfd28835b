// Package device provides the line-oriented view of the acquisition device
// used by the session: a non-blocking LineSource, the serial-backed Port,
// and Conn, which applies the post-open settle delay and closes once.
package device

import (
	"errors"
	"fmt"
	"time"
)

// ErrNoLine is returned by ReadLine when no complete line is buffered.
var ErrNoLine = errors.New("no line available")

// LineSource yields newline-delimited text records without blocking.
type LineSource interface {
	// Available reports whether a complete line can be read now.
	Available() (bool, error)
	// ReadLine returns the next complete line without its terminator.
	ReadLine() (string, error)
}

// Port is an open device connection.
type Port interface {
	LineSource
	// ResetInput discards everything received but not yet read.
	ResetInput() error
	Close() error
}

// Target identifies the device to acquire from.
type Target struct {
	Path     string
	BaudRate int
}

// Enabled reports whether both a device path and a link rate were supplied.
func (t Target) Enabled() bool {
	return t.Path != "" && t.BaudRate > 0
}

func (t Target) String() string {
	if !t.Enabled() {
		return "none"
	}
	return fmt.Sprintf("%s@%d", t.Path, t.BaudRate)
}

// Opener opens a Port for a Target.
type Opener interface {
	Open(target Target) (Port, error)
}

// OpenerFunc adapts a function to the Opener interface.
type OpenerFunc func(target Target) (Port, error)

// Open calls f(target).
func (f OpenerFunc) Open(target Target) (Port, error) {
	return f(target)
}

// Conn owns one open Port for a session. Lines are withheld until the
// settle delay has elapsed, at which point stale input is discarded.
// Close is idempotent.
type Conn struct {
	port        Port
	target      Target
	settleUntil time.Time
	settled     bool
	closed      bool
}

// Open opens target through opener and starts the settle delay at now.
// A zero settle discards pending input immediately.
func Open(opener Opener, target Target, now time.Time, settle time.Duration) (*Conn, error) {
	port, err := opener.Open(target)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", target, err)
	}

	c := &Conn{
		port:        port,
		target:      target,
		settleUntil: now.Add(settle),
	}
	if settle <= 0 {
		if err := c.Poll(now); err != nil {
			_ = c.Close()
			return nil, err
		}
	}
	return c, nil
}

// Poll finishes the settle delay once now has reached its deadline by
// flushing whatever the device sent while it was booting.
func (c *Conn) Poll(now time.Time) error {
	if c.closed || c.settled || now.Before(c.settleUntil) {
		return nil
	}
	c.settled = true
	if err := c.port.ResetInput(); err != nil {
		return fmt.Errorf("flushing %s: %w", c.target, err)
	}
	return nil
}

// Settled reports whether input is trusted yet.
func (c *Conn) Settled() bool {
	return c.settled
}

// Target returns the device this connection was opened for.
func (c *Conn) Target() Target {
	return c.target
}

// Available implements LineSource. It reports false until settled.
func (c *Conn) Available() (bool, error) {
	if c.closed || !c.settled {
		return false, nil
	}
	return c.port.Available()
}

// ReadLine implements LineSource.
func (c *Conn) ReadLine() (string, error) {
	if c.closed || !c.settled {
		return "", ErrNoLine
	}
	return c.port.ReadLine()
}

// Close closes the underlying port the first time it is called.
func (c *Conn) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	if err := c.port.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", c.target, err)
	}
	return nil
}

// Closed reports whether Close has been called.
func (c *Conn) Closed() bool {
	return c.closed
}
