package device

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.bug.st/serial"
)

// MaxLineLength bounds an unterminated line before it is discarded.
const MaxLineLength = 64 * 1024

// ErrLineTooLong is returned when the device sends MaxLineLength bytes
// without a newline.
var ErrLineTooLong = errors.New("line exceeds maximum length")

// RawPort is the byte-level transport under a LinePort.
// go.bug.st/serial.Port satisfies it.
type RawPort interface {
	Read(p []byte) (int, error)
	ResetInputBuffer() error
	Close() error
}

// LinePort splits the byte stream of a RawPort into lines. Partial lines
// are kept across polls.
type LinePort struct {
	raw     RawPort
	chunk   []byte
	pending []byte
	lines   []string
}

// NewLinePort wraps raw. raw.Read must return promptly with (0, nil)
// when no bytes are waiting.
func NewLinePort(raw RawPort) *LinePort {
	return &LinePort{
		raw:   raw,
		chunk: make([]byte, 4096),
	}
}

// Available reads whatever the transport has buffered and reports whether
// at least one complete line is queued.
func (p *LinePort) Available() (bool, error) {
	for len(p.lines) == 0 {
		n, err := p.raw.Read(p.chunk)
		if n > 0 {
			if splitErr := p.split(p.chunk[:n]); splitErr != nil {
				return len(p.lines) > 0, splitErr
			}
		}
		if err != nil {
			return len(p.lines) > 0, fmt.Errorf("reading serial port: %w", err)
		}
		if n == 0 {
			break
		}
	}
	return len(p.lines) > 0, nil
}

// ReadLine pops the oldest queued line.
func (p *LinePort) ReadLine() (string, error) {
	if len(p.lines) == 0 {
		return "", ErrNoLine
	}
	line := p.lines[0]
	p.lines = p.lines[1:]
	return line, nil
}

// ResetInput drops queued lines, the partial line, and the transport's
// input buffer.
func (p *LinePort) ResetInput() error {
	p.pending = p.pending[:0]
	p.lines = nil
	return p.raw.ResetInputBuffer()
}

// Close closes the transport.
func (p *LinePort) Close() error {
	return p.raw.Close()
}

func (p *LinePort) split(data []byte) error {
	p.pending = append(p.pending, data...)
	for {
		i := bytes.IndexByte(p.pending, '\n')
		if i < 0 {
			break
		}
		p.lines = append(p.lines, strings.TrimRight(string(p.pending[:i]), "\r"))
		p.pending = p.pending[i+1:]
	}
	if len(p.pending) > MaxLineLength {
		p.pending = p.pending[:0]
		return ErrLineTooLong
	}
	return nil
}

// SerialOpener opens serial devices with go.bug.st/serial.
type SerialOpener struct {
	// PollTimeout is how long a read may wait for bytes. Zero polls.
	PollTimeout time.Duration
}

// Open implements Opener.
func (o SerialOpener) Open(target Target) (Port, error) {
	raw, err := serial.Open(target.Path, &serial.Mode{BaudRate: target.BaudRate})
	if err != nil {
		return nil, err
	}
	if err := raw.SetReadTimeout(o.PollTimeout); err != nil {
		_ = raw.Close()
		return nil, fmt.Errorf("setting read timeout: %w", err)
	}
	return NewLinePort(raw), nil
}
