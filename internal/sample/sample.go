// Package sample parses raw device lines into labeled channel readings
// and keeps them in arrival order for the session.
package sample

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// NumChannels is the number of electrode readings in one device line.
const NumChannels = 8

// Delimiter separates channel values in a device line.
const Delimiter = ","

// Label is the stimulus class active when a sample was captured.
type Label int

const (
	Rest Label = 0 // relaxed muscle
	Flex Label = 1 // contracted muscle
)

// String returns the stimulus name used on screen and in logs.
func (l Label) String() string {
	switch l {
	case Rest:
		return "rest"
	case Flex:
		return "flex"
	default:
		return fmt.Sprintf("label(%d)", int(l))
	}
}

// Sample is one validated device reading tagged with its stimulus label.
type Sample struct {
	Channels [NumChannels]float64
	Label    Label
}

// Sentinel errors matched by ParseError.Is.
var (
	ErrFieldCount = errors.New("incorrect number of values")
	ErrNotNumeric = errors.New("invalid data format")
)

// ParseError describes a rejected device line.
type ParseError struct {
	Line   string
	Kind   error // ErrFieldCount or ErrNotNumeric
	Fields int
	Field  int // index of the first non-numeric field, -1 otherwise
}

func (e *ParseError) Error() string {
	if e.Kind == ErrNotNumeric {
		return fmt.Sprintf("%s: field %d of %q", e.Kind, e.Field+1, e.Line)
	}
	return fmt.Sprintf("%s: got %d, want %d in %q", e.Kind, e.Fields, NumChannels, e.Line)
}

// Is lets callers match with errors.Is(err, ErrFieldCount).
func (e *ParseError) Is(target error) bool {
	return target == e.Kind
}

// Parse turns one raw line into a Sample tagged with label.
// Surrounding whitespace is ignored on the line and on every field.
func Parse(line string, label Label) (Sample, error) {
	trimmed := strings.TrimSpace(line)
	fields := strings.Split(trimmed, Delimiter)
	if len(fields) != NumChannels {
		return Sample{}, &ParseError{Line: trimmed, Kind: ErrFieldCount, Fields: len(fields), Field: -1}
	}

	s := Sample{Label: label}
	for i, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return Sample{}, &ParseError{Line: trimmed, Kind: ErrNotNumeric, Fields: len(fields), Field: i}
		}
		s.Channels[i] = v
	}
	return s, nil
}
