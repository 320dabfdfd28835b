// Package testutil provides test helper utilities for semgcal tests.
package testutil

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/semg-lab/semgcal/internal/device"
)

// TempProject creates a temporary directory with the given files and returns its path.
// Files is a map of relative path -> content. Directories are created as needed.
// The directory is automatically cleaned up when the test finishes.
func TempProject(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()

	for relPath, content := range files {
		absPath := filepath.Join(dir, relPath)
		if err := os.MkdirAll(filepath.Dir(absPath), 0755); err != nil {
			t.Fatalf("creating directory for %s: %v", relPath, err)
		}
		if err := os.WriteFile(absPath, []byte(content), 0644); err != nil {
			t.Fatalf("writing %s: %v", relPath, err)
		}
	}

	return dir
}

// ValidLine is a well-formed eight channel device line.
const ValidLine = "1.0,2.0,3.0,4.0,5.0,6.0,7.0,8.0"

// FakePort is a scripted device.Port. Lines queued with Push become
// available immediately; ReadErr makes the next Available call fail.
type FakePort struct {
	Lines   []string
	ReadErr error
	Resets  int
	Closes  int
}

var _ device.Port = (*FakePort)(nil)

// Push queues lines as if the device had just sent them.
func (p *FakePort) Push(lines ...string) {
	p.Lines = append(p.Lines, lines...)
}

// Available implements device.LineSource.
func (p *FakePort) Available() (bool, error) {
	if p.ReadErr != nil {
		err := p.ReadErr
		p.ReadErr = nil
		return false, err
	}
	return len(p.Lines) > 0, nil
}

// ReadLine implements device.LineSource.
func (p *FakePort) ReadLine() (string, error) {
	if len(p.Lines) == 0 {
		return "", device.ErrNoLine
	}
	line := p.Lines[0]
	p.Lines = p.Lines[1:]
	return line, nil
}

// ResetInput implements device.Port.
func (p *FakePort) ResetInput() error {
	p.Resets++
	p.Lines = nil
	return nil
}

// Close implements device.Port.
func (p *FakePort) Close() error {
	p.Closes++
	return nil
}

// ErrOpenFailed is returned by FailingOpener.
var ErrOpenFailed = errors.New("device not found")

// OpenerFor returns an Opener that always hands out port and counts calls.
func OpenerFor(port *FakePort, calls *int) device.Opener {
	return device.OpenerFunc(func(device.Target) (device.Port, error) {
		if calls != nil {
			*calls++
		}
		return port, nil
	})
}

// FailingOpener returns an Opener that always fails with ErrOpenFailed.
func FailingOpener() device.Opener {
	return device.OpenerFunc(func(device.Target) (device.Port, error) {
		return nil, ErrOpenFailed
	})
}
