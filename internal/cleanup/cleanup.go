// Package cleanup names raw line recordings and prunes old ones.
package cleanup

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const (
	// recordingLayout is the timestamp format of recording file names.
	recordingLayout = "20060102-150405"
	recordingExt    = ".csv"
)

// Recording is a recording file found on disk.
type Recording struct {
	Name    string
	Started time.Time
}

// RecordingName returns the file name for a recording started at t.
func RecordingName(t time.Time) string {
	return t.Format(recordingLayout) + recordingExt
}

// List returns the recordings in dir, oldest first. Files not named by
// RecordingName are ignored. A missing dir has no recordings.
func List(dir string) ([]Recording, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading recordings directory: %w", err)
	}

	var recs []Recording
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), recordingExt) {
			continue
		}
		stamp := strings.TrimSuffix(entry.Name(), recordingExt)
		t, parseErr := time.ParseInLocation(recordingLayout, stamp, time.Local)
		if parseErr != nil {
			continue
		}
		recs = append(recs, Recording{Name: entry.Name(), Started: t})
	}

	// Timestamp names sort chronologically.
	sort.Slice(recs, func(i, j int) bool { return recs[i].Name < recs[j].Name })
	return recs, nil
}

// PruneByAge removes recordings older than maxAgeDays.
// If dryRun is true, no files are deleted; the function only returns
// the names that would be removed.
func PruneByAge(dir string, maxAgeDays int, dryRun bool) ([]string, error) {
	recs, err := List(dir)
	if err != nil {
		return nil, err
	}

	cutoff := time.Now().AddDate(0, 0, -maxAgeDays)
	var old []string
	for _, r := range recs {
		if r.Started.Before(cutoff) {
			old = append(old, r.Name)
		}
	}
	return remove(dir, old, dryRun)
}

// PruneKeepRecent removes all recordings except the most recent keep.
// If dryRun is true, no files are deleted.
func PruneKeepRecent(dir string, keep int, dryRun bool) ([]string, error) {
	recs, err := List(dir)
	if err != nil {
		return nil, err
	}
	if len(recs) <= keep {
		return nil, nil
	}

	var old []string
	for _, r := range recs[:len(recs)-keep] {
		old = append(old, r.Name)
	}
	return remove(dir, old, dryRun)
}

func remove(dir string, names []string, dryRun bool) ([]string, error) {
	var pruned []string
	for _, name := range names {
		if !dryRun {
			if err := os.Remove(filepath.Join(dir, name)); err != nil {
				return pruned, fmt.Errorf("removing %s: %w", name, err)
			}
		}
		pruned = append(pruned, name)
	}
	return pruned, nil
}
