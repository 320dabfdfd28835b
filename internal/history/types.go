// Package history provides SQLite-backed records of past calibration runs.
// Only run metadata and per-phase counts are stored; samples live in the
// exported CSV file.
package history

import "time"

// Run is one calibration session as recorded in the history.
type Run struct {
	ID           string
	StartedAt    time.Time
	EndedAt      time.Time // zero while the run is in progress
	Port         string
	BaudRate     int
	Acquisition  bool
	DeviceOpened bool
	Outcome      string // running, completed, quit
	Samples      int
	Rejected     int
	ExportPath   string
}

// PhaseStat holds the sample counts of one completed phase of a run.
type PhaseStat struct {
	RunID    string
	Index    int
	Kind     string
	Accepted int
	Rejected int
}

// OutcomeRunning marks a run that has not finished yet.
const OutcomeRunning = "running"
