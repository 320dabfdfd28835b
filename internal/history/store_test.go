package history

import (
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestCreateAndFinishRun(t *testing.T) {
	s := newTestStore(t)
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	run, err := s.CreateRun("/dev/ttyUSB0", 115200, true, start)
	if err != nil {
		t.Fatalf("CreateRun: %v", err)
	}
	if run.ID == "" || run.Outcome != OutcomeRunning {
		t.Fatalf("CreateRun returned %+v", run)
	}

	run.EndedAt = start.Add(30 * time.Second)
	run.DeviceOpened = true
	run.Outcome = "completed"
	run.Samples = 120
	run.Rejected = 2
	run.ExportPath = "calibration_data.csv"
	phases := []PhaseStat{
		{Index: 1, Kind: "rest", Accepted: 50},
		{Index: 2, Kind: "flex", Accepted: 70, Rejected: 2},
	}
	if err := s.FinishRun(run, phases); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}

	got, err := s.GetRun(run.ID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got == nil {
		t.Fatal("GetRun returned nil")
	}
	if got.Outcome != "completed" || got.Samples != 120 || got.Rejected != 2 || !got.DeviceOpened {
		t.Errorf("GetRun = %+v", got)
	}
	if !got.EndedAt.Equal(run.EndedAt) {
		t.Errorf("EndedAt = %v, want %v", got.EndedAt, run.EndedAt)
	}

	stats, err := s.GetPhases(run.ID)
	if err != nil {
		t.Fatalf("GetPhases: %v", err)
	}
	if len(stats) != 2 || stats[1].Kind != "flex" || stats[1].Rejected != 2 {
		t.Errorf("GetPhases = %+v", stats)
	}
}

func TestGetRunMissing(t *testing.T) {
	s := newTestStore(t)
	got, err := s.GetRun("does-not-exist")
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got != nil {
		t.Errorf("GetRun = %+v, want nil", got)
	}
}

func TestListRunsNewestFirst(t *testing.T) {
	s := newTestStore(t)
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		if _, err := s.CreateRun("", 0, false, base.Add(time.Duration(i)*time.Hour)); err != nil {
			t.Fatalf("CreateRun: %v", err)
		}
	}

	runs, err := s.ListRuns(2)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("got %d runs, want 2", len(runs))
	}
	if !runs[0].StartedAt.After(runs[1].StartedAt) {
		t.Errorf("runs not newest first: %v then %v", runs[0].StartedAt, runs[1].StartedAt)
	}
	if !runs[0].EndedAt.IsZero() {
		t.Errorf("unfinished run has EndedAt %v", runs[0].EndedAt)
	}
}
