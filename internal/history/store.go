package history

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// Store provides SQLite-backed persistence for run records.
type Store struct {
	db *sql.DB
}

// NewStore opens the SQLite database at dbPath and creates tables if they don't exist.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := createTables(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func createTables(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		started_at DATETIME NOT NULL,
		ended_at DATETIME,
		port TEXT NOT NULL DEFAULT '',
		baud_rate INTEGER NOT NULL DEFAULT 0,
		acquisition BOOLEAN NOT NULL DEFAULT 0,
		device_opened BOOLEAN NOT NULL DEFAULT 0,
		outcome TEXT NOT NULL,
		samples INTEGER NOT NULL DEFAULT 0,
		rejected INTEGER NOT NULL DEFAULT 0,
		export_path TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS phases (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		phase_index INTEGER NOT NULL,
		kind TEXT NOT NULL,
		accepted INTEGER NOT NULL DEFAULT 0,
		rejected INTEGER NOT NULL DEFAULT 0,
		FOREIGN KEY (run_id) REFERENCES runs(id)
	);
	`
	_, err := db.Exec(schema)
	return err
}

// CreateRun records the start of a run and returns it with a fresh ID.
func (s *Store) CreateRun(port string, baudRate int, acquisition bool, startedAt time.Time) (*Run, error) {
	run := &Run{
		ID:          uuid.New().String(),
		StartedAt:   startedAt,
		Port:        port,
		BaudRate:    baudRate,
		Acquisition: acquisition,
		Outcome:     OutcomeRunning,
	}

	_, err := s.db.Exec(
		`INSERT INTO runs (id, started_at, port, baud_rate, acquisition, outcome)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.StartedAt, run.Port, run.BaudRate, run.Acquisition, run.Outcome,
	)
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}

	return run, nil
}

// FinishRun stores the final state of run and its phase counts.
func (s *Store) FinishRun(run *Run, phases []PhaseStat) error {
	if run.EndedAt.IsZero() {
		run.EndedAt = time.Now()
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.Exec(
		`UPDATE runs SET ended_at = ?, device_opened = ?, outcome = ?, samples = ?, rejected = ?, export_path = ?
		 WHERE id = ?`,
		run.EndedAt, run.DeviceOpened, run.Outcome, run.Samples, run.Rejected, run.ExportPath, run.ID,
	)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}

	for _, p := range phases {
		_, err = tx.Exec(
			`INSERT INTO phases (run_id, phase_index, kind, accepted, rejected)
			 VALUES (?, ?, ?, ?, ?)`,
			run.ID, p.Index, p.Kind, p.Accepted, p.Rejected,
		)
		if err != nil {
			return fmt.Errorf("insert phase %d: %w", p.Index, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run: %w", err)
	}
	return nil
}

const runColumns = `id, started_at, ended_at, port, baud_rate, acquisition, device_opened, outcome, samples, rejected, export_path`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row scanner) (*Run, error) {
	var run Run
	var ended sql.NullTime
	err := row.Scan(&run.ID, &run.StartedAt, &ended, &run.Port, &run.BaudRate,
		&run.Acquisition, &run.DeviceOpened, &run.Outcome, &run.Samples, &run.Rejected, &run.ExportPath)
	if err != nil {
		return nil, err
	}
	if ended.Valid {
		run.EndedAt = ended.Time
	}
	return &run, nil
}

// GetRun retrieves a run by ID. Returns nil, nil when no run matches.
func (s *Store) GetRun(id string) (*Run, error) {
	row := s.db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE id = ?`, id)

	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan run: %w", err)
	}
	return run, nil
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(limit int) ([]Run, error) {
	rows, err := s.db.Query(
		`SELECT `+runColumns+` FROM runs ORDER BY started_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, *run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return runs, nil
}

// GetPhases retrieves the phase counts of a run in phase order.
func (s *Store) GetPhases(runID string) ([]PhaseStat, error) {
	rows, err := s.db.Query(
		`SELECT run_id, phase_index, kind, accepted, rejected
		 FROM phases
		 WHERE run_id = ?
		 ORDER BY phase_index ASC`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("query phases: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var stats []PhaseStat
	for rows.Next() {
		var p PhaseStat
		if err := rows.Scan(&p.RunID, &p.Index, &p.Kind, &p.Accepted, &p.Rejected); err != nil {
			return nil, fmt.Errorf("scan phase: %w", err)
		}
		stats = append(stats, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return stats, nil
}
