// Package storage provides SQLite-based persistence for resolution
// runs: one row per run plus its full event stream, queryable later
// without re-running the pipeline.
package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/sid-xyz/go-sid/engine"
	"github.com/sid-xyz/go-sid/eventlog"
)

// Store handles SQLite database operations for run persistence.
type Store struct {
	db *sql.DB
}

// Run is a persisted run record.
type Run struct {
	ID              string    `json:"id"`
	StateID         string    `json:"state_id"`
	DiagramID       string    `json:"diagram_id"`
	StartedAt       time.Time `json:"started_at"`
	Iterations      int       `json:"iterations"`
	Stable          bool      `json:"stable"`
	Halted          bool      `json:"halted"`
	BudgetExhausted bool      `json:"budget_exhausted"`
	ReportJSON      string    `json:"report_json,omitempty"`
	MetricsJSON     string    `json:"metrics_json,omitempty"`
}

// Open creates a Store backed by the given database path. The schema
// is created on first use.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)")
	if err != nil {
		return nil, fmt.Errorf("storage: open database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: migrate: %w", err)
	}
	return s, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		state_id TEXT NOT NULL,
		diagram_id TEXT NOT NULL,
		started_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		iterations INTEGER NOT NULL DEFAULT 0,
		stable INTEGER NOT NULL DEFAULT 0,
		halted INTEGER NOT NULL DEFAULT 0,
		budget_exhausted INTEGER NOT NULL DEFAULT 0,
		report_json TEXT,
		metrics_json TEXT
	);

	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		time DATETIME NOT NULL,
		kind TEXT NOT NULL,
		diagram_id TEXT,
		rule_id TEXT,
		constraint_id TEXT,
		action TEXT,
		message TEXT,
		FOREIGN KEY (run_id) REFERENCES runs(id)
	);

	CREATE INDEX IF NOT EXISTS idx_events_run ON events(run_id, seq);
	CREATE INDEX IF NOT EXISTS idx_runs_state ON runs(state_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// SaveRun persists an outcome and, when given, its event stream.
func (s *Store) SaveRun(out *engine.Outcome, stateID string, log *eventlog.Log) error {
	reportJSON, err := json.Marshal(out.Report)
	if err != nil {
		return fmt.Errorf("storage: marshal report: %w", err)
	}
	metricsJSON := []byte("null")
	if out.Metrics != nil {
		metricsJSON, err = json.Marshal(out.Metrics)
		if err != nil {
			return fmt.Errorf("storage: marshal metrics: %w", err)
		}
	}
	diagramID := ""
	if out.Diagram != nil {
		diagramID = out.Diagram.ID
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("storage: begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO runs (id, state_id, diagram_id, iterations, stable, halted, budget_exhausted, report_json, metrics_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		out.RunID, stateID, diagramID, out.Iterations,
		out.Stable, out.Halted, out.BudgetExhausted,
		string(reportJSON), string(metricsJSON))
	if err != nil {
		return fmt.Errorf("storage: insert run %s: %w", out.RunID, err)
	}

	if log != nil {
		stmt, err := tx.Prepare(`
			INSERT INTO events (run_id, seq, time, kind, diagram_id, rule_id, constraint_id, action, message)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("storage: prepare events: %w", err)
		}
		defer stmt.Close()
		for _, e := range log.Events {
			if e.RunID != out.RunID {
				continue
			}
			if _, err := stmt.Exec(e.RunID, e.Seq, e.Time, string(e.Kind),
				e.DiagramID, e.RuleID, e.ConstraintID, e.Action, e.Message); err != nil {
				return fmt.Errorf("storage: insert event %d: %w", e.Seq, err)
			}
		}
	}
	return tx.Commit()
}

// GetRun loads one run record.
func (s *Store) GetRun(id string) (*Run, error) {
	row := s.db.QueryRow(`
		SELECT id, state_id, diagram_id, started_at, iterations, stable, halted, budget_exhausted,
		       COALESCE(report_json, ''), COALESCE(metrics_json, '')
		FROM runs WHERE id = ?`, id)
	var r Run
	err := row.Scan(&r.ID, &r.StateID, &r.DiagramID, &r.StartedAt, &r.Iterations,
		&r.Stable, &r.Halted, &r.BudgetExhausted, &r.ReportJSON, &r.MetricsJSON)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("storage: run %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("storage: load run %s: %w", id, err)
	}
	return &r, nil
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(`
		SELECT id, state_id, diagram_id, started_at, iterations, stable, halted, budget_exhausted,
		       COALESCE(report_json, ''), COALESCE(metrics_json, '')
		FROM runs ORDER BY started_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("storage: list runs: %w", err)
	}
	defer rows.Close()
	var out []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.StateID, &r.DiagramID, &r.StartedAt, &r.Iterations,
			&r.Stable, &r.Halted, &r.BudgetExhausted, &r.ReportJSON, &r.MetricsJSON); err != nil {
			return nil, fmt.Errorf("storage: scan run: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Events loads a run's event stream in sequence order.
func (s *Store) Events(runID string) (*eventlog.Log, error) {
	rows, err := s.db.Query(`
		SELECT run_id, seq, time, kind, COALESCE(diagram_id, ''), COALESCE(rule_id, ''),
		       COALESCE(constraint_id, ''), COALESCE(action, ''), COALESCE(message, '')
		FROM events WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("storage: load events for %s: %w", runID, err)
	}
	defer rows.Close()
	log := eventlog.NewLog()
	for rows.Next() {
		var e eventlog.Event
		var kind string
		if err := rows.Scan(&e.RunID, &e.Seq, &e.Time, &kind,
			&e.DiagramID, &e.RuleID, &e.ConstraintID, &e.Action, &e.Message); err != nil {
			return nil, fmt.Errorf("storage: scan event: %w", err)
		}
		e.Kind = eventlog.Kind(kind)
		log.Events = append(log.Events, e)
	}
	return log, rows.Err()
}
