package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// DefaultLimit is the fallback page size for run listings.
const DefaultLimit = 20

// History manages the build run ledger in SQLite
type History struct {
	db *sql.DB
}

// NewHistory opens the run ledger at dbPath, creating it if needed
func NewHistory(dbPath string) (*History, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool for SQLite (single writer)
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	h := &History{db: db}

	if err := h.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return h, nil
}

// Close closes the database connection
func (h *History) Close() error {
	return h.db.Close()
}

// initSchema creates the database tables and indexes
func (h *History) initSchema() error {
	_, err := h.db.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			started_at TEXT NOT NULL,
			status TEXT NOT NULL,
			strategy TEXT NOT NULL,
			exit_code INTEGER NOT NULL,
			failed_step TEXT,
			commit_sha TEXT,
			error_message TEXT,
			duration_seconds REAL NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create runs table: %w", err)
	}

	_, err = h.db.Exec(`
		CREATE TABLE IF NOT EXISTS run_steps (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			label TEXT NOT NULL,
			policy TEXT NOT NULL DEFAULT 'fatal',
			status TEXT NOT NULL,
			exit_code INTEGER NOT NULL,
			duration_seconds REAL NOT NULL,
			output TEXT NOT NULL DEFAULT ''
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create run_steps table: %w", err)
	}

	// Create index for efficient queries
	_, err = h.db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_run_steps_run
		ON run_steps(run_id, position)
	`)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	return nil
}

// RecordRun stores a run and its step results in a single transaction
// and returns the new run ID. Step positions are assigned from slice
// order.
func (h *History) RecordRun(ctx context.Context, record *RunRecord) (int64, error) {
	startedAt := record.StartedAt
	if startedAt.IsZero() {
		startedAt = time.Now()
	}

	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		INSERT INTO runs
		(started_at, status, strategy, exit_code, failed_step, commit_sha,
		 error_message, duration_seconds)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		startedAt.UTC().Format(time.RFC3339),
		record.Status,
		record.Strategy,
		record.ExitCode,
		record.FailedStep,
		record.CommitSHA,
		record.ErrorMessage,
		record.DurationSeconds,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert run record: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID: %w", err)
	}

	for i, step := range record.Steps {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO run_steps
			(run_id, position, label, policy, status, exit_code, duration_seconds, output)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, id, i, step.Label, step.Policy, step.Status, step.ExitCode, step.DurationSeconds, step.Output)
		if err != nil {
			return 0, fmt.Errorf("failed to insert step record %q: %w", step.Label, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit run record: %w", err)
	}

	return id, nil
}

// LatestRun returns the most recent run without step results, or nil
// when the ledger is empty
func (h *History) LatestRun(ctx context.Context) (*RunRecord, error) {
	row := h.db.QueryRowContext(ctx, `
		SELECT id, started_at, status, strategy, exit_code, failed_step,
		       commit_sha, error_message, duration_seconds
		FROM runs
		ORDER BY id DESC
		LIMIT 1
	`)

	record, err := scanRunRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query latest run: %w", err)
	}

	return record, nil
}

// ListRuns returns up to limit runs, most recent first, without step
// results. A non-positive limit falls back to DefaultLimit.
func (h *History) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	rows, err := h.db.QueryContext(ctx, `
		SELECT id, started_at, status, strategy, exit_code, failed_step,
		       commit_sha, error_message, duration_seconds
		FROM runs
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query run history: %w", err)
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		record, err := scanRunRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run record: %w", err)
		}
		records = append(records, *record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return records, nil
}

// GetRun returns a run with its step results, or nil when no run has
// that ID
func (h *History) GetRun(ctx context.Context, id int64) (*RunRecord, error) {
	row := h.db.QueryRowContext(ctx, `
		SELECT id, started_at, status, strategy, exit_code, failed_step,
		       commit_sha, error_message, duration_seconds
		FROM runs
		WHERE id = ?
	`, id)

	record, err := scanRunRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query run: %w", err)
	}

	steps, err := h.runSteps(ctx, id)
	if err != nil {
		return nil, err
	}
	record.Steps = steps

	return record, nil
}

func (h *History) runSteps(ctx context.Context, runID int64) ([]StepRecord, error) {
	rows, err := h.db.QueryContext(ctx, `
		SELECT position, label, policy, status, exit_code, duration_seconds, output
		FROM run_steps
		WHERE run_id = ?
		ORDER BY position
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query run steps: %w", err)
	}
	defer rows.Close()

	var steps []StepRecord
	for rows.Next() {
		var step StepRecord
		err := rows.Scan(
			&step.Position,
			&step.Label,
			&step.Policy,
			&step.Status,
			&step.ExitCode,
			&step.DurationSeconds,
			&step.Output,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan step record: %w", err)
		}
		steps = append(steps, step)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return steps, nil
}

// scanner is an interface that both *sql.Row and *sql.Rows implement
type scanner interface {
	Scan(dest ...interface{}) error
}

// scanRunRecord scans a database row into a RunRecord
// Works with both *sql.Row and *sql.Rows
func scanRunRecord(s scanner) (*RunRecord, error) {
	var record RunRecord
	var startedAtStr string
	var failedStep, commitSHA, errorMessage sql.NullString

	err := s.Scan(
		&record.ID,
		&startedAtStr,
		&record.Status,
		&record.Strategy,
		&record.ExitCode,
		&failedStep,
		&commitSHA,
		&errorMessage,
		&record.DurationSeconds,
	)
	if err != nil {
		return nil, err
	}

	// Parse timestamps
	startedAt, err := time.Parse(time.RFC3339, startedAtStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse started_at timestamp: %w", err)
	}
	record.StartedAt = startedAt

	if failedStep.Valid {
		record.FailedStep = &failedStep.String
	}
	if commitSHA.Valid {
		record.CommitSHA = &commitSHA.String
	}
	if errorMessage.Valid {
		record.ErrorMessage = &errorMessage.String
	}

	return &record, nil
}
