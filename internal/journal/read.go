package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// RunRecord is a journaled run.
type RunRecord struct {
	ID            string     `json:"id"`
	TemplateHash  string     `json:"template_hash"`
	Template      string     `json:"template"`
	ScenarioCount int        `json:"scenario_count"`
	State         string     `json:"state"`
	Executed      int        `json:"executed"`
	FailedIndex   *int       `json:"failed_index,omitempty"`
	StartedAt     time.Time  `json:"started_at"`
	FinishedAt    *time.Time `json:"finished_at,omitempty"`
}

// StatementEntry is a journaled statement.
type StatementEntry struct {
	RunID        string    `json:"run_id"`
	Seq          int       `json:"seq"`
	Scenario     string    `json:"scenario"`
	ScenarioHash string    `json:"scenario_hash"`
	SQL          string    `json:"sql"`
	OK           bool      `json:"ok"`
	Kind         string    `json:"kind"`
	Diagnostic   string    `json:"diagnostic,omitempty"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`
}

// ListRuns returns the most recent runs first. A limit <= 0 returns all.
//
// Returns an empty slice (not nil) if no runs exist.
func (j *Journal) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	query := `
		SELECT id, template_hash, template, scenario_count, state, executed,
		       failed_index, started_at, finished_at
		FROM runs
		ORDER BY started_at DESC, id DESC
	`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []RunRecord{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadRun returns a single run. Returns sql.ErrNoRows (wrapped) if absent.
func (j *Journal) ReadRun(ctx context.Context, id string) (RunRecord, error) {
	row := j.db.QueryRowContext(ctx, `
		SELECT id, template_hash, template, scenario_count, state, executed,
		       failed_index, started_at, finished_at
		FROM runs
		WHERE id = ?
	`, id)
	run, err := scanRun(row)
	if err != nil {
		return RunRecord{}, fmt.Errorf("read run %s: %w", id, err)
	}
	return run, nil
}

// ReadStatements returns the statements of a run ordered by seq.
//
// Returns an empty slice (not nil) if the run has no statements.
func (j *Journal) ReadStatements(ctx context.Context, runID string) ([]StatementEntry, error) {
	return j.queryStatements(ctx, `
		SELECT run_id, seq, scenario, scenario_hash, sql, ok, kind, diagnostic, started_at, finished_at
		FROM statements
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
}

// ScenarioHistory returns every journaled execution of a scenario hash,
// oldest first.
func (j *Journal) ScenarioHistory(ctx context.Context, scenarioHash string) ([]StatementEntry, error) {
	return j.queryStatements(ctx, `
		SELECT run_id, seq, scenario, scenario_hash, sql, ok, kind, diagnostic, started_at, finished_at
		FROM statements
		WHERE scenario_hash = ?
		ORDER BY started_at ASC, run_id ASC, seq ASC
	`, scenarioHash)
}

func (j *Journal) queryStatements(ctx context.Context, query string, arg string) ([]StatementEntry, error) {
	rows, err := j.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("query statements: %w", err)
	}
	defer rows.Close()

	entries := []StatementEntry{}
	for rows.Next() {
		var (
			e                     StatementEntry
			ok                    int
			startedAt, finishedAt string
		)
		if err := rows.Scan(&e.RunID, &e.Seq, &e.Scenario, &e.ScenarioHash, &e.SQL,
			&ok, &e.Kind, &e.Diagnostic, &startedAt, &finishedAt); err != nil {
			return nil, fmt.Errorf("scan statement: %w", err)
		}
		e.OK = ok == 1
		if e.StartedAt, err = parseTime(startedAt); err != nil {
			return nil, err
		}
		if e.FinishedAt, err = parseTime(finishedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate statements: %w", err)
	}
	return entries, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (RunRecord, error) {
	var (
		r           RunRecord
		failedIndex sql.NullInt64
		startedAt   string
		finishedAt  sql.NullString
	)
	if err := row.Scan(&r.ID, &r.TemplateHash, &r.Template, &r.ScenarioCount, &r.State,
		&r.Executed, &failedIndex, &startedAt, &finishedAt); err != nil {
		return RunRecord{}, fmt.Errorf("scan run: %w", err)
	}

	var err error
	if r.StartedAt, err = parseTime(startedAt); err != nil {
		return RunRecord{}, err
	}
	if failedIndex.Valid {
		idx := int(failedIndex.Int64)
		r.FailedIndex = &idx
	}
	if finishedAt.Valid {
		t, err := parseTime(finishedAt.String)
		if err != nil {
			return RunRecord{}, err
		}
		r.FinishedAt = &t
	}
	return r, nil
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}
