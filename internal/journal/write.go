package journal

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/psqltmpl/internal/runner"
)

// Journal implements runner.Observer.
var _ runner.Observer = (*Journal)(nil)

const timeLayout = time.RFC3339Nano

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// RunStarted inserts a run row in the running state.
func (j *Journal) RunStarted(ctx context.Context, info runner.RunInfo) error {
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO runs (id, template_hash, template, scenario_count, state, started_at)
		VALUES (?, ?, ?, ?, 'running', ?)
	`,
		info.RunID,
		TemplateHash(info.Template),
		string(info.Template),
		info.ScenarioCount,
		formatTime(info.StartedAt),
	)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}
	return nil
}

// StatementFinished inserts one statement row.
// Note: the run referenced by RunID must exist (foreign key constraint).
func (j *Journal) StatementFinished(ctx context.Context, rec runner.StatementRecord) error {
	scenarioJSON, err := rec.Scenario.MarshalJSON()
	if err != nil {
		return fmt.Errorf("write statement: %w", err)
	}

	ok := 0
	if rec.Outcome.OK {
		ok = 1
	}

	_, err = j.db.ExecContext(ctx, `
		INSERT INTO statements
		(run_id, seq, scenario, scenario_hash, sql, ok, kind, diagnostic, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rec.RunID,
		rec.Index,
		string(scenarioJSON),
		ScenarioHash(rec.Scenario),
		rec.SQL,
		ok,
		rec.Outcome.Kind.String(),
		rec.Outcome.Diagnostic(),
		formatTime(rec.StartedAt),
		formatTime(rec.FinishedAt),
	)
	if err != nil {
		return fmt.Errorf("write statement: %w", err)
	}
	return nil
}

// RunFinished records the terminal state of a run.
func (j *Journal) RunFinished(ctx context.Context, result runner.Result) error {
	var failedIndex any
	if result.State == runner.StateFailed {
		failedIndex = result.FailedIndex
	}

	res, err := j.db.ExecContext(ctx, `
		UPDATE runs
		SET state = ?, executed = ?, failed_index = ?, finished_at = ?
		WHERE id = ?
	`,
		result.State.String(),
		result.Executed,
		failedIndex,
		formatTime(result.FinishedAt),
		result.RunID,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("finish run: run %s not found", result.RunID)
	}
	return nil
}
