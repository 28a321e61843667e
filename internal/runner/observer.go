package runner

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/psqltmpl/internal/executor"
	"github.com/roach88/psqltmpl/internal/render"
	"github.com/roach88/psqltmpl/internal/scenario"
)

// RunInfo describes a run that is about to start.
type RunInfo struct {
	RunID         string
	Template      render.Template
	ScenarioCount int
	StartedAt     time.Time
}

// StatementRecord describes one executed statement.
type StatementRecord struct {
	RunID      string
	Index      int
	Scenario   scenario.Scenario
	SQL        string
	Outcome    executor.Outcome
	StartedAt  time.Time
	FinishedAt time.Time
}

// Observer receives run progress. Calls are made synchronously on the
// runner's goroutine, in order: RunStarted, StatementFinished per executed
// statement, RunFinished.
type Observer interface {
	RunStarted(ctx context.Context, info RunInfo) error
	StatementFinished(ctx context.Context, rec StatementRecord) error
	RunFinished(ctx context.Context, result Result) error
}

// RunIDGenerator generates unique run identifiers.
type RunIDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 run IDs, so journal
// entries sort by creation time.
type UUIDv7Generator struct{}

// Generate returns a new UUIDv7 as a hyphenated string.
// Panics if UUID generation fails (should never happen in practice).
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}
