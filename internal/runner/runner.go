package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/psqltmpl/internal/executor"
	"github.com/roach88/psqltmpl/internal/render"
	"github.com/roach88/psqltmpl/internal/scenario"
	"github.com/roach88/psqltmpl/internal/settings"
)

// State is the terminal state of a run.
type State int

const (
	// StateNotConfigured means the settings file was just bootstrapped and
	// no statement was executed.
	StateNotConfigured State = iota

	// StateAllSucceeded means every scenario's statement committed.
	StateAllSucceeded

	// StateFailed means the run stopped at Result.FailedIndex.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateNotConfigured:
		return "not_configured"
	case StateAllSucceeded:
		return "all_succeeded"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// StatementExecutor executes one rendered statement.
// Implemented by *executor.Executor.
type StatementExecutor interface {
	Execute(ctx context.Context, sql string) executor.Outcome
}

// Result summarises a run.
type Result struct {
	RunID string
	State State

	// Executed counts statements handed to the executor, including the
	// failing one.
	Executed int

	// FailedIndex is the index of the failing scenario, or -1.
	FailedIndex int

	// Failed is the failing scenario, nil unless State is StateFailed.
	Failed *scenario.Scenario

	// Outcome is the failing execution outcome, zero unless State is
	// StateFailed.
	Outcome executor.Outcome

	StartedAt  time.Time
	FinishedAt time.Time
}

// OK reports whether every scenario succeeded.
func (r Result) OK() bool {
	return r.State == StateAllSucceeded
}

// FailureMessage returns the operator report naming the failing scenario,
// or "" when the run did not fail.
func (r Result) FailureMessage() string {
	if r.State != StateFailed || r.Failed == nil {
		return ""
	}
	return FailureMessage(*r.Failed)
}

// FailureMessage is the report printed when sc fails.
func FailureMessage(sc scenario.Scenario) string {
	return fmt.Sprintf("scalar sql execution failed for scenario: %s", sc)
}

// Runner renders a template for each scenario and executes the statements
// in order, stopping at the first failure.
//
// Statements from scenarios that succeeded before a failure stay committed.
type Runner struct {
	exec      StatementExecutor
	logger    *slog.Logger
	observers []Observer
	runIDs    RunIDGenerator
	now       func() time.Time
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = l
	}
}

// WithObserver adds an observer notified of run progress.
func WithObserver(o Observer) Option {
	return func(r *Runner) {
		r.observers = append(r.observers, o)
	}
}

// WithRunIDs overrides the run ID generator. Defaults to UUIDv7Generator.
func WithRunIDs(g RunIDGenerator) Option {
	return func(r *Runner) {
		r.runIDs = g
	}
}

// WithClock overrides the wall clock used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) {
		r.now = now
	}
}

// New creates a runner that executes statements with exec.
func New(exec StatementExecutor, opts ...Option) *Runner {
	r := &Runner{exec: exec}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	if r.runIDs == nil {
		r.runIDs = UUIDv7Generator{}
	}
	if r.now == nil {
		r.now = time.Now
	}
	return r
}

// Run executes tmpl once per scenario, in order.
//
// On the first failed execution Run stops without attempting the remaining
// scenarios and returns StateFailed. An empty scenario list succeeds.
func (r *Runner) Run(ctx context.Context, tmpl render.Template, scenarios []scenario.Scenario) Result {
	result := Result{
		RunID:       r.runIDs.Generate(),
		State:       StateAllSucceeded,
		FailedIndex: -1,
		StartedAt:   r.now(),
	}
	logger := r.logger.With("run_id", result.RunID)

	r.notify(logger, func(o Observer) error {
		return o.RunStarted(ctx, RunInfo{
			RunID:         result.RunID,
			Template:      tmpl,
			ScenarioCount: len(scenarios),
			StartedAt:     result.StartedAt,
		})
	})
	logger.Info("run started", "scenarios", len(scenarios))

	for i, sc := range scenarios {
		sql := render.Render(tmpl, sc)
		if unmatched := render.Unmatched(tmpl, sc); len(unmatched) > 0 {
			logger.Debug("placeholders left unrendered", "index", i, "placeholders", unmatched)
		}

		started := r.now()
		outcome := r.exec.Execute(ctx, sql)
		finished := r.now()
		result.Executed++

		r.notify(logger, func(o Observer) error {
			return o.StatementFinished(ctx, StatementRecord{
				RunID:      result.RunID,
				Index:      i,
				Scenario:   sc,
				SQL:        sql,
				Outcome:    outcome,
				StartedAt:  started,
				FinishedAt: finished,
			})
		})

		if !outcome.OK {
			failed := sc
			result.State = StateFailed
			result.FailedIndex = i
			result.Failed = &failed
			result.Outcome = outcome
			logger.Error(FailureMessage(sc),
				"index", i,
				"kind", outcome.Kind.String(),
				"error", outcome.Diagnostic())
			break
		}
		logger.Debug("statement committed", "index", i, "duration", finished.Sub(started))
	}

	result.FinishedAt = r.now()
	r.notify(logger, func(o Observer) error {
		return o.RunFinished(ctx, result)
	})
	logger.Info("run finished", "state", result.State.String(), "executed", result.Executed)

	return result
}

// notify calls fn for each observer. Observer errors are logged and never
// change the run outcome.
func (r *Runner) notify(logger *slog.Logger, fn func(Observer) error) {
	for _, o := range r.observers {
		if err := fn(o); err != nil {
			logger.Warn("run observer failed", "error", err)
		}
	}
}

// Job is one complete invocation: settings file, template and scenarios.
type Job struct {
	SettingsPath string
	Template     render.Template
	Scenarios    []scenario.Scenario
}

// RunJob loads settings, builds the executor and runs the job.
//
// A missing settings file is bootstrapped and reported as
// StateNotConfigured together with a settings.ErrNotConfigured error.
// Other settings errors and executor construction errors are returned as
// fatal errors with a zero Result.
func RunJob(ctx context.Context, job Job, execOpts []executor.Option, opts ...Option) (Result, error) {
	s, err := settings.Load(job.SettingsPath)
	if errors.Is(err, settings.ErrNotConfigured) {
		return Result{State: StateNotConfigured, FailedIndex: -1}, err
	}
	if err != nil {
		return Result{FailedIndex: -1}, fmt.Errorf("failed to load connection settings: %w", err)
	}

	exec, err := executor.New(s, execOpts...)
	if err != nil {
		return Result{FailedIndex: -1}, fmt.Errorf("failed to create executor: %w", err)
	}

	return New(exec, opts...).Run(ctx, job.Template, job.Scenarios), nil
}
