package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/psqltmpl/internal/executor"
	"github.com/roach88/psqltmpl/internal/journal"
	"github.com/roach88/psqltmpl/internal/render"
	"github.com/roach88/psqltmpl/internal/runner"
	"github.com/roach88/psqltmpl/internal/scenario"
	"github.com/roach88/psqltmpl/internal/settings"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Template  string
	Scenarios string
	Journal   string

	// Dialer overrides the dialer picked from the settings driver (for testing).
	Dialer executor.Dialer

	// RunIDs overrides the run ID generator (for testing).
	// If nil, defaults to runner.UUIDv7Generator.
	RunIDs runner.RunIDGenerator

	// Clock overrides the wall clock (for testing).
	Clock func() time.Time
}

// RunReport is the outcome of a run as printed by the CLI.
type RunReport struct {
	RunID          string             `json:"run_id"`
	State          string             `json:"state"`
	Scenarios      int                `json:"scenarios"`
	Executed       int                `json:"executed"`
	FailedIndex    *int               `json:"failed_index,omitempty"`
	FailedScenario *scenario.Scenario `json:"failed_scenario,omitempty"`
	SQL            string             `json:"sql,omitempty"`
	Diagnostic     string             `json:"diagnostic,omitempty"`
	Journal        string             `json:"journal,omitempty"`
}

// WriteText prints the success summary.
func (r RunReport) WriteText(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "executed %d of %d statements\n", r.Executed, r.Scenarios); err != nil {
		return err
	}
	if r.Journal != "" {
		_, err := fmt.Fprintf(w, "run %s recorded in %s\n", r.RunID, r.Journal)
		return err
	}
	return nil
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return newRunCommand(&RunOptions{RootOptions: rootOpts})
}

func newRunCommand(opts *RunOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute the template once per scenario",
		Long: `Render the template for each scenario in order and execute every
statement against the configured database, stopping at the first failure.

The failing scenario is reported with its full key/value content together
with the database error and the exact SQL that was sent.

Example:
  psqltmpl run --template delete.sql --scenarios ids.json
  psqltmpl run --template delete.sql --scenarios ids.cue --journal runs.db --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarios(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Template, "template", "", "path to sql template file (required)")
	_ = cmd.MarkFlagRequired("template")
	cmd.Flags().StringVar(&opts.Scenarios, "scenarios", "", "path to scenarios file (required)")
	_ = cmd.MarkFlagRequired("scenarios")
	cmd.Flags().StringVar(&opts.Journal, "journal", "", "path to SQLite run journal (optional)")

	return cmd
}

// loadInputs reads the template and the scenarios. Failures are command
// errors.
func loadInputs(templatePath, scenariosPath string) (render.Template, []scenario.Scenario, error) {
	if templatePath == "" {
		return "", nil, NewExitError(ExitCommandError, "--template is required")
	}
	if scenariosPath == "" {
		return "", nil, NewExitError(ExitCommandError, "--scenarios is required")
	}

	tmpl, err := render.LoadTemplate(templatePath)
	if err != nil {
		return "", nil, WrapExitError(ExitCommandError, "failed to load template", err)
	}
	scenarios, err := scenario.Load(scenariosPath)
	if err != nil {
		return "", nil, WrapExitError(ExitCommandError, "failed to load scenarios", err)
	}
	return tmpl, scenarios, nil
}

// commandContext returns the command's context, cancelled on SIGINT/SIGTERM.
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	return signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
}

func runScenarios(cmd *cobra.Command, opts *RunOptions) error {
	tmpl, scenarios, err := loadInputs(opts.Template, opts.Scenarios)
	if err != nil {
		return err
	}

	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())
	out := newFormatter(opts.RootOptions, cmd)

	ctx, cancel := commandContext(cmd)
	defer cancel()

	runOpts := []runner.Option{runner.WithLogger(logger)}
	if opts.RunIDs != nil {
		runOpts = append(runOpts, runner.WithRunIDs(opts.RunIDs))
	}
	if opts.Clock != nil {
		runOpts = append(runOpts, runner.WithClock(opts.Clock))
	}
	if opts.Journal != "" {
		logger.Debug("opening journal", "path", opts.Journal)
		j, err := journal.Open(opts.Journal)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open journal", err)
		}
		defer func() {
			if closeErr := j.Close(); closeErr != nil {
				logger.Error("error closing journal", "error", closeErr)
			}
		}()
		runOpts = append(runOpts, runner.WithObserver(j))
	}

	execOpts := []executor.Option{executor.WithLogger(logger)}
	if opts.Dialer != nil {
		execOpts = append(execOpts, executor.WithDialer(opts.Dialer))
	}

	job := runner.Job{
		SettingsPath: opts.Connection,
		Template:     tmpl,
		Scenarios:    scenarios,
	}
	result, err := runner.RunJob(ctx, job, execOpts, runOpts...)
	if errors.Is(err, settings.ErrNotConfigured) {
		return reportNotConfigured(out, opts.Connection, err)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "run aborted", err)
	}

	report := RunReport{
		RunID:     result.RunID,
		State:     result.State.String(),
		Scenarios: len(scenarios),
		Executed:  result.Executed,
		Journal:   opts.Journal,
	}
	if result.OK() {
		return out.SuccessForRun(result.RunID, report)
	}

	idx := result.FailedIndex
	report.FailedIndex = &idx
	report.FailedScenario = result.Failed
	report.SQL = result.Outcome.SQL
	report.Diagnostic = result.Outcome.Diagnostic()

	message := result.FailureMessage()
	if out.Format != "json" {
		// The executor diagnostic comes first, then the scenario report.
		message = report.Diagnostic + "\n" + message
	}
	if err := out.ErrorForRun(result.RunID, result.Outcome.Kind.String(), message, report); err != nil {
		return err
	}
	return reportedExitError(ExitFailure, result.FailureMessage(), result.Outcome.Err)
}

// reportNotConfigured prints the configure prompt after a bootstrap.
func reportNotConfigured(out *OutputFormatter, path string, err error) error {
	message := settings.ConfigureMessage(path)
	if writeErr := out.Error(CodeNotConfigured, message, map[string]string{"connection": path}); writeErr != nil {
		return writeErr
	}
	return reportedExitError(ExitFailure, message, err)
}
