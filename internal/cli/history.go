package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/psqltmpl/internal/journal"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Journal string
	Limit   int
}

// HistoryList is the run listing.
type HistoryList struct {
	Runs []journal.RunRecord `json:"runs"`
}

// WriteText prints one line per run, newest first.
func (h HistoryList) WriteText(w io.Writer) error {
	if len(h.Runs) == 0 {
		_, err := fmt.Fprintln(w, "No runs recorded")
		return err
	}
	for _, r := range h.Runs {
		line := fmt.Sprintf("%s  %-13s  %d/%d  %s",
			r.ID, r.State, r.Executed, r.ScenarioCount, r.StartedAt.UTC().Format(time.RFC3339))
		if r.FailedIndex != nil {
			line += fmt.Sprintf("  failed at [%d]", *r.FailedIndex)
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// HistoryDetail is a single run with its statements.
type HistoryDetail struct {
	Run        journal.RunRecord        `json:"run"`
	Statements []journal.StatementEntry `json:"statements"`
}

// WriteText prints the run header followed by its statements.
func (h HistoryDetail) WriteText(w io.Writer) error {
	fmt.Fprintf(w, "Run: %s\n", h.Run.ID)
	fmt.Fprintf(w, "State: %s\n", h.Run.State)
	fmt.Fprintf(w, "Template: %s\n", shortHash(h.Run.TemplateHash))
	fmt.Fprintf(w, "Executed: %d of %d\n", h.Run.Executed, h.Run.ScenarioCount)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Statements ===")
	if len(h.Statements) == 0 {
		_, err := fmt.Fprintln(w, "  (none)")
		return err
	}
	for _, st := range h.Statements {
		fmt.Fprintf(w, "  [%d] %s %s\n", st.Seq, st.Kind, st.Scenario)
		if st.Diagnostic != "" {
			for _, line := range strings.Split(st.Diagnostic, "\n") {
				fmt.Fprintf(w, "       %s\n", line)
			}
		}
	}
	return nil
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Show journaled runs",
		Long: `List the runs recorded in a run journal, newest first. Given a run ID,
show that run with every statement it executed.

Examples:
  psqltmpl history --journal runs.db
  psqltmpl history --journal runs.db --limit 5
  psqltmpl history --journal runs.db 0192f5a4-7c1e-7d3a-9b8e-2f6c1a0b3d4e --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Journal, "journal", "", "path to SQLite run journal (required)")
	_ = cmd.MarkFlagRequired("journal")
	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "maximum number of runs to list (0 for all)")

	return cmd
}

func runHistory(opts *HistoryOptions, args []string, cmd *cobra.Command) error {
	ctx := context.Background()

	if _, err := os.Stat(opts.Journal); err != nil {
		return WrapExitError(ExitCommandError, "journal not found", err)
	}
	j, err := journal.Open(opts.Journal)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open journal", err)
	}
	defer j.Close()

	out := newFormatter(opts.RootOptions, cmd)

	if len(args) == 0 {
		runs, err := j.ListRuns(ctx, opts.Limit)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list runs", err)
		}
		return out.Success(HistoryList{Runs: runs})
	}

	runID := args[0]
	run, err := j.ReadRun(ctx, runID)
	if errors.Is(err, sql.ErrNoRows) {
		return NewExitError(ExitCommandError, fmt.Sprintf("run %s not found", runID))
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read run", err)
	}
	statements, err := j.ReadStatements(ctx, runID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read statements", err)
	}
	return out.SuccessForRun(runID, HistoryDetail{Run: run, Statements: statements})
}
