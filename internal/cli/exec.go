package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/psqltmpl/internal/executor"
	"github.com/roach88/psqltmpl/internal/settings"
)

// ExecOptions holds flags for the exec command.
type ExecOptions struct {
	*RootOptions
	SQL  string
	File string

	// Dialer overrides the dialer picked from the settings driver (for testing).
	Dialer executor.Dialer
}

// ExecReport is the outcome of a single statement.
type ExecReport struct {
	OK         bool   `json:"ok"`
	Kind       string `json:"kind"`
	SQL        string `json:"sql"`
	Diagnostic string `json:"diagnostic,omitempty"`
}

// WriteText prints the success line.
func (r ExecReport) WriteText(w io.Writer) error {
	_, err := fmt.Fprintln(w, "statement committed")
	return err
}

// NewExecCommand creates the exec command.
func NewExecCommand(rootOpts *RootOptions) *cobra.Command {
	return newExecCommand(&ExecOptions{RootOptions: rootOpts})
}

func newExecCommand(opts *ExecOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "exec",
		Short: "Execute a single SQL statement",
		Long: `Execute one SQL statement against the configured database and commit it.

The statement is given inline with --sql or read from a file with --file.
No placeholders are substituted.

Examples:
  psqltmpl exec --sql "DELETE FROM sessions WHERE expired;"
  psqltmpl exec --file cleanup.sql --connection prod.json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExec(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.SQL, "sql", "", "sql statement to execute")
	cmd.Flags().StringVar(&opts.File, "file", "", "path to a file holding the sql statement")
	cmd.MarkFlagsMutuallyExclusive("sql", "file")
	cmd.MarkFlagsOneRequired("sql", "file")

	return cmd
}

func runExec(opts *ExecOptions, cmd *cobra.Command) error {
	query := opts.SQL
	if opts.File != "" {
		data, err := os.ReadFile(opts.File)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read sql file", err)
		}
		query = string(data)
	}
	if strings.TrimSpace(query) == "" {
		return NewExitError(ExitCommandError, "no sql to execute")
	}

	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())
	out := newFormatter(opts.RootOptions, cmd)

	s, err := settings.Load(opts.Connection)
	if errors.Is(err, settings.ErrNotConfigured) {
		return reportNotConfigured(out, opts.Connection, err)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load connection settings", err)
	}

	execOpts := []executor.Option{executor.WithLogger(logger)}
	if opts.Dialer != nil {
		execOpts = append(execOpts, executor.WithDialer(opts.Dialer))
	}
	exec, err := executor.New(s, execOpts...)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to create executor", err)
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()

	outcome := exec.Execute(ctx, query)
	report := ExecReport{
		OK:         outcome.OK,
		Kind:       outcome.Kind.String(),
		SQL:        outcome.SQL,
		Diagnostic: outcome.Diagnostic(),
	}
	if outcome.OK {
		return out.Success(report)
	}

	if err := out.Error(outcome.Kind.String(), report.Diagnostic, report); err != nil {
		return err
	}
	return reportedExitError(ExitFailure, "statement failed", outcome.Err)
}
