package cli

import (
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/psqltmpl/internal/settings"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	Connection string // path to the connection settings file
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the psqltmpl CLI.
//
// Given --template and --scenarios the root command runs the scenarios
// directly, the same as the run subcommand.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}
	runOpts := &RunOptions{RootOptions: opts}

	cmd := &cobra.Command{
		Use:   "psqltmpl",
		Short: "Execute a SQL template once per scenario",
		Long: `Render a SQL template against a list of scenarios and execute each
rendered statement in order, stopping at the first failure.

Every {name} placeholder in the template is replaced literally with the
scenario's value for name. Each statement runs in its own connection and
transaction and is committed before the next scenario starts. Statements
committed before a failure stay committed.

Connection settings are read from a JSON file (--connection). When the file
does not exist a default one is written and the run stops until it has been
filled in.

Examples:
  psqltmpl --template delete.sql --scenarios ids.json
  psqltmpl run --template delete.sql --scenarios ids.yaml --journal runs.db
  psqltmpl render --template delete.sql --scenarios ids.json --strict`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if runOpts.Template == "" && runOpts.Scenarios == "" {
				return cmd.Help()
			}
			return runScenarios(cmd, runOpts)
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Connection, "connection", settings.DefaultPath, "path to json connection settings file")

	cmd.Flags().StringVar(&runOpts.Template, "template", "", "path to sql template file")
	cmd.Flags().StringVar(&runOpts.Scenarios, "scenarios", "", "path to scenarios file (.json, .yaml, .cue)")
	cmd.Flags().StringVar(&runOpts.Journal, "journal", "", "path to SQLite run journal (optional)")

	cmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return WrapExitError(ExitCommandError, "invalid flags", err)
	})

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewExecCommand(opts))
	cmd.AddCommand(NewRenderCommand(opts))
	cmd.AddCommand(NewInitCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}

// newFormatter builds the output formatter for cmd.
func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

// newLogger returns a text logger on w. Verbose selects debug level.
func newLogger(opts *RootOptions, w io.Writer) *slog.Logger {
	logLevel := slog.LevelInfo
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: logLevel,
	}))
}
