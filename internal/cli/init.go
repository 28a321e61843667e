package cli

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/psqltmpl/internal/settings"
)

// InitOptions holds flags for the init command.
type InitOptions struct {
	*RootOptions
	Force bool
}

// InitReport names the settings file that was written.
type InitReport struct {
	Connection string            `json:"connection"`
	Settings   settings.Settings `json:"settings"`
}

// WriteText prints the configure prompt.
func (r InitReport) WriteText(w io.Writer) error {
	_, err := fmt.Fprintln(w, settings.ConfigureMessage(r.Connection))
	return err
}

// NewInitCommand creates the init command.
func NewInitCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InitOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default connection settings file",
		Long: `Write the default connection settings file so it can be filled in
before the first run. An existing file is kept unless --force is given.

Examples:
  psqltmpl init
  psqltmpl init --connection staging.json --force`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(opts, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Force, "force", false, "overwrite an existing settings file")

	return cmd
}

func runInit(opts *InitOptions, cmd *cobra.Command) error {
	path := opts.Connection

	_, err := os.Stat(path)
	switch {
	case err == nil && !opts.Force:
		return NewExitError(ExitCommandError,
			fmt.Sprintf("settings file %s already exists (use --force to overwrite)", path))
	case err != nil && !errors.Is(err, fs.ErrNotExist):
		return WrapExitError(ExitCommandError, "failed to check settings file", err)
	}

	if err := settings.Bootstrap(path); err != nil {
		return WrapExitError(ExitCommandError, "failed to write settings file", err)
	}

	out := newFormatter(opts.RootOptions, cmd)
	return out.Success(InitReport{Connection: path, Settings: settings.Default()})
}
