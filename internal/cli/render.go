package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/psqltmpl/internal/render"
	"github.com/roach88/psqltmpl/internal/scenario"
)

// RenderOptions holds flags for the render command.
type RenderOptions struct {
	*RootOptions
	Template  string
	Scenarios string
	Strict    bool
}

// RenderedStatement is one rendered scenario.
type RenderedStatement struct {
	Index     int               `json:"index"`
	Scenario  scenario.Scenario `json:"scenario"`
	SQL       string            `json:"sql"`
	Unmatched []string          `json:"unmatched,omitempty"`
}

// RenderReport lists the statements a run would execute.
type RenderReport struct {
	Placeholders []string            `json:"placeholders"`
	Statements   []RenderedStatement `json:"statements"`
}

// WriteText prints each statement under a comment naming its scenario.
func (r RenderReport) WriteText(w io.Writer) error {
	for i, st := range r.Statements {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "-- [%d] %s\n", st.Index, st.Scenario)
		if len(st.Unmatched) > 0 {
			fmt.Fprintf(w, "-- unrendered: %s\n", strings.Join(st.Unmatched, ", "))
		}
		if _, err := fmt.Fprintln(w, strings.TrimRight(st.SQL, "\n")); err != nil {
			return err
		}
	}
	return nil
}

// NewRenderCommand creates the render command.
func NewRenderCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RenderOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Print the rendered statements without executing them",
		Long: `Render the template for every scenario and print the statements a run
would execute. No connection settings are read and no database is contacted.

With --strict the command fails when any scenario leaves a placeholder
unrendered.

Examples:
  psqltmpl render --template delete.sql --scenarios ids.json
  psqltmpl render --template delete.sql --scenarios ids.yaml --strict --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Template, "template", "", "path to sql template file (required)")
	_ = cmd.MarkFlagRequired("template")
	cmd.Flags().StringVar(&opts.Scenarios, "scenarios", "", "path to scenarios file (required)")
	_ = cmd.MarkFlagRequired("scenarios")
	cmd.Flags().BoolVar(&opts.Strict, "strict", false, "fail when a placeholder is left unrendered")

	return cmd
}

// renderAll renders tmpl for every scenario.
func renderAll(tmpl render.Template, scenarios []scenario.Scenario) RenderReport {
	report := RenderReport{
		Placeholders: render.Placeholders(tmpl),
		Statements:   make([]RenderedStatement, 0, len(scenarios)),
	}
	if report.Placeholders == nil {
		report.Placeholders = []string{}
	}
	for i, sc := range scenarios {
		report.Statements = append(report.Statements, RenderedStatement{
			Index:     i,
			Scenario:  sc,
			SQL:       render.Render(tmpl, sc),
			Unmatched: render.Unmatched(tmpl, sc),
		})
	}
	return report
}

func runRender(opts *RenderOptions, cmd *cobra.Command) error {
	tmpl, scenarios, err := loadInputs(opts.Template, opts.Scenarios)
	if err != nil {
		return err
	}
	out := newFormatter(opts.RootOptions, cmd)

	report := renderAll(tmpl, scenarios)
	out.VerboseLog("rendered %d statements, placeholders: %v", len(report.Statements), report.Placeholders)

	if opts.Strict {
		var problems []string
		for _, st := range report.Statements {
			if len(st.Unmatched) > 0 {
				problems = append(problems, fmt.Sprintf("scenario[%d] %s leaves %s unrendered",
					st.Index, st.Scenario, strings.Join(st.Unmatched, ", ")))
			}
		}
		if len(problems) > 0 {
			if err := out.Error(CodeUnrendered, strings.Join(problems, "\n"), report); err != nil {
				return err
			}
			return reportedExitError(ExitFailure,
				fmt.Sprintf("%d scenarios leave placeholders unrendered", len(problems)), nil)
		}
	}

	return out.Success(report)
}
