// Command psqltmpl renders a SQL template once per scenario and executes the
// statements in order against a configured database.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/psqltmpl/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		if !cli.IsReported(err) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(cli.GetExitCode(err))
	}
}
