package cli

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/roach88/steward/internal/doctrine"
)

// LintResult summarizes a doctrine lint pass.
type LintResult struct {
	Valid bool     `json:"valid"`
	Kinds []string `json:"kinds,omitempty"`
	Error string   `json:"error,omitempty"`
}

// NewLintCommand creates the lint command.
func NewLintCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lint <doctrine-dir>",
		Short: "Check doctrine files without running the pipeline",
		Long: `Compile the CUE doctrine files in a directory and report problems.
Fast feedback for doctrine authors; exits 1 when the doctrine does not
compile.

Example:
  steward lint ./doctrine`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLint(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runLint(rootOpts *RootOptions, dir string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}

	registry, err := doctrine.LoadDir(dir)
	if err != nil {
		if ferr := formatter.Failure(err.Error()); ferr != nil {
			return ferr
		}
		return WrapExitError(ExitFailure, "doctrine lint failed", err)
	}

	kinds := registry.Kinds()
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = string(k)
	}
	sort.Strings(names)

	result := LintResult{Valid: true, Kinds: names}
	return formatter.Success(result, func(w io.Writer) {
		fmt.Fprintf(w, "Doctrine OK: %d kind(s)\n", len(names))
		for _, name := range names {
			fmt.Fprintf(w, "  - %s\n", name)
		}
	})
}
