package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/steward/internal/store"
)

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	var database string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show state populations and error-trail totals",
		Long: `Show how many records sit in each lifecycle state and how many
error rows are open, chronic, or replayed.

Example:
  steward status --db ./steward.db
  steward status --db ./steward.db --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := store.Open(database)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to open database", err)
			}
			defer st.Close()

			counts, err := st.Counts(cmd.Context())
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to read counts", err)
			}

			formatter := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
			return formatter.Success(counts, func(w io.Writer) {
				printCounts(w, counts)
			})
		},
	}

	cmd.Flags().StringVar(&database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func printCounts(w io.Writer, counts store.StateCounts) {
	fmt.Fprintf(w, "intake:      %d\n", counts.Intake)
	fmt.Fprintf(w, "master:      %d\n", counts.Master)
	fmt.Fprintf(w, "quarantine:  %d (chronic %d)\n", counts.Quarantine, counts.Chronic)
	fmt.Fprintf(w, "error rows:  %d open, %d replayed\n", counts.OpenErrors, counts.Replayed)
}
