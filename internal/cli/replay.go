package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/steward/internal/config"
	"github.com/roach88/steward/internal/doctrine"
	"github.com/roach88/steward/internal/engine"
	"github.com/roach88/steward/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	EntityID string
	Sets     []string
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay <doctrine-dir>",
		Short: "Replay a quarantined record with corrections",
		Long: `Apply field corrections to a quarantined record and run exactly one
evaluation cycle. The record either promotes or fails again with a new
error-trail row.

Corrections that change identity-bearing fields are rejected.

Example:
  steward replay --db ./steward.db --id c-01 --set industry=software ./doctrine`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	cmd.Flags().StringVar(&opts.EntityID, "id", "", "entity id to replay (required)")
	cmd.Flags().StringArrayVar(&opts.Sets, "set", nil, "field correction as field=value (repeatable)")
	_ = cmd.MarkFlagRequired("db")
	_ = cmd.MarkFlagRequired("id")

	return cmd
}

func runReplay(opts *ReplayOptions, doctrineDir string, cmd *cobra.Command) error {
	corrected, err := parseCorrections(opts.Sets)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --set flag", err)
	}

	registry, err := doctrine.LoadDir(doctrineDir)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load doctrine", err)
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	// The replayed record's kind selects the evaluator; any registered
	// kind works, so the config kind is a placeholder here.
	entry, err := st.GetQuarantine(cmd.Context(), opts.EntityID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return WrapExitError(ExitFailure, "replay rejected",
				fmt.Errorf("entity %s is not in quarantine", opts.EntityID))
		}
		return WrapExitError(ExitCommandError, "failed to read quarantine", err)
	}

	eng := engine.New(st, registry, config.Default(string(entry.Record.Kind)))
	result, err := eng.Replay(cmd.Context(), opts.EntityID, corrected)
	if err != nil {
		if errors.Is(err, engine.ErrIdentityChange) || errors.Is(err, engine.ErrNotQuarantined) {
			return WrapExitError(ExitFailure, "replay rejected", err)
		}
		return WrapExitError(ExitFailure, "replay failed", err)
	}

	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	return formatter.Success(result, func(w io.Writer) {
		if result.Promoted {
			fmt.Fprintf(w, "Entity %s promoted\n", result.EntityID)
			return
		}
		fmt.Fprintf(w, "Entity %s failed evaluation (attempt %d", result.EntityID, result.Attempt)
		if result.Chronic {
			fmt.Fprint(w, ", chronic")
		}
		fmt.Fprintln(w, ")")
		for _, reason := range result.Reasons {
			fmt.Fprintf(w, "  - %s\n", reason)
		}
	})
}

// parseCorrections turns repeated field=value flags into a field map.
func parseCorrections(sets []string) (map[string]string, error) {
	if len(sets) == 0 {
		return nil, errors.New("at least one --set field=value is required")
	}
	corrected := make(map[string]string, len(sets))
	for _, s := range sets {
		field, value, ok := strings.Cut(s, "=")
		if !ok || strings.TrimSpace(field) == "" {
			return nil, fmt.Errorf("malformed correction %q, want field=value", s)
		}
		corrected[strings.TrimSpace(field)] = value
	}
	return corrected, nil
}
