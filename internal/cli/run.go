package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/roach88/steward/internal/config"
	"github.com/roach88/steward/internal/doctrine"
	"github.com/roach88/steward/internal/engine"
	"github.com/roach88/steward/internal/metrics"
	"github.com/roach88/steward/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database   string
	ConfigPath string
	Kind       string
	BatchSize  int
	Workers    int
	DryRun     bool
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <doctrine-dir>",
		Short: "Run one validation and promotion pass",
		Long: `Run one pipeline pass: drain intake through doctrine evaluation,
promote valid records to master, quarantine invalid ones, then reprocess
the non-chronic quarantine population.

Example:
  steward run --db ./steward.db ./doctrine
  steward run --db ./steward.db --config run.yaml --dry-run ./doctrine`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	cmd.Flags().StringVar(&opts.ConfigPath, "config", "", "path to run config YAML")
	cmd.Flags().StringVar(&opts.Kind, "kind", "company", "entity kind to process")
	cmd.Flags().IntVar(&opts.BatchSize, "batch-size", 0, "intake batch size")
	cmd.Flags().IntVar(&opts.Workers, "workers", 0, "worker pool size")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "compute decisions without writing")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runPipeline(opts *RunOptions, doctrineDir string, cmd *cobra.Command) error {
	cfg, err := loadRunConfig(opts, cmd)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid run config", err)
	}

	registry, err := doctrine.LoadDir(doctrineDir)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load doctrine", err)
	}

	slog.Info("opening database", "path", opts.Database)
	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	ctx, cancel := signalContext(cmd)
	defer cancel()

	// Collectors live on a per-run registry; there is no exporter surface,
	// callers embedding the engine bring their own registerer.
	eng := engine.New(st, registry, cfg,
		engine.WithMetrics(metrics.New(prometheus.NewRegistry())))
	report, err := eng.Run(ctx)
	if err != nil {
		return WrapExitError(ExitFailure, "run failed", err)
	}

	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	if err := formatter.Success(report, func(w io.Writer) {
		printReport(w, report)
	}); err != nil {
		return err
	}

	if report.Status == engine.StatusHalted {
		return WrapExitError(ExitFailure, "run halted", fmt.Errorf("%s: %s", report.HaltGuard, report.HaltReason))
	}
	return nil
}

// loadRunConfig builds the run config from the optional YAML file, then
// applies flag overrides for flags the user actually set.
func loadRunConfig(opts *RunOptions, cmd *cobra.Command) (config.Run, error) {
	var cfg config.Run
	if opts.ConfigPath != "" {
		loaded, err := config.Load(opts.ConfigPath)
		if err != nil {
			return config.Run{}, err
		}
		cfg = loaded
	} else {
		cfg = config.Default(opts.Kind)
	}

	if cmd.Flags().Changed("kind") {
		cfg.Kind = opts.Kind
	}
	if cmd.Flags().Changed("batch-size") {
		cfg.BatchSize = opts.BatchSize
	}
	if cmd.Flags().Changed("workers") {
		cfg.Workers = opts.Workers
	}
	if cmd.Flags().Changed("dry-run") {
		cfg.DryRun = opts.DryRun
	}

	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return config.Run{}, err
	}
	return cfg, nil
}

// signalContext derives a context cancelled by SIGINT/SIGTERM from the
// command's context.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func printReport(w io.Writer, report *engine.Report) {
	fmt.Fprintf(w, "Run %s (kind=%s", report.Status, report.Kind)
	if report.DryRun {
		fmt.Fprint(w, ", dry-run")
	}
	fmt.Fprintln(w, ")")
	fmt.Fprintf(w, "  promoted:          %d\n", report.Promoted)
	fmt.Fprintf(w, "  already promoted:  %d\n", report.AlreadyPromoted)
	fmt.Fprintf(w, "  quarantined:       %d (chronic %d)\n", report.Quarantined, report.Chronic)
	fmt.Fprintf(w, "  replayed:          %d\n", report.Replayed)
	fmt.Fprintf(w, "  enriched:          %d (budget exhausted %d, cost %.2f)\n",
		report.Enriched, report.BudgetExhausted, report.CostSpent)
	fmt.Fprintf(w, "  infra failures:    %d\n", report.InfraFailures)
	fmt.Fprintf(w, "  remaining:         intake %d, quarantine %d\n",
		report.IntakeRemaining, report.QuarantineRemaining)
	if report.Status == engine.StatusHalted {
		fmt.Fprintf(w, "  halt:              %s (%s)\n", report.HaltGuard, report.HaltReason)
	}
}
