// Package config defines run configuration for the pipeline, loadable from
// a YAML file with flag overrides applied by the CLI.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults applied by Normalize when a field is unset.
const (
	DefaultBatchSize        = 100
	DefaultWorkers          = 4
	DefaultChronicThreshold = 2
	DefaultFailureWindow    = 20
	DefaultFailureRate      = 0.5
	DefaultDriftThreshold   = 0.25
	DefaultTierTimeout      = 10 * time.Second
)

// Run is the configuration for one pipeline run.
type Run struct {
	// Kind is the entity kind to process ("company" or "person").
	Kind string `yaml:"kind"`

	// BatchSize bounds each intake read.
	BatchSize int `yaml:"batch_size"`

	// Workers bounds the worker pool; entities are the unit of concurrency.
	Workers int `yaml:"workers"`

	// ChronicThreshold is the attempt count at which a quarantined entity
	// is tagged chronic and excluded from automatic reprocessing.
	ChronicThreshold int `yaml:"chronic_threshold"`

	// CostCeiling caps cumulative enrichment spend per run (0 = unlimited).
	CostCeiling float64 `yaml:"cost_ceiling"`

	// TierTimeout bounds each enrichment tier call.
	TierTimeout time.Duration `yaml:"tier_timeout"`

	// FailureRateThreshold trips the kill-switch when the invalid/total
	// ratio within the rolling window exceeds it.
	FailureRateThreshold float64 `yaml:"failure_rate_threshold"`

	// FailureRateWindow is the number of recent outcomes in the rolling
	// window. The guard only fires once the window is full.
	FailureRateWindow int `yaml:"failure_rate_window"`

	// RowDeltaMin/RowDeltaMax bound the expected number of records moved
	// between states in one run. Max = 0 disables the guard.
	RowDeltaMin int `yaml:"row_delta_min"`
	RowDeltaMax int `yaml:"row_delta_max"`

	// IdentityDriftThreshold trips the kill-switch when the fraction of
	// replays attempting to change identity-bearing fields exceeds it.
	IdentityDriftThreshold float64 `yaml:"identity_drift_threshold"`

	// IdentityFields are the identity-bearing field names; corrections that
	// change them are always rejected.
	IdentityFields []string `yaml:"identity_fields"`

	// PartitionField names the record field used as notification partition
	// key (e.g. "region"). Empty groups everything under one partition.
	PartitionField string `yaml:"partition_field"`

	// NotifyBatchSize is the per-partition notification flush threshold.
	NotifyBatchSize int `yaml:"notify_batch_size"`

	// DryRun computes and reports all decisions without any store writes.
	DryRun bool `yaml:"dry_run"`
}

// Load reads a Run configuration from a YAML file and normalizes it.
func Load(path string) (Run, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Run{}, fmt.Errorf("read config: %w", err)
	}

	var run Run
	if err := yaml.Unmarshal(data, &run); err != nil {
		return Run{}, fmt.Errorf("parse config: %w", err)
	}

	run.Normalize()
	if err := run.Validate(); err != nil {
		return Run{}, err
	}
	return run, nil
}

// Default returns a normalized configuration for the given kind.
func Default(kind string) Run {
	run := Run{Kind: kind}
	run.Normalize()
	return run
}

// Normalize fills unset fields with defaults.
func (r *Run) Normalize() {
	if r.BatchSize <= 0 {
		r.BatchSize = DefaultBatchSize
	}
	if r.Workers <= 0 {
		r.Workers = DefaultWorkers
	}
	if r.ChronicThreshold <= 0 {
		r.ChronicThreshold = DefaultChronicThreshold
	}
	if r.TierTimeout <= 0 {
		r.TierTimeout = DefaultTierTimeout
	}
	if r.FailureRateThreshold <= 0 {
		r.FailureRateThreshold = DefaultFailureRate
	}
	if r.FailureRateWindow <= 0 {
		r.FailureRateWindow = DefaultFailureWindow
	}
	if r.IdentityDriftThreshold <= 0 {
		r.IdentityDriftThreshold = DefaultDriftThreshold
	}
	if len(r.IdentityFields) == 0 {
		r.IdentityFields = []string{"name"}
	}
}

// Validate checks cross-field consistency.
func (r *Run) Validate() error {
	if r.Kind == "" {
		return fmt.Errorf("config: kind is required")
	}
	if r.FailureRateThreshold > 1 {
		return fmt.Errorf("config: failure_rate_threshold must be <= 1, got %v", r.FailureRateThreshold)
	}
	if r.IdentityDriftThreshold > 1 {
		return fmt.Errorf("config: identity_drift_threshold must be <= 1, got %v", r.IdentityDriftThreshold)
	}
	if r.RowDeltaMax > 0 && r.RowDeltaMin > r.RowDeltaMax {
		return fmt.Errorf("config: row_delta_min %d exceeds row_delta_max %d", r.RowDeltaMin, r.RowDeltaMax)
	}
	return nil
}
