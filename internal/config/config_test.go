package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultFillsEverything(t *testing.T) {
	run := Default("company")

	if run.BatchSize != DefaultBatchSize {
		t.Errorf("BatchSize = %d, want %d", run.BatchSize, DefaultBatchSize)
	}
	if run.Workers != DefaultWorkers {
		t.Errorf("Workers = %d, want %d", run.Workers, DefaultWorkers)
	}
	if run.ChronicThreshold != DefaultChronicThreshold {
		t.Errorf("ChronicThreshold = %d, want %d", run.ChronicThreshold, DefaultChronicThreshold)
	}
	if run.TierTimeout != DefaultTierTimeout {
		t.Errorf("TierTimeout = %v, want %v", run.TierTimeout, DefaultTierTimeout)
	}
	if len(run.IdentityFields) != 1 || run.IdentityFields[0] != "name" {
		t.Errorf("IdentityFields = %v, want [name]", run.IdentityFields)
	}
	if err := run.Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "run.yaml")
	doc := `kind: company
batch_size: 50
workers: 2
cost_ceiling: 12.5
tier_timeout: 3s
failure_rate_threshold: 0.4
row_delta_min: 1
row_delta_max: 500
identity_fields: [name, country]
partition_field: region
dry_run: true
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	run, err := Load(path)
	if err != nil {
		t.Fatalf("Load() = %v", err)
	}
	if run.Kind != "company" {
		t.Errorf("Kind = %q", run.Kind)
	}
	if run.BatchSize != 50 || run.Workers != 2 {
		t.Errorf("BatchSize/Workers = %d/%d, want 50/2", run.BatchSize, run.Workers)
	}
	if run.CostCeiling != 12.5 {
		t.Errorf("CostCeiling = %v", run.CostCeiling)
	}
	if run.TierTimeout != 3*time.Second {
		t.Errorf("TierTimeout = %v", run.TierTimeout)
	}
	if run.FailureRateThreshold != 0.4 {
		t.Errorf("FailureRateThreshold = %v", run.FailureRateThreshold)
	}
	if len(run.IdentityFields) != 2 {
		t.Errorf("IdentityFields = %v", run.IdentityFields)
	}
	if !run.DryRun {
		t.Error("DryRun = false, want true")
	}
	// Unset fields pick up defaults.
	if run.ChronicThreshold != DefaultChronicThreshold {
		t.Errorf("ChronicThreshold = %d, want default %d", run.ChronicThreshold, DefaultChronicThreshold)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("Load() = nil, want error")
	}
}

func TestValidateRejectsBadRanges(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Run)
	}{
		{"missing kind", func(r *Run) { r.Kind = "" }},
		{"failure rate above one", func(r *Run) { r.FailureRateThreshold = 1.5 }},
		{"drift above one", func(r *Run) { r.IdentityDriftThreshold = 2 }},
		{"inverted row delta", func(r *Run) { r.RowDeltaMin = 10; r.RowDeltaMax = 5 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			run := Default("company")
			tc.mutate(&run)
			if err := run.Validate(); err == nil {
				t.Error("Validate() = nil, want error")
			}
		})
	}
}
