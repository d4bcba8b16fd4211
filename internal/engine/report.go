package engine

import "sync/atomic"

// Status is the overall result of a run.
type Status string

const (
	// StatusComplete means the intake and quarantine states are both empty.
	StatusComplete Status = "COMPLETE"

	// StatusIncomplete means records remain in intake or quarantine.
	StatusIncomplete Status = "INCOMPLETE"

	// StatusHalted means the kill-switch governor tripped mid-run.
	// Counters reflect the partial progress made before the trip.
	StatusHalted Status = "HALTED"
)

// Report summarizes one run.
type Report struct {
	Status Status `json:"status"`
	Kind   string `json:"kind"`

	Promoted        int `json:"promoted"`
	AlreadyPromoted int `json:"already_promoted"`
	Quarantined     int `json:"quarantined"`
	Chronic         int `json:"chronic"`
	Replayed        int `json:"replayed"`
	Enriched        int `json:"enriched"`
	BudgetExhausted int `json:"budget_exhausted"`
	InfraFailures   int `json:"infra_failures"`

	CostSpent           float64 `json:"cost_spent"`
	IntakeRemaining     int     `json:"intake_remaining"`
	QuarantineRemaining int     `json:"quarantine_remaining"`
	NotifyDropped       int     `json:"notify_dropped"`

	HaltGuard  string `json:"halt_guard,omitempty"`
	HaltReason string `json:"halt_reason,omitempty"`

	DryRun bool `json:"dry_run"`
}

// tally accumulates run counters across workers.
type tally struct {
	promoted        atomic.Int64
	alreadyPromoted atomic.Int64
	quarantined     atomic.Int64
	chronic         atomic.Int64
	replayed        atomic.Int64
	enriched        atomic.Int64
	budgetExhausted atomic.Int64
	infraFailures   atomic.Int64
}

func (t *tally) snapshot(r *Report) {
	r.Promoted = int(t.promoted.Load())
	r.AlreadyPromoted = int(t.alreadyPromoted.Load())
	r.Quarantined = int(t.quarantined.Load())
	r.Chronic = int(t.chronic.Load())
	r.Replayed = int(t.replayed.Load())
	r.Enriched = int(t.enriched.Load())
	r.BudgetExhausted = int(t.budgetExhausted.Load())
	r.InfraFailures = int(t.infraFailures.Load())
}
