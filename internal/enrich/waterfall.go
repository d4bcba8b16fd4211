package enrich

import (
	"context"
	"log/slog"
	"time"

	"github.com/roach88/steward/internal/entity"
)

// Outcome classifies how a waterfall pass over one record ended.
type Outcome string

const (
	// OutcomeEnriched means a tier hit; the enriched record should re-enter
	// the evaluation cycle.
	OutcomeEnriched Outcome = "enriched"

	// OutcomeNoMatch means every tier was attempted and none hit.
	OutcomeNoMatch Outcome = "no_match"

	// OutcomeBudgetExhausted means the cost ceiling blocked a tier attempt.
	// Distinct from data-invalidity: no error row, no attempt increment.
	OutcomeBudgetExhausted Outcome = "budget_exhausted"
)

// Result is the outcome of one waterfall pass.
type Result struct {
	Outcome Outcome

	// Record is the enriched record when Outcome is OutcomeEnriched;
	// otherwise the input record unchanged.
	Record entity.Record

	// TiersTried lists the tiers actually attempted, in order.
	TiersTried []string

	// HitTier names the tier that produced the enrichment, if any.
	HitTier string
}

// DefaultTierTimeout bounds a single tier lookup when no timeout is configured.
const DefaultTierTimeout = 10 * time.Second

// Waterfall runs tiered lookups under a shared cost ledger.
type Waterfall struct {
	tiers   []Tier
	ledger  *Ledger
	timeout time.Duration
}

// New creates a waterfall. Tiers must already be ordered by ascending cost;
// the waterfall attempts them in the order given.
func New(tiers []Tier, ledger *Ledger, tierTimeout time.Duration) *Waterfall {
	if tierTimeout <= 0 {
		tierTimeout = DefaultTierTimeout
	}
	return &Waterfall{tiers: tiers, ledger: ledger, timeout: tierTimeout}
}

// Ledger exposes the run ledger for reporting.
func (w *Waterfall) Ledger() *Ledger { return w.ledger }

// Run executes one waterfall pass over a record.
//
// The only error returned is the parent context's cancellation; tier errors
// and timeouts are tier failures that advance the waterfall. On a hit, the
// returned record is a clone of the input with the tier's fields merged in -
// existing non-empty fields are never overwritten by enrichment.
func (w *Waterfall) Run(ctx context.Context, rec entity.Record) (Result, error) {
	result := Result{Outcome: OutcomeNoMatch, Record: rec}

	for _, tier := range w.tiers {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		// Budget check before every attempt. A failed reservation ends the
		// pass immediately: no later (more expensive) tier is consumed.
		if !w.ledger.Reserve(tier.Cost()) {
			result.Outcome = OutcomeBudgetExhausted
			slog.Debug("enrichment budget exhausted",
				"entity", rec.ID, "tier", tier.Name(), "spent", w.ledger.Spent())
			return result, nil
		}

		result.TiersTried = append(result.TiersTried, tier.Name())

		tierCtx, cancel := context.WithTimeout(ctx, w.timeout)
		found, fields, err := tier.Lookup(tierCtx, rec)
		cancel()

		if err != nil {
			// Timeout or provider error: a tier failure, advance.
			slog.Debug("enrichment tier failed",
				"entity", rec.ID, "tier", tier.Name(), "error", err)
			continue
		}
		if !found {
			continue
		}

		enriched := rec.Clone()
		for k, v := range fields {
			if enriched.Fields[k] == "" {
				enriched.Fields[k] = v
			}
		}
		result.Outcome = OutcomeEnriched
		result.Record = enriched
		result.HitTier = tier.Name()
		slog.Debug("enrichment hit", "entity", rec.ID, "tier", tier.Name())
		return result, nil
	}

	return result, nil
}
