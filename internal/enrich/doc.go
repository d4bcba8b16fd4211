// Package enrich implements the tiered enrichment waterfall for
// quarantined records.
//
// Tiers are ordered by ascending cost and descending expected success
// probability: a free/wide lookup first, premium-precision providers last.
// The waterfall attempts tiers in order, stops at the first hit, and hands
// the enriched record back to the caller for re-evaluation.
//
// Cost discipline lives in the Ledger: before every tier attempt the
// waterfall reserves the tier's cost against the run ceiling, and a failed
// reservation short-circuits to BudgetExhausted without consuming any later
// tier. Every tier call is independently time-bounded; a timeout is a tier
// failure, not a crash.
//
// Enrichment failure is not a validation failure: a record that exhausts
// the waterfall stays in quarantine with no new error row and no attempt
// increment.
package enrich
