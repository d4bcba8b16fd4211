// Package engine drives the validation, promotion, and replay pipeline.
//
// A run drains the intake state through a bounded worker pool: each record
// is evaluated by the kind's rule evaluator, then either promoted to the
// master store or routed to quarantine with a new error-trail row. After
// the intake pass, one enrichment waterfall pass runs over the non-chronic
// quarantine population; every enrichment hit re-enters evaluation inline.
//
// Correction is explicit: Replay applies operator-supplied fields to a
// quarantined record and runs exactly one evaluation cycle. Nothing replays
// automatically.
//
// A shared Governor watches aggregate behavior (failure rate, row delta,
// replay identity drift) and trips an atomic kill-switch. Components check
// Halted() at entity boundaries; an in-flight atomic write always completes,
// so a halt never leaves a record split between states.
//
// Thread-safety model:
//   - Run(): one call at a time per Engine
//   - Replay(): safe from any goroutine (per-identity keyed lock)
//   - Governor: safe from any goroutine (atomic flag, mutex-guarded window)
package engine
