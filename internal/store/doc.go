// Package store provides SQLite-backed durable storage for entity records
// and their append-only error trails.
//
// The store is the single source of truth for record state. It holds:
//   - Intake: newly submitted, unvalidated records
//   - Master: records that passed validation (idempotent upsert by entity_id)
//   - Quarantine: records that failed validation, with an attempt counter
//   - Error Rows: one immutable row per failed validation cycle
//
// # Invariants enforced at this boundary
//
// Append-only error trail: there is no update-in-place method for error
// rows. The only mutation exposed is MarkErrorRowStatus, and it refuses
// transitions other than open→chronic and open|chronic→replayed. Reasons,
// attempt_number, and created_at are structurally immutable.
//
// Atomic promotion: PromoteAtomic upserts into master and deletes the
// source intake/quarantine row in a single transaction. A second promotion
// of the same identity is a no-op, never a duplicate.
//
// Deterministic reads: batch queries order by entity_id so repeated runs
// over the same data visit records in the same order.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - foreign_keys=ON
package store
