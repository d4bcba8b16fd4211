package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/steward/internal/entity"
)

// promote moves a valid record into the master store.
//
// The gate never re-validates: evaluation already passed. Promotion is
// idempotent — the master upsert is keyed by entity id, and re-promoting
// leaves the master unchanged except for freshly enriched fields. The
// master write and the intake/quarantine deletes commit in one
// transaction, so no observer ever sees a record in two states.
//
// On a store failure the master is re-checked (a concurrent promotion may
// have landed) and the write retried once. A second failure surfaces as an
// infrastructure error: a valid record is never quarantined and never
// dropped over an infra fault.
func (e *Engine) promote(ctx context.Context, rec entity.Record) (already bool, err error) {
	already, err = e.store.MasterExists(ctx, rec.ID)
	if err != nil {
		return false, fmt.Errorf("check master for %s: %w", rec.ID, err)
	}

	if e.cfg.DryRun {
		if already {
			e.tally.alreadyPromoted.Add(1)
		} else {
			e.tally.promoted.Add(1)
		}
		return already, nil
	}

	if err := e.store.PromoteAtomic(ctx, rec); err != nil {
		slog.Warn("promotion write failed, retrying once", "entity", rec.ID, "error", err)

		exists, checkErr := e.store.MasterExists(ctx, rec.ID)
		if checkErr == nil && exists {
			already = true
		}
		if retryErr := e.store.PromoteAtomic(ctx, rec); retryErr != nil {
			return false, fmt.Errorf("promote %s: %w", rec.ID, retryErr)
		}
	}

	if already {
		e.tally.alreadyPromoted.Add(1)
		e.metrics.AlreadyPromoted()
		slog.Debug("entity already promoted", "entity", rec.ID)
	} else {
		e.tally.promoted.Add(1)
		e.metrics.Promoted()
		slog.Info("entity promoted", "entity", rec.ID, "kind", rec.Kind)
	}
	return already, nil
}
