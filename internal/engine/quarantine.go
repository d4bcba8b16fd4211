package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/steward/internal/entity"
	"github.com/roach88/steward/internal/notify"
)

// quarantine routes an invalid record to the quarantine state and appends
// exactly one new error row to its trail.
//
// prevAttempt is the entity's attempt count before this failure: 0 for a
// record coming from intake, the stored attempt for one already in
// quarantine. The new row carries prevAttempt+1; the trail is append-only,
// so a repeated failure is a second row, never an edit of the first.
//
// Reaching the chronic threshold writes the new row as chronic and tags
// the quarantine entry, which excludes the entity from automatic
// enrichment passes. Replay remains available.
//
// The notification offer runs strictly after local persistence and is
// best effort: a sink failure is logged and counted, never propagated.
func (e *Engine) quarantine(ctx context.Context, rec entity.Record, reasons []string, prevAttempt int) error {
	attempt := prevAttempt + 1
	chronic := attempt >= e.cfg.ChronicThreshold

	e.tally.quarantined.Add(1)
	e.metrics.Quarantined()
	if chronic {
		e.tally.chronic.Add(1)
		e.metrics.Chronic()
	}

	if e.cfg.DryRun {
		return nil
	}

	status := entity.StatusOpen
	if chronic {
		status = entity.StatusChronic
	}
	row := entity.ErrorRow{
		ID:        e.idGen.NewID(),
		EntityID:  rec.ID,
		Reasons:   reasons,
		Attempt:   attempt,
		CreatedAt: e.nowFn().UTC(),
		Status:    status,
	}

	if err := e.store.UpsertQuarantine(ctx, rec, attempt, chronic); err != nil {
		return fmt.Errorf("quarantine %s: %w", rec.ID, err)
	}
	if err := e.store.AppendErrorRow(ctx, row); err != nil {
		return fmt.Errorf("append error row for %s: %w", rec.ID, err)
	}

	slog.Info("entity quarantined",
		"entity", rec.ID,
		"attempt", attempt,
		"chronic", chronic,
		"reasons", reasons,
	)

	e.batcher.Offer(ctx, e.partitionKey(rec), notify.Row{
		ErrorID:  row.ID,
		EntityID: row.EntityID,
		Reasons:  row.Reasons,
		Attempt:  row.Attempt,
	})
	return nil
}
