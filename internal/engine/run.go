package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/steward/internal/enrich"
	"github.com/roach88/steward/internal/entity"
	"github.com/roach88/steward/internal/rules"
)

// Run executes one pipeline run: drain intake through the worker pool,
// then one enrichment pass over the non-chronic quarantine population.
//
// Entities are the unit of concurrency. Each worker holds the identity
// lock for the record it processes, so no two workers ever touch the same
// entity id. Workers check the governor at entity boundaries; after a trip
// no further entity is picked up and the run result is HALTED.
//
// The returned report is always non-nil: a halted run reports the partial
// progress made before the trip.
func (e *Engine) Run(ctx context.Context) (*Report, error) {
	start := time.Now()
	kind := entity.Kind(e.cfg.Kind)

	ev, err := e.registry.For(kind)
	if err != nil {
		return nil, fmt.Errorf("select evaluator: %w", err)
	}

	slog.Info("run starting",
		"kind", kind,
		"batch_size", e.cfg.BatchSize,
		"workers", e.cfg.Workers,
		"dry_run", e.cfg.DryRun,
	)

	moved, err := e.drainIntake(ctx, kind, ev)
	if err != nil {
		return nil, err
	}

	// Row-delta sanity check covers the intake pass: a wildly unexpected
	// volume of moved records indicates upstream anomaly, not normal load.
	if !e.governor.Halted() {
		e.governor.CheckRowDelta(moved)
	}

	if e.waterfall != nil && !e.governor.Halted() {
		if err := e.enrichQuarantine(ctx, kind, ev); err != nil {
			return nil, err
		}
	}

	e.batcher.Flush(ctx)
	e.metrics.CycleDuration(time.Since(start).Seconds())

	return e.buildReport(ctx, kind)
}

// drainIntake processes intake batches through the worker pool until the
// intake state is empty or the governor trips. Returns the number of
// records moved out of intake.
func (e *Engine) drainIntake(ctx context.Context, kind entity.Kind, ev rules.Evaluator) (int, error) {
	limit := e.cfg.BatchSize
	if e.cfg.DryRun {
		// Nothing moves in a dry run, so batch paging would refetch the
		// same records forever. One unbounded read covers the pass.
		limit = -1
	}

	var moved int
	for {
		if e.governor.Halted() || ctx.Err() != nil {
			break
		}

		batch, err := e.store.GetIntakeBatch(ctx, kind, limit)
		if err != nil {
			return moved, fmt.Errorf("read intake batch: %w", err)
		}
		if len(batch) == 0 {
			break
		}

		progress := e.processBatch(ctx, batch, ev)
		moved += progress

		if e.cfg.DryRun {
			break
		}
		if progress == 0 {
			// Every record in the batch failed on infrastructure and
			// stayed in intake. Retrying the same batch would spin.
			slog.Error("intake batch made no progress, stopping pass",
				"batch_size", len(batch))
			break
		}
	}
	return moved, nil
}

// processBatch fans a batch out over the worker pool and returns how many
// records were moved out of intake.
func (e *Engine) processBatch(ctx context.Context, batch []entity.Record, ev rules.Evaluator) int {
	var (
		wg       sync.WaitGroup
		progress sync.Mutex
		moved    int
	)
	work := make(chan entity.Record)

	for i := 0; i < e.cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for rec := range work {
				if e.governor.Halted() || ctx.Err() != nil {
					continue
				}
				if err := e.evaluateOne(ctx, ev, rec, 0); err != nil {
					e.tally.infraFailures.Add(1)
					slog.Error("entity processing failed", "entity", rec.ID, "error", err)
					continue
				}
				progress.Lock()
				moved++
				progress.Unlock()
			}
		}()
	}

	for _, rec := range batch {
		work <- rec
	}
	close(work)
	wg.Wait()

	return moved
}

// evaluateOne runs one evaluation cycle for a record under its identity
// lock: valid records promote, invalid records quarantine with a new
// error row at prevAttempt+1.
func (e *Engine) evaluateOne(ctx context.Context, ev rules.Evaluator, rec entity.Record, prevAttempt int) error {
	unlock := e.locks.acquire(rec.ID)
	defer unlock()
	return e.evaluateLocked(ctx, ev, rec, prevAttempt)
}

// evaluateLocked is the evaluation cycle body. The caller must hold the
// record's identity lock.
func (e *Engine) evaluateLocked(ctx context.Context, ev rules.Evaluator, rec entity.Record, prevAttempt int) error {
	outcome := ev.Evaluate(rec)
	e.governor.ObserveOutcome(outcome.Valid)

	if outcome.Valid {
		_, err := e.promote(ctx, rec)
		return err
	}
	return e.quarantine(ctx, rec, outcome.Reasons, prevAttempt)
}

// enrichQuarantine runs one waterfall pass over the non-chronic
// quarantine population. Each hit re-enters evaluation inline: the
// enriched record either promotes or quarantines again with an
// incremented attempt.
//
// The pass is sequential so budget consumption is deterministic: records
// draw on the shared ledger in entity-id order.
func (e *Engine) enrichQuarantine(ctx context.Context, kind entity.Kind, ev rules.Evaluator) error {
	entries, err := e.store.GetQuarantineBatch(ctx, kind, -1, true)
	if err != nil {
		return fmt.Errorf("read quarantine batch: %w", err)
	}

	for _, entry := range entries {
		if e.governor.Halted() || ctx.Err() != nil {
			return nil
		}

		result, err := e.waterfall.Run(ctx, entry.Record)
		if err != nil {
			return fmt.Errorf("enrich %s: %w", entry.Record.ID, err)
		}
		e.metrics.EnrichmentOutcome(string(result.Outcome))

		switch result.Outcome {
		case enrich.OutcomeEnriched:
			e.tally.enriched.Add(1)
			if err := e.evaluateOne(ctx, ev, result.Record, entry.Attempt); err != nil {
				e.tally.infraFailures.Add(1)
				slog.Error("post-enrichment evaluation failed",
					"entity", entry.Record.ID, "error", err)
			}

		case enrich.OutcomeBudgetExhausted:
			// Distinct from failure: no error row, no attempt increment.
			e.tally.budgetExhausted.Add(1)

		case enrich.OutcomeNoMatch:
			// All tiers missed. The record stays as-is; its trail is
			// untouched because nothing new was learned about it.
		}
	}
	return nil
}

// buildReport assembles the run report from the tally and current store
// populations.
func (e *Engine) buildReport(ctx context.Context, kind entity.Kind) (*Report, error) {
	report := &Report{
		Kind:   string(kind),
		DryRun: e.cfg.DryRun,
	}
	e.tally.snapshot(report)
	report.NotifyDropped = e.batcher.Dropped()
	e.metrics.NotifyDropped(report.NotifyDropped)

	if e.waterfall != nil {
		report.CostSpent = e.waterfall.Ledger().Spent()
		e.metrics.EnrichmentSpend(report.CostSpent)
	}

	intake, err := e.store.IntakeCount(ctx, kind)
	if err != nil {
		return nil, fmt.Errorf("count intake: %w", err)
	}
	quarantine, err := e.store.QuarantineCount(ctx, kind)
	if err != nil {
		return nil, fmt.Errorf("count quarantine: %w", err)
	}
	report.IntakeRemaining = intake
	report.QuarantineRemaining = quarantine
	e.metrics.QuarantineActive(quarantine)

	switch {
	case e.governor.Halted():
		report.Status = StatusHalted
		report.HaltGuard, report.HaltReason = e.governor.TripReason()
		e.metrics.GovernorTrip(report.HaltGuard)
	case intake == 0 && quarantine == 0:
		report.Status = StatusComplete
	default:
		report.Status = StatusIncomplete
	}

	slog.Info("run finished",
		"status", report.Status,
		"promoted", report.Promoted,
		"quarantined", report.Quarantined,
		"intake_remaining", report.IntakeRemaining,
		"quarantine_remaining", report.QuarantineRemaining,
	)
	return report, nil
}
