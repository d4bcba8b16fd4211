package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/steward/internal/entity"
	"github.com/roach88/steward/internal/store"
)

// ReplayResult summarizes one replay cycle.
type ReplayResult struct {
	EntityID string   `json:"entity_id"`
	Promoted bool     `json:"promoted"`
	Reasons  []string `json:"reasons,omitempty"`
	Attempt  int      `json:"attempt,omitempty"`
	Chronic  bool     `json:"chronic,omitempty"`
}

// Replay applies operator-supplied corrections to a quarantined record
// and runs exactly one evaluation cycle.
//
// Preconditions: the entity must be in quarantine (open or chronic — a
// chronic tag excludes automatic passes, not explicit correction), and
// the corrected fields must not change identity-bearing fields. An
// identity change is rejected with ErrIdentityChange and counted toward
// the governor's drift guard; the record is left untouched.
//
// On acceptance the corrected fields are applied in place, the most
// recent open or chronic error row is marked replayed, and the record
// re-enters evaluation: it either promotes or fails again with a fresh
// error row at an incremented attempt. Either way the correction is
// consumed exactly once — a second Replay needs a new correction.
func (e *Engine) Replay(ctx context.Context, entityID string, corrected map[string]string) (*ReplayResult, error) {
	if err := e.governor.HaltErr(); err != nil {
		return nil, err
	}

	unlock := e.locks.acquire(entityID)
	defer unlock()

	entry, err := e.store.GetQuarantine(ctx, entityID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("replay %s: %w", entityID, ErrNotQuarantined)
		}
		return nil, fmt.Errorf("replay %s: %w", entityID, err)
	}

	changed := entity.IdentityChanged(entry.Record, corrected, e.cfg.IdentityFields)
	e.governor.ObserveReplayIdentity(changed)
	if changed {
		slog.Warn("replay rejected: identity change", "entity", entityID)
		return nil, fmt.Errorf("replay %s: %w", entityID, ErrIdentityChange)
	}

	rec := entry.Record.Clone()
	for k, v := range corrected {
		rec.Fields[k] = v
	}

	if !e.cfg.DryRun {
		if err := e.store.UpdateQuarantineFields(ctx, entityID, rec.Fields); err != nil {
			return nil, fmt.Errorf("apply correction to %s: %w", entityID, err)
		}
		if err := e.markTrailReplayed(ctx, entityID); err != nil {
			return nil, err
		}
	}

	e.tally.replayed.Add(1)
	e.metrics.Replayed()

	ev, err := e.registry.For(rec.Kind)
	if err != nil {
		return nil, fmt.Errorf("select evaluator: %w", err)
	}
	outcome := ev.Evaluate(rec)
	e.governor.ObserveOutcome(outcome.Valid)

	result := &ReplayResult{EntityID: entityID}
	if outcome.Valid {
		if _, err := e.promote(ctx, rec); err != nil {
			return nil, err
		}
		result.Promoted = true
		slog.Info("replay promoted", "entity", entityID)
		return result, nil
	}

	if err := e.quarantine(ctx, rec, outcome.Reasons, entry.Attempt); err != nil {
		return nil, err
	}
	e.batcher.Flush(ctx)

	result.Reasons = outcome.Reasons
	result.Attempt = entry.Attempt + 1
	result.Chronic = result.Attempt >= e.cfg.ChronicThreshold
	slog.Info("replay failed evaluation",
		"entity", entityID,
		"attempt", result.Attempt,
		"reasons", outcome.Reasons,
	)
	return result, nil
}

// markTrailReplayed marks the entity's most recent actionable error row
// as replayed. An entity in quarantine without an actionable row is
// tolerated: the trail may already be fully replayed after repeated
// corrections within one quarantine stay.
func (e *Engine) markTrailReplayed(ctx context.Context, entityID string) error {
	latest, err := e.store.LatestActionableErrorRow(ctx, entityID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("read error trail for %s: %w", entityID, err)
	}
	if err := e.store.MarkErrorRowStatus(ctx, latest.ID, entity.StatusReplayed); err != nil {
		return fmt.Errorf("mark error row replayed for %s: %w", entityID, err)
	}
	return nil
}
