package store

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/steward/internal/entity"
)

// timeLayout is the stored form of created_at timestamps.
const timeLayout = time.RFC3339Nano

// InsertIntake inserts a record into intake.
// Uses ON CONFLICT(entity_id) DO NOTHING for idempotency - resubmitting the
// same identifier is silently ignored (identifiers are never reused).
func (s *Store) InsertIntake(ctx context.Context, rec entity.Record) error {
	fieldsJSON, err := marshalFields(rec.Fields)
	if err != nil {
		return fmt.Errorf("insert intake: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO intake (entity_id, kind, fields)
		VALUES (?, ?, ?)
		ON CONFLICT(entity_id) DO NOTHING
	`, rec.ID, string(rec.Kind), fieldsJSON)
	if err != nil {
		return fmt.Errorf("insert intake: %w", err)
	}

	return nil
}

// UpsertMaster upserts a record into master, keyed by the stable business
// identifier. A second upsert for the same identity replaces the field set
// (same or superset data) and never produces a duplicate row.
func (s *Store) UpsertMaster(ctx context.Context, rec entity.Record) error {
	fieldsJSON, err := marshalFields(rec.Fields)
	if err != nil {
		return fmt.Errorf("upsert master: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO master (entity_id, kind, fields)
		VALUES (?, ?, ?)
		ON CONFLICT(entity_id) DO UPDATE SET fields = excluded.fields
	`, rec.ID, string(rec.Kind), fieldsJSON)
	if err != nil {
		return fmt.Errorf("upsert master: %w", err)
	}

	return nil
}

// DeleteIntake removes a record from intake. Deleting a missing row is a no-op.
func (s *Store) DeleteIntake(ctx context.Context, entityID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM intake WHERE entity_id = ?`, entityID); err != nil {
		return fmt.Errorf("delete intake: %w", err)
	}
	return nil
}

// DeleteQuarantine removes a record from quarantine. Missing rows are a no-op.
func (s *Store) DeleteQuarantine(ctx context.Context, entityID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM quarantine WHERE entity_id = ?`, entityID); err != nil {
		return fmt.Errorf("delete quarantine: %w", err)
	}
	return nil
}

// PromoteAtomic upserts the record into master and deletes the source row
// (intake or quarantine, wherever it lives) in a single transaction.
//
// If any write fails, none persist. This is the crash-safe unit the
// promotion gate relies on: a record can never exist in master and in its
// source state at the same time after a successful call.
func (s *Store) PromoteAtomic(ctx context.Context, rec entity.Record) error {
	fieldsJSON, err := marshalFields(rec.Fields)
	if err != nil {
		return fmt.Errorf("promote: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("promote: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	_, err = tx.ExecContext(ctx, `
		INSERT INTO master (entity_id, kind, fields)
		VALUES (?, ?, ?)
		ON CONFLICT(entity_id) DO UPDATE SET fields = excluded.fields
	`, rec.ID, string(rec.Kind), fieldsJSON)
	if err != nil {
		return fmt.Errorf("promote: upsert master: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM intake WHERE entity_id = ?`, rec.ID); err != nil {
		return fmt.Errorf("promote: delete intake: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM quarantine WHERE entity_id = ?`, rec.ID); err != nil {
		return fmt.Errorf("promote: delete quarantine: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("promote: commit: %w", err)
	}

	return nil
}

// UpsertQuarantine writes the record into quarantine with the given attempt
// counter and chronic flag, and deletes any intake row for the same identity,
// in a single transaction.
//
// The attempt counter is monotonically non-decreasing; callers pass the new
// value after incrementing exactly once per failed cycle.
func (s *Store) UpsertQuarantine(ctx context.Context, rec entity.Record, attempt int, chronic bool) error {
	fieldsJSON, err := marshalFields(rec.Fields)
	if err != nil {
		return fmt.Errorf("upsert quarantine: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("upsert quarantine: begin tx: %w", err)
	}
	defer tx.Rollback()

	chronicInt := 0
	if chronic {
		chronicInt = 1
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO quarantine (entity_id, kind, fields, attempt, chronic)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(entity_id) DO UPDATE SET
			fields  = excluded.fields,
			attempt = MAX(attempt, excluded.attempt),
			chronic = MAX(chronic, excluded.chronic)
	`, rec.ID, string(rec.Kind), fieldsJSON, attempt, chronicInt)
	if err != nil {
		return fmt.Errorf("upsert quarantine: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM intake WHERE entity_id = ?`, rec.ID); err != nil {
		return fmt.Errorf("upsert quarantine: delete intake: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("upsert quarantine: commit: %w", err)
	}

	return nil
}

// UpdateQuarantineFields replaces the stored field set for a quarantined
// record in place, preserving attempt and chronic. Used by replay to apply
// corrections under the original identity.
//
// Returns ErrNotFound if the entity is not in quarantine.
func (s *Store) UpdateQuarantineFields(ctx context.Context, entityID string, fields map[string]string) error {
	fieldsJSON, err := marshalFields(fields)
	if err != nil {
		return fmt.Errorf("update quarantine fields: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE quarantine SET fields = ? WHERE entity_id = ?
	`, fieldsJSON, entityID)
	if err != nil {
		return fmt.Errorf("update quarantine fields: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update quarantine fields: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("update quarantine fields: entity %s: %w", entityID, ErrNotFound)
	}

	return nil
}

// AppendErrorRow appends one immutable row to the entity's error trail.
//
// There is deliberately no corresponding update method: reasons,
// attempt_number, and created_at can never change after this insert. The
// UNIQUE(entity_id, attempt_number) index rejects a second append for the
// same attempt.
func (s *Store) AppendErrorRow(ctx context.Context, row entity.ErrorRow) error {
	reasonsJSON, err := marshalReasons(row.Reasons)
	if err != nil {
		return fmt.Errorf("append error row: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO error_rows (error_id, entity_id, reasons, attempt_number, created_at, status)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		row.ID,
		row.EntityID,
		reasonsJSON,
		row.Attempt,
		row.CreatedAt.UTC().Format(timeLayout),
		string(row.Status),
	)
	if err != nil {
		return fmt.Errorf("append error row: %w", err)
	}

	return nil
}

// MarkErrorRowStatus transitions an error row's status.
//
// Legal transitions are open → chronic and open|chronic → replayed; the
// UPDATE's WHERE clause encodes them, so an illegal request touches zero
// rows and returns ErrBadStatusTransition. A missing row returns ErrNotFound.
func (s *Store) MarkErrorRowStatus(ctx context.Context, errorID string, status entity.ErrorStatus) error {
	var condition string
	switch status {
	case entity.StatusChronic:
		condition = `status = 'open'`
	case entity.StatusReplayed:
		condition = `status IN ('open', 'chronic')`
	default:
		return fmt.Errorf("mark error row %s -> %s: %w", errorID, status, ErrBadStatusTransition)
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE error_rows SET status = ? WHERE error_id = ? AND `+condition,
		string(status), errorID,
	)
	if err != nil {
		return fmt.Errorf("mark error row status: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark error row status: rows affected: %w", err)
	}
	if n > 0 {
		return nil
	}

	// Zero rows updated: distinguish missing row from illegal transition.
	var exists int
	err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM error_rows WHERE error_id = ?`, errorID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("mark error row status: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("mark error row %s: %w", errorID, ErrNotFound)
	}
	return fmt.Errorf("mark error row %s -> %s: %w", errorID, status, ErrBadStatusTransition)
}
