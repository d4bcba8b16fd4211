package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/steward/internal/entity"
)

// GetIntakeBatch returns up to limit intake records of the given kind.
// Results are ordered by entity_id so repeated runs visit records in the
// same order. Returns an empty slice (not nil) when intake is drained.
func (s *Store) GetIntakeBatch(ctx context.Context, kind entity.Kind, limit int) ([]entity.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT entity_id, kind, fields
		FROM intake
		WHERE kind = ?
		ORDER BY entity_id ASC
		LIMIT ?
	`, string(kind), limit)
	if err != nil {
		return nil, fmt.Errorf("query intake batch: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// QuarantineEntry is a quarantined record together with its attempt counter
// and chronic flag.
type QuarantineEntry struct {
	Record  entity.Record
	Attempt int
	Chronic bool
}

// GetQuarantineBatch returns up to limit quarantined entries of the given
// kind. When excludeChronic is true, chronic entities are filtered out -
// they are excluded from automatic reprocessing and only reachable through
// explicit replay.
func (s *Store) GetQuarantineBatch(ctx context.Context, kind entity.Kind, limit int, excludeChronic bool) ([]QuarantineEntry, error) {
	query := `
		SELECT entity_id, kind, fields, attempt, chronic
		FROM quarantine
		WHERE kind = ?`
	if excludeChronic {
		query += ` AND chronic = 0`
	}
	query += `
		ORDER BY entity_id ASC
		LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, string(kind), limit)
	if err != nil {
		return nil, fmt.Errorf("query quarantine batch: %w", err)
	}
	defer rows.Close()

	entries := []QuarantineEntry{}
	for rows.Next() {
		var (
			id, kindStr, fieldsJSON string
			attempt, chronic        int
		)
		if err := rows.Scan(&id, &kindStr, &fieldsJSON, &attempt, &chronic); err != nil {
			return nil, fmt.Errorf("scan quarantine entry: %w", err)
		}
		fields, err := unmarshalFields(fieldsJSON)
		if err != nil {
			return nil, err
		}
		entries = append(entries, QuarantineEntry{
			Record:  entity.Record{ID: id, Kind: entity.Kind(kindStr), Fields: fields},
			Attempt: attempt,
			Chronic: chronic != 0,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate quarantine batch: %w", err)
	}

	return entries, nil
}

// GetQuarantine returns a single quarantined entry by entity id.
// Returns ErrNotFound if the entity is not in quarantine.
func (s *Store) GetQuarantine(ctx context.Context, entityID string) (QuarantineEntry, error) {
	var (
		id, kindStr, fieldsJSON string
		attempt, chronic        int
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT entity_id, kind, fields, attempt, chronic
		FROM quarantine
		WHERE entity_id = ?
	`, entityID).Scan(&id, &kindStr, &fieldsJSON, &attempt, &chronic)
	if errors.Is(err, sql.ErrNoRows) {
		return QuarantineEntry{}, fmt.Errorf("quarantine entity %s: %w", entityID, ErrNotFound)
	}
	if err != nil {
		return QuarantineEntry{}, fmt.Errorf("query quarantine: %w", err)
	}

	fields, err := unmarshalFields(fieldsJSON)
	if err != nil {
		return QuarantineEntry{}, err
	}

	return QuarantineEntry{
		Record:  entity.Record{ID: id, Kind: entity.Kind(kindStr), Fields: fields},
		Attempt: attempt,
		Chronic: chronic != 0,
	}, nil
}

// MasterExists reports whether an identity is present in master.
// The promotion gate uses this re-check before any retry, relying on
// read-after-write consistency for the key.
func (s *Store) MasterExists(ctx context.Context, entityID string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM master WHERE entity_id = ?`, entityID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check master: %w", err)
	}
	return count > 0, nil
}

// GetMaster returns a master record by entity id, or ErrNotFound.
func (s *Store) GetMaster(ctx context.Context, entityID string) (entity.Record, error) {
	var id, kindStr, fieldsJSON string
	err := s.db.QueryRowContext(ctx, `
		SELECT entity_id, kind, fields FROM master WHERE entity_id = ?
	`, entityID).Scan(&id, &kindStr, &fieldsJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return entity.Record{}, fmt.Errorf("master entity %s: %w", entityID, ErrNotFound)
	}
	if err != nil {
		return entity.Record{}, fmt.Errorf("query master: %w", err)
	}

	fields, err := unmarshalFields(fieldsJSON)
	if err != nil {
		return entity.Record{}, err
	}
	return entity.Record{ID: id, Kind: entity.Kind(kindStr), Fields: fields}, nil
}

// ErrorRows returns the full error trail for an entity, ordered by
// attempt_number ascending. The trail is totally ordered per entity;
// no ordering guarantee exists across entities.
func (s *Store) ErrorRows(ctx context.Context, entityID string) ([]entity.ErrorRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT error_id, entity_id, reasons, attempt_number, created_at, status
		FROM error_rows
		WHERE entity_id = ?
		ORDER BY attempt_number ASC
	`, entityID)
	if err != nil {
		return nil, fmt.Errorf("query error rows: %w", err)
	}
	defer rows.Close()

	trail := []entity.ErrorRow{}
	for rows.Next() {
		row, err := scanErrorRow(rows)
		if err != nil {
			return nil, err
		}
		trail = append(trail, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate error rows: %w", err)
	}

	return trail, nil
}

// LatestActionableErrorRow returns the most recent open or chronic error row
// for an entity. Replay marks exactly this row as replayed.
// Returns ErrNotFound if the entity has no open or chronic rows.
func (s *Store) LatestActionableErrorRow(ctx context.Context, entityID string) (entity.ErrorRow, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT error_id, entity_id, reasons, attempt_number, created_at, status
		FROM error_rows
		WHERE entity_id = ? AND status IN ('open', 'chronic')
		ORDER BY attempt_number DESC
		LIMIT 1
	`, entityID)

	er, err := scanErrorRowFrom(row)
	if errors.Is(err, sql.ErrNoRows) {
		return entity.ErrorRow{}, fmt.Errorf("actionable error row for %s: %w", entityID, ErrNotFound)
	}
	if err != nil {
		return entity.ErrorRow{}, err
	}
	return er, nil
}

// StateCounts summarizes record and error-row populations.
type StateCounts struct {
	Intake     int `json:"intake"`
	Master     int `json:"master"`
	Quarantine int `json:"quarantine"`
	Chronic    int `json:"chronic"`
	OpenErrors int `json:"open_errors"`
	Replayed   int `json:"replayed"`
}

// Counts returns current state populations across all kinds.
func (s *Store) Counts(ctx context.Context) (StateCounts, error) {
	var c StateCounts
	queries := []struct {
		query string
		dest  *int
	}{
		{`SELECT COUNT(*) FROM intake`, &c.Intake},
		{`SELECT COUNT(*) FROM master`, &c.Master},
		{`SELECT COUNT(*) FROM quarantine`, &c.Quarantine},
		{`SELECT COUNT(*) FROM quarantine WHERE chronic = 1`, &c.Chronic},
		{`SELECT COUNT(*) FROM error_rows WHERE status IN ('open', 'chronic')`, &c.OpenErrors},
		{`SELECT COUNT(*) FROM error_rows WHERE status = 'replayed'`, &c.Replayed},
	}
	for _, q := range queries {
		if err := s.db.QueryRowContext(ctx, q.query).Scan(q.dest); err != nil {
			return StateCounts{}, fmt.Errorf("count: %w", err)
		}
	}
	return c, nil
}

// IntakeCount returns the number of intake records of a kind.
func (s *Store) IntakeCount(ctx context.Context, kind entity.Kind) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM intake WHERE kind = ?`, string(kind)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count intake: %w", err)
	}
	return count, nil
}

// QuarantineCount returns the number of quarantined records of a kind.
func (s *Store) QuarantineCount(ctx context.Context, kind entity.Kind) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM quarantine WHERE kind = ?`, string(kind)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count quarantine: %w", err)
	}
	return count, nil
}

// scanRecords reads entity records from intake/master shaped rows.
func scanRecords(rows *sql.Rows) ([]entity.Record, error) {
	records := []entity.Record{}
	for rows.Next() {
		var id, kindStr, fieldsJSON string
		if err := rows.Scan(&id, &kindStr, &fieldsJSON); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		fields, err := unmarshalFields(fieldsJSON)
		if err != nil {
			return nil, err
		}
		records = append(records, entity.Record{ID: id, Kind: entity.Kind(kindStr), Fields: fields})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return records, nil
}

// rowScanner abstracts *sql.Row and *sql.Rows for error-row scanning.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanErrorRow(rows *sql.Rows) (entity.ErrorRow, error) {
	return scanErrorRowFrom(rows)
}

func scanErrorRowFrom(sc rowScanner) (entity.ErrorRow, error) {
	var (
		id, entityID, reasonsJSON, createdAt, status string
		attempt                                      int
	)
	if err := sc.Scan(&id, &entityID, &reasonsJSON, &attempt, &createdAt, &status); err != nil {
		return entity.ErrorRow{}, err
	}

	reasons, err := unmarshalReasons(reasonsJSON)
	if err != nil {
		return entity.ErrorRow{}, err
	}

	ts, err := time.Parse(timeLayout, createdAt)
	if err != nil {
		return entity.ErrorRow{}, fmt.Errorf("parse created_at: %w", err)
	}

	return entity.ErrorRow{
		ID:        id,
		EntityID:  entityID,
		Reasons:   reasons,
		Attempt:   attempt,
		CreatedAt: ts,
		Status:    entity.ErrorStatus(status),
	}, nil
}
