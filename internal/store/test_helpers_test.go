package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/steward/internal/entity"
)

// createTestStore creates a file-backed store in a temp dir.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestRecord creates a company record with the given id and fields.
func createTestRecord(id string, fields map[string]string) entity.Record {
	if fields == nil {
		fields = map[string]string{"name": "Acme " + id}
	}
	return entity.Record{ID: id, Kind: entity.KindCompany, Fields: fields}
}

// createTestErrorRow creates an error row with minimal required fields.
func createTestErrorRow(id, entityID string, attempt int) entity.ErrorRow {
	return entity.ErrorRow{
		ID:        id,
		EntityID:  entityID,
		Reasons:   []string{"missing required field: industry"},
		Attempt:   attempt,
		CreatedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Status:    entity.StatusOpen,
	}
}
