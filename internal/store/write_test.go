package store

import (
	"context"
	"errors"
	"testing"

	"github.com/roach88/steward/internal/entity"
)

func TestInsertIntake_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	rec := createTestRecord("ent-1", nil)
	if err := s.InsertIntake(ctx, rec); err != nil {
		t.Fatalf("InsertIntake() failed: %v", err)
	}
	// Resubmitting the same identifier is a silent no-op.
	if err := s.InsertIntake(ctx, rec); err != nil {
		t.Fatalf("second InsertIntake() failed: %v", err)
	}

	count, err := s.IntakeCount(ctx, entity.KindCompany)
	if err != nil {
		t.Fatalf("IntakeCount() failed: %v", err)
	}
	if count != 1 {
		t.Errorf("intake count = %d, want 1", count)
	}
}

func TestPromoteAtomic_MovesIntakeToMaster(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	rec := createTestRecord("ent-1", map[string]string{"name": "Acme", "industry": "robotics"})
	if err := s.InsertIntake(ctx, rec); err != nil {
		t.Fatalf("InsertIntake() failed: %v", err)
	}

	if err := s.PromoteAtomic(ctx, rec); err != nil {
		t.Fatalf("PromoteAtomic() failed: %v", err)
	}

	counts, err := s.Counts(ctx)
	if err != nil {
		t.Fatalf("Counts() failed: %v", err)
	}
	if counts.Intake != 0 {
		t.Errorf("intake count = %d, want 0", counts.Intake)
	}
	if counts.Master != 1 {
		t.Errorf("master count = %d, want 1", counts.Master)
	}

	got, err := s.GetMaster(ctx, "ent-1")
	if err != nil {
		t.Fatalf("GetMaster() failed: %v", err)
	}
	if got.Fields["industry"] != "robotics" {
		t.Errorf("master industry = %q, want robotics", got.Fields["industry"])
	}
}

func TestPromoteAtomic_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	rec := createTestRecord("ent-1", nil)
	if err := s.InsertIntake(ctx, rec); err != nil {
		t.Fatalf("InsertIntake() failed: %v", err)
	}

	// Promote twice: one master row, no duplicate-key error.
	if err := s.PromoteAtomic(ctx, rec); err != nil {
		t.Fatalf("first PromoteAtomic() failed: %v", err)
	}
	if err := s.PromoteAtomic(ctx, rec); err != nil {
		t.Fatalf("second PromoteAtomic() failed: %v", err)
	}

	counts, _ := s.Counts(ctx)
	if counts.Master != 1 {
		t.Errorf("master count = %d, want 1", counts.Master)
	}
}

func TestPromoteAtomic_FromQuarantine(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	rec := createTestRecord("ent-1", nil)
	if err := s.UpsertQuarantine(ctx, rec, 1, false); err != nil {
		t.Fatalf("UpsertQuarantine() failed: %v", err)
	}

	if err := s.PromoteAtomic(ctx, rec); err != nil {
		t.Fatalf("PromoteAtomic() failed: %v", err)
	}

	counts, _ := s.Counts(ctx)
	if counts.Quarantine != 0 {
		t.Errorf("quarantine count = %d, want 0", counts.Quarantine)
	}
	if counts.Master != 1 {
		t.Errorf("master count = %d, want 1", counts.Master)
	}
}

func TestUpsertQuarantine_RemovesIntake(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	rec := createTestRecord("ent-1", nil)
	if err := s.InsertIntake(ctx, rec); err != nil {
		t.Fatalf("InsertIntake() failed: %v", err)
	}

	if err := s.UpsertQuarantine(ctx, rec, 1, false); err != nil {
		t.Fatalf("UpsertQuarantine() failed: %v", err)
	}

	counts, _ := s.Counts(ctx)
	if counts.Intake != 0 {
		t.Errorf("intake count = %d, want 0", counts.Intake)
	}
	if counts.Quarantine != 1 {
		t.Errorf("quarantine count = %d, want 1", counts.Quarantine)
	}
}

func TestUpsertQuarantine_AttemptMonotonic(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	rec := createTestRecord("ent-1", nil)
	if err := s.UpsertQuarantine(ctx, rec, 2, false); err != nil {
		t.Fatalf("UpsertQuarantine() failed: %v", err)
	}
	// A stale writer with a lower attempt cannot roll the counter back.
	if err := s.UpsertQuarantine(ctx, rec, 1, false); err != nil {
		t.Fatalf("UpsertQuarantine() failed: %v", err)
	}

	entry, err := s.GetQuarantine(ctx, "ent-1")
	if err != nil {
		t.Fatalf("GetQuarantine() failed: %v", err)
	}
	if entry.Attempt != 2 {
		t.Errorf("attempt = %d, want 2 (monotonic)", entry.Attempt)
	}
}

func TestAppendErrorRow_DuplicateAttemptRejected(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	if err := s.AppendErrorRow(ctx, createTestErrorRow("err-1", "ent-1", 1)); err != nil {
		t.Fatalf("AppendErrorRow() failed: %v", err)
	}

	// Same (entity, attempt) again: the unique index must reject it.
	err := s.AppendErrorRow(ctx, createTestErrorRow("err-2", "ent-1", 1))
	if err == nil {
		t.Fatal("second append for same attempt succeeded, want unique violation")
	}
}

func TestAppendErrorRow_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	row := createTestErrorRow("err-1", "ent-1", 1)
	row.Reasons = []string{"missing required field: industry", "empty field: country"}
	if err := s.AppendErrorRow(ctx, row); err != nil {
		t.Fatalf("AppendErrorRow() failed: %v", err)
	}

	trail, err := s.ErrorRows(ctx, "ent-1")
	if err != nil {
		t.Fatalf("ErrorRows() failed: %v", err)
	}
	if len(trail) != 1 {
		t.Fatalf("trail length = %d, want 1", len(trail))
	}
	got := trail[0]
	if got.ID != "err-1" || got.Attempt != 1 || got.Status != entity.StatusOpen {
		t.Errorf("row = %+v", got)
	}
	if len(got.Reasons) != 2 || got.Reasons[0] != "missing required field: industry" {
		t.Errorf("reasons = %v, order not preserved", got.Reasons)
	}
	if !got.CreatedAt.Equal(row.CreatedAt) {
		t.Errorf("created_at = %v, want %v", got.CreatedAt, row.CreatedAt)
	}
}

func TestMarkErrorRowStatus_Transitions(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	if err := s.AppendErrorRow(ctx, createTestErrorRow("err-1", "ent-1", 1)); err != nil {
		t.Fatalf("AppendErrorRow() failed: %v", err)
	}

	// open -> chronic is legal.
	if err := s.MarkErrorRowStatus(ctx, "err-1", entity.StatusChronic); err != nil {
		t.Fatalf("open -> chronic failed: %v", err)
	}
	// chronic -> replayed is legal.
	if err := s.MarkErrorRowStatus(ctx, "err-1", entity.StatusReplayed); err != nil {
		t.Fatalf("chronic -> replayed failed: %v", err)
	}
	// replayed is terminal.
	err := s.MarkErrorRowStatus(ctx, "err-1", entity.StatusChronic)
	if !errors.Is(err, ErrBadStatusTransition) {
		t.Errorf("replayed -> chronic error = %v, want ErrBadStatusTransition", err)
	}
}

func TestMarkErrorRowStatus_OpenNotAllowed(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	if err := s.AppendErrorRow(ctx, createTestErrorRow("err-1", "ent-1", 1)); err != nil {
		t.Fatalf("AppendErrorRow() failed: %v", err)
	}

	err := s.MarkErrorRowStatus(ctx, "err-1", entity.StatusOpen)
	if !errors.Is(err, ErrBadStatusTransition) {
		t.Errorf("-> open error = %v, want ErrBadStatusTransition", err)
	}
}

func TestMarkErrorRowStatus_NotFound(t *testing.T) {
	s := createTestStore(t)

	err := s.MarkErrorRowStatus(context.Background(), "missing", entity.StatusReplayed)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestMarkErrorRowStatus_DoesNotTouchImmutableColumns(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	row := createTestErrorRow("err-1", "ent-1", 1)
	if err := s.AppendErrorRow(ctx, row); err != nil {
		t.Fatalf("AppendErrorRow() failed: %v", err)
	}
	if err := s.MarkErrorRowStatus(ctx, "err-1", entity.StatusReplayed); err != nil {
		t.Fatalf("MarkErrorRowStatus() failed: %v", err)
	}

	trail, _ := s.ErrorRows(ctx, "ent-1")
	got := trail[0]
	if got.Status != entity.StatusReplayed {
		t.Errorf("status = %s, want replayed", got.Status)
	}
	if got.Attempt != row.Attempt || !got.CreatedAt.Equal(row.CreatedAt) || len(got.Reasons) != len(row.Reasons) {
		t.Errorf("immutable columns changed: %+v", got)
	}
}

func TestUpdateQuarantineFields_Missing(t *testing.T) {
	s := createTestStore(t)

	err := s.UpdateQuarantineFields(context.Background(), "missing", map[string]string{"name": "x"})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}
