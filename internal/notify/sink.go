package notify

import "context"

// Row is one quarantine notification entry.
type Row struct {
	ErrorID  string   `json:"error_id"`
	EntityID string   `json:"entity_id"`
	Reasons  []string `json:"reasons"`
	Attempt  int      `json:"attempt_number"`
}

// Sink receives batched quarantine notifications.
//
// PushBatch reports per-row success/fail counts; an error means the batch
// as a whole could not be delivered. Either way the caller treats delivery
// as best-effort.
type Sink interface {
	PushBatch(ctx context.Context, partitionKey string, rows []Row) (succeeded, failed int, err error)
}

// NopSink discards all notifications. Used when no sink is configured.
type NopSink struct{}

func (NopSink) PushBatch(_ context.Context, _ string, rows []Row) (int, int, error) {
	return len(rows), 0, nil
}

// MemorySink collects pushed batches in memory. Used in tests.
type MemorySink struct {
	Batches map[string][][]Row
}

// NewMemorySink creates an empty in-memory sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{Batches: make(map[string][][]Row)}
}

func (m *MemorySink) PushBatch(_ context.Context, partitionKey string, rows []Row) (int, int, error) {
	m.Batches[partitionKey] = append(m.Batches[partitionKey], rows)
	return len(rows), 0, nil
}
