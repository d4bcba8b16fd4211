package notify

import (
	"context"
	"log/slog"
	"sort"
	"sync"
)

// DefaultBatchSize is the flush threshold per partition when none is configured.
const DefaultBatchSize = 25

// Batcher groups notification rows by partition key and pushes them to the
// sink in batches.
//
// A partition is flushed when it reaches the batch size; Flush drains all
// partitions at the end of a run. Push failures are logged and counted,
// never returned to the quarantine path.
//
// Thread-safe: workers offer rows concurrently.
type Batcher struct {
	sink Sink
	size int

	mu      sync.Mutex
	pending map[string][]Row
	dropped int
}

// NewBatcher creates a batcher over the given sink.
func NewBatcher(sink Sink, batchSize int) *Batcher {
	if sink == nil {
		sink = NopSink{}
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Batcher{
		sink:    sink,
		size:    batchSize,
		pending: make(map[string][]Row),
	}
}

// Offer queues a row under its partition key, flushing the partition if it
// reached the batch size. Never returns an error: delivery is best-effort.
func (b *Batcher) Offer(ctx context.Context, partitionKey string, row Row) {
	b.mu.Lock()
	b.pending[partitionKey] = append(b.pending[partitionKey], row)
	var flush []Row
	if len(b.pending[partitionKey]) >= b.size {
		flush = b.pending[partitionKey]
		b.pending[partitionKey] = nil
	}
	b.mu.Unlock()

	if flush != nil {
		b.push(ctx, partitionKey, flush)
	}
}

// Flush pushes all pending partitions. Call once at the end of a run.
func (b *Batcher) Flush(ctx context.Context) {
	b.mu.Lock()
	pending := b.pending
	b.pending = make(map[string][]Row)
	b.mu.Unlock()

	// Deterministic partition order for logs and tests.
	keys := make([]string, 0, len(pending))
	for k := range pending {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if len(pending[key]) == 0 {
			continue
		}
		b.push(ctx, key, pending[key])
	}
}

// Dropped returns the number of rows that failed to deliver.
func (b *Batcher) Dropped() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}

func (b *Batcher) push(ctx context.Context, partitionKey string, rows []Row) {
	succeeded, failed, err := b.sink.PushBatch(ctx, partitionKey, rows)
	if err != nil {
		b.mu.Lock()
		b.dropped += len(rows)
		b.mu.Unlock()
		slog.Warn("notification batch failed",
			"partition", partitionKey, "rows", len(rows), "error", err)
		return
	}
	if failed > 0 {
		b.mu.Lock()
		b.dropped += failed
		b.mu.Unlock()
		slog.Warn("notification batch partially delivered",
			"partition", partitionKey, "succeeded", succeeded, "failed", failed)
	}
}
