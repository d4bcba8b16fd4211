package engine

import (
	"time"

	"github.com/roach88/steward/internal/config"
	"github.com/roach88/steward/internal/enrich"
	"github.com/roach88/steward/internal/entity"
	"github.com/roach88/steward/internal/metrics"
	"github.com/roach88/steward/internal/notify"
	"github.com/roach88/steward/internal/rules"
	"github.com/roach88/steward/internal/store"
)

// Engine coordinates one pipeline: the store, the rule registry, the
// enrichment waterfall, the notification batcher, and the governor.
//
// The store is the single source of truth; the engine holds no record
// state of its own between operations.
type Engine struct {
	store     *store.Store
	registry  *rules.Registry
	cfg       config.Run
	waterfall *enrich.Waterfall
	governor  *Governor
	batcher   *notify.Batcher
	metrics   *metrics.Metrics
	idGen     entity.IDGenerator
	nowFn     func() time.Time
	locks     *keyedLocks
	tally     tally
}

// Option configures an Engine.
type Option func(*Engine)

// WithWaterfall attaches an enrichment waterfall. Without one, the
// enrichment pass is skipped entirely.
func WithWaterfall(w *enrich.Waterfall) Option {
	return func(e *Engine) { e.waterfall = w }
}

// WithGovernor replaces the governor built from the run config.
// Used to share one governor across engines, or to inject a tripped one
// in tests.
func WithGovernor(g *Governor) Option {
	return func(e *Engine) { e.governor = g }
}

// WithSink attaches a notification sink behind the partition batcher.
func WithSink(sink notify.Sink) Option {
	return func(e *Engine) { e.batcher = notify.NewBatcher(sink, e.cfg.NotifyBatchSize) }
}

// WithMetrics attaches Prometheus collectors. Nil metrics are a no-op.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithIDGenerator replaces the error-row id generator.
// Tests use entity.NewFixedIDGenerator for deterministic trails.
func WithIDGenerator(gen entity.IDGenerator) Option {
	return func(e *Engine) { e.idGen = gen }
}

// WithNow replaces the wall clock used to stamp error rows.
func WithNow(now func() time.Time) Option {
	return func(e *Engine) { e.nowFn = now }
}

// New creates an engine over the given store and rule registry.
//
// The config must already be normalized (config.Run.Normalize). Defaults:
// UUIDv7 error-row ids, time.Now stamps, a governor built from the config
// thresholds, and a no-op notification sink.
func New(s *store.Store, registry *rules.Registry, cfg config.Run, opts ...Option) *Engine {
	e := &Engine{
		store:    s,
		registry: registry,
		cfg:      cfg,
		idGen:    entity.UUIDv7Generator{},
		nowFn:    time.Now,
		locks:    newKeyedLocks(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.governor == nil {
		e.governor = NewGovernor(GovernorConfig{
			FailureRateThreshold:   cfg.FailureRateThreshold,
			FailureRateWindow:      cfg.FailureRateWindow,
			RowDeltaMin:            cfg.RowDeltaMin,
			RowDeltaMax:            cfg.RowDeltaMax,
			IdentityDriftThreshold: cfg.IdentityDriftThreshold,
		})
	}
	if e.batcher == nil {
		e.batcher = notify.NewBatcher(nil, cfg.NotifyBatchSize)
	}
	return e
}

// Governor returns the engine's governor.
func (e *Engine) Governor() *Governor {
	return e.governor
}

// partitionKey derives the notification partition for a record from the
// configured partition field. Records without a value share one partition.
func (e *Engine) partitionKey(rec entity.Record) string {
	if e.cfg.PartitionField == "" {
		return "default"
	}
	if v := rec.Field(e.cfg.PartitionField); v != "" {
		return v
	}
	return "default"
}
