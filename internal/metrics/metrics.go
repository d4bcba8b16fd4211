// Package metrics exposes Prometheus collectors for the pipeline. A nil
// *Metrics is valid and records nothing, so callers never branch on
// whether metrics are enabled.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the pipeline collectors, registered on a caller-supplied
// registry.
type Metrics struct {
	promoted         prometheus.Counter
	alreadyPromoted  prometheus.Counter
	quarantined      prometheus.Counter
	chronic          prometheus.Counter
	replayed         prometheus.Counter
	enrichOutcomes   *prometheus.CounterVec
	enrichSpend      prometheus.Counter
	notifyDropped    prometheus.Counter
	governorTrips    *prometheus.CounterVec
	cycleDuration    prometheus.Histogram
	quarantineActive prometheus.Gauge
}

// New registers the pipeline collectors on reg and returns them.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		promoted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "steward",
			Name:      "promoted_total",
			Help:      "Entities promoted to the master store.",
		}),
		alreadyPromoted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "steward",
			Name:      "already_promoted_total",
			Help:      "Promotions skipped because the entity was already in master.",
		}),
		quarantined: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "steward",
			Name:      "quarantined_total",
			Help:      "Entities routed to quarantine.",
		}),
		chronic: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "steward",
			Name:      "chronic_total",
			Help:      "Entities tagged chronic after repeated failures.",
		}),
		replayed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "steward",
			Name:      "replayed_total",
			Help:      "Corrected entities replayed through evaluation.",
		}),
		enrichOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "steward",
			Name:      "enrichment_outcomes_total",
			Help:      "Enrichment waterfall passes by outcome.",
		}, []string{"outcome"}),
		enrichSpend: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "steward",
			Name:      "enrichment_spend_units",
			Help:      "Cumulative enrichment cost charged against the budget.",
		}),
		notifyDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "steward",
			Name:      "notify_dropped_total",
			Help:      "Notification rows dropped after sink failures.",
		}),
		governorTrips: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "steward",
			Name:      "governor_trips_total",
			Help:      "Kill-switch activations by guard.",
		}, []string{"guard"}),
		cycleDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "steward",
			Name:      "cycle_duration_seconds",
			Help:      "Duration of one evaluation cycle.",
			Buckets:   prometheus.DefBuckets,
		}),
		quarantineActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "steward",
			Name:      "quarantine_active",
			Help:      "Entities currently in quarantine.",
		}),
	}
}

func (m *Metrics) Promoted() {
	if m != nil {
		m.promoted.Inc()
	}
}

func (m *Metrics) AlreadyPromoted() {
	if m != nil {
		m.alreadyPromoted.Inc()
	}
}

func (m *Metrics) Quarantined() {
	if m != nil {
		m.quarantined.Inc()
	}
}

func (m *Metrics) Chronic() {
	if m != nil {
		m.chronic.Inc()
	}
}

func (m *Metrics) Replayed() {
	if m != nil {
		m.replayed.Inc()
	}
}

func (m *Metrics) EnrichmentOutcome(outcome string) {
	if m != nil {
		m.enrichOutcomes.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) EnrichmentSpend(cost float64) {
	if m != nil {
		m.enrichSpend.Add(cost)
	}
}

func (m *Metrics) NotifyDropped(n int) {
	if m != nil {
		m.notifyDropped.Add(float64(n))
	}
}

func (m *Metrics) GovernorTrip(guard string) {
	if m != nil {
		m.governorTrips.WithLabelValues(guard).Inc()
	}
}

func (m *Metrics) CycleDuration(seconds float64) {
	if m != nil {
		m.cycleDuration.Observe(seconds)
	}
}

func (m *Metrics) QuarantineActive(n int) {
	if m != nil {
		m.quarantineActive.Set(float64(n))
	}
}
