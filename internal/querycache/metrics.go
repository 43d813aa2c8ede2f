package querycache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Fetch outcomes recorded by Metrics.
const (
	outcomeSuccess   = "success"
	outcomeFailure   = "failure"
	outcomeDiscarded = "discarded"
)

// Patch actions recorded by Metrics.
const (
	patchApplied   = "applied"
	patchUndone    = "undone"
	patchCommitted = "committed"
)

// Metrics holds the prometheus collectors of a Store. All series are
// labelled by query operation (the key without its parameters).
type Metrics struct {
	fetches       *prometheus.CounterVec
	hits          *prometheus.CounterVec
	dedupJoins    *prometheus.CounterVec
	invalidations *prometheus.CounterVec
	patches       *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them on reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		fetches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "todoboard",
			Subsystem: "querycache",
			Name:      "fetches_total",
			Help:      "Completed fetches by operation and outcome.",
		}, []string{"op", "outcome"}),
		hits: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "todoboard",
			Subsystem: "querycache",
			Name:      "hits_total",
			Help:      "Reads served from a fresh cached result.",
		}, []string{"op"}),
		dedupJoins: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "todoboard",
			Subsystem: "querycache",
			Name:      "dedup_joins_total",
			Help:      "Reads that joined an in-flight fetch instead of starting one.",
		}, []string{"op"}),
		invalidations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "todoboard",
			Subsystem: "querycache",
			Name:      "invalidations_total",
			Help:      "Query results marked stale by tag invalidation.",
		}, []string{"op"}),
		patches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "todoboard",
			Subsystem: "querycache",
			Name:      "patches_total",
			Help:      "Optimistic patch layers by action.",
		}, []string{"op", "action"}),
	}
}

func (m *Metrics) fetched(k Key, outcome string) {
	m.fetches.WithLabelValues(k.Op(), outcome).Inc()
}

func (m *Metrics) hit(k Key) {
	m.hits.WithLabelValues(k.Op()).Inc()
}

func (m *Metrics) joined(k Key) {
	m.dedupJoins.WithLabelValues(k.Op()).Inc()
}

func (m *Metrics) invalidated(k Key) {
	m.invalidations.WithLabelValues(k.Op()).Inc()
}

func (m *Metrics) patched(k Key, action string) {
	m.patches.WithLabelValues(k.Op(), action).Inc()
}
