package querycache

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "prdesk_client"

// Metrics counts cache activity on a private registry
type Metrics struct {
	registry  *prometheus.Registry
	fetches   *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	discarded *prometheus.CounterVec
	mutations *prometheus.CounterVec
	rollbacks *prometheus.CounterVec
}

// NewMetrics creates the cache metrics and their registry
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "fetches_total",
			Help:      "Query fetches, by kind and result.",
		}, []string{"kind", "result"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "fetch_duration_seconds",
			Help:      "Query fetch latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind"}),
		discarded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "discarded_results_total",
			Help:      "Fetch results dropped because a mutation superseded them.",
		}, []string{"kind"}),
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "mutations_total",
			Help:      "Commands run through the coordinator, by command and result.",
		}, []string{"command", "result"}),
		rollbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "rollbacks_total",
			Help:      "Optimistic values restored after a failed command.",
		}, []string{"command"}),
	}
	m.registry.MustRegister(m.fetches, m.duration, m.discarded, m.mutations, m.rollbacks)
	return m
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
