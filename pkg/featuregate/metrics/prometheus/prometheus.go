package prommetrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics implements featuregate.Metrics using Prometheus.
type Metrics struct {
	fetchDuration         *prometheus.HistogramVec
	fetchErrors           *prometheus.CounterVec
	cacheHitsTotal        *prometheus.CounterVec
	cacheMissesTotal      *prometheus.CounterVec
	retriesTotal          *prometheus.CounterVec
	permissionChecksTotal *prometheus.CounterVec
}

// NewMetrics creates a new Prometheus metrics implementation.
func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		fetchDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "snapshot_fetch_duration_seconds",
			Help:      "Latency of snapshot fetches against the feature-access API.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind"}),

		fetchErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshot_fetch_errors_total",
			Help:      "Total number of snapshot fetches that exhausted retries.",
		}, []string{"kind"}),

		cacheHitsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshot_cache_hits_total",
			Help:      "Total number of TTL cache hits.",
		}, []string{"kind"}),

		cacheMissesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshot_cache_misses_total",
			Help:      "Total number of TTL cache misses.",
		}, []string{"kind"}),

		retriesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshot_fetch_retries_total",
			Help:      "Total number of retried fetch attempts.",
		}, []string{"kind"}),

		permissionChecksTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "permission_checks_total",
			Help:      "Total number of permission evaluations.",
		}, []string{"feature", "allowed"}),
	}
}

func (m *Metrics) RecordFetch(kind string, duration time.Duration, err error) {
	m.fetchDuration.WithLabelValues(kind).Observe(duration.Seconds())
	if err != nil {
		m.fetchErrors.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) RecordCacheHit(kind string) {
	m.cacheHitsTotal.WithLabelValues(kind).Inc()
}

func (m *Metrics) RecordCacheMiss(kind string) {
	m.cacheMissesTotal.WithLabelValues(kind).Inc()
}

func (m *Metrics) RecordRetry(kind string, _ int) {
	m.retriesTotal.WithLabelValues(kind).Inc()
}

func (m *Metrics) RecordPermissionCheck(feature string, allowed bool) {
	m.permissionChecksTotal.WithLabelValues(feature, strconv.FormatBool(allowed)).Inc()
}

// DefaultMetrics returns a Metrics implementation using the default
// Prometheus registerer.
func DefaultMetrics(namespace string) *Metrics {
	return NewMetrics(prometheus.DefaultRegisterer, namespace)
}
