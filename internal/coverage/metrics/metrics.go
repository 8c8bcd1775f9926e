package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	QueryDuration *prometheus.HistogramVec
	CacheResults  *prometheus.CounterVec
	TablesScanned prometheus.Histogram
}

func New() *Metrics {
	return &Metrics{
		QueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "campaign_coverage_query_duration_seconds",
			Help:    "Duration of coverage and priority aggregations",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"query"}),
		CacheResults: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "campaign_coverage_cache_total",
			Help: "Coverage cache lookups by query and result",
		}, []string{"query", "result"}),
		TablesScanned: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "campaign_coverage_tables_expected",
			Help:    "Expected tables per coverage aggregation",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		}),
	}
}

func (m *Metrics) ObserveQuery(query string, start time.Time) {
	m.QueryDuration.WithLabelValues(query).Observe(time.Since(start).Seconds())
}

func (m *Metrics) ObserveCache(query string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheResults.WithLabelValues(query, result).Inc()
}

func (m *Metrics) ObserveTables(n int) {
	m.TablesScanned.Observe(float64(n))
}
