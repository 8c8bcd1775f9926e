package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the organizational tree.
type Metrics struct {
	HierarchyDuration prometheus.Histogram
	HierarchyNodes    prometheus.Histogram
	CyclesDetected    prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		HierarchyDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "campaign_hierarchy_duration_seconds",
			Help:    "Duration of hierarchy expansions",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
		HierarchyNodes: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "campaign_hierarchy_nodes",
			Help:    "Number of leaders visited per hierarchy expansion",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		}),
		CyclesDetected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "campaign_hierarchy_cycles_total",
			Help: "Total number of cyclic leader hierarchies rejected",
		}),
	}
}

// ObserveHierarchy records one expansion. Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveHierarchy(start time.Time, nodes int) {
	m.HierarchyDuration.Observe(time.Since(start).Seconds())
	m.HierarchyNodes.Observe(float64(nodes))
}

func (m *Metrics) IncrementCycles() {
	m.CyclesDetected.Inc()
}
