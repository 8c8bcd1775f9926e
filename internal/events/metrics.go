package events

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks delivery of domain events.
type Metrics struct {
	Published *prometheus.CounterVec
	Failed    *prometheus.CounterVec
	Dropped   prometheus.Counter
	Queued    prometheus.Gauge
}

func NewMetrics() *Metrics {
	return &Metrics{
		Published: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "campaign_events_published_total",
			Help: "Domain events delivered to the sink",
		}, []string{"type"}),
		Failed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "campaign_events_failed_total",
			Help: "Domain events the sink rejected",
		}, []string{"type"}),
		Dropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "campaign_events_dropped_total",
			Help: "Domain events dropped because the buffer was full or the breaker was open",
		}),
		Queued: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "campaign_events_queued",
			Help: "Domain events waiting for delivery",
		}),
	}
}
