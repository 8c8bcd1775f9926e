package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks witness assignment and checklist activity.
type Metrics struct {
	WitnessesAssigned   prometheus.Counter
	ChecklistUpdates    *prometheus.CounterVec
	StatusTransitions   *prometheus.CounterVec
	ChecklistUpdateTime prometheus.Histogram
}

func New() *Metrics {
	return &Metrics{
		WitnessesAssigned: promauto.NewCounter(prometheus.CounterOpts{
			Name: "campaign_witnesses_assigned_total",
			Help: "Total number of witnesses assigned to polling stations",
		}),
		ChecklistUpdates: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "campaign_witness_checklist_updates_total",
			Help: "Checklist writes by field and value",
		}, []string{"field", "value"}),
		StatusTransitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "campaign_witness_status_transitions_total",
			Help: "Witness status changes by target status",
		}, []string{"status"}),
		ChecklistUpdateTime: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "campaign_witness_checklist_update_duration_seconds",
			Help:    "Duration of checklist updates",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

func (m *Metrics) IncrementAssigned() {
	m.WitnessesAssigned.Inc()
}

// ObserveChecklistUpdate records one checklist write and, when it changed, the new status.
func (m *Metrics) ObserveChecklistUpdate(start time.Time, field string, value bool, from, to string) {
	m.ChecklistUpdateTime.Observe(time.Since(start).Seconds())
	v := "false"
	if value {
		v = "true"
	}
	m.ChecklistUpdates.WithLabelValues(field, v).Inc()
	if from != to {
		m.StatusTransitions.WithLabelValues(to).Inc()
	}
}
