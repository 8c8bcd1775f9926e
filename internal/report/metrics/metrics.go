package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks the table report ledger.
type Metrics struct {
	ReportsSubmitted *prometheus.CounterVec
	ReportsRejected  *prometheus.CounterVec
	Validations      *prometheus.CounterVec
	SubmitDuration   prometheus.Histogram
	ValidateDuration prometheus.Histogram
}

func New() *Metrics {
	return &Metrics{
		ReportsSubmitted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "campaign_reports_submitted_total",
			Help: "Table reports accepted, labelled by whether the table already had a report",
		}, []string{"outcome"}),
		ReportsRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "campaign_reports_rejected_total",
			Help: "Table reports rejected by reason",
		}, []string{"reason"}),
		Validations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "campaign_report_validations_total",
			Help: "Validation flag writes by value",
		}, []string{"is_validated"}),
		SubmitDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "campaign_report_submit_duration_seconds",
			Help:    "Duration of SubmitReport operations",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		ValidateDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "campaign_report_validate_duration_seconds",
			Help:    "Duration of ValidateTable operations",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

// ObserveSubmit records an accepted submission. outcome is "created" or "replaced".
func (m *Metrics) ObserveSubmit(start time.Time, outcome string) {
	m.SubmitDuration.Observe(time.Since(start).Seconds())
	m.ReportsSubmitted.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncrementRejected(reason string) {
	m.ReportsRejected.WithLabelValues(reason).Inc()
}

func (m *Metrics) ObserveValidate(start time.Time, isValidated bool) {
	m.ValidateDuration.Observe(time.Since(start).Seconds())
	v := "false"
	if isValidated {
		v = "true"
	}
	m.Validations.WithLabelValues(v).Inc()
}
