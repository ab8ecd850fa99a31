package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the triage module.
type Metrics struct {
	// Completed submissions by branch
	Submissions *prometheus.CounterVec

	// Failed submissions by reason
	SubmitFailures *prometheus.CounterVec

	// Submission latency including the gateway write
	SubmitLatency prometheus.Histogram

	// Navigation results by direction and outcome
	Transitions *prometheus.CounterVec
}

// New registers the triage metrics on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Submissions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pontes_triage_submissions_total",
			Help: "Total completed triage submissions by branch",
		}, []string{"branch"}), // branch: "resident", "not_arrived"

		SubmitFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pontes_triage_submit_failures_total",
			Help: "Total failed triage submissions by reason",
		}, []string{"reason"}), // reason: "incomplete", "mapping", "gateway"

		SubmitLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "pontes_triage_submit_duration_seconds",
			Help:    "Duration of triage submission including persistence",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),

		Transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pontes_triage_step_transitions_total",
			Help: "Total navigation attempts by direction and result",
		}, []string{"direction", "result"}),
	}
}

// IncrementSubmission records a persisted submission.
func (m *Metrics) IncrementSubmission(branch string) {
	if m != nil {
		m.Submissions.WithLabelValues(branch).Inc()
	}
}

// IncrementSubmitFailure records a submission that did not persist.
func (m *Metrics) IncrementSubmitFailure(reason string) {
	if m != nil {
		m.SubmitFailures.WithLabelValues(reason).Inc()
	}
}

// ObserveSubmitLatency records the total submission duration.
func (m *Metrics) ObserveSubmitLatency(d time.Duration) {
	if m != nil {
		m.SubmitLatency.Observe(d.Seconds())
	}
}

// IncrementTransition records an advance or retreat attempt.
func (m *Metrics) IncrementTransition(direction, result string) {
	if m != nil {
		m.Transitions.WithLabelValues(direction, result).Inc()
	}
}
