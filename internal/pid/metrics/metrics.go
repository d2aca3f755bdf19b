package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for identifier issuance and checks.
// All methods are safe on a nil receiver.
type Metrics struct {
	// Identifiers issued by site
	Issued *prometheus.CounterVec

	// Issue failures by domain error code
	IssueFailures *prometheus.CounterVec

	// Validation outcomes: "valid" or the rejection kind
	Validations *prometheus.CounterVec

	// End-to-end issue latency including allocation and audit
	IssueLatency prometheus.Histogram

	WristbandJobs *prometheus.CounterVec
}

// New creates a Metrics instance with all identifier metrics registered.
func New() *Metrics {
	return &Metrics{
		Issued: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "prms_pid_issued_total",
			Help: "Total patient identifiers issued",
		}, []string{"site"}),

		IssueFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "prms_pid_issue_failures_total",
			Help: "Total failed identifier issue attempts by error code",
		}, []string{"code"}),

		Validations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "prms_pid_validations_total",
			Help: "Total identifier validations by result",
		}, []string{"result"}),

		IssueLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "prms_pid_issue_duration_seconds",
			Help:    "Duration of identifier issuance",
			Buckets: []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),

		WristbandJobs: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "prms_pid_wristband_jobs_total",
			Help: "Total wristband print jobs by outcome",
		}, []string{"outcome"}), // outcome: "dispatched", "failed"
	}
}

func (m *Metrics) IncIssued(site string) {
	if m != nil {
		m.Issued.WithLabelValues(site).Inc()
	}
}

func (m *Metrics) IncIssueFailure(code string) {
	if m != nil {
		m.IssueFailures.WithLabelValues(code).Inc()
	}
}

// IncValidation records a validation outcome.
func (m *Metrics) IncValidation(result string) {
	if m != nil {
		m.Validations.WithLabelValues(result).Inc()
	}
}

// ObserveIssueLatency records the total issue duration.
func (m *Metrics) ObserveIssueLatency(d time.Duration) {
	if m != nil {
		m.IssueLatency.Observe(d.Seconds())
	}
}

func (m *Metrics) IncWristbandJob(outcome string) {
	if m != nil {
		m.WristbandJobs.WithLabelValues(outcome).Inc()
	}
}
