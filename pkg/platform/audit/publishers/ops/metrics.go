package ops

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcomes of a Track call.
const (
	outcomeStored  = "stored"
	outcomeSampled = "sampled_out"
	outcomeShed    = "shed"
	outcomeFailed  = "failed"
)

// Metrics counts ops audit events by outcome. A nil *Metrics is a no-op.
type Metrics struct {
	Events      *prometheus.CounterVec
	BreakerOpen prometheus.Gauge
}

func NewMetrics() *Metrics {
	return &Metrics{
		Events: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "prms_audit_ops_events_total",
			Help: "Operational audit events by outcome (stored, sampled_out, shed, failed)",
		}, []string{"outcome"}),
		BreakerOpen: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "prms_audit_ops_breaker_open",
			Help: "1 while the ops audit circuit breaker is shedding events",
		}),
	}
}

func (m *Metrics) observe(outcome string) {
	if m == nil {
		return
	}
	m.Events.WithLabelValues(outcome).Inc()
}

func (m *Metrics) setBreaker(open bool) {
	if m == nil {
		return
	}
	v := 0.0
	if open {
		v = 1
	}
	m.BreakerOpen.Set(v)
}
