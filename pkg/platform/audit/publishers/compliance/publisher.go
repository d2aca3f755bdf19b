// Package compliance provides a fail-closed audit publisher for regulatory events.
//
// Events are written synchronously and the caller blocks until the write
// succeeds. If the write fails an error is returned and the calling
// operation MUST fail: an identifier that cannot be audited is not issued.
//
// Use for: pid_issued, wristband_requested
package compliance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	audit "prms/pkg/platform/audit"
)

// ErrIncompleteEvent is returned for events missing an action or subject.
var ErrIncompleteEvent = errors.New("compliance event requires action and subject")

// Metrics counts compliance writes. A nil *Metrics is a no-op.
type Metrics struct {
	Writes        *prometheus.CounterVec
	WriteDuration prometheus.Histogram
}

func NewMetrics() *Metrics {
	return &Metrics{
		Writes: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "prms_audit_compliance_writes_total",
			Help: "Compliance audit writes by action and result (ok, error)",
		}, []string{"action", "result"}),
		WriteDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "prms_audit_compliance_write_duration_seconds",
			Help:    "Latency of compliance audit writes, including failed ones",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

func (m *Metrics) observe(action string, err error, took time.Duration) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.Writes.WithLabelValues(action, result).Inc()
	m.WriteDuration.Observe(took.Seconds())
}

// Publisher emits compliance events with fail-closed semantics.
type Publisher struct {
	store   audit.Store
	logger  *slog.Logger
	metrics *Metrics
}

type Option func(*Publisher)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) { p.logger = logger }
}

func WithMetrics(m *Metrics) Option {
	return func(p *Publisher) { p.metrics = m }
}

// New creates a compliance publisher over store.
func New(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{store: store}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Emit writes event and waits for the store. A non-nil error means the
// event is not recorded and the caller must abandon its operation.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.Action == "" || event.Subject == "" {
		return ErrIncompleteEvent
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.Category == "" {
		event.Category = audit.CategoryCompliance
	}

	start := time.Now()
	err := p.store.Append(ctx, event)
	p.metrics.observe(event.Action, err, time.Since(start))
	if err == nil {
		return nil
	}
	if p.logger != nil {
		p.logger.ErrorContext(ctx, "compliance audit write failed",
			"action", event.Action,
			"subject", event.Subject,
			"request_id", event.RequestID,
			"error", err,
		)
	}
	return fmt.Errorf("compliance audit: %w", err)
}
