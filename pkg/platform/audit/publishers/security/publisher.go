package security

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	audit "prms/pkg/platform/audit"
)

const (
	defaultBatchSize     = 100
	defaultFlushInterval = time.Second
)

// Metrics tracks security event delivery.
type Metrics struct {
	Enqueued        prometheus.Counter
	Persisted       prometheus.Counter
	PersistFailures prometheus.Counter
	Pending         prometheus.Gauge
}

// NewMetrics registers the security audit metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		Enqueued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "prms_audit_security_enqueued_total",
			Help: "Total security audit events accepted into the buffer",
		}),
		Persisted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "prms_audit_security_persisted_total",
			Help: "Total security audit events written to the store",
		}),
		PersistFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "prms_audit_security_persist_failures_total",
			Help: "Total security audit events lost to store errors",
		}),
		Pending: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "prms_audit_security_pending",
			Help: "Security audit events waiting in the buffer",
		}),
	}
}

// Publisher buffers events in memory and flushes them in the background.
// Emit never blocks and never fails; under sustained store outage the
// oldest events are dropped.
type Publisher struct {
	store         audit.Store
	buffer        *pending
	batchSize     int
	flushInterval time.Duration
	logger        *slog.Logger
	metrics       *Metrics
}

// Option configures the Publisher.
type Option func(*Publisher)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) { p.logger = logger }
}

func WithMetrics(m *Metrics) Option {
	return func(p *Publisher) { p.metrics = m }
}

// WithBufferSize bounds the number of pending events.
func WithBufferSize(n int) Option {
	return func(p *Publisher) { p.buffer = newPending(n) }
}

// WithFlushInterval sets how often Run drains the buffer.
func WithFlushInterval(d time.Duration) Option {
	return func(p *Publisher) {
		if d > 0 {
			p.flushInterval = d
		}
	}
}

// New creates a security publisher over store.
func New(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{
		store:         store,
		buffer:        newPending(0),
		batchSize:     defaultBatchSize,
		flushInterval: defaultFlushInterval,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Emit queues event for background persistence.
func (p *Publisher) Emit(_ context.Context, event audit.Event) {
	if event.Category == "" {
		event.Category = audit.CategorySecurity
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	p.buffer.push(event)
	if p.metrics != nil {
		p.metrics.Enqueued.Inc()
		p.metrics.Pending.Set(float64(p.buffer.len()))
	}
}

// Run flushes the buffer every interval until ctx is cancelled, then
// performs a final flush with a fresh context.
func (p *Publisher) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.flushInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			p.Flush(context.WithoutCancel(ctx))
			return nil
		case <-ticker.C:
			p.Flush(ctx)
		}
	}
}

// Flush writes everything currently buffered.
func (p *Publisher) Flush(ctx context.Context) {
	for {
		batch := p.buffer.take(p.batchSize)
		if len(batch) == 0 {
			break
		}
		for _, event := range batch {
			if err := p.store.Append(ctx, event); err != nil {
				if p.metrics != nil {
					p.metrics.PersistFailures.Inc()
				}
				if p.logger != nil {
					p.logger.WarnContext(ctx, "security audit event dropped",
						"action", event.Action,
						"error", err,
					)
				}
				continue
			}
			if p.metrics != nil {
				p.metrics.Persisted.Inc()
			}
		}
	}
	if p.metrics != nil {
		p.metrics.Pending.Set(float64(p.buffer.len()))
	}
}

// Dropped reports how many events were evicted before persistence.
func (p *Publisher) Dropped() int64 {
	return p.buffer.droppedTotal()
}
