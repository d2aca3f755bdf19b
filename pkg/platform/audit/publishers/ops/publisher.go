// Package ops provides a sampled, best-effort audit publisher for
// operational events such as sequence store outages.
//
// Failures never propagate to the caller. A circuit breaker sheds events
// while the store is unhealthy.
package ops

import (
	"context"
	"log/slog"
	"time"

	audit "prms/pkg/platform/audit"
)

// Publisher tracks operational events.
type Publisher struct {
	store   audit.Store
	sampler *Sampler
	breaker *CircuitBreaker
	logger  *slog.Logger
	metrics *Metrics
}

// Option configures the Publisher.
type Option func(*Publisher)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) { p.logger = logger }
}

func WithMetrics(m *Metrics) Option {
	return func(p *Publisher) { p.metrics = m }
}

// WithSampler replaces the default keep-everything sampler.
func WithSampler(s *Sampler) Option {
	return func(p *Publisher) {
		if s != nil {
			p.sampler = s
		}
	}
}

// WithCircuitBreaker replaces the default breaker.
func WithCircuitBreaker(cb *CircuitBreaker) Option {
	return func(p *Publisher) {
		if cb != nil {
			p.breaker = cb
		}
	}
}

// New creates an ops publisher over store.
func New(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{
		store:   store,
		sampler: NewSampler(1, nil),
		breaker: NewCircuitBreaker(5, time.Minute),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Track records event if it survives sampling and the breaker is closed.
func (p *Publisher) Track(ctx context.Context, event audit.Event) {
	if !p.sampler.Keep(event.Action) {
		p.metrics.observe(outcomeSampled)
		return
	}
	if !p.breaker.Allow() {
		p.metrics.observe(outcomeShed)
		return
	}
	if event.Category == "" {
		event.Category = audit.CategoryOperations
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	err := p.store.Append(ctx, event)
	if err != nil {
		p.breaker.RecordFailure()
		p.metrics.observe(outcomeFailed)
		if p.logger != nil {
			p.logger.WarnContext(ctx, "ops audit event dropped",
				"action", event.Action,
				"error", err,
			)
		}
	} else {
		p.breaker.RecordSuccess()
		p.metrics.observe(outcomeStored)
	}
	p.metrics.setBreaker(p.breaker.IsOpen())
}
