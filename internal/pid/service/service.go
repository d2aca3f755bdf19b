// Package service issues and checks patient identifiers on behalf of the
// transports. It owns error translation, audit and metrics; the codec in
// package pid stays pure.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"prms/internal/pid"
	"prms/internal/pid/metrics"
	"prms/internal/wristband"
	dErrors "prms/pkg/domain-errors"
	audit "prms/pkg/platform/audit"
	"prms/pkg/platform/sentinel"
	"prms/pkg/requestcontext"
)

const (
	tracerName = "prms/internal/pid/service"

	// maxAuditedCandidate bounds how much of a rejected input is recorded.
	maxAuditedCandidate = 64
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks

// ComplianceAuditor persists events that must exist before an operation
// is reported as done.
type ComplianceAuditor interface {
	Emit(ctx context.Context, event audit.Event) error
}

// SecurityAuditor records rejected identifiers on a best-effort basis.
type SecurityAuditor interface {
	Emit(ctx context.Context, event audit.Event)
}

// OpsTracker records operational events on a best-effort basis.
type OpsTracker interface {
	Track(ctx context.Context, event audit.Event)
}

// WristbandPrinter dispatches print jobs.
type WristbandPrinter interface {
	Print(ctx context.Context, job wristband.Job) (wristband.Job, error)
}

// Issued is the result of issuing an identifier.
type Issued struct {
	PID        string
	Components pid.Components
	QRPayload  string
}

// Service orchestrates the codec, audit and print dispatch.
type Service struct {
	codec      *pid.Codec
	compliance ComplianceAuditor
	security   SecurityAuditor
	ops        OpsTracker
	printer    WristbandPrinter
	logger     *slog.Logger
	metrics    *metrics.Metrics
	tracer     trace.Tracer
}

// Option configures the Service.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithSecurityAuditor records rejected lookups.
func WithSecurityAuditor(a SecurityAuditor) Option {
	return func(s *Service) { s.security = a }
}

// WithOpsTracker records sequence store outages.
func WithOpsTracker(t OpsTracker) Option {
	return func(s *Service) { s.ops = t }
}

// WithWristbandPrinter enables RequestWristband.
func WithWristbandPrinter(p WristbandPrinter) Option {
	return func(s *Service) { s.printer = p }
}

// New creates a Service. codec and compliance are required: identifiers
// are never issued without an audit record.
func New(codec *pid.Codec, compliance ComplianceAuditor, opts ...Option) (*Service, error) {
	if codec == nil {
		return nil, errors.New("codec is required")
	}
	if compliance == nil {
		return nil, errors.New("compliance auditor is required")
	}
	s := &Service{
		codec:      codec,
		compliance: compliance,
		logger:     slog.Default(),
		tracer:     otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// SiteCode returns the facility code identifiers are issued for.
func (s *Service) SiteCode() string {
	return s.codec.SiteCode()
}

// Issue allocates and formats a new identifier for the request time's period.
func (s *Service) Issue(ctx context.Context) (*Issued, error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "pid.Issue",
		trace.WithAttributes(attribute.String("pid.site_code", s.codec.SiteCode())))
	defer span.End()

	now := requestcontext.Now(ctx)
	id, comps, err := s.codec.GenerateAt(ctx, now)
	if err != nil {
		err = s.translateIssueError(ctx, now, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "issue failed")
		s.metrics.IncIssueFailure(string(dErrors.CodeOf(err)))
		return nil, err
	}
	span.SetAttributes(attribute.String("pid.period", comps.Period().String()))

	event := s.newEvent(ctx, audit.EventPIDIssued, now)
	event.Subject = id
	event.Decision = "issued"
	if err := s.compliance.Emit(ctx, event); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "audit failed")
		s.metrics.IncIssueFailure(string(dErrors.CodeInternal))
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record identifier issuance")
	}

	s.metrics.IncIssued(comps.SiteCode)
	s.metrics.ObserveIssueLatency(time.Since(start))
	return &Issued{
		PID:        id,
		Components: comps,
		QRPayload:  s.codec.QRPayload(id),
	}, nil
}

func (s *Service) translateIssueError(ctx context.Context, now time.Time, err error) error {
	switch {
	case errors.Is(err, sentinel.ErrUnavailable):
		if s.ops != nil {
			event := s.newEvent(ctx, audit.EventSequenceUnavailable, now)
			event.Reason = err.Error()
			s.ops.Track(ctx, event)
		}
		s.logger.ErrorContext(ctx, "sequence store unavailable",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "sequence store unavailable, retry later")
	case errors.Is(err, pid.ErrSequenceExhausted):
		s.logger.ErrorContext(ctx, "sequence exhausted for period",
			"request_id", requestcontext.RequestID(ctx),
			"period", pid.PeriodAt(s.codec.SiteCode(), now).String(),
		)
		return dErrors.Wrap(err, dErrors.CodeConflict, "no identifiers left for the current period")
	case errors.Is(err, context.DeadlineExceeded):
		return dErrors.Wrap(err, dErrors.CodeTimeout, "sequence allocation timed out")
	default:
		s.logger.ErrorContext(ctx, "identifier issue failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue identifier")
	}
}

// Validate checks candidate. Strict additionally checks the month range.
// Rejections are reported as data, not errors.
func (s *Service) Validate(ctx context.Context, candidate string, strict bool) pid.Validation {
	var v pid.Validation
	if strict {
		v = s.codec.ValidateStrict(candidate)
	} else {
		v = s.codec.Validate(candidate)
	}
	s.observeValidation(ctx, candidate, v)
	return v
}

// Parse splits a valid candidate into components. A rejected candidate
// yields an invalid_input error carrying the user-facing message.
func (s *Service) Parse(ctx context.Context, candidate string) (pid.Components, error) {
	comps, err := s.codec.Parse(candidate)
	if err != nil {
		v := s.codec.Validate(candidate)
		s.observeValidation(ctx, candidate, v)
		return pid.Components{}, dErrors.Wrap(err, dErrors.CodeInvalidInput, v.Kind.Message())
	}
	s.observeValidation(ctx, candidate, pid.Validation{Valid: true})
	return comps, nil
}

// QRPayload returns the scannable payload for a valid candidate.
func (s *Service) QRPayload(ctx context.Context, candidate string) (string, error) {
	if _, err := s.Parse(ctx, candidate); err != nil {
		return "", err
	}
	return s.codec.QRPayload(candidate), nil
}

// RequestWristband validates candidate and queues a print job on printer
// (empty for the default printer). The request is audited after the
// printer name is accepted and before dispatch.
func (s *Service) RequestWristband(ctx context.Context, candidate, printer string) (*wristband.Job, error) {
	if s.printer == nil {
		return nil, dErrors.New(dErrors.CodeUnavailable, "wristband printing is not configured")
	}
	ctx, span := s.tracer.Start(ctx, "pid.RequestWristband")
	defer span.End()

	if _, err := s.Parse(ctx, candidate); err != nil {
		return nil, err
	}
	// Checked before auditing so a rejected request leaves no record.
	if printer != "" && !wristband.ValidPrinter(printer) {
		s.metrics.IncWristbandJob("rejected")
		return nil, dErrors.Wrap(wristband.ErrInvalidPrinter, dErrors.CodeBadRequest, "invalid printer name")
	}

	now := requestcontext.Now(ctx)
	event := s.newEvent(ctx, audit.EventWristbandRequested, now)
	event.Subject = candidate
	event.Decision = "requested"
	event.Reason = printer
	if err := s.compliance.Emit(ctx, event); err != nil {
		span.RecordError(err)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record wristband request")
	}

	job, err := s.printer.Print(ctx, wristband.Job{
		PID:         candidate,
		QRPayload:   s.codec.QRPayload(candidate),
		Printer:     printer,
		RequestedAt: now,
		RequestID:   requestcontext.RequestID(ctx),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "dispatch failed")
		s.metrics.IncWristbandJob("failed")
		if errors.Is(err, wristband.ErrInvalidPrinter) {
			return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid printer name")
		}
		s.logger.ErrorContext(ctx, "wristband dispatch failed",
			"request_id", requestcontext.RequestID(ctx),
			"pid", candidate,
			"error", err,
		)
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "printer queue unavailable")
	}
	s.metrics.IncWristbandJob("dispatched")
	return &job, nil
}

func (s *Service) observeValidation(ctx context.Context, candidate string, v pid.Validation) {
	if v.Valid {
		s.metrics.IncValidation("valid")
		return
	}
	s.metrics.IncValidation(v.Kind.String())
	s.logger.InfoContext(ctx, "identifier rejected",
		"request_id", requestcontext.RequestID(ctx),
		"reason", v.Kind.String(),
	)
	if s.security != nil {
		event := s.newEvent(ctx, audit.EventPIDRejected, requestcontext.Now(ctx))
		event.Subject = truncate(candidate, maxAuditedCandidate)
		event.Decision = "rejected"
		event.Reason = v.Kind.String()
		s.security.Emit(ctx, event)
	}
}

func (s *Service) newEvent(ctx context.Context, action audit.AuditEvent, at time.Time) audit.Event {
	event := audit.NewEvent(action, at)
	event.SiteCode = s.codec.SiteCode()
	event.RequestID = requestcontext.RequestID(ctx)
	event.ActorID = requestcontext.ActorID(ctx)
	return event
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
