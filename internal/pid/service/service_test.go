package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"prms/internal/pid"
	"prms/internal/pid/service/mocks"
	"prms/internal/wristband"
	dErrors "prms/pkg/domain-errors"
	audit "prms/pkg/platform/audit"
	"prms/pkg/platform/sentinel"
	"prms/pkg/requestcontext"
)

type ServiceSuite struct {
	suite.Suite
	ctrl       *gomock.Controller
	compliance *mocks.MockComplianceAuditor
	security   *mocks.MockSecurityAuditor
	ops        *mocks.MockOpsTracker
	printer    *mocks.MockWristbandPrinter
	next       func(ctx context.Context, p pid.Period) (int, error)
	service    *Service
	ctx        context.Context
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.compliance = mocks.NewMockComplianceAuditor(s.ctrl)
	s.security = mocks.NewMockSecurityAuditor(s.ctrl)
	s.ops = mocks.NewMockOpsTracker(s.ctrl)
	s.printer = mocks.NewMockWristbandPrinter(s.ctrl)
	s.next = func(context.Context, pid.Period) (int, error) { return 73, nil }

	codec, err := pid.New(pid.Config{SiteCode: "KTH"}, pid.AllocatorFunc(func(ctx context.Context, p pid.Period) (int, error) {
		return s.next(ctx, p)
	}))
	s.Require().NoError(err)

	s.service, err = New(codec, s.compliance,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithSecurityAuditor(s.security),
		WithOpsTracker(s.ops),
		WithWristbandPrinter(s.printer),
	)
	s.Require().NoError(err)

	ctx := requestcontext.WithTime(context.Background(), time.Date(2025, 8, 14, 9, 30, 0, 0, time.UTC))
	ctx = requestcontext.WithRequestID(ctx, "req-123")
	s.ctx = requestcontext.WithActorID(ctx, "registrar-03")
}

func (s *ServiceSuite) TestNewRequiresDependencies() {
	codec, err := pid.New(pid.Config{}, nil)
	s.Require().NoError(err)

	_, err = New(nil, s.compliance)
	s.Error(err)
	_, err = New(codec, nil)
	s.Error(err)
}

func (s *ServiceSuite) TestIssue() {
	s.Run("issues identifier and records compliance event", func() {
		var recorded audit.Event
		s.compliance.EXPECT().Emit(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, e audit.Event) error {
				recorded = e
				return nil
			})

		got, err := s.service.Issue(s.ctx)
		s.Require().NoError(err)
		s.Equal("KTH-2508-00073-2", got.PID)
		s.Equal("KTH:PID:KTH-2508-00073-2", got.QRPayload)
		s.Equal(pid.Components{SiteCode: "KTH", Year: "25", Month: "08", Sequence: "00073", CheckDigit: "2"}, got.Components)

		s.Equal(string(audit.EventPIDIssued), recorded.Action)
		s.Equal(audit.CategoryCompliance, recorded.Category)
		s.Equal("KTH-2508-00073-2", recorded.Subject)
		s.Equal("req-123", recorded.RequestID)
		s.Equal("registrar-03", recorded.ActorID)
		s.NotEmpty(recorded.ID)
	})

	s.Run("uses the request time period", func() {
		var seen pid.Period
		s.next = func(_ context.Context, p pid.Period) (int, error) {
			seen = p
			return 1, nil
		}
		s.compliance.EXPECT().Emit(gomock.Any(), gomock.Any()).Return(nil)

		ctx := requestcontext.WithTime(s.ctx, time.Date(2026, 1, 3, 0, 0, 0, 0, time.UTC))
		got, err := s.service.Issue(ctx)
		s.Require().NoError(err)
		s.Equal(pid.Period{SiteCode: "KTH", Year: "26", Month: "01"}, seen)
		s.Equal("KTH-2601-00001-7", got.PID)
	})

	s.Run("audit failure fails the issue", func() {
		s.next = func(context.Context, pid.Period) (int, error) { return 5, nil }
		s.compliance.EXPECT().Emit(gomock.Any(), gomock.Any()).Return(errors.New("kafka down"))

		got, err := s.service.Issue(s.ctx)
		s.Nil(got)
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	})
}

func (s *ServiceSuite) TestIssueAllocatorFailures() {
	s.Run("unavailable store is retryable and tracked", func() {
		s.next = func(context.Context, pid.Period) (int, error) {
			return 0, fmt.Errorf("redis incr: %w", sentinel.ErrUnavailable)
		}
		s.ops.EXPECT().Track(gomock.Any(), gomock.Any()).Do(func(_ context.Context, e audit.Event) {
			s.Equal(string(audit.EventSequenceUnavailable), e.Action)
			s.Equal("KTH", e.SiteCode)
		})

		_, err := s.service.Issue(s.ctx)
		s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
		s.ErrorIs(err, sentinel.ErrUnavailable)
	})

	s.Run("exhausted period is a conflict", func() {
		s.next = func(context.Context, pid.Period) (int, error) { return pid.MaxSequence + 1, nil }

		_, err := s.service.Issue(s.ctx)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
		s.ErrorIs(err, pid.ErrSequenceExhausted)
	})

	s.Run("deadline is a timeout", func() {
		s.next = func(context.Context, pid.Period) (int, error) { return 0, context.DeadlineExceeded }

		_, err := s.service.Issue(s.ctx)
		s.True(dErrors.HasCode(err, dErrors.CodeTimeout))
	})

	s.Run("anything else is internal", func() {
		s.next = func(context.Context, pid.Period) (int, error) { return 0, errors.New("disk full") }

		_, err := s.service.Issue(s.ctx)
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	})
}

func (s *ServiceSuite) TestValidate() {
	s.Run("valid identifier", func() {
		v := s.service.Validate(s.ctx, "KTH-2508-00073-2", false)
		s.True(v.Valid)
	})

	s.Run("rejection is audited with the reason", func() {
		s.security.EXPECT().Emit(gomock.Any(), gomock.Any()).Do(func(_ context.Context, e audit.Event) {
			s.Equal(string(audit.EventPIDRejected), e.Action)
			s.Equal("KTH-2508-00073-6", e.Subject)
			s.Equal("check_digit_mismatch", e.Reason)
		})

		v := s.service.Validate(s.ctx, "KTH-2508-00073-6", false)
		s.False(v.Valid)
		s.Equal(pid.CheckDigitMismatch, v.Kind)
	})

	s.Run("strict rejects implausible month", func() {
		s.security.EXPECT().Emit(gomock.Any(), gomock.Any())

		candidate := "KTH-2513-00001-" + pid.Mod11Check("251300001")
		s.True(s.service.Validate(s.ctx, candidate, false).Valid)
		v := s.service.Validate(s.ctx, candidate, true)
		s.Equal(pid.ImplausiblePeriod, v.Kind)
	})

	s.Run("oversized input is truncated in the audit trail", func() {
		s.security.EXPECT().Emit(gomock.Any(), gomock.Any()).Do(func(_ context.Context, e audit.Event) {
			s.Len(e.Subject, maxAuditedCandidate)
		})
		s.service.Validate(s.ctx, strings.Repeat("X", 500), false)
	})
}

func (s *ServiceSuite) TestParse() {
	s.Run("valid identifier", func() {
		comps, err := s.service.Parse(s.ctx, "KTH-2508-00073-2")
		s.Require().NoError(err)
		s.Equal("00073", comps.Sequence)
	})

	s.Run("invalid identifier carries the user message", func() {
		s.security.EXPECT().Emit(gomock.Any(), gomock.Any())

		comps, err := s.service.Parse(s.ctx, "ABC-2508-00073-2")
		s.Equal(pid.Components{}, comps)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
		s.ErrorIs(err, pid.ErrUnknownSite)

		de, ok := dErrors.As(err)
		s.Require().True(ok)
		s.Equal("Invalid site code", de.Message)
	})
}

func (s *ServiceSuite) TestQRPayload() {
	payload, err := s.service.QRPayload(s.ctx, "KTH-2508-00073-2")
	s.Require().NoError(err)
	s.Equal("KTH:PID:KTH-2508-00073-2", payload)

	s.security.EXPECT().Emit(gomock.Any(), gomock.Any())
	_, err = s.service.QRPayload(s.ctx, "not-a-pid")
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func (s *ServiceSuite) TestRequestWristband() {
	s.Run("audits then dispatches", func() {
		gomock.InOrder(
			s.compliance.EXPECT().Emit(gomock.Any(), gomock.Any()).DoAndReturn(
				func(_ context.Context, e audit.Event) error {
					s.Equal(string(audit.EventWristbandRequested), e.Action)
					return nil
				}),
			s.printer.EXPECT().Print(gomock.Any(), gomock.Any()).DoAndReturn(
				func(_ context.Context, job wristband.Job) (wristband.Job, error) {
					s.Equal("KTH-2508-00073-2", job.PID)
					s.Equal("KTH:PID:KTH-2508-00073-2", job.QRPayload)
					s.Equal("ward-3", job.Printer)
					s.Equal("req-123", job.RequestID)
					job.ID = "job-1"
					return job, nil
				}),
		)

		job, err := s.service.RequestWristband(s.ctx, "KTH-2508-00073-2", "ward-3")
		s.Require().NoError(err)
		s.Equal("job-1", job.ID)
	})

	s.Run("invalid identifier is not printed", func() {
		s.security.EXPECT().Emit(gomock.Any(), gomock.Any())

		_, err := s.service.RequestWristband(s.ctx, "KTH-2508-00073-6", "")
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("audit failure blocks dispatch", func() {
		s.compliance.EXPECT().Emit(gomock.Any(), gomock.Any()).Return(errors.New("db down"))

		_, err := s.service.RequestWristband(s.ctx, "KTH-2508-00073-2", "")
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	})

	s.Run("bad printer name is rejected before auditing", func() {
		// No Emit or Print expectation: either call fails the test.
		_, err := s.service.RequestWristband(s.ctx, "KTH-2508-00073-2", "Ward A!")
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
		s.ErrorIs(err, wristband.ErrInvalidPrinter)
	})

	s.Run("printer refusal after audit is a bad request", func() {
		s.compliance.EXPECT().Emit(gomock.Any(), gomock.Any()).Return(nil)
		s.printer.EXPECT().Print(gomock.Any(), gomock.Any()).Return(wristband.Job{}, wristband.ErrInvalidPrinter)

		_, err := s.service.RequestWristband(s.ctx, "KTH-2508-00073-2", "ward-9")
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	s.Run("broker failure is unavailable", func() {
		s.compliance.EXPECT().Emit(gomock.Any(), gomock.Any()).Return(nil)
		s.printer.EXPECT().Print(gomock.Any(), gomock.Any()).Return(wristband.Job{}, errors.New("broker down"))

		_, err := s.service.RequestWristband(s.ctx, "KTH-2508-00073-2", "")
		s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
	})
}

func (s *ServiceSuite) TestRequestWristbandWithoutPrinter() {
	codec, err := pid.New(pid.Config{}, nil)
	s.Require().NoError(err)
	svc, err := New(codec, s.compliance)
	s.Require().NoError(err)

	_, err = svc.RequestWristband(s.ctx, "KTH-2508-00073-2", "")
	s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
}
