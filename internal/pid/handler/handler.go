package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"prms/internal/pid"
	"prms/internal/pid/qrimage"
	"prms/internal/pid/service"
	"prms/internal/wristband"
	dErrors "prms/pkg/domain-errors"
	"prms/pkg/platform/httputil"
	"prms/pkg/requestcontext"
)

// Service defines the identifier operations the handler needs.
type Service interface {
	Issue(ctx context.Context) (*service.Issued, error)
	Validate(ctx context.Context, candidate string, strict bool) pid.Validation
	Parse(ctx context.Context, candidate string) (pid.Components, error)
	QRPayload(ctx context.Context, candidate string) (string, error)
	RequestWristband(ctx context.Context, candidate, printer string) (*wristband.Job, error)
}

// Handler wires identifier endpoints to the service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs an identifier handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Register mounts identifier endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/pids", h.HandleIssue)
	r.Get("/pids/{pid}", h.HandleParse)
	r.Get("/pids/{pid}/validation", h.HandleValidate)
	r.Get("/pids/{pid}/qr", h.HandleQR)
	r.Post("/pids/{pid}/wristband", h.HandleWristband)
}

// HandleIssue handles POST /pids.
func (h *Handler) HandleIssue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	issued, err := h.service.Issue(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to issue identifier",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "identifier issued",
		"request_id", requestID,
		"pid", issued.PID,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusCreated, toIssueResponse(issued))
}

// HandleValidate handles GET /pids/{pid}/validation. A rejected identifier
// is a successful lookup: the verdict is in the body.
//
// Query parameters: strict=true adds the month range check, normalize=true
// trims and uppercases the input first.
func (h *Handler) HandleValidate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	candidate := chi.URLParam(r, "pid")

	strict, err := boolQuery(r, "strict")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	normalize, err := boolQuery(r, "normalize")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if normalize {
		candidate = pid.Normalize(candidate)
	}

	v := h.service.Validate(ctx, candidate, strict)
	httputil.WriteJSON(w, http.StatusOK, toValidationResponse(candidate, v))
}

// HandleParse handles GET /pids/{pid}.
func (h *Handler) HandleParse(w http.ResponseWriter, r *http.Request) {
	comps, err := h.service.Parse(r.Context(), chi.URLParam(r, "pid"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, comps)
}

// HandleQR handles GET /pids/{pid}/qr, returning a PNG. size sets the edge
// length in pixels.
func (h *Handler) HandleQR(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	size := 0
	if raw := r.URL.Query().Get("size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "size must be a positive integer"))
			return
		}
		size = n
	}

	payload, err := h.service.QRPayload(ctx, chi.URLParam(r, "pid"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	img, err := qrimage.PNG(payload, size)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to render qr code",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to render qr code"))
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=86400, immutable")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(img)
}

// HandleWristband handles POST /pids/{pid}/wristband.
func (h *Handler) HandleWristband(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[WristbandRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	job, err := h.service.RequestWristband(ctx, chi.URLParam(r, "pid"), req.Printer)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "wristband print queued",
		"request_id", requestID,
		"pid", job.PID,
		"printer", job.Printer,
		"job_id", job.ID,
	)
	httputil.WriteJSON(w, http.StatusAccepted, toWristbandResponse(job))
}

func boolQuery(r *http.Request, name string) (bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, dErrors.New(dErrors.CodeBadRequest, name+" must be true or false")
	}
	return v, nil
}
