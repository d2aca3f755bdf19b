package testutil

import (
	"net/http"
	"time"

	"prms/pkg/requestcontext"
)

// WithRequestContext stamps req the way the request metadata middleware
// does, with fixed values so handler output is deterministic.
func WithRequestContext(req *http.Request, requestID string, now time.Time) *http.Request {
	ctx := requestcontext.WithRequestID(req.Context(), requestID)
	ctx = requestcontext.WithTime(ctx, now)
	ctx = requestcontext.WithClientIP(ctx, "192.0.2.10")
	return req.WithContext(ctx)
}

// WithActor records the staff member acting on the request.
func WithActor(req *http.Request, actorID string) *http.Request {
	return req.WithContext(requestcontext.WithActorID(req.Context(), actorID))
}
