package httptransport

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prms/pkg/platform/middleware/request"
	"prms/pkg/requestcontext"
	"prms/pkg/testutil"
)

type pingModule struct{}

func (pingModule) Register(r chi.Router) {
	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(requestcontext.RequestID(r.Context())))
	})
}

func TestRouterMountsModulesUnderAPIPrefix(t *testing.T) {
	h := NewRouter(Config{}, pingModule{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Body.String())
	assert.Equal(t, rec.Body.String(), rec.Header().Get(request.HeaderRequestID))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthz(t *testing.T) {
	testutil.Given(t, "every dependency answers", func(t *testing.T) {
		h := NewRouter(Config{HealthChecks: map[string]HealthCheck{
			"redis": func(context.Context) error { return nil },
		}})

		testutil.When(t, "GET /healthz", func(t *testing.T) {
			rec := testutil.DoRequest(h, testutil.NewRequest(http.MethodGet, "/healthz", ""))

			testutil.Then(t, "the service reports ok", func(t *testing.T) {
				assert.Equal(t, http.StatusOK, rec.Code)
				assert.JSONEq(t, `{"status":"ok","checks":{"redis":"ok"}}`, rec.Body.String())
			})
		})
	})

	testutil.Given(t, "the database is down", func(t *testing.T) {
		h := NewRouter(Config{HealthChecks: map[string]HealthCheck{
			"redis":    func(context.Context) error { return nil },
			"postgres": func(context.Context) error { return errors.New("connection refused") },
		}})

		testutil.When(t, "GET /healthz", func(t *testing.T) {
			rec := testutil.DoRequest(h, testutil.NewRequest(http.MethodGet, "/healthz", ""))

			testutil.Then(t, "the service reports degraded with the failing check", func(t *testing.T) {
				assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
				body := testutil.Decode[healthResponse](t, rec)
				assert.Equal(t, "degraded", body.Status)
				assert.Equal(t, "ok", body.Checks["redis"])
				assert.Equal(t, "connection refused", body.Checks["postgres"])
			})
		})
	})
}

func TestMetricsEndpoint(t *testing.T) {
	h := NewRouter(Config{})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestCORS(t *testing.T) {
	h := NewRouter(Config{AllowedOrigins: []string{"https://prms.example.org"}}, pingModule{})

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/ping", nil)
	req.Header.Set("Origin", "https://prms.example.org")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "https://prms.example.org", rec.Header().Get("Access-Control-Allow-Origin"))
}
