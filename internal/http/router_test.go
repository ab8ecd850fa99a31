package httpapi

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pontes/internal/platform/metrics"
	dErrors "pontes/pkg/domain-errors"
	authmw "pontes/pkg/platform/middleware/auth"
	"pontes/pkg/requestcontext"
	"pontes/pkg/testutil"
)

type stubValidator struct{}

func (stubValidator) ValidateToken(token string) (*authmw.JWTClaims, error) {
	if token != "good" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	return &authmw.JWTClaims{UserID: "user-1"}, nil
}

type echoFeature struct{}

func (echoFeature) Register(r chi.Router) {
	r.Get("/whoami", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, requestcontext.UserID(r.Context()))
	})
}

func newTestRouter(checks map[string]HealthCheck) http.Handler {
	reg := prometheus.NewRegistry()
	return NewRouter(Config{
		Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		Metrics:      metrics.New(reg),
		Gatherer:     reg,
		Validator:    stubValidator{},
		HealthChecks: checks,
		Features:     []Registrar{echoFeature{}},
	})
}

func TestHealth(t *testing.T) {
	t.Run("all checks pass", func(t *testing.T) {
		router := newTestRouter(map[string]HealthCheck{
			"postgres": func(context.Context) error { return nil },
		})

		rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/health"))

		testutil.AssertStatusOK(t, rr)
		testutil.AssertJSONContains(t, rr, "status", "ok")
	})

	t.Run("failing check degrades", func(t *testing.T) {
		router := newTestRouter(map[string]HealthCheck{
			"postgres": func(context.Context) error { return nil },
			"redis":    func(context.Context) error { return errors.New("connection refused") },
		})

		rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/health"))

		testutil.AssertStatus(t, rr, http.StatusServiceUnavailable)
		resp := testutil.UnmarshalResponse[healthResponse](t, rr)
		assert.Equal(t, "degraded", resp.Status)
		assert.Equal(t, "ok", resp.Checks["postgres"])
		assert.Equal(t, "connection refused", resp.Checks["redis"])
	})
}

func TestFeatureRoutesRequireAuth(t *testing.T) {
	router := newTestRouter(nil)

	t.Run("missing token", func(t *testing.T) {
		rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/whoami"))
		testutil.AssertStatusAndError(t, rr, http.StatusUnauthorized, "unauthorized")
	})

	t.Run("valid token", func(t *testing.T) {
		req := testutil.NewRequest(t, http.MethodGet, "/whoami")
		req.Header.Set("Authorization", "Bearer good")

		rr := testutil.DoRequest(router, req)

		testutil.AssertStatusOK(t, rr)
		assert.Equal(t, "user-1", rr.Body.String())
		assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
	})
}

func TestMetricsEndpoint(t *testing.T) {
	router := newTestRouter(nil)

	req := testutil.NewRequest(t, http.MethodGet, "/whoami")
	req.Header.Set("Authorization", "Bearer good")
	testutil.DoRequest(router, req)

	rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/metrics"))

	testutil.AssertStatusOK(t, rr)
	body := rr.Body.String()
	require.True(t, strings.Contains(body, "pontes_http_requests_total"), "expected request counter in exposition")
	assert.Contains(t, body, `route="/whoami"`)
}

func TestRateLimitRunsAfterAuth(t *testing.T) {
	var seenUser string
	reg := prometheus.NewRegistry()
	router := NewRouter(Config{
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		Metrics:   metrics.New(reg),
		Validator: stubValidator{},
		RateLimit: func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seenUser = requestcontext.UserID(r.Context())
				next.ServeHTTP(w, r)
			})
		},
		Features: []Registrar{echoFeature{}},
	})

	req := testutil.NewRequest(t, http.MethodGet, "/whoami")
	req.Header.Set("Authorization", "Bearer good")
	rr := testutil.DoRequest(router, req)

	testutil.AssertStatusOK(t, rr)
	assert.Equal(t, "user-1", seenUser)

	rr = testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/metrics"))
	testutil.AssertStatus(t, rr, http.StatusNotFound)
}
