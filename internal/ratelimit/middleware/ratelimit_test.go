package middleware

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"pontes/internal/ratelimit/models"
	"pontes/internal/ratelimit/store/bucket"
	"pontes/pkg/platform/circuit"
	"pontes/pkg/testutil"
)

type failingLimiter struct{}

func (failingLimiter) Allow(context.Context, string, int, time.Duration) (*models.Result, error) {
	return nil, errors.New("redis down")
}

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func newMiddleware(limiter Limiter, opts ...Option) *Middleware {
	return New(limiter, models.Policy{Limit: 2, Window: time.Minute}, slog.New(slog.NewTextHandler(io.Discard, nil)), opts...)
}

func TestPerUser(t *testing.T) {
	testutil.Given(t, "a limit of two requests per minute", func(t *testing.T) {
		handler := newMiddleware(bucket.NewInMemoryBucketStore()).PerUser(okHandler)

		testutil.When(t, "the user stays within the limit", func(t *testing.T) {
			req := testutil.WithUserID(testutil.NewRequest(t, http.MethodGet, "/triage/session"), "within")
			rr := testutil.DoRequest(handler, req)

			testutil.Then(t, "the request passes with quota headers", func(t *testing.T) {
				testutil.AssertStatusOK(t, rr)
				assert.Equal(t, "2", rr.Header().Get("X-RateLimit-Limit"))
				assert.Equal(t, "1", rr.Header().Get("X-RateLimit-Remaining"))
			})
		})

		testutil.When(t, "the user exceeds the limit", func(t *testing.T) {
			for range 2 {
				testutil.DoRequest(handler, testutil.WithUserID(testutil.NewRequest(t, http.MethodGet, "/triage/session"), "over"))
			}
			rr := testutil.DoRequest(handler, testutil.WithUserID(testutil.NewRequest(t, http.MethodGet, "/triage/session"), "over"))

			testutil.Then(t, "the request is rejected with 429", func(t *testing.T) {
				testutil.AssertStatusAndError(t, rr, http.StatusTooManyRequests, "rate_limit_exceeded")
				assert.NotEmpty(t, rr.Header().Get("Retry-After"))
			})
		})

		testutil.When(t, "another user calls", func(t *testing.T) {
			rr := testutil.DoRequest(handler, testutil.WithUserID(testutil.NewRequest(t, http.MethodGet, "/triage/session"), "someone-else"))

			testutil.Then(t, "their bucket is independent", func(t *testing.T) {
				testutil.AssertStatusOK(t, rr)
			})
		})
	})

	testutil.Given(t, "a failing limiter", func(t *testing.T) {
		handler := newMiddleware(failingLimiter{}).PerUser(okHandler)
		rr := testutil.DoRequest(handler, testutil.WithUserID(testutil.NewRequest(t, http.MethodGet, "/"), "u"))

		testutil.Then(t, "requests pass through", func(t *testing.T) {
			testutil.AssertStatusOK(t, rr)
		})
	})

	testutil.Given(t, "rate limiting is disabled", func(t *testing.T) {
		handler := newMiddleware(failingLimiter{}, WithDisabled(true)).PerUser(okHandler)
		rr := testutil.DoRequest(handler, testutil.WithUserID(testutil.NewRequest(t, http.MethodGet, "/"), "u"))

		testutil.Then(t, "no headers are set", func(t *testing.T) {
			testutil.AssertStatusOK(t, rr)
			assert.Empty(t, rr.Header().Get("X-RateLimit-Limit"))
		})
	})
}

type flakyLimiter struct {
	fail bool
}

func (l *flakyLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (*models.Result, error) {
	if l.fail {
		return nil, errors.New("redis down")
	}
	return &models.Result{Allowed: true, Limit: limit, Remaining: limit - 1, ResetAt: time.Now().Add(window)}, nil
}

func TestPerUserFallback(t *testing.T) {
	primary := &flakyLimiter{fail: true}
	breaker := circuit.New("ratelimit", circuit.WithFailureThreshold(2), circuit.WithSuccessThreshold(1))
	handler := newMiddleware(primary, WithFallback(bucket.NewInMemoryBucketStore(), breaker)).PerUser(okHandler)
	call := func() *httptest.ResponseRecorder {
		return testutil.DoRequest(handler, testutil.WithUserID(testutil.NewRequest(t, http.MethodGet, "/"), "u"))
	}

	testutil.When(t, "the primary fails below the threshold", func(t *testing.T) {
		rr := call()
		testutil.Then(t, "the request fails open without quota headers", func(t *testing.T) {
			testutil.AssertStatusOK(t, rr)
			assert.Empty(t, rr.Header().Get("X-RateLimit-Limit"))
			assert.False(t, breaker.IsOpen())
		})
	})

	testutil.When(t, "the breaker opens", func(t *testing.T) {
		rr := call()
		testutil.Then(t, "the fallback answers in degraded mode", func(t *testing.T) {
			testutil.AssertStatusOK(t, rr)
			assert.True(t, breaker.IsOpen())
			assert.Equal(t, "degraded", rr.Header().Get("X-RateLimit-Status"))
			assert.Equal(t, "2", rr.Header().Get("X-RateLimit-Limit"))
		})
	})

	testutil.When(t, "the fallback quota runs out", func(t *testing.T) {
		call()
		rr := call()
		testutil.Then(t, "the fallback enforces the policy", func(t *testing.T) {
			testutil.AssertStatusAndError(t, rr, http.StatusTooManyRequests, "rate_limit_exceeded")
		})
	})

	testutil.When(t, "the primary recovers", func(t *testing.T) {
		primary.fail = false
		rr := call()
		testutil.Then(t, "the breaker closes and the primary answers", func(t *testing.T) {
			testutil.AssertStatusOK(t, rr)
			assert.False(t, breaker.IsOpen())
			assert.Empty(t, rr.Header().Get("X-RateLimit-Status"))
		})
	})
}
