package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"pontes/internal/ratelimit/models"
	dErrors "pontes/pkg/domain-errors"
	"pontes/pkg/platform/circuit"
	"pontes/pkg/platform/httputil"
	"pontes/pkg/requestcontext"
)

// Limiter is satisfied by the bucket stores.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (*models.Result, error)
}

type Middleware struct {
	limiter  Limiter
	policy   models.Policy
	logger   *slog.Logger
	disabled bool
	fallback Limiter
	breaker  *circuit.Breaker
}

type Option func(*Middleware)

// WithDisabled disables rate limiting entirely (for tests and local runs).
func WithDisabled(disabled bool) Option {
	return func(m *Middleware) {
		m.disabled = disabled
	}
}

// WithFallback answers from fallback while breaker is open. The primary is
// still tried on every request so the breaker can close again.
func WithFallback(fallback Limiter, breaker *circuit.Breaker) Option {
	return func(m *Middleware) {
		m.fallback = fallback
		m.breaker = breaker
	}
}

func New(limiter Limiter, policy models.Policy, logger *slog.Logger, opts ...Option) *Middleware {
	m := &Middleware{
		limiter: limiter,
		policy:  policy,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.disabled {
		logger.Info("rate limiting disabled")
	}
	return m
}

// PerUser limits authenticated callers by user id. It must run after
// RequireAuth. Limiter failures let the request through.
func (m *Middleware) PerUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := requestcontext.UserID(ctx)
		if m.disabled || userID == "" {
			next.ServeHTTP(w, r)
			return
		}

		result, degraded, err := m.allow(ctx, models.UserKey(userID))
		if err != nil {
			m.logger.ErrorContext(ctx, "failed to check user rate limit",
				"error", err,
				"user_id", userID,
				"request_id", requestcontext.RequestID(ctx),
			)
			next.ServeHTTP(w, r)
			return
		}

		addRateLimitHeaders(w, result)
		if degraded {
			w.Header().Set("X-RateLimit-Status", "degraded")
		}
		if !result.Allowed {
			m.logger.WarnContext(ctx, "user rate limit exceeded",
				"user_id", userID,
				"request_id", requestcontext.RequestID(ctx),
			)
			w.Header().Set("Retry-After", strconv.Itoa(result.RetryAfter))
			httputil.WriteError(w, dErrors.New(dErrors.CodeRateLimited, "too many requests, try again later"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (m *Middleware) allow(ctx context.Context, key string) (*models.Result, bool, error) {
	result, err := m.limiter.Allow(ctx, key, m.policy.Limit, m.policy.Window)
	if m.breaker == nil || m.fallback == nil {
		return result, false, err
	}

	if err == nil {
		usePrimary, change := m.breaker.RecordSuccess()
		if change.Closed {
			m.logger.InfoContext(ctx, "rate limit circuit closed", "breaker", m.breaker.Name())
		}
		if usePrimary {
			return result, false, nil
		}
	} else {
		useFallback, change := m.breaker.RecordFailure()
		if change.Opened {
			m.logger.WarnContext(ctx, "rate limit circuit opened, using in-memory fallback",
				"breaker", m.breaker.Name(),
				"error", err,
			)
		}
		if !useFallback {
			return nil, false, err
		}
	}

	result, err = m.fallback.Allow(ctx, key, m.policy.Limit, m.policy.Window)
	return result, true, err
}

func addRateLimitHeaders(w http.ResponseWriter, result *models.Result) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
}
