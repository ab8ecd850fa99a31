package handler

import (
	"context"
	"log/slog"
	"net/http"

	dErrors "pontes/pkg/domain-errors"
	"pontes/pkg/platform/httputil"
	"pontes/pkg/requestcontext"
)

// CompletionChecker reports whether a user finished the triage.
type CompletionChecker interface {
	IsCompleted(ctx context.Context, userID string) (bool, error)
}

// RequireCompletedTriage rejects callers without a completed triage with 403
// triage_required. It must run after RequireAuth.
func RequireCompletedTriage(checker CompletionChecker, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			userID := requestcontext.UserID(ctx)
			if userID == "" {
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing user"))
				return
			}

			completed, err := checker.IsCompleted(ctx, userID)
			if err != nil {
				logger.ErrorContext(ctx, "failed to check triage completion",
					"request_id", requestcontext.RequestID(ctx),
					"user_id", userID,
					"error", err,
				)
				httputil.WriteError(w, err)
				return
			}
			if !completed {
				httputil.WriteError(w, dErrors.New(dErrors.CodeTriageRequired, "complete the intake questionnaire first"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
