package service

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"pontes/internal/audit"
	"pontes/internal/triage/engine"
	"pontes/internal/triage/models"
	dErrors "pontes/pkg/domain-errors"
)

// submit maps the session's answers and writes the record. The draft is only
// touched after the gateway succeeded, so a failed submission can be retried
// from exactly the same state.
func (s *Service) submit(ctx context.Context, userID string, session *engine.Session) (*models.Record, error) {
	ctx, span := s.tracer.Start(ctx, "triage.Submit",
		trace.WithAttributes(
			attribute.String("catalog_version", s.catalog.Version),
		),
	)
	defer span.End()

	start := time.Now()
	defer func() {
		s.metrics.ObserveSubmitLatency(time.Since(start))
	}()

	pivot, _ := session.PivotValue()
	now := s.now(ctx)
	rec, err := s.mapper.Map(session.Answers(), pivot, now)
	if err != nil {
		s.metrics.IncrementSubmitFailure("mapping")
		span.RecordError(err)
		span.SetStatus(codes.Error, "mapping failed")
		return nil, err
	}
	span.SetAttributes(attribute.String("branch", string(rec.Branch)))

	rec.UserID = userID
	rec.CatalogVersion = s.catalog.Version
	rec.CreatedAt = now
	rec.UpdatedAt = now

	stored, err := s.records.Upsert(ctx, rec)
	if err != nil {
		s.metrics.IncrementSubmitFailure("gateway")
		span.RecordError(err)
		span.SetStatus(codes.Error, "persist failed")
		s.logAudit(ctx, string(audit.EventTriageSubmitFailed),
			"user_id", userID,
			"branch", string(rec.Branch),
			"reason", "gateway",
		)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist triage")
	}

	if err := s.drafts.Delete(ctx, userID); err != nil {
		s.logger.WarnContext(ctx, "failed to clear draft after submission",
			"user_id", userID,
			"error", err,
		)
	}

	s.metrics.IncrementSubmission(string(stored.Branch))
	s.logAudit(ctx, string(audit.EventTriageCompleted),
		"user_id", userID,
		"branch", string(stored.Branch),
	)
	return stored, nil
}
