package service

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"pontes/internal/triage/models"
	dErrors "pontes/pkg/domain-errors"
	"pontes/pkg/platform/sentinel"
)

// Status reports completion and whether a draft is pending. The record and
// the draft are read in parallel. Without a record the triage counts as not
// completed.
func (s *Service) Status(ctx context.Context, userID string) (*models.Status, error) {
	if userID == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "missing user")
	}
	ctx, span := s.tracer.Start(ctx, "triage.Status")
	defer span.End()

	var (
		rec      *models.Record
		hasDraft bool
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		found, err := s.records.FindByUserID(gctx, userID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return nil
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load triage")
		}
		rec = found
		return nil
	})
	g.Go(func() error {
		_, err := s.drafts.Get(gctx, userID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return nil
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load draft")
		}
		hasDraft = true
		return nil
	})
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		return nil, err
	}

	status := &models.Status{HasDraft: hasDraft}
	if rec != nil {
		status.Completed = rec.Completed
		status.CompletedAt = rec.CompletedAt
		status.Branch = rec.Branch
	}
	return status, nil
}
