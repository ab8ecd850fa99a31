package service

import (
	"context"
	"errors"

	"pontes/internal/triage/engine"
	"pontes/internal/triage/models"
	dErrors "pontes/pkg/domain-errors"
	"pontes/pkg/platform/sentinel"
)

// loadSession rebuilds the caller's session. Sources, in order: the live
// draft; otherwise the answers of a previous submission, so a returning user
// starts prefilled; otherwise an empty session.
func (s *Service) loadSession(ctx context.Context, userID string) (*engine.Session, error) {
	if userID == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "missing user")
	}

	draft, err := s.drafts.Get(ctx, userID)
	switch {
	case err == nil:
		return s.restoreDraft(ctx, draft), nil
	case !errors.Is(err, sentinel.ErrNotFound):
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load draft")
	}

	rec, err := s.records.FindByUserID(ctx, userID)
	switch {
	case err == nil:
		return s.restartFrom(rec.Answers), nil
	case errors.Is(err, sentinel.ErrNotFound):
		return engine.NewSession(s.catalog), nil
	default:
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load triage")
	}
}

// restoreDraft resumes a draft. A draft saved against another catalog
// version keeps its answers but restarts at the first visible step, since
// its cursor may point at a different step now.
func (s *Service) restoreDraft(ctx context.Context, draft *models.Draft) *engine.Session {
	if draft.CatalogVersion == s.catalog.Version {
		session, err := engine.Restore(s.catalog, draft.Answers, draft.StepIndex)
		if err == nil {
			return session
		}
		s.logger.WarnContext(ctx, "discarding invalid draft cursor",
			"user_id", draft.UserID,
			"step_index", draft.StepIndex,
			"error", err,
		)
	} else {
		s.logger.InfoContext(ctx, "draft saved against another catalog version",
			"user_id", draft.UserID,
			"draft_version", draft.CatalogVersion,
			"catalog_version", s.catalog.Version,
		)
	}
	return s.restartFrom(draft.Answers)
}

func (s *Service) restartFrom(answers models.Answers) *engine.Session {
	first := engine.NextVisibleIndex(s.catalog, -1, answers)
	session, err := engine.Restore(s.catalog, answers, first)
	if err != nil {
		return engine.NewSession(s.catalog)
	}
	return session
}

func (s *Service) saveSession(ctx context.Context, userID string, session *engine.Session) error {
	draft := &models.Draft{
		UserID:         userID,
		CatalogVersion: s.catalog.Version,
		StepIndex:      session.Current(),
		Answers:        session.Answers(),
		UpdatedAt:      s.now(ctx),
	}
	if err := s.drafts.Save(ctx, draft); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save draft")
	}
	return nil
}
