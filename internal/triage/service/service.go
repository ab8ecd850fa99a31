// Package service orchestrates the triage questionnaire: it rebuilds a user's
// session from the draft store, applies answer and navigation commands, and
// on submission maps the answers and writes them through the record store.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"pontes/internal/audit"
	"pontes/internal/triage/catalog"
	"pontes/internal/triage/engine"
	"pontes/internal/triage/mapper"
	"pontes/internal/triage/metrics"
	"pontes/internal/triage/models"
	dErrors "pontes/pkg/domain-errors"
	"pontes/pkg/platform/sentinel"
	"pontes/pkg/requestcontext"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks RecordStore,DraftStore,AuditPublisher

// RecordStore is the persistence gateway for completed triages.
type RecordStore interface {
	FindByUserID(ctx context.Context, userID string) (*models.Record, error)
	Upsert(ctx context.Context, rec *models.Record) (*models.Record, error)
}

// DraftStore keeps in-progress sessions between requests.
type DraftStore interface {
	Get(ctx context.Context, userID string) (*models.Draft, error)
	Save(ctx context.Context, draft *models.Draft) error
	Delete(ctx context.Context, userID string) error
}

type AuditPublisher interface {
	Emit(ctx context.Context, base audit.Event) error
}

// Service orchestrates triage sessions and submissions.
type Service struct {
	catalog        *catalog.Catalog
	mapper         *mapper.Mapper
	records        RecordStore
	drafts         DraftStore
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
	tracer         trace.Tracer
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = tracer
	}
}

// New constructs a Service.
func New(c *catalog.Catalog, records RecordStore, drafts DraftStore, opts ...Option) (*Service, error) {
	if c == nil {
		return nil, errors.New("catalog is required")
	}
	if records == nil {
		return nil, errors.New("record store is required")
	}
	if drafts == nil {
		return nil, errors.New("draft store is required")
	}
	s := &Service{
		catalog: c,
		mapper:  mapper.New(c.Pivot.Branches),
		records: records,
		drafts:  drafts,
		logger:  slog.Default(),
		tracer:  otel.Tracer("pontes/triage"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Catalog returns the questionnaire served by this instance.
func (s *Service) Catalog() *catalog.Catalog {
	return s.catalog
}

// GetSession returns the caller's current step, starting a session if none
// exists.
func (s *Service) GetSession(ctx context.Context, userID string) (*SessionView, error) {
	session, err := s.loadSession(ctx, userID)
	if err != nil {
		return nil, err
	}
	return newSessionView(session), nil
}

// SetAnswer validates and stores one answer, then saves the draft.
func (s *Service) SetAnswer(ctx context.Context, userID, questionID string, value models.Value) (*SessionView, error) {
	session, err := s.loadSession(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := session.SetAnswer(questionID, value); err != nil {
		return nil, err
	}
	if err := s.saveSession(ctx, userID, session); err != nil {
		return nil, err
	}
	return newSessionView(session), nil
}

// ClearAnswer removes one answer, then saves the draft.
func (s *Service) ClearAnswer(ctx context.Context, userID, questionID string) (*SessionView, error) {
	session, err := s.loadSession(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := session.ClearAnswer(questionID); err != nil {
		return nil, err
	}
	if err := s.saveSession(ctx, userID, session); err != nil {
		return nil, err
	}
	return newSessionView(session), nil
}

// Advance moves to the next visible step. On the terminal step it submits,
// under the same checks as Submit.
// A refused advance is not an error; the result says so and nothing changes.
func (s *Service) Advance(ctx context.Context, userID string) (*NavigationResult, error) {
	session, err := s.loadSession(ctx, userID)
	if err != nil {
		return nil, err
	}

	result := session.Advance()
	s.metrics.IncrementTransition("advance", string(result))
	switch result {
	case engine.AdvanceRefused:
		return &NavigationResult{Result: string(result), Session: newSessionView(session)}, nil
	case engine.AdvanceSubmit:
		if err := session.ReadyToSubmit(); err != nil {
			s.metrics.IncrementSubmitFailure("incomplete")
			return nil, err
		}
		rec, err := s.submit(ctx, userID, session)
		if err != nil {
			return nil, err
		}
		return &NavigationResult{Result: string(result), Record: rec}, nil
	}

	if err := s.saveSession(ctx, userID, session); err != nil {
		return nil, err
	}
	return &NavigationResult{Result: string(result), Session: newSessionView(session)}, nil
}

// Retreat moves to the previous visible step without validation.
func (s *Service) Retreat(ctx context.Context, userID string) (*NavigationResult, error) {
	session, err := s.loadSession(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !session.Retreat() {
		s.metrics.IncrementTransition("retreat", RetreatAtStart)
		return &NavigationResult{Result: RetreatAtStart, Session: newSessionView(session)}, nil
	}
	s.metrics.IncrementTransition("retreat", RetreatMoved)
	if err := s.saveSession(ctx, userID, session); err != nil {
		return nil, err
	}
	return &NavigationResult{Result: RetreatMoved, Session: newSessionView(session)}, nil
}

// Submit confirms the questionnaire from its terminal step.
func (s *Service) Submit(ctx context.Context, userID string) (*models.Record, error) {
	session, err := s.loadSession(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := session.ReadyToSubmit(); err != nil {
		s.metrics.IncrementSubmitFailure("incomplete")
		return nil, err
	}
	return s.submit(ctx, userID, session)
}

// ResetDraft discards the caller's in-progress answers.
func (s *Service) ResetDraft(ctx context.Context, userID string) error {
	if userID == "" {
		return dErrors.New(dErrors.CodeUnauthorized, "missing user")
	}
	if err := s.drafts.Delete(ctx, userID); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to reset draft")
	}
	s.logAudit(ctx, string(audit.EventTriageDraftReset), "user_id", userID)
	return nil
}

// Record returns the caller's persisted triage.
func (s *Service) Record(ctx context.Context, userID string) (*models.Record, error) {
	if userID == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "missing user")
	}
	rec, err := s.records.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "triage not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load triage")
	}
	return rec, nil
}

// IsCompleted reports whether the caller has a completed triage record.
// No record means not completed.
func (s *Service) IsCompleted(ctx context.Context, userID string) (bool, error) {
	rec, err := s.records.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return false, nil
		}
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load triage")
	}
	return rec.Completed, nil
}

func (s *Service) now(ctx context.Context) time.Time {
	return requestcontext.Now(ctx)
}
