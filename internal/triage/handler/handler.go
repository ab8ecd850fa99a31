package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"pontes/internal/triage/catalog"
	"pontes/internal/triage/models"
	"pontes/internal/triage/service"
	dErrors "pontes/pkg/domain-errors"
	"pontes/pkg/platform/httputil"
	"pontes/pkg/requestcontext"
)

// maxAnswerBodyBytes bounds a set-answer request body.
const maxAnswerBodyBytes = 64 << 10

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

// Service defines the triage operations exposed over HTTP.
type Service interface {
	Catalog() *catalog.Catalog
	GetSession(ctx context.Context, userID string) (*service.SessionView, error)
	SetAnswer(ctx context.Context, userID, questionID string, value models.Value) (*service.SessionView, error)
	ClearAnswer(ctx context.Context, userID, questionID string) (*service.SessionView, error)
	Advance(ctx context.Context, userID string) (*service.NavigationResult, error)
	Retreat(ctx context.Context, userID string) (*service.NavigationResult, error)
	Submit(ctx context.Context, userID string) (*models.Record, error)
	ResetDraft(ctx context.Context, userID string) error
	Status(ctx context.Context, userID string) (*models.Status, error)
	Record(ctx context.Context, userID string) (*models.Record, error)
	IsCompleted(ctx context.Context, userID string) (bool, error)
}

// Handler handles triage endpoints. Routes expect RequireAuth upstream.
type Handler struct {
	logger *slog.Logger
	triage Service
}

// New creates a new triage Handler.
func New(triage Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, triage: triage}
}

// Register registers the triage routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/triage", func(r chi.Router) {
		r.Get("/catalog", h.handleGetCatalog)
		r.Get("/session", h.handleGetSession)
		r.Delete("/session", h.handleResetSession)
		r.Put("/session/answers/{questionID}", h.handleSetAnswer)
		r.Delete("/session/answers/{questionID}", h.handleClearAnswer)
		r.Post("/session/advance", h.handleAdvance)
		r.Post("/session/retreat", h.handleRetreat)
		r.Post("/submit", h.handleSubmit)
		r.Get("/status", h.handleStatus)
		r.Get("/record", h.handleGetRecord)
		r.With(RequireCompletedTriage(h.triage, h.logger)).Get("/gate", h.handleGate)
	})
}

func (h *Handler) handleGetCatalog(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, h.triage.Catalog())
}

func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	view, err := h.triage.GetSession(ctx, requestcontext.UserID(ctx))
	if err != nil {
		h.fail(ctx, w, "failed to load triage session", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, view)
}

func (h *Handler) handleResetSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.triage.ResetDraft(ctx, requestcontext.UserID(ctx)); err != nil {
		h.fail(ctx, w, "failed to reset triage session", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleSetAnswer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	questionID := chi.URLParam(r, "questionID")

	var req models.SetAnswerRequest
	body := http.MaxBytesReader(w, r.Body, maxAnswerBodyBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid set answer request",
			"request_id", requestcontext.RequestID(ctx),
			"question_id", questionID,
			"error", err.Error(),
		)
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "request body too large"))
			return
		}
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if err := req.Validate(); err != nil {
		httputil.WriteError(w, err)
		return
	}

	view, err := h.triage.SetAnswer(ctx, requestcontext.UserID(ctx), questionID, *req.Value)
	if err != nil {
		h.fail(ctx, w, "failed to set answer", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, view)
}

func (h *Handler) handleClearAnswer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	view, err := h.triage.ClearAnswer(ctx, requestcontext.UserID(ctx), chi.URLParam(r, "questionID"))
	if err != nil {
		h.fail(ctx, w, "failed to clear answer", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, view)
}

func (h *Handler) handleAdvance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	res, err := h.triage.Advance(ctx, requestcontext.UserID(ctx))
	if err != nil {
		h.fail(ctx, w, "failed to advance triage", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) handleRetreat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	res, err := h.triage.Retreat(ctx, requestcontext.UserID(ctx))
	if err != nil {
		h.fail(ctx, w, "failed to retreat triage", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	rec, err := h.triage.Submit(ctx, requestcontext.UserID(ctx))
	if err != nil {
		h.fail(ctx, w, "failed to submit triage", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, rec)
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	status, err := h.triage.Status(ctx, requestcontext.UserID(ctx))
	if err != nil {
		h.fail(ctx, w, "failed to load triage status", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, status)
}

func (h *Handler) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	rec, err := h.triage.Record(ctx, requestcontext.UserID(ctx))
	if err != nil {
		h.fail(ctx, w, "failed to load triage record", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, rec)
}

// handleGate answers 204 once the caller has completed the triage. Clients
// use it to decide whether to redirect to the questionnaire.
func (h *Handler) handleGate(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

// fail logs server-side failures at error level and client mistakes at warn,
// then renders the coded error.
func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	attrs := []any{
		"request_id", requestcontext.RequestID(ctx),
		"user_id", requestcontext.UserID(ctx),
		"error", err.Error(),
	}
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, msg, attrs...)
	} else {
		h.logger.WarnContext(ctx, msg, attrs...)
	}
	httputil.WriteError(w, err)
}
