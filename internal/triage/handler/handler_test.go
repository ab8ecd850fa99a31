package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"pontes/internal/triage/catalog"
	"pontes/internal/triage/handler/mocks"
	"pontes/internal/triage/models"
	"pontes/internal/triage/service"
	dErrors "pontes/pkg/domain-errors"
	"pontes/pkg/testutil"
)

const testUser = "user-123"

type TriageHandlerSuite struct {
	suite.Suite
	svc    *mocks.MockService
	router chi.Router
}

func TestTriageHandlerSuite(t *testing.T) {
	suite.Run(t, new(TriageHandlerSuite))
}

func (s *TriageHandlerSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.T().Cleanup(ctrl.Finish)
	s.svc = mocks.NewMockService(ctrl)

	h := New(s.svc, slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.router = chi.NewRouter()
	h.Register(s.router)
}

func (s *TriageHandlerSuite) TestGetCatalog() {
	c, err := catalog.Default()
	s.Require().NoError(err)
	s.svc.EXPECT().Catalog().Return(c)

	rr := testutil.DoRequest(s.router, testutil.WithUserID(testutil.NewRequest(s.T(), http.MethodGet, "/triage/catalog"), testUser))

	testutil.AssertStatusOK(s.T(), rr)
	resp := testutil.UnmarshalResponse[catalog.Catalog](s.T(), rr)
	s.Equal(c.Version, resp.Version)
	s.Len(resp.Steps, c.Len())
}

func (s *TriageHandlerSuite) TestGetSession() {
	s.svc.EXPECT().GetSession(gomock.Any(), testUser).Return(&service.SessionView{
		CatalogVersion: "2026.1",
		StepID:         "situation",
		TotalSteps:     8,
		CanAdvance:     false,
	}, nil)

	rr := testutil.DoRequest(s.router, testutil.WithUserID(testutil.NewRequest(s.T(), http.MethodGet, "/triage/session"), testUser))

	testutil.AssertStatusOK(s.T(), rr)
	view := testutil.UnmarshalResponse[service.SessionView](s.T(), rr)
	s.Equal("situation", view.StepID)
	s.Equal(8, view.TotalSteps)
}

func (s *TriageHandlerSuite) TestSetAnswer() {
	s.Run("scalar value", func() {
		s.svc.EXPECT().
			SetAnswer(gomock.Any(), testUser, "in_portugal", models.Text("yes")).
			Return(&service.SessionView{StepID: "situation", CanAdvance: true}, nil)

		req := testutil.NewRequestWithBody(s.T(), http.MethodPut, "/triage/session/answers/in_portugal", `{"value":"yes"}`)
		rr := testutil.DoRequest(s.router, testutil.WithUserID(req, testUser))

		testutil.AssertStatusOK(s.T(), rr)
		testutil.AssertJSONContains(s.T(), rr, "can_advance", true)
	})

	s.Run("list value", func() {
		s.svc.EXPECT().
			SetAnswer(gomock.Any(), testUser, "interests", models.List("employment", "housing")).
			Return(&service.SessionView{StepID: "interests"}, nil)

		req := testutil.NewRequestWithBody(s.T(), http.MethodPut, "/triage/session/answers/interests", `{"value":["employment","housing"]}`)
		rr := testutil.DoRequest(s.router, testutil.WithUserID(req, testUser))

		testutil.AssertStatusOK(s.T(), rr)
	})

	s.Run("malformed body", func() {
		req := testutil.NewRequestWithBody(s.T(), http.MethodPut, "/triage/session/answers/in_portugal", `{"value":`)
		rr := testutil.DoRequest(s.router, testutil.WithUserID(req, testUser))

		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, string(dErrors.CodeBadRequest))
	})

	s.Run("oversized body", func() {
		body := `{"value":"` + strings.Repeat("a", maxAnswerBodyBytes) + `"}`
		req := testutil.NewRequestWithBody(s.T(), http.MethodPut, "/triage/session/answers/notes", body)
		rr := testutil.DoRequest(s.router, testutil.WithUserID(req, testUser))

		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, string(dErrors.CodeBadRequest))
		s.Contains(rr.Body.String(), "request body too large")
	})

	s.Run("missing value", func() {
		req := testutil.NewRequestWithBody(s.T(), http.MethodPut, "/triage/session/answers/in_portugal", `{}`)
		rr := testutil.DoRequest(s.router, testutil.WithUserID(req, testUser))

		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, string(dErrors.CodeBadRequest))
	})

	s.Run("validation failure", func() {
		s.svc.EXPECT().
			SetAnswer(gomock.Any(), testUser, "in_portugal", models.Text("maybe")).
			Return(nil, dErrors.New(dErrors.CodeValidation, "value is not an option"))

		req := testutil.NewRequestWithBody(s.T(), http.MethodPut, "/triage/session/answers/in_portugal", `{"value":"maybe"}`)
		rr := testutil.DoRequest(s.router, testutil.WithUserID(req, testUser))

		testutil.AssertStatusAndError(s.T(), rr, http.StatusUnprocessableEntity, string(dErrors.CodeValidation))
	})
}

func (s *TriageHandlerSuite) TestClearAnswer() {
	s.svc.EXPECT().ClearAnswer(gomock.Any(), testUser, "notes").Return(&service.SessionView{StepID: "contact"}, nil)

	rr := testutil.DoRequest(s.router, testutil.WithUserID(testutil.NewRequest(s.T(), http.MethodDelete, "/triage/session/answers/notes"), testUser))

	testutil.AssertStatusOK(s.T(), rr)
}

func (s *TriageHandlerSuite) TestResetSession() {
	s.svc.EXPECT().ResetDraft(gomock.Any(), testUser).Return(nil)

	rr := testutil.DoRequest(s.router, testutil.WithUserID(testutil.NewRequest(s.T(), http.MethodDelete, "/triage/session"), testUser))

	testutil.AssertStatus(s.T(), rr, http.StatusNoContent)
}

func (s *TriageHandlerSuite) TestAdvance() {
	s.Run("refused advance is not an error", func() {
		s.svc.EXPECT().Advance(gomock.Any(), testUser).Return(&service.NavigationResult{
			Result:  "refused",
			Session: &service.SessionView{StepID: "situation", MissingRequired: []string{"in_portugal"}},
		}, nil)

		rr := testutil.DoRequest(s.router, testutil.WithUserID(testutil.NewRequest(s.T(), http.MethodPost, "/triage/session/advance"), testUser))

		testutil.AssertStatusOK(s.T(), rr)
		testutil.AssertJSONContains(s.T(), rr, "result", "refused")
	})

	s.Run("submit failure surfaces as internal error", func() {
		s.svc.EXPECT().Advance(gomock.Any(), testUser).
			Return(nil, dErrors.Wrap(errors.New("connection reset"), dErrors.CodeInternal, "failed to persist triage"))

		rr := testutil.DoRequest(s.router, testutil.WithUserID(testutil.NewRequest(s.T(), http.MethodPost, "/triage/session/advance"), testUser))

		testutil.AssertStatusAndError(s.T(), rr, http.StatusInternalServerError, string(dErrors.CodeInternal))
		s.NotContains(rr.Body.String(), "connection reset")
	})
}

func (s *TriageHandlerSuite) TestRetreat() {
	s.svc.EXPECT().Retreat(gomock.Any(), testUser).Return(&service.NavigationResult{Result: service.RetreatAtStart}, nil)

	rr := testutil.DoRequest(s.router, testutil.WithUserID(testutil.NewRequest(s.T(), http.MethodPost, "/triage/session/retreat"), testUser))

	testutil.AssertStatusOK(s.T(), rr)
	testutil.AssertJSONContains(s.T(), rr, "result", service.RetreatAtStart)
}

func (s *TriageHandlerSuite) TestSubmit() {
	completedAt := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	s.svc.EXPECT().Submit(gomock.Any(), testUser).Return(&models.Record{
		UserID:      testUser,
		Branch:      models.BranchResident,
		Completed:   true,
		CompletedAt: &completedAt,
		Interests:   []string{},
		Urgencies:   []string{},
	}, nil)

	rr := testutil.DoRequest(s.router, testutil.WithUserID(testutil.NewRequest(s.T(), http.MethodPost, "/triage/submit"), testUser))

	testutil.AssertStatusOK(s.T(), rr)
	rec := testutil.UnmarshalResponse[models.Record](s.T(), rr)
	s.True(rec.Completed)
	s.Equal(models.BranchResident, rec.Branch)
}

func (s *TriageHandlerSuite) TestStatus() {
	s.svc.EXPECT().Status(gomock.Any(), testUser).Return(&models.Status{HasDraft: true}, nil)

	rr := testutil.DoRequest(s.router, testutil.WithUserID(testutil.NewRequest(s.T(), http.MethodGet, "/triage/status"), testUser))

	testutil.AssertStatusOK(s.T(), rr)
	testutil.AssertJSONContains(s.T(), rr, "completed", false)
}

func (s *TriageHandlerSuite) TestGetRecord() {
	s.svc.EXPECT().Record(gomock.Any(), testUser).Return(nil, dErrors.New(dErrors.CodeNotFound, "no triage record"))

	rr := testutil.DoRequest(s.router, testutil.WithUserID(testutil.NewRequest(s.T(), http.MethodGet, "/triage/record"), testUser))

	testutil.AssertStatusAndError(s.T(), rr, http.StatusNotFound, string(dErrors.CodeNotFound))
}

func (s *TriageHandlerSuite) TestGate() {
	s.Run("completed user passes", func() {
		s.svc.EXPECT().IsCompleted(gomock.Any(), testUser).Return(true, nil)

		rr := testutil.DoRequest(s.router, testutil.WithUserID(testutil.NewRequest(s.T(), http.MethodGet, "/triage/gate"), testUser))

		testutil.AssertStatus(s.T(), rr, http.StatusNoContent)
	})

	s.Run("incomplete user is redirected to triage", func() {
		s.svc.EXPECT().IsCompleted(gomock.Any(), testUser).Return(false, nil)

		rr := testutil.DoRequest(s.router, testutil.WithUserID(testutil.NewRequest(s.T(), http.MethodGet, "/triage/gate"), testUser))

		testutil.AssertStatusAndError(s.T(), rr, http.StatusForbidden, string(dErrors.CodeTriageRequired))
	})

	s.Run("anonymous caller is rejected", func() {
		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/triage/gate"))

		testutil.AssertStatusAndError(s.T(), rr, http.StatusUnauthorized, string(dErrors.CodeUnauthorized))
	})
}
