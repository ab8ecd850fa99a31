package service

import (
	"pontes/internal/triage/catalog"
	"pontes/internal/triage/engine"
	"pontes/internal/triage/models"
)

// SessionView is what the UI needs to render the current step.
type SessionView struct {
	CatalogVersion  string             `json:"catalog_version"`
	StepIndex       int                `json:"step_index"`
	StepID          string             `json:"step_id"`
	TotalSteps      int                `json:"total_steps"`
	Questions       []catalog.Question `json:"questions"`
	Answers         models.Answers     `json:"answers"`
	MissingRequired []string           `json:"missing_required"`
	CanAdvance      bool               `json:"can_advance"`
	CanRetreat      bool               `json:"can_retreat"`
	IsTerminal      bool               `json:"is_terminal"`
	Progress        float64            `json:"progress"`
}

// NavigationResult reports a navigation attempt. Record is set when an
// advance on the terminal step submitted the questionnaire.
type NavigationResult struct {
	Result  string         `json:"result"`
	Session *SessionView   `json:"session,omitempty"`
	Record  *models.Record `json:"record,omitempty"`
}

// Retreat results.
const (
	RetreatMoved   = "moved"
	RetreatAtStart = "at_start"
)

func newSessionView(s *engine.Session) *SessionView {
	c := s.Catalog()
	step := s.CurrentStep()
	answers := s.Answers()
	missing := engine.MissingRequired(step, answers)
	if missing == nil {
		missing = []string{}
	}
	return &SessionView{
		CatalogVersion:  c.Version,
		StepIndex:       s.Current(),
		StepID:          step.ID,
		TotalSteps:      c.Len(),
		Questions:       s.VisibleQuestions(),
		Answers:         answers,
		MissingRequired: missing,
		CanAdvance:      s.CanAdvance(),
		CanRetreat:      engine.PrevVisibleIndex(c, s.Current(), answers) != engine.None,
		IsTerminal:      s.IsTerminal(),
		Progress:        s.ProgressFraction(),
	}
}
