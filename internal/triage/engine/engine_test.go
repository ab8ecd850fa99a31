package engine

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"pontes/internal/triage/catalog"
	"pontes/internal/triage/models"
	dErrors "pontes/pkg/domain-errors"
)

// threeSteps: step "extra" is shown only to users answering "no" first.
const threeSteps = `
version: "t"
pivot: {question: here, branches: {"yes": resident, "no": not_arrived}}
steps:
  - id: first
    questions:
      - {id: here, kind: single-choice, required: true, options: ["yes", "no"]}
      - {id: reason, kind: free-text, required: true, depends_on: {question: here, equals: "yes"}}
  - id: extra
    questions:
      - {id: plans, kind: free-text, required: true, depends_on: {question: here, equals: "no"}}
  - id: last
    questions:
      - {id: tags, kind: multi-choice, options: [a, b, c]}
      - {id: born, kind: date}
      - {id: phone, kind: phone}
      - {id: notes, kind: long-text}
`

func mustLoad(t *testing.T, doc string) *catalog.Catalog {
	t.Helper()
	c, err := catalog.Load([]byte(doc))
	require.NoError(t, err)
	return c
}

type EngineSuite struct {
	suite.Suite
	catalog *catalog.Catalog
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineSuite))
}

func (s *EngineSuite) SetupTest() {
	s.catalog = mustLoad(s.T(), threeSteps)
}

// =============================================================================
// Visibility
// =============================================================================

func (s *EngineSuite) TestVisibility() {
	first := s.catalog.Step(0)
	reason := first.Questions[1]

	s.Run("unconditional question is always visible", func() {
		s.True(IsQuestionVisible(first.Questions[0], models.Answers{}))
	})

	s.Run("unanswered dependency hides the question", func() {
		s.False(IsQuestionVisible(reason, models.Answers{}))
	})

	s.Run("match is exact", func() {
		s.True(IsQuestionVisible(reason, models.Answers{"here": models.Text("yes")}))
		s.False(IsQuestionVisible(reason, models.Answers{"here": models.Text("Yes")}))
		s.False(IsQuestionVisible(reason, models.Answers{"here": models.List("yes")}))
	})

	s.Run("step with no visible questions is invisible", func() {
		s.False(IsStepVisible(s.catalog.Step(1), models.Answers{"here": models.Text("yes")}))
		s.True(IsStepVisible(s.catalog.Step(1), models.Answers{"here": models.Text("no")}))
	})

	s.Run("evaluation is pure", func() {
		answers := models.Answers{"here": models.Text("yes")}
		snapshot := answers.Clone()

		once := VisibleQuestions(s.catalog.Step(0), answers)
		twice := VisibleQuestions(s.catalog.Step(0), answers)

		s.Equal(once, twice)
		s.True(answers.Equal(snapshot))
		s.Len(once, 2)
	})
}

// =============================================================================
// Completion gate
// =============================================================================

func (s *EngineSuite) TestCanAdvance() {
	first := s.catalog.Step(0)

	s.Run("required visible question blocks", func() {
		answers := models.Answers{"here": models.Text("yes")}
		s.False(CanAdvance(first, answers))
		s.Equal([]string{"reason"}, MissingRequired(first, answers))
	})

	s.Run("blank string counts as unanswered", func() {
		s.False(CanAdvance(first, models.Answers{"here": models.Text("yes"), "reason": models.Text("  ")}))
	})

	s.Run("required question hidden by a flipped dependency stops blocking", func() {
		session := NewSession(s.catalog)
		s.Require().NoError(session.SetAnswer("here", models.Text("yes")))
		s.False(session.CanAdvance())

		s.Require().NoError(session.SetAnswer("here", models.Text("no")))
		s.True(session.CanAdvance())
	})

	s.Run("optional questions never block", func() {
		s.True(CanAdvance(s.catalog.Step(2), models.Answers{}))
	})
}

// =============================================================================
// Navigation
// =============================================================================

func (s *EngineSuite) TestNavigationScans() {
	yes := models.Answers{"here": models.Text("yes")}
	no := models.Answers{"here": models.Text("no")}

	s.Run("skips invisible steps forward and backward", func() {
		s.Equal(2, NextVisibleIndex(s.catalog, 0, yes))
		s.Equal(0, PrevVisibleIndex(s.catalog, 2, yes))
		s.Equal(1, NextVisibleIndex(s.catalog, 0, no))
	})

	s.Run("returns None past either end", func() {
		s.Equal(None, NextVisibleIndex(s.catalog, 2, yes))
		s.Equal(None, PrevVisibleIndex(s.catalog, 0, yes))
		s.Equal(0, NextVisibleIndex(s.catalog, -1, yes))
	})

	s.Run("forward and backward scans are symmetric", func() {
		for _, answers := range []models.Answers{yes, no, {}} {
			for i := 0; i < s.catalog.Len(); i++ {
				if !IsStepVisible(s.catalog.Step(i), answers) {
					continue
				}
				next := NextVisibleIndex(s.catalog, i, answers)
				if next == None {
					continue
				}
				s.Equal(i, PrevVisibleIndex(s.catalog, next, answers))
			}
		}
	})
}

func (s *EngineSuite) TestSessionWalk() {
	s.Run("answering yes skips the conditional step and reaches full progress", func() {
		session := NewSession(s.catalog)
		s.Equal(0, session.Current())
		s.InDelta(1.0/3.0, session.ProgressFraction(), 1e-9)

		s.Require().NoError(session.SetAnswer("here", models.Text("yes")))
		s.Require().NoError(session.SetAnswer("reason", models.Text("work")))
		s.Equal(AdvanceMoved, session.Advance())

		s.Equal(2, session.Current())
		s.Equal(1.0, session.ProgressFraction())
		s.True(session.IsTerminal())
	})

	s.Run("advance is refused while the gate is closed", func() {
		session := NewSession(s.catalog)
		s.Equal(AdvanceRefused, session.Advance())
		s.Equal(0, session.Current())
	})

	s.Run("advance on the terminal step asks for submission", func() {
		session := NewSession(s.catalog)
		s.Require().NoError(session.SetAnswer("here", models.Text("no")))
		s.Equal(AdvanceMoved, session.Advance())
		s.Equal(1, session.Current())
		s.Require().NoError(session.SetAnswer("plans", models.Text("study")))
		s.Equal(AdvanceMoved, session.Advance())
		s.Equal(AdvanceSubmit, session.Advance())
		s.Equal(2, session.Current())
		s.NoError(session.ReadyToSubmit())
	})

	s.Run("retreat never validates and stops at the first step", func() {
		session, err := Restore(s.catalog, models.Answers{"here": models.Text("yes")}, 2)
		s.Require().NoError(err)

		s.True(session.Retreat())
		s.Equal(0, session.Current())
		s.False(session.Retreat())
		s.Equal(0, session.Current())
	})

	s.Run("cursor stays on a step that became hidden", func() {
		session := NewSession(s.catalog)
		s.Require().NoError(session.SetAnswer("here", models.Text("no")))
		s.Equal(AdvanceMoved, session.Advance())

		s.Require().NoError(session.SetAnswer("here", models.Text("yes")))
		s.Equal(1, session.Current())
		s.True(session.Retreat())
		s.Equal(0, session.Current())
	})
}

func (s *EngineSuite) TestReadyToSubmit() {
	s.Run("not on the terminal step", func() {
		session := NewSession(s.catalog)
		err := session.ReadyToSubmit()
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("earlier visible step still incomplete", func() {
		session, err := Restore(s.catalog, models.Answers{"here": models.Text("yes")}, 2)
		s.Require().NoError(err)
		err = session.ReadyToSubmit()
		s.Require().Error(err)
		s.Contains(err.Error(), "reason")
	})

	s.Run("pivot value is exposed", func() {
		session := NewSession(s.catalog)
		_, ok := session.PivotValue()
		s.False(ok)
		s.Require().NoError(session.SetAnswer("here", models.Text("no")))
		value, ok := session.PivotValue()
		s.True(ok)
		s.Equal("no", value)
	})
}

func (s *EngineSuite) TestSetAnswer() {
	tests := []struct {
		name     string
		question string
		value    models.Value
		want     models.Value
		wantErr  bool
	}{
		{name: "unknown question", question: "nope", value: models.Text("x"), wantErr: true},
		{name: "option outside the list", question: "here", value: models.Text("maybe"), wantErr: true},
		{name: "list for a single choice", question: "here", value: models.List("yes"), wantErr: true},
		{name: "choice is trimmed", question: "here", value: models.Text(" yes "), want: models.Text("yes")},
		{name: "blank choice is stored unanswered", question: "here", value: models.Text(""), want: models.Text("")},
		{name: "scalar for a multi choice", question: "tags", value: models.Text("a"), wantErr: true},
		{name: "multi choice deduped", question: "tags", value: models.List(" a", "b", "a", ""), want: models.List("a", "b")},
		{name: "multi choice outside options", question: "tags", value: models.List("a", "z"), wantErr: true},
		{name: "valid date", question: "born", value: models.Text("1990-04-25"), want: models.Text("1990-04-25")},
		{name: "malformed date", question: "born", value: models.Text("25/04/1990"), wantErr: true},
		{name: "valid phone", question: "phone", value: models.Text("+351 912 345 678"), want: models.Text("+351 912 345 678")},
		{name: "malformed phone", question: "phone", value: models.Text("call me"), wantErr: true},
		{name: "long text keeps whitespace", question: "notes", value: models.Text("line one\n"), want: models.Text("line one\n")},
		{name: "free text at the limit", question: "reason", value: models.Text(strings.Repeat("é", MaxTextLength)), want: models.Text(strings.Repeat("é", MaxTextLength))},
		{name: "free text over the limit", question: "reason", value: models.Text(strings.Repeat("a", MaxTextLength+1)), wantErr: true},
		{name: "long text over the limit", question: "notes", value: models.Text(strings.Repeat("a", MaxLongTextLength+1)), wantErr: true},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			session := NewSession(s.catalog)
			err := session.SetAnswer(tt.question, tt.value)
			if tt.wantErr {
				s.True(dErrors.HasCode(err, dErrors.CodeValidation))
				s.Empty(session.Answers())
				return
			}
			s.Require().NoError(err)
			s.True(tt.want.Equal(session.Answers()[tt.question]), "got %v", session.Answers()[tt.question])
		})
	}

	s.Run("clear removes the answer", func() {
		session := NewSession(s.catalog)
		s.Require().NoError(session.SetAnswer("here", models.Text("yes")))
		s.Require().NoError(session.ClearAnswer("here"))
		s.False(session.Answers().Answered("here"))
		s.Error(session.ClearAnswer("nope"))
	})
}

func (s *EngineSuite) TestRestore() {
	s.Run("rejects an out of range cursor", func() {
		_, err := Restore(s.catalog, nil, 3)
		s.Error(err)
		_, err = Restore(s.catalog, nil, -1)
		s.Error(err)
	})

	s.Run("drops answers the catalog no longer declares", func() {
		session, err := Restore(s.catalog, models.Answers{"here": models.Text("no"), "legacy": models.Text("x")}, 0)
		s.Require().NoError(err)
		s.Len(session.Answers(), 1)
	})
}
