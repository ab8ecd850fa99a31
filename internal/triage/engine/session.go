package engine

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"pontes/internal/triage/catalog"
	"pontes/internal/triage/models"
	dErrors "pontes/pkg/domain-errors"
	pstrings "pontes/pkg/platform/strings"
)

var phonePattern = regexp.MustCompile(`^\+?[0-9][0-9 ()\-]{5,19}$`)

// Answer length limits, in characters.
const (
	MaxTextLength     = 500
	MaxLongTextLength = 5000
)

// Session is one user's walk through a catalog: the answer store and the
// current step cursor. It is not safe for concurrent use; callers rebuild it
// per request from the saved draft.
type Session struct {
	catalog *catalog.Catalog
	answers models.Answers
	current int
}

// NewSession starts at the first visible step with no answers.
func NewSession(c *catalog.Catalog) *Session {
	answers := models.Answers{}
	return &Session{
		catalog: c,
		answers: answers,
		current: NextVisibleIndex(c, -1, answers),
	}
}

// Restore rebuilds a session from saved answers and cursor. Answers to
// questions the catalog no longer declares are discarded. The cursor is kept
// even if its step is no longer visible; navigation never rewinds on its own.
func Restore(c *catalog.Catalog, answers models.Answers, index int) (*Session, error) {
	if index < 0 || index >= c.Len() {
		return nil, fmt.Errorf("step index %d out of range [0,%d)", index, c.Len())
	}
	kept := make(models.Answers, len(answers))
	for id, v := range answers {
		if _, ok := c.Question(id); ok {
			kept[id] = v
		}
	}
	return &Session{catalog: c, answers: kept, current: index}, nil
}

// Catalog returns the catalog the session walks.
func (s *Session) Catalog() *catalog.Catalog {
	return s.catalog
}

// Current returns the current step index.
func (s *Session) Current() int {
	return s.current
}

// CurrentStep returns the step under the cursor.
func (s *Session) CurrentStep() catalog.Step {
	return s.catalog.Step(s.current)
}

// Answers returns a copy of the answer store.
func (s *Session) Answers() models.Answers {
	return s.answers.Clone()
}

// VisibleQuestions returns the current step's visible questions.
func (s *Session) VisibleQuestions() []catalog.Question {
	return VisibleQuestions(s.CurrentStep(), s.answers)
}

// CanAdvance applies the completion gate to the current step.
func (s *Session) CanAdvance() bool {
	return CanAdvance(s.CurrentStep(), s.answers)
}

// IsTerminal reports whether no visible step follows the current one.
func (s *Session) IsTerminal() bool {
	return NextVisibleIndex(s.catalog, s.current, s.answers) == None
}

// ProgressFraction is (current+1)/total over all declared steps, visible or
// not, so it can jump when steps are skipped.
func (s *Session) ProgressFraction() float64 {
	return float64(s.current+1) / float64(s.catalog.Len())
}

// Advance moves to the next visible step when the gate allows it.
func (s *Session) Advance() AdvanceResult {
	if !s.CanAdvance() {
		return AdvanceRefused
	}
	next := NextVisibleIndex(s.catalog, s.current, s.answers)
	if next == None {
		return AdvanceSubmit
	}
	s.current = next
	return AdvanceMoved
}

// Retreat moves to the previous visible step without validation. It reports
// false when there is none.
func (s *Session) Retreat() bool {
	prev := PrevVisibleIndex(s.catalog, s.current, s.answers)
	if prev == None {
		return false
	}
	s.current = prev
	return true
}

// SetAnswer stores v for question id after checking it against the
// question's kind and options. Multi-choice lists are trimmed and
// de-duplicated. Answers to currently hidden questions are accepted and kept.
func (s *Session) SetAnswer(id string, v models.Value) error {
	q, ok := s.catalog.Question(id)
	if !ok {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("unknown question %q", id))
	}
	normalized, err := normalize(q, v)
	if err != nil {
		return err
	}
	s.answers[id] = normalized
	return nil
}

// ClearAnswer removes the answer to question id.
func (s *Session) ClearAnswer(id string) error {
	if _, ok := s.catalog.Question(id); !ok {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("unknown question %q", id))
	}
	delete(s.answers, id)
	return nil
}

// ReadyToSubmit checks that the cursor is on the terminal step and every
// visible step passes the completion gate.
func (s *Session) ReadyToSubmit() error {
	if !s.IsTerminal() {
		return dErrors.New(dErrors.CodeValidation, "questionnaire is not on its last step")
	}
	for i := 0; i < s.catalog.Len(); i++ {
		step := s.catalog.Step(i)
		if missing := MissingRequired(step, s.answers); len(missing) > 0 {
			return dErrors.New(dErrors.CodeValidation,
				fmt.Sprintf("step %q has unanswered required questions: %s", step.ID, strings.Join(missing, ", ")))
		}
	}
	return nil
}

// PivotValue returns the answer to the catalog's pivot question.
func (s *Session) PivotValue() (string, bool) {
	return s.answers.Scalar(s.catalog.Pivot.QuestionID)
}

func normalize(q catalog.Question, v models.Value) (models.Value, error) {
	invalid := func(format string, args ...any) error {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("question %q: ", q.ID)+fmt.Sprintf(format, args...))
	}

	if q.Kind == catalog.KindMultiChoice {
		if !v.IsList() {
			return models.Value{}, invalid("expects a list of options")
		}
		values := pstrings.DedupeAndTrim(v.Strings())
		for _, value := range values {
			if !q.HasOption(value) {
				return models.Value{}, invalid("%q is not an option", value)
			}
		}
		return models.List(values...), nil
	}

	if v.IsList() {
		return models.Value{}, invalid("expects a single value")
	}
	text := strings.TrimSpace(v.String())
	if text == "" {
		return models.Text(""), nil
	}
	switch q.Kind {
	case catalog.KindSingleChoice:
		if !q.HasOption(text) {
			return models.Value{}, invalid("%q is not an option", text)
		}
	case catalog.KindDate:
		if _, err := time.Parse(time.DateOnly, text); err != nil {
			return models.Value{}, invalid("expects a date formatted YYYY-MM-DD")
		}
	case catalog.KindPhone:
		if !phonePattern.MatchString(text) {
			return models.Value{}, invalid("expects a phone number")
		}
	case catalog.KindLongText:
		if utf8.RuneCountInString(v.String()) > MaxLongTextLength {
			return models.Value{}, invalid("exceeds %d characters", MaxLongTextLength)
		}
		return models.Text(v.String()), nil
	}
	if utf8.RuneCountInString(text) > MaxTextLength {
		return models.Value{}, invalid("exceeds %d characters", MaxTextLength)
	}
	return models.Text(text), nil
}
