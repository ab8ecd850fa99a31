// Package engine evaluates a catalog against an answer store: which questions
// and steps are visible, whether a step may be left, and where navigation
// goes next.
//
// Everything here is pure domain logic. No I/O, no clocks, no caching; each
// call recomputes from the catalog and the answers it is given.
package engine

import (
	"pontes/internal/triage/catalog"
	"pontes/internal/triage/models"
)

// IsQuestionVisible reports whether q is shown given answers. A question
// without a dependency is always visible. A dependent question is visible only
// when the target's scalar answer equals the expected value exactly; an
// unanswered target hides it.
func IsQuestionVisible(q catalog.Question, answers models.Answers) bool {
	if q.DependsOn == nil {
		return true
	}
	value, ok := answers.Scalar(q.DependsOn.QuestionID)
	return ok && value == q.DependsOn.Equals
}

// VisibleQuestions returns the visible questions of step in declaration order.
func VisibleQuestions(step catalog.Step, answers models.Answers) []catalog.Question {
	visible := make([]catalog.Question, 0, len(step.Questions))
	for _, q := range step.Questions {
		if IsQuestionVisible(q, answers) {
			visible = append(visible, q)
		}
	}
	return visible
}

// IsStepVisible reports whether step has at least one visible question.
func IsStepVisible(step catalog.Step, answers models.Answers) bool {
	for _, q := range step.Questions {
		if IsQuestionVisible(q, answers) {
			return true
		}
	}
	return false
}
