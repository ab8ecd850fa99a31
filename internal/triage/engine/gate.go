package engine

import (
	"pontes/internal/triage/catalog"
	"pontes/internal/triage/models"
)

// CanAdvance reports whether every visible required question of step has a
// non-empty answer. Hidden questions never block, whatever their Required
// flag says.
func CanAdvance(step catalog.Step, answers models.Answers) bool {
	return len(MissingRequired(step, answers)) == 0
}

// MissingRequired lists the ids of visible required questions still
// unanswered, in declaration order.
func MissingRequired(step catalog.Step, answers models.Answers) []string {
	var missing []string
	for _, q := range VisibleQuestions(step, answers) {
		if q.Required && !answers.Answered(q.ID) {
			missing = append(missing, q.ID)
		}
	}
	return missing
}
