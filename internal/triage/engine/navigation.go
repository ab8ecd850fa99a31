package engine

import (
	"pontes/internal/triage/catalog"
	"pontes/internal/triage/models"
)

// None marks the absence of a visible step in a scan direction.
const None = -1

// NextVisibleIndex returns the first visible step index after from, or None.
// Pass -1 to find the first visible step.
func NextVisibleIndex(c *catalog.Catalog, from int, answers models.Answers) int {
	for i := max(from+1, 0); i < c.Len(); i++ {
		if IsStepVisible(c.Step(i), answers) {
			return i
		}
	}
	return None
}

// PrevVisibleIndex returns the last visible step index before from, or None.
func PrevVisibleIndex(c *catalog.Catalog, from int, answers models.Answers) int {
	for i := min(from, c.Len()) - 1; i >= 0; i-- {
		if IsStepVisible(c.Step(i), answers) {
			return i
		}
	}
	return None
}

// AdvanceResult describes what Advance did.
type AdvanceResult string

const (
	// AdvanceMoved means the cursor moved to the next visible step.
	AdvanceMoved AdvanceResult = "moved"
	// AdvanceRefused means the current step still has unanswered required
	// questions. The cursor did not move.
	AdvanceRefused AdvanceResult = "refused"
	// AdvanceSubmit means the current step is terminal and complete; the
	// caller should submit.
	AdvanceSubmit AdvanceResult = "submit"
)
