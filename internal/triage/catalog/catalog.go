// Package catalog declares the triage questionnaire: ordered steps, their
// questions, visibility dependencies, and the pivot question that selects the
// submission branch.
//
// A Catalog is immutable once loaded. Load validates the whole document and
// fails fast, so every catalog reachable at runtime is well formed.
package catalog

import (
	"slices"

	"pontes/internal/triage/models"
)

// Kind is the input shape of a question.
type Kind string

const (
	KindSingleChoice Kind = "single-choice"
	KindMultiChoice  Kind = "multi-choice"
	KindFreeText     Kind = "free-text"
	KindLongText     Kind = "long-text"
	KindDate         Kind = "date"
	KindPhone        Kind = "phone"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	switch k {
	case KindSingleChoice, KindMultiChoice, KindFreeText, KindLongText, KindDate, KindPhone:
		return true
	}
	return false
}

// IsChoice reports whether answers are restricted to declared options.
func (k Kind) IsChoice() bool {
	return k == KindSingleChoice || k == KindMultiChoice
}

// Dependency makes a question visible only when another question's scalar
// answer equals Equals exactly.
type Dependency struct {
	QuestionID string `yaml:"question" json:"question_id"`
	Equals     string `yaml:"equals" json:"equals"`
}

// Question is a single field of a step.
type Question struct {
	ID        string      `yaml:"id" json:"id"`
	Kind      Kind        `yaml:"kind" json:"kind"`
	Options   []string    `yaml:"options,omitempty" json:"options,omitempty"`
	Required  bool        `yaml:"required" json:"required"`
	DependsOn *Dependency `yaml:"depends_on,omitempty" json:"depends_on,omitempty"`
}

// HasOption reports whether value is one of the declared options.
func (q Question) HasOption(value string) bool {
	return slices.Contains(q.Options, value)
}

// Step is an ordered group of questions shown together.
type Step struct {
	ID        string     `yaml:"id" json:"id"`
	Questions []Question `yaml:"questions" json:"questions"`
}

// Pivot names the question whose answer selects the mapping branch.
type Pivot struct {
	QuestionID string                   `yaml:"question" json:"question_id"`
	Branches   map[string]models.Branch `yaml:"branches" json:"branches"`
}

// Catalog is a validated questionnaire definition.
type Catalog struct {
	Version string `yaml:"version" json:"version"`
	Pivot   Pivot  `yaml:"pivot" json:"pivot"`
	Steps   []Step `yaml:"steps" json:"steps"`

	index map[string]position
}

type position struct {
	step     int
	question int
}

// Len returns the total number of steps, visible or not.
func (c *Catalog) Len() int {
	return len(c.Steps)
}

// Step returns the step at index i.
func (c *Catalog) Step(i int) Step {
	return c.Steps[i]
}

// Question looks up a question by id.
func (c *Catalog) Question(id string) (Question, bool) {
	pos, ok := c.index[id]
	if !ok {
		return Question{}, false
	}
	return c.Steps[pos.step].Questions[pos.question], true
}

// StepOf returns the index of the step declaring question id.
func (c *Catalog) StepOf(id string) (int, bool) {
	pos, ok := c.index[id]
	return pos.step, ok
}

// BranchFor resolves a pivot answer to a branch.
func (c *Catalog) BranchFor(pivotValue string) (models.Branch, bool) {
	b, ok := c.Pivot.Branches[pivotValue]
	return b, ok
}
