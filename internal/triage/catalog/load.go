package catalog

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrInvalidCatalog is wrapped by every load-time validation failure.
var ErrInvalidCatalog = errors.New("invalid catalog")

//go:embed default.yaml
var defaultCatalog []byte

// Default returns the built-in intake questionnaire.
func Default() (*Catalog, error) {
	return Load(defaultCatalog)
}

// FromFile loads a catalog from path, or the built-in one when path is empty.
func FromFile(path string) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return Load(data)
}

// Load parses and validates a YAML catalog document. Unknown fields are
// rejected.
func Load(data []byte) (*Catalog, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var c Catalog
	if err := dec.Decode(&c); err != nil {
		return nil, fmt.Errorf("%w: parse: %v", ErrInvalidCatalog, err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidCatalog, fmt.Sprintf(format, args...))
}

// validate checks structure, dependencies, and the pivot, and builds the
// question index. Dependencies may only point backwards, so a single forward
// pass over the steps sees every legal target before its dependents.
func (c *Catalog) validate() error {
	if strings.TrimSpace(c.Version) == "" {
		return invalid("version is required")
	}
	if len(c.Steps) == 0 {
		return invalid("at least one step is required")
	}

	declared := make(map[string]struct{})
	for _, s := range c.Steps {
		for _, q := range s.Questions {
			declared[q.ID] = struct{}{}
		}
	}

	stepIDs := make(map[string]struct{}, len(c.Steps))
	c.index = make(map[string]position)
	for si, s := range c.Steps {
		if strings.TrimSpace(s.ID) == "" {
			return invalid("step %d has no id", si)
		}
		if _, dup := stepIDs[s.ID]; dup {
			return invalid("duplicate step id %q", s.ID)
		}
		stepIDs[s.ID] = struct{}{}
		if len(s.Questions) == 0 {
			return invalid("step %q has no questions", s.ID)
		}

		for qi, q := range s.Questions {
			if err := c.validateQuestion(s.ID, q, declared); err != nil {
				return err
			}
			c.index[q.ID] = position{step: si, question: qi}
		}
	}

	return c.validatePivot()
}

func (c *Catalog) validateQuestion(stepID string, q Question, declared map[string]struct{}) error {
	if strings.TrimSpace(q.ID) == "" {
		return invalid("step %q has a question without id", stepID)
	}
	if _, dup := c.index[q.ID]; dup {
		return invalid("duplicate question id %q", q.ID)
	}
	if !q.Kind.Valid() {
		return invalid("question %q has unknown kind %q", q.ID, q.Kind)
	}
	if q.Kind.IsChoice() {
		if len(q.Options) == 0 {
			return invalid("choice question %q has no options", q.ID)
		}
		seen := make(map[string]struct{}, len(q.Options))
		for _, opt := range q.Options {
			if strings.TrimSpace(opt) == "" {
				return invalid("question %q has a blank option", q.ID)
			}
			if _, dup := seen[opt]; dup {
				return invalid("question %q repeats option %q", q.ID, opt)
			}
			seen[opt] = struct{}{}
		}
	} else if len(q.Options) > 0 {
		return invalid("question %q of kind %q cannot declare options", q.ID, q.Kind)
	}

	dep := q.DependsOn
	if dep == nil {
		return nil
	}
	if dep.QuestionID == q.ID {
		return invalid("question %q depends on itself", q.ID)
	}
	pos, earlier := c.index[dep.QuestionID]
	if !earlier {
		if _, later := declared[dep.QuestionID]; later {
			return invalid("question %q depends on later question %q", q.ID, dep.QuestionID)
		}
		return invalid("question %q depends on unknown question %q", q.ID, dep.QuestionID)
	}
	target := c.Steps[pos.step].Questions[pos.question]
	if target.Kind == KindMultiChoice {
		return invalid("question %q depends on multi-choice question %q", q.ID, target.ID)
	}
	if target.Kind.IsChoice() && !target.HasOption(dep.Equals) {
		return invalid("question %q expects %q which is not an option of %q", q.ID, dep.Equals, target.ID)
	}
	return nil
}

// validatePivot requires an unconditional single-choice pivot whose every
// option maps to a known branch, so any submitted session resolves to exactly
// one rule set.
func (c *Catalog) validatePivot() error {
	p := c.Pivot
	if p.QuestionID == "" {
		return invalid("pivot question is required")
	}
	q, ok := c.Question(p.QuestionID)
	if !ok {
		return invalid("pivot references unknown question %q", p.QuestionID)
	}
	if q.Kind != KindSingleChoice {
		return invalid("pivot question %q must be single-choice", q.ID)
	}
	if q.DependsOn != nil {
		return invalid("pivot question %q cannot be conditional", q.ID)
	}
	if !q.Required {
		return invalid("pivot question %q must be required", q.ID)
	}
	for value, branch := range p.Branches {
		if !q.HasOption(value) {
			return invalid("pivot branch %q is not an option of %q", value, q.ID)
		}
		if !branch.Valid() {
			return invalid("pivot value %q maps to unknown branch %q", value, branch)
		}
	}
	for _, opt := range q.Options {
		if _, ok := p.Branches[opt]; !ok {
			return invalid("pivot option %q has no branch", opt)
		}
	}
	return nil
}
