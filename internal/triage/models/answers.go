package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
)

// Value is a single answer: a scalar string for single-choice, text, date and
// phone questions, or a list of strings for multi-choice questions.
type Value struct {
	text  string
	list  []string
	multi bool
}

// Text builds a scalar answer.
func Text(s string) Value {
	return Value{text: s}
}

// List builds a list answer. The slice is copied.
func List(values ...string) Value {
	return Value{list: slices.Clone(values), multi: true}
}

// IsList reports whether the value holds a list.
func (v Value) IsList() bool {
	return v.multi
}

// String returns the scalar value, or "" for lists.
func (v Value) String() string {
	return v.text
}

// Strings returns a copy of the list value, or nil for scalars.
func (v Value) Strings() []string {
	if !v.multi {
		return nil
	}
	return slices.Clone(v.list)
}

// IsEmpty reports whether the value counts as unanswered: a blank string or
// an empty list.
func (v Value) IsEmpty() bool {
	if v.multi {
		return len(v.list) == 0
	}
	return strings.TrimSpace(v.text) == ""
}

// Equal compares shape and content.
func (v Value) Equal(other Value) bool {
	if v.multi != other.multi {
		return false
	}
	if v.multi {
		return slices.Equal(v.list, other.list)
	}
	return v.text == other.text
}

func (v Value) MarshalJSON() ([]byte, error) {
	if v.multi {
		if v.list == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.list)
	}
	return json.Marshal(v.text)
}

func (v *Value) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return fmt.Errorf("answer value is empty")
	}
	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*v = Text(s)
		return nil
	case '[':
		var list []string
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return fmt.Errorf("answer list must contain strings: %w", err)
		}
		if list == nil {
			list = []string{}
		}
		*v = Value{list: list, multi: true}
		return nil
	default:
		return fmt.Errorf("answer must be a string or a list of strings")
	}
}

// Answers maps question ids to their current values. Answers to questions
// that are currently hidden are kept; consumers decide whether to use them.
type Answers map[string]Value

// Clone returns a deep copy.
func (a Answers) Clone() Answers {
	out := make(Answers, len(a))
	for id, v := range a {
		if v.multi {
			v = List(v.list...)
		}
		out[id] = v
	}
	return out
}

// Scalar returns the scalar answer for id. ok is false when the question is
// unanswered or holds a list.
func (a Answers) Scalar(id string) (value string, ok bool) {
	v, found := a[id]
	if !found || v.multi {
		return "", false
	}
	return v.text, true
}

// List returns the list answer for id, or nil.
func (a Answers) List(id string) []string {
	v, found := a[id]
	if !found {
		return nil
	}
	return v.Strings()
}

// Answered reports whether id has a non-empty answer.
func (a Answers) Answered(id string) bool {
	v, found := a[id]
	return found && !v.IsEmpty()
}

// Equal compares two answer sets entry by entry.
func (a Answers) Equal(other Answers) bool {
	if len(a) != len(other) {
		return false
	}
	for id, v := range a {
		o, ok := other[id]
		if !ok || !v.Equal(o) {
			return false
		}
	}
	return true
}
