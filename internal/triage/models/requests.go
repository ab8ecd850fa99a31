package models

import dErrors "pontes/pkg/domain-errors"

// SetAnswerRequest carries one answer: a JSON string, or a JSON array of
// strings for multi-choice questions.
type SetAnswerRequest struct {
	Value *Value `json:"value"`
}

func (r *SetAnswerRequest) Validate() error {
	if r.Value == nil {
		return dErrors.New(dErrors.CodeBadRequest, "value is required")
	}
	return nil
}
