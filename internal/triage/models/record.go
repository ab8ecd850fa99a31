package models

import (
	"time"

	"github.com/google/uuid"
)

// Branch names the mapping rule set selected by the pivot answer.
type Branch string

const (
	// BranchResident covers users already living in the country.
	BranchResident Branch = "resident"
	// BranchNotArrived covers users still preparing their move.
	BranchNotArrived Branch = "not_arrived"
)

// Valid reports whether b names a known rule set.
func (b Branch) Valid() bool {
	return b == BranchResident || b == BranchNotArrived
}

// Record is the normalized, persisted outcome of a completed triage. There is
// at most one per user; re-submissions update it in place.
//
// Vocabulary fields are empty when the answer was missing or fell outside the
// field's domain.
type Record struct {
	ID             uuid.UUID     `json:"id"`
	UserID         string        `json:"user_id"`
	Branch         Branch        `json:"branch"`
	CatalogVersion string        `json:"catalog_version,omitempty"`
	LegalStatus    LegalStatus   `json:"legal_status,omitempty"`
	WorkStatus     WorkStatus    `json:"work_status,omitempty"`
	HousingStatus  HousingStatus `json:"housing_status,omitempty"`
	LanguageLevel  LanguageLevel `json:"language_level,omitempty"`
	Location       string        `json:"location,omitempty"`
	ArrivalDate    string        `json:"arrival_date,omitempty"`
	Interests      []string      `json:"interests"`
	Urgencies      []string      `json:"urgencies"`
	Answers        Answers       `json:"answers"`
	Completed      bool          `json:"completed"`
	CompletedAt    *time.Time    `json:"completed_at,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// Merge overlays the fields present in incoming onto r, the stored record.
// Empty fields in incoming keep the stored value, except when the branch
// changed: normalized fields then come from incoming alone, so a record never
// mixes vocabulary from both branches.
func (r *Record) Merge(incoming *Record, now time.Time) {
	branchChanged := incoming.Branch != "" && incoming.Branch != r.Branch
	if branchChanged {
		r.LegalStatus = incoming.LegalStatus
		r.WorkStatus = incoming.WorkStatus
		r.HousingStatus = incoming.HousingStatus
		r.LanguageLevel = incoming.LanguageLevel
		r.Location = incoming.Location
		r.ArrivalDate = incoming.ArrivalDate
		r.Branch = incoming.Branch
	} else {
		r.LegalStatus = pick(incoming.LegalStatus, r.LegalStatus)
		r.WorkStatus = pick(incoming.WorkStatus, r.WorkStatus)
		r.HousingStatus = pick(incoming.HousingStatus, r.HousingStatus)
		r.LanguageLevel = pick(incoming.LanguageLevel, r.LanguageLevel)
		r.Location = pick(incoming.Location, r.Location)
		r.ArrivalDate = pick(incoming.ArrivalDate, r.ArrivalDate)
	}
	r.CatalogVersion = pick(incoming.CatalogVersion, r.CatalogVersion)
	if incoming.Interests != nil {
		r.Interests = incoming.Interests
	}
	if incoming.Urgencies != nil {
		r.Urgencies = incoming.Urgencies
	}
	if incoming.Answers != nil {
		r.Answers = incoming.Answers.Clone()
	}
	if incoming.Completed {
		r.Completed = true
	}
	if incoming.CompletedAt != nil {
		at := *incoming.CompletedAt
		r.CompletedAt = &at
	}
	r.UpdatedAt = now
}

func pick[T ~string](incoming, stored T) T {
	if incoming != "" {
		return incoming
	}
	return stored
}

// Status summarizes where a user stands with the triage.
type Status struct {
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Branch      Branch     `json:"branch,omitempty"`
	HasDraft    bool       `json:"has_draft"`
}

// Draft is a user's in-progress questionnaire: the answer store plus the
// navigation cursor, saved after every mutation.
type Draft struct {
	UserID         string    `json:"user_id"`
	CatalogVersion string    `json:"catalog_version"`
	StepIndex      int       `json:"step_index"`
	Answers        Answers   `json:"answers"`
	UpdatedAt      time.Time `json:"updated_at"`
}
