// Package mapper turns a finished answer store into the normalized triage
// record. Two rule sets read disjoint source questions and write the same
// normalized fields; the pivot answer selects which one runs.
package mapper

import (
	"fmt"
	"time"

	"pontes/internal/triage/models"
	dErrors "pontes/pkg/domain-errors"
)

// Source question ids read by the rule sets.
const (
	QuestionLegalStatus     = "legal_status"
	QuestionWorkStatus      = "work_status"
	QuestionHousingStatus   = "housing_status"
	QuestionLanguageLevel   = "language_level"
	QuestionCurrentLocation = "current_location"
	QuestionArrivalDate     = "arrival_date"
	QuestionUrgencies       = "urgencies"

	QuestionVisaStatus         = "visa_status"
	QuestionPortugueseLevel    = "portuguese_level"
	QuestionArrivalHousing     = "arrival_housing"
	QuestionDestinationCity    = "destination_city"
	QuestionPlannedArrivalDate = "planned_arrival_date"
	QuestionDesiredSupport     = "desired_support"

	// QuestionInterests is shared by both branches.
	QuestionInterests = "interests"
)

var (
	visaToLegal = map[string]models.LegalStatus{
		"visa_granted":  models.LegalStatusRegularized,
		"visa_applied":  models.LegalStatusPending,
		"no_visa":       models.LegalStatusNotRegularized,
		"asylum_intent": models.LegalStatusRefugee,
	}
	portugueseToLanguage = map[string]models.LanguageLevel{
		"fluent":       models.LanguageLevelNative,
		"advanced":     models.LanguageLevelAdvanced,
		"intermediate": models.LanguageLevelIntermediate,
		"beginner":     models.LanguageLevelBasic,
		"none":         models.LanguageLevelNone,
	}
	// not_arranged has no equivalent and is dropped.
	arrivalToHousing = map[string]models.HousingStatus{
		"arranged":  models.HousingStatusStable,
		"temporary": models.HousingStatusTemporary,
	}
)

// RuleSet fills the normalized fields of rec from answers.
type RuleSet func(answers models.Answers, rec *models.Record)

// Mapper resolves pivot values to rule sets.
type Mapper struct {
	branches map[string]models.Branch
	rules    map[models.Branch]RuleSet
}

// New builds a mapper for the given pivot value to branch table, using the
// resident and not-arrived rule sets.
func New(branches map[string]models.Branch) *Mapper {
	return &Mapper{
		branches: branches,
		rules: map[models.Branch]RuleSet{
			models.BranchResident:   MapResident,
			models.BranchNotArrived: MapNotArrived,
		},
	}
}

// Map produces the record for answers submitted under branchKey, the pivot
// answer. The output depends only on its inputs; now becomes CompletedAt.
// ID, UserID and the audit timestamps are left for the caller.
func (m *Mapper) Map(answers models.Answers, branchKey string, now time.Time) (*models.Record, error) {
	branch, ok := m.branches[branchKey]
	if !ok {
		return nil, dErrors.New(dErrors.CodeValidation, fmt.Sprintf("no branch for pivot answer %q", branchKey))
	}
	rules, ok := m.rules[branch]
	if !ok {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, fmt.Sprintf("no rule set for branch %q", branch))
	}

	completedAt := now
	rec := &models.Record{
		Branch:      branch,
		Interests:   tags(answers, QuestionInterests),
		Answers:     answers.Clone(),
		Completed:   true,
		CompletedAt: &completedAt,
	}
	rules(answers, rec)
	return rec, nil
}

// MapResident reads the questions shown to users already in the country.
// Their answers use the shared vocabularies directly.
func MapResident(answers models.Answers, rec *models.Record) {
	rec.LegalStatus = inDomain(answers, QuestionLegalStatus, models.LegalStatus.Valid)
	rec.WorkStatus = inDomain(answers, QuestionWorkStatus, models.WorkStatus.Valid)
	rec.HousingStatus = inDomain(answers, QuestionHousingStatus, models.HousingStatus.Valid)
	rec.LanguageLevel = inDomain(answers, QuestionLanguageLevel, models.LanguageLevel.Valid)
	rec.Location, _ = answers.Scalar(QuestionCurrentLocation)
	rec.ArrivalDate, _ = answers.Scalar(QuestionArrivalDate)
	rec.Urgencies = tags(answers, QuestionUrgencies)
}

// MapNotArrived reads the pre-arrival questions and translates their own
// enumerations onto the shared vocabularies. There is no work status before
// arrival.
func MapNotArrived(answers models.Answers, rec *models.Record) {
	rec.LegalStatus = lookup(answers, QuestionVisaStatus, visaToLegal)
	rec.LanguageLevel = lookup(answers, QuestionPortugueseLevel, portugueseToLanguage)
	rec.HousingStatus = lookup(answers, QuestionArrivalHousing, arrivalToHousing)
	rec.Location, _ = answers.Scalar(QuestionDestinationCity)
	rec.ArrivalDate, _ = answers.Scalar(QuestionPlannedArrivalDate)
	rec.Urgencies = tags(answers, QuestionDesiredSupport)
}

func inDomain[T ~string](answers models.Answers, id string, valid func(T) bool) T {
	value, _ := answers.Scalar(id)
	if v := T(value); valid(v) {
		return v
	}
	return ""
}

func lookup[T ~string](answers models.Answers, id string, table map[string]T) T {
	value, _ := answers.Scalar(id)
	return table[value]
}

// tags passes list answers through unfiltered. A missing answer yields an
// empty, non-nil list.
func tags(answers models.Answers, id string) []string {
	if values := answers.List(id); values != nil {
		return values
	}
	return []string{}
}
