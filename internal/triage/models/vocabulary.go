package models

// Controlled vocabularies shared by both branches. Values outside these sets
// are never persisted.

type LegalStatus string

const (
	LegalStatusRegularized    LegalStatus = "regularized"
	LegalStatusPending        LegalStatus = "pending"
	LegalStatusNotRegularized LegalStatus = "not_regularized"
	LegalStatusRefugee        LegalStatus = "refugee"
)

type WorkStatus string

const (
	WorkStatusEmployed             WorkStatus = "employed"
	WorkStatusUnemployedSeeking    WorkStatus = "unemployed_seeking"
	WorkStatusUnemployedNotSeeking WorkStatus = "unemployed_not_seeking"
	WorkStatusStudent              WorkStatus = "student"
	WorkStatusSelfEmployed         WorkStatus = "self_employed"
)

type HousingStatus string

const (
	HousingStatusStable     HousingStatus = "stable"
	HousingStatusTemporary  HousingStatus = "temporary"
	HousingStatusPrecarious HousingStatus = "precarious"
	HousingStatusHomeless   HousingStatus = "homeless"
)

type LanguageLevel string

const (
	LanguageLevelNative       LanguageLevel = "native"
	LanguageLevelAdvanced     LanguageLevel = "advanced"
	LanguageLevelIntermediate LanguageLevel = "intermediate"
	LanguageLevelBasic        LanguageLevel = "basic"
	LanguageLevelNone         LanguageLevel = "none"
)

var (
	legalStatuses = domainOf(LegalStatusRegularized, LegalStatusPending, LegalStatusNotRegularized, LegalStatusRefugee)
	workStatuses  = domainOf(WorkStatusEmployed, WorkStatusUnemployedSeeking, WorkStatusUnemployedNotSeeking,
		WorkStatusStudent, WorkStatusSelfEmployed)
	housingStatuses = domainOf(HousingStatusStable, HousingStatusTemporary, HousingStatusPrecarious, HousingStatusHomeless)
	languageLevels  = domainOf(LanguageLevelNative, LanguageLevelAdvanced, LanguageLevelIntermediate,
		LanguageLevelBasic, LanguageLevelNone)
)

func domainOf[T ~string](values ...T) map[T]struct{} {
	set := make(map[T]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

func (s LegalStatus) Valid() bool   { _, ok := legalStatuses[s]; return ok }
func (s WorkStatus) Valid() bool    { _, ok := workStatuses[s]; return ok }
func (s HousingStatus) Valid() bool { _, ok := housingStatuses[s]; return ok }
func (l LanguageLevel) Valid() bool { _, ok := languageLevels[l]; return ok }
