// Package models defines the onboarding batch types.
package models

import (
	profilemodels "familygate/internal/profile/models"
	"familygate/pkg/domain"
)

// Selection is one person record chosen during onboarding.
type Selection struct {
	PersonID     domain.PersonID
	Relationship profilemodels.Relationship
	// YearOfBirth, when present, takes precedence over the roster's
	// stored value and is backfilled onto the person record.
	YearOfBirth *int
	// ParentPersonID optionally names the parent selection this child
	// belongs to. When absent, the first parent profile created in the
	// batch is the link target.
	ParentPersonID *domain.PersonID
}

// SkipReasonAgeBlocked marks selections excluded for being under the
// minimum profile age. Skips are always explicit, never silent.
const SkipReasonAgeBlocked = "age_blocked"

// SkippedSelection reports one excluded selection and why.
type SkippedSelection struct {
	PersonID domain.PersonID
	Reason   string
}

// Result is the outcome of an onboarding batch: the ordered created
// profiles, the explicit skip list, and whether any created child still
// needs guardian consent.
type Result struct {
	Profiles        []*profilemodels.View
	Skipped         []SkippedSelection
	RequiresConsent bool
}

// RecordCandidate is one roster row offered to the onboarding client.
type RecordCandidate struct {
	Person *profilemodels.PersonRecord
	// HasBirthYear tells the client whether collect-yob is still needed
	// before this person can be selected as a child.
	HasBirthYear bool
}
