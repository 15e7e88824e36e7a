// Package models defines the family-account entities: accounts, the
// read-only person roster, and profiles with their permission tier.
package models

import (
	"time"

	"familygate/pkg/domain"
	dErrors "familygate/pkg/domain-errors"
)

// Relationship distinguishes guardian profiles from supervised ones.
type Relationship string

const (
	RelationshipParent Relationship = "parent"
	RelationshipChild  Relationship = "child"
)

// AccessLevel is the usable permission tier of a profile.
type AccessLevel string

const (
	AccessFull       AccessLevel = "full"
	AccessSupervised AccessLevel = "supervised"
	AccessBlocked    AccessLevel = "blocked"
)

// ProfileStatus tracks whether a profile is usable or waiting on consent.
type ProfileStatus string

const (
	ProfileActive         ProfileStatus = "active"
	ProfilePendingConsent ProfileStatus = "pending_consent"
)

// AccountStatus tracks onboarding progress of the owning account.
type AccountStatus string

const (
	AccountPending AccountStatus = "pending"
	AccountActive  AccountStatus = "active"
)

// Account owns zero or more profiles. Profiles never outlive it.
type Account struct {
	ID        domain.AccountID
	Status    AccountStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PersonRecord is one entry of the external roster. The core reads it to
// locate candidates during onboarding; only the birth year is backfillable.
type PersonRecord struct {
	ID        domain.PersonID
	Email     string
	FirstName string
	LastName  string
	BirthYear *int
}

// Profile is an access scope within an account representing one linked
// person. Authorization fields (Status, AccessLevel, RequiresConsent,
// ConsentGiven, ConsentExpiry) are mutated exclusively by the consent
// engine through the store's authority writer.
type Profile struct {
	ID              domain.ProfileID
	AccountID       domain.AccountID
	PersonRecordID  domain.PersonID
	Relationship    Relationship
	ParentProfileID *domain.ProfileID
	AccessLevel     AccessLevel
	Status          ProfileStatus
	RequiresConsent bool
	ConsentGiven    bool
	ConsentExpiry   *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ConsentEffective reports whether granted consent is still in force.
// A lapsed expiry reverts the effective state even before the stored
// flag is corrected.
func (p Profile) ConsentEffective(now time.Time) bool {
	if !p.ConsentGiven || p.ConsentExpiry == nil {
		return false
	}
	return now.Before(*p.ConsentExpiry)
}

// Validate enforces the relationship/parent-link invariant.
func (p Profile) Validate() error {
	switch p.Relationship {
	case RelationshipChild:
		if p.ParentProfileID == nil {
			return dErrors.New(dErrors.CodeInvariantViolation, "child profile requires a parent profile link")
		}
	case RelationshipParent:
		if p.ParentProfileID != nil {
			return dErrors.New(dErrors.CodeInvariantViolation, "parent profile must not have a parent link")
		}
	default:
		return dErrors.New(dErrors.CodeValidation, "relationship must be parent or child")
	}
	return nil
}

// View is a profile joined with its denormalized person fields, the shape
// handed to callers of fetch/list.
type View struct {
	Profile
	Email     string
	FirstName string
	LastName  string
	BirthYear *int
}

// PersonalUpdate is the fixed allow-list of externally writable fields.
// It is the complete set: the update path is structurally incapable of
// carrying authorization fields.
type PersonalUpdate struct {
	FirstName *string
	LastName  *string
}

// Empty reports whether the update would change nothing.
func (u PersonalUpdate) Empty() bool {
	return u.FirstName == nil && u.LastName == nil
}

// ConsentState is the bundle of authorization fields the consent engine
// writes atomically alongside its audit row.
type ConsentState struct {
	Status          ProfileStatus
	AccessLevel     AccessLevel
	RequiresConsent bool
	ConsentGiven    bool
	ConsentExpiry   *time.Time
}
