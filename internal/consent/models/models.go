// Package models defines the guardian-consent audit entities and the
// COPPA tier classification.
package models

import (
	"time"

	"familygate/pkg/domain"
)

// Tier is the age-derived classification gating profile existence and
// usable access level. Age is computed at year granularity only.
type Tier string

const (
	TierUnknown         Tier = "unknown"
	TierBlocked         Tier = "blocked"
	TierRequiresConsent Tier = "requires_consent"
	TierFullAccess      Tier = "full_access"
)

// Status of a consent record. Records are append-only: revocation flips
// the status and stamps the reason; grant fields are never rewritten.
type Status string

const (
	StatusActive  Status = "active"
	StatusRevoked Status = "revoked"
)

// Verification captures how the guardian's consent was obtained.
type Verification struct {
	Signature    string
	TermsVersion string
	Method       string
	IPAddress    string
	UserAgent    string
}

// ConsentRecord is one immutable audit entry for a grant and, once
// revoked, its revocation.
type ConsentRecord struct {
	ID              domain.ConsentRecordID
	ChildProfileID  domain.ProfileID
	ParentAccountID domain.AccountID
	GrantedAt       time.Time
	ExpiresAt       time.Time
	Status          Status
	RevokedAt       *time.Time
	RevokedReason   string
	Verification    Verification
}

// IsActive reports whether the record currently authorizes access.
func (c ConsentRecord) IsActive(now time.Time) bool {
	return c.Status == StatusActive && now.Before(c.ExpiresAt)
}

// RenewalStatus is the renewal-check result for a profile.
type RenewalStatus struct {
	NeedsRenewal bool
	ExpiresAt    *time.Time
}
