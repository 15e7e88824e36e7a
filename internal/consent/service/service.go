// Package service implements the consent engine: COPPA tier computation,
// tier-derived profile creation, and the guardian consent lifecycle with
// its append-only audit trail.
package service

import (
	"context"
	"time"

	"familygate/internal/audit"
	"familygate/internal/consent/models"
	consentstore "familygate/internal/consent/store"
	profilemodels "familygate/internal/profile/models"
	profilestore "familygate/internal/profile/store"
	"familygate/pkg/domain"
	dErrors "familygate/pkg/domain-errors"
)

// Age thresholds, in whole years. Age is computed from birth year only;
// month and day precision is deliberately out of scope.
const (
	minProfileAge = 14
	adultAge      = 18
)

// supersededReason marks a prior active record displaced by a re-grant,
// keeping exactly one record active at a time while preserving every row.
const supersededReason = "superseded"

// AuditPublisher is the operational audit feed. Emission never fails the
// calling operation.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event)
}

type Service struct {
	profiles profilestore.Store
	persons  profilestore.PersonStore
	consents consentstore.Store
	tx       Tx
	auditor  AuditPublisher

	consentTTL    time.Duration
	warningWindow time.Duration
	clock         func() time.Time
}

// Option configures the Service.
type Option func(*Service)

// WithClock sets the clock function for testability.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithConsentTTL overrides how long a grant stays valid.
func WithConsentTTL(ttl time.Duration) Option {
	return func(s *Service) { s.consentTTL = ttl }
}

// WithRenewalWarningWindow overrides how far before expiry renewal checks
// begin reporting true.
func WithRenewalWarningWindow(window time.Duration) Option {
	return func(s *Service) { s.warningWindow = window }
}

func NewService(
	profiles profilestore.Store,
	persons profilestore.PersonStore,
	consents consentstore.Store,
	tx Tx,
	auditor AuditPublisher,
	opts ...Option,
) *Service {
	s := &Service{
		profiles:      profiles,
		persons:       persons,
		consents:      consents,
		tx:            tx,
		auditor:       auditor,
		consentTTL:    365 * 24 * time.Hour,
		warningWindow: 30 * 24 * time.Hour,
		clock:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TierFor classifies a birth year. A nil year reads as adult: the roster
// predates year collection and onboarding backfills it before child
// profiles are created.
func TierFor(birthYear *int, now time.Time) models.Tier {
	if birthYear == nil {
		return models.TierUnknown
	}
	age := now.Year() - *birthYear
	switch {
	case age < minProfileAge:
		return models.TierBlocked
	case age < adultAge:
		return models.TierRequiresConsent
	default:
		return models.TierFullAccess
	}
}

// NewProfileForTier builds an unsaved profile with tier-derived
// authorization fields. Blocked tiers are rejected before any write.
func NewProfileForTier(
	tier models.Tier,
	accountID domain.AccountID,
	personID domain.PersonID,
	relationship profilemodels.Relationship,
	parentProfileID *domain.ProfileID,
	now time.Time,
) (*profilemodels.Profile, error) {
	if tier == models.TierBlocked {
		return nil, dErrors.New(dErrors.CodeValidation, "age_blocked: person is below the minimum profile age")
	}
	profile := &profilemodels.Profile{
		ID:              domain.NewProfileID(),
		AccountID:       accountID,
		PersonRecordID:  personID,
		Relationship:    relationship,
		ParentProfileID: parentProfileID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if tier == models.TierRequiresConsent {
		profile.RequiresConsent = true
		profile.Status = profilemodels.ProfilePendingConsent
		// Unusable until a guardian grants consent.
		profile.AccessLevel = profilemodels.AccessBlocked
	} else {
		profile.Status = profilemodels.ProfileActive
		profile.AccessLevel = profilemodels.AccessFull
	}
	if err := profile.Validate(); err != nil {
		return nil, err
	}
	return profile, nil
}

// CreateProfile is the ad-hoc single-create path. Unlike the onboarding
// batch, an age-blocked person is a hard validation error here: there is
// no batch to continue.
func (s *Service) CreateProfile(
	ctx context.Context,
	accountID domain.AccountID,
	personID domain.PersonID,
	relationship profilemodels.Relationship,
	parentProfileID *domain.ProfileID,
) (*profilemodels.View, error) {
	person, err := s.persons.FindPerson(ctx, personID)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			return nil, dErrors.New(dErrors.CodeValidation, "person record does not exist")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load person record")
	}

	if relationship == profilemodels.RelationshipChild {
		if parentProfileID == nil {
			return nil, dErrors.New(dErrors.CodeValidation, "child profile requires a parent profile")
		}
		parent, err := s.profiles.Find(ctx, accountID, *parentProfileID)
		if err != nil {
			if dErrors.HasCode(err, dErrors.CodeNotFound) {
				return nil, dErrors.New(dErrors.CodeValidation, "parent profile does not exist on this account")
			}
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load parent profile")
		}
		if parent.Relationship != profilemodels.RelationshipParent {
			return nil, dErrors.New(dErrors.CodeValidation, "parent profile link must reference a parent profile")
		}
	}

	now := s.clock()
	profile, err := NewProfileForTier(TierFor(person.BirthYear, now), accountID, personID, relationship, parentProfileID, now)
	if err != nil {
		return nil, err
	}
	if err := s.profiles.Create(ctx, profile); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create profile")
	}

	s.auditor.Emit(ctx, audit.Event{
		Action:    audit.ActionProfileCreated,
		AccountID: accountID.String(),
		ProfileID: profile.ID.String(),
		Detail:    map[string]string{"relationship": string(relationship)},
	})
	return s.profiles.Find(ctx, accountID, profile.ID)
}

// GrantResult is the outcome of a successful grant.
type GrantResult struct {
	Profile *profilemodels.View
	Record  *models.ConsentRecord
}

// Grant records guardian consent for a child profile. Profile state and
// the new audit row commit in one transaction; a prior active record is
// superseded rather than rewritten, so re-grants leave one active record
// and the full history behind.
func (s *Service) Grant(
	ctx context.Context,
	childProfileID domain.ProfileID,
	guardianAccountID domain.AccountID,
	verification models.Verification,
) (*GrantResult, error) {
	child, err := s.requireOwnedChild(ctx, childProfileID, guardianAccountID)
	if err != nil {
		return nil, err
	}

	now := s.clock()
	expiresAt := now.Add(s.consentTTL)
	record := &models.ConsentRecord{
		ID:              domain.NewConsentRecordID(),
		ChildProfileID:  child.ID,
		ParentAccountID: guardianAccountID,
		GrantedAt:       now,
		ExpiresAt:       expiresAt,
		Status:          models.StatusActive,
		Verification:    verification,
	}

	err = s.tx.RunInTx(ctx, func(stores TxStores) error {
		if prior, err := stores.Consents.FindActiveByChild(ctx, child.ID, now); err == nil {
			if err := stores.Consents.MarkRevoked(ctx, prior.ID, now, supersededReason); err != nil {
				return err
			}
		} else if !dErrors.HasCode(err, dErrors.CodeNotFound) {
			return err
		}
		if err := stores.Consents.Append(ctx, record); err != nil {
			return err
		}
		return stores.Authority.SetConsentState(ctx, child.ID, profilemodels.ConsentState{
			Status:          profilemodels.ProfileActive,
			AccessLevel:     profilemodels.AccessSupervised,
			RequiresConsent: true,
			ConsentGiven:    true,
			ConsentExpiry:   &expiresAt,
		})
	})
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeTimeout) {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to grant consent")
	}

	s.auditor.Emit(ctx, audit.Event{
		Action:    audit.ActionConsentGranted,
		AccountID: guardianAccountID.String(),
		ProfileID: child.ID.String(),
		Detail:    map[string]string{"record_id": record.ID.String(), "method": verification.Method},
	})

	updated, err := s.profiles.Find(ctx, guardianAccountID, child.ID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to reload profile")
	}
	return &GrantResult{Profile: updated, Record: record}, nil
}

// Revoke marks the currently active record revoked and downgrades the
// profile. The prior row is never deleted; a later grant inserts a new
// one.
func (s *Service) Revoke(
	ctx context.Context,
	childProfileID domain.ProfileID,
	guardianAccountID domain.AccountID,
	reason string,
) (*profilemodels.View, error) {
	child, err := s.requireOwnedChild(ctx, childProfileID, guardianAccountID)
	if err != nil {
		return nil, err
	}

	now := s.clock()
	err = s.tx.RunInTx(ctx, func(stores TxStores) error {
		active, err := stores.Consents.FindActiveByChild(ctx, child.ID, now)
		if err != nil {
			return err
		}
		if err := stores.Consents.MarkRevoked(ctx, active.ID, now, reason); err != nil {
			return err
		}
		return stores.Authority.SetConsentState(ctx, child.ID, profilemodels.ConsentState{
			Status:          profilemodels.ProfilePendingConsent,
			AccessLevel:     profilemodels.AccessBlocked,
			RequiresConsent: true,
			ConsentGiven:    false,
			ConsentExpiry:   nil,
		})
	})
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "no active consent to revoke")
		}
		if dErrors.HasCode(err, dErrors.CodeTimeout) {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to revoke consent")
	}

	s.auditor.Emit(ctx, audit.Event{
		Action:    audit.ActionConsentRevoked,
		AccountID: guardianAccountID.String(),
		ProfileID: child.ID.String(),
		Detail:    map[string]string{"reason": reason},
	})

	return s.profiles.Find(ctx, guardianAccountID, child.ID)
}

// CheckRenewal reports whether a consent renewal is due: expiry absent,
// lapsed, or inside the warning window. Profiles that never needed
// consent never need renewal.
func (s *Service) CheckRenewal(ctx context.Context, accountID domain.AccountID, profileID domain.ProfileID) (*models.RenewalStatus, error) {
	view, err := s.profiles.Find(ctx, accountID, profileID)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load profile")
	}
	if !view.RequiresConsent {
		return &models.RenewalStatus{NeedsRenewal: false}, nil
	}
	if view.ConsentExpiry == nil {
		return &models.RenewalStatus{NeedsRenewal: true}, nil
	}
	now := s.clock()
	needsRenewal := !now.Before(*view.ConsentExpiry) || now.Add(s.warningWindow).After(*view.ConsentExpiry)
	return &models.RenewalStatus{NeedsRenewal: needsRenewal, ExpiresAt: view.ConsentExpiry}, nil
}

// History lists all consent records for an owned child profile, newest
// first.
func (s *Service) History(ctx context.Context, childProfileID domain.ProfileID, guardianAccountID domain.AccountID) ([]*models.ConsentRecord, error) {
	if _, err := s.requireOwnedChild(ctx, childProfileID, guardianAccountID); err != nil {
		return nil, err
	}
	records, err := s.consents.ListByChild(ctx, childProfileID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list consent history")
	}
	return records, nil
}

// requireOwnedChild loads the profile and enforces the grant/revoke
// precondition: a child profile owned, directly or via its parent
// profile, by the guardian account. Ownership failures read as not-found.
func (s *Service) requireOwnedChild(ctx context.Context, childProfileID domain.ProfileID, guardianAccountID domain.AccountID) (*profilemodels.View, error) {
	view, err := s.profiles.Find(ctx, guardianAccountID, childProfileID)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "child profile not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load child profile")
	}
	if view.Relationship != profilemodels.RelationshipChild {
		return nil, dErrors.New(dErrors.CodeNotFound, "child profile not found")
	}
	return view, nil
}
