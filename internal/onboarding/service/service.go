// Package service implements the onboarding orchestrator: the atomic
// transformation of selected person records into parent and child
// profiles, plus the supporting invitation and roster operations.
package service

import (
	"context"
	"strconv"
	"time"

	"familygate/internal/audit"
	consentmodels "familygate/internal/consent/models"
	consentservice "familygate/internal/consent/service"
	"familygate/internal/invite"
	"familygate/internal/onboarding/models"
	profilemodels "familygate/internal/profile/models"
	profilestore "familygate/internal/profile/store"
	"familygate/pkg/domain"
	dErrors "familygate/pkg/domain-errors"
)

// ConsentGranter is the consent engine surface onboarding re-exposes for
// the onboarding-flow grant alias.
type ConsentGranter interface {
	Grant(ctx context.Context, childProfileID domain.ProfileID, guardianAccountID domain.AccountID, verification consentmodels.Verification) (*consentservice.GrantResult, error)
}

// InviteDecoder validates invitation tokens.
type InviteDecoder interface {
	Decode(token string) (*invite.Claims, error)
}

type Service struct {
	profiles profilestore.Store
	accounts profilestore.AccountStore
	persons  profilestore.PersonStore
	consent  ConsentGranter
	invites  InviteDecoder
	tx       Tx
	auditor  consentservice.AuditPublisher
	clock    func() time.Time
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

func NewService(
	profiles profilestore.Store,
	accounts profilestore.AccountStore,
	persons  profilestore.PersonStore,
	consent ConsentGranter,
	invites InviteDecoder,
	tx Tx,
	auditor consentservice.AuditPublisher,
	opts ...Option,
) *Service {
	s := &Service{
		profiles: profiles,
		accounts: accounts,
		persons:  persons,
		consent:  consent,
		invites:  invites,
		tx:       tx,
		auditor:  auditor,
		clock:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SelectProfiles turns a selection set into profiles in one all-or-nothing
// transaction. Parent selections are created first; an age-blocked child
// is an explicit per-item skip, while a selection referencing a missing
// person aborts the whole batch before anything is observable.
func (s *Service) SelectProfiles(ctx context.Context, accountID domain.AccountID, selections []models.Selection) (*models.Result, error) {
	if len(selections) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "selections must not be empty")
	}
	if _, err := s.accounts.FindAccount(ctx, accountID); err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load account")
	}

	var parents, children []models.Selection
	for _, sel := range selections {
		switch sel.Relationship {
		case profilemodels.RelationshipParent:
			parents = append(parents, sel)
		case profilemodels.RelationshipChild:
			children = append(children, sel)
		default:
			return nil, dErrors.New(dErrors.CodeValidation, "relationship must be parent or child")
		}
	}

	now := s.clock()
	result := &models.Result{}

	err := s.tx.RunInTx(ctx, func(stores TxStores) error {
		var defaultParent *domain.ProfileID
		parentByPerson := make(map[domain.PersonID]domain.ProfileID, len(parents))

		for _, sel := range parents {
			if _, err := stores.Persons.FindPerson(ctx, sel.PersonID); err != nil {
				if dErrors.HasCode(err, dErrors.CodeNotFound) {
					return dErrors.New(dErrors.CodeValidation, "selected person record does not exist")
				}
				return err
			}
			profile := &profilemodels.Profile{
				ID:             domain.NewProfileID(),
				AccountID:      accountID,
				PersonRecordID: sel.PersonID,
				Relationship:   profilemodels.RelationshipParent,
				AccessLevel:    profilemodels.AccessFull,
				Status:         profilemodels.ProfileActive,
				CreatedAt:      now,
				UpdatedAt:      now,
			}
			if err := stores.Profiles.Create(ctx, profile); err != nil {
				return err
			}
			parentByPerson[sel.PersonID] = profile.ID
			if defaultParent == nil {
				id := profile.ID
				defaultParent = &id
			}
			view, err := stores.Profiles.Find(ctx, accountID, profile.ID)
			if err != nil {
				return err
			}
			result.Profiles = append(result.Profiles, view)
		}

		for _, sel := range children {
			person, err := stores.Persons.FindPerson(ctx, sel.PersonID)
			if err != nil {
				if dErrors.HasCode(err, dErrors.CodeNotFound) {
					return dErrors.New(dErrors.CodeValidation, "selected person record does not exist")
				}
				return err
			}

			birthYear := person.BirthYear
			if sel.YearOfBirth != nil {
				birthYear = sel.YearOfBirth
				if err := validateBirthYear(*sel.YearOfBirth, now); err != nil {
					return err
				}
				if err := stores.Persons.SetPersonBirthYear(ctx, sel.PersonID, *sel.YearOfBirth); err != nil {
					return err
				}
			}

			tier := consentservice.TierFor(birthYear, now)
			if tier == consentmodels.TierBlocked {
				result.Skipped = append(result.Skipped, models.SkippedSelection{
					PersonID: sel.PersonID,
					Reason:   models.SkipReasonAgeBlocked,
				})
				continue
			}

			parentID := defaultParent
			if sel.ParentPersonID != nil {
				id, ok := parentByPerson[*sel.ParentPersonID]
				if !ok {
					return dErrors.New(dErrors.CodeValidation, "child selection names a parent not in this batch")
				}
				parentID = &id
			}
			if parentID == nil {
				return dErrors.New(dErrors.CodeValidation, "child selection requires a parent selection in the batch")
			}

			profile, err := consentservice.NewProfileForTier(tier, accountID, sel.PersonID, profilemodels.RelationshipChild, parentID, now)
			if err != nil {
				return err
			}
			if err := stores.Profiles.Create(ctx, profile); err != nil {
				return err
			}
			if profile.RequiresConsent {
				result.RequiresConsent = true
			}
			view, err := stores.Profiles.Find(ctx, accountID, profile.ID)
			if err != nil {
				return err
			}
			result.Profiles = append(result.Profiles, view)
		}

		return stores.Accounts.SetAccountStatus(ctx, accountID, profilemodels.AccountActive)
	})
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeValidation) || dErrors.HasCode(err, dErrors.CodeTimeout) {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create profiles")
	}

	s.auditor.Emit(ctx, audit.Event{
		Action:    audit.ActionOnboardingCompleted,
		AccountID: accountID.String(),
		Detail: map[string]string{
			"created": strconv.Itoa(len(result.Profiles)),
			"skipped": strconv.Itoa(len(result.Skipped)),
		},
	})
	return result, nil
}

// MyRecords returns roster candidates for the authenticated email, or for
// the invitation's targeted person when one is named.
func (s *Service) MyRecords(ctx context.Context, email string, targeted *domain.PersonID) ([]*models.RecordCandidate, error) {
	if targeted != nil {
		person, err := s.persons.FindPerson(ctx, *targeted)
		if err != nil {
			if dErrors.HasCode(err, dErrors.CodeNotFound) {
				return nil, err
			}
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load person record")
		}
		return []*models.RecordCandidate{candidate(person)}, nil
	}
	if email == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "email is required")
	}
	persons, err := s.persons.FindPersonsByEmail(ctx, email)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to search person records")
	}
	candidates := make([]*models.RecordCandidate, 0, len(persons))
	for _, p := range persons {
		candidates = append(candidates, candidate(p))
	}
	return candidates, nil
}

// ValidateInvitation decodes and checks an invitation token.
func (s *Service) ValidateInvitation(_ context.Context, token string) (*invite.Claims, error) {
	if token == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "invitation token is required")
	}
	claims, err := s.invites.Decode(token)
	if err != nil {
		return nil, err
	}
	if !claims.ExpiresAt.IsZero() && !s.clock().Before(claims.ExpiresAt) {
		return nil, dErrors.New(dErrors.CodeValidation, "invitation has expired")
	}
	return claims, nil
}

// CollectYearOfBirth backfills a birth year on the roster before child
// profiles are created from it.
func (s *Service) CollectYearOfBirth(ctx context.Context, personID domain.PersonID, year int) error {
	if err := validateBirthYear(year, s.clock()); err != nil {
		return err
	}
	if err := s.persons.SetPersonBirthYear(ctx, personID, year); err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			return err
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record birth year")
	}
	return nil
}

// GrantConsent is the onboarding-flow alias for the consent engine grant.
func (s *Service) GrantConsent(ctx context.Context, childProfileID domain.ProfileID, guardianAccountID domain.AccountID, verification consentmodels.Verification) (*consentservice.GrantResult, error) {
	return s.consent.Grant(ctx, childProfileID, guardianAccountID, verification)
}

// Profiles lists the account's profiles for the onboarding summary view.
func (s *Service) Profiles(ctx context.Context, accountID domain.AccountID) ([]*profilemodels.View, error) {
	views, err := s.profiles.List(ctx, accountID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list profiles")
	}
	return views, nil
}

func candidate(person *profilemodels.PersonRecord) *models.RecordCandidate {
	return &models.RecordCandidate{Person: person, HasBirthYear: person.BirthYear != nil}
}

func validateBirthYear(year int, now time.Time) error {
	if year < now.Year()-120 || year > now.Year() {
		return dErrors.New(dErrors.CodeValidation, "birth year is out of range")
	}
	return nil
}
