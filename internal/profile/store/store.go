// Package store persists accounts, the person roster, and profiles.
//
// Interfaces are split by mutation authority: Store covers reads, creation
// and the restricted personal-field update; AuthorityWriter mutates
// authorization fields and is handed only to the consent engine. Nothing
// else in the tree can reach those columns.
package store

import (
	"context"

	"familygate/internal/profile/models"
	"familygate/pkg/domain"
	dErrors "familygate/pkg/domain-errors"
)

// ErrNotFound keeps storage-specific 404s consistent across in-memory and
// Postgres implementations.
var ErrNotFound = dErrors.New(dErrors.CodeNotFound, "record not found")

type Store interface {
	Create(ctx context.Context, profile *models.Profile) error
	Find(ctx context.Context, accountID domain.AccountID, profileID domain.ProfileID) (*models.View, error)
	// List returns parent profiles before child profiles, then ascending
	// creation time.
	List(ctx context.Context, accountID domain.AccountID) ([]*models.View, error)
	// UpdatePersonal applies the fixed personal-field allow-list. The
	// implementation carries no authorization columns in its statement.
	UpdatePersonal(ctx context.Context, accountID domain.AccountID, profileID domain.ProfileID, update models.PersonalUpdate) (*models.View, error)
}

// AuthorityWriter mutates the authorization fields of a profile. Only the
// consent engine holds one.
type AuthorityWriter interface {
	SetConsentState(ctx context.Context, profileID domain.ProfileID, state models.ConsentState) error
}

type AccountStore interface {
	FindAccount(ctx context.Context, id domain.AccountID) (*models.Account, error)
	SetAccountStatus(ctx context.Context, id domain.AccountID, status models.AccountStatus) error
}

// PersonStore reads the external roster. Birth year is the only writable
// field, backfilled during onboarding before child profiles are created.
type PersonStore interface {
	FindPerson(ctx context.Context, id domain.PersonID) (*models.PersonRecord, error)
	FindPersonsByEmail(ctx context.Context, email string) ([]*models.PersonRecord, error)
	SetPersonBirthYear(ctx context.Context, id domain.PersonID, year int) error
}
