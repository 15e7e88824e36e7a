// Package store persists identity sessions.
package store

import (
	"context"

	"familygate/internal/identity/models"
	"familygate/pkg/domain"
	dErrors "familygate/pkg/domain-errors"
)

// ErrNotFound keeps storage-specific 404s consistent across session
// store implementations.
var ErrNotFound = dErrors.New(dErrors.CodeNotFound, "session not found")

// Store persists session state. Save overwrites; sessions are keyed by
// their ID and scoped to one account.
type Store interface {
	Save(ctx context.Context, session *models.Session) error
	Find(ctx context.Context, id domain.SessionID) (*models.Session, error)
	Delete(ctx context.Context, id domain.SessionID) error
}
