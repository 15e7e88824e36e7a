// Package store persists the append-only consent audit trail.
package store

import (
	"context"
	"time"

	"familygate/internal/consent/models"
	"familygate/pkg/domain"
	dErrors "familygate/pkg/domain-errors"
)

// ErrNotFound keeps storage-specific 404s consistent across implementations.
var ErrNotFound = dErrors.New(dErrors.CodeNotFound, "consent record not found")

// Store appends and reads consent records. There is no update or delete
// beyond MarkRevoked, which flips status on an existing row; grant fields
// stay immutable for the life of the trail.
type Store interface {
	Append(ctx context.Context, record *models.ConsentRecord) error
	// ListByChild returns all records for a child profile, newest first.
	ListByChild(ctx context.Context, childProfileID domain.ProfileID) ([]*models.ConsentRecord, error)
	// FindActiveByChild returns the record currently authorizing access,
	// or ErrNotFound when none is active at the given instant.
	FindActiveByChild(ctx context.Context, childProfileID domain.ProfileID, now time.Time) (*models.ConsentRecord, error)
	MarkRevoked(ctx context.Context, id domain.ConsentRecordID, revokedAt time.Time, reason string) error
}
