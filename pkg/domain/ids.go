// Package domain holds typed identifiers shared across components.
//
// IDs are distinct types over uuid.UUID so the compiler rejects passing an
// account ID where a profile ID is expected. Construct them from external
// input via the Parse helpers, which enforce the invariant that IDs are
// valid, non-nil UUIDs at trust boundaries.
package domain

import (
	"github.com/google/uuid"

	dErrors "familygate/pkg/domain-errors"
)

type AccountID uuid.UUID

type ProfileID uuid.UUID

type PersonID uuid.UUID

type SessionID uuid.UUID

type ConsentRecordID uuid.UUID

func (id AccountID) String() string       { return uuid.UUID(id).String() }
func (id ProfileID) String() string       { return uuid.UUID(id).String() }
func (id PersonID) String() string        { return uuid.UUID(id).String() }
func (id SessionID) String() string       { return uuid.UUID(id).String() }
func (id ConsentRecordID) String() string { return uuid.UUID(id).String() }

func (id AccountID) IsNil() bool       { return uuid.UUID(id) == uuid.Nil }
func (id ProfileID) IsNil() bool       { return uuid.UUID(id) == uuid.Nil }
func (id PersonID) IsNil() bool        { return uuid.UUID(id) == uuid.Nil }
func (id SessionID) IsNil() bool       { return uuid.UUID(id) == uuid.Nil }
func (id ConsentRecordID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// NewProfileID returns a fresh random profile ID.
func NewProfileID() ProfileID { return ProfileID(uuid.New()) }

// NewConsentRecordID returns a fresh random consent record ID.
func NewConsentRecordID() ConsentRecordID { return ConsentRecordID(uuid.New()) }

func ParseAccountID(s string) (AccountID, error) {
	u, err := parseUUID(s)
	return AccountID(u), err
}

func ParseProfileID(s string) (ProfileID, error) {
	u, err := parseUUID(s)
	return ProfileID(u), err
}

func ParsePersonID(s string) (PersonID, error) {
	u, err := parseUUID(s)
	return PersonID(u), err
}

func ParseSessionID(s string) (SessionID, error) {
	u, err := parseUUID(s)
	return SessionID(u), err
}

func parseUUID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id must not be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "id must be a valid UUID")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id must not be the nil UUID")
	}
	return u, nil
}
