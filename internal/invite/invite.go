// Package invite consumes invitation tokens. Signing lives with the
// external invitation service; this core only decodes and validates the
// claims it needs to locate candidate person records.
package invite

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"familygate/pkg/domain"
	dErrors "familygate/pkg/domain-errors"
)

// Claims are the decoded invitation contents consumed read-only by
// onboarding.
type Claims struct {
	Email            string
	ExpiresAt        time.Time
	TargetedPersonID *domain.PersonID
}

type inviteClaims struct {
	Email            string `json:"email"`
	TargetedPersonID string `json:"targeted_person_id,omitempty"`
	jwt.RegisteredClaims
}

// Decoder validates invitation tokens against the shared signing key.
type Decoder struct {
	signingKey []byte
}

func NewDecoder(signingKey string) *Decoder {
	return &Decoder{signingKey: []byte(signingKey)}
}

// Decode parses and verifies an invitation token and returns its claims.
func (d *Decoder) Decode(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &inviteClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return d.signingKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeValidation, "invitation has expired")
		}
		return nil, dErrors.New(dErrors.CodeValidation, "invalid invitation token")
	}

	claims, ok := parsed.Claims.(*inviteClaims)
	if !ok || !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeValidation, "invalid invitation token")
	}
	if claims.Email == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "invitation is missing an email claim")
	}

	out := &Claims{Email: claims.Email}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	if claims.TargetedPersonID != "" {
		personID, err := domain.ParsePersonID(claims.TargetedPersonID)
		if err != nil {
			return nil, dErrors.New(dErrors.CodeValidation, "invitation targets an invalid person id")
		}
		out.TargetedPersonID = &personID
	}
	return out, nil
}
