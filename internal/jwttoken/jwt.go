// Package jwttoken issues and validates the access and refresh tokens
// that carry an account's identity and active-profile pointer.
package jwttoken

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"familygate/pkg/domain"
	dErrors "familygate/pkg/domain-errors"
)

// AccessTokenClaims are the claims carried by short-lived access tokens.
// ActiveProfileID is a pointer, not a grant: permissions are always
// re-evaluated server side against the profile's current access level.
type AccessTokenClaims struct {
	AccountID       string `json:"account_id"`
	Email           string `json:"email"`
	Role            string `json:"role"`
	ActiveProfileID string `json:"active_profile_id,omitempty"`
	SessionID       string `json:"session_id"`
	jwt.RegisteredClaims
}

// RefreshTokenClaims are the claims carried by refresh tokens. Version
// must match the session's current refresh version; rotating the version
// invalidates every previously issued refresh token.
type RefreshTokenClaims struct {
	AccountID       string `json:"account_id"`
	ActiveProfileID string `json:"active_profile_id,omitempty"`
	SessionID       string `json:"session_id"`
	Version         string `json:"version"`
	jwt.RegisteredClaims
}

// JWTService handles token creation and validation.
type JWTService struct {
	signingKey []byte
	issuer     string
	audience   string
}

func NewJWTService(signingKey string, issuer string, audience string) *JWTService {
	return &JWTService{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		audience:   audience,
	}
}

func (s *JWTService) GenerateAccessToken(
	accountID domain.AccountID,
	email string,
	role string,
	activeProfileID *domain.ProfileID,
	sessionID domain.SessionID,
	expiresIn time.Duration,
) (string, error) {
	claims := AccessTokenClaims{
		AccountID: accountID.String(),
		Email:     email,
		Role:      role,
		SessionID: sessionID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    s.issuer,
			Audience:  []string{s.audience},
			ID:        uuid.NewString(),
		},
	}
	if activeProfileID != nil {
		claims.ActiveProfileID = activeProfileID.String()
	}

	newToken := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := newToken.SignedString(s.signingKey)
	if err != nil {
		return "", err
	}
	return signedToken, nil
}

func (s *JWTService) GenerateRefreshToken(
	accountID domain.AccountID,
	activeProfileID *domain.ProfileID,
	sessionID domain.SessionID,
	version string,
	expiresIn time.Duration,
) (string, error) {
	claims := RefreshTokenClaims{
		AccountID: accountID.String(),
		SessionID: sessionID.String(),
		Version:   version,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    s.issuer,
			Audience:  []string{s.audience},
			ID:        uuid.NewString(),
		},
	}
	if activeProfileID != nil {
		claims.ActiveProfileID = activeProfileID.String()
	}

	newToken := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := newToken.SignedString(s.signingKey)
	if err != nil {
		return "", err
	}
	return signedToken, nil
}

func (s *JWTService) ValidateAccessToken(tokenString string) (*AccessTokenClaims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &AccessTokenClaims{}, s.keyFunc)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	if !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*AccessTokenClaims)
	if !ok {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	return claims, nil
}

func (s *JWTService) ValidateRefreshToken(tokenString string) (*RefreshTokenClaims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &RefreshTokenClaims{}, s.keyFunc)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "refresh token has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid refresh token")
	}
	if !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid refresh token")
	}

	claims, ok := parsed.Claims.(*RefreshTokenClaims)
	if !ok {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid refresh token claims")
	}
	return claims, nil
}

func (s *JWTService) keyFunc(token *jwt.Token) (interface{}, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, jwt.ErrTokenUnverifiable
	}
	return s.signingKey, nil
}
