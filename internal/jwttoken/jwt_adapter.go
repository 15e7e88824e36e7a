package jwttoken

import (
	"familygate/internal/platform/middleware"
)

func ToMiddlewareClaims(claims *AccessTokenClaims) *middleware.IdentityClaims {
	return &middleware.IdentityClaims{
		AccountID:       claims.AccountID,
		Email:           claims.Email,
		Role:            claims.Role,
		ActiveProfileID: claims.ActiveProfileID,
		SessionID:       claims.SessionID,
	}
}

// JWTServiceAdapter satisfies the auth middleware's TokenValidator.
type JWTServiceAdapter struct {
	service *JWTService
}

func NewJWTServiceAdapter(service *JWTService) *JWTServiceAdapter {
	return &JWTServiceAdapter{service: service}
}

func (a *JWTServiceAdapter) ValidateToken(tokenString string) (*middleware.IdentityClaims, error) {
	claims, err := a.service.ValidateAccessToken(tokenString)
	if err != nil {
		return nil, err
	}
	return ToMiddlewareClaims(claims), nil
}
