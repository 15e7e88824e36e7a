package jwttoken

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"familygate/pkg/domain"
	dErrors "familygate/pkg/domain-errors"
)

var jwtService = NewJWTService(
	"test-signing-key",
	"test-issuer",
	"test-audience",
)
var accountID = domain.AccountID(uuid.New())
var sessionID = domain.SessionID(uuid.New())
var profileID = domain.NewProfileID()
var expiresIn = time.Hour

func Test_GenerateAccessToken(t *testing.T) {
	token, err := jwtService.GenerateAccessToken(accountID, "parent@example.com", "parent", &profileID, sessionID, expiresIn)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := jwtService.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, accountID.String(), claims.AccountID)
	assert.Equal(t, "parent@example.com", claims.Email)
	assert.Equal(t, "parent", claims.Role)
	assert.Equal(t, profileID.String(), claims.ActiveProfileID)
	assert.Equal(t, sessionID.String(), claims.SessionID)
	assert.WithinDuration(t, time.Now().Add(expiresIn), claims.ExpiresAt.Time, time.Minute)
}

func Test_GenerateAccessToken_NoActiveProfile(t *testing.T) {
	token, err := jwtService.GenerateAccessToken(accountID, "parent@example.com", "parent", nil, sessionID, expiresIn)
	require.NoError(t, err)

	claims, err := jwtService.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Empty(t, claims.ActiveProfileID)
}

func Test_ValidateAccessToken_InvalidToken(t *testing.T) {
	_, err := jwtService.ValidateAccessToken("invalid-token-string")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func Test_ValidateAccessToken_ExpiredToken(t *testing.T) {
	token, err := jwtService.GenerateAccessToken(accountID, "parent@example.com", "parent", nil, sessionID, -time.Hour)
	require.NoError(t, err)

	_, err = jwtService.ValidateAccessToken(token)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	assert.Equal(t, "token has expired", dErrors.MessageOf(err))
}

func Test_ValidateAccessToken_WrongKey(t *testing.T) {
	other := NewJWTService("another-key", "test-issuer", "test-audience")
	token, err := other.GenerateAccessToken(accountID, "parent@example.com", "parent", nil, sessionID, expiresIn)
	require.NoError(t, err)

	_, err = jwtService.ValidateAccessToken(token)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func Test_GenerateRefreshToken(t *testing.T) {
	token, err := jwtService.GenerateRefreshToken(accountID, &profileID, sessionID, "v-123", expiresIn)
	require.NoError(t, err)

	claims, err := jwtService.ValidateRefreshToken(token)
	require.NoError(t, err)
	assert.Equal(t, accountID.String(), claims.AccountID)
	assert.Equal(t, profileID.String(), claims.ActiveProfileID)
	assert.Equal(t, sessionID.String(), claims.SessionID)
	assert.Equal(t, "v-123", claims.Version)
}

func Test_ValidateRefreshToken_Expired(t *testing.T) {
	token, err := jwtService.GenerateRefreshToken(accountID, nil, sessionID, "v-123", -time.Hour)
	require.NoError(t, err)

	_, err = jwtService.ValidateRefreshToken(token)
	require.Error(t, err)
	assert.Equal(t, "refresh token has expired", dErrors.MessageOf(err))
}

func Test_Adapter_SatisfiesMiddleware(t *testing.T) {
	adapter := NewJWTServiceAdapter(jwtService)
	token, err := jwtService.GenerateAccessToken(accountID, "parent@example.com", "parent", &profileID, sessionID, expiresIn)
	require.NoError(t, err)

	claims, err := adapter.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, accountID.String(), claims.AccountID)
	assert.Equal(t, profileID.String(), claims.ActiveProfileID)
}
