package invite

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"familygate/pkg/domain"
	dErrors "familygate/pkg/domain-errors"
)

const signingKey = "test-invite-key"

func signInvite(t *testing.T, key string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(key))
	require.NoError(t, err)
	return token
}

func TestDecode(t *testing.T) {
	decoder := NewDecoder(signingKey)
	exp := time.Now().Add(24 * time.Hour)
	token := signInvite(t, signingKey, jwt.MapClaims{
		"email": "family@example.com",
		"exp":   exp.Unix(),
	})

	claims, err := decoder.Decode(token)
	require.NoError(t, err)
	assert.Equal(t, "family@example.com", claims.Email)
	assert.Nil(t, claims.TargetedPersonID)
	assert.WithinDuration(t, exp, claims.ExpiresAt, time.Second)
}

func TestDecode_TargetedPerson(t *testing.T) {
	decoder := NewDecoder(signingKey)
	personID := uuid.New()
	token := signInvite(t, signingKey, jwt.MapClaims{
		"email":              "family@example.com",
		"targeted_person_id": personID.String(),
		"exp":                time.Now().Add(time.Hour).Unix(),
	})

	claims, err := decoder.Decode(token)
	require.NoError(t, err)
	require.NotNil(t, claims.TargetedPersonID)
	assert.Equal(t, domain.PersonID(personID), *claims.TargetedPersonID)
}

func TestDecode_Expired(t *testing.T) {
	decoder := NewDecoder(signingKey)
	token := signInvite(t, signingKey, jwt.MapClaims{
		"email": "family@example.com",
		"exp":   time.Now().Add(-time.Hour).Unix(),
	})

	_, err := decoder.Decode(token)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	assert.Equal(t, "invitation has expired", dErrors.MessageOf(err))
}

func TestDecode_WrongKey(t *testing.T) {
	decoder := NewDecoder(signingKey)
	token := signInvite(t, "some-other-key", jwt.MapClaims{
		"email": "family@example.com",
		"exp":   time.Now().Add(time.Hour).Unix(),
	})

	_, err := decoder.Decode(token)
	require.Error(t, err)
	assert.Equal(t, "invalid invitation token", dErrors.MessageOf(err))
}

func TestDecode_MissingEmail(t *testing.T) {
	decoder := NewDecoder(signingKey)
	token := signInvite(t, signingKey, jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	_, err := decoder.Decode(token)
	require.Error(t, err)
	assert.Equal(t, "invitation is missing an email claim", dErrors.MessageOf(err))
}

func TestDecode_InvalidTargetedPerson(t *testing.T) {
	decoder := NewDecoder(signingKey)
	token := signInvite(t, signingKey, jwt.MapClaims{
		"email":              "family@example.com",
		"targeted_person_id": "not-a-uuid",
		"exp":                time.Now().Add(time.Hour).Unix(),
	})

	_, err := decoder.Decode(token)
	require.Error(t, err)
	assert.Equal(t, "invitation targets an invalid person id", dErrors.MessageOf(err))
}

func TestDecode_Garbage(t *testing.T) {
	decoder := NewDecoder(signingKey)

	_, err := decoder.Decode("not.a.token")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}
