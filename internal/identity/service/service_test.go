package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"familygate/internal/audit"
	"familygate/internal/identity/store"
	"familygate/internal/jwttoken"
	profilemodels "familygate/internal/profile/models"
	profilestore "familygate/internal/profile/store"
	"familygate/pkg/domain"
	dErrors "familygate/pkg/domain-errors"
)

var testNow = time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

type noopAuditor struct{}

func (noopAuditor) Emit(context.Context, audit.Event) {}

type IdentityServiceSuite struct {
	suite.Suite
	ctx      context.Context
	profiles *profilestore.Memory
	sessions *store.Memory
	jwt      *jwttoken.JWTService
	svc      *Service

	accountID domain.AccountID
	sessionID domain.SessionID
	parentID  domain.ProfileID
	blockedID domain.ProfileID
}

func TestIdentityServiceSuite(t *testing.T) {
	suite.Run(t, new(IdentityServiceSuite))
}

func (s *IdentityServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.profiles = profilestore.NewMemory()
	s.sessions = store.NewMemory()
	s.jwt = jwttoken.NewJWTService("test-signing-key", "test-issuer", "test-audience")
	s.svc = NewService(
		s.profiles, s.sessions, s.jwt, noopAuditor{},
		15*time.Minute, 30*24*time.Hour,
		WithClock(func() time.Time { return testNow }),
	)

	s.accountID = domain.AccountID(uuid.New())
	s.sessionID = domain.SessionID(uuid.New())
	s.profiles.SeedAccount(&profilemodels.Account{
		ID: s.accountID, Status: profilemodels.AccountActive,
		CreatedAt: testNow, UpdatedAt: testNow,
	})

	parentPerson := domain.PersonID(uuid.New())
	s.profiles.SeedPerson(&profilemodels.PersonRecord{
		ID: parentPerson, Email: "parent@example.com", FirstName: "Pat",
	})
	s.parentID = domain.NewProfileID()
	s.Require().NoError(s.profiles.Create(s.ctx, &profilemodels.Profile{
		ID: s.parentID, AccountID: s.accountID, PersonRecordID: parentPerson,
		Relationship: profilemodels.RelationshipParent,
		AccessLevel:  profilemodels.AccessFull, Status: profilemodels.ProfileActive,
		CreatedAt: testNow, UpdatedAt: testNow,
	}))

	childPerson := domain.PersonID(uuid.New())
	s.profiles.SeedPerson(&profilemodels.PersonRecord{
		ID: childPerson, Email: "parent@example.com", FirstName: "Sam",
	})
	s.blockedID = domain.NewProfileID()
	s.Require().NoError(s.profiles.Create(s.ctx, &profilemodels.Profile{
		ID: s.blockedID, AccountID: s.accountID, PersonRecordID: childPerson,
		Relationship: profilemodels.RelationshipChild, ParentProfileID: &s.parentID,
		AccessLevel: profilemodels.AccessBlocked, Status: profilemodels.ProfilePendingConsent,
		RequiresConsent: true,
		CreatedAt:       testNow, UpdatedAt: testNow,
	}))
}

func (s *IdentityServiceSuite) TestSwitch_MintsTokenPair() {
	result, err := s.svc.Switch(s.ctx, s.accountID, s.sessionID, s.parentID, "Firefox on Linux")
	s.Require().NoError(err)

	assert.Equal(s.T(), s.parentID, result.Profile.ID)
	assert.Equal(s.T(), "Bearer", result.Tokens.TokenType)
	assert.Equal(s.T(), int64((15 * time.Minute).Seconds()), result.Tokens.ExpiresIn)

	claims, err := s.jwt.ValidateAccessToken(result.Tokens.AccessToken)
	s.Require().NoError(err)
	assert.Equal(s.T(), s.accountID.String(), claims.AccountID)
	assert.Equal(s.T(), "parent@example.com", claims.Email)
	assert.Equal(s.T(), "parent", claims.Role)
	assert.Equal(s.T(), s.parentID.String(), claims.ActiveProfileID)
	assert.Equal(s.T(), s.sessionID.String(), claims.SessionID)

	session, err := s.sessions.Find(s.ctx, s.sessionID)
	s.Require().NoError(err)
	s.Require().NotNil(session.ActiveProfileID)
	assert.Equal(s.T(), s.parentID, *session.ActiveProfileID)
	assert.Equal(s.T(), "Firefox on Linux", session.DeviceName)
	assert.NotEmpty(s.T(), session.RefreshVersion)
}

func (s *IdentityServiceSuite) TestSwitch_BlockedProfileForbidden() {
	_, err := s.svc.Switch(s.ctx, s.accountID, s.sessionID, s.blockedID, "")
	s.Require().Error(err)
	assert.True(s.T(), dErrors.HasCode(err, dErrors.CodeForbidden))

	// No session state materializes for a denied switch.
	_, err = s.sessions.Find(s.ctx, s.sessionID)
	assert.True(s.T(), dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *IdentityServiceSuite) TestSwitch_LapsedConsentReadsAsBlocked() {
	lapsed := testNow.Add(-time.Hour)
	s.Require().NoError(s.profiles.SetConsentState(s.ctx, s.blockedID, profilemodels.ConsentState{
		Status:          profilemodels.ProfileActive,
		AccessLevel:     profilemodels.AccessSupervised,
		RequiresConsent: true,
		ConsentGiven:    true,
		ConsentExpiry:   &lapsed,
	}))

	_, err := s.svc.Switch(s.ctx, s.accountID, s.sessionID, s.blockedID, "")
	s.Require().Error(err)
	assert.True(s.T(), dErrors.HasCode(err, dErrors.CodeForbidden))
}

func (s *IdentityServiceSuite) TestSwitch_ForeignProfileNotFound() {
	_, err := s.svc.Switch(s.ctx, domain.AccountID(uuid.New()), s.sessionID, s.parentID, "")
	s.Require().Error(err)
	assert.True(s.T(), dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *IdentityServiceSuite) TestSwitch_RotatesRefreshVersion() {
	first, err := s.svc.Switch(s.ctx, s.accountID, s.sessionID, s.parentID, "")
	s.Require().NoError(err)
	firstClaims, err := s.jwt.ValidateRefreshToken(first.Tokens.RefreshToken)
	s.Require().NoError(err)

	second, err := s.svc.Switch(s.ctx, s.accountID, s.sessionID, s.parentID, "")
	s.Require().NoError(err)
	secondClaims, err := s.jwt.ValidateRefreshToken(second.Tokens.RefreshToken)
	s.Require().NoError(err)

	assert.NotEqual(s.T(), firstClaims.Version, secondClaims.Version)

	// Only the latest refresh token matches the session; the earlier one
	// is a stale replay.
	ok, err := s.svc.RefreshVersionMatches(s.ctx, s.sessionID, secondClaims.Version)
	s.Require().NoError(err)
	assert.True(s.T(), ok)

	ok, err = s.svc.RefreshVersionMatches(s.ctx, s.sessionID, firstClaims.Version)
	s.Require().NoError(err)
	assert.False(s.T(), ok)
}

func (s *IdentityServiceSuite) TestRefreshVersionMatches_UnknownSession() {
	ok, err := s.svc.RefreshVersionMatches(s.ctx, domain.SessionID(uuid.New()), "v-1")
	require.NoError(s.T(), err)
	assert.False(s.T(), ok)
}
