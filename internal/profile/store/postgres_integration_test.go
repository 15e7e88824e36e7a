//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"familygate/internal/profile/models"
	"familygate/internal/profile/store"
	"familygate/pkg/domain"
	dErrors "familygate/pkg/domain-errors"
	"familygate/pkg/testutil/containers"
)

type ProfileStoreSuite struct {
	suite.Suite
	ctx   context.Context
	pg    *containers.PostgresContainer
	store *store.Postgres

	accountID domain.AccountID
	personID  domain.PersonID
}

func TestProfileStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(ProfileStoreSuite))
}

func (s *ProfileStoreSuite) SetupSuite() {
	s.ctx = context.Background()
	s.pg = containers.NewPostgresContainer(s.T(), "../../../migrations/0001_init.sql")
	s.store = store.NewPostgres(s.pg.DB)
}

func (s *ProfileStoreSuite) SetupTest() {
	require.NoError(s.T(), s.pg.Truncate(s.ctx, "consent_records", "profiles", "person_records", "accounts"))

	s.accountID = domain.AccountID(uuid.New())
	s.personID = s.seedPerson("family@example.com", "Pat", "Doe", 1986)
	s.seedAccount(s.accountID, "active")
}

func (s *ProfileStoreSuite) seedAccount(id domain.AccountID, status string) {
	_, err := s.pg.DB.ExecContext(s.ctx,
		`INSERT INTO accounts (id, status) VALUES ($1, $2)`,
		uuid.UUID(id), status)
	require.NoError(s.T(), err)
}

func (s *ProfileStoreSuite) seedPerson(email, first, last string, birthYear int) domain.PersonID {
	id := domain.PersonID(uuid.New())
	_, err := s.pg.DB.ExecContext(s.ctx,
		`INSERT INTO person_records (id, email, first_name, last_name, birth_year)
		 VALUES ($1, $2, $3, $4, $5)`,
		uuid.UUID(id), email, first, last, birthYear)
	require.NoError(s.T(), err)
	return id
}

func (s *ProfileStoreSuite) newParent() *models.Profile {
	now := time.Now().UTC()
	return &models.Profile{
		ID:             domain.NewProfileID(),
		AccountID:      s.accountID,
		PersonRecordID: s.personID,
		Relationship:   models.RelationshipParent,
		AccessLevel:    models.AccessFull,
		Status:         models.ProfileActive,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func (s *ProfileStoreSuite) TestCreateAndFind() {
	profile := s.newParent()
	require.NoError(s.T(), s.store.Create(s.ctx, profile))

	view, err := s.store.Find(s.ctx, s.accountID, profile.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), profile.ID, view.ID)
	assert.Equal(s.T(), models.RelationshipParent, view.Relationship)
	assert.Equal(s.T(), models.AccessFull, view.AccessLevel)
	assert.Equal(s.T(), "family@example.com", view.Email)
	assert.Equal(s.T(), "Pat", view.FirstName)
	require.NotNil(s.T(), view.BirthYear)
	assert.Equal(s.T(), 1986, *view.BirthYear)
}

func (s *ProfileStoreSuite) TestFind_ScopedToAccount() {
	profile := s.newParent()
	require.NoError(s.T(), s.store.Create(s.ctx, profile))

	otherAccount := domain.AccountID(uuid.New())
	s.seedAccount(otherAccount, "active")

	_, err := s.store.Find(s.ctx, otherAccount, profile.ID)
	require.Error(s.T(), err)
	assert.True(s.T(), dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ProfileStoreSuite) TestList_ParentsBeforeChildren() {
	parent := s.newParent()
	require.NoError(s.T(), s.store.Create(s.ctx, parent))

	childPerson := s.seedPerson("family@example.com", "Sam", "Doe", 2011)
	child := &models.Profile{
		ID:              domain.NewProfileID(),
		AccountID:       s.accountID,
		PersonRecordID:  childPerson,
		Relationship:    models.RelationshipChild,
		ParentProfileID: &parent.ID,
		AccessLevel:     models.AccessBlocked,
		Status:          models.ProfilePendingConsent,
		RequiresConsent: true,
		// Created before the parent, but parents still sort first.
		CreatedAt: parent.CreatedAt.Add(-time.Hour),
		UpdatedAt: parent.UpdatedAt,
	}
	require.NoError(s.T(), s.store.Create(s.ctx, child))

	views, err := s.store.List(s.ctx, s.accountID)
	require.NoError(s.T(), err)
	require.Len(s.T(), views, 2)
	assert.Equal(s.T(), parent.ID, views[0].ID)
	assert.Equal(s.T(), child.ID, views[1].ID)
	require.NotNil(s.T(), views[1].ParentProfileID)
	assert.Equal(s.T(), parent.ID, *views[1].ParentProfileID)
}

func (s *ProfileStoreSuite) TestCreate_ChildWithoutParentRejected() {
	childPerson := s.seedPerson("family@example.com", "Sam", "Doe", 2011)
	child := &models.Profile{
		ID:              domain.NewProfileID(),
		AccountID:       s.accountID,
		PersonRecordID:  childPerson,
		Relationship:    models.RelationshipChild,
		AccessLevel:     models.AccessBlocked,
		Status:          models.ProfilePendingConsent,
		RequiresConsent: true,
		CreatedAt:       time.Now().UTC(),
		UpdatedAt:       time.Now().UTC(),
	}

	// The profiles_parent_link constraint backstops the service rule.
	err := s.store.Create(s.ctx, child)
	require.Error(s.T(), err)
}

func (s *ProfileStoreSuite) TestUpdatePersonal() {
	profile := s.newParent()
	require.NoError(s.T(), s.store.Create(s.ctx, profile))

	first := "Patricia"
	view, err := s.store.UpdatePersonal(s.ctx, s.accountID, profile.ID, models.PersonalUpdate{FirstName: &first})
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "Patricia", view.FirstName)
	assert.Equal(s.T(), "Doe", view.LastName)
	assert.Equal(s.T(), models.AccessFull, view.AccessLevel)
}

func (s *ProfileStoreSuite) TestSetConsentState() {
	parent := s.newParent()
	require.NoError(s.T(), s.store.Create(s.ctx, parent))

	childPerson := s.seedPerson("family@example.com", "Sam", "Doe", 2011)
	child := &models.Profile{
		ID:              domain.NewProfileID(),
		AccountID:       s.accountID,
		PersonRecordID:  childPerson,
		Relationship:    models.RelationshipChild,
		ParentProfileID: &parent.ID,
		AccessLevel:     models.AccessBlocked,
		Status:          models.ProfilePendingConsent,
		RequiresConsent: true,
		CreatedAt:       time.Now().UTC(),
		UpdatedAt:       time.Now().UTC(),
	}
	require.NoError(s.T(), s.store.Create(s.ctx, child))

	expiry := time.Now().UTC().Add(365 * 24 * time.Hour).Truncate(time.Second)
	require.NoError(s.T(), s.store.SetConsentState(s.ctx, child.ID, models.ConsentState{
		Status:          models.ProfileActive,
		AccessLevel:     models.AccessSupervised,
		RequiresConsent: true,
		ConsentGiven:    true,
		ConsentExpiry:   &expiry,
	}))

	view, err := s.store.Find(s.ctx, s.accountID, child.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), models.AccessSupervised, view.AccessLevel)
	assert.Equal(s.T(), models.ProfileActive, view.Status)
	assert.True(s.T(), view.ConsentGiven)
	require.NotNil(s.T(), view.ConsentExpiry)
	assert.WithinDuration(s.T(), expiry, *view.ConsentExpiry, time.Second)
}

func (s *ProfileStoreSuite) TestAccountStatusRoundTrip() {
	pendingAccount := domain.AccountID(uuid.New())
	s.seedAccount(pendingAccount, "pending")

	account, err := s.store.FindAccount(s.ctx, pendingAccount)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), models.AccountPending, account.Status)

	require.NoError(s.T(), s.store.SetAccountStatus(s.ctx, pendingAccount, models.AccountActive))

	account, err = s.store.FindAccount(s.ctx, pendingAccount)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), models.AccountActive, account.Status)
}

func (s *ProfileStoreSuite) TestPersonLookups() {
	person, err := s.store.FindPerson(s.ctx, s.personID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "family@example.com", person.Email)

	// Email matching is case insensitive.
	persons, err := s.store.FindPersonsByEmail(s.ctx, "FAMILY@example.com")
	require.NoError(s.T(), err)
	require.Len(s.T(), persons, 1)
	assert.Equal(s.T(), s.personID, persons[0].ID)

	noBirthYear := domain.PersonID(uuid.New())
	_, err = s.pg.DB.ExecContext(s.ctx,
		`INSERT INTO person_records (id, email, first_name) VALUES ($1, $2, $3)`,
		uuid.UUID(noBirthYear), "kid@example.com", "Sam")
	require.NoError(s.T(), err)

	require.NoError(s.T(), s.store.SetPersonBirthYear(s.ctx, noBirthYear, 2011))
	person, err = s.store.FindPerson(s.ctx, noBirthYear)
	require.NoError(s.T(), err)
	require.NotNil(s.T(), person.BirthYear)
	assert.Equal(s.T(), 2011, *person.BirthYear)
}
