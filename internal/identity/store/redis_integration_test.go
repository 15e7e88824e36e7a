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

	"familygate/internal/identity/models"
	"familygate/internal/identity/store"
	"familygate/pkg/domain"
	dErrors "familygate/pkg/domain-errors"
	"familygate/pkg/testutil/containers"
)

type RedisStoreSuite struct {
	suite.Suite
	ctx   context.Context
	redis *containers.RedisContainer
	store *store.Redis
}

func TestRedisStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisStoreSuite))
}

func (s *RedisStoreSuite) SetupSuite() {
	s.ctx = context.Background()
	s.redis = containers.NewRedisContainer(s.T())
	s.store = store.NewRedis(s.redis.Client)
}

func (s *RedisStoreSuite) SetupTest() {
	require.NoError(s.T(), s.redis.FlushAll(s.ctx))
}

func (s *RedisStoreSuite) newSession() *models.Session {
	profileID := domain.NewProfileID()
	return &models.Session{
		ID:              domain.SessionID(uuid.New()),
		AccountID:       domain.AccountID(uuid.New()),
		ActiveProfileID: &profileID,
		RefreshVersion:  uuid.NewString(),
		DeviceName:      "Chrome on Mac OS X",
		CreatedAt:       time.Now().UTC().Truncate(time.Second),
		LastSwitchAt:    time.Now().UTC().Truncate(time.Second),
	}
}

func (s *RedisStoreSuite) TestSaveAndFind() {
	session := s.newSession()
	require.NoError(s.T(), s.store.Save(s.ctx, session))

	found, err := s.store.Find(s.ctx, session.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), session.AccountID, found.AccountID)
	require.NotNil(s.T(), found.ActiveProfileID)
	assert.Equal(s.T(), *session.ActiveProfileID, *found.ActiveProfileID)
	assert.Equal(s.T(), session.RefreshVersion, found.RefreshVersion)
	assert.Equal(s.T(), session.DeviceName, found.DeviceName)
}

func (s *RedisStoreSuite) TestSaveOverwrites() {
	session := s.newSession()
	require.NoError(s.T(), s.store.Save(s.ctx, session))

	session.RefreshVersion = uuid.NewString()
	session.ActiveProfileID = nil
	require.NoError(s.T(), s.store.Save(s.ctx, session))

	found, err := s.store.Find(s.ctx, session.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), session.RefreshVersion, found.RefreshVersion)
	assert.Nil(s.T(), found.ActiveProfileID)
}

func (s *RedisStoreSuite) TestFindUnknown() {
	_, err := s.store.Find(s.ctx, domain.SessionID(uuid.New()))
	require.Error(s.T(), err)
	assert.True(s.T(), dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *RedisStoreSuite) TestDelete() {
	session := s.newSession()
	require.NoError(s.T(), s.store.Save(s.ctx, session))
	require.NoError(s.T(), s.store.Delete(s.ctx, session.ID))

	_, err := s.store.Find(s.ctx, session.ID)
	assert.True(s.T(), dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *RedisStoreSuite) TestSessionExpires() {
	shortStore := store.NewRedis(s.redis.Client, store.WithSessionTTL(time.Second))
	session := s.newSession()
	require.NoError(s.T(), shortStore.Save(s.ctx, session))

	time.Sleep(1500 * time.Millisecond)

	_, err := shortStore.Find(s.ctx, session.ID)
	assert.True(s.T(), dErrors.HasCode(err, dErrors.CodeNotFound))
}
