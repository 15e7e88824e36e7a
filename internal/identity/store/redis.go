package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"familygate/internal/identity/models"
	"familygate/pkg/domain"
	dErrors "familygate/pkg/domain-errors"
)

const sessionKeyPrefix = "familygate:session:"

// defaultSessionTTL bounds how long an idle session survives in Redis.
const defaultSessionTTL = 30 * 24 * time.Hour

// Redis is the shared session store for multi-instance deployments.
// Sessions are stored as JSON under a per-session key with a sliding
// TTL refreshed on every save.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// RedisOption configures a Redis store.
type RedisOption func(*Redis)

// WithSessionTTL overrides the session expiry applied on save.
func WithSessionTTL(ttl time.Duration) RedisOption {
	return func(r *Redis) {
		if ttl > 0 {
			r.ttl = ttl
		}
	}
}

func NewRedis(client *redis.Client, opts ...RedisOption) *Redis {
	r := &Redis{client: client, ttl: defaultSessionTTL}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

func (r *Redis) Save(ctx context.Context, session *models.Session) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode session")
	}
	return r.client.Set(ctx, sessionKeyPrefix+session.ID.String(), payload, r.ttl).Err()
}

func (r *Redis) Find(ctx context.Context, id domain.SessionID) (*models.Session, error) {
	payload, err := r.client.Get(ctx, sessionKeyPrefix+id.String()).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load session")
	}
	var session models.Session
	if err := json.Unmarshal(payload, &session); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to decode session")
	}
	return &session, nil
}

func (r *Redis) Delete(ctx context.Context, id domain.SessionID) error {
	return r.client.Del(ctx, sessionKeyPrefix+id.String()).Err()
}
