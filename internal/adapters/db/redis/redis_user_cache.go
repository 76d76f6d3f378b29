package redis

import (
	"context"
	"time"

	"github.com/Miraines/management-company/backoffice/internal/domain/auth/repo"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const keyPrefix = "user:exists:"

// RedisUserCache remembers positive answers of the wrapped directory for a
// short TTL. Negative answers are never cached, so a created account is
// visible immediately and a deleted one disappears within one TTL or on
// Forget.
type RedisUserCache struct {
	next   repo.UserDirectory
	client *redis.Client
	ttl    time.Duration
	log    *zap.Logger
}

func NewRedisUserCache(next repo.UserDirectory, client *redis.Client, ttl time.Duration, log *zap.Logger) *RedisUserCache {
	if log == nil {
		log = zap.NewNop()
	}
	return &RedisUserCache{
		next:   next,
		client: client,
		ttl:    ttl,
		log:    log,
	}
}

func (r *RedisUserCache) UserExists(ctx context.Context, id uuid.UUID) (bool, error) {
	val, err := r.client.Get(ctx, keyPrefix+id.String()).Result()
	switch {
	case err == redis.Nil:
	case err != nil:
		// redis is an accelerator only; fall through to the database
		r.log.Warn("existence cache read failed", zap.Error(err))
	case val == "1":
		return true, nil
	}

	exists, err := r.next.UserExists(ctx, id)
	if err != nil || !exists {
		return exists, err
	}

	if err := r.client.Set(ctx, keyPrefix+id.String(), "1", r.ttl).Err(); err != nil {
		r.log.Warn("existence cache write failed", zap.Error(err))
	}
	return true, nil
}

func (r *RedisUserCache) Forget(ctx context.Context, id uuid.UUID) error {
	return r.client.Del(ctx, keyPrefix+id.String()).Err()
}
