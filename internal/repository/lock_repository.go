package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	appErrors "github.com/noah-isme/session-archiver/pkg/errors"
)

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// LockRepository provides a best-effort single-instance lock backed by Redis.
type LockRepository struct {
	client *redis.Client
}

// NewLockRepository constructs the repository. A nil client disables locking.
func NewLockRepository(client *redis.Client) *LockRepository {
	return &LockRepository{client: client}
}

// Acquire takes key for ttl and returns a release func. It fails with ErrLockNotAcquired when
// another holder owns the key.
func (r *LockRepository) Acquire(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, error) {
	if r.client == nil {
		return func(context.Context) error { return nil }, nil
	}

	token := uuid.NewString()
	ok, err := r.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("redis setnx %s: %w", key, err)
	}
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrLockNotAcquired, fmt.Sprintf("lock %s is held", key))
	}

	return func(releaseCtx context.Context) error {
		if err := releaseScript.Run(releaseCtx, r.client, []string{key}, token).Err(); err != nil && err != redis.Nil {
			return fmt.Errorf("release lock %s: %w", key, err)
		}
		return nil
	}, nil
}
