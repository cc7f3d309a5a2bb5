package session

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"tutor-platform/pkg/utils"
)

// Guard caps open sessions per learner across API instances.
type Guard interface {
	Acquire(ctx context.Context, userID string) (bool, error)
	Release(ctx context.Context, userID string) error
}

const guardKeyPrefix = "tutor:session:"

// RedisGuard holds one slot per learner in Redis. The TTL bounds how long a
// crashed instance can keep a learner locked out.
type RedisGuard struct {
	client redis.Scripter
	ttl    time.Duration
}

func NewRedisGuard(client redis.Scripter, ttl time.Duration) *RedisGuard {
	return &RedisGuard{client: client, ttl: ttl}
}

func (g *RedisGuard) Acquire(ctx context.Context, userID string) (bool, error) {
	if userID == "" {
		return false, errors.New("session guard: user id required")
	}
	return utils.AcquireSlot(ctx, g.client, guardKeyPrefix+userID, 1, g.ttl)
}

func (g *RedisGuard) Release(ctx context.Context, userID string) error {
	if userID == "" {
		return nil
	}
	return utils.ReleaseSlot(ctx, g.client, guardKeyPrefix+userID)
}

// NopGuard admits everyone. Used for single-instance runs and tests.
type NopGuard struct{}

func (NopGuard) Acquire(context.Context, string) (bool, error) { return true, nil }
func (NopGuard) Release(context.Context, string) error         { return nil }
