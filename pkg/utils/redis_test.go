package utils

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func newUnreachableRedis() *redis.Client {
	return redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 50 * time.Millisecond})
}

func TestSlotScriptsInitialized(t *testing.T) {
	assert.NotNil(t, slotAcquireScript)
	assert.NotNil(t, slotReleaseScript)
}

func TestAcquireSlot_ValidatesArguments(t *testing.T) {
	ctx := context.Background()

	_, err := AcquireSlot(ctx, nil, "k", 1, time.Second)
	assert.Error(t, err)

	rdb := newUnreachableRedis()
	defer rdb.Close()

	_, err = AcquireSlot(ctx, rdb, "", 1, time.Second)
	assert.ErrorContains(t, err, "key is required")
	_, err = AcquireSlot(ctx, rdb, "k", 0, time.Second)
	assert.ErrorContains(t, err, "limit must be > 0")
	_, err = AcquireSlot(ctx, rdb, "k", 1, 0)
	assert.ErrorContains(t, err, "ttl must be > 0")
	assert.ErrorContains(t, ReleaseSlot(ctx, rdb, ""), "key is required")
}

func TestOpenRedis_RequiresAddr(t *testing.T) {
	_, err := OpenRedis(context.Background(), RedisOptions{})
	assert.ErrorContains(t, err, "redis addr is required")
}

func TestOpenRedis_PingFailure(t *testing.T) {
	_, err := OpenRedis(context.Background(), RedisOptions{Addr: "127.0.0.1:1", PingTimeout: 100 * time.Millisecond})
	assert.ErrorContains(t, err, "redis ping failed")
}
