package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/FormFox/internal/pkg/env"
)

func TestStoreRoundTrip(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     env.GetEnv("TEST_REDIS_ADDR", "localhost:6379"),
		Password: env.GetEnv("TEST_REDIS_PASSWORD", ""),
		DB:       11,
	})
	ctx := context.Background()
	if err := rdb.Ping(ctx).Err(); err != nil {
		t.Skipf("redis not available: %v", err)
	}
	t.Cleanup(func() {
		_ = rdb.FlushDB(ctx).Err()
		_ = rdb.Close()
	})

	s := NewStore(rdb, "test:")
	require.NoError(t, s.Set(ctx, "k", "v", time.Minute))

	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)

	raw, err := rdb.Get(ctx, "test:k").Result()
	require.NoError(t, err)
	assert.Equal(t, "v", raw)

	require.NoError(t, s.Delete(ctx, "k"))
	_, err = s.Get(ctx, "k")
	assert.ErrorIs(t, err, redis.Nil)
}
