package jobqueue

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

const isolatedJobQueueTestRedisDB = 14

func testRedisAddr() string {
	if addr := os.Getenv("TEST_REDIS_ADDR"); addr != "" {
		return addr
	}
	return "localhost:6379"
}

// newIsolatedRedisClient connects to a dedicated Redis DB and flushes it
// around the test. The test is skipped when Redis is unreachable.
func newIsolatedRedisClient(t *testing.T, db int) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr:     testRedisAddr(),
		Password: os.Getenv("TEST_REDIS_PASSWORD"),
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	_, err := client.Ping(ctx).Result()
	cancel()
	if err != nil {
		_ = client.Close()
		t.Skipf("Skipping Redis-dependent test: no reachable Redis endpoint (%v)", err)
	}

	if err := client.FlushDB(context.Background()).Err(); err != nil {
		_ = client.Close()
		t.Fatalf("failed to flush isolated redis db %d: %v", db, err)
	}

	t.Cleanup(func() {
		_ = client.FlushDB(context.Background()).Err()
		_ = client.Close()
	})

	return client
}
