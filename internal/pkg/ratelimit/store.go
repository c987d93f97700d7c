// Package ratelimit limits requests per client with fiber's fixed-window
// limiter, counting in process memory or in Redis.
package ratelimit

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/redis/go-redis/v9"

	"github.com/ManuelReschke/FormFox/internal/pkg/cache"
	"github.com/ManuelReschke/FormFox/internal/pkg/env"
)

// redisDB keeps limiter counters apart from queue, cache and OAuth keys.
const redisDB = 3

// NewStoreFromEnv selects the limiter storage by RATE_LIMIT_STORE (memory|redis).
// A nil storage keeps counters in process memory: with N replicas a client
// may get N times the configured budget.
func NewStoreFromEnv(rdb *redis.Client) fiber.Storage {
	kind := strings.ToLower(strings.TrimSpace(env.GetEnv("RATE_LIMIT_STORE", "memory")))
	switch kind {
	case "redis":
		if rdb != nil {
			return NewRedisStorage(rdb)
		}
		log.Warn("[RateLimit] RATE_LIMIT_STORE=redis but no Redis client, falling back to memory")
	case "memory", "":
	default:
		log.Warnf("[RateLimit] Unknown RATE_LIMIT_STORE %q, using memory", kind)
	}
	return nil
}

// NewRedisStorage shares counters across instances.
func NewRedisStorage(rdb *redis.Client) fiber.Storage {
	return failOpen{Storage: cache.FiberStorage(rdb, redisDB)}
}

// failOpen logs storage errors. The limiter treats a failed read as an empty
// window, so requests pass while the storage is down.
type failOpen struct {
	fiber.Storage
}

func (s failOpen) Get(key string) ([]byte, error) {
	val, err := s.Storage.Get(key)
	if err != nil {
		log.Warnf("[RateLimit] Storage read failed, allowing request: %v", err)
	}
	return val, err
}

func (s failOpen) Set(key string, val []byte, exp time.Duration) error {
	err := s.Storage.Set(key, val, exp)
	if err != nil {
		log.Warnf("[RateLimit] Storage write failed: %v", err)
	}
	return err
}
