package cache

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2/log"
	redisstorage "github.com/gofiber/storage/redis"
	"github.com/redis/go-redis/v9"

	"github.com/ManuelReschke/FormFox/internal/pkg/env"
)

var (
	client *redis.Client
	ctx    = context.Background()
)

// SetupCache initializes the connection to the Redis-compatible cache server
func SetupCache() {
	host := env.GetEnv("CACHE_HOST", "localhost")
	port := env.GetEnv("CACHE_PORT", "6379")

	client = redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", host, port),
		Password: env.GetEnv("CACHE_PASSWORD", ""),
		DB:       0,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	pong, err := client.Ping(pingCtx).Result()
	if err != nil {
		log.Warnf("[Cache] Could not connect to cache: %v", err)
	} else {
		log.Infof("[Cache] Successfully connected to cache: %s", pong)
	}
}

// GetClient returns the Redis client instance
func GetClient() *redis.Client {
	if client == nil {
		SetupCache()
	}
	return client
}

// Set stores a value in the cache with the given key and expiration time
func Set(key string, value interface{}, expiration time.Duration) error {
	return GetClient().Set(ctx, key, value, expiration).Err()
}

// Get retrieves a value from the cache by key
func Get(key string) (string, error) {
	return GetClient().Get(ctx, key).Result()
}

// Delete removes a value from the cache by key
func Delete(key string) error {
	return GetClient().Del(ctx, key).Err()
}

// Store is a context-aware view of a Redis client for request handlers.
type Store struct {
	client *redis.Client
	prefix string
}

// NewStore wraps rdb. Keys are stored under prefix.
func NewStore(rdb *redis.Client, prefix string) *Store {
	return &Store{client: rdb, prefix: prefix}
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	return s.client.Get(ctx, s.prefix+key).Result()
}

func (s *Store) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return s.client.Set(ctx, s.prefix+key, value, ttl).Err()
}

func (s *Store) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.prefix+key).Err()
}

// FiberStorage opens a fiber.Storage on the Redis server rdb talks to,
// using the given database number.
func FiberStorage(rdb *redis.Client, database int) *redisstorage.Storage {
	opts := rdb.Options()
	host, port := "127.0.0.1", 6379
	if opts.Addr != "" {
		if h, p, err := net.SplitHostPort(opts.Addr); err == nil {
			host = h
			if parsed, e := strconv.Atoi(p); e == nil {
				port = parsed
			}
		} else {
			host = opts.Addr
		}
	}
	return redisstorage.New(redisstorage.Config{
		Host:     host,
		Port:     port,
		Username: opts.Username,
		Password: opts.Password,
		Database: database,
		Reset:    false,
	})
}
