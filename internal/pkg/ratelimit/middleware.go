package ratelimit

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/ManuelReschke/FormFox/internal/pkg/clientip"
)

const keyPrefix = "ratelimit:"

// KeyFunc derives the bucket key for a request.
type KeyFunc func(c *fiber.Ctx) string

// Limit rejects requests beyond max per window with 429 and Retry-After.
// A nil storage counts in process memory.
func Limit(storage fiber.Storage, max int, window time.Duration, keyFn KeyFunc) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: window,
		Storage:    storage,
		KeyGenerator: func(c *fiber.Ctx) string {
			return keyPrefix + keyFn(c)
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error":   "rate_limited",
				"message": "Too many requests, please try again later",
			})
		},
	})
}

// ByIP keys requests by client IP under prefix.
func ByIP(prefix string) KeyFunc {
	return func(c *fiber.Ctx) string {
		return prefix + ":" + clientip.Get(c)
	}
}

// ByIPAndParam keys requests by client IP and a route parameter.
func ByIPAndParam(prefix, param string) KeyFunc {
	return func(c *fiber.Ctx) string {
		return prefix + ":" + c.Params(param) + ":" + clientip.Get(c)
	}
}
