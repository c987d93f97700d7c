package middleware

import (
	"github.com/gofiber/fiber/v2"

	icuser "github.com/ManuelReschke/FormFox/internal/pkg/usercontext"
)

// RequireAuth ensures a logged-in user and answers 401 JSON otherwise.
func RequireAuth(c *fiber.Ctx) error {
	v := c.Locals(icuser.KeyFromProtected)
	loggedIn := false
	if b, ok := v.(bool); ok {
		loggedIn = b
	}
	if !loggedIn {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error":   "unauthorized",
			"message": "login required",
		})
	}
	return c.Next()
}

// RequireGuest rejects requests that already carry a session.
func RequireGuest(c *fiber.Ctx) error {
	if icuser.IsLoggedIn(c) {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error":   "already_authenticated",
			"message": "already logged in",
		})
	}
	return c.Next()
}
