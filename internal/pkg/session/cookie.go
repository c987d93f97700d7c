package session

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/FormFox/internal/pkg/env"
)

// CookieName is the session cookie read by the Guard.
const CookieName = "formfox_session"

// IssueCookie writes the session cookie for token on the response.
func IssueCookie(c *fiber.Ctx, token string, expires time.Time) {
	c.Cookie(&fiber.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		MaxAge:   int(TTL.Seconds()),
		HTTPOnly: true,
		Secure:   env.IsProd(),
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// ClearCookie expires the session cookie. The token itself stays valid
// until its expiry unless sessions are revoked for the user.
func ClearCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HTTPOnly: true,
		Secure:   env.IsProd(),
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}
