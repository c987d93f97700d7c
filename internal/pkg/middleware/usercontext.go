package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/FormFox/app/models"
	"github.com/ManuelReschke/FormFox/internal/pkg/session"
	"github.com/ManuelReschke/FormFox/internal/pkg/usercontext"
)

// UserContextMiddleware resolves the session cookie into the request's user
// context. Requests without a valid session continue anonymously.
func UserContextMiddleware(guard *session.Guard, users session.UserLookup) fiber.Handler {
	return func(c *fiber.Ctx) error {
		subject, user, ok := guard.AuthenticateUser(c.UserContext(), c.Get(fiber.HeaderCookie))
		if ok && user == nil {
			// Guard without lookup only vouches for the token.
			u, err := users.GetByEmail(c.UserContext(), subject)
			if err != nil || !u.IsActive() {
				ok = false
			} else {
				user = u
			}
		}
		if !ok {
			usercontext.Set(c, usercontext.UserContext{})
			return c.Next()
		}

		usercontext.Set(c, usercontext.UserContext{
			UserID:     user.ID,
			Email:      user.Email,
			Username:   user.Name,
			IsLoggedIn: true,
			IsAdmin:    user.Role == models.ROLE_ADMIN,
			AuthMethod: usercontext.AuthSession,
		})
		return c.Next()
	}
}
