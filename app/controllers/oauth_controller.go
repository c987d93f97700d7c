package controllers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/markbates/goth"
	gothfiber "github.com/shareed2k/goth_fiber"
)

// CompleteAuthFunc finishes a provider flow. gothfiber.CompleteUserAuth in
// production.
type CompleteAuthFunc func(c *fiber.Ctx) (goth.User, error)

type OAuthController struct {
	*Deps
	complete    CompleteAuthFunc
	redirectURL string
}

func NewOAuthController(d *Deps, complete CompleteAuthFunc, redirectURL string) *OAuthController {
	if complete == nil {
		complete = func(c *fiber.Ctx) (goth.User, error) {
			return gothfiber.CompleteUserAuth(c)
		}
	}
	if redirectURL == "" {
		redirectURL = "/"
	}
	return &OAuthController{Deps: d, complete: complete, redirectURL: redirectURL}
}

// Begin redirects to the provider named in the route.
func (o *OAuthController) Begin(c *fiber.Ctx) error {
	if _, err := goth.GetProvider(c.Params("provider")); err != nil {
		return notFound(c, "Provider")
	}
	return gothfiber.BeginAuthHandler(c)
}

// Callback completes the provider flow, links or creates the local account
// and logs the user in.
func (o *OAuthController) Callback(c *fiber.Ctx) error {
	u, err := o.complete(c)
	if err != nil {
		log.Warnf("[OAuth] %s callback failed: %v", c.Params("provider"), err)
		return jsonError(c, fiber.StatusBadRequest, "oauth_failed", "OAuth login failed")
	}
	if u.Email == "" {
		return jsonError(c, fiber.StatusBadRequest, "oauth_failed", "The provider did not share an email address")
	}

	user, err := o.Repos.User.FindOrCreateByProvider(c.UserContext(), u.Provider, u.UserID, u.Email, firstNonEmpty(u.Name, u.NickName))
	if err != nil {
		return internalError(c, "OAuth", err)
	}
	if !user.IsActive() {
		return jsonError(c, fiber.StatusForbidden, "forbidden", "User inactive")
	}

	auth := &AuthController{Deps: o.Deps}
	if err := auth.startSession(c, user); err != nil {
		return internalError(c, "OAuth", err)
	}
	return c.Redirect(o.redirectURL, fiber.StatusSeeOther)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
