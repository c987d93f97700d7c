package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/FormFox/app/controllers"
	"github.com/ManuelReschke/FormFox/internal/pkg/session"
)

type Router interface {
	InstallRouter(app *fiber.App)
}

// Config carries the collaborators the routers hand to controllers and
// middlewares.
type Config struct {
	Deps  *controllers.Deps
	Guard *session.Guard
	// RateLimit holds limiter counters, nil counts in process memory.
	RateLimit fiber.Storage

	// OAuthComplete overrides the provider round trip, nil uses goth.
	OAuthComplete controllers.CompleteAuthFunc
	// OAuthRedirect is where browsers land after an OAuth login.
	OAuthRedirect string
	// APIRequestsPerMinute caps /api requests per client IP.
	APIRequestsPerMinute int
}

func InstallRouter(app *fiber.App, cfg Config) {
	// The HttpRouter installs the global UserContext middleware, so it
	// must come before the API routes.
	setup(app, NewHttpRouter(cfg), NewApiRouter(cfg))
}

func setup(app *fiber.App, router ...Router) {
	for _, r := range router {
		r.InstallRouter(app)
	}
}
