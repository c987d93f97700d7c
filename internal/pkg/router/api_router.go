package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	apiv1 "github.com/ManuelReschke/FormFox/internal/api/v1"
	"github.com/ManuelReschke/FormFox/internal/pkg/middleware"
	"github.com/ManuelReschke/FormFox/internal/pkg/ratelimit"
)

const defaultAPIRequestsPerMinute = 60

type ApiRouter struct {
	cfg Config
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	max := h.cfg.APIRequestsPerMinute
	if max <= 0 {
		max = defaultAPIRequestsPerMinute
	}
	api := app.Group("/api", ratelimit.Limit(h.cfg.RateLimit, max, time.Minute, ratelimit.ByIP("api")))
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from api",
		})
	})

	// API v1 routes, authenticated by user API key
	v1 := api.Group("/v1", middleware.APIKeyAuthMiddleware(h.cfg.Deps.Repos.User))
	apiServer := apiv1.NewAPIServer(h.cfg.Deps)
	apiv1.RegisterHandlers(v1, apiServer)
}

func NewApiRouter(cfg Config) *ApiRouter {
	return &ApiRouter{cfg: cfg}
}
