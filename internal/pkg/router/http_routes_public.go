package router

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"

	"github.com/ManuelReschke/FormFox/internal/pkg/middleware"
	"github.com/ManuelReschke/FormFox/internal/pkg/ratelimit"
)

const (
	submitLimit  = 10
	submitWindow = time.Minute
	loginLimit   = 20
	loginWindow  = 15 * time.Minute
)

func (h *HttpRouter) registerPublicRoutes(app *fiber.App) {
	store := h.cfg.RateLimit

	// Public forms are embedded on foreign sites
	public := app.Group("/f", cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Content-Type",
	}))
	public.Get("/:slug", h.public.Show)
	public.Post("/:slug", ratelimit.Limit(store, submitLimit, submitWindow, ratelimit.ByIPAndParam("submit", "slug")), h.public.Submit)

	// Auth
	app.Post("/register", middleware.RequireGuest, ratelimit.Limit(store, loginLimit, loginWindow, ratelimit.ByIP("register")), h.auth.Register)
	app.Post("/login", middleware.RequireGuest, ratelimit.Limit(store, loginLimit, loginWindow, ratelimit.ByIP("login")), h.auth.Login)
	app.Post("/logout", h.auth.Logout)

	// Social OAuth
	app.Get("/auth/:provider", h.oauth.Begin)
	app.Get("/auth/:provider/callback", h.oauth.Callback)

	// Billing provider webhooks (signature-verified in the billing service)
	app.Post("/webhooks/billing", h.billing.Webhook)
}
