package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/FormFox/internal/pkg/middleware"
)

func (h *HttpRouter) registerProtectedRoutes(app *fiber.App) {
	app.Post("/logout/all", middleware.RequireAuth, h.auth.LogoutAll)

	account := app.Group("/account", middleware.RequireAuth)
	account.Get("/", h.account.Show)
	account.Post("/api-key", h.account.IssueAPIKey)
	account.Post("/api-key/revoke", h.account.RevokeAPIKey)

	forms := app.Group("/forms", middleware.RequireAuth)
	forms.Get("/", h.forms.List)
	forms.Post("/", h.forms.Create)
	forms.Get("/:id", h.forms.Show)
	forms.Patch("/:id", h.forms.Update)
	forms.Delete("/:id", h.forms.Delete)
	forms.Get("/:id/submissions", h.submissions.List)
	forms.Get("/:id/submissions.csv", h.submissions.DownloadCSV)
	forms.Delete("/:id/submissions/:sid", h.submissions.Delete)
	forms.Post("/:id/exports", h.submissions.Export)

	settings := app.Group("/settings", middleware.RequireAuth)
	settings.Get("/integration", h.settings.GetIntegration)
	settings.Put("/integration", h.settings.PutIntegration)
}
