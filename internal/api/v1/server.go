package apiv1

import (
	"github.com/gofiber/fiber/v2"
)

// Pong defines model for Pong.
type Pong struct {
	Ping string `json:"ping"`
}

// ServerInterface represents all server handlers.
type ServerInterface interface {
	// (GET /ping)
	GetPing(c *fiber.Ctx) error
	// (GET /forms)
	ListForms(c *fiber.Ctx) error
	// (GET /forms/{id}/submissions)
	ListSubmissions(c *fiber.Ctx, id string) error
}

// ServerInterfaceWrapper converts contexts to parameters.
type ServerInterfaceWrapper struct {
	Handler ServerInterface
}

// GetPing operation middleware
func (siw *ServerInterfaceWrapper) GetPing(c *fiber.Ctx) error {
	return siw.Handler.GetPing(c)
}

// ListForms operation middleware
func (siw *ServerInterfaceWrapper) ListForms(c *fiber.Ctx) error {
	return siw.Handler.ListForms(c)
}

// ListSubmissions operation middleware
func (siw *ServerInterfaceWrapper) ListSubmissions(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Missing form id"})
	}
	return siw.Handler.ListSubmissions(c, id)
}

// RegisterHandlers mounts the handlers with routing matching the OpenAPI document.
func RegisterHandlers(router fiber.Router, si ServerInterface) {
	wrapper := ServerInterfaceWrapper{
		Handler: si,
	}

	router.Get("/ping", wrapper.GetPing)
	router.Get("/forms", wrapper.ListForms)
	router.Get("/forms/:id/submissions", wrapper.ListSubmissions)
}
