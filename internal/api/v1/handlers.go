package apiv1

import (
	"github.com/gofiber/fiber/v2"

	// Delegate to existing controllers to keep behavior consistent
	"github.com/ManuelReschke/FormFox/app/controllers"
)

// APIServer implements the ServerInterface
type APIServer struct {
	forms       *controllers.FormController
	submissions *controllers.SubmissionController
}

// NewAPIServer creates a new API server instance
func NewAPIServer(d *controllers.Deps) *APIServer {
	return &APIServer{
		forms:       controllers.NewFormController(d),
		submissions: controllers.NewSubmissionController(d),
	}
}

// GetPing handles the ping endpoint
func (s *APIServer) GetPing(c *fiber.Ctx) error {
	response := Pong{
		Ping: "pong",
	}

	return c.Status(fiber.StatusOK).JSON(response)
}

// ListForms returns the forms of the API key owner.
// Security is enforced via API key middleware attached in the router.
func (s *APIServer) ListForms(c *fiber.Ctx) error {
	return s.forms.List(c)
}

// ListSubmissions returns one cursor page of a form's submissions.
// The controller reads the id from the route params; the wrapper checked it.
func (s *APIServer) ListSubmissions(c *fiber.Ctx, id string) error {
	return s.submissions.List(c)
}
