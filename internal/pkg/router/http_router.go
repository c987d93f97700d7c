package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/FormFox/app/controllers"
	"github.com/ManuelReschke/FormFox/internal/pkg/middleware"
)

type HttpRouter struct {
	cfg Config

	auth        *controllers.AuthController
	oauth       *controllers.OAuthController
	account     *controllers.AccountController
	forms       *controllers.FormController
	submissions *controllers.SubmissionController
	settings    *controllers.SettingsController
	public      *controllers.PublicController
	billing     *controllers.BillingController
}

func NewHttpRouter(cfg Config) *HttpRouter {
	d := cfg.Deps
	return &HttpRouter{
		cfg:         cfg,
		auth:        controllers.NewAuthController(d),
		oauth:       controllers.NewOAuthController(d, cfg.OAuthComplete, cfg.OAuthRedirect),
		account:     controllers.NewAccountController(d),
		forms:       controllers.NewFormController(d),
		submissions: controllers.NewSubmissionController(d),
		settings:    controllers.NewSettingsController(d),
		public:      controllers.NewPublicController(d),
		billing:     controllers.NewBillingController(d),
	}
}

func (h *HttpRouter) InstallRouter(app *fiber.App) {
	// Apply UserContext middleware globally as first middleware
	app.Use(middleware.UserContextMiddleware(h.cfg.Guard, h.cfg.Deps.Repos.User))

	h.registerPublicRoutes(app)
	h.registerProtectedRoutes(app)
}
