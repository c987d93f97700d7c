package controllers

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/ManuelReschke/FormFox/app/models"
	"github.com/ManuelReschke/FormFox/internal/pkg/avatar"
	"github.com/ManuelReschke/FormFox/internal/pkg/clientip"
	"github.com/ManuelReschke/FormFox/internal/pkg/session"
	"github.com/ManuelReschke/FormFox/internal/pkg/usercontext"
)

type AuthController struct {
	*Deps
}

func NewAuthController(d *Deps) *AuthController {
	return &AuthController{Deps: d}
}

type registerRequest struct {
	Name         string `json:"name" form:"name" validate:"required,min=3,max=150"`
	Email        string `json:"email" form:"email" validate:"required,email,max=200"`
	Password     string `json:"password" form:"password" validate:"required,min=6,max=72"`
	CaptchaToken string `json:"captcha_token" form:"h-captcha-response"`
}

type loginRequest struct {
	Email    string `json:"email" form:"email" validate:"required,max=200"`
	Password string `json:"password" form:"password" validate:"required,max=72"`
}

func userJSON(u *models.User) fiber.Map {
	return fiber.Map{
		"id":            u.ID,
		"name":          u.Name,
		"email":         u.Email,
		"status":        u.Status,
		"created_at":    u.CreatedAt.UTC().Format(time.RFC3339),
		"last_login_at": formatTimePtr(u.LastLoginAt),
		"avatar_url":    avatar.GravatarURL(u.Email, avatar.DefaultSize),
	}
}

// Register creates an account and signs it in.
func (a *AuthController) Register(c *fiber.Ctx) error {
	var req registerRequest
	if ok, err := bindJSON(c, &req); !ok {
		return err
	}

	if a.Captcha != nil && a.Captcha.Enabled() {
		valid, err := a.Captcha.Verify(c.UserContext(), req.CaptchaToken, clientip.Get(c))
		if err != nil || !valid {
			if err != nil {
				log.Warnf("[Auth] hCaptcha validation error: %v", err)
			}
			return jsonError(c, fiber.StatusBadRequest, "captcha_failed", "Captcha validation failed. Please try again.")
		}
	}

	ctx := c.UserContext()
	exists, err := a.Repos.User.ExistsByEmail(ctx, models.NormalizeEmail(req.Email))
	if err != nil {
		return internalError(c, "Auth", err)
	}
	if exists {
		return jsonError(c, fiber.StatusConflict, "email_taken", "An account with this email already exists")
	}

	user, err := models.CreateUser(req.Name, req.Email, req.Password)
	if err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return validationFailed(c, err)
		}
		return internalError(c, "Auth", err)
	}
	if err := a.Repos.User.Create(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return jsonError(c, fiber.StatusConflict, "email_taken", "An account with this email already exists")
		}
		return internalError(c, "Auth", err)
	}

	if err := a.startSession(c, user); err != nil {
		return internalError(c, "Auth", err)
	}
	log.Infof("[Auth] User %d registered", user.ID)
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"user": userJSON(user)})
}

// Login checks the credentials and issues the session cookie. Unknown
// accounts and wrong passwords get the same answer.
func (a *AuthController) Login(c *fiber.Ctx) error {
	var req loginRequest
	if ok, err := bindJSON(c, &req); !ok {
		return err
	}

	ctx := c.UserContext()
	user, err := a.Repos.User.GetByEmail(ctx, models.NormalizeEmail(req.Email))
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return internalError(c, "Auth", err)
	}
	if user == nil || user.Password == "" || !user.CheckPassword(req.Password) {
		return jsonError(c, fiber.StatusUnauthorized, "invalid_credentials", "There is a problem with the login process")
	}
	if !user.IsActive() {
		return jsonError(c, fiber.StatusForbidden, "forbidden", "User inactive")
	}

	if err := a.startSession(c, user); err != nil {
		return internalError(c, "Auth", err)
	}
	return c.JSON(fiber.Map{"user": userJSON(user)})
}

// Logout clears the cookie of this browser only.
func (a *AuthController) Logout(c *fiber.Ctx) error {
	session.ClearCookie(c)
	return c.JSON(fiber.Map{"ok": true})
}

// LogoutAll invalidates every session issued so far for the current user.
func (a *AuthController) LogoutAll(c *fiber.Ctx) error {
	uc := usercontext.GetUserContext(c)
	if err := a.Repos.User.RevokeSessions(c.UserContext(), uc.UserID, a.now()); err != nil {
		return lookupError(c, "Auth", "User", err)
	}
	session.ClearCookie(c)
	log.Infof("[Auth] All sessions of user %d revoked", uc.UserID)
	return c.JSON(fiber.Map{"ok": true})
}

func (a *AuthController) startSession(c *fiber.Ctx, user *models.User) error {
	now := a.now()
	token, exp, err := a.Codec.Issue(user.Email, now)
	if err != nil {
		return err
	}
	session.IssueCookie(c, token, exp)

	if err := a.Repos.User.UpdateLastLogin(c.UserContext(), user.ID, now); err != nil {
		log.Warnf("[Auth] Failed to update last login for user %d: %v", user.ID, err)
	} else {
		t := now
		user.LastLoginAt = &t
	}
	return nil
}
