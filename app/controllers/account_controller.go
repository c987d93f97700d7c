package controllers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/FormFox/app/models"
	"github.com/ManuelReschke/FormFox/internal/pkg/entitlements"
	"github.com/ManuelReschke/FormFox/internal/pkg/usercontext"
)

type AccountController struct {
	*Deps
}

func NewAccountController(d *Deps) *AccountController {
	return &AccountController{Deps: d}
}

// Show returns account information with plan, usage and limits for the
// authenticated user (API key or session).
func (a *AccountController) Show(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	ctx := c.UserContext()

	account, err := a.Repos.User.GetByID(ctx, userCtx.UserID)
	if err != nil {
		return lookupError(c, "Account", "User", err)
	}
	settings, err := a.Repos.User.GetSettings(ctx, userCtx.UserID)
	if err != nil {
		return internalError(c, "Account", err)
	}
	usage, err := a.Ledger.Usage(ctx, userCtx.UserID)
	if err != nil {
		return internalError(c, "Account", err)
	}

	response := userJSON(account)
	response["plan"] = usage.Plan
	response["is_admin"] = account.Role == models.ROLE_ADMIN
	response["usage"] = fiber.Map{
		"forms":                  usage.Forms,
		"submissions_this_month": usage.SubmissionsMonthly,
		"period_start":           usage.PeriodStart.UTC().Format(time.RFC3339),
	}
	response["limits"] = fiber.Map{
		"forms":                 limitValue(usage.Limits.Forms),
		"submissions_per_month": limitValue(usage.Limits.SubmissionsMonthly),
	}
	response["api_key"] = apiKeyJSON(settings)

	return c.JSON(response)
}

// IssueAPIKey replaces the user's API key. The raw key is only returned here.
func (a *AccountController) IssueAPIKey(c *fiber.Ctx) error {
	userID := usercontext.GetUserID(c)
	ctx := c.UserContext()

	settings, err := a.Repos.User.GetSettings(ctx, userID)
	if err != nil {
		return internalError(c, "Account", err)
	}
	rawKey, err := settings.IssueAPIKey()
	if err != nil {
		return internalError(c, "Account", err)
	}
	if err := a.Repos.User.SaveSettings(ctx, settings); err != nil {
		return internalError(c, "Account", err)
	}

	log.Infof("[Account] API key issued for user %d (prefix %s)", userID, settings.APIKeyPrefix)
	body := apiKeyJSON(settings)
	body["key"] = rawKey
	return c.Status(fiber.StatusCreated).JSON(body)
}

func (a *AccountController) RevokeAPIKey(c *fiber.Ctx) error {
	userID := usercontext.GetUserID(c)
	ctx := c.UserContext()

	settings, err := a.Repos.User.GetSettings(ctx, userID)
	if err != nil {
		return internalError(c, "Account", err)
	}
	if !settings.HasActiveAPIKey() {
		return notFound(c, "API key")
	}
	settings.RevokeAPIKey()
	if err := a.Repos.User.SaveSettings(ctx, settings); err != nil {
		return internalError(c, "Account", err)
	}
	log.Infof("[Account] API key revoked for user %d", userID)
	return c.JSON(apiKeyJSON(settings))
}

func apiKeyJSON(s *models.UserSettings) fiber.Map {
	return fiber.Map{
		"active":       s.HasActiveAPIKey(),
		"prefix":       s.APIKeyPrefix,
		"created_at":   formatTimePtr(s.APIKeyCreatedAt),
		"last_used_at": formatTimePtr(s.APIKeyLastUsedAt),
		"revoked_at":   formatTimePtr(s.APIKeyRevokedAt),
	}
}

// limitValue renders unlimited caps as null.
func limitValue(limit int64) interface{} {
	if !entitlements.Bounded(limit) {
		return nil
	}
	return limit
}

func formatTimePtr(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}
