package controllers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/ManuelReschke/FormFox/app/models"
	"github.com/ManuelReschke/FormFox/internal/pkg/ticketing"
	"github.com/ManuelReschke/FormFox/internal/pkg/usercontext"
)

type SettingsController struct {
	*Deps
}

func NewSettingsController(d *Deps) *SettingsController {
	return &SettingsController{Deps: d}
}

// integrationRequest replaces the ticketing settings. APIToken nil keeps the
// stored token, an empty string removes it.
type integrationRequest struct {
	BaseURL      string                 `json:"base_url" validate:"omitempty,url,max=500"`
	AccountEmail string                 `json:"account_email" validate:"omitempty,email,max=200"`
	APIToken     *string                `json:"api_token" validate:"omitempty,max=1000"`
	ProjectKey   string                 `json:"project_key" validate:"omitempty,max=50"`
	IssueTypeID  string                 `json:"issue_type_id" validate:"omitempty,max=50"`
	PriorityID   string                 `json:"priority_id" validate:"omitempty,max=50"`
	CustomFields map[string]interface{} `json:"custom_fields" validate:"max=50"`
	Enabled      bool                   `json:"enabled"`
}

func integrationJSON(s *models.IntegrationSettings) fiber.Map {
	return fiber.Map{
		"base_url":      s.BaseURL,
		"account_email": s.AccountEmail,
		"has_token":     s.HasToken(),
		"project_key":   s.ProjectKey,
		"issue_type_id": s.IssueTypeID,
		"priority_id":   s.PriorityID,
		"custom_fields": s.CustomFields,
		"enabled":       s.Enabled,
		"ready":         s.Ready(),
	}
}

// GetIntegration never returns the API token, only whether one is stored.
func (sc *SettingsController) GetIntegration(c *fiber.Ctx) error {
	userID := usercontext.GetUserID(c)
	settings, err := sc.Repos.Integration.GetByUserID(c.UserContext(), userID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return internalError(c, "Settings", err)
		}
		settings = &models.IntegrationSettings{UserID: userID}
	}
	return c.JSON(fiber.Map{"integration": integrationJSON(settings)})
}

func (sc *SettingsController) PutIntegration(c *fiber.Ctx) error {
	var req integrationRequest
	if ok, err := bindJSON(c, &req); !ok {
		return err
	}
	if req.BaseURL != "" {
		if err := ticketing.CheckBaseURL(req.BaseURL); err != nil {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
				"error":  "validation_failed",
				"fields": fiber.Map{"base_url": err.Error()},
			})
		}
	}

	ctx := c.UserContext()
	userID := usercontext.GetUserID(c)
	settings, err := sc.Repos.Integration.GetByUserID(ctx, userID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return internalError(c, "Settings", err)
		}
		settings = &models.IntegrationSettings{UserID: userID}
	}

	settings.BaseURL = strings.TrimRight(req.BaseURL, "/")
	settings.AccountEmail = strings.TrimSpace(req.AccountEmail)
	settings.ProjectKey = strings.TrimSpace(req.ProjectKey)
	settings.IssueTypeID = strings.TrimSpace(req.IssueTypeID)
	settings.PriorityID = strings.TrimSpace(req.PriorityID)
	settings.CustomFields = datatypes.JSONMap(req.CustomFields)
	settings.Enabled = req.Enabled

	if req.APIToken != nil {
		token := strings.TrimSpace(*req.APIToken)
		if token == "" {
			settings.APITokenEnc = ""
		} else {
			enc, err := sc.Box.Encrypt(token)
			if err != nil {
				return internalError(c, "Settings", err)
			}
			settings.APITokenEnc = enc
		}
	}

	if settings.Enabled && !settings.Ready() {
		return jsonError(c, fiber.StatusUnprocessableEntity, "integration_incomplete",
			"base_url, account_email, api_token and project_key are required to enable ticketing")
	}

	if err := sc.Repos.Integration.Upsert(ctx, settings); err != nil {
		return internalError(c, "Settings", err)
	}
	log.Infof("[Settings] Ticketing integration updated for user %d (enabled=%t)", userID, settings.Enabled)
	return c.JSON(fiber.Map{"integration": integrationJSON(settings)})
}
