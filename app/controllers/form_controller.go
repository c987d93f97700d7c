package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/FormFox/app/models"
	"github.com/ManuelReschke/FormFox/internal/pkg/shortener"
	"github.com/ManuelReschke/FormFox/internal/pkg/usercontext"
	"github.com/ManuelReschke/FormFox/internal/pkg/validation"
)

const slugAttempts = 5

var errSlugExhausted = errors.New("could not generate a unique form slug")

type FormController struct {
	*Deps
}

func NewFormController(d *Deps) *FormController {
	return &FormController{Deps: d}
}

// formRequest is shared by create and update. Absent fields keep their
// current (or default) value.
type formRequest struct {
	Name             *string             `json:"name" validate:"omitempty,min=1,max=150"`
	Description      *string             `json:"description" validate:"omitempty,max=2000"`
	Fields           *[]models.FormField `json:"fields"`
	RedirectURL      *string             `json:"redirect_url" validate:"omitempty,max=500"`
	IsActive         *bool               `json:"is_active"`
	TicketingEnabled *bool               `json:"ticketing_enabled"`
}

func (r formRequest) apply(f *models.Form) {
	if r.Name != nil {
		f.Name = *r.Name
	}
	if r.Description != nil {
		f.Description = *r.Description
	}
	if r.Fields != nil {
		f.Fields = *r.Fields
	}
	if r.RedirectURL != nil {
		f.RedirectURL = *r.RedirectURL
	}
	if r.IsActive != nil {
		f.IsActive = *r.IsActive
	}
	if r.TicketingEnabled != nil {
		f.TicketingEnabled = *r.TicketingEnabled
	}
}

func validateForm(f *models.Form) error {
	if err := validation.Struct(f); err != nil {
		return err
	}
	return f.ValidateFields()
}

func (fc *FormController) List(c *fiber.Ctx) error {
	forms, err := fc.Repos.Form.ListByUser(c.UserContext(), usercontext.GetUserID(c))
	if err != nil {
		return internalError(c, "Forms", err)
	}
	if forms == nil {
		forms = []models.Form{}
	}
	return c.JSON(fiber.Map{"forms": forms})
}

// Create inserts a form unless the owner's plan limit is reached.
func (fc *FormController) Create(c *fiber.Ctx) error {
	var req formRequest
	if ok, err := bindJSON(c, &req); !ok {
		return err
	}

	userID := usercontext.GetUserID(c)
	form := &models.Form{UserID: userID, IsActive: true}
	req.apply(form)
	if err := validateForm(form); err != nil {
		return validationFailed(c, err)
	}

	slug, err := fc.uniqueSlug(c)
	if err != nil {
		return internalError(c, "Forms", err)
	}
	form.Slug = slug

	res, err := fc.Ledger.InsertFormIfAllowed(c.UserContext(), userID, form)
	if err != nil {
		return internalError(c, "Forms", err)
	}
	if !res.OK {
		return limitReached(c, res.Current, res.Max)
	}

	log.Infof("[Forms] Form %s created by user %d", form.ID, userID)
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"form": form})
}

func (fc *FormController) Show(c *fiber.Ctx) error {
	form, err := fc.Repos.Form.GetByIDForUser(c.UserContext(), c.Params("id"), usercontext.GetUserID(c))
	if err != nil {
		return lookupError(c, "Forms", "Form", err)
	}
	count, err := fc.Repos.Submission.CountByForm(c.UserContext(), form.ID)
	if err != nil {
		return internalError(c, "Forms", err)
	}
	return c.JSON(fiber.Map{"form": form, "submission_count": count})
}

func (fc *FormController) Update(c *fiber.Ctx) error {
	ctx := c.UserContext()
	form, err := fc.Repos.Form.GetByIDForUser(ctx, c.Params("id"), usercontext.GetUserID(c))
	if err != nil {
		return lookupError(c, "Forms", "Form", err)
	}

	var req formRequest
	if ok, err := bindJSON(c, &req); !ok {
		return err
	}
	req.apply(form)
	if err := validateForm(form); err != nil {
		return validationFailed(c, err)
	}

	if err := fc.Repos.Form.Update(ctx, form); err != nil {
		return internalError(c, "Forms", err)
	}
	fc.forgetPublic(c, form.Slug)
	return c.JSON(fiber.Map{"form": form})
}

// Delete removes the form together with its submissions.
func (fc *FormController) Delete(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID := usercontext.GetUserID(c)
	form, err := fc.Repos.Form.GetByIDForUser(ctx, c.Params("id"), userID)
	if err != nil {
		return lookupError(c, "Forms", "Form", err)
	}
	if err := fc.Repos.Form.Delete(ctx, form.ID); err != nil {
		return lookupError(c, "Forms", "Form", err)
	}
	fc.forgetPublic(c, form.Slug)
	log.Infof("[Forms] Form %s deleted by user %d", form.ID, userID)
	return c.SendStatus(fiber.StatusNoContent)
}

func (fc *FormController) uniqueSlug(c *fiber.Ctx) (string, error) {
	for i := 0; i < slugAttempts; i++ {
		slug, err := shortener.FormSlug()
		if err != nil {
			return "", err
		}
		exists, err := fc.Repos.Form.SlugExists(c.UserContext(), slug)
		if err != nil {
			return "", err
		}
		if !exists {
			return slug, nil
		}
	}
	return "", errSlugExhausted
}

func (fc *FormController) forgetPublic(c *fiber.Ctx, slug string) {
	if fc.Cache == nil {
		return
	}
	if err := fc.Cache.Delete(c.UserContext(), publicFormCacheKey(slug)); err != nil {
		log.Warnf("[Forms] Failed to invalidate cached form %s: %v", slug, err)
	}
}
