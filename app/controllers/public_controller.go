package controllers

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/datatypes"

	"github.com/ManuelReschke/FormFox/app/models"
	"github.com/ManuelReschke/FormFox/internal/pkg/clientip"
	"github.com/ManuelReschke/FormFox/internal/pkg/jobqueue"
	"github.com/ManuelReschke/FormFox/internal/pkg/quota"
)

const publicFormTTL = 60 * time.Second

func publicFormCacheKey(slug string) string {
	return "form:public:" + slug
}

// publicForm is what visitors of a form see.
type publicForm struct {
	ID          string             `json:"id"`
	Slug        string             `json:"slug"`
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Fields      []models.FormField `json:"fields"`
	RedirectURL string             `json:"redirect_url,omitempty"`
}

type PublicController struct {
	*Deps
}

func NewPublicController(d *Deps) *PublicController {
	return &PublicController{Deps: d}
}

// Show returns the schema of an active form and counts a view.
func (pc *PublicController) Show(c *fiber.Ctx) error {
	ctx := c.UserContext()
	slug := c.Params("slug")

	var view publicForm
	cached := false
	if pc.Cache != nil {
		if raw, err := pc.Cache.Get(ctx, publicFormCacheKey(slug)); err == nil && json.Unmarshal([]byte(raw), &view) == nil {
			cached = true
		}
	}

	if !cached {
		form, err := pc.Repos.Form.GetBySlug(ctx, slug)
		if err != nil {
			return lookupError(c, "Public", "Form", err)
		}
		if !form.IsActive {
			return notFound(c, "Form")
		}
		view = publicForm{
			ID:          form.ID,
			Slug:        form.Slug,
			Name:        form.Name,
			Description: form.Description,
			Fields:      form.Fields,
			RedirectURL: form.RedirectURL,
		}
		if view.Fields == nil {
			view.Fields = []models.FormField{}
		}
		if pc.Cache != nil {
			if raw, err := json.Marshal(view); err == nil {
				if err := pc.Cache.Set(ctx, publicFormCacheKey(slug), string(raw), publicFormTTL); err != nil {
					log.Warnf("[Public] Failed to cache form %s: %v", slug, err)
				}
			}
		}
	}

	if pc.Views != nil {
		if err := pc.Views.AddFormView(ctx, view.ID); err != nil {
			log.Warnf("[Public] Failed to count view for form %s: %v", view.ID, err)
		}
	}
	return c.JSON(fiber.Map{"form": view})
}

// Submit accepts a submission for an active form. Ticket forwarding is
// queued afterwards and never fails the request.
func (pc *PublicController) Submit(c *fiber.Ctx) error {
	ctx := c.UserContext()
	form, err := pc.Repos.Form.GetBySlug(ctx, c.Params("slug"))
	if err != nil {
		return lookupError(c, "Public", "Form", err)
	}
	if !form.IsActive {
		return notFound(c, "Form")
	}

	input, isJSON, err := submissionInput(c)
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Malformed request body")
	}

	payload, err := form.ValidateSubmission(input)
	if err != nil {
		var serr *models.SubmissionError
		if errors.As(err, &serr) {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
				"error":  "validation_failed",
				"fields": serr.Fields,
			})
		}
		return internalError(c, "Public", err)
	}

	sub := &models.Submission{
		FormID:  form.ID,
		Payload: datatypes.JSONMap(payload),
		IPHash:  HashIP(pc.IPSalt, clientip.Get(c)),
	}
	res, err := pc.Ledger.InsertSubmissionIfAllowed(ctx, form.UserID, sub)
	if err != nil {
		if errors.Is(err, quota.ErrUnknownOwner) {
			return notFound(c, "Form")
		}
		return internalError(c, "Public", err)
	}
	if !res.OK {
		return limitReached(c, res.Current, res.Max)
	}

	if form.TicketingEnabled && pc.Tickets != nil {
		if _, err := pc.Tickets.EnqueueTicketCreate(ctx, jobqueue.TicketCreateJobPayload{
			FormID:       form.ID,
			SubmissionID: sub.ID,
			UserID:       form.UserID,
		}); err != nil {
			log.Warnf("[Public] Failed to queue ticket for submission %s: %v", sub.ID, err)
		}
	}

	if !isJSON && form.RedirectURL != "" {
		return c.Redirect(form.RedirectURL, fiber.StatusSeeOther)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"ok": true, "id": sub.ID})
}

// submissionInput reads a JSON object or url-encoded form body as strings.
func submissionInput(c *fiber.Ctx) (map[string]string, bool, error) {
	input := map[string]string{}
	if strings.HasPrefix(strings.ToLower(c.Get(fiber.HeaderContentType)), fiber.MIMEApplicationJSON) {
		var raw map[string]interface{}
		if err := json.Unmarshal(c.Body(), &raw); err != nil {
			return nil, true, err
		}
		for k, v := range raw {
			switch val := v.(type) {
			case nil:
			case string:
				input[k] = val
			case bool, float64:
				input[k] = fmt.Sprint(val)
			default:
				return nil, true, fmt.Errorf("field %q must be a scalar", k)
			}
		}
		return input, true, nil
	}

	c.Request().PostArgs().VisitAll(func(key, value []byte) {
		k := string(key)
		if _, ok := input[k]; !ok {
			input[k] = string(value)
		}
	})
	return input, false, nil
}
