package controllers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/FormFox/internal/pkg/billing"
)

type BillingController struct {
	*Deps
}

func NewBillingController(d *Deps) *BillingController {
	return &BillingController{Deps: d}
}

// Webhook records a billing provider delivery and applies it. Duplicates
// and irrelevant events are acknowledged so the provider stops retrying.
func (bc *BillingController) Webhook(c *fiber.Ctx) error {
	rawBody := append([]byte(nil), c.BodyRaw()...)

	outcome, err := bc.Billing.HandleWebhook(c.UserContext(), billing.WebhookDelivery{
		Body:            rawBody,
		EventID:         firstHeaderValue(c, "X-Event-Id", "X-Webhook-Id"),
		SignatureHeader: firstHeaderValue(c, "X-Signature", "X-Webhook-Signature"),
	})
	if err != nil {
		return internalError(c, "Billing", err)
	}

	switch outcome {
	case billing.OutcomeInvalidSignature:
		return jsonError(c, fiber.StatusUnauthorized, "invalid_signature", "Webhook signature invalid")
	case billing.OutcomeInvalidPayload:
		return jsonError(c, fiber.StatusBadRequest, "invalid_payload", "Webhook payload invalid")
	default:
		return c.JSON(fiber.Map{"status": outcome})
	}
}

func firstHeaderValue(c *fiber.Ctx, names ...string) string {
	for _, name := range names {
		if v := strings.TrimSpace(c.Get(name)); v != "" {
			return v
		}
	}
	return ""
}
