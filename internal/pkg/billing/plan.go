package billing

import (
	"strings"

	"github.com/ManuelReschke/FormFox/app/models"
	"github.com/ManuelReschke/FormFox/internal/pkg/entitlements"
)

// PlanMapper translates provider plan references into internal plans.
// Unmapped references resolve to the default paid plan.
type PlanMapper struct {
	refs        map[string]entitlements.Plan
	defaultPaid entitlements.Plan
}

// NewPlanMapper parses a mapping like "var_123=starter,var_456=pro".
// Entries naming unknown plans are skipped.
func NewPlanMapper(mapping, defaultPaid string) PlanMapper {
	m := PlanMapper{refs: map[string]entitlements.Plan{}, defaultPaid: entitlements.PlanPro}
	if entitlements.IsKnown(defaultPaid) {
		m.defaultPaid = entitlements.ParsePlan(defaultPaid)
	}
	for _, pair := range strings.Split(mapping, ",") {
		ref, plan, ok := strings.Cut(strings.TrimSpace(pair), "=")
		ref = strings.TrimSpace(ref)
		if !ok || ref == "" || !entitlements.IsKnown(plan) {
			continue
		}
		m.refs[ref] = entitlements.ParsePlan(plan)
	}
	return m
}

// Resolve returns the internal plan for a provider plan reference.
func (m PlanMapper) Resolve(planRef string) entitlements.Plan {
	if p, ok := m.refs[strings.TrimSpace(planRef)]; ok {
		return p
	}
	if m.defaultPaid == "" {
		return entitlements.PlanPro
	}
	return m.defaultPaid
}

// EventStatus maps a subscription event to the stored status. The second
// return is false for events that do not concern subscriptions.
func EventStatus(eventName, providedStatus string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(eventName)) {
	case "subscription_created", "subscription_updated", "subscription_resumed", "subscription_unpaused":
		if s := normalizeStatus(providedStatus); s != "" {
			return s, true
		}
		return models.BillingStatusActive, true
	case "subscription_cancelled", "subscription_canceled", "subscription_expired", "subscription_paused":
		return models.BillingStatusInactive, true
	default:
		return "", false
	}
}

func normalizeStatus(status string) string {
	switch s := strings.ToLower(strings.TrimSpace(status)); s {
	case models.BillingStatusActive, models.BillingStatusTrialing, models.BillingStatusPastDue:
		return s
	case "on_trial":
		return models.BillingStatusTrialing
	case "":
		return ""
	default:
		return models.BillingStatusInactive
	}
}
