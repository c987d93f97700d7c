package entitlements

import (
	"strings"

	"github.com/ManuelReschke/FormFox/app/models"
)

type Plan string

const (
	PlanFree       Plan = "free"
	PlanStarter    Plan = "starter"
	PlanPro        Plan = "pro"
	PlanEnterprise Plan = "enterprise"
)

// Unlimited marks a limit without an upper bound.
const Unlimited int64 = -1

// Limits are the per-plan caps enforced by the quota ledger.
type Limits struct {
	Forms              int64 `json:"forms"`
	SubmissionsMonthly int64 `json:"submissions_per_month"`
}

var planLimits = map[Plan]Limits{
	PlanFree:       {Forms: 1, SubmissionsMonthly: 100},
	PlanStarter:    {Forms: 5, SubmissionsMonthly: 1000},
	PlanPro:        {Forms: 25, SubmissionsMonthly: 10000},
	PlanEnterprise: {Forms: Unlimited, SubmissionsMonthly: Unlimited},
}

// Bounded reports whether limit caps anything.
func Bounded(limit int64) bool {
	return limit >= 0
}

// ParsePlan maps a stored plan name to a known plan, falling back to free.
func ParsePlan(name string) Plan {
	p := Plan(strings.ToLower(strings.TrimSpace(name)))
	if _, ok := planLimits[p]; ok {
		return p
	}
	return PlanFree
}

// IsKnown reports whether name is one of the defined plans.
func IsKnown(name string) bool {
	_, ok := planLimits[Plan(strings.ToLower(strings.TrimSpace(name)))]
	return ok
}

// LimitsFor returns the limits of plan; unknown plans get free limits.
func LimitsFor(plan Plan) Limits {
	if l, ok := planLimits[plan]; ok {
		return l
	}
	return planLimits[PlanFree]
}

// SubscriptionGrantsPlan reports whether a subscription in status keeps its plan.
func SubscriptionGrantsPlan(status string) bool {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case models.BillingStatusActive, models.BillingStatusTrialing, models.BillingStatusPastDue:
		return true
	default:
		return false
	}
}

// ResolvePlan returns the plan granted by the best entitled subscription.
// Without any, the user is on the free plan.
func ResolvePlan(subs []models.BillingSubscription) Plan {
	best := PlanFree
	for _, s := range subs {
		if !SubscriptionGrantsPlan(s.Status) {
			continue
		}
		p := ParsePlan(s.InternalPlan)
		if rank(p) > rank(best) {
			best = p
		}
	}
	return best
}

func rank(p Plan) int {
	switch p {
	case PlanEnterprise:
		return 3
	case PlanPro:
		return 2
	case PlanStarter:
		return 1
	default:
		return 0
	}
}
