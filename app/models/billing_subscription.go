package models

import "time"

// Billing provider constants used across billing-related models.
const (
	BillingProviderDefault = "billing"
)

const (
	BillingStatusActive   = "active"
	BillingStatusTrialing = "trialing"
	BillingStatusPastDue  = "past_due"
	BillingStatusInactive = "inactive"
)

// BillingSubscription mirrors the provider subscription state and maps it to
// an internal plan used by entitlements.
type BillingSubscription struct {
	ID                     uint      `gorm:"primaryKey" json:"id"`
	UserID                 uint      `gorm:"not null;index" json:"user_id"`
	Provider               string    `gorm:"type:varchar(20);not null;index:ux_billing_subscriptions_provider_subid,unique,priority:1" json:"provider"`
	ProviderSubscriptionID string    `gorm:"type:varchar(191);not null;index:ux_billing_subscriptions_provider_subid,unique,priority:2" json:"provider_subscription_id"`
	ProviderCustomerID     string    `gorm:"type:varchar(191);default:''" json:"provider_customer_id"`
	ProviderPlanRef        string    `gorm:"type:varchar(191);default:''" json:"provider_plan_ref"`
	InternalPlan           string    `gorm:"type:varchar(50);not null;default:'free'" json:"internal_plan"`
	Status                 string    `gorm:"type:varchar(32);not null;default:'inactive';index" json:"status"`
	RawPayloadJSON         string    `gorm:"type:longtext" json:"-"`
	CreatedAt              time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt              time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
