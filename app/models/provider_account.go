package models

import "time"

// ProviderAccount links an external OAuth identity to a local user. Provider
// access tokens are not kept; the identity is only used to sign the user in.
type ProviderAccount struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	UserID         uint      `gorm:"index" json:"user_id"`
	Provider       string    `gorm:"index:provider_uid,unique;type:varchar(50)" json:"provider"`
	ProviderUserID string    `gorm:"index:provider_uid,unique;type:varchar(191)" json:"provider_user_id"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
