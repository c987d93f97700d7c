package models

import (
	"time"

	"gorm.io/datatypes"
)

// IntegrationSettings holds the per-user ticketing configuration.
// APITokenEnc is a secretbox blob and is never serialised.
type IntegrationSettings struct {
	ID           uint              `gorm:"primaryKey" json:"-"`
	UserID       uint              `gorm:"uniqueIndex;not null" json:"-"`
	BaseURL      string            `gorm:"type:varchar(500);default:''" json:"base_url"`
	AccountEmail string            `gorm:"type:varchar(200);default:''" json:"account_email"`
	APITokenEnc  string            `gorm:"type:text" json:"-"`
	ProjectKey   string            `gorm:"type:varchar(50);default:''" json:"project_key"`
	IssueTypeID  string            `gorm:"type:varchar(50);default:''" json:"issue_type_id"`
	PriorityID   string            `gorm:"type:varchar(50);default:''" json:"priority_id"`
	CustomFields datatypes.JSONMap `json:"custom_fields"`
	Enabled      bool              `gorm:"default:false" json:"enabled"`
	CreatedAt    time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
}

// HasToken reports whether an encrypted API token is stored.
func (s *IntegrationSettings) HasToken() bool {
	return s != nil && s.APITokenEnc != ""
}

// Ready reports whether issues can be created with these settings.
func (s *IntegrationSettings) Ready() bool {
	return s != nil && s.Enabled && s.BaseURL != "" && s.AccountEmail != "" && s.HasToken() && s.ProjectKey != ""
}
