package models

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base32"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

const (
	// PlanFree is the plan of every account without an entitling subscription.
	PlanFree = "free"

	// APIKeyPrefix starts every raw API key.
	APIKeyPrefix = "ffx_"

	apiKeyRandomBytes = 20
	apiKeyShownChars  = 16
)

var apiKeyEncoding = base32.NewEncoding("abcdefghijklmnopqrstuvwxyz234567").WithPadding(base32.NoPadding)

// UserSettings holds the effective plan of an account and its API key.
// Only the SHA-256 of the key is stored; APIKeyPrefix keeps its first
// characters so users can tell keys apart.
type UserSettings struct {
	ID               uint           `gorm:"primaryKey" json:"id"`
	UserID           uint           `gorm:"uniqueIndex" json:"user_id"`
	Plan             string         `gorm:"type:varchar(50);default:'free'" json:"plan"`
	APIKeyHash       string         `gorm:"type:char(64);default:''" json:"-"`
	APIKeyPrefix     string         `gorm:"type:varchar(20);default:''" json:"api_key_prefix"`
	APIKeyCreatedAt  *time.Time     `json:"api_key_created_at"`
	APIKeyLastUsedAt *time.Time     `json:"api_key_last_used_at"`
	APIKeyRevokedAt  *time.Time     `json:"api_key_revoked_at"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`
}

// GetOrCreateUserSettings loads the settings of userID, creating them on the
// free plan when missing.
func GetOrCreateUserSettings(db *gorm.DB, userID uint) (*UserSettings, error) {
	var us UserSettings
	err := db.Where(UserSettings{UserID: userID}).
		Attrs(UserSettings{Plan: PlanFree}).
		FirstOrCreate(&us).Error
	if err != nil {
		return nil, err
	}
	return &us, nil
}

// EffectivePlan returns the stored plan, falling back to free.
func (us *UserSettings) EffectivePlan() string {
	if us == nil || strings.TrimSpace(us.Plan) == "" {
		return PlanFree
	}
	return us.Plan
}

func (us *UserSettings) HasActiveAPIKey() bool {
	return us != nil && us.APIKeyHash != "" && us.APIKeyRevokedAt == nil
}

// IssueAPIKey replaces any previous key and returns the new raw key, which is
// never stored. Callers persist us afterwards.
func (us *UserSettings) IssueAPIKey() (string, error) {
	raw, err := NewAPIKey()
	if err != nil {
		return "", err
	}
	now := time.Now().UTC()
	us.APIKeyHash = HashAPIKey(raw)
	us.APIKeyPrefix = raw[:apiKeyShownChars]
	us.APIKeyCreatedAt = &now
	us.APIKeyLastUsedAt = nil
	us.APIKeyRevokedAt = nil
	return raw, nil
}

// RevokeAPIKey forgets the key hash and records when it was revoked.
func (us *UserSettings) RevokeAPIKey() {
	now := time.Now().UTC()
	us.APIKeyHash = ""
	us.APIKeyPrefix = ""
	us.APIKeyLastUsedAt = nil
	us.APIKeyRevokedAt = &now
}

// NewAPIKey returns APIKeyPrefix followed by 32 lower-case base32 characters.
func NewAPIKey() (string, error) {
	b := make([]byte, apiKeyRandomBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate api key: %w", err)
	}
	return APIKeyPrefix + apiKeyEncoding.EncodeToString(b), nil
}

// HashAPIKey returns the hex SHA-256 under which a raw key is stored.
func HashAPIKey(raw string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(raw)))
	return hex.EncodeToString(sum[:])
}
