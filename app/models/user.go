package models

import (
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/ManuelReschke/FormFox/internal/pkg/validation"
)

const (
	ROLE_USER       = "user"
	ROLE_ADMIN      = "admin"
	STATUS_ACTIVE   = "active"
	STATUS_DISABLED = "disabled"
)

type User struct {
	ID                uint           `gorm:"primaryKey" json:"id"`
	Name              string         `gorm:"type:varchar(150)" json:"name" validate:"required,min=3,max=150"`
	Email             string         `gorm:"uniqueIndex;type:varchar(200)" json:"email" validate:"required,email,min=5,max=200"`
	Password          string         `gorm:"type:text" json:"-" validate:"required,min=6"`
	Role              string         `gorm:"type:varchar(50);default:'user'" json:"role" validate:"oneof=user admin"`
	Status            string         `gorm:"type:varchar(50);default:'active'" json:"status" validate:"oneof=active disabled"`
	LastLoginAt       *time.Time     `gorm:"default:null" json:"last_login_at"`
	SessionsRevokedAt *time.Time     `gorm:"default:null" json:"-"`
	CreatedAt         time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"-"`
}

func (u *User) Validate() error {
	return validation.Struct(u)
}

// NormalizeEmail is the canonical subject form used by sessions, lookups and
// billing webhooks.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func CreateUser(username string, email string, password string) (*User, error) {
	u := &User{
		Name:     strings.TrimSpace(username),
		Email:    NormalizeEmail(email),
		Password: password,
		Role:     ROLE_USER,
		Status:   STATUS_ACTIVE,
	}

	// Validate the raw password length before it is replaced by its hash.
	if err := u.Validate(); err != nil {
		return nil, err
	}

	pw, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	u.Password = pw

	return u, nil
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)

	return string(bytes), err
}

// CheckPasswordHash compares the given password with the stored hash.
func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))

	return err == nil
}

// IsActive reports whether the user status is active
func (u *User) IsActive() bool {
	return u.Status == STATUS_ACTIVE
}

// CheckPassword verifies if the provided password matches the user's stored password
func (u *User) CheckPassword(password string) bool {
	return CheckPasswordHash(password, u.Password)
}

// SessionIssuedBeforeRevocation reports whether a session issued at issuedAt
// was invalidated by a later "log out everywhere". Tokens carry whole
// seconds, so a session issued within the revocation second survives.
func (u *User) SessionIssuedBeforeRevocation(issuedAt time.Time) bool {
	if u.SessionsRevokedAt == nil {
		return false
	}
	return issuedAt.Before(u.SessionsRevokedAt.Truncate(time.Second))
}
