package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/ManuelReschke/FormFox/app/models"
	"github.com/ManuelReschke/FormFox/internal/pkg/pager"
)

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	GetByAPIKeyHash(ctx context.Context, hash string) (*models.User, *models.UserSettings, error)
	TouchAPIKey(ctx context.Context, settingsID uint, at time.Time) error
	GetSettings(ctx context.Context, userID uint) (*models.UserSettings, error)
	SaveSettings(ctx context.Context, settings *models.UserSettings) error
	FindOrCreateByProvider(ctx context.Context, provider, providerUserID, email, name string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	UpdateLastLogin(ctx context.Context, id uint, at time.Time) error
	RevokeSessions(ctx context.Context, id uint, at time.Time) error
}

// FormRepository defines the interface for form-related database operations.
// Forms are created through the quota ledger.
type FormRepository interface {
	GetByID(ctx context.Context, id string) (*models.Form, error)
	GetBySlug(ctx context.Context, slug string) (*models.Form, error)
	GetByIDForUser(ctx context.Context, id string, userID uint) (*models.Form, error)
	ListByUser(ctx context.Context, userID uint) ([]models.Form, error)
	Update(ctx context.Context, form *models.Form) error
	Delete(ctx context.Context, id string) error
	CountByUser(ctx context.Context, userID uint) (int64, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
}

// SubmissionRepository defines the interface for submission-related operations.
// Submissions are created through the quota ledger.
type SubmissionRepository interface {
	GetByID(ctx context.Context, id string) (*models.Submission, error)
	Delete(ctx context.Context, formID, id string) error
	Page(ctx context.Context, formID string, opts pager.Options) (*pager.Page, error)
	ListForExport(ctx context.Context, formID, search, rangeKey string) ([]models.Submission, error)
	CountByForm(ctx context.Context, formID string) (int64, error)
}

// IntegrationRepository stores per-user ticketing settings
type IntegrationRepository interface {
	GetByUserID(ctx context.Context, userID uint) (*models.IntegrationSettings, error)
	Upsert(ctx context.Context, settings *models.IntegrationSettings) error
}

// Repositories struct holds all repository instances
type Repositories struct {
	User        UserRepository
	Form        FormRepository
	Submission  SubmissionRepository
	Integration IntegrationRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB, pg *pager.Pager) *Repositories {
	return &Repositories{
		User:        NewUserRepository(db),
		Form:        NewFormRepository(db),
		Submission:  NewSubmissionRepository(db, pg),
		Integration: NewIntegrationRepository(db),
	}
}
