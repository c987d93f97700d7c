package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/ManuelReschke/FormFox/app/models"
)

// userRepository implements the UserRepository interface
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository instance
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// Create creates a new user in the database
func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	user.Email = models.NormalizeEmail(user.Email)
	return r.db.WithContext(ctx).Create(user).Error
}

// GetByID retrieves a user by their ID
func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).First(&user, id).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByEmail retrieves a user by their email address, case-insensitively
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("email = ?", models.NormalizeEmail(email)).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", models.NormalizeEmail(email)).Count(&count).Error
	return count > 0, err
}

// GetByAPIKeyHash resolves an active API key hash to its user and user settings.
func (r *userRepository) GetByAPIKeyHash(ctx context.Context, hash string) (*models.User, *models.UserSettings, error) {
	trimmed := strings.TrimSpace(hash)
	if trimmed == "" {
		return nil, nil, gorm.ErrRecordNotFound
	}
	db := r.db.WithContext(ctx)
	var settings models.UserSettings
	query := db.Where("api_key_hash = ? AND api_key_hash <> '' AND api_key_revoked_at IS NULL", trimmed)
	if err := query.First(&settings).Error; err != nil {
		return nil, nil, err
	}
	var user models.User
	if err := db.First(&user, settings.UserID).Error; err != nil {
		return nil, nil, err
	}
	return &user, &settings, nil
}

// TouchAPIKey records the last use of an API key
func (r *userRepository) TouchAPIKey(ctx context.Context, settingsID uint, at time.Time) error {
	return r.db.WithContext(ctx).Model(&models.UserSettings{}).
		Where("id = ?", settingsID).
		UpdateColumn("api_key_last_used_at", at).Error
}

func (r *userRepository) GetSettings(ctx context.Context, userID uint) (*models.UserSettings, error) {
	return models.GetOrCreateUserSettings(r.db.WithContext(ctx), userID)
}

func (r *userRepository) SaveSettings(ctx context.Context, settings *models.UserSettings) error {
	return r.db.WithContext(ctx).Save(settings).Error
}

// FindOrCreateByProvider signs in an OAuth identity. A known identity maps to
// its user; otherwise the identity is linked to the user with the same
// e-mail, or a new user without a usable password is created.
func (r *userRepository) FindOrCreateByProvider(ctx context.Context, provider, providerUserID, email, name string) (*models.User, error) {
	if provider == "" || providerUserID == "" {
		return nil, errors.New("provider identity is incomplete")
	}

	var user models.User
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var link models.ProviderAccount
		err := tx.Where("provider = ? AND provider_user_id = ?", provider, providerUserID).First(&link).Error
		if err == nil {
			return tx.First(&user, link.UserID).Error
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		normalized := models.NormalizeEmail(email)
		if normalized == "" {
			return errors.New("provider did not return an e-mail address")
		}
		err = tx.Where("email = ?", normalized).First(&user).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			user = models.User{
				Name:   strings.TrimSpace(name),
				Email:  normalized,
				Role:   models.ROLE_USER,
				Status: models.STATUS_ACTIVE,
			}
			if user.Name == "" {
				user.Name = normalized
			}
			err = tx.Create(&user).Error
		}
		if err != nil {
			return err
		}

		return tx.Create(&models.ProviderAccount{
			UserID:         user.ID,
			Provider:       provider,
			ProviderUserID: providerUserID,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Update updates an existing user in the database
func (r *userRepository) Update(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Save(user).Error
}

func (r *userRepository) UpdateLastLogin(ctx context.Context, id uint, at time.Time) error {
	return r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).UpdateColumn("last_login_at", at).Error
}

// RevokeSessions invalidates every session issued before at
func (r *userRepository) RevokeSessions(ctx context.Context, id uint, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).UpdateColumn("sessions_revoked_at", at)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
