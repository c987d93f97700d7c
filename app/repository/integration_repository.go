package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ManuelReschke/FormFox/app/models"
)

type integrationRepository struct {
	db *gorm.DB
}

func NewIntegrationRepository(db *gorm.DB) IntegrationRepository {
	return &integrationRepository{db: db}
}

// GetByUserID returns gorm.ErrRecordNotFound when nothing is configured
func (r *integrationRepository) GetByUserID(ctx context.Context, userID uint) (*models.IntegrationSettings, error) {
	var s models.IntegrationSettings
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// Upsert inserts or replaces the settings row of settings.UserID
func (r *integrationRepository) Upsert(ctx context.Context, settings *models.IntegrationSettings) error {
	db := r.db.WithContext(ctx)
	if err := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"base_url",
			"account_email",
			"api_token_enc",
			"project_key",
			"issue_type_id",
			"priority_id",
			"custom_fields",
			"enabled",
			"updated_at",
		}),
	}).Create(settings).Error; err != nil {
		return err
	}
	return db.Where("user_id = ?", settings.UserID).First(settings).Error
}
