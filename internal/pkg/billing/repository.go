package billing

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ManuelReschke/FormFox/app/models"
)

// Repository provides DB operations used by the billing service.
type Repository interface {
	FindUserIDByEmail(ctx context.Context, email string) (uint, error)
	UpsertSubscription(ctx context.Context, sub *models.BillingSubscription) error
	ListSubscriptionsByUser(ctx context.Context, userID uint) ([]models.BillingSubscription, error)
	GetOrCreateUserSettings(ctx context.Context, userID uint) (*models.UserSettings, error)
	SaveUserSettings(ctx context.Context, us *models.UserSettings) error
	CreateWebhookEventIfNotExists(ctx context.Context, event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error)
	MarkWebhookProcessed(ctx context.Context, id uint, processingError string) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a billing repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) FindUserIDByEmail(ctx context.Context, email string) (uint, error) {
	var user models.User
	err := r.db.WithContext(ctx).Select("id").Where("email = ?", models.NormalizeEmail(email)).First(&user).Error
	if err != nil {
		return 0, err
	}
	return user.ID, nil
}

func (r *gormRepository) UpsertSubscription(ctx context.Context, sub *models.BillingSubscription) error {
	db := r.db.WithContext(ctx)
	if err := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "provider"},
			{Name: "provider_subscription_id"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"user_id",
			"provider_customer_id",
			"provider_plan_ref",
			"internal_plan",
			"status",
			"raw_payload_json",
			"updated_at",
		}),
	}).Create(sub).Error; err != nil {
		return err
	}

	// Ensure ID is populated after upsert.
	return db.Where("provider = ? AND provider_subscription_id = ?", sub.Provider, sub.ProviderSubscriptionID).
		First(sub).Error
}

func (r *gormRepository) ListSubscriptionsByUser(ctx context.Context, userID uint) ([]models.BillingSubscription, error) {
	var subs []models.BillingSubscription
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Find(&subs).Error
	return subs, err
}

func (r *gormRepository) GetOrCreateUserSettings(ctx context.Context, userID uint) (*models.UserSettings, error) {
	return models.GetOrCreateUserSettings(r.db.WithContext(ctx), userID)
}

func (r *gormRepository) SaveUserSettings(ctx context.Context, us *models.UserSettings) error {
	return r.db.WithContext(ctx).Save(us).Error
}

func (r *gormRepository) CreateWebhookEventIfNotExists(ctx context.Context, event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error) {
	db := r.db.WithContext(ctx)
	tx := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "provider"},
			{Name: "provider_event_id"},
		},
		DoNothing: true,
	}).Create(event)
	if tx.Error != nil {
		return false, nil, tx.Error
	}

	created := tx.RowsAffected > 0
	var stored models.BillingWebhookEvent
	if err := db.Where("provider = ? AND provider_event_id = ?", event.Provider, event.ProviderEventID).
		First(&stored).Error; err != nil {
		return false, nil, err
	}
	return created, &stored, nil
}

func (r *gormRepository) MarkWebhookProcessed(ctx context.Context, id uint, processingError string) error {
	now := time.Now()
	updates := map[string]interface{}{
		"processed_at":     &now,
		"processing_error": processingError,
	}
	return r.db.WithContext(ctx).Model(&models.BillingWebhookEvent{}).Where("id = ?", id).Updates(updates).Error
}
