package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/ManuelReschke/FormFox/app/models"
)

type formRepository struct {
	db *gorm.DB
}

func NewFormRepository(db *gorm.DB) FormRepository {
	return &formRepository{db: db}
}

func (r *formRepository) GetByID(ctx context.Context, id string) (*models.Form, error) {
	var form models.Form
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&form).Error; err != nil {
		return nil, err
	}
	return &form, nil
}

func (r *formRepository) GetBySlug(ctx context.Context, slug string) (*models.Form, error) {
	var form models.Form
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&form).Error; err != nil {
		return nil, err
	}
	return &form, nil
}

// GetByIDForUser returns gorm.ErrRecordNotFound for forms of other users
func (r *formRepository) GetByIDForUser(ctx context.Context, id string, userID uint) (*models.Form, error) {
	var form models.Form
	if err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&form).Error; err != nil {
		return nil, err
	}
	return &form, nil
}

// ListByUser returns the user's forms, newest first
func (r *formRepository) ListByUser(ctx context.Context, userID uint) ([]models.Form, error) {
	var forms []models.Form
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Order("id").Find(&forms).Error
	return forms, err
}

// Update writes the editable columns. Boolean columns are selected
// explicitly so false is stored despite their defaults.
func (r *formRepository) Update(ctx context.Context, form *models.Form) error {
	return r.db.WithContext(ctx).Model(form).
		Select("name", "description", "fields", "redirect_url", "is_active", "ticketing_enabled").
		Updates(form).Error
}

// Delete removes the form and all its submissions
func (r *formRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("form_id = ?", id).Delete(&models.Submission{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&models.Form{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func (r *formRepository) CountByUser(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Form{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}

func (r *formRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Form{}).Where("slug = ?", slug).Count(&count).Error
	return count > 0, err
}
