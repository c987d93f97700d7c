package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/ManuelReschke/FormFox/app/models"
	"github.com/ManuelReschke/FormFox/internal/pkg/pager"
)

// MaxExportRows bounds a single CSV export.
const MaxExportRows = 100000

type submissionRepository struct {
	db    *gorm.DB
	pager *pager.Pager
}

func NewSubmissionRepository(db *gorm.DB, pg *pager.Pager) SubmissionRepository {
	return &submissionRepository{db: db, pager: pg}
}

func (r *submissionRepository) GetByID(ctx context.Context, id string) (*models.Submission, error) {
	var sub models.Submission
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&sub).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

// Delete removes one submission of formID
func (r *submissionRepository) Delete(ctx context.Context, formID, id string) error {
	res := r.db.WithContext(ctx).Where("id = ? AND form_id = ?", id, formID).Delete(&models.Submission{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *submissionRepository) Page(ctx context.Context, formID string, opts pager.Options) (*pager.Page, error) {
	return r.pager.FetchPage(ctx, formID, opts)
}

// ListForExport returns the rows a listing with the same filters would show,
// newest first.
func (r *submissionRepository) ListForExport(ctx context.Context, formID, search, rangeKey string) ([]models.Submission, error) {
	var subs []models.Submission
	q := r.pager.Filter(r.db.WithContext(ctx).Model(&models.Submission{}), formID, search, rangeKey)
	err := q.Order("created_at DESC").Order("id DESC").Limit(MaxExportRows).Find(&subs).Error
	return subs, err
}

func (r *submissionRepository) CountByForm(ctx context.Context, formID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Submission{}).Where("form_id = ?", formID).Count(&count).Error
	return count, err
}
