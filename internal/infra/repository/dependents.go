package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/totegamma/metacatalog"
	"github.com/totegamma/metacatalog/internal/domain"
	"github.com/totegamma/metacatalog/internal/infra/database/models"
)

// DependentsRepository owns rows keyed by a record: ratings, validations,
// statuses, saved selections and file uploads.
type DependentsRepository struct {
	db *gorm.DB
}

func NewDependentsRepository(db *gorm.DB) *DependentsRepository {
	return &DependentsRepository{db: db}
}

func (r *DependentsRepository) DeleteRatings(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Where("metadata_id = ?", id).Delete(&models.MetadataRating{}).Error
}

func (r *DependentsRepository) DeleteValidations(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Where("metadata_id = ?", id).Delete(&models.Validation{}).Error
}

func (r *DependentsRepository) DeleteStatuses(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Where("metadata_id = ?", id).Delete(&models.MetadataStatus{}).Error
}

func (r *DependentsRepository) DeleteSavedSelections(ctx context.Context, uuid string) error {
	return r.db.WithContext(ctx).Where("metadata_uuid = ?", uuid).Delete(&models.SelectionRecord{}).Error
}

func (r *DependentsRepository) SoftDeleteFileUploads(ctx context.Context, id int64, deletedDate string) error {
	return r.db.WithContext(ctx).
		Model(&models.MetadataFileUpload{}).
		Where("metadata_id = ? AND deleted_date IS NULL", id).
		Update("deleted_date", deletedDate).Error
}

func (r *DependentsRepository) FindValidations(ctx context.Context, id int64) ([]domain.ValidationReport, error) {
	var rows []models.Validation
	if err := r.db.WithContext(ctx).Where("metadata_id = ?", id).Order("val_type").Find(&rows).Error; err != nil {
		return nil, err
	}
	reports := make([]domain.ValidationReport, 0, len(rows))
	for _, row := range rows {
		reports = append(reports, domain.ValidationReport{
			MetadataID:     row.MetadataID,
			ValidationType: row.ValType,
			IsValid:        row.Status == 1,
			NumFailures:    row.Failed,
			NumTests:       row.Tested,
		})
	}
	return reports, nil
}

// SaveValidations replaces every report of a record.
func (r *DependentsRepository) SaveValidations(ctx context.Context, id int64, reports []domain.ValidationReport) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("metadata_id = ?", id).Delete(&models.Validation{}).Error; err != nil {
			return err
		}
		if len(reports) == 0 {
			return nil
		}
		now := metacatalog.NowISODate()
		rows := make([]models.Validation, 0, len(reports))
		for _, report := range reports {
			status := 0
			if report.IsValid {
				status = 1
			}
			rows = append(rows, models.Validation{
				MetadataID: id,
				ValType:    report.ValidationType,
				Status:     status,
				Tested:     report.NumTests,
				Failed:     report.NumFailures,
				ValDate:    now,
			})
		}
		return tx.Create(&rows).Error
	})
}
