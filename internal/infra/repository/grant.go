package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/totegamma/metacatalog/internal/domain"
	"github.com/totegamma/metacatalog/internal/infra/database/models"
)

type GrantRepository struct {
	db *gorm.DB
}

func NewGrantRepository(db *gorm.DB) *GrantRepository {
	return &GrantRepository{db: db}
}

func (r *GrantRepository) FindByMetadataIDs(ctx context.Context, ids []int64, groups []int64) ([]domain.OperationGrant, error) {
	if len(ids) == 0 || len(groups) == 0 {
		return nil, nil
	}
	var rows []models.OperationAllowed
	err := r.db.WithContext(ctx).
		Where("metadata_id IN ? AND group_id IN ?", ids, groups).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	grants := make([]domain.OperationGrant, 0, len(rows))
	for _, row := range rows {
		grants = append(grants, domain.OperationGrant{
			MetadataID: row.MetadataID,
			GroupID:    row.GroupID,
			Operation:  domain.Operation(row.OperationID),
		})
	}
	return grants, nil
}

func (r *GrantRepository) FindMetadataIDsWith(ctx context.Context, ids []int64, group int64, op domain.Operation) ([]int64, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var result []int64
	err := r.db.WithContext(ctx).
		Model(&models.OperationAllowed{}).
		Distinct("metadata_id").
		Where("metadata_id IN ? AND group_id = ? AND operation_id = ?", ids, group, int(op)).
		Pluck("metadata_id", &result).Error
	return result, err
}

func (r *GrantRepository) Grant(ctx context.Context, grants ...domain.OperationGrant) error {
	if len(grants) == 0 {
		return nil
	}
	rows := make([]models.OperationAllowed, 0, len(grants))
	for _, g := range grants {
		rows = append(rows, models.OperationAllowed{
			MetadataID:  g.MetadataID,
			GroupID:     g.GroupID,
			OperationID: int(g.Operation),
		})
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error
}

func (r *GrantRepository) DeleteByMetadataID(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Where("metadata_id = ?", id).Delete(&models.OperationAllowed{}).Error
}
