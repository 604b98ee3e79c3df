package repository

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/totegamma/metacatalog"
	"github.com/totegamma/metacatalog/internal/domain"
	"github.com/totegamma/metacatalog/internal/infra/database/models"
)

type MetadataRepository struct {
	db *gorm.DB
}

func NewMetadataRepository(db *gorm.DB) *MetadataRepository {
	return &MetadataRepository{db: db}
}

func (r *MetadataRepository) FindByID(ctx context.Context, id int64) (*domain.MetadataRecord, error) {
	var m models.Metadata
	err := r.db.WithContext(ctx).Preload("Categories").First(&m, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.NotFoundError{Resource: "record"}
	}
	if err != nil {
		return nil, err
	}
	record := metadataToDomain(m)
	return &record, nil
}

func (r *MetadataRepository) FindAll(ctx context.Context, filter domain.RecordFilter, page domain.Page) ([]domain.MetadataRecord, error) {
	query := r.db.WithContext(ctx).Model(&models.Metadata{}).Preload("Categories")
	if len(filter.Types) > 0 {
		codes := make([]string, 0, len(filter.Types))
		for _, t := range filter.Types {
			codes = append(codes, string(t))
		}
		query = query.Where("is_template IN ?", codes)
	}
	if filter.SchemaID != "" {
		query = query.Where("schema_id = ?", filter.SchemaID)
	}
	if filter.GroupOwner != nil {
		query = query.Where("group_owner = ?", *filter.GroupOwner)
	}
	if filter.Owner != nil {
		query = query.Where("owner = ?", int64(*filter.Owner))
	}
	if filter.Harvested != nil {
		query = query.Where("is_harvested = ?", *filter.Harvested)
	}
	if page.Size > 0 {
		query = query.Limit(page.Size).Offset(page.Number * page.Size)
	}

	var rows []models.Metadata
	if err := query.Order("id").Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]domain.MetadataRecord, 0, len(rows))
	for _, m := range rows {
		result = append(result, metadataToDomain(m))
	}
	return result, nil
}

func (r *MetadataRepository) Insert(ctx context.Context, record domain.MetadataRecord) (*domain.MetadataRecord, error) {
	m := metadataFromDomain(record)
	m.ID = 0
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return nil, err
	}
	created := metadataToDomain(m)
	return &created, nil
}

func (r *MetadataRepository) Update(ctx context.Context, id int64, update domain.RecordUpdate) (*domain.MetadataRecord, error) {
	var updated models.Metadata
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current models.Metadata
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&current, id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.NotFoundError{Resource: "record"}
		}
		if err != nil {
			return err
		}

		values := map[string]any{"data": update.Body}
		if update.Title != "" {
			values["title"] = update.Title
		}
		if update.UUID != "" {
			values["uuid"] = update.UUID
		}
		if update.UpdateDateStamp {
			changeDate := update.ChangeDate
			if changeDate == "" {
				changeDate = metacatalog.NowISODate()
			}
			values["change_date"] = changeDate
		}
		if err := tx.Model(&models.Metadata{}).Where("id = ?", id).Updates(values).Error; err != nil {
			return err
		}

		return tx.Preload("Categories").First(&updated, id).Error
	})
	if err != nil {
		return nil, err
	}
	record := metadataToDomain(updated)
	return &record, nil
}

func (r *MetadataRepository) UpdateOwner(ctx context.Context, id int64, owner domain.UserID, groupOwner int64) error {
	result := r.db.WithContext(ctx).Model(&models.Metadata{}).Where("id = ?", id).Updates(map[string]any{
		"owner":       int64(owner),
		"group_owner": groupOwner,
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.NotFoundError{Resource: "record"}
	}
	return nil
}

func (r *MetadataRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM metadata_categories WHERE metadata_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Metadata{}, id).Error
	})
}

func (r *MetadataRepository) FindIDsAndChangeDates(ctx context.Context, page domain.Page) ([]domain.IDChangeDate, error) {
	var rows []domain.IDChangeDate
	err := r.db.WithContext(ctx).
		Model(&models.Metadata{}).
		Select("id, change_date").
		Order("change_date, id").
		Limit(page.Size).
		Offset(page.Number * page.Size).
		Scan(&rows).Error
	return rows, err
}

func (r *MetadataRepository) FindSourceInfo(ctx context.Context, ids []int64) (map[int64]domain.SourceInfo, error) {
	result := make(map[int64]domain.SourceInfo, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	var rows []models.Metadata
	err := r.db.WithContext(ctx).
		Select("id, owner, group_owner, source").
		Where("id IN ?", ids).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, m := range rows {
		result[m.ID] = domain.SourceInfo{
			Owner:      domain.UserID(m.Owner),
			GroupOwner: m.GroupOwner,
			SourceID:   m.Source,
		}
	}
	return result, nil
}

func metadataToDomain(m models.Metadata) domain.MetadataRecord {
	record := domain.MetadataRecord{
		ID:           m.ID,
		UUID:         m.UUID,
		Type:         metacatalog.MetadataType(m.IsTemplate),
		SchemaID:     m.SchemaID,
		Root:         m.Root,
		DocType:      m.DocType,
		Body:         m.Data,
		CreateDate:   m.CreateDate,
		ChangeDate:   m.ChangeDate,
		Title:        m.Title,
		Popularity:   m.Popularity,
		Rating:       m.Rating,
		DisplayOrder: m.DisplayOrder,
		SourceInfo: domain.SourceInfo{
			Owner:      domain.UserID(m.Owner),
			GroupOwner: m.GroupOwner,
			SourceID:   m.Source,
		},
		HarvestInfo: domain.HarvestInfo{
			IsHarvested: m.IsHarvested,
			HarvestUUID: m.HarvestUUID,
		},
	}
	for _, c := range m.Categories {
		record.Categories = append(record.Categories, domain.Category{ID: c.ID, Name: c.Name})
	}
	return record
}

func metadataFromDomain(record domain.MetadataRecord) models.Metadata {
	m := models.Metadata{
		ID:           record.ID,
		UUID:         record.UUID,
		IsTemplate:   string(record.Type),
		SchemaID:     record.SchemaID,
		Root:         record.Root,
		DocType:      record.DocType,
		Data:         record.Body,
		CreateDate:   record.CreateDate,
		ChangeDate:   record.ChangeDate,
		Title:        record.Title,
		Popularity:   record.Popularity,
		Rating:       record.Rating,
		DisplayOrder: record.DisplayOrder,
		Owner:        int64(record.SourceInfo.Owner),
		GroupOwner:   record.SourceInfo.GroupOwner,
		Source:       record.SourceInfo.SourceID,
		IsHarvested:  record.HarvestInfo.IsHarvested,
		HarvestUUID:  record.HarvestInfo.HarvestUUID,
	}
	for _, c := range record.Categories {
		m.Categories = append(m.Categories, models.Category{ID: c.ID, Name: c.Name})
	}
	return m
}
