package repository

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/totegamma/metacatalog"
	"github.com/totegamma/metacatalog/internal/domain"
	"github.com/totegamma/metacatalog/internal/infra/database/models"
)

const indexBatchSize = 500

// IndexRepository is the search index, kept in its own table.
type IndexRepository struct {
	db *gorm.DB
}

func NewIndexRepository(db *gorm.DB) *IndexRepository {
	return &IndexRepository{db: db}
}

func (r *IndexRepository) GetAllChangeDates(ctx context.Context) (map[int64]string, error) {
	var rows []domain.IDChangeDate
	err := r.db.WithContext(ctx).
		Model(&models.IndexDocument{}).
		Select("id, change_date").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	result := make(map[int64]string, len(rows))
	for _, row := range rows {
		result[row.ID] = row.ChangeDate
	}
	return result, nil
}

func (r *IndexRepository) IndexOne(ctx context.Context, doc domain.IndexDocument) error {
	m := indexFromDomain(doc)
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&m).Error
}

func (r *IndexRepository) IndexBatch(ctx context.Context, docs []domain.IndexDocument) error {
	if len(docs) == 0 {
		return nil
	}
	rows := make([]models.IndexDocument, 0, len(docs))
	for _, d := range docs {
		rows = append(rows, indexFromDomain(d))
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).CreateInBatches(&rows, indexBatchSize).Error
}

func (r *IndexRepository) Get(ctx context.Context, id int64) (*domain.IndexDocument, error) {
	var m models.IndexDocument
	err := r.db.WithContext(ctx).First(&m, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.NotFoundError{Resource: "index document"}
	}
	if err != nil {
		return nil, err
	}
	doc := indexToDomain(m)
	return &doc, nil
}

func (r *IndexRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&models.IndexDocument{}, id).Error
}

// Search returns ids of documents whose cross references contain pattern.
func (r *IndexRepository) Search(ctx context.Context, pattern string, limit int) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).
		Model(&models.IndexDocument{}).
		Where("xlinks LIKE ? ESCAPE '\\'", "%"+escapeLike(pattern)+"%").
		Order("id").
		Limit(limit).
		Pluck("id", &ids).Error
	return ids, err
}

func (r *IndexRepository) FindReferencing(ctx context.Context, uuid string, limit int) ([]int64, error) {
	return r.Search(ctx, uuid, limit)
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func indexFromDomain(d domain.IndexDocument) models.IndexDocument {
	return models.IndexDocument{
		ID:         d.ID,
		UUID:       d.UUID,
		ChangeDate: d.ChangeDate,
		SchemaID:   d.SchemaID,
		IsTemplate: string(d.Type),
		Title:      d.Title,
		Owner:      int64(d.Owner),
		GroupOwner: d.GroupOwner,
		XLinks:     d.XLinks,
		AnyText:    d.AnyText,
	}
}

func indexToDomain(m models.IndexDocument) domain.IndexDocument {
	return domain.IndexDocument{
		ID:         m.ID,
		UUID:       m.UUID,
		ChangeDate: m.ChangeDate,
		SchemaID:   m.SchemaID,
		Type:       metacatalog.MetadataType(m.IsTemplate),
		Title:      m.Title,
		Owner:      domain.UserID(m.Owner),
		GroupOwner: m.GroupOwner,
		XLinks:     m.XLinks,
		AnyText:    m.AnyText,
	}
}
