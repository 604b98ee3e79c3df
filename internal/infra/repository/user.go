package repository

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/totegamma/metacatalog/internal/domain"
	"github.com/totegamma/metacatalog/internal/infra/database/models"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) FindByID(ctx context.Context, id domain.UserID) (*domain.User, error) {
	var m models.User
	err := r.db.WithContext(ctx).First(&m, int64(id)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.NotFoundError{Resource: "user"}
	}
	if err != nil {
		return nil, err
	}
	return &domain.User{
		ID:           domain.UserID(m.ID),
		Username:     m.Username,
		Name:         m.Name,
		Surname:      m.Surname,
		Organisation: m.Organisation,
		Profile:      domain.Profile(m.Profile),
	}, nil
}

// FindMemberships keeps the highest profile per group.
func (r *UserRepository) FindMemberships(ctx context.Context, id domain.UserID) (map[int64]domain.Profile, error) {
	var rows []models.UserGroup
	if err := r.db.WithContext(ctx).Where("user_id = ?", int64(id)).Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make(map[int64]domain.Profile, len(rows))
	for _, row := range rows {
		profile := domain.Profile(row.Profile)
		if current, ok := result[row.GroupID]; !ok || profile.Rank() > current.Rank() {
			result[row.GroupID] = profile
		}
	}
	return result, nil
}

type GroupRepository struct {
	db *gorm.DB
}

func NewGroupRepository(db *gorm.DB) *GroupRepository {
	return &GroupRepository{db: db}
}

func (r *GroupRepository) FindByID(ctx context.Context, id int64) (*domain.Group, error) {
	var m models.Group
	err := r.db.WithContext(ctx).Preload("DefaultCategory").First(&m, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.NotFoundError{Resource: "group"}
	}
	if err != nil {
		return nil, err
	}
	group := &domain.Group{ID: m.ID, Name: m.Name}
	if m.DefaultCategory != nil {
		group.DefaultCategory = &domain.Category{ID: m.DefaultCategory.ID, Name: m.DefaultCategory.Name}
	}
	return group, nil
}

type CategoryRepository struct {
	db *gorm.DB
}

func NewCategoryRepository(db *gorm.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

func (r *CategoryRepository) FindByName(ctx context.Context, name string) (*domain.Category, error) {
	var m models.Category
	err := r.db.WithContext(ctx).Where("name = ?", name).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.NotFoundError{Resource: "category " + name}
	}
	if err != nil {
		return nil, err
	}
	return &domain.Category{ID: m.ID, Name: m.Name}, nil
}

func (r *GroupRepository) FindAllIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).Model(&models.Group{}).Order("id").Pluck("id", &ids).Error
	return ids, err
}
