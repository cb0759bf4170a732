package repository

import (
	"context"

	"retailorders/internal/domain/model"

	"gorm.io/gorm"
)

type ContactGormRepository struct {
	db *gorm.DB
}

func NewContactGormRepository(db *gorm.DB) *ContactGormRepository {
	return &ContactGormRepository{db: db}
}

func (r *ContactGormRepository) List(ctx context.Context, limit int, offset int) ([]model.Contact, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var contacts []model.Contact
	err := r.db.WithContext(ctx).Order("id desc").Limit(limit).Offset(offset).Find(&contacts).Error
	if err != nil {
		return []model.Contact{}, err
	}
	return contacts, nil
}

func (r *ContactGormRepository) Create(ctx context.Context, c model.Contact) (model.Contact, error) {
	if err := r.db.WithContext(ctx).Create(&c).Error; err != nil {
		return model.Contact{}, err
	}
	return c, nil
}
