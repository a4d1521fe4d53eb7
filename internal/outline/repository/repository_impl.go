package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/outlinehq/outliner/internal/outline/domain"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) domain.Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, outline *domain.Outline) error {
	return r.db.WithContext(ctx).Create(outline).Error
}

func (r *repository) GetByID(ctx context.Context, id snowflake.ID) (*domain.Outline, error) {
	var outline domain.Outline
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&outline).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrOutlineNotFound
	}
	if err != nil {
		return nil, err
	}
	return &outline, nil
}

func (r *repository) ListByOrg(ctx context.Context, orgID snowflake.ID) ([]domain.Outline, error) {
	var outlines []domain.Outline
	err := r.db.WithContext(ctx).
		Where("org_id = ?", orgID).
		Order("created_at DESC").
		Find(&outlines).Error
	if err != nil {
		return nil, err
	}
	return outlines, nil
}

func (r *repository) UpdateFields(ctx context.Context, id snowflake.ID, fields map[string]any) error {
	tx := r.db.WithContext(ctx).Model(&domain.Outline{}).Where("id = ?", id).Updates(fields)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return domain.ErrOutlineNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id snowflake.ID) error {
	tx := r.db.WithContext(ctx).Delete(&domain.Outline{}, "id = ?", id)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return domain.ErrOutlineNotFound
	}
	return nil
}
