package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"chorebot/internal/model"
)

// TemplateRepository handles CRUD for chore templates.
type TemplateRepository struct {
	db *gorm.DB
}

func NewTemplateRepository(db *gorm.DB) *TemplateRepository {
	return &TemplateRepository{db: db}
}

func (r *TemplateRepository) Create(ctx context.Context, tmpl *model.ChoreTemplate) error {
	if err := r.db.WithContext(ctx).Create(tmpl).Error; err != nil {
		return fmt.Errorf("create template: %w", err)
	}
	return nil
}

func (r *TemplateRepository) Update(ctx context.Context, tmpl *model.ChoreTemplate) error {
	if err := r.db.WithContext(ctx).Save(tmpl).Error; err != nil {
		return fmt.Errorf("update template: %w", err)
	}
	return nil
}

func (r *TemplateRepository) FindByID(ctx context.Context, id uint) (*model.ChoreTemplate, error) {
	var tmpl model.ChoreTemplate
	if err := r.db.WithContext(ctx).First(&tmpl, id).Error; err != nil {
		return nil, err
	}
	return &tmpl, nil
}

func (r *TemplateRepository) List(ctx context.Context) ([]model.ChoreTemplate, error) {
	var templates []model.ChoreTemplate
	if err := r.db.WithContext(ctx).Order("sort_priority, id").Find(&templates).Error; err != nil {
		return nil, err
	}
	return templates, nil
}

// ListStale returns templates whose watermark is strictly before the given
// day. Assignee filtering is left to the caller.
func (r *TemplateRepository) ListStale(ctx context.Context, day time.Time) ([]model.ChoreTemplate, error) {
	var templates []model.ChoreTemplate
	if err := r.db.WithContext(ctx).Where("generated_through < ?", day).
		Order("sort_priority, id").
		Find(&templates).Error; err != nil {
		return nil, err
	}
	return templates, nil
}

// Materialize inserts a new instance and advances the template watermark in
// one transaction. A crash between the two halves must leave neither visible,
// otherwise the template could spawn twice on the same day.
func (r *TemplateRepository) Materialize(ctx context.Context, templateID uint, watermark time.Time, inst *model.ChoreInstance) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(inst).Error; err != nil {
			return err
		}
		return tx.Model(&model.ChoreTemplate{}).
			Where("id = ?", templateID).
			Update("generated_through", watermark).Error
	})
	if err != nil {
		return fmt.Errorf("materialize template %d: %w", templateID, err)
	}
	return nil
}

// Delete removes a template. Existing instances keep their copied fields and
// are untouched.
func (r *TemplateRepository) Delete(ctx context.Context, id uint) error {
	if err := r.db.WithContext(ctx).Delete(&model.ChoreTemplate{}, id).Error; err != nil {
		return fmt.Errorf("delete template: %w", err)
	}
	return nil
}

func (r *TemplateRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&model.ChoreTemplate{}).Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}
