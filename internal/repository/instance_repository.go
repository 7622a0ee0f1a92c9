package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"chorebot/internal/model"
)

// InstanceRepository handles chore instances and their reminder bookkeeping.
type InstanceRepository struct {
	db *gorm.DB
}

func NewInstanceRepository(db *gorm.DB) *InstanceRepository {
	return &InstanceRepository{db: db}
}

func (r *InstanceRepository) FindByID(ctx context.Context, id uint) (*model.ChoreInstance, error) {
	var inst model.ChoreInstance
	if err := r.db.WithContext(ctx).First(&inst, id).Error; err != nil {
		return nil, err
	}
	return &inst, nil
}

// ListOpen returns every not-done instance, oldest due first.
func (r *InstanceRepository) ListOpen(ctx context.Context) ([]model.ChoreInstance, error) {
	var instances []model.ChoreInstance
	if err := r.db.WithContext(ctx).Where("done = ?", false).
		Order("due_at, id").
		Find(&instances).Error; err != nil {
		return nil, err
	}
	return instances, nil
}

func (r *InstanceRepository) CountOpen(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&model.ChoreInstance{}).
		Where("done = ?", false).Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

func (r *InstanceRepository) MarkDone(ctx context.Context, inst *model.ChoreInstance) error {
	inst.Done = true
	if err := r.db.WithContext(ctx).Save(inst).Error; err != nil {
		return fmt.Errorf("mark instance %d done: %w", inst.ID, err)
	}
	return nil
}

func (r *InstanceRepository) UpdateAssignee(ctx context.Context, inst *model.ChoreInstance, assignee string) error {
	inst.Assignee = &assignee
	if err := r.db.WithContext(ctx).Save(inst).Error; err != nil {
		return fmt.Errorf("reassign instance %d: %w", inst.ID, err)
	}
	return nil
}

// FireReminder appends the notification record and advances the instance's
// last-reminder timestamp in one transaction. A crash between the two must
// not leave the timer marked as fired while the record is missing.
func (r *InstanceRepository) FireReminder(ctx context.Context, instanceID uint, at time.Time, rec *model.NotificationRecord) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(rec).Error; err != nil {
			return err
		}
		return tx.Model(&model.ChoreInstance{}).
			Where("id = ?", instanceID).
			Update("last_remind_at", at).Error
	})
	if err != nil {
		return fmt.Errorf("record reminder for instance %d: %w", instanceID, err)
	}
	return nil
}
