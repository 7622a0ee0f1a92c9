package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"chorebot/internal/model"
)

// ScheduleRepository handles CRUD for reminder schedules.
type ScheduleRepository struct {
	db *gorm.DB
}

func NewScheduleRepository(db *gorm.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

func (r *ScheduleRepository) Create(ctx context.Context, sched *model.ReminderSchedule) error {
	if err := r.db.WithContext(ctx).Create(sched).Error; err != nil {
		return fmt.Errorf("create schedule: %w", err)
	}
	return nil
}

func (r *ScheduleRepository) Update(ctx context.Context, sched *model.ReminderSchedule) error {
	if err := r.db.WithContext(ctx).Save(sched).Error; err != nil {
		return fmt.Errorf("update schedule: %w", err)
	}
	return nil
}

func (r *ScheduleRepository) FindByID(ctx context.Context, id uint) (*model.ReminderSchedule, error) {
	var sched model.ReminderSchedule
	if err := r.db.WithContext(ctx).First(&sched, id).Error; err != nil {
		return nil, err
	}
	return &sched, nil
}

func (r *ScheduleRepository) List(ctx context.Context) ([]model.ReminderSchedule, error) {
	var schedules []model.ReminderSchedule
	if err := r.db.WithContext(ctx).Order("id").Find(&schedules).Error; err != nil {
		return nil, err
	}
	return schedules, nil
}

// Delete removes a schedule and nulls every reference to it on templates and
// instances instead of failing; the dependents simply stop escalating.
func (r *ScheduleRepository) Delete(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.ChoreTemplate{}).
			Where("reminder_schedule_id = ?", id).
			Update("reminder_schedule_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Model(&model.ChoreInstance{}).
			Where("reminder_schedule_id = ?", id).
			Update("reminder_schedule_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&model.ReminderSchedule{}, id).Error
	})
	if err != nil {
		return fmt.Errorf("delete schedule %d: %w", id, err)
	}
	return nil
}
