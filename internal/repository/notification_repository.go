package repository

import (
	"context"

	"gorm.io/gorm"

	"chorebot/internal/model"
)

// NotificationRepository reads sent-message records. Appending happens inside
// InstanceRepository.FireReminder so it shares the fire transaction.
type NotificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) ListByInstance(ctx context.Context, instanceID uint) ([]model.NotificationRecord, error) {
	var records []model.NotificationRecord
	if err := r.db.WithContext(ctx).Where("instance_id = ?", instanceID).
		Order("id").
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}
