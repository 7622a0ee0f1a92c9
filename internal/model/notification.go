package model

import "time"

// NotificationRecord ties one sent reminder message to its instance so the
// message can be edited in place later. Records are appended on every send
// and rewritten (never deleted) when the instance completes.
type NotificationRecord struct {
	ID         uint  `gorm:"primaryKey"`
	InstanceID uint  `gorm:"index;not null"`
	ChatID     int64 `gorm:"not null"`
	MessageID  int   `gorm:"not null"`
	CreatedAt  time.Time
}
