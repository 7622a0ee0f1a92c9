package model

import "time"

// ReminderSchedule is an escalation policy owned by zero or more templates.
// Cadence holds the raw pair list, e.g. "0s=1d; 2d=12h; 4d=4h": after zero
// elapsed time remind daily, after two days every 12 hours, and so on.
type ReminderSchedule struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `gorm:"not null"`
	Cadence   string `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
