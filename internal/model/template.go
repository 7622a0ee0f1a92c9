package model

import "time"

// ChoreTemplate is a recurring duty definition that spawns instances.
type ChoreTemplate struct {
	ID           uint    `gorm:"primaryKey"`
	Name         string  `gorm:"not null"`
	SortPriority int     `gorm:"index;default:0"` // display ordering only
	Assignee     *string // opaque chat user id; nil means the template is inert
	// Recurrence is an RFC 5545 RRULE expression, e.g. "FREQ=WEEKLY;INTERVAL=1;BYDAY=MO".
	Recurrence         string `gorm:"not null"`
	ReminderScheduleID *uint  `gorm:"index"`
	// GeneratedThrough is the date through which instances have already been
	// materialized. Monotonically non-decreasing; advanced only by the
	// materializer, in the same transaction as the instance insert.
	GeneratedThrough time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
