package model

import "time"

// ChoreInstance is one concrete due occurrence of a template. Name, assignee
// and schedule reference are copied at creation so history stays stable when
// the template is later edited or renamed.
type ChoreInstance struct {
	ID                 uint `gorm:"primaryKey"`
	Name               string
	Done               bool `gorm:"default:false"`
	DueAt              time.Time
	LastRemindAt       time.Time
	ReminderScheduleID *uint `gorm:"index"`
	Assignee           *string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}
