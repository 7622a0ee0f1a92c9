package service

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"chorebot/internal/model"
)

// stubClock is a settable Clock so ticks can be replayed at exact instants.
type stubClock struct {
	t time.Time
}

func (c *stubClock) Now() time.Time { return c.t }

func (c *stubClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// A single connection keeps the in-memory database alive and shared.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&model.ReminderSchedule{},
		&model.ChoreTemplate{},
		&model.ChoreInstance{},
		&model.NotificationRecord{},
	))
	return db
}

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func strPtr(s string) *string { return &s }

func uintPtr(u uint) *uint { return &u }
