package services

import (
	"testing"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/you/dispatchsvc/internal/infrastructure/repositories"
	"github.com/you/dispatchsvc/internal/phone"
)

// setupServiceDB creates an in-memory SQLite database with every table migrated
func setupServiceDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(repositories.Models()...); err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}
	return db
}

func seedUser(t *testing.T, db *gorm.DB, u *repositories.DBUser) {
	t.Helper()
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}
}

// optedInUser has every SMS toggle enabled
func optedInUser(id uint, phoneNumber string) *repositories.DBUser {
	return &repositories.DBUser{
		ID:                      id,
		Email:                   "student@example.com",
		Phone:                   phoneNumber,
		Role:                    "student",
		SMSNotificationsEnabled: true,
		SMSBookingUpdates:       true,
		SMSPaymentAlerts:        true,
		SMSMaintenanceUpdates:   true,
		SMSAnnouncements:        true,
	}
}

func testPhones() *phone.Normalizer {
	return phone.NewNormalizer("233", 9)
}

func testTemplater() *MessageTemplater {
	return NewMessageTemplater("StudentHub", 160)
}

func testLogger() *zap.Logger {
	return zap.NewNop()
}

// testClock is a manually advanced clock
type testClock struct {
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time { return c.now }

func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }
