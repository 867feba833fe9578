package repositories

import (
	"context"
	"testing"

	"github.com/you/dispatchsvc/domain"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// setupTestDB creates an in-memory SQLite database for testing.
// A single connection keeps every statement, transactions included, on the same memory database.
func setupTestDB(t *testing.T) *gorm.DB {
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

	if err := db.AutoMigrate(Models()...); err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}

	return db
}

func seedUser(t *testing.T, db *gorm.DB, u *DBUser) {
	t.Helper()
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}
}

func TestUserRepositoryImpl_GetPreferences(t *testing.T) {
	tests := []struct {
		name          string
		setupData     func(db *gorm.DB)
		userID        uint
		expected      *domain.UserPreferences
		expectedError error
	}{
		{
			name: "maps every toggle",
			setupData: func(db *gorm.DB) {
				seedUser(t, db, &DBUser{
					ID:                        1,
					Email:                     "ama@example.com",
					Phone:                     "233241234567",
					Role:                      "student",
					SMSNotificationsEnabled:   true,
					SMSBookingUpdates:         true,
					SMSPaymentAlerts:          false,
					SMSMaintenanceUpdates:     true,
					SMSAnnouncements:          false,
					EmailNotificationsEnabled: true,
				})
			},
			userID: 1,
			expected: &domain.UserPreferences{
				UserID:                    1,
				PhoneNumber:               "233241234567",
				Email:                     "ama@example.com",
				SMSNotificationsEnabled:   true,
				SMSBookingUpdates:         true,
				SMSMaintenanceUpdates:     true,
				EmailNotificationsEnabled: true,
			},
		},
		{
			name:          "user not found",
			setupData:     func(db *gorm.DB) {},
			userID:        42,
			expectedError: domain.ErrUserNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := setupTestDB(t)
			tt.setupData(db)
			repo := NewUserRepository(db)

			prefs, err := repo.GetPreferences(context.Background(), tt.userID)

			if tt.expectedError != nil {
				if err != tt.expectedError {
					t.Errorf("expected error %v, got %v", tt.expectedError, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if *prefs != *tt.expected {
				t.Errorf("expected %+v, got %+v", tt.expected, prefs)
			}
		})
	}
}

func TestUserRepositoryImpl_MarkPhoneVerified(t *testing.T) {
	db := setupTestDB(t)
	seedUser(t, db, &DBUser{ID: 7, Phone: "233201112222", Role: "student"})
	repo := NewUserRepository(db)

	// a number that belongs to someone else leaves the account untouched
	if err := repo.MarkPhoneVerified(context.Background(), 7, "233209999999"); err != domain.ErrUserNotFound {
		t.Errorf("expected ErrUserNotFound for foreign phone, got %v", err)
	}
	var before DBUser
	db.First(&before, 7)
	if before.PhoneVerified {
		t.Fatal("phone_verified set for a number the user does not own")
	}

	if err := repo.MarkPhoneVerified(context.Background(), 7, "233201112222"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var u DBUser
	db.First(&u, 7)
	if !u.PhoneVerified {
		t.Error("expected phone_verified to be true")
	}

	if err := repo.MarkPhoneVerified(context.Background(), 99, "233201112222"); err != domain.ErrUserNotFound {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
}
