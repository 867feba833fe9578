package repositories

import (
	"context"
	"time"

	"github.com/you/dispatchsvc/domain"
	"gorm.io/gorm"
)

// UserRepositoryImpl implements domain.UserRepository using GORM
type UserRepositoryImpl struct {
	db *gorm.DB
}

// DBUser is the slice of the users table owned by the marketplace that this service reads.
// The subscription columns are a denormalized copy of the active subscription.
type DBUser struct {
	ID                        uint   `gorm:"primaryKey"`
	Email                     string `gorm:"index;size:255"`
	Phone                     string `gorm:"column:phone_number;index;size:32"`
	Role                      string `gorm:"index;size:64"`
	PhoneVerified             bool
	SMSNotificationsEnabled   bool
	SMSBookingUpdates         bool
	SMSPaymentAlerts          bool
	SMSMaintenanceUpdates     bool
	SMSAnnouncements          bool
	EmailNotificationsEnabled bool
	SubscriptionStatus        string `gorm:"size:32;index"`
	SubscriptionExpiresAt     *time.Time
	CreatedAt                 time.Time
	UpdatedAt                 time.Time
}

// TableName returns the table name for GORM
func (DBUser) TableName() string {
	return "users"
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *gorm.DB) domain.UserRepository {
	return &UserRepositoryImpl{db: db}
}

// GetPreferences implements domain.UserRepository
func (r *UserRepositoryImpl) GetPreferences(ctx context.Context, userID uint) (*domain.UserPreferences, error) {
	var dbUser DBUser
	err := r.db.WithContext(ctx).Where("id = ?", userID).First(&dbUser).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return r.dbToPreferences(&dbUser), nil
}

// MarkPhoneVerified implements domain.UserRepository
func (r *UserRepositoryImpl) MarkPhoneVerified(ctx context.Context, userID uint, phone string) error {
	res := r.db.WithContext(ctx).Model(&DBUser{}).
		Where("id = ? AND phone_number = ?", userID, phone).
		Update("phone_verified", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *UserRepositoryImpl) dbToPreferences(u *DBUser) *domain.UserPreferences {
	return &domain.UserPreferences{
		UserID:                    u.ID,
		PhoneNumber:               u.Phone,
		Email:                     u.Email,
		SMSNotificationsEnabled:   u.SMSNotificationsEnabled,
		SMSBookingUpdates:         u.SMSBookingUpdates,
		SMSPaymentAlerts:          u.SMSPaymentAlerts,
		SMSMaintenanceUpdates:     u.SMSMaintenanceUpdates,
		SMSAnnouncements:          u.SMSAnnouncements,
		EmailNotificationsEnabled: u.EmailNotificationsEnabled,
	}
}
