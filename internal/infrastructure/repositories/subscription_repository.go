package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/you/dispatchsvc/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var errPaymentLogNotFound = errors.New("payment log not found")

// SubscriptionRepositoryImpl implements domain.SubscriptionRepository using GORM
type SubscriptionRepositoryImpl struct {
	db *gorm.DB
}

// DBSubscription represents the user_subscriptions table
type DBSubscription struct {
	ID               uint      `gorm:"primaryKey"`
	UserID           uint      `gorm:"index;not null"`
	PlanID           string    `gorm:"size:64"`
	PaymentReference string    `gorm:"uniqueIndex;size:128"`
	AmountPaid       float64   `gorm:"not null"`
	StartDate        time.Time
	EndDate          time.Time `gorm:"index"`
	Status           string    `gorm:"size:32;index"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// TableName returns the table name for GORM
func (DBSubscription) TableName() string {
	return "user_subscriptions"
}

// DBSubscriptionPaymentLog tracks one payment attempt and the raw gateway response
type DBSubscriptionPaymentLog struct {
	ID              uint   `gorm:"primaryKey"`
	SubscriptionID  uint   `gorm:"index"`
	Reference       string `gorm:"uniqueIndex;size:128"`
	Amount          float64
	Status          string `gorm:"size:32;index"`
	GatewayResponse datatypes.JSON
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// TableName returns the table name for GORM
func (DBSubscriptionPaymentLog) TableName() string {
	return "subscription_payment_logs"
}

// NewSubscriptionRepository creates a new subscription repository
func NewSubscriptionRepository(db *gorm.DB) domain.SubscriptionRepository {
	return &SubscriptionRepositoryImpl{db: db}
}

// CreatePending stores a pending subscription and its pending payment log together
func (r *SubscriptionRepositoryImpl) CreatePending(ctx context.Context, sub *domain.Subscription) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := subscriptionToDB(sub)
		row.Status = string(domain.SubscriptionPending)
		if err := tx.Create(row).Error; err != nil {
			return err
		}
		log := &DBSubscriptionPaymentLog{
			SubscriptionID: row.ID,
			Reference:      row.PaymentReference,
			Amount:         row.AmountPaid,
			Status:         string(domain.PaymentLogPending),
		}
		if err := tx.Create(log).Error; err != nil {
			return err
		}
		*sub = *subscriptionToDomain(row)
		return nil
	})
}

// FindByReference implements domain.SubscriptionRepository
func (r *SubscriptionRepositoryImpl) FindByReference(ctx context.Context, reference string) (*domain.Subscription, error) {
	return findByReference(r.db.WithContext(ctx), reference)
}

// FindLatestForUser returns the most recently created subscription
func (r *SubscriptionRepositoryImpl) FindLatestForUser(ctx context.Context, userID uint) (*domain.Subscription, error) {
	var row DBSubscription
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).
		Order("created_at DESC").Order("id DESC").
		First(&row).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, domain.ErrSubscriptionNotFound
		}
		return nil, err
	}
	return subscriptionToDomain(&row), nil
}

// WithinTx implements domain.SubscriptionRepository
func (r *SubscriptionRepositoryImpl) WithinTx(ctx context.Context, fn func(tx domain.SubscriptionTx) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&subscriptionTx{db: tx})
	})
}

// ExpireLapsed flips active subscriptions past their end date to expired, together with
// the denormalized copy on users. Safe to run repeatedly.
func (r *SubscriptionRepositoryImpl) ExpireLapsed(ctx context.Context, now time.Time) (int64, error) {
	var affected int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&DBSubscription{}).
			Where("status = ? AND end_date < ?", string(domain.SubscriptionActive), now).
			Update("status", string(domain.SubscriptionExpired))
		if res.Error != nil {
			return res.Error
		}
		affected = res.RowsAffected

		return tx.Model(&DBUser{}).
			Where("subscription_status = ? AND subscription_expires_at < ?", string(domain.SubscriptionActive), now).
			Update("subscription_status", string(domain.SubscriptionExpired)).Error
	})
	return affected, err
}

type subscriptionTx struct {
	db *gorm.DB
}

func (t *subscriptionTx) FindByReference(ctx context.Context, reference string) (*domain.Subscription, error) {
	return findByReference(t.db.WithContext(ctx), reference)
}

func (t *subscriptionTx) UpdateStatus(ctx context.Context, id uint, status domain.SubscriptionStatus) error {
	res := t.db.WithContext(ctx).Model(&DBSubscription{}).Where("id = ?", id).Update("status", string(status))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrSubscriptionNotFound
	}
	return nil
}

func (t *subscriptionTx) UpdateUserSubscription(ctx context.Context, userID uint, status domain.SubscriptionStatus, expiresAt time.Time) error {
	res := t.db.WithContext(ctx).Model(&DBUser{}).Where("id = ?", userID).Updates(map[string]interface{}{
		"subscription_status":     string(status),
		"subscription_expires_at": expiresAt,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (t *subscriptionTx) UpdatePaymentLog(ctx context.Context, reference string, status domain.PaymentLogStatus, gatewayResponse []byte) error {
	res := t.db.WithContext(ctx).Model(&DBSubscriptionPaymentLog{}).Where("reference = ?", reference).Updates(map[string]interface{}{
		"status":           string(status),
		"gateway_response": datatypes.JSON(gatewayResponse),
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errPaymentLogNotFound
	}
	return nil
}

func findByReference(db *gorm.DB, reference string) (*domain.Subscription, error) {
	var row DBSubscription
	if err := db.Where("payment_reference = ?", reference).First(&row).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, domain.ErrSubscriptionNotFound
		}
		return nil, err
	}
	return subscriptionToDomain(&row), nil
}

func subscriptionToDB(s *domain.Subscription) *DBSubscription {
	return &DBSubscription{
		ID:               s.ID,
		UserID:           s.UserID,
		PlanID:           s.PlanID,
		PaymentReference: s.PaymentReference,
		AmountPaid:       s.AmountPaid,
		StartDate:        s.StartDate,
		EndDate:          s.EndDate,
		Status:           string(s.Status),
	}
}

func subscriptionToDomain(row *DBSubscription) *domain.Subscription {
	return &domain.Subscription{
		ID:               row.ID,
		UserID:           row.UserID,
		PlanID:           row.PlanID,
		PaymentReference: row.PaymentReference,
		AmountPaid:       row.AmountPaid,
		StartDate:        row.StartDate,
		EndDate:          row.EndDate,
		Status:           domain.SubscriptionStatus(row.Status),
		CreatedAt:        row.CreatedAt,
		UpdatedAt:        row.UpdatedAt,
	}
}
