package repositories

import (
	"context"
	"time"

	"github.com/you/dispatchsvc/domain"
	"gorm.io/gorm"
)

// OTPRepositoryImpl implements domain.OTPRepository using GORM
type OTPRepositoryImpl struct {
	db *gorm.DB
}

// DBOTPRecord is the otp_verifications row. OTPCode holds a bcrypt hash.
type DBOTPRecord struct {
	ID          uint      `gorm:"primaryKey"`
	PhoneNumber string    `gorm:"size:20;index:idx_otp_phone_purpose"`
	OTPCode     string    `gorm:"column:otp_code;size:100"`
	Purpose     string    `gorm:"size:32;index:idx_otp_phone_purpose"`
	UserID      *uint     `gorm:"index"`
	Attempts    int       `gorm:"not null"`
	MaxAttempts int       `gorm:"not null"`
	IsVerified  bool      `gorm:"index"`
	ExpiresAt   time.Time `gorm:"index"`
	VerifiedAt  *time.Time
	CreatedAt   time.Time `gorm:"index"`
}

// TableName returns the table name for GORM
func (DBOTPRecord) TableName() string {
	return "otp_verifications"
}

// NewOTPRepository creates a new OTP repository
func NewOTPRepository(db *gorm.DB) domain.OTPRepository {
	return &OTPRepositoryImpl{db: db}
}

// Create implements domain.OTPRepository
func (r *OTPRepositoryImpl) Create(ctx context.Context, record *domain.OTPRecord) error {
	row := r.domainToDB(record)
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return err
	}
	record.ID = row.ID
	record.CreatedAt = row.CreatedAt
	return nil
}

// Delete implements domain.OTPRepository
func (r *OTPRepositoryImpl) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&DBOTPRecord{}, id).Error
}

// Update persists the mutable verification state of a record
func (r *OTPRepositoryImpl) Update(ctx context.Context, record *domain.OTPRecord) error {
	res := r.db.WithContext(ctx).Model(&DBOTPRecord{}).Where("id = ?", record.ID).Updates(map[string]interface{}{
		"attempts":    record.Attempts,
		"is_verified": record.IsVerified,
		"verified_at": record.VerifiedAt,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrRecordNotFound
	}
	return nil
}

// CreatedSince implements domain.OTPRepository
func (r *OTPRepositoryImpl) CreatedSince(ctx context.Context, phone string, purpose domain.OTPPurpose, since time.Time) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&DBOTPRecord{}).
		Where("phone_number = ? AND purpose = ? AND created_at >= ?", phone, string(purpose), since).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// FindLatestActive implements domain.OTPRepository
func (r *OTPRepositoryImpl) FindLatestActive(ctx context.Context, phone string, purpose domain.OTPPurpose, now time.Time) (*domain.OTPRecord, error) {
	var row DBOTPRecord
	err := r.db.WithContext(ctx).
		Where("phone_number = ? AND purpose = ? AND is_verified = ? AND expires_at > ?", phone, string(purpose), false, now).
		Order("created_at DESC").Order("id DESC").
		First(&row).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, domain.ErrRecordNotFound
		}
		return nil, err
	}
	return r.dbToDomain(&row), nil
}

// DeleteStale removes records that expired before the cutoff and verified records created before it
func (r *OTPRepositoryImpl) DeleteStale(ctx context.Context, before time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("expires_at < ? OR (is_verified = ? AND created_at < ?)", before, true, before).
		Delete(&DBOTPRecord{})
	return res.RowsAffected, res.Error
}

func (r *OTPRepositoryImpl) domainToDB(rec *domain.OTPRecord) *DBOTPRecord {
	return &DBOTPRecord{
		ID:          rec.ID,
		PhoneNumber: rec.PhoneNumber,
		OTPCode:     rec.Code,
		Purpose:     string(rec.Purpose),
		UserID:      rec.UserID,
		Attempts:    rec.Attempts,
		MaxAttempts: rec.MaxAttempts,
		IsVerified:  rec.IsVerified,
		ExpiresAt:   rec.ExpiresAt,
		VerifiedAt:  rec.VerifiedAt,
		CreatedAt:   rec.CreatedAt,
	}
}

func (r *OTPRepositoryImpl) dbToDomain(row *DBOTPRecord) *domain.OTPRecord {
	return &domain.OTPRecord{
		ID:          row.ID,
		PhoneNumber: row.PhoneNumber,
		Code:        row.OTPCode,
		Purpose:     domain.OTPPurpose(row.Purpose),
		UserID:      row.UserID,
		Attempts:    row.Attempts,
		MaxAttempts: row.MaxAttempts,
		IsVerified:  row.IsVerified,
		ExpiresAt:   row.ExpiresAt,
		VerifiedAt:  row.VerifiedAt,
		CreatedAt:   row.CreatedAt,
	}
}
