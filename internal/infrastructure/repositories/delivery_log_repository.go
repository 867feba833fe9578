package repositories

import (
	"context"
	"time"

	"github.com/you/dispatchsvc/domain"
	"gorm.io/gorm"
)

// DeliveryLogRepositoryImpl implements domain.DeliveryLogRepository. Rows are never updated.
type DeliveryLogRepositoryImpl struct {
	db *gorm.DB
}

// DBDeliveryLog represents the sms_logs table; email attempts share it with channel=email
type DBDeliveryLog struct {
	ID             uint   `gorm:"primaryKey"`
	Channel        string `gorm:"size:16;index"`
	Recipient      string `gorm:"column:phone_number;size:255;index"`
	Message        string `gorm:"type:text"`
	Status         string `gorm:"size:32;index"`
	NotificationID *uint  `gorm:"index"`
	ErrorMessage   string `gorm:"type:text"`
	CreatedAt      time.Time
}

// TableName returns the table name for GORM
func (DBDeliveryLog) TableName() string {
	return "sms_logs"
}

// NewDeliveryLogRepository creates a new delivery log repository
func NewDeliveryLogRepository(db *gorm.DB) domain.DeliveryLogRepository {
	return &DeliveryLogRepositoryImpl{db: db}
}

// Append implements domain.DeliveryLogRepository
func (r *DeliveryLogRepositoryImpl) Append(ctx context.Context, entry *domain.DeliveryLogEntry) error {
	row := &DBDeliveryLog{
		Channel:        string(entry.Channel),
		Recipient:      entry.Recipient,
		Message:        entry.Message,
		Status:         string(entry.Status),
		NotificationID: entry.NotificationID,
		ErrorMessage:   entry.ErrorMessage,
		CreatedAt:      entry.CreatedAt,
	}
	if row.Channel == "" {
		row.Channel = string(domain.ChannelSMS)
	}
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return err
	}
	entry.ID = row.ID
	entry.CreatedAt = row.CreatedAt
	return nil
}

// ListByRecipient returns newest first
func (r *DeliveryLogRepositoryImpl) ListByRecipient(ctx context.Context, recipient string, limit int) ([]*domain.DeliveryLogEntry, error) {
	q := r.db.WithContext(ctx).Where("phone_number = ?", recipient).Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}

	var rows []DBDeliveryLog
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]*domain.DeliveryLogEntry, 0, len(rows))
	for _, row := range rows {
		out = append(out, &domain.DeliveryLogEntry{
			ID:             row.ID,
			Channel:        domain.DeliveryChannel(row.Channel),
			Recipient:      row.Recipient,
			Message:        row.Message,
			Status:         domain.DeliveryStatus(row.Status),
			NotificationID: row.NotificationID,
			ErrorMessage:   row.ErrorMessage,
			CreatedAt:      row.CreatedAt,
		})
	}
	return out, nil
}
