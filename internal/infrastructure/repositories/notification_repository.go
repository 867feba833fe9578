package repositories

import (
	"context"
	"time"

	"github.com/you/dispatchsvc/domain"
	"gorm.io/gorm"
)

// NotificationRepositoryImpl implements domain.NotificationRepository using GORM
type NotificationRepositoryImpl struct {
	db *gorm.DB
}

// DBNotification represents the notifications table
type DBNotification struct {
	ID         uint      `gorm:"primaryKey"`
	UserID     uint      `gorm:"index;not null"`
	Message    string    `gorm:"type:text;not null"`
	Type       string    `gorm:"size:32;index"`
	PropertyID *uint     `gorm:"index"`
	IsRead     bool      `gorm:"index"`
	Delivered  bool      `gorm:"index"`
	CreatedAt  time.Time `gorm:"index"`
}

// TableName returns the table name for GORM
func (DBNotification) TableName() string {
	return "notifications"
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(db *gorm.DB) domain.NotificationRepository {
	return &NotificationRepositoryImpl{db: db}
}

// Create implements domain.NotificationRepository
func (r *NotificationRepositoryImpl) Create(ctx context.Context, n *domain.Notification) error {
	row := r.domainToDB(n)
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return err
	}
	n.ID = row.ID
	n.CreatedAt = row.CreatedAt
	return nil
}

// FindByID implements domain.NotificationRepository
func (r *NotificationRepositoryImpl) FindByID(ctx context.Context, id uint) (*domain.Notification, error) {
	var row DBNotification
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, domain.ErrNotificationNotFound
		}
		return nil, err
	}
	return r.dbToDomain(&row), nil
}

// MarkDelivered implements domain.NotificationRepository
func (r *NotificationRepositoryImpl) MarkDelivered(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Model(&DBNotification{}).Where("id = ?", id).Update("delivered", true).Error
}

// FindUndelivered returns the oldest undelivered notifications of the given types
func (r *NotificationRepositoryImpl) FindUndelivered(ctx context.Context, userID uint, types []domain.NotificationType, limit int) ([]*domain.Notification, error) {
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}

	var rows []DBNotification
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND delivered = ? AND type IN ?", userID, false, names).
		Order("created_at ASC").Order("id ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return r.toDomainList(rows), nil
}

// ListForUser returns newest first
func (r *NotificationRepositoryImpl) ListForUser(ctx context.Context, userID uint, unreadOnly bool, limit int) ([]*domain.Notification, error) {
	q := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if unreadOnly {
		q = q.Where("is_read = ?", false)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}

	var rows []DBNotification
	if err := q.Order("created_at DESC").Order("id DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return r.toDomainList(rows), nil
}

// MarkRead implements domain.NotificationRepository
func (r *NotificationRepositoryImpl) MarkRead(ctx context.Context, userID, id uint) error {
	res := r.db.WithContext(ctx).Model(&DBNotification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("is_read", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotificationNotFound
	}
	return nil
}

// MarkAllRead implements domain.NotificationRepository
func (r *NotificationRepositoryImpl) MarkAllRead(ctx context.Context, userID uint) (int64, error) {
	res := r.db.WithContext(ctx).Model(&DBNotification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Update("is_read", true)
	return res.RowsAffected, res.Error
}

// CountUnread implements domain.NotificationRepository
func (r *NotificationRepositoryImpl) CountUnread(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&DBNotification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	return count, err
}

// DeleteOlderThan implements domain.NotificationRepository
func (r *NotificationRepositoryImpl) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&DBNotification{})
	return res.RowsAffected, res.Error
}

func (r *NotificationRepositoryImpl) toDomainList(rows []DBNotification) []*domain.Notification {
	out := make([]*domain.Notification, 0, len(rows))
	for i := range rows {
		out = append(out, r.dbToDomain(&rows[i]))
	}
	return out
}

func (r *NotificationRepositoryImpl) domainToDB(n *domain.Notification) *DBNotification {
	return &DBNotification{
		ID:         n.ID,
		UserID:     n.UserID,
		Message:    n.Message,
		Type:       string(n.Type),
		PropertyID: n.PropertyID,
		IsRead:     n.IsRead,
		Delivered:  n.Delivered,
		CreatedAt:  n.CreatedAt,
	}
}

func (r *NotificationRepositoryImpl) dbToDomain(row *DBNotification) *domain.Notification {
	return &domain.Notification{
		ID:         row.ID,
		UserID:     row.UserID,
		Message:    row.Message,
		Type:       domain.NotificationType(row.Type),
		PropertyID: row.PropertyID,
		IsRead:     row.IsRead,
		Delivered:  row.Delivered,
		CreatedAt:  row.CreatedAt,
	}
}
