package mocks

import (
	"context"
	"time"

	"github.com/you/dispatchsvc/domain"
)

// MockNotificationRepository implements domain.NotificationRepository interface for testing
type MockNotificationRepository struct {
	CreateFunc          func(ctx context.Context, n *domain.Notification) error
	FindByIDFunc        func(ctx context.Context, id uint) (*domain.Notification, error)
	MarkDeliveredFunc   func(ctx context.Context, id uint) error
	FindUndeliveredFunc func(ctx context.Context, userID uint, types []domain.NotificationType, limit int) ([]*domain.Notification, error)
	ListForUserFunc     func(ctx context.Context, userID uint, unreadOnly bool, limit int) ([]*domain.Notification, error)
	MarkReadFunc        func(ctx context.Context, userID, id uint) error
	MarkAllReadFunc     func(ctx context.Context, userID uint) (int64, error)
	CountUnreadFunc     func(ctx context.Context, userID uint) (int64, error)
	DeleteOlderThanFunc func(ctx context.Context, cutoff time.Time) (int64, error)
}

// NewMockNotificationRepository creates a new MockNotificationRepository with default behaviors
func NewMockNotificationRepository() *MockNotificationRepository {
	return &MockNotificationRepository{}
}

// Create stores a notification
func (m *MockNotificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, n)
	}
	// Default behavior: success with id 1
	n.ID = 1
	return nil
}

// FindByID loads a notification
func (m *MockNotificationRepository) FindByID(ctx context.Context, id uint) (*domain.Notification, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, id)
	}
	return nil, domain.ErrNotificationNotFound
}

// MarkDelivered sets the delivered flag
func (m *MockNotificationRepository) MarkDelivered(ctx context.Context, id uint) error {
	if m.MarkDeliveredFunc != nil {
		return m.MarkDeliveredFunc(ctx, id)
	}
	return nil
}

// FindUndelivered lists the oldest undelivered notifications
func (m *MockNotificationRepository) FindUndelivered(ctx context.Context, userID uint, types []domain.NotificationType, limit int) ([]*domain.Notification, error) {
	if m.FindUndeliveredFunc != nil {
		return m.FindUndeliveredFunc(ctx, userID, types, limit)
	}
	return nil, nil
}

// ListForUser lists a user's notifications
func (m *MockNotificationRepository) ListForUser(ctx context.Context, userID uint, unreadOnly bool, limit int) ([]*domain.Notification, error) {
	if m.ListForUserFunc != nil {
		return m.ListForUserFunc(ctx, userID, unreadOnly, limit)
	}
	return nil, nil
}

// MarkRead sets the read flag on one notification
func (m *MockNotificationRepository) MarkRead(ctx context.Context, userID, id uint) error {
	if m.MarkReadFunc != nil {
		return m.MarkReadFunc(ctx, userID, id)
	}
	return nil
}

// MarkAllRead sets the read flag on every notification of a user
func (m *MockNotificationRepository) MarkAllRead(ctx context.Context, userID uint) (int64, error) {
	if m.MarkAllReadFunc != nil {
		return m.MarkAllReadFunc(ctx, userID)
	}
	return 0, nil
}

// CountUnread counts unread notifications
func (m *MockNotificationRepository) CountUnread(ctx context.Context, userID uint) (int64, error) {
	if m.CountUnreadFunc != nil {
		return m.CountUnreadFunc(ctx, userID)
	}
	return 0, nil
}

// DeleteOlderThan purges old notifications
func (m *MockNotificationRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	if m.DeleteOlderThanFunc != nil {
		return m.DeleteOlderThanFunc(ctx, cutoff)
	}
	return 0, nil
}

// Compile-time interface compliance verification
var _ domain.NotificationRepository = (*MockNotificationRepository)(nil)
