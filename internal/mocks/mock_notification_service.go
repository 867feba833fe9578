package mocks

import (
	"context"

	"github.com/you/dispatchsvc/domain"
)

// MockNotificationService implements domain.NotificationService interface for testing
type MockNotificationService struct {
	CreateNotificationFunc       func(ctx context.Context, userID uint, message string, t domain.NotificationType, propertyID *uint, opts domain.CreateOptions) (uint, error)
	SendNotificationSMSFunc      func(ctx context.Context, userID uint, message string, t domain.NotificationType, notificationID uint) bool
	SendBulkNotificationsFunc    func(ctx context.Context, userIDs []uint, message string, t domain.NotificationType, propertyID *uint, opts domain.CreateOptions) []domain.BulkNotificationResult
	ProcessPendingSMSForUserFunc func(ctx context.Context, userID uint) domain.PendingSMSResult
	DeleteOldNotificationsFunc   func(ctx context.Context, daysOld int) (int64, error)
	ListForUserFunc              func(ctx context.Context, userID uint, unreadOnly bool, limit int) ([]*domain.Notification, error)
	GetForUserFunc               func(ctx context.Context, userID, notificationID uint) (*domain.Notification, error)
	MarkAsReadFunc               func(ctx context.Context, userID, notificationID uint) error
	MarkAllAsReadFunc            func(ctx context.Context, userID uint) (int64, error)
	UnreadCountFunc              func(ctx context.Context, userID uint) (int64, error)
}

// NewMockNotificationService creates a new MockNotificationService with default behaviors
func NewMockNotificationService() *MockNotificationService {
	return &MockNotificationService{}
}

// CreateNotification stores a notification and attempts delivery
func (m *MockNotificationService) CreateNotification(ctx context.Context, userID uint, message string, t domain.NotificationType, propertyID *uint, opts domain.CreateOptions) (uint, error) {
	if m.CreateNotificationFunc != nil {
		return m.CreateNotificationFunc(ctx, userID, message, t, propertyID, opts)
	}
	// Default behavior: created with id 1
	return 1, nil
}

// SendNotificationSMS sends one notification by SMS
func (m *MockNotificationService) SendNotificationSMS(ctx context.Context, userID uint, message string, t domain.NotificationType, notificationID uint) bool {
	if m.SendNotificationSMSFunc != nil {
		return m.SendNotificationSMSFunc(ctx, userID, message, t, notificationID)
	}
	return true
}

// SendBulkNotifications fans a notification out to several users
func (m *MockNotificationService) SendBulkNotifications(ctx context.Context, userIDs []uint, message string, t domain.NotificationType, propertyID *uint, opts domain.CreateOptions) []domain.BulkNotificationResult {
	if m.SendBulkNotificationsFunc != nil {
		return m.SendBulkNotificationsFunc(ctx, userIDs, message, t, propertyID, opts)
	}
	// Default behavior: every recipient succeeds
	results := make([]domain.BulkNotificationResult, 0, len(userIDs))
	for i, id := range userIDs {
		results = append(results, domain.BulkNotificationResult{UserID: id, NotificationID: uint(i + 1), Success: true})
	}
	return results
}

// ProcessPendingSMSForUser drains the user's backlog
func (m *MockNotificationService) ProcessPendingSMSForUser(ctx context.Context, userID uint) domain.PendingSMSResult {
	if m.ProcessPendingSMSForUserFunc != nil {
		return m.ProcessPendingSMSForUserFunc(ctx, userID)
	}
	return domain.PendingSMSResult{}
}

// DeleteOldNotifications purges old rows
func (m *MockNotificationService) DeleteOldNotifications(ctx context.Context, daysOld int) (int64, error) {
	if m.DeleteOldNotificationsFunc != nil {
		return m.DeleteOldNotificationsFunc(ctx, daysOld)
	}
	return 0, nil
}

// ListForUser lists a user's notifications
func (m *MockNotificationService) ListForUser(ctx context.Context, userID uint, unreadOnly bool, limit int) ([]*domain.Notification, error) {
	if m.ListForUserFunc != nil {
		return m.ListForUserFunc(ctx, userID, unreadOnly, limit)
	}
	return []*domain.Notification{}, nil
}

// GetForUser loads one of a user's notifications
func (m *MockNotificationService) GetForUser(ctx context.Context, userID, notificationID uint) (*domain.Notification, error) {
	if m.GetForUserFunc != nil {
		return m.GetForUserFunc(ctx, userID, notificationID)
	}
	// Default behavior: not found
	return nil, domain.ErrNotificationNotFound
}

// MarkAsRead marks one notification read
func (m *MockNotificationService) MarkAsRead(ctx context.Context, userID, notificationID uint) error {
	if m.MarkAsReadFunc != nil {
		return m.MarkAsReadFunc(ctx, userID, notificationID)
	}
	return nil
}

// MarkAllAsRead marks every notification read
func (m *MockNotificationService) MarkAllAsRead(ctx context.Context, userID uint) (int64, error) {
	if m.MarkAllAsReadFunc != nil {
		return m.MarkAllAsReadFunc(ctx, userID)
	}
	return 0, nil
}

// UnreadCount counts unread notifications
func (m *MockNotificationService) UnreadCount(ctx context.Context, userID uint) (int64, error) {
	if m.UnreadCountFunc != nil {
		return m.UnreadCountFunc(ctx, userID)
	}
	return 0, nil
}

// Compile-time interface compliance verification
var _ domain.NotificationService = (*MockNotificationService)(nil)
