package services

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/you/dispatchsvc/domain"
	"github.com/you/dispatchsvc/internal/metrics"
)

const defaultListLimit = 50

// NotificationConfig holds dispatcher limits
type NotificationConfig struct {
	BacklogLimit  int
	RetentionDays int
	// CallbackURL receives gateway delivery reports; empty disables them
	CallbackURL string
}

// NotificationServiceImpl implements domain.NotificationService
type NotificationServiceImpl struct {
	notifications domain.NotificationRepository
	users         domain.UserRepository
	sms           domain.SMSSender
	email         domain.EmailSender
	templater     *MessageTemplater
	logger        *zap.Logger
	config        NotificationConfig
	now           func() time.Time
}

// NewNotificationService creates a new notification dispatcher. email may be nil.
func NewNotificationService(
	notifications domain.NotificationRepository,
	users domain.UserRepository,
	sms domain.SMSSender,
	email domain.EmailSender,
	templater *MessageTemplater,
	logger *zap.Logger,
	config NotificationConfig,
) domain.NotificationService {
	if config.BacklogLimit <= 0 {
		config.BacklogLimit = 10
	}
	if config.RetentionDays <= 0 {
		config.RetentionDays = 90
	}
	return &NotificationServiceImpl{
		notifications: notifications,
		users:         users,
		sms:           sms,
		email:         email,
		templater:     templater,
		logger:        logger.Named("notifications"),
		config:        config,
		now:           time.Now,
	}
}

// CreateNotification persists the notification before any delivery attempt
func (s *NotificationServiceImpl) CreateNotification(ctx context.Context, userID uint, message string, t domain.NotificationType, propertyID *uint, opts domain.CreateOptions) (uint, error) {
	id, _, err := s.create(ctx, userID, message, t, propertyID, opts)
	return id, err
}

func (s *NotificationServiceImpl) create(ctx context.Context, userID uint, message string, t domain.NotificationType, propertyID *uint, opts domain.CreateOptions) (uint, bool, error) {
	if !t.Valid() {
		return 0, false, fmt.Errorf("%w: unknown notification type %q", domain.ErrInvalidInput, t)
	}
	if strings.TrimSpace(message) == "" {
		return 0, false, fmt.Errorf("%w: message is required", domain.ErrInvalidInput)
	}

	n := &domain.Notification{
		UserID:     userID,
		Message:    message,
		Type:       t,
		PropertyID: propertyID,
		CreatedAt:  s.now(),
	}
	if err := s.notifications.Create(ctx, n); err != nil {
		s.logger.Error("failed to create notification", zap.Uint("user_id", userID), zap.Error(err))
		return 0, false, fmt.Errorf("%w: create notification: %v", domain.ErrPersistenceError, err)
	}
	metrics.NotificationsCreated.WithLabelValues(string(t)).Inc()

	delivered := false
	if opts.SendSMS {
		delivered = s.SendNotificationSMS(ctx, userID, message, t, n.ID)
	}
	if opts.SendEmail && s.sendNotificationEmail(ctx, userID, message, t) && !delivered {
		delivered = true
		s.markDelivered(ctx, n.ID)
	}
	return n.ID, delivered, nil
}

// SendNotificationSMS applies the recipient's preferences and sends the SMS-safe body
func (s *NotificationServiceImpl) SendNotificationSMS(ctx context.Context, userID uint, message string, t domain.NotificationType, notificationID uint) bool {
	prefs, err := s.users.GetPreferences(ctx, userID)
	if err != nil {
		s.logger.Warn("cannot load recipient preferences", zap.Uint("user_id", userID), zap.Error(err))
		return false
	}
	if prefs.PhoneNumber == "" || !prefs.AllowsSMS(t) {
		return false
	}

	sc := domain.SendContext{}
	if notificationID != 0 {
		id := notificationID
		sc.NotificationID = &id
		if s.config.CallbackURL != "" {
			sc.CallbackURL = deliveryCallbackURL(s.config.CallbackURL, notificationID)
		}
	}
	if !s.sms.Send(ctx, prefs.PhoneNumber, s.templater.NotificationSMS(t, message), sc) {
		return false
	}

	if notificationID != 0 {
		s.markDelivered(ctx, notificationID)
	}
	return true
}

func (s *NotificationServiceImpl) sendNotificationEmail(ctx context.Context, userID uint, message string, t domain.NotificationType) bool {
	if s.email == nil {
		return false
	}
	prefs, err := s.users.GetPreferences(ctx, userID)
	if err != nil {
		s.logger.Warn("cannot load recipient preferences", zap.Uint("user_id", userID), zap.Error(err))
		return false
	}
	if prefs.Email == "" || !prefs.AllowsEmail(t) {
		return false
	}
	return s.email.Send(ctx, prefs.Email, t.Label(), "notification", map[string]any{
		"Title":   t.Label(),
		"Message": s.templater.Sanitize(message),
	})
}

func (s *NotificationServiceImpl) markDelivered(ctx context.Context, id uint) {
	if err := s.notifications.MarkDelivered(ctx, id); err != nil {
		s.logger.Error("failed to mark notification delivered", zap.Uint("notification_id", id), zap.Error(err))
	}
}

// SendBulkNotifications fans out sequentially; each recipient succeeds or fails on its own
func (s *NotificationServiceImpl) SendBulkNotifications(ctx context.Context, userIDs []uint, message string, t domain.NotificationType, propertyID *uint, opts domain.CreateOptions) []domain.BulkNotificationResult {
	results := make([]domain.BulkNotificationResult, 0, len(userIDs))
	for _, userID := range userIDs {
		id, delivered, err := s.create(ctx, userID, message, t, propertyID, opts)
		res := domain.BulkNotificationResult{
			UserID:         userID,
			NotificationID: id,
			Success:        err == nil,
			Delivered:      delivered,
		}
		if err != nil {
			res.Error = err.Error()
		}
		results = append(results, res)
	}
	return results
}

// ProcessPendingSMSForUser retries the oldest undelivered notifications in creation order
func (s *NotificationServiceImpl) ProcessPendingSMSForUser(ctx context.Context, userID uint) domain.PendingSMSResult {
	var res domain.PendingSMSResult

	pending, err := s.notifications.FindUndelivered(ctx, userID, domain.DeliverableNotificationTypes, s.config.BacklogLimit)
	if err != nil {
		s.logger.Error("failed to load pending notifications", zap.Uint("user_id", userID), zap.Error(err))
		return res
	}

	for _, n := range pending {
		res.Processed++
		if s.SendNotificationSMS(ctx, n.UserID, n.Message, n.Type, n.ID) {
			res.Succeeded++
		} else {
			res.Failed++
		}
	}
	if res.Processed > 0 {
		s.logger.Info("processed pending notifications",
			zap.Uint("user_id", userID),
			zap.Int("succeeded", res.Succeeded),
			zap.Int("failed", res.Failed),
		)
	}
	return res
}

// DeleteOldNotifications purges notifications older than daysOld days
func (s *NotificationServiceImpl) DeleteOldNotifications(ctx context.Context, daysOld int) (int64, error) {
	if daysOld <= 0 {
		daysOld = s.config.RetentionDays
	}
	cutoff := s.now().AddDate(0, 0, -daysOld)

	removed, err := s.notifications.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("%w: delete old notifications: %v", domain.ErrPersistenceError, err)
	}
	s.logger.Info("deleted old notifications", zap.Int("days_old", daysOld), zap.Int64("count", removed))
	return removed, nil
}

// ListForUser returns the user's notifications, newest first
func (s *NotificationServiceImpl) ListForUser(ctx context.Context, userID uint, unreadOnly bool, limit int) ([]*domain.Notification, error) {
	if limit <= 0 || limit > defaultListLimit {
		limit = defaultListLimit
	}
	return s.notifications.ListForUser(ctx, userID, unreadOnly, limit)
}

// GetForUser implements domain.NotificationService. Another user's notification reads as not found.
func (s *NotificationServiceImpl) GetForUser(ctx context.Context, userID, notificationID uint) (*domain.Notification, error) {
	n, err := s.notifications.FindByID(ctx, notificationID)
	if err != nil {
		return nil, err
	}
	if n.UserID != userID {
		return nil, domain.ErrNotificationNotFound
	}
	return n, nil
}

// MarkAsRead implements domain.NotificationService
func (s *NotificationServiceImpl) MarkAsRead(ctx context.Context, userID, notificationID uint) error {
	return s.notifications.MarkRead(ctx, userID, notificationID)
}

// MarkAllAsRead implements domain.NotificationService
func (s *NotificationServiceImpl) MarkAllAsRead(ctx context.Context, userID uint) (int64, error) {
	return s.notifications.MarkAllRead(ctx, userID)
}

// UnreadCount implements domain.NotificationService
func (s *NotificationServiceImpl) UnreadCount(ctx context.Context, userID uint) (int64, error) {
	return s.notifications.CountUnread(ctx, userID)
}

// deliveryCallbackURL adds notification_id to the callback, keeping any query already on it
func deliveryCallbackURL(base string, notificationID uint) string {
	u, err := url.Parse(base)
	if err != nil {
		return ""
	}
	q := u.Query()
	q.Set("notification_id", strconv.FormatUint(uint64(notificationID), 10))
	u.RawQuery = q.Encode()
	return u.String()
}
