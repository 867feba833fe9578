package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/you/dispatchsvc/domain"
)

const defaultListLimit = 20

// NotificationHandlers serves the recipient inbox and the admin dispatch endpoints
type NotificationHandlers struct {
	svc domain.NotificationService
	log *zap.Logger
}

// NewNotificationHandlers creates new notification handlers
func NewNotificationHandlers(svc domain.NotificationService, log *zap.Logger) *NotificationHandlers {
	return &NotificationHandlers{svc: svc, log: log}
}

// CreateNotificationRequest represents an admin notification request
type CreateNotificationRequest struct {
	UserID     uint   `json:"user_id" binding:"required"`
	Message    string `json:"message" binding:"required"`
	Type       string `json:"type" binding:"required"`
	PropertyID *uint  `json:"property_id,omitempty"`
	SendSMS    *bool  `json:"send_sms,omitempty"` // defaults to true
	SendEmail  bool   `json:"send_email,omitempty"`
}

// BulkNotificationRequest represents an admin bulk notification request
type BulkNotificationRequest struct {
	UserIDs    []uint `json:"user_ids" binding:"required,min=1,max=500"`
	Message    string `json:"message" binding:"required"`
	Type       string `json:"type" binding:"required"`
	PropertyID *uint  `json:"property_id,omitempty"`
	SendSMS    *bool  `json:"send_sms,omitempty"`
	SendEmail  bool   `json:"send_email,omitempty"`
}

func createOptions(sendSMS *bool, sendEmail bool) domain.CreateOptions {
	opts := domain.DefaultCreateOptions()
	if sendSMS != nil {
		opts.SendSMS = *sendSMS
	}
	opts.SendEmail = sendEmail
	return opts
}

// List delivers the caller's SMS backlog, then returns their notifications
func (h *NotificationHandlers) List(c *gin.Context) {
	rc, ok := currentUser(c)
	if !ok {
		return
	}

	limit := defaultListLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			badRequest(c, "limit must be a positive integer")
			return
		}
		limit = n
	}
	unreadOnly := c.Query("unread") == "true"

	pending := h.svc.ProcessPendingSMSForUser(c.Request.Context(), rc.UserID)

	items, err := h.svc.ListForUser(c.Request.Context(), rc.UserID, unreadOnly, limit)
	if err != nil {
		h.log.Error("failed to list notifications", zap.Uint("user_id", rc.UserID), zap.Error(err))
		fail(c, err, "", "Failed to load notifications")
		return
	}

	out := make([]gin.H, 0, len(items))
	for _, n := range items {
		out = append(out, notificationJSON(n))
	}
	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"message":       "Notifications retrieved",
		"notifications": out,
		"pending_sms":   pending,
	})
}

// UnreadCount returns the caller's unread total
func (h *NotificationHandlers) UnreadCount(c *gin.Context) {
	rc, ok := currentUser(c)
	if !ok {
		return
	}
	n, err := h.svc.UnreadCount(c.Request.Context(), rc.UserID)
	if err != nil {
		fail(c, err, "", "Failed to count notifications")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Unread count retrieved", "count": n})
}

// Get returns one of the caller's notifications
func (h *NotificationHandlers) Get(c *gin.Context) {
	rc, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := parseID(c.Param("id"))
	if !ok {
		badRequest(c, "Invalid notification id")
		return
	}
	n, err := h.svc.GetForUser(c.Request.Context(), rc.UserID, id)
	if err != nil {
		fail(c, err, "Notification not found", "Failed to load notification")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Notification retrieved", "notification": notificationJSON(n)})
}

// MarkRead marks one of the caller's notifications read
func (h *NotificationHandlers) MarkRead(c *gin.Context) {
	rc, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := parseID(c.Param("id"))
	if !ok {
		badRequest(c, "Invalid notification id")
		return
	}
	if err := h.svc.MarkAsRead(c.Request.Context(), rc.UserID, id); err != nil {
		fail(c, err, "Notification not found", "Failed to update notification")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Notification marked as read"})
}

// MarkAllRead marks every notification of the caller read
func (h *NotificationHandlers) MarkAllRead(c *gin.Context) {
	rc, ok := currentUser(c)
	if !ok {
		return
	}
	n, err := h.svc.MarkAllAsRead(c.Request.Context(), rc.UserID)
	if err != nil {
		fail(c, err, "", "Failed to update notifications")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "All notifications marked as read", "updated": n})
}

// Create persists a notification and attempts the selected channels
func (h *NotificationHandlers) Create(c *gin.Context) {
	var req CreateNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	id, err := h.svc.CreateNotification(c.Request.Context(), req.UserID, req.Message, domain.NotificationType(req.Type), req.PropertyID, createOptions(req.SendSMS, req.SendEmail))
	if err != nil {
		fail(c, err, "", "Failed to create notification")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "message": "Notification created", "notification_id": id})
}

// Bulk sends the same notification to many users, one at a time
func (h *NotificationHandlers) Bulk(c *gin.Context) {
	var req BulkNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	t := domain.NotificationType(req.Type)
	if !t.Valid() {
		badRequest(c, fmt.Sprintf("unknown notification type %q", req.Type))
		return
	}

	results := h.svc.SendBulkNotifications(c.Request.Context(), req.UserIDs, req.Message, t, req.PropertyID, createOptions(req.SendSMS, req.SendEmail))
	succeeded := 0
	for _, r := range results {
		if r.Success {
			succeeded++
		}
	}
	failed := len(results) - succeeded
	c.JSON(http.StatusOK, gin.H{
		"success":   failed == 0,
		"message":   fmt.Sprintf("Created %d of %d notifications", succeeded, len(results)),
		"results":   results,
		"succeeded": succeeded,
		"failed":    failed,
	})
}

// DeleteOld applies the retention window, ?days= defaults to 90
func (h *NotificationHandlers) DeleteOld(c *gin.Context) {
	days := 90
	if raw := c.Query("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			badRequest(c, "days must be a positive integer")
			return
		}
		days = n
	}

	n, err := h.svc.DeleteOldNotifications(c.Request.Context(), days)
	if err != nil {
		fail(c, err, "", "Failed to delete notifications")
		return
	}
	h.log.Info("deleted old notifications", zap.Int("days", days), zap.Int64("deleted", n))
	c.JSON(http.StatusOK, gin.H{"success": true, "message": fmt.Sprintf("Deleted notifications older than %d days", days), "deleted": n})
}
