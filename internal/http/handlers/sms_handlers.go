package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/you/dispatchsvc/domain"
)

const defaultHistoryLimit = 50

// SMSHandlers serves admin broadcasts and delivery log lookups
type SMSHandlers struct {
	sms     domain.SMSSender
	history domain.DeliveryHistory
	log     *zap.Logger
}

// NewSMSHandlers creates new SMS handlers
func NewSMSHandlers(sms domain.SMSSender, history domain.DeliveryHistory, log *zap.Logger) *SMSHandlers {
	return &SMSHandlers{sms: sms, history: history, log: log}
}

// BroadcastRequest sends one message to raw phone numbers in a single gateway call
type BroadcastRequest struct {
	Recipients []string `json:"recipients" binding:"required,min=1,max=500"`
	Message    string   `json:"message" binding:"required"`
}

// Broadcast sends an SMS to numbers that need not belong to registered users
func (h *SMSHandlers) Broadcast(c *gin.Context) {
	var req BroadcastRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	if !h.sms.SendBulk(c.Request.Context(), req.Recipients, req.Message, domain.SendContext{}) {
		h.log.Warn("sms broadcast failed", zap.Int("recipients", len(req.Recipients)))
		c.JSON(http.StatusBadGateway, gin.H{"success": false, "message": "Failed to send SMS"})
		return
	}
	h.log.Info("sms broadcast sent", zap.Int("recipients", len(req.Recipients)))
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "SMS sent", "recipients": len(req.Recipients)})
}

// DeliveryLogs lists delivery log rows for ?recipient=, newest first
func (h *SMSHandlers) DeliveryLogs(c *gin.Context) {
	limit := defaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			badRequest(c, "limit must be a positive integer")
			return
		}
		limit = n
	}

	entries, err := h.history.DeliveryHistory(c.Request.Context(), c.Query("recipient"), limit)
	if err != nil {
		fail(c, err, "", "Failed to load delivery logs")
		return
	}

	out := make([]gin.H, 0, len(entries))
	for _, e := range entries {
		out = append(out, gin.H{
			"id":              e.ID,
			"channel":         e.Channel,
			"recipient":       e.Recipient,
			"message":         e.Message,
			"status":          e.Status,
			"notification_id": e.NotificationID,
			"error_message":   e.ErrorMessage,
			"created_at":      e.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Delivery logs retrieved", "logs": out})
}
