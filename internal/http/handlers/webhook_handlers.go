package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/you/dispatchsvc/domain"
)

// CallbackVerifier authenticates a provider callback before it is read
type CallbackVerifier interface {
	Verify(r *http.Request) bool
}

// WebhookHandlers receives provider callbacks
type WebhookHandlers struct {
	reporter domain.DeliveryReporter
	verifier CallbackVerifier
	log      *zap.Logger
}

// NewWebhookHandlers creates new webhook handlers
func NewWebhookHandlers(reporter domain.DeliveryReporter, verifier CallbackVerifier, log *zap.Logger) *WebhookHandlers {
	return &WebhookHandlers{reporter: reporter, verifier: verifier, log: log}
}

// DeliveryReport is the JSON callback of the HTTP SMS gateway
type DeliveryReport struct {
	Recipient string `json:"recipient" binding:"required"`
	Status    string `json:"status" binding:"required"`
}

// deliveryStatus folds provider status words into delivered or failed. ok is false for
// intermediate states, which are acknowledged but not recorded.
func deliveryStatus(raw string) (domain.DeliveryStatus, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "delivered", "delivrd", "read":
		return domain.DeliveryDelivered, true
	case "failed", "undelivered", "undeliv", "rejected", "expired":
		return domain.DeliveryFailed, true
	}
	return "", false
}

// SMSDelivery records a delivery report. Twilio posts form fields To and MessageStatus,
// the HTTP gateway posts JSON. ?notification_id= links the report to its notification.
func (h *WebhookHandlers) SMSDelivery(c *gin.Context) {
	if h.verifier == nil || !h.verifier.Verify(c.Request) {
		h.log.Warn("unauthenticated delivery callback", zap.String("client_ip", c.ClientIP()))
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Invalid callback signature"})
		return
	}

	var report DeliveryReport
	if strings.HasPrefix(c.ContentType(), "application/x-www-form-urlencoded") {
		report.Recipient = c.PostForm("To")
		report.Status = c.PostForm("MessageStatus")
		if report.Recipient == "" || report.Status == "" {
			badRequest(c, "To and MessageStatus are required")
			return
		}
	} else if err := c.ShouldBindJSON(&report); err != nil {
		badRequest(c, err.Error())
		return
	}

	var notificationID *uint
	if raw := c.Query("notification_id"); raw != "" {
		id, ok := parseID(raw)
		if !ok {
			badRequest(c, "Invalid notification id")
			return
		}
		notificationID = &id
	}

	status, final := deliveryStatus(report.Status)
	if !final {
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Report ignored"})
		return
	}

	if err := h.reporter.RecordDeliveryReport(c.Request.Context(), report.Recipient, status, notificationID); err != nil {
		h.log.Warn("rejected delivery report", zap.String("status", report.Status), zap.Error(err))
		fail(c, err, "", "Failed to record delivery report")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Report recorded"})
}
