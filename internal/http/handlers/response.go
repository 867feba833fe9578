package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/you/dispatchsvc/domain"
	"github.com/you/dispatchsvc/internal/http/middleware"
)

// statusFor maps a domain error onto an HTTP status
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrInvalidPhoneNumber),
		errors.Is(err, domain.ErrInvalidEmail),
		errors.Is(err, domain.ErrInvalidOrExpiredOTP):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrRateLimited),
		errors.Is(err, domain.ErrMaxAttemptsExceeded):
		return http.StatusTooManyRequests
	case errors.Is(err, domain.ErrRecordNotFound),
		errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrNotificationNotFound),
		errors.Is(err, domain.ErrSubscriptionNotFound),
		errors.Is(err, domain.ErrPlanNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrGatewayError):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// fail writes the error envelope. Internal errors are reported with fallback instead of their text.
func fail(c *gin.Context, err error, message, fallback string) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		message = fallback
	} else if message == "" {
		message = domain.ErrorMessage(err, fallback)
	}
	if err != nil {
		_ = c.Error(err)
	}
	c.JSON(status, gin.H{"success": false, "message": message})
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": message})
}

// currentUser fetches the caller or aborts with 401
func currentUser(c *gin.Context) (domain.RequestContext, bool) {
	rc, ok := middleware.CurrentUser(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Authentication required"})
	}
	return rc, ok
}

func parseID(raw string) (uint, bool) {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

func notificationJSON(n *domain.Notification) gin.H {
	return gin.H{
		"id":          n.ID,
		"message":     n.Message,
		"type":        n.Type,
		"property_id": n.PropertyID,
		"is_read":     n.IsRead,
		"delivered":   n.Delivered,
		"created_at":  n.CreatedAt,
	}
}

func subscriptionJSON(s *domain.Subscription) gin.H {
	return gin.H{
		"id":                s.ID,
		"plan_id":           s.PlanID,
		"payment_reference": s.PaymentReference,
		"amount_paid":       s.AmountPaid,
		"start_date":        s.StartDate,
		"end_date":          s.EndDate,
		"status":            s.Status,
	}
}
