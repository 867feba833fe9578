package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/you/dispatchsvc/domain"
)

// SubscriptionHandlers handles subscription payments
type SubscriptionHandlers struct {
	svc domain.SubscriptionService
	log *zap.Logger
}

// NewSubscriptionHandlers creates new subscription handlers
func NewSubscriptionHandlers(svc domain.SubscriptionService, log *zap.Logger) *SubscriptionHandlers {
	return &SubscriptionHandlers{svc: svc, log: log}
}

// InitiateSubscriptionRequest starts a subscription purchase
type InitiateSubscriptionRequest struct {
	PlanID    string `json:"plan_id" binding:"required"`
	Reference string `json:"reference,omitempty"`
}

// VerifyPaymentRequest confirms a payment reference
type VerifyPaymentRequest struct {
	Reference string `json:"reference" binding:"required"`
}

// Initiate records a pending subscription for the caller
func (h *SubscriptionHandlers) Initiate(c *gin.Context) {
	rc, ok := currentUser(c)
	if !ok {
		return
	}
	var req InitiateSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	sub, err := h.svc.InitiateSubscription(c.Request.Context(), rc.UserID, req.PlanID, req.Reference)
	if err != nil {
		fail(c, err, "", "Failed to start subscription")
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"success":      true,
		"message":      "Subscription pending payment",
		"subscription": subscriptionJSON(sub),
	})
}

// Verify checks the reference with the payment gateway and activates the subscription on success
func (h *SubscriptionHandlers) Verify(c *gin.Context) {
	if _, ok := currentUser(c); !ok {
		return
	}
	var req VerifyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	verified := h.svc.VerifyPayment(c.Request.Context(), req.Reference)
	if !verified.Success {
		fail(c, verified.Err, verified.Message, "Payment verification failed")
		return
	}
	if verified.Data == nil || verified.Data.Status != "success" {
		status := ""
		if verified.Data != nil {
			status = verified.Data.Status
		}
		c.JSON(http.StatusPaymentRequired, gin.H{
			"success":        false,
			"message":        "Payment was not successful",
			"payment_status": status,
		})
		return
	}

	res := h.svc.ProcessSuccessfulPayment(c.Request.Context(), req.Reference, verified.Data)
	if !res.Success {
		fail(c, res.Err, res.Message, "Failed to activate subscription")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"message":      res.Message,
		"subscription": subscriptionJSON(res.Subscription),
	})
}

// Current returns the caller's latest subscription
func (h *SubscriptionHandlers) Current(c *gin.Context) {
	rc, ok := currentUser(c)
	if !ok {
		return
	}
	sub, err := h.svc.GetCurrentSubscription(c.Request.Context(), rc.UserID)
	if err != nil {
		fail(c, err, "No subscription found", "Failed to load subscription")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"message":      "Subscription retrieved",
		"subscription": subscriptionJSON(sub),
	})
}

// ExpireNow runs the expiry sweep on demand
func (h *SubscriptionHandlers) ExpireNow(c *gin.Context) {
	n, err := h.svc.UpdateExpiredSubscriptions(c.Request.Context())
	if err != nil {
		fail(c, err, "", "Failed to expire subscriptions")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Expired subscriptions updated", "expired": n})
}
