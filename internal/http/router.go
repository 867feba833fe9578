package httpx

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/you/dispatchsvc/internal/http/handlers"
	"github.com/you/dispatchsvc/internal/http/middleware"
)

// Handlers groups the route handlers
type Handlers struct {
	OTP           *handlers.OTPHandlers
	Notifications *handlers.NotificationHandlers
	Subscriptions *handlers.SubscriptionHandlers
	Webhooks      *handlers.WebhookHandlers
	SMS           *handlers.SMSHandlers
	Policies      *handlers.PolicyHandlers
}

// HealthCheck reports whether a dependency is reachable
type HealthCheck func(ctx context.Context) error

func BuildRouter(h Handlers, jwtmw *middleware.AuthMW, cb *middleware.CasbinMW, limiter *middleware.IPRateLimiter, log *zap.Logger, health HealthCheck) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestID(), middleware.RequestLogger(log))

	r.GET("/health", func(c *gin.Context) {
		if health != nil {
			if err := health(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "message": "unhealthy"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	otp := r.Group("/otp").Use(limiter.Middleware())
	otp.POST("/send", h.OTP.SendOTP)
	otp.POST("/verify", h.OTP.VerifyOTP)
	r.POST("/otp/phone", limiter.Middleware(), jwtmw.WithJWT(), h.OTP.SendPhoneVerification)

	r.POST("/webhooks/sms/delivery", h.Webhooks.SMSDelivery)

	v := r.Group("/").Use(jwtmw.WithJWT())
	v.GET("/notifications", h.Notifications.List)
	v.GET("/notifications/unread-count", h.Notifications.UnreadCount)
	v.GET("/notifications/:id", h.Notifications.Get)
	v.POST("/notifications/:id/read", h.Notifications.MarkRead)
	v.POST("/notifications/read-all", h.Notifications.MarkAllRead)
	v.POST("/subscriptions", h.Subscriptions.Initiate)
	v.POST("/subscriptions/verify", h.Subscriptions.Verify)
	v.GET("/subscriptions/current", h.Subscriptions.Current)

	adm := r.Group("/admin").Use(jwtmw.WithJWT(), cb.Enforce())
	adm.POST("/notifications", h.Notifications.Create)
	adm.POST("/notifications/bulk", h.Notifications.Bulk)
	adm.DELETE("/notifications/old", h.Notifications.DeleteOld)
	adm.POST("/subscriptions/expire", h.Subscriptions.ExpireNow)
	adm.POST("/sms/broadcast", h.SMS.Broadcast)
	adm.GET("/delivery-logs", h.SMS.DeliveryLogs)
	adm.GET("/policies", h.Policies.List)
	adm.POST("/policies", h.Policies.Add)
	adm.DELETE("/policies", h.Policies.Remove)

	return r
}
