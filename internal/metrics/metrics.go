package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DeliveryAttempts counts every logged delivery attempt by channel and final status
	DeliveryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_delivery_attempts_total",
			Help: "Total number of SMS and email delivery attempts",
		},
		[]string{"channel", "status"},
	)

	// GatewayDuration tracks outbound provider call latency
	GatewayDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dispatch_gateway_duration_seconds",
			Help:    "Outbound gateway call duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider"},
	)

	// OTPIssued counts SendOTP outcomes
	OTPIssued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_otp_issued_total",
			Help: "Total number of OTP issuance requests by purpose and result",
		},
		[]string{"purpose", "result"},
	)

	// OTPVerified counts VerifyOTP outcomes
	OTPVerified = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_otp_verified_total",
			Help: "Total number of OTP verification requests by purpose and result",
		},
		[]string{"purpose", "result"},
	)

	// NotificationsCreated counts persisted notifications
	NotificationsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_notifications_created_total",
			Help: "Total number of notifications created",
		},
		[]string{"type"},
	)

	// PaymentsProcessed counts subscription payment outcomes
	PaymentsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_payments_processed_total",
			Help: "Total number of subscription payments verified and processed",
		},
		[]string{"result"},
	)

	// RateLimitExceeded counts requests rejected by the per-IP limiter
	RateLimitExceeded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_rate_limit_exceeded_total",
			Help: "Total number of requests rejected by the rate limiter",
		},
		[]string{"route"},
	)

	// JobRuns counts scheduled sweep executions
	JobRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_job_runs_total",
			Help: "Total number of scheduled job runs",
		},
		[]string{"job", "result"},
	)
)

// Result maps a success flag to a label value
func Result(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}
