package domain

import "time"

// SendContext carries optional delivery parameters for an SMS send
type SendContext struct {
	NotificationID *uint
	ScheduledAt    *time.Time
	CallbackURL    string

	// LogMessage replaces the body written to the delivery log when set
	LogMessage string
}

// CreateOptions selects the channels CreateNotification attempts
type CreateOptions struct {
	SendSMS   bool
	SendEmail bool
}

// DefaultCreateOptions sends SMS only
func DefaultCreateOptions() CreateOptions {
	return CreateOptions{SendSMS: true}
}

// OTPSendResult is the outcome of SendOTP
type OTPSendResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	OTPID   uint   `json:"otp_id,omitempty"`
	Err     error  `json:"-"`
}

// OTPVerifyResult is the outcome of VerifyOTP
type OTPVerifyResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	UserID  *uint  `json:"user_id,omitempty"`
	Err     error  `json:"-"`
}

// BulkNotificationResult is the per-recipient outcome of a bulk send
type BulkNotificationResult struct {
	UserID         uint   `json:"user_id"`
	NotificationID uint   `json:"notification_id,omitempty"`
	Success        bool   `json:"success"`
	Delivered      bool   `json:"delivered"`
	Error          string `json:"error,omitempty"`
}

// PendingSMSResult summarizes a backlog drain
type PendingSMSResult struct {
	Processed int `json:"processed"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// PaymentData is the verified transaction as reported by the payment gateway
type PaymentData struct {
	Reference string         `json:"reference"`
	Status    string         `json:"status"`
	Amount    float64        `json:"amount"`
	Currency  string         `json:"currency"`
	Channel   string         `json:"channel,omitempty"`
	PaidAt    *time.Time     `json:"paid_at,omitempty"`
	Raw       map[string]any `json:"-"`
}

// PaymentVerifyResult is the outcome of VerifyPayment
type PaymentVerifyResult struct {
	Success bool         `json:"success"`
	Message string       `json:"message,omitempty"`
	Data    *PaymentData `json:"data,omitempty"`
	Err     error        `json:"-"`
}

// PaymentProcessResult is the outcome of ProcessSuccessfulPayment
type PaymentProcessResult struct {
	Success      bool          `json:"success"`
	Message      string        `json:"message,omitempty"`
	Subscription *Subscription `json:"subscription,omitempty"`
	Err          error         `json:"-"`
}
