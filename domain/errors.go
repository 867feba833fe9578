package domain

import "errors"

// Input errors
var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidPhoneNumber = errors.New("invalid phone number")
	ErrInvalidEmail       = errors.New("invalid email address")
)

// OTP errors
var (
	ErrRateLimited         = errors.New("too many requests, please wait before requesting a new code")
	ErrRecordNotFound      = errors.New("no active verification record found")
	ErrInvalidOrExpiredOTP = errors.New("invalid or expired otp")
	ErrMaxAttemptsExceeded = errors.New("maximum verification attempts exceeded")
)

// Infrastructure errors
var (
	ErrGatewayError     = errors.New("gateway error")
	ErrPersistenceError = errors.New("persistence error")
)

// Lookup errors
var (
	ErrUserNotFound         = errors.New("user not found")
	ErrNotificationNotFound = errors.New("notification not found")
	ErrSubscriptionNotFound = errors.New("subscription not found")
	ErrPlanNotFound         = errors.New("subscription plan not found")
)

// Token errors
var (
	ErrTokenInvalid   = errors.New("invalid token")
	ErrTokenExpired   = errors.New("token has expired")
	ErrTokenMalformed = errors.New("malformed token")
)

// ErrorMessage returns the message of the outermost error, or fallback when err is nil
func ErrorMessage(err error, fallback string) string {
	if err == nil {
		return fallback
	}
	return err.Error()
}
