package mocks

import (
	"context"
	"time"

	"github.com/you/dispatchsvc/domain"
)

// MockOTPService implements domain.OTPService interface for testing
type MockOTPService struct {
	SendOTPFunc        func(ctx context.Context, phone string, purpose domain.OTPPurpose, userID *uint) domain.OTPSendResult
	VerifyOTPFunc      func(ctx context.Context, phone, code string, purpose domain.OTPPurpose) domain.OTPVerifyResult
	CleanupExpiredFunc func(ctx context.Context, olderThan time.Duration) (int64, error)
}

// NewMockOTPService creates a new MockOTPService with default behaviors
func NewMockOTPService() *MockOTPService {
	return &MockOTPService{}
}

// SendOTP issues a code
func (m *MockOTPService) SendOTP(ctx context.Context, phone string, purpose domain.OTPPurpose, userID *uint) domain.OTPSendResult {
	if m.SendOTPFunc != nil {
		return m.SendOTPFunc(ctx, phone, purpose, userID)
	}
	// Default behavior: sent
	return domain.OTPSendResult{Success: true, Message: "Verification code sent successfully", OTPID: 1}
}

// VerifyOTP checks a submitted code
func (m *MockOTPService) VerifyOTP(ctx context.Context, phone, code string, purpose domain.OTPPurpose) domain.OTPVerifyResult {
	if m.VerifyOTPFunc != nil {
		return m.VerifyOTPFunc(ctx, phone, code, purpose)
	}
	// Default behavior: only "123456" is accepted
	if code == "123456" {
		return domain.OTPVerifyResult{Success: true, Message: "Phone number verified successfully"}
	}
	return domain.OTPVerifyResult{Message: domain.ErrInvalidOrExpiredOTP.Error(), Err: domain.ErrInvalidOrExpiredOTP}
}

// CleanupExpired removes stale records
func (m *MockOTPService) CleanupExpired(ctx context.Context, olderThan time.Duration) (int64, error) {
	if m.CleanupExpiredFunc != nil {
		return m.CleanupExpiredFunc(ctx, olderThan)
	}
	return 0, nil
}

// Compile-time interface compliance verification
var _ domain.OTPService = (*MockOTPService)(nil)
