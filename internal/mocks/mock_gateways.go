package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/you/dispatchsvc/domain"
)

// MockSMSGateway implements domain.SMSGateway and domain.OTPGateway for testing.
// Every SMSMessage passed to SendSMS is kept for inspection.
type MockSMSGateway struct {
	SendSMSFunc     func(ctx context.Context, msg domain.SMSMessage) error
	GenerateOTPFunc func(ctx context.Context, phone, message string, expiry time.Duration) error
	VerifyOTPFunc   func(ctx context.Context, phone, code string) error

	mu   sync.Mutex
	sent []domain.SMSMessage
}

// NewMockSMSGateway creates a new MockSMSGateway with default behaviors
func NewMockSMSGateway() *MockSMSGateway {
	return &MockSMSGateway{}
}

// Name identifies the provider
func (m *MockSMSGateway) Name() string { return "mock" }

// SendSMS delivers a message
func (m *MockSMSGateway) SendSMS(ctx context.Context, msg domain.SMSMessage) error {
	m.mu.Lock()
	m.sent = append(m.sent, msg)
	m.mu.Unlock()
	if m.SendSMSFunc != nil {
		return m.SendSMSFunc(ctx, msg)
	}
	// Default behavior: accepted
	return nil
}

// GenerateOTP asks the provider to issue a code
func (m *MockSMSGateway) GenerateOTP(ctx context.Context, phone, message string, expiry time.Duration) error {
	if m.GenerateOTPFunc != nil {
		return m.GenerateOTPFunc(ctx, phone, message, expiry)
	}
	return nil
}

// VerifyOTP asks the provider to check a code
func (m *MockSMSGateway) VerifyOTP(ctx context.Context, phone, code string) error {
	if m.VerifyOTPFunc != nil {
		return m.VerifyOTPFunc(ctx, phone, code)
	}
	return nil
}

// Sent returns every message passed to SendSMS
func (m *MockSMSGateway) Sent() []domain.SMSMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.SMSMessage, len(m.sent))
	copy(out, m.sent)
	return out
}

// MockMailer implements domain.Mailer interface for testing
type MockMailer struct {
	NameValue string
	SendFunc  func(ctx context.Context, msg domain.EmailMessage) error

	mu    sync.Mutex
	calls []domain.EmailMessage
}

// NewMockMailer creates a named MockMailer
func NewMockMailer(name string) *MockMailer {
	return &MockMailer{NameValue: name}
}

// Name identifies the transport
func (m *MockMailer) Name() string { return m.NameValue }

// Send delivers an email
func (m *MockMailer) Send(ctx context.Context, msg domain.EmailMessage) error {
	m.mu.Lock()
	m.calls = append(m.calls, msg)
	m.mu.Unlock()
	if m.SendFunc != nil {
		return m.SendFunc(ctx, msg)
	}
	return nil
}

// Calls returns every message passed to Send
func (m *MockMailer) Calls() []domain.EmailMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.EmailMessage, len(m.calls))
	copy(out, m.calls)
	return out
}

// MockPaymentGateway implements domain.PaymentGateway interface for testing
type MockPaymentGateway struct {
	VerifyTransactionFunc func(ctx context.Context, reference string) (*domain.PaymentData, error)
}

// NewMockPaymentGateway creates a new MockPaymentGateway with default behaviors
func NewMockPaymentGateway() *MockPaymentGateway {
	return &MockPaymentGateway{}
}

// VerifyTransaction checks a payment reference
func (m *MockPaymentGateway) VerifyTransaction(ctx context.Context, reference string) (*domain.PaymentData, error) {
	if m.VerifyTransactionFunc != nil {
		return m.VerifyTransactionFunc(ctx, reference)
	}
	// Default behavior: successful payment
	return &domain.PaymentData{Reference: reference, Status: "success", Amount: 50, Currency: "GHS"}, nil
}

// Compile-time interface compliance verification
var (
	_ domain.SMSGateway     = (*MockSMSGateway)(nil)
	_ domain.OTPGateway     = (*MockSMSGateway)(nil)
	_ domain.Mailer         = (*MockMailer)(nil)
	_ domain.PaymentGateway = (*MockPaymentGateway)(nil)
)
