package mocks

import (
	"context"
	"sync"

	"github.com/you/dispatchsvc/domain"
)

// SentSMS is one call captured by MockSMSSender
type SentSMS struct {
	Recipients []string
	Message    string
	Context    domain.SendContext
}

// MockSMSSender implements domain.SMSSender, domain.DeliveryReporter and domain.DeliveryHistory for testing
type MockSMSSender struct {
	SendFunc                 func(ctx context.Context, recipient, message string, sc domain.SendContext) bool
	SendBulkFunc             func(ctx context.Context, recipients []string, message string, sc domain.SendContext) bool
	RecordDeliveryReportFunc func(ctx context.Context, recipient string, status domain.DeliveryStatus, notificationID *uint) error
	DeliveryHistoryFunc      func(ctx context.Context, recipient string, limit int) ([]*domain.DeliveryLogEntry, error)

	mu    sync.Mutex
	calls []SentSMS
}

// NewMockSMSSender creates a new MockSMSSender with default behaviors
func NewMockSMSSender() *MockSMSSender {
	return &MockSMSSender{}
}

// Send delivers one message
func (m *MockSMSSender) Send(ctx context.Context, recipient, message string, sc domain.SendContext) bool {
	m.capture(SentSMS{Recipients: []string{recipient}, Message: message, Context: sc})
	if m.SendFunc != nil {
		return m.SendFunc(ctx, recipient, message, sc)
	}
	// Default behavior: delivered
	return true
}

// SendBulk delivers one message to many recipients
func (m *MockSMSSender) SendBulk(ctx context.Context, recipients []string, message string, sc domain.SendContext) bool {
	m.capture(SentSMS{Recipients: recipients, Message: message, Context: sc})
	if m.SendBulkFunc != nil {
		return m.SendBulkFunc(ctx, recipients, message, sc)
	}
	return true
}

// RecordDeliveryReport stores a provider callback
func (m *MockSMSSender) RecordDeliveryReport(ctx context.Context, recipient string, status domain.DeliveryStatus, notificationID *uint) error {
	if m.RecordDeliveryReportFunc != nil {
		return m.RecordDeliveryReportFunc(ctx, recipient, status, notificationID)
	}
	return nil
}

// DeliveryHistory lists log rows for a recipient
func (m *MockSMSSender) DeliveryHistory(ctx context.Context, recipient string, limit int) ([]*domain.DeliveryLogEntry, error) {
	if m.DeliveryHistoryFunc != nil {
		return m.DeliveryHistoryFunc(ctx, recipient, limit)
	}
	return []*domain.DeliveryLogEntry{}, nil
}

// Calls returns every captured send
func (m *MockSMSSender) Calls() []SentSMS {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SentSMS, len(m.calls))
	copy(out, m.calls)
	return out
}

func (m *MockSMSSender) capture(c SentSMS) {
	m.mu.Lock()
	m.calls = append(m.calls, c)
	m.mu.Unlock()
}

// MockEmailSender implements domain.EmailSender interface for testing
type MockEmailSender struct {
	SendFunc func(ctx context.Context, to, subject, template string, data map[string]any) bool
}

// NewMockEmailSender creates a new MockEmailSender with default behaviors
func NewMockEmailSender() *MockEmailSender {
	return &MockEmailSender{}
}

// Send renders and delivers an email
func (m *MockEmailSender) Send(ctx context.Context, to, subject, template string, data map[string]any) bool {
	if m.SendFunc != nil {
		return m.SendFunc(ctx, to, subject, template, data)
	}
	return true
}

// Compile-time interface compliance verification
var (
	_ domain.SMSSender        = (*MockSMSSender)(nil)
	_ domain.DeliveryReporter = (*MockSMSSender)(nil)
	_ domain.DeliveryHistory  = (*MockSMSSender)(nil)
	_ domain.EmailSender      = (*MockEmailSender)(nil)
)
