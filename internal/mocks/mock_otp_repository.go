package mocks

import (
	"context"
	"time"

	"github.com/you/dispatchsvc/domain"
)

// MockOTPRepository implements domain.OTPRepository interface for testing
type MockOTPRepository struct {
	CreateFunc           func(ctx context.Context, record *domain.OTPRecord) error
	DeleteFunc           func(ctx context.Context, id uint) error
	UpdateFunc           func(ctx context.Context, record *domain.OTPRecord) error
	CreatedSinceFunc     func(ctx context.Context, phone string, purpose domain.OTPPurpose, since time.Time) (bool, error)
	FindLatestActiveFunc func(ctx context.Context, phone string, purpose domain.OTPPurpose, now time.Time) (*domain.OTPRecord, error)
	DeleteStaleFunc      func(ctx context.Context, before time.Time) (int64, error)
}

// NewMockOTPRepository creates a new MockOTPRepository with default behaviors
func NewMockOTPRepository() *MockOTPRepository {
	return &MockOTPRepository{}
}

// Create stores a new record
func (m *MockOTPRepository) Create(ctx context.Context, record *domain.OTPRecord) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, record)
	}
	// Default behavior: success with id 1
	record.ID = 1
	return nil
}

// Delete removes a record
func (m *MockOTPRepository) Delete(ctx context.Context, id uint) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return nil
}

// Update persists verification state
func (m *MockOTPRepository) Update(ctx context.Context, record *domain.OTPRecord) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, record)
	}
	return nil
}

// CreatedSince reports recent issuance
func (m *MockOTPRepository) CreatedSince(ctx context.Context, phone string, purpose domain.OTPPurpose, since time.Time) (bool, error) {
	if m.CreatedSinceFunc != nil {
		return m.CreatedSinceFunc(ctx, phone, purpose, since)
	}
	// Default behavior: nothing recent
	return false, nil
}

// FindLatestActive loads the newest usable record
func (m *MockOTPRepository) FindLatestActive(ctx context.Context, phone string, purpose domain.OTPPurpose, now time.Time) (*domain.OTPRecord, error) {
	if m.FindLatestActiveFunc != nil {
		return m.FindLatestActiveFunc(ctx, phone, purpose, now)
	}
	// Default behavior: not found
	return nil, domain.ErrRecordNotFound
}

// DeleteStale removes old records
func (m *MockOTPRepository) DeleteStale(ctx context.Context, before time.Time) (int64, error) {
	if m.DeleteStaleFunc != nil {
		return m.DeleteStaleFunc(ctx, before)
	}
	return 0, nil
}

// Compile-time interface compliance verification
var _ domain.OTPRepository = (*MockOTPRepository)(nil)
