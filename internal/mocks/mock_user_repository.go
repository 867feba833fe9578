package mocks

import (
	"context"

	"github.com/you/dispatchsvc/domain"
)

// MockUserRepository implements domain.UserRepository interface for testing
type MockUserRepository struct {
	GetPreferencesFunc    func(ctx context.Context, userID uint) (*domain.UserPreferences, error)
	MarkPhoneVerifiedFunc func(ctx context.Context, userID uint, phone string) error
}

// NewMockUserRepository creates a new MockUserRepository with default behaviors
func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{}
}

// GetPreferences loads the recipient's contact details and toggles
func (m *MockUserRepository) GetPreferences(ctx context.Context, userID uint) (*domain.UserPreferences, error) {
	if m.GetPreferencesFunc != nil {
		return m.GetPreferencesFunc(ctx, userID)
	}
	// Default behavior: not found
	return nil, domain.ErrUserNotFound
}

// MarkPhoneVerified flags the user's phone as verified
func (m *MockUserRepository) MarkPhoneVerified(ctx context.Context, userID uint, phone string) error {
	if m.MarkPhoneVerifiedFunc != nil {
		return m.MarkPhoneVerifiedFunc(ctx, userID, phone)
	}
	// Default behavior: success
	return nil
}

// Compile-time interface compliance verification
var _ domain.UserRepository = (*MockUserRepository)(nil)
