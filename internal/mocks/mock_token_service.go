package mocks

import (
	"fmt"
	"strings"
	"time"

	"github.com/you/dispatchsvc/domain"
)

// MockTokenService implements domain.TokenService interface for testing
type MockTokenService struct {
	GenerateAccessTokenFunc func(userID uint, role string) (string, error)
	ValidateAccessTokenFunc func(token string) (*domain.TokenClaims, error)
}

// NewMockTokenService creates a new MockTokenService with default behaviors
func NewMockTokenService() *MockTokenService {
	return &MockTokenService{}
}

// GenerateAccessToken generates an access token for the user
func (m *MockTokenService) GenerateAccessToken(userID uint, role string) (string, error) {
	if m.GenerateAccessTokenFunc != nil {
		return m.GenerateAccessTokenFunc(userID, role)
	}
	// Default behavior: return a mock access token
	return fmt.Sprintf("access_token_user_%d_%s", userID, role), nil
}

// ValidateAccessToken validates an access token
func (m *MockTokenService) ValidateAccessToken(token string) (*domain.TokenClaims, error) {
	if m.ValidateAccessTokenFunc != nil {
		return m.ValidateAccessTokenFunc(token)
	}
	// Default behavior: parse tokens produced by GenerateAccessToken
	var userID uint
	var role string
	if !strings.HasPrefix(token, "access_token_user_") {
		return nil, domain.ErrTokenInvalid
	}
	parts := strings.SplitN(strings.TrimPrefix(token, "access_token_user_"), "_", 2)
	if len(parts) != 2 {
		return nil, domain.ErrTokenMalformed
	}
	if _, err := fmt.Sscanf(parts[0], "%d", &userID); err != nil {
		return nil, domain.ErrTokenMalformed
	}
	role = parts[1]
	now := time.Now()
	return &domain.TokenClaims{
		UserID:    userID,
		Role:      role,
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(time.Hour).Unix(),
	}, nil
}

// Compile-time interface compliance verification
var _ domain.TokenService = (*MockTokenService)(nil)
