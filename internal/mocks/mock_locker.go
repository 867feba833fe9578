package mocks

import (
	"context"
	"time"

	"github.com/you/dispatchsvc/domain"
)

// MockKeyedLocker implements domain.KeyedLocker interface for testing
type MockKeyedLocker struct {
	TryLockFunc func(ctx context.Context, key string, ttl time.Duration) (func(), bool, error)
}

// NewMockKeyedLocker creates a new MockKeyedLocker with default behaviors
func NewMockKeyedLocker() *MockKeyedLocker {
	return &MockKeyedLocker{}
}

// TryLock acquires key without blocking
func (m *MockKeyedLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
	if m.TryLockFunc != nil {
		return m.TryLockFunc(ctx, key, ttl)
	}
	// Default behavior: always acquired
	return func() {}, true, nil
}

// MockCodeHasher implements domain.CodeHasher with a reversible prefix for testing
type MockCodeHasher struct {
	HashFunc   func(code string) (string, error)
	VerifyFunc func(hash, code string) bool
}

// NewMockCodeHasher creates a new MockCodeHasher with default behaviors
func NewMockCodeHasher() *MockCodeHasher {
	return &MockCodeHasher{}
}

// Hash hashes a code
func (m *MockCodeHasher) Hash(code string) (string, error) {
	if m.HashFunc != nil {
		return m.HashFunc(code)
	}
	return "hashed_" + code, nil
}

// Verify compares a code against a hash
func (m *MockCodeHasher) Verify(hash, code string) bool {
	if m.VerifyFunc != nil {
		return m.VerifyFunc(hash, code)
	}
	return hash == "hashed_"+code
}

// Compile-time interface compliance verification
var (
	_ domain.KeyedLocker = (*MockKeyedLocker)(nil)
	_ domain.CodeHasher  = (*MockCodeHasher)(nil)
)
