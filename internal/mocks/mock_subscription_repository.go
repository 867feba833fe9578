package mocks

import (
	"context"
	"time"

	"github.com/you/dispatchsvc/domain"
)

// MockSubscriptionRepository implements domain.SubscriptionRepository interface for testing
type MockSubscriptionRepository struct {
	CreatePendingFunc     func(ctx context.Context, sub *domain.Subscription) error
	FindByReferenceFunc   func(ctx context.Context, reference string) (*domain.Subscription, error)
	FindLatestForUserFunc func(ctx context.Context, userID uint) (*domain.Subscription, error)
	WithinTxFunc          func(ctx context.Context, fn func(tx domain.SubscriptionTx) error) error
	ExpireLapsedFunc      func(ctx context.Context, now time.Time) (int64, error)

	// Tx is handed to WithinTx callbacks when WithinTxFunc is nil
	Tx *MockSubscriptionTx
}

// NewMockSubscriptionRepository creates a new MockSubscriptionRepository with default behaviors
func NewMockSubscriptionRepository() *MockSubscriptionRepository {
	return &MockSubscriptionRepository{Tx: &MockSubscriptionTx{}}
}

// CreatePending stores a pending subscription
func (m *MockSubscriptionRepository) CreatePending(ctx context.Context, sub *domain.Subscription) error {
	if m.CreatePendingFunc != nil {
		return m.CreatePendingFunc(ctx, sub)
	}
	// Default behavior: success with id 1
	sub.ID = 1
	sub.Status = domain.SubscriptionPending
	return nil
}

// FindByReference loads a subscription by payment reference
func (m *MockSubscriptionRepository) FindByReference(ctx context.Context, reference string) (*domain.Subscription, error) {
	if m.FindByReferenceFunc != nil {
		return m.FindByReferenceFunc(ctx, reference)
	}
	return nil, domain.ErrSubscriptionNotFound
}

// FindLatestForUser loads the user's newest subscription
func (m *MockSubscriptionRepository) FindLatestForUser(ctx context.Context, userID uint) (*domain.Subscription, error) {
	if m.FindLatestForUserFunc != nil {
		return m.FindLatestForUserFunc(ctx, userID)
	}
	return nil, domain.ErrSubscriptionNotFound
}

// WithinTx runs fn against Tx
func (m *MockSubscriptionRepository) WithinTx(ctx context.Context, fn func(tx domain.SubscriptionTx) error) error {
	if m.WithinTxFunc != nil {
		return m.WithinTxFunc(ctx, fn)
	}
	return fn(m.Tx)
}

// ExpireLapsed expires lapsed subscriptions
func (m *MockSubscriptionRepository) ExpireLapsed(ctx context.Context, now time.Time) (int64, error) {
	if m.ExpireLapsedFunc != nil {
		return m.ExpireLapsedFunc(ctx, now)
	}
	return 0, nil
}

// MockSubscriptionTx implements domain.SubscriptionTx interface for testing
type MockSubscriptionTx struct {
	FindByReferenceFunc        func(ctx context.Context, reference string) (*domain.Subscription, error)
	UpdateStatusFunc           func(ctx context.Context, id uint, status domain.SubscriptionStatus) error
	UpdateUserSubscriptionFunc func(ctx context.Context, userID uint, status domain.SubscriptionStatus, expiresAt time.Time) error
	UpdatePaymentLogFunc       func(ctx context.Context, reference string, status domain.PaymentLogStatus, gatewayResponse []byte) error
}

// FindByReference loads a subscription inside the transaction
func (m *MockSubscriptionTx) FindByReference(ctx context.Context, reference string) (*domain.Subscription, error) {
	if m.FindByReferenceFunc != nil {
		return m.FindByReferenceFunc(ctx, reference)
	}
	return nil, domain.ErrSubscriptionNotFound
}

// UpdateStatus sets the subscription status
func (m *MockSubscriptionTx) UpdateStatus(ctx context.Context, id uint, status domain.SubscriptionStatus) error {
	if m.UpdateStatusFunc != nil {
		return m.UpdateStatusFunc(ctx, id, status)
	}
	return nil
}

// UpdateUserSubscription propagates status and expiry to the user
func (m *MockSubscriptionTx) UpdateUserSubscription(ctx context.Context, userID uint, status domain.SubscriptionStatus, expiresAt time.Time) error {
	if m.UpdateUserSubscriptionFunc != nil {
		return m.UpdateUserSubscriptionFunc(ctx, userID, status, expiresAt)
	}
	return nil
}

// UpdatePaymentLog records the gateway outcome
func (m *MockSubscriptionTx) UpdatePaymentLog(ctx context.Context, reference string, status domain.PaymentLogStatus, gatewayResponse []byte) error {
	if m.UpdatePaymentLogFunc != nil {
		return m.UpdatePaymentLogFunc(ctx, reference, status, gatewayResponse)
	}
	return nil
}

// Compile-time interface compliance verification
var (
	_ domain.SubscriptionRepository = (*MockSubscriptionRepository)(nil)
	_ domain.SubscriptionTx         = (*MockSubscriptionTx)(nil)
)
