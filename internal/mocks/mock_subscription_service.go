package mocks

import (
	"context"

	"github.com/you/dispatchsvc/domain"
)

// MockSubscriptionService implements domain.SubscriptionService interface for testing
type MockSubscriptionService struct {
	InitiateSubscriptionFunc       func(ctx context.Context, userID uint, planID, reference string) (*domain.Subscription, error)
	VerifyPaymentFunc              func(ctx context.Context, reference string) domain.PaymentVerifyResult
	ProcessSuccessfulPaymentFunc   func(ctx context.Context, reference string, data *domain.PaymentData) domain.PaymentProcessResult
	GetCurrentSubscriptionFunc     func(ctx context.Context, userID uint) (*domain.Subscription, error)
	UpdateExpiredSubscriptionsFunc func(ctx context.Context) (int64, error)
}

// NewMockSubscriptionService creates a new MockSubscriptionService with default behaviors
func NewMockSubscriptionService() *MockSubscriptionService {
	return &MockSubscriptionService{}
}

// InitiateSubscription creates a pending subscription
func (m *MockSubscriptionService) InitiateSubscription(ctx context.Context, userID uint, planID, reference string) (*domain.Subscription, error) {
	if m.InitiateSubscriptionFunc != nil {
		return m.InitiateSubscriptionFunc(ctx, userID, planID, reference)
	}
	return &domain.Subscription{ID: 1, UserID: userID, PlanID: planID, PaymentReference: reference, Status: domain.SubscriptionPending}, nil
}

// VerifyPayment checks a payment reference
func (m *MockSubscriptionService) VerifyPayment(ctx context.Context, reference string) domain.PaymentVerifyResult {
	if m.VerifyPaymentFunc != nil {
		return m.VerifyPaymentFunc(ctx, reference)
	}
	return domain.PaymentVerifyResult{Success: true, Data: &domain.PaymentData{Reference: reference, Status: "success"}}
}

// ProcessSuccessfulPayment activates a subscription
func (m *MockSubscriptionService) ProcessSuccessfulPayment(ctx context.Context, reference string, data *domain.PaymentData) domain.PaymentProcessResult {
	if m.ProcessSuccessfulPaymentFunc != nil {
		return m.ProcessSuccessfulPaymentFunc(ctx, reference, data)
	}
	return domain.PaymentProcessResult{
		Success:      true,
		Message:      "Subscription activated successfully",
		Subscription: &domain.Subscription{ID: 1, PaymentReference: reference, Status: domain.SubscriptionActive},
	}
}

// GetCurrentSubscription loads the user's subscription
func (m *MockSubscriptionService) GetCurrentSubscription(ctx context.Context, userID uint) (*domain.Subscription, error) {
	if m.GetCurrentSubscriptionFunc != nil {
		return m.GetCurrentSubscriptionFunc(ctx, userID)
	}
	return nil, domain.ErrSubscriptionNotFound
}

// UpdateExpiredSubscriptions runs the expiry sweep
func (m *MockSubscriptionService) UpdateExpiredSubscriptions(ctx context.Context) (int64, error) {
	if m.UpdateExpiredSubscriptionsFunc != nil {
		return m.UpdateExpiredSubscriptionsFunc(ctx)
	}
	return 0, nil
}

// Compile-time interface compliance verification
var _ domain.SubscriptionService = (*MockSubscriptionService)(nil)
