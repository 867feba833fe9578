package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/you/dispatchsvc/domain"
	"github.com/you/dispatchsvc/internal/metrics"
)

const paymentStatusSuccess = "success"

// amountTolerance absorbs float rounding when comparing major-unit amounts
const amountTolerance = 0.005

// SubscriptionServiceImpl implements domain.SubscriptionService
type SubscriptionServiceImpl struct {
	subs     domain.SubscriptionRepository
	payments domain.PaymentGateway
	notifier domain.NotificationService
	plans    map[string]domain.SubscriptionPlan
	logger   *zap.Logger
	now      func() time.Time
}

// NewSubscriptionService creates a new subscription service. notifier may be nil.
func NewSubscriptionService(subs domain.SubscriptionRepository, payments domain.PaymentGateway, notifier domain.NotificationService, plans []domain.SubscriptionPlan, logger *zap.Logger) domain.SubscriptionService {
	byID := make(map[string]domain.SubscriptionPlan, len(plans))
	for _, p := range plans {
		byID[p.ID] = p
	}
	return &SubscriptionServiceImpl{
		subs:     subs,
		payments: payments,
		notifier: notifier,
		plans:    byID,
		logger:   logger.Named("subscriptions"),
		now:      time.Now,
	}
}

// InitiateSubscription records a pending subscription awaiting payment.
// An empty reference is replaced with a generated one.
func (s *SubscriptionServiceImpl) InitiateSubscription(ctx context.Context, userID uint, planID, reference string) (*domain.Subscription, error) {
	plan, ok := s.plans[planID]
	if !ok {
		return nil, domain.ErrPlanNotFound
	}
	reference = strings.TrimSpace(reference)
	if reference == "" {
		reference = "SUB-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	}

	now := s.now()
	sub := &domain.Subscription{
		UserID:           userID,
		PlanID:           plan.ID,
		PaymentReference: reference,
		AmountPaid:       plan.Price,
		StartDate:        now,
		EndDate:          now.AddDate(0, 0, plan.DurationDays),
		Status:           domain.SubscriptionPending,
	}
	if err := s.subs.CreatePending(ctx, sub); err != nil {
		s.logger.Error("failed to create subscription", zap.Uint("user_id", userID), zap.Error(err))
		return nil, fmt.Errorf("%w: create subscription: %v", domain.ErrPersistenceError, err)
	}
	return sub, nil
}

// VerifyPayment asks the payment gateway for the transaction state. No retries.
func (s *SubscriptionServiceImpl) VerifyPayment(ctx context.Context, reference string) domain.PaymentVerifyResult {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		err := fmt.Errorf("%w: payment reference is required", domain.ErrInvalidInput)
		return domain.PaymentVerifyResult{Message: err.Error(), Err: err}
	}

	data, err := s.payments.VerifyTransaction(ctx, reference)
	if err != nil {
		s.logger.Warn("payment verification failed", zap.String("reference", reference), zap.Error(err))
		return domain.PaymentVerifyResult{Message: err.Error(), Err: err}
	}
	return domain.PaymentVerifyResult{Success: true, Message: "Payment verified", Data: data}
}

// ProcessSuccessfulPayment activates the subscription in one transaction
func (s *SubscriptionServiceImpl) ProcessSuccessfulPayment(ctx context.Context, reference string, data *domain.PaymentData) domain.PaymentProcessResult {
	res := s.processPayment(ctx, reference, data)
	metrics.PaymentsProcessed.WithLabelValues(metrics.Result(res.Success)).Inc()
	return res
}

func (s *SubscriptionServiceImpl) processPayment(ctx context.Context, reference string, data *domain.PaymentData) domain.PaymentProcessResult {
	if data == nil || data.Status != paymentStatusSuccess {
		err := fmt.Errorf("%w: payment was not successful", domain.ErrInvalidInput)
		return domain.PaymentProcessResult{Message: err.Error(), Err: err}
	}
	gatewayJSON, err := json.Marshal(gatewayPayload(data))
	if err != nil {
		return domain.PaymentProcessResult{Message: err.Error(), Err: err}
	}

	var activated *domain.Subscription
	var mismatch error
	alreadyActive := false
	err = s.subs.WithinTx(ctx, func(tx domain.SubscriptionTx) error {
		sub, err := tx.FindByReference(ctx, reference)
		if err != nil {
			return err
		}
		if sub.Status == domain.SubscriptionActive {
			activated, alreadyActive = sub, true
			return nil
		}
		if mismatch = paymentMismatch(reference, sub, data); mismatch != nil {
			// the failed log row is committed, the subscription stays pending
			return tx.UpdatePaymentLog(ctx, reference, domain.PaymentLogFailed, gatewayJSON)
		}
		if err := tx.UpdateStatus(ctx, sub.ID, domain.SubscriptionActive); err != nil {
			return err
		}
		if err := tx.UpdateUserSubscription(ctx, sub.UserID, domain.SubscriptionActive, sub.EndDate); err != nil {
			return err
		}
		if err := tx.UpdatePaymentLog(ctx, reference, domain.PaymentLogSuccess, gatewayJSON); err != nil {
			return err
		}
		sub.Status = domain.SubscriptionActive
		activated = sub
		return nil
	})
	if err != nil {
		s.logger.Error("failed to process payment", zap.String("reference", reference), zap.Error(err))
		if !errors.Is(err, domain.ErrSubscriptionNotFound) && !errors.Is(err, domain.ErrUserNotFound) {
			err = fmt.Errorf("%w: process payment: %v", domain.ErrPersistenceError, err)
		}
		return domain.PaymentProcessResult{Message: err.Error(), Err: err}
	}
	if mismatch != nil {
		s.logger.Warn("payment does not match subscription",
			zap.String("reference", reference),
			zap.String("paid_reference", data.Reference),
			zap.Float64("paid_amount", data.Amount),
			zap.Error(mismatch),
		)
		return domain.PaymentProcessResult{Message: mismatch.Error(), Err: mismatch}
	}

	if alreadyActive {
		return domain.PaymentProcessResult{Success: true, Message: "Subscription already active", Subscription: activated}
	}

	s.logger.Info("subscription activated",
		zap.String("reference", reference),
		zap.Uint("user_id", activated.UserID),
		zap.Time("end_date", activated.EndDate),
	)
	s.notifyActivated(ctx, activated)
	return domain.PaymentProcessResult{Success: true, Message: "Subscription activated successfully", Subscription: activated}
}

// paymentMismatch reports a verified payment that belongs to another reference or underpays the plan
func paymentMismatch(reference string, sub *domain.Subscription, data *domain.PaymentData) error {
	if strings.TrimSpace(data.Reference) != reference {
		return fmt.Errorf("%w: payment reference %q does not match %q", domain.ErrInvalidInput, data.Reference, reference)
	}
	if data.Amount+amountTolerance < sub.AmountPaid {
		return fmt.Errorf("%w: paid %.2f, expected %.2f", domain.ErrInvalidInput, data.Amount, sub.AmountPaid)
	}
	return nil
}

func (s *SubscriptionServiceImpl) notifyActivated(ctx context.Context, sub *domain.Subscription) {
	if s.notifier == nil {
		return
	}
	name := sub.PlanID
	if plan, ok := s.plans[sub.PlanID]; ok && plan.Name != "" {
		name = plan.Name
	}
	message := fmt.Sprintf("Payment received. Your %s subscription is active until %s.", name, sub.EndDate.Format("02 Jan 2006"))
	if _, err := s.notifier.CreateNotification(ctx, sub.UserID, message, domain.NotificationPaymentReceived, nil, domain.DefaultCreateOptions()); err != nil {
		s.logger.Warn("failed to notify subscription activation", zap.Uint("user_id", sub.UserID), zap.Error(err))
	}
}

// GetCurrentSubscription returns the latest subscription, expiring it first when lapsed
func (s *SubscriptionServiceImpl) GetCurrentSubscription(ctx context.Context, userID uint) (*domain.Subscription, error) {
	sub, err := s.subs.FindLatestForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if sub.IsLapsed(now) {
		if _, err := s.subs.ExpireLapsed(ctx, now); err != nil {
			s.logger.Error("failed to expire lapsed subscription", zap.Uint("user_id", userID), zap.Error(err))
			return nil, fmt.Errorf("%w: expire subscription: %v", domain.ErrPersistenceError, err)
		}
		sub.Status = domain.SubscriptionExpired
	}
	return sub, nil
}

// UpdateExpiredSubscriptions flips every lapsed active subscription to expired
func (s *SubscriptionServiceImpl) UpdateExpiredSubscriptions(ctx context.Context) (int64, error) {
	n, err := s.subs.ExpireLapsed(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("%w: expire subscriptions: %v", domain.ErrPersistenceError, err)
	}
	if n > 0 {
		s.logger.Info("expired subscriptions", zap.Int64("count", n))
	}
	return n, nil
}

func gatewayPayload(data *domain.PaymentData) any {
	if len(data.Raw) > 0 {
		return data.Raw
	}
	return data
}
