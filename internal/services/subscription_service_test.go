package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/you/dispatchsvc/domain"
	"github.com/you/dispatchsvc/internal/infrastructure/repositories"
	"github.com/you/dispatchsvc/internal/mocks"
)

var testPlans = []domain.SubscriptionPlan{
	{ID: "semester", Name: "Semester", Price: 50, DurationDays: 120},
	{ID: "annual", Name: "Annual", Price: 120, DurationDays: 365},
}

type subscriptionFixture struct {
	svc      *SubscriptionServiceImpl
	db       *gorm.DB
	payments *mocks.MockPaymentGateway
	notifier *mocks.MockNotificationService
	clock    *testClock
}

func createSubscriptionServiceForTest(t *testing.T) *subscriptionFixture {
	t.Helper()

	db := setupServiceDB(t)
	f := &subscriptionFixture{
		db:       db,
		payments: mocks.NewMockPaymentGateway(),
		notifier: mocks.NewMockNotificationService(),
		clock:    newTestClock(),
	}
	svc := NewSubscriptionService(repositories.NewSubscriptionRepository(db), f.payments, f.notifier, testPlans, testLogger())
	f.svc = svc.(*SubscriptionServiceImpl)
	f.svc.now = f.clock.Now
	return f
}

func (f *subscriptionFixture) subscription(t *testing.T, reference string) repositories.DBSubscription {
	t.Helper()
	var row repositories.DBSubscription
	if err := f.db.Where("payment_reference = ?", reference).First(&row).Error; err != nil {
		t.Fatalf("failed to load subscription %s: %v", reference, err)
	}
	return row
}

func (f *subscriptionFixture) paymentLog(t *testing.T, reference string) repositories.DBSubscriptionPaymentLog {
	t.Helper()
	var row repositories.DBSubscriptionPaymentLog
	if err := f.db.Where("reference = ?", reference).First(&row).Error; err != nil {
		t.Fatalf("failed to load payment log %s: %v", reference, err)
	}
	return row
}

func (f *subscriptionFixture) user(t *testing.T, id uint) repositories.DBUser {
	t.Helper()
	var row repositories.DBUser
	if err := f.db.First(&row, id).Error; err != nil {
		t.Fatalf("failed to load user %d: %v", id, err)
	}
	return row
}

func successfulPayment(reference string) *domain.PaymentData {
	return &domain.PaymentData{
		Reference: reference,
		Status:    "success",
		Amount:    50,
		Currency:  "GHS",
		Raw:       map[string]any{"reference": reference, "status": "success", "amount": 5000},
	}
}

func TestSubscriptionService_InitiateSubscription(t *testing.T) {
	f := createSubscriptionServiceForTest(t)
	ctx := context.Background()

	sub, err := f.svc.InitiateSubscription(ctx, 1, "semester", "REF-001")
	if err != nil {
		t.Fatalf("InitiateSubscription() error = %v", err)
	}
	if sub.Status != domain.SubscriptionPending || sub.AmountPaid != 50 {
		t.Errorf("subscription = %+v", sub)
	}
	if want := f.clock.Now().AddDate(0, 0, 120); !sub.EndDate.Equal(want) {
		t.Errorf("end date = %v, want %v", sub.EndDate, want)
	}
	if log := f.paymentLog(t, "REF-001"); log.Status != string(domain.PaymentLogPending) {
		t.Errorf("payment log status = %s", log.Status)
	}

	generated, err := f.svc.InitiateSubscription(ctx, 1, "annual", "")
	if err != nil {
		t.Fatalf("InitiateSubscription() error = %v", err)
	}
	if !strings.HasPrefix(generated.PaymentReference, "SUB-") {
		t.Errorf("generated reference = %q", generated.PaymentReference)
	}

	if _, err := f.svc.InitiateSubscription(ctx, 1, "lifetime", "REF-002"); !errors.Is(err, domain.ErrPlanNotFound) {
		t.Errorf("unknown plan: error = %v", err)
	}
}

func TestSubscriptionService_VerifyPayment(t *testing.T) {
	tests := []struct {
		name    string
		ref     string
		gateway func(ctx context.Context, reference string) (*domain.PaymentData, error)
		wantOK  bool
		wantErr error
	}{
		{
			name:   "verified",
			ref:    "REF-001",
			wantOK: true,
		},
		{
			name:    "blank reference",
			ref:     "  ",
			wantErr: domain.ErrInvalidInput,
		},
		{
			name: "gateway failure",
			ref:  "REF-001",
			gateway: func(ctx context.Context, reference string) (*domain.PaymentData, error) {
				return nil, errors.Join(domain.ErrGatewayError, errors.New("Transaction reference not found"))
			},
			wantErr: domain.ErrGatewayError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := createSubscriptionServiceForTest(t)
			calls := 0
			f.payments.VerifyTransactionFunc = func(ctx context.Context, reference string) (*domain.PaymentData, error) {
				calls++
				if tt.gateway != nil {
					return tt.gateway(ctx, reference)
				}
				return successfulPayment(reference), nil
			}

			res := f.svc.VerifyPayment(context.Background(), tt.ref)
			if res.Success != tt.wantOK {
				t.Errorf("Success = %v, want %v (%s)", res.Success, tt.wantOK, res.Message)
			}
			if tt.wantErr != nil && !errors.Is(res.Err, tt.wantErr) {
				t.Errorf("error = %v, want %v", res.Err, tt.wantErr)
			}
			if tt.wantOK && (res.Data == nil || res.Data.Reference != tt.ref) {
				t.Errorf("data = %+v", res.Data)
			}
			if tt.wantErr == domain.ErrGatewayError && calls != 1 {
				t.Errorf("gateway called %d times, want exactly 1", calls)
			}
		})
	}
}

func TestSubscriptionService_ProcessSuccessfulPayment_Activates(t *testing.T) {
	f := createSubscriptionServiceForTest(t)
	ctx := context.Background()
	seedUser(t, f.db, &repositories.DBUser{ID: 1, Phone: "233241234567"})

	var notified domain.NotificationType
	f.notifier.CreateNotificationFunc = func(ctx context.Context, userID uint, message string, nt domain.NotificationType, propertyID *uint, opts domain.CreateOptions) (uint, error) {
		notified = nt
		if userID != 1 || !strings.Contains(message, "Semester") {
			t.Errorf("unexpected notification for user %d: %q", userID, message)
		}
		return 1, nil
	}

	sub, err := f.svc.InitiateSubscription(ctx, 1, "semester", "REF-100")
	if err != nil {
		t.Fatalf("InitiateSubscription() error = %v", err)
	}

	res := f.svc.ProcessSuccessfulPayment(ctx, "REF-100", successfulPayment("REF-100"))
	if !res.Success {
		t.Fatalf("ProcessSuccessfulPayment() failed: %s", res.Message)
	}
	if res.Subscription.Status != domain.SubscriptionActive {
		t.Errorf("status = %s", res.Subscription.Status)
	}

	if got := f.subscription(t, "REF-100").Status; got != string(domain.SubscriptionActive) {
		t.Errorf("stored status = %s", got)
	}
	u := f.user(t, 1)
	if u.SubscriptionStatus != string(domain.SubscriptionActive) || u.SubscriptionExpiresAt == nil || !u.SubscriptionExpiresAt.Equal(sub.EndDate) {
		t.Errorf("user not updated: status=%s expires=%v", u.SubscriptionStatus, u.SubscriptionExpiresAt)
	}
	log := f.paymentLog(t, "REF-100")
	if log.Status != string(domain.PaymentLogSuccess) {
		t.Errorf("payment log status = %s", log.Status)
	}
	var stored map[string]any
	if err := json.Unmarshal(log.GatewayResponse, &stored); err != nil || stored["reference"] != "REF-100" {
		t.Errorf("gateway response = %s (%v)", string(log.GatewayResponse), err)
	}
	if notified != domain.NotificationPaymentReceived {
		t.Errorf("notification type = %q", notified)
	}

	// a second callback for the same reference is a no-op
	again := f.svc.ProcessSuccessfulPayment(ctx, "REF-100", successfulPayment("REF-100"))
	if !again.Success || again.Subscription.Status != domain.SubscriptionActive {
		t.Errorf("repeat processing = %+v", again)
	}
}

func TestSubscriptionService_ProcessSuccessfulPayment_RollsBack(t *testing.T) {
	f := createSubscriptionServiceForTest(t)
	ctx := context.Background()

	// the user row is missing, so propagating the status fails after the subscription was updated
	if _, err := f.svc.InitiateSubscription(ctx, 404, "semester", "REF-200"); err != nil {
		t.Fatalf("InitiateSubscription() error = %v", err)
	}

	res := f.svc.ProcessSuccessfulPayment(ctx, "REF-200", successfulPayment("REF-200"))
	if res.Success {
		t.Fatal("expected failure")
	}
	if !errors.Is(res.Err, domain.ErrUserNotFound) {
		t.Errorf("error = %v, want ErrUserNotFound", res.Err)
	}
	if got := f.subscription(t, "REF-200").Status; got != string(domain.SubscriptionPending) {
		t.Errorf("subscription status after rollback = %s, want pending", got)
	}
	if got := f.paymentLog(t, "REF-200").Status; got != string(domain.PaymentLogPending) {
		t.Errorf("payment log status after rollback = %s, want pending", got)
	}
}

func TestSubscriptionService_ProcessSuccessfulPayment_Rejects(t *testing.T) {
	f := createSubscriptionServiceForTest(t)
	ctx := context.Background()

	res := f.svc.ProcessSuccessfulPayment(ctx, "REF-300", &domain.PaymentData{Reference: "REF-300", Status: "abandoned"})
	if !errors.Is(res.Err, domain.ErrInvalidInput) {
		t.Errorf("unsuccessful payment: error = %v", res.Err)
	}

	res = f.svc.ProcessSuccessfulPayment(ctx, "REF-404", successfulPayment("REF-404"))
	if !errors.Is(res.Err, domain.ErrSubscriptionNotFound) {
		t.Errorf("unknown reference: error = %v", res.Err)
	}
}

func TestSubscriptionService_ProcessSuccessfulPayment_MismatchedPayment(t *testing.T) {
	tests := []struct {
		name      string
		reference string
		data      *domain.PaymentData
	}{
		{
			name:      "reference of another transaction",
			reference: "REF-500",
			data:      &domain.PaymentData{Reference: "SOME-OTHER-REF", Status: "success", Amount: 120, Currency: "GHS"},
		},
		{
			name:      "underpaid amount",
			reference: "REF-501",
			data:      &domain.PaymentData{Reference: "REF-501", Status: "success", Amount: 0.01, Currency: "GHS"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := createSubscriptionServiceForTest(t)
			ctx := context.Background()
			seedUser(t, f.db, &repositories.DBUser{ID: 1, Phone: "233241234567"})
			f.notifier.CreateNotificationFunc = func(ctx context.Context, userID uint, message string, nt domain.NotificationType, propertyID *uint, opts domain.CreateOptions) (uint, error) {
				t.Errorf("unexpected notification %q", message)
				return 0, nil
			}

			if _, err := f.svc.InitiateSubscription(ctx, 1, "annual", tt.reference); err != nil {
				t.Fatalf("InitiateSubscription() error = %v", err)
			}

			res := f.svc.ProcessSuccessfulPayment(ctx, tt.reference, tt.data)
			if res.Success {
				t.Fatal("expected the payment to be rejected")
			}
			if !errors.Is(res.Err, domain.ErrInvalidInput) {
				t.Errorf("error = %v, want ErrInvalidInput", res.Err)
			}
			if got := f.subscription(t, tt.reference).Status; got != string(domain.SubscriptionPending) {
				t.Errorf("subscription status = %s, want pending", got)
			}
			if got := f.paymentLog(t, tt.reference).Status; got != string(domain.PaymentLogFailed) {
				t.Errorf("payment log status = %s, want failed", got)
			}
			if u := f.user(t, 1); u.SubscriptionStatus == string(domain.SubscriptionActive) {
				t.Error("user subscription activated by a mismatched payment")
			}
		})
	}
}

func TestSubscriptionService_ProcessSuccessfulPayment_AmountRounding(t *testing.T) {
	f := createSubscriptionServiceForTest(t)
	ctx := context.Background()
	seedUser(t, f.db, &repositories.DBUser{ID: 1, Phone: "233241234567"})

	if _, err := f.svc.InitiateSubscription(ctx, 1, "semester", "REF-502"); err != nil {
		t.Fatalf("InitiateSubscription() error = %v", err)
	}
	data := successfulPayment("REF-502")
	data.Amount = 49.999
	if res := f.svc.ProcessSuccessfulPayment(ctx, "REF-502", data); !res.Success {
		t.Fatalf("ProcessSuccessfulPayment() failed: %s", res.Message)
	}
}

func TestSubscriptionService_ProcessSuccessfulPayment_StepFailureAborts(t *testing.T) {
	repo := mocks.NewMockSubscriptionRepository()
	repo.Tx.FindByReferenceFunc = func(ctx context.Context, reference string) (*domain.Subscription, error) {
		return &domain.Subscription{ID: 1, UserID: 2, PaymentReference: reference, Status: domain.SubscriptionPending}, nil
	}
	logUpdated := false
	repo.Tx.UpdateUserSubscriptionFunc = func(ctx context.Context, userID uint, status domain.SubscriptionStatus, expiresAt time.Time) error {
		return errors.New("connection lost")
	}
	repo.Tx.UpdatePaymentLogFunc = func(ctx context.Context, reference string, status domain.PaymentLogStatus, gatewayResponse []byte) error {
		logUpdated = true
		return nil
	}
	svc := NewSubscriptionService(repo, mocks.NewMockPaymentGateway(), nil, testPlans, testLogger())

	res := svc.ProcessSuccessfulPayment(context.Background(), "REF-1", successfulPayment("REF-1"))
	if !errors.Is(res.Err, domain.ErrPersistenceError) {
		t.Errorf("error = %v, want ErrPersistenceError", res.Err)
	}
	if logUpdated {
		t.Error("payment log updated after an earlier step failed")
	}
}

func TestSubscriptionService_ExpirySweepAndLazyCheck(t *testing.T) {
	f := createSubscriptionServiceForTest(t)
	ctx := context.Background()
	seedUser(t, f.db, &repositories.DBUser{ID: 1})
	seedUser(t, f.db, &repositories.DBUser{ID: 2})

	for _, ref := range []string{"REF-A", "REF-B"} {
		userID := uint(1)
		if ref == "REF-B" {
			userID = 2
		}
		if _, err := f.svc.InitiateSubscription(ctx, userID, "semester", ref); err != nil {
			t.Fatalf("InitiateSubscription() error = %v", err)
		}
		if res := f.svc.ProcessSuccessfulPayment(ctx, ref, successfulPayment(ref)); !res.Success {
			t.Fatalf("ProcessSuccessfulPayment() failed: %s", res.Message)
		}
	}

	if n, err := f.svc.UpdateExpiredSubscriptions(ctx); err != nil || n != 0 {
		t.Errorf("early sweep = %d, %v", n, err)
	}

	f.clock.Advance(121 * 24 * time.Hour)

	// reading a lapsed subscription expires it on the spot
	current, err := f.svc.GetCurrentSubscription(ctx, 1)
	if err != nil {
		t.Fatalf("GetCurrentSubscription() error = %v", err)
	}
	if current.Status != domain.SubscriptionExpired {
		t.Errorf("status = %s, want expired", current.Status)
	}
	if got := f.user(t, 1).SubscriptionStatus; got != string(domain.SubscriptionExpired) {
		t.Errorf("user status = %s", got)
	}

	// the lazy check already swept both rows, so the batch is idempotent
	if n, err := f.svc.UpdateExpiredSubscriptions(ctx); err != nil || n != 0 {
		t.Errorf("repeat sweep = %d, %v", n, err)
	}
	if got := f.subscription(t, "REF-B").Status; got != string(domain.SubscriptionExpired) {
		t.Errorf("REF-B status = %s", got)
	}

	if _, err := f.svc.GetCurrentSubscription(ctx, 99); !errors.Is(err, domain.ErrSubscriptionNotFound) {
		t.Errorf("no subscription: error = %v", err)
	}
}
