package domain

import (
	"context"
	"time"
)

// OTPRepository defines otp_verifications data access
type OTPRepository interface {
	Create(ctx context.Context, record *OTPRecord) error
	Delete(ctx context.Context, id uint) error
	Update(ctx context.Context, record *OTPRecord) error
	// CreatedSince reports whether any record for (phone, purpose) was created at or after since
	CreatedSince(ctx context.Context, phone string, purpose OTPPurpose, since time.Time) (bool, error)
	// FindLatestActive returns the newest unverified, unexpired record or ErrRecordNotFound
	FindLatestActive(ctx context.Context, phone string, purpose OTPPurpose, now time.Time) (*OTPRecord, error)
	DeleteStale(ctx context.Context, before time.Time) (int64, error)
}

// NotificationRepository defines notifications data access
type NotificationRepository interface {
	Create(ctx context.Context, n *Notification) error
	FindByID(ctx context.Context, id uint) (*Notification, error)
	MarkDelivered(ctx context.Context, id uint) error
	FindUndelivered(ctx context.Context, userID uint, types []NotificationType, limit int) ([]*Notification, error)
	ListForUser(ctx context.Context, userID uint, unreadOnly bool, limit int) ([]*Notification, error)
	MarkRead(ctx context.Context, userID, id uint) error
	MarkAllRead(ctx context.Context, userID uint) (int64, error)
	CountUnread(ctx context.Context, userID uint) (int64, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// DeliveryLogRepository defines the append-only sms_logs store
type DeliveryLogRepository interface {
	Append(ctx context.Context, entry *DeliveryLogEntry) error
	ListByRecipient(ctx context.Context, recipient string, limit int) ([]*DeliveryLogEntry, error)
}

// UserRepository is the slice of the user-account aggregate used by this service
type UserRepository interface {
	GetPreferences(ctx context.Context, userID uint) (*UserPreferences, error)
	// MarkPhoneVerified returns ErrUserNotFound unless the user exists with exactly this phone number
	MarkPhoneVerified(ctx context.Context, userID uint, phone string) error
}

// SubscriptionTx exposes the writes allowed inside a payment transaction
type SubscriptionTx interface {
	FindByReference(ctx context.Context, reference string) (*Subscription, error)
	UpdateStatus(ctx context.Context, id uint, status SubscriptionStatus) error
	UpdateUserSubscription(ctx context.Context, userID uint, status SubscriptionStatus, expiresAt time.Time) error
	UpdatePaymentLog(ctx context.Context, reference string, status PaymentLogStatus, gatewayResponse []byte) error
}

// SubscriptionRepository defines user_subscriptions and subscription_payment_logs data access
type SubscriptionRepository interface {
	CreatePending(ctx context.Context, sub *Subscription) error
	FindByReference(ctx context.Context, reference string) (*Subscription, error)
	FindLatestForUser(ctx context.Context, userID uint) (*Subscription, error)
	// WithinTx runs fn in one database transaction; a returned error rolls everything back
	WithinTx(ctx context.Context, fn func(tx SubscriptionTx) error) error
	ExpireLapsed(ctx context.Context, now time.Time) (int64, error)
}

// SMSMessage is one gateway send request
type SMSMessage struct {
	Recipients  []string
	Message     string
	ScheduledAt *time.Time
	CallbackURL string
}

// SMSGateway delivers SMS through a provider
type SMSGateway interface {
	SendSMS(ctx context.Context, msg SMSMessage) error
	Name() string
}

// OTPGateway is implemented by providers that generate and verify codes themselves.
// The message carries the provider's code placeholder.
type OTPGateway interface {
	GenerateOTP(ctx context.Context, phone, message string, expiry time.Duration) error
	VerifyOTP(ctx context.Context, phone, code string) error
}

// EmailMessage is a rendered multipart email
type EmailMessage struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

// Mailer delivers an email through one transport
type Mailer interface {
	Send(ctx context.Context, msg EmailMessage) error
	Name() string
}

// PaymentGateway verifies payment references
type PaymentGateway interface {
	VerifyTransaction(ctx context.Context, reference string) (*PaymentData, error)
}

// KeyedLocker serializes work per key
type KeyedLocker interface {
	// TryLock returns ok=false without blocking when the key is held
	TryLock(ctx context.Context, key string, ttl time.Duration) (unlock func(), ok bool, err error)
}

// CodeHasher hashes one-time codes at rest
type CodeHasher interface {
	Hash(code string) (string, error)
	Verify(hash, code string) bool
}

// SMSSender is the SMS service contract used by OTP and notification flows
type SMSSender interface {
	Send(ctx context.Context, recipient, message string, sc SendContext) bool
	SendBulk(ctx context.Context, recipients []string, message string, sc SendContext) bool
}

// DeliveryReporter records provider delivery callbacks
type DeliveryReporter interface {
	RecordDeliveryReport(ctx context.Context, recipient string, status DeliveryStatus, notificationID *uint) error
}

// DeliveryHistory reads back the delivery log of one phone number or email address
type DeliveryHistory interface {
	DeliveryHistory(ctx context.Context, recipient string, limit int) ([]*DeliveryLogEntry, error)
}

// EmailSender is the email service contract
type EmailSender interface {
	Send(ctx context.Context, to, subject, template string, data map[string]any) bool
}

// OTPService defines OTP issuance and verification
type OTPService interface {
	SendOTP(ctx context.Context, phone string, purpose OTPPurpose, userID *uint) OTPSendResult
	VerifyOTP(ctx context.Context, phone, code string, purpose OTPPurpose) OTPVerifyResult
	CleanupExpired(ctx context.Context, olderThan time.Duration) (int64, error)
}

// NotificationService defines notification creation and delivery
type NotificationService interface {
	CreateNotification(ctx context.Context, userID uint, message string, t NotificationType, propertyID *uint, opts CreateOptions) (uint, error)
	SendNotificationSMS(ctx context.Context, userID uint, message string, t NotificationType, notificationID uint) bool
	SendBulkNotifications(ctx context.Context, userIDs []uint, message string, t NotificationType, propertyID *uint, opts CreateOptions) []BulkNotificationResult
	ProcessPendingSMSForUser(ctx context.Context, userID uint) PendingSMSResult
	DeleteOldNotifications(ctx context.Context, daysOld int) (int64, error)
	ListForUser(ctx context.Context, userID uint, unreadOnly bool, limit int) ([]*Notification, error)
	GetForUser(ctx context.Context, userID, notificationID uint) (*Notification, error)
	MarkAsRead(ctx context.Context, userID, notificationID uint) error
	MarkAllAsRead(ctx context.Context, userID uint) (int64, error)
	UnreadCount(ctx context.Context, userID uint) (int64, error)
}

// SubscriptionService defines subscription payment verification and lifecycle
type SubscriptionService interface {
	InitiateSubscription(ctx context.Context, userID uint, planID, reference string) (*Subscription, error)
	VerifyPayment(ctx context.Context, reference string) PaymentVerifyResult
	ProcessSuccessfulPayment(ctx context.Context, reference string, data *PaymentData) PaymentProcessResult
	GetCurrentSubscription(ctx context.Context, userID uint) (*Subscription, error)
	UpdateExpiredSubscriptions(ctx context.Context) (int64, error)
}

// PolicyEnforcer decides (subject, object, action) requests
type PolicyEnforcer interface {
	Enforce(rvals ...interface{}) (bool, error)
}

// PolicyManager edits the stored (subject, object, action) rules
type PolicyManager interface {
	PolicyEnforcer
	ListPolicies() ([][]string, error)
	AddPolicy(subject, object, action string) (bool, error)
	RemovePolicy(subject, object, action string) (bool, error)
}

// TokenService validates bearer tokens
type TokenService interface {
	GenerateAccessToken(userID uint, role string) (string, error)
	ValidateAccessToken(token string) (*TokenClaims, error)
}

// TokenClaims represents JWT token claims
type TokenClaims struct {
	UserID    uint   `json:"user_id"`
	Role      string `json:"role"`
	IssuedAt  int64  `json:"iat"`
	ExpiresAt int64  `json:"exp"`
}
