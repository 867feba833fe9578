package domain

import "time"

// NotificationType classifies a notification and selects its SMS preference toggle
type NotificationType string

const (
	NotificationGeneral         NotificationType = "general"
	NotificationBookingUpdate   NotificationType = "booking_update"
	NotificationPaymentReceived NotificationType = "payment_received"
	NotificationMaintenance     NotificationType = "maintenance"
	NotificationAnnouncement    NotificationType = "announcement"
	NotificationSystemAlert     NotificationType = "system_alert"
)

// Valid reports whether t is a known notification type
func (t NotificationType) Valid() bool {
	switch t {
	case NotificationGeneral, NotificationBookingUpdate, NotificationPaymentReceived,
		NotificationMaintenance, NotificationAnnouncement, NotificationSystemAlert:
		return true
	}
	return false
}

// Label is the bracketed prefix used in SMS bodies
func (t NotificationType) Label() string {
	switch t {
	case NotificationBookingUpdate:
		return "Booking Update"
	case NotificationPaymentReceived:
		return "Payment"
	case NotificationMaintenance:
		return "Maintenance"
	case NotificationAnnouncement:
		return "Announcement"
	case NotificationSystemAlert:
		return "System Alert"
	case NotificationGeneral:
		return "Notification"
	}
	return "Notification"
}

// DeliverableNotificationTypes are the types drained by the pending-SMS backlog
var DeliverableNotificationTypes = []NotificationType{
	NotificationBookingUpdate,
	NotificationPaymentReceived,
	NotificationMaintenance,
	NotificationAnnouncement,
	NotificationSystemAlert,
}

// OTPPurpose is what a one-time code is issued for
type OTPPurpose string

const (
	OTPPurposeRegistration  OTPPurpose = "registration"
	OTPPurposeLogin         OTPPurpose = "login"
	OTPPurposePasswordReset OTPPurpose = "password_reset"
)

// Valid reports whether p is a known purpose
func (p OTPPurpose) Valid() bool {
	switch p {
	case OTPPurposeRegistration, OTPPurposeLogin, OTPPurposePasswordReset:
		return true
	}
	return false
}

// DeliveryChannel is the transport a delivery log row refers to
type DeliveryChannel string

const (
	ChannelSMS   DeliveryChannel = "sms"
	ChannelEmail DeliveryChannel = "email"
)

// DeliveryStatus is the outcome recorded for one outbound attempt
type DeliveryStatus string

const (
	DeliverySent            DeliveryStatus = "sent"
	DeliveryFailed          DeliveryStatus = "failed"
	DeliveryError           DeliveryStatus = "error"
	DeliveryDelivered       DeliveryStatus = "delivered"
	DeliveryScheduled       DeliveryStatus = "scheduled"
	DeliverySentWithWebhook DeliveryStatus = "sent_with_webhook"
)

// Valid reports whether s is a known delivery status
func (s DeliveryStatus) Valid() bool {
	switch s {
	case DeliverySent, DeliveryFailed, DeliveryError, DeliveryDelivered,
		DeliveryScheduled, DeliverySentWithWebhook:
		return true
	}
	return false
}

// SubscriptionStatus is the lifecycle state of a subscription
type SubscriptionStatus string

const (
	SubscriptionPending SubscriptionStatus = "pending"
	SubscriptionActive  SubscriptionStatus = "active"
	SubscriptionExpired SubscriptionStatus = "expired"
)

// Valid reports whether s is a known subscription status
func (s SubscriptionStatus) Valid() bool {
	switch s {
	case SubscriptionPending, SubscriptionActive, SubscriptionExpired:
		return true
	}
	return false
}

// PaymentLogStatus tracks a payment attempt for a subscription
type PaymentLogStatus string

const (
	PaymentLogPending PaymentLogStatus = "pending"
	PaymentLogSuccess PaymentLogStatus = "success"
	PaymentLogFailed  PaymentLogStatus = "failed"
)

// Notification is a message addressed to one user
type Notification struct {
	ID         uint
	UserID     uint
	Message    string
	Type       NotificationType
	PropertyID *uint
	IsRead     bool
	Delivered  bool
	CreatedAt  time.Time
}

// OTPRecord is one issued one-time code. Code holds a bcrypt hash, never the plain code.
type OTPRecord struct {
	ID          uint
	PhoneNumber string
	Code        string
	Purpose     OTPPurpose
	UserID      *uint
	Attempts    int
	MaxAttempts int
	IsVerified  bool
	ExpiresAt   time.Time
	VerifiedAt  *time.Time
	CreatedAt   time.Time
}

// Exhausted reports whether no further verification attempts are allowed
func (r *OTPRecord) Exhausted() bool {
	return r.Attempts >= r.MaxAttempts
}

// Expired reports whether the record is past its expiry at now
func (r *OTPRecord) Expired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

// DeliveryLogEntry is an append-only audit row for one outbound attempt
type DeliveryLogEntry struct {
	ID             uint
	Channel        DeliveryChannel
	Recipient      string
	Message        string
	Status         DeliveryStatus
	NotificationID *uint
	ErrorMessage   string
	CreatedAt      time.Time
}

// UserPreferences is the subset of the user account the dispatcher reads
type UserPreferences struct {
	UserID                    uint
	PhoneNumber               string
	Email                     string
	SMSNotificationsEnabled   bool
	SMSBookingUpdates         bool
	SMSPaymentAlerts          bool
	SMSMaintenanceUpdates     bool
	SMSAnnouncements          bool
	EmailNotificationsEnabled bool
}

// AllowsSMS applies the per-type SMS toggles. system_alert is never gated.
func (p *UserPreferences) AllowsSMS(t NotificationType) bool {
	switch t {
	case NotificationSystemAlert:
		return true
	case NotificationGeneral:
		return p.SMSNotificationsEnabled
	case NotificationBookingUpdate:
		return p.SMSNotificationsEnabled && p.SMSBookingUpdates
	case NotificationPaymentReceived:
		return p.SMSNotificationsEnabled && p.SMSPaymentAlerts
	case NotificationMaintenance:
		return p.SMSNotificationsEnabled && p.SMSMaintenanceUpdates
	case NotificationAnnouncement:
		return p.SMSNotificationsEnabled && p.SMSAnnouncements
	}
	return false
}

// AllowsEmail applies the email toggle. system_alert is never gated.
func (p *UserPreferences) AllowsEmail(t NotificationType) bool {
	if t == NotificationSystemAlert {
		return true
	}
	return p.EmailNotificationsEnabled
}

// Subscription is a paid plan held by a user
type Subscription struct {
	ID               uint
	UserID           uint
	PlanID           string
	PaymentReference string
	AmountPaid       float64
	StartDate        time.Time
	EndDate          time.Time
	Status           SubscriptionStatus
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// IsLapsed reports whether an active subscription has passed its end date
func (s *Subscription) IsLapsed(now time.Time) bool {
	return s.Status == SubscriptionActive && now.After(s.EndDate)
}

// SubscriptionPlan describes a purchasable plan
type SubscriptionPlan struct {
	ID           string
	Name         string
	Price        float64
	DurationDays int
}

// RequestContext is the caller identity carried through a request
type RequestContext struct {
	UserID uint
	Role   string
}

// IsAdmin reports whether the caller has the admin role
func (r RequestContext) IsAdmin() bool {
	return r.Role == "admin"
}
