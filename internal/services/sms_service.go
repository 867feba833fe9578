package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/you/dispatchsvc/domain"
	"github.com/you/dispatchsvc/internal/metrics"
	"github.com/you/dispatchsvc/internal/phone"
)

var errNoValidRecipients = errors.New("no valid recipients")

// SMSService sends SMS through the configured gateway and logs every attempt
type SMSService struct {
	gateway   domain.SMSGateway
	logs      domain.DeliveryLogRepository
	phones    *phone.Normalizer
	templater *MessageTemplater
	logger    *zap.Logger
	now       func() time.Time
}

// NewSMSService creates a new SMS service
func NewSMSService(gateway domain.SMSGateway, logs domain.DeliveryLogRepository, phones *phone.Normalizer, templater *MessageTemplater, logger *zap.Logger) *SMSService {
	return &SMSService{
		gateway:   gateway,
		logs:      logs,
		phones:    phones,
		templater: templater,
		logger:    logger.Named("sms"),
		now:       time.Now,
	}
}

// Send delivers one message. Invalid numbers are logged and rejected without a gateway call.
func (s *SMSService) Send(ctx context.Context, recipient, message string, sc domain.SendContext) bool {
	body := s.templater.SMSBody(message)
	logBody := s.logBody(body, sc)

	number, ok := s.phones.NormalizeValid(recipient)
	if !ok {
		s.logger.Warn("invalid phone number format", zap.String("recipient", recipient))
		s.record(ctx, recipient, logBody, domain.DeliveryError, sc.NotificationID, domain.ErrInvalidPhoneNumber.Error())
		return false
	}

	if err := s.dispatch(ctx, []string{number}, body, sc); err != nil {
		s.logger.Error("sms send failed", zap.String("recipient", number), zap.String("provider", s.gateway.Name()), zap.Error(err))
		s.record(ctx, number, logBody, domain.DeliveryFailed, sc.NotificationID, err.Error())
		return false
	}

	s.record(ctx, number, logBody, successStatus(sc), sc.NotificationID, "")
	return true
}

// SendBulk issues one gateway call for all valid recipients and logs one row per original recipient
func (s *SMSService) SendBulk(ctx context.Context, recipients []string, message string, sc domain.SendContext) bool {
	body := s.templater.SMSBody(message)
	logBody := s.logBody(body, sc)

	valid := make([]string, 0, len(recipients))
	logged := make([]string, len(recipients))
	for i, r := range recipients {
		if number, ok := s.phones.NormalizeValid(r); ok {
			valid = append(valid, number)
			logged[i] = number
		} else {
			logged[i] = r
		}
	}

	err := errNoValidRecipients
	if len(valid) > 0 {
		err = s.dispatch(ctx, valid, body, sc)
	}

	status, errMsg := successStatus(sc), ""
	if err != nil {
		status, errMsg = domain.DeliveryFailed, err.Error()
		s.logger.Error("bulk sms send failed",
			zap.Int("recipients", len(recipients)),
			zap.Int("valid", len(valid)),
			zap.Error(err),
		)
	}
	for _, r := range logged {
		s.record(ctx, r, logBody, status, sc.NotificationID, errMsg)
	}
	return err == nil
}

// RecordDeliveryReport appends the provider's final delivery state for a recipient
func (s *SMSService) RecordDeliveryReport(ctx context.Context, recipient string, status domain.DeliveryStatus, notificationID *uint) error {
	if status != domain.DeliveryDelivered && status != domain.DeliveryFailed {
		return fmt.Errorf("%w: unsupported delivery status %q", domain.ErrInvalidInput, status)
	}
	number, ok := s.phones.NormalizeValid(recipient)
	if !ok {
		return domain.ErrInvalidPhoneNumber
	}

	entry := &domain.DeliveryLogEntry{
		Channel:        domain.ChannelSMS,
		Recipient:      number,
		Message:        "delivery report",
		Status:         status,
		NotificationID: notificationID,
		CreatedAt:      s.now(),
	}
	if err := s.logs.Append(ctx, entry); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPersistenceError, err)
	}
	metrics.DeliveryAttempts.WithLabelValues(string(domain.ChannelSMS), string(status)).Inc()
	return nil
}

// DeliveryHistory lists log rows for a recipient, newest first. Phone numbers are
// normalized so any accepted spelling finds the stored rows; anything else is matched as given.
func (s *SMSService) DeliveryHistory(ctx context.Context, recipient string, limit int) ([]*domain.DeliveryLogEntry, error) {
	recipient = strings.TrimSpace(recipient)
	if recipient == "" {
		return nil, fmt.Errorf("%w: recipient is required", domain.ErrInvalidInput)
	}
	if number, ok := s.phones.NormalizeValid(recipient); ok {
		recipient = number
	}
	entries, err := s.logs.ListByRecipient(ctx, recipient, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrPersistenceError, err)
	}
	return entries, nil
}

func (s *SMSService) dispatch(ctx context.Context, recipients []string, body string, sc domain.SendContext) error {
	start := time.Now()
	err := s.gateway.SendSMS(ctx, domain.SMSMessage{
		Recipients:  recipients,
		Message:     body,
		ScheduledAt: sc.ScheduledAt,
		CallbackURL: sc.CallbackURL,
	})
	metrics.GatewayDuration.WithLabelValues(s.gateway.Name()).Observe(time.Since(start).Seconds())
	return err
}

func (s *SMSService) logBody(body string, sc domain.SendContext) string {
	if sc.LogMessage != "" {
		return s.templater.SMSBody(sc.LogMessage)
	}
	return body
}

// record never fails the send; a lost audit row is logged instead
func (s *SMSService) record(ctx context.Context, recipient, message string, status domain.DeliveryStatus, notificationID *uint, errMsg string) {
	metrics.DeliveryAttempts.WithLabelValues(string(domain.ChannelSMS), string(status)).Inc()

	entry := &domain.DeliveryLogEntry{
		Channel:        domain.ChannelSMS,
		Recipient:      recipient,
		Message:        message,
		Status:         status,
		NotificationID: notificationID,
		ErrorMessage:   errMsg,
		CreatedAt:      s.now(),
	}
	if err := s.logs.Append(ctx, entry); err != nil {
		s.logger.Error("failed to write delivery log", zap.String("recipient", recipient), zap.Error(err))
	}
}

func successStatus(sc domain.SendContext) domain.DeliveryStatus {
	switch {
	case sc.ScheduledAt != nil:
		return domain.DeliveryScheduled
	case sc.CallbackURL != "":
		return domain.DeliverySentWithWebhook
	default:
		return domain.DeliverySent
	}
}

var _ domain.SMSSender = (*SMSService)(nil)
var _ domain.DeliveryReporter = (*SMSService)(nil)
