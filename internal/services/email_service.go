package services

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/you/dispatchsvc/domain"
	"github.com/you/dispatchsvc/internal/metrics"
)

// EmailService renders templated mail and delivers it with one fallback retry
type EmailService struct {
	primary   domain.Mailer
	fallback  domain.Mailer
	logs      domain.DeliveryLogRepository
	templater *MessageTemplater
	logger    *zap.Logger
	now       func() time.Time
}

// NewEmailService creates a new email service. fallback may be nil.
func NewEmailService(primary, fallback domain.Mailer, logs domain.DeliveryLogRepository, templater *MessageTemplater, logger *zap.Logger) *EmailService {
	return &EmailService{
		primary:   primary,
		fallback:  fallback,
		logs:      logs,
		templater: templater,
		logger:    logger.Named("email"),
		now:       time.Now,
	}
}

// Send renders template with data and delivers it to one address.
// Both transport attempts are logged as a single row with the final outcome.
func (s *EmailService) Send(ctx context.Context, to, subject, template string, data map[string]any) bool {
	to = strings.TrimSpace(to)
	addr, err := mail.ParseAddress(to)
	if err != nil {
		s.record(ctx, to, subject, domain.DeliveryError, domain.ErrInvalidEmail.Error())
		return false
	}
	// transports and the delivery log only see the bare address
	to = addr.Address

	htmlBody, textBody, err := s.templater.RenderEmail(template, data)
	if err != nil {
		s.logger.Error("failed to render email", zap.String("template", template), zap.Error(err))
		s.record(ctx, to, subject, domain.DeliveryError, err.Error())
		return false
	}
	msg := domain.EmailMessage{To: to, Subject: subject, HTML: htmlBody, Text: textBody}

	err = s.deliver(ctx, s.primary, msg)
	if err != nil && s.fallback != nil {
		s.logger.Warn("primary mailer failed, retrying on fallback",
			zap.String("primary", s.primary.Name()),
			zap.String("fallback", s.fallback.Name()),
			zap.Error(err),
		)
		err = s.deliver(ctx, s.fallback, msg)
	}

	if err != nil {
		s.logger.Error("email send failed", zap.String("to", to), zap.Error(err))
		s.record(ctx, to, subject, domain.DeliveryFailed, err.Error())
		return false
	}
	s.record(ctx, to, subject, domain.DeliverySent, "")
	return true
}

func (s *EmailService) deliver(ctx context.Context, m domain.Mailer, msg domain.EmailMessage) error {
	start := time.Now()
	err := m.Send(ctx, msg)
	metrics.GatewayDuration.WithLabelValues(m.Name()).Observe(time.Since(start).Seconds())
	return err
}

func (s *EmailService) record(ctx context.Context, to, subject string, status domain.DeliveryStatus, errMsg string) {
	metrics.DeliveryAttempts.WithLabelValues(string(domain.ChannelEmail), string(status)).Inc()

	entry := &domain.DeliveryLogEntry{
		Channel:      domain.ChannelEmail,
		Recipient:    to,
		Message:      subject,
		Status:       status,
		ErrorMessage: errMsg,
		CreatedAt:    s.now(),
	}
	if err := s.logs.Append(ctx, entry); err != nil {
		s.logger.Error("failed to write delivery log", zap.String("to", to), zap.Error(err))
	}
}

var _ domain.EmailSender = (*EmailService)(nil)
