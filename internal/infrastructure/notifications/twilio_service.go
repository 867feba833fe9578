package notifications

import (
	"context"
	"errors"
	"fmt"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
	"github.com/you/dispatchsvc/domain"
	"go.uber.org/zap"
)

type messageCreator interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

// e164Formatter converts normalized numbers to the +<digits> form Twilio requires
type e164Formatter interface {
	E164(number string) (string, error)
}

// TwilioSMSGateway implements domain.SMSGateway through Twilio's Messages API.
// Twilio has no verify endpoint, so it pairs with local OTP checking.
type TwilioSMSGateway struct {
	api        messageCreator
	fromNumber string
	phones     e164Formatter
	logger     *zap.Logger
}

// NewTwilioSMSGateway creates a new Twilio SMS gateway
func NewTwilioSMSGateway(accountSID, authToken, fromNumber string, phones e164Formatter, logger *zap.Logger) *TwilioSMSGateway {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})

	return &TwilioSMSGateway{
		api:        client.Api,
		fromNumber: fromNumber,
		phones:     phones,
		logger:     logger,
	}
}

// Name implements domain.SMSGateway
func (t *TwilioSMSGateway) Name() string { return "twilio" }

// SendSMS implements domain.SMSGateway. Twilio sends one message per recipient.
// Scheduling needs a messaging service, so scheduled messages go out immediately.
func (t *TwilioSMSGateway) SendSMS(ctx context.Context, msg domain.SMSMessage) error {
	// Without a sender number nothing can go out; log the message for local development.
	if t.fromNumber == "" {
		t.logger.Info("twilio not configured, sms not sent",
			zap.Strings("to", msg.Recipients),
			zap.String("message", msg.Message))
		return nil
	}

	var errs []error
	for _, recipient := range msg.Recipients {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrGatewayError, err)
		}

		to, err := t.phones.E164(recipient)
		if err != nil {
			errs = append(errs, err)
			continue
		}

		params := &twilioApi.CreateMessageParams{}
		params.SetTo(to)
		params.SetFrom(t.fromNumber)
		params.SetBody(msg.Message)
		if msg.CallbackURL != "" {
			params.SetStatusCallback(msg.CallbackURL)
		}

		if _, err := t.api.CreateMessage(params); err != nil {
			errs = append(errs, fmt.Errorf("send to %s: %w", recipient, err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %v", domain.ErrGatewayError, errors.Join(errs...))
	}
	return nil
}

var _ domain.SMSGateway = (*TwilioSMSGateway)(nil)
