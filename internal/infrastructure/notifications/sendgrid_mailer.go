package notifications

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/you/dispatchsvc/domain"
)

const sendGridBaseURL = "https://api.sendgrid.com"

// SendGridMailer sends mail through the SendGrid v3 API
type SendGridMailer struct {
	apiKey     string
	baseURL    string
	fromName   string
	fromMail   string
	httpClient *http.Client
}

// NewSendGridMailer creates a SendGrid mailer; an empty baseURL targets the public API
func NewSendGridMailer(apiKey, fromName, fromMail, baseURL string) *SendGridMailer {
	if baseURL == "" {
		baseURL = sendGridBaseURL
	}
	return &SendGridMailer{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		fromName:   fromName,
		fromMail:   fromMail,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Name implements domain.Mailer
func (s *SendGridMailer) Name() string { return "sendgrid" }

// Send implements domain.Mailer
func (s *SendGridMailer) Send(ctx context.Context, msg domain.EmailMessage) error {
	message := mail.NewV3Mail()
	message.SetFrom(mail.NewEmail(s.fromName, s.fromMail))
	message.Subject = msg.Subject

	p := mail.NewPersonalization()
	p.AddTos(mail.NewEmail("", msg.To))
	message.AddPersonalizations(p)

	// text/plain must precede text/html
	if msg.Text != "" {
		message.AddContent(mail.NewContent("text/plain", msg.Text))
	}
	if msg.HTML != "" {
		message.AddContent(mail.NewContent("text/html", msg.HTML))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/v3/mail/send", bytes.NewReader(mail.GetRequestBody(message)))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sendgrid send error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("sendgrid returned HTTP %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

var _ domain.Mailer = (*SendGridMailer)(nil)
