package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/you/dispatchsvc/domain"
	"go.uber.org/zap"
)

const (
	otpGenerateSuccess = "1000"
	otpVerifySuccess   = "1100"
	scheduleLayout     = "2006-01-02 03:04 PM"
)

// HTTPSMSGateway talks to the SMS provider's JSON API using a static api-key header
type HTTPSMSGateway struct {
	baseURL    string
	apiKey     string
	senderID   string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewHTTPSMSGateway creates a new gateway client
func NewHTTPSMSGateway(baseURL, apiKey, senderID string, timeout time.Duration, logger *zap.Logger) *HTTPSMSGateway {
	return &HTTPSMSGateway{
		baseURL:  strings.TrimRight(baseURL, "/"),
		apiKey:   apiKey,
		senderID: senderID,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

type smsSendRequest struct {
	Sender        string   `json:"sender"`
	Message       string   `json:"message"`
	Recipients    []string `json:"recipients"`
	ScheduledDate string   `json:"scheduled_date,omitempty"`
	CallbackURL   string   `json:"callback_url,omitempty"`
}

type smsSendResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type otpGenerateRequest struct {
	Expiry   int    `json:"expiry"`
	Length   int    `json:"length"`
	Medium   string `json:"medium"`
	Message  string `json:"message"`
	Number   string `json:"number"`
	SenderID string `json:"sender_id"`
	Type     string `json:"type"`
}

type otpVerifyRequest struct {
	APIKey string `json:"api_key"`
	Code   string `json:"code"`
	Number string `json:"number"`
}

// otpResponse.Code arrives either as a string or a number
type otpResponse struct {
	Code    json.RawMessage `json:"code"`
	Message string          `json:"message"`
}

func (r otpResponse) code() string {
	return strings.Trim(string(r.Code), `"`)
}

// Name implements domain.SMSGateway
func (g *HTTPSMSGateway) Name() string { return "gateway" }

// SendSMS implements domain.SMSGateway
func (g *HTTPSMSGateway) SendSMS(ctx context.Context, msg domain.SMSMessage) error {
	body := smsSendRequest{
		Sender:      g.senderID,
		Message:     msg.Message,
		Recipients:  msg.Recipients,
		CallbackURL: msg.CallbackURL,
	}
	if msg.ScheduledAt != nil {
		body.ScheduledDate = msg.ScheduledAt.Format(scheduleLayout)
	}

	var resp smsSendResponse
	if err := g.post(ctx, "/sms/send", body, &resp); err != nil {
		return err
	}
	if resp.Status != "success" {
		return fmt.Errorf("%w: gateway rejected message: %s", domain.ErrGatewayError, resp.Message)
	}

	g.logger.Debug("sms accepted by gateway", zap.Int("recipients", len(msg.Recipients)))
	return nil
}

// GenerateOTP implements domain.OTPGateway. The gateway produces and delivers the code.
func (g *HTTPSMSGateway) GenerateOTP(ctx context.Context, phone, message string, expiry time.Duration) error {
	body := otpGenerateRequest{
		Expiry:   int(expiry.Minutes()),
		Length:   6,
		Medium:   "sms",
		Message:  message,
		Number:   phone,
		SenderID: g.senderID,
		Type:     "numeric",
	}

	var resp otpResponse
	if err := g.post(ctx, "/otp/generate", body, &resp); err != nil {
		return err
	}
	if resp.code() != otpGenerateSuccess {
		return fmt.Errorf("%w: %s", domain.ErrGatewayError, resp.Message)
	}
	return nil
}

// VerifyOTP implements domain.OTPGateway. A rejected code wraps ErrInvalidOrExpiredOTP.
func (g *HTTPSMSGateway) VerifyOTP(ctx context.Context, phone, code string) error {
	body := otpVerifyRequest{APIKey: g.apiKey, Code: code, Number: phone}

	var resp otpResponse
	if err := g.post(ctx, "/otp/verify", body, &resp); err != nil {
		return err
	}
	if resp.code() != otpVerifySuccess {
		msg := resp.Message
		if msg == "" {
			msg = "code " + strconv.Quote(resp.code())
		}
		return fmt.Errorf("%w: %s", domain.ErrInvalidOrExpiredOTP, msg)
	}
	return nil
}

func (g *HTTPSMSGateway) post(ctx context.Context, path string, payload, out interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("api-key", g.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: request failed: %v", domain.ErrGatewayError, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%w: read response: %v", domain.ErrGatewayError, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		g.logger.Warn("sms gateway returned error status",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode))
		return fmt.Errorf("%w: HTTP %d: %s", domain.ErrGatewayError, resp.StatusCode, truncate(string(respBody), 200))
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("%w: invalid response: %v", domain.ErrGatewayError, err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

var (
	_ domain.SMSGateway = (*HTTPSMSGateway)(nil)
	_ domain.OTPGateway = (*HTTPSMSGateway)(nil)
)
