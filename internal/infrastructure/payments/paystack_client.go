package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/you/dispatchsvc/domain"
	"go.uber.org/zap"
)

// PaystackClient verifies transactions against the payment gateway's REST API
type PaystackClient struct {
	baseURL    string
	secretKey  string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewPaystackClient creates a new payment gateway client
func NewPaystackClient(baseURL, secretKey string, timeout time.Duration, logger *zap.Logger) *PaystackClient {
	return &PaystackClient{
		baseURL:   strings.TrimRight(baseURL, "/"),
		secretKey: secretKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

type verifyResponse struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type transactionData struct {
	Reference string     `json:"reference"`
	Status    string     `json:"status"`
	Amount    int64      `json:"amount"`
	Currency  string     `json:"currency"`
	Channel   string     `json:"channel"`
	PaidAt    *time.Time `json:"paid_at"`
}

// VerifyTransaction implements domain.PaymentGateway.
// Amounts are reported in the minor unit and converted to the major unit.
func (c *PaystackClient) VerifyTransaction(ctx context.Context, reference string) (*domain.PaymentData, error) {
	endpoint := fmt.Sprintf("%s/transaction/verify/%s", c.baseURL, url.PathEscape(reference))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: request failed: %v", domain.ErrGatewayError, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", domain.ErrGatewayError, err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("payment verification returned error status",
			zap.String("reference", reference),
			zap.Int("status", resp.StatusCode))
		return nil, fmt.Errorf("%w: HTTP %d", domain.ErrGatewayError, resp.StatusCode)
	}

	var result verifyResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("%w: invalid response: %v", domain.ErrGatewayError, err)
	}
	if !result.Status {
		msg := result.Message
		if msg == "" {
			msg = "verification failed"
		}
		return nil, fmt.Errorf("%w: %s", domain.ErrGatewayError, msg)
	}

	var tx transactionData
	if err := json.Unmarshal(result.Data, &tx); err != nil {
		return nil, fmt.Errorf("%w: invalid transaction data: %v", domain.ErrGatewayError, err)
	}

	raw := map[string]any{}
	_ = json.Unmarshal(result.Data, &raw)

	return &domain.PaymentData{
		Reference: tx.Reference,
		Status:    tx.Status,
		Amount:    float64(tx.Amount) / 100,
		Currency:  tx.Currency,
		Channel:   tx.Channel,
		PaidAt:    tx.PaidAt,
		Raw:       raw,
	}, nil
}

var _ domain.PaymentGateway = (*PaystackClient)(nil)
