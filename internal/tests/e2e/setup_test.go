package e2e

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/you/dispatchsvc/internal/app"
	"github.com/you/dispatchsvc/internal/config"
	"github.com/you/dispatchsvc/internal/infrastructure/repositories"
	"github.com/you/dispatchsvc/internal/services"
)

const (
	testCallbackURL   = "https://hooks.example.com/webhooks/sms/delivery"
	testCallbackToken = "e2e-callback-token"
)

// TestSuite holds the in-process E2E infrastructure for one test
type TestSuite struct {
	Config    *config.Config
	DB        *gorm.DB
	Redis     *redis.Client
	Mini      *miniredis.Miniredis
	Providers *fakeProviders
	Container *app.Container
	Server    *httptest.Server
	Client    *http.Client
}

// sentSMS is one message accepted by the fake gateway
type sentSMS struct {
	Sender      string   `json:"sender"`
	Message     string   `json:"message"`
	Recipients  []string `json:"recipients"`
	CallbackURL string   `json:"callback_url"`
}

// fakeProviders stands in for the SMS gateway and the payment provider
type fakeProviders struct {
	server *httptest.Server

	mu       sync.Mutex
	messages []sentSMS
	payments map[string]string
}

func newFakeProviders(t *testing.T) *fakeProviders {
	t.Helper()

	p := &fakeProviders{payments: map[string]string{}}
	mux := http.NewServeMux()
	mux.HandleFunc("/sms/send", func(w http.ResponseWriter, r *http.Request) {
		var msg sentSMS
		if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		p.mu.Lock()
		p.messages = append(p.messages, msg)
		p.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"success","message":"queued"}`))
	})
	mux.HandleFunc("/transaction/verify/", func(w http.ResponseWriter, r *http.Request) {
		reference := strings.TrimPrefix(r.URL.Path, "/transaction/verify/")
		p.mu.Lock()
		status, ok := p.payments[reference]
		p.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"status":false,"message":"Transaction reference not found"}`))
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":  true,
			"message": "Verification successful",
			"data": map[string]interface{}{
				"reference": reference,
				"status":    status,
				"amount":    5000,
				"currency":  "GHS",
				"channel":   "mobile_money",
				"paid_at":   time.Now().UTC().Format(time.RFC3339),
			},
		})
	})

	p.server = httptest.NewServer(mux)
	t.Cleanup(p.server.Close)
	return p
}

func (p *fakeProviders) URL() string { return p.server.URL }

func (p *fakeProviders) setPayment(reference, status string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.payments[reference] = status
}

func (p *fakeProviders) sent() []sentSMS {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]sentSMS, len(p.messages))
	copy(out, p.messages)
	return out
}

func testConfig(providerURL string) *config.Config {
	return &config.Config{
		GinMode:  gin.TestMode,
		LogLevel: "error",

		JWTSecret:       "test-jwt-secret-for-e2e",
		JWTIssuer:       "dispatchsvc",
		AccessTTL:       15 * time.Minute,
		CasbinModelPath: "../../../config/rbac_model.conf",

		CountryCode: "233",
		LocalDigits: 9,

		OTP_TTL:         5 * time.Minute,
		OTP_MaxAttempts: 3,
		OTP_RateWindow:  time.Minute,
		OTP_LockTTL:     10 * time.Second,
		OTP_Checker:     services.CheckerLocal,

		SMSProvider:      "gateway",
		SMSBaseURL:       providerURL,
		SMSAPIKey:        "test-key",
		SMSSenderID:      "StudentHub",
		SMSTimeout:       2 * time.Second,
		SMSMaxLength:     320,
		SMSCallback:      testCallbackURL,
		SMSCallbackToken: testCallbackToken,

		EmailProvider: "smtp",
		EmailFromName: "StudentHub",

		PaymentsBaseURL: providerURL,
		PaymentsSecret:  "sk_test_e2e",
		PaymentsTimeout: 2 * time.Second,
		Plans: []config.PlanConfig{
			{ID: "semester", Name: "Semester", Price: 50, DurationDays: 120},
		},

		RetentionDays: 90,
		BacklogLimit:  10,

		RateLimitRPS:   100,
		RateLimitBurst: 100,
	}
}

// NewTestSuite wires the real container on SQLite, miniredis and fake providers
func NewTestSuite(t *testing.T) *TestSuite {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(repositories.Models()...))

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	providers := newFakeProviders(t)
	cfg := testConfig(providers.URL())

	c, err := app.NewContainerWithStores(cfg, zap.NewNop(), db, rdb)
	require.NoError(t, err)

	srv := httptest.NewServer(c.Router())
	t.Cleanup(func() {
		srv.Close()
		c.Close()
	})

	return &TestSuite{
		Config:    cfg,
		DB:        db,
		Redis:     rdb,
		Mini:      mr,
		Providers: providers,
		Container: c,
		Server:    srv,
		Client:    &http.Client{Timeout: 5 * time.Second},
	}
}

// SeedUser inserts a user that accepts every SMS category
func (s *TestSuite) SeedUser(t *testing.T, role, phone string) *repositories.DBUser {
	t.Helper()
	u := &repositories.DBUser{
		Email:                   role + "@example.com",
		Phone:                   phone,
		Role:                    role,
		SMSNotificationsEnabled: true,
		SMSBookingUpdates:       true,
		SMSPaymentAlerts:        true,
		SMSMaintenanceUpdates:   true,
		SMSAnnouncements:        true,
	}
	require.NoError(t, s.DB.Create(u).Error)
	return u
}

// Token issues an access token the way the login flow would
func (s *TestSuite) Token(t *testing.T, u *repositories.DBUser) string {
	t.Helper()
	token, err := s.Container.TokenSvc.GenerateAccessToken(u.ID, u.Role)
	require.NoError(t, err)
	return token
}

// Do sends a JSON request and decodes the JSON response
func (s *TestSuite) Do(t *testing.T, method, path string, body interface{}, token string) (int, map[string]interface{}) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, s.Server.URL+path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.Client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	out := map[string]interface{}{}
	if len(raw) > 0 && strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}
