package e2e

import (
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/you/dispatchsvc/internal/infrastructure/repositories"
)

var otpCodePattern = regexp.MustCompile(`\b(\d{6})\b`)

func TestHealthAndMetrics(t *testing.T) {
	s := NewTestSuite(t)

	status, body := s.Do(t, http.MethodGet, "/health", nil, "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["success"])

	// otp traffic should surface in the exposition
	status, _ = s.Do(t, http.MethodPost, "/otp/send", map[string]string{"phone": "0241234567", "purpose": "registration"}, "")
	require.Equal(t, http.StatusOK, status)

	resp, err := s.Client.Get(s.Server.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(raw), "dispatch_otp_issued_total")

	s.Mini.Close()
	status, body = s.Do(t, http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, false, body["success"])
}

func TestOTPFlow_SendAndVerify(t *testing.T) {
	s := NewTestSuite(t)
	student := s.SeedUser(t, "student", "233241234567")

	status, body := s.Do(t, http.MethodPost, "/otp/phone", map[string]interface{}{"phone": "024 123 4567"}, "")
	require.Equal(t, http.StatusUnauthorized, status)

	status, body = s.Do(t, http.MethodPost, "/otp/phone", map[string]interface{}{"phone": "024 123 4567"}, s.Token(t, student))
	require.Equal(t, http.StatusOK, status, body)
	assert.NotZero(t, body["otp_id"])

	sent := s.Providers.sent()
	require.Len(t, sent, 1)
	assert.Equal(t, []string{"233241234567"}, sent[0].Recipients)
	match := otpCodePattern.FindStringSubmatch(sent[0].Message)
	require.NotNil(t, match, sent[0].Message)
	code := match[1]

	// a second request inside the rate window is refused
	status, _ = s.Do(t, http.MethodPost, "/otp/send", map[string]string{"phone": "0241234567", "purpose": "registration"}, "")
	assert.Equal(t, http.StatusTooManyRequests, status)

	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}
	status, _ = s.Do(t, http.MethodPost, "/otp/verify", map[string]string{"phone": "0241234567", "code": wrong, "purpose": "registration"}, "")
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = s.Do(t, http.MethodPost, "/otp/verify", map[string]string{"phone": "+233241234567", "code": code, "purpose": "registration"}, "")
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, float64(student.ID), body["user_id"])

	var user repositories.DBUser
	require.NoError(t, s.DB.First(&user, student.ID).Error)
	assert.True(t, user.PhoneVerified)

	// the stored delivery log never carries the plain code
	var logs []repositories.DBDeliveryLog
	require.NoError(t, s.DB.Find(&logs).Error)
	require.NotEmpty(t, logs)
	for _, l := range logs {
		assert.NotContains(t, l.Message, code)
	}

	// a verified code cannot be replayed
	status, _ = s.Do(t, http.MethodPost, "/otp/verify", map[string]string{"phone": "0241234567", "code": code, "purpose": "registration"}, "")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestOTPFlow_CannotVerifyAnotherAccount(t *testing.T) {
	s := NewTestSuite(t)
	victim := s.SeedUser(t, "student", "233241111111")

	// anonymous issuance ignores a user id smuggled into the body
	status, body := s.Do(t, http.MethodPost, "/otp/send", map[string]interface{}{
		"phone":   "0209999999",
		"purpose": "registration",
		"user_id": victim.ID,
	}, "")
	require.Equal(t, http.StatusOK, status, body)
	code := otpCodePattern.FindStringSubmatch(s.Providers.sent()[0].Message)[1]

	status, body = s.Do(t, http.MethodPost, "/otp/verify", map[string]string{"phone": "0209999999", "code": code, "purpose": "registration"}, "")
	require.Equal(t, http.StatusOK, status, body)
	assert.Nil(t, body["user_id"])

	var user repositories.DBUser
	require.NoError(t, s.DB.First(&user, victim.ID).Error)
	assert.False(t, user.PhoneVerified)
}

func TestOTPFlow_RejectsBadInput(t *testing.T) {
	s := NewTestSuite(t)

	status, _ := s.Do(t, http.MethodPost, "/otp/send", map[string]string{"phone": "12", "purpose": "registration"}, "")
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = s.Do(t, http.MethodPost, "/otp/send", map[string]string{"phone": "0241234567", "purpose": "signup"}, "")
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = s.Do(t, http.MethodPost, "/otp/verify", map[string]string{"phone": "0241234567", "code": "12ab56", "purpose": "registration"}, "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Empty(t, s.Providers.sent())
}

func TestAdminNotifications_RequireAdminRole(t *testing.T) {
	s := NewTestSuite(t)
	admin := s.SeedUser(t, "admin", "233201111111")
	student := s.SeedUser(t, "student", "233241234567")

	req := map[string]interface{}{"user_id": student.ID, "message": "Room 4B is ready", "type": "booking_update"}

	status, _ := s.Do(t, http.MethodPost, "/admin/notifications", req, "")
	assert.Equal(t, http.StatusUnauthorized, status)

	status, body := s.Do(t, http.MethodPost, "/admin/notifications", req, s.Token(t, student))
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "Access Denied", body["message"])

	status, body = s.Do(t, http.MethodPost, "/admin/notifications", req, s.Token(t, admin))
	require.Equal(t, http.StatusCreated, status, body)
	id := uint(body["notification_id"].(float64))

	sent := s.Providers.sent()
	require.Len(t, sent, 1)
	assert.Equal(t, []string{"233241234567"}, sent[0].Recipients)
	assert.Contains(t, sent[0].Message, "Room 4B is ready")
	assert.True(t, strings.HasPrefix(sent[0].CallbackURL, testCallbackURL+"?notification_id="))
	assert.True(t, strings.HasSuffix(sent[0].CallbackURL, "&token="+testCallbackToken))

	var row repositories.DBNotification
	require.NoError(t, s.DB.First(&row, id).Error)
	assert.True(t, row.Delivered)

	path := "/notifications/" + strconv.FormatUint(uint64(id), 10)
	status, body = s.Do(t, http.MethodGet, path, nil, s.Token(t, student))
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "Room 4B is ready", body["notification"].(map[string]interface{})["message"])

	// the admin sent it but does not own it
	status, _ = s.Do(t, http.MethodGet, path, nil, s.Token(t, admin))
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = s.Do(t, http.MethodPost, "/admin/notifications", map[string]interface{}{"user_id": student.ID, "message": "x", "type": "promo"}, s.Token(t, admin))
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestNotifications_ListDrainsPendingSMS(t *testing.T) {
	s := NewTestSuite(t)
	admin := s.SeedUser(t, "admin", "233201111111")
	student := s.SeedUser(t, "student", "233241234567")
	adminToken := s.Token(t, admin)
	studentToken := s.Token(t, student)

	for _, msg := range []string{"Rent is due", "Water shut off at noon"} {
		status, body := s.Do(t, http.MethodPost, "/admin/notifications", map[string]interface{}{
			"user_id":  student.ID,
			"message":  msg,
			"type":     "maintenance",
			"send_sms": false,
		}, adminToken)
		require.Equal(t, http.StatusCreated, status, body)
	}
	assert.Empty(t, s.Providers.sent())

	status, body := s.Do(t, http.MethodGet, "/notifications", nil, studentToken)
	require.Equal(t, http.StatusOK, status, body)
	pending := body["pending_sms"].(map[string]interface{})
	assert.Equal(t, float64(2), pending["processed"])
	assert.Equal(t, float64(2), pending["succeeded"])
	items := body["notifications"].([]interface{})
	require.Len(t, items, 2)

	sent := s.Providers.sent()
	require.Len(t, sent, 2)
	assert.Contains(t, sent[0].Message, "Rent is due")
	assert.Contains(t, sent[1].Message, "Water shut off at noon")

	// nothing left to drain on the next read
	status, body = s.Do(t, http.MethodGet, "/notifications", nil, studentToken)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(0), body["pending_sms"].(map[string]interface{})["processed"])

	status, body = s.Do(t, http.MethodGet, "/notifications/unread-count", nil, studentToken)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(2), body["count"])

	status, body = s.Do(t, http.MethodPost, "/notifications/read-all", nil, studentToken)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(2), body["updated"])

	status, body = s.Do(t, http.MethodGet, "/notifications?unread=true", nil, studentToken)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, body["notifications"])
}

func TestSubscriptionFlow_ActivatesAndNotifies(t *testing.T) {
	s := NewTestSuite(t)
	student := s.SeedUser(t, "student", "233241234567")
	token := s.Token(t, student)

	status, body := s.Do(t, http.MethodPost, "/subscriptions", map[string]string{"plan_id": "semester", "reference": "PAY-E2E-1"}, token)
	require.Equal(t, http.StatusCreated, status, body)

	s.Providers.setPayment("PAY-E2E-1", "success")
	status, body = s.Do(t, http.MethodPost, "/subscriptions/verify", map[string]string{"reference": "PAY-E2E-1"}, token)
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "active", body["subscription"].(map[string]interface{})["status"])

	var user repositories.DBUser
	require.NoError(t, s.DB.First(&user, student.ID).Error)
	assert.Equal(t, "active", user.SubscriptionStatus)
	require.NotNil(t, user.SubscriptionExpiresAt)

	sent := s.Providers.sent()
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].Message, "Semester")

	status, body = s.Do(t, http.MethodGet, "/subscriptions/current", nil, token)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "PAY-E2E-1", body["subscription"].(map[string]interface{})["payment_reference"])

	// unknown references surface as a gateway failure
	status, _ = s.Do(t, http.MethodPost, "/subscriptions/verify", map[string]string{"reference": "PAY-MISSING"}, token)
	assert.Equal(t, http.StatusBadGateway, status)
}

func TestDeliveryWebhook_RecordsReport(t *testing.T) {
	s := NewTestSuite(t)

	report := map[string]string{"recipient": "0241234567", "status": "delivered"}

	// reports without the shared token are refused before anything is stored
	status, _ := s.Do(t, http.MethodPost, "/webhooks/sms/delivery?notification_id=7", report, "")
	require.Equal(t, http.StatusUnauthorized, status)
	status, _ = s.Do(t, http.MethodPost, "/webhooks/sms/delivery?notification_id=7&token=wrong", report, "")
	require.Equal(t, http.StatusUnauthorized, status)

	var count int64
	require.NoError(t, s.DB.Model(&repositories.DBDeliveryLog{}).Count(&count).Error)
	require.Zero(t, count)

	status, _ = s.Do(t, http.MethodPost, "/webhooks/sms/delivery?notification_id=7&token="+testCallbackToken, report, "")
	require.Equal(t, http.StatusOK, status)

	var logs []repositories.DBDeliveryLog
	require.NoError(t, s.DB.Find(&logs).Error)
	require.Len(t, logs, 1)
	assert.Equal(t, "233241234567", logs[0].Recipient)
	assert.Equal(t, "delivered", logs[0].Status)
}

func TestAdminPolicies_GrantRoleAccess(t *testing.T) {
	s := NewTestSuite(t)
	admin := s.SeedUser(t, "admin", "233201111111")
	landlord := s.SeedUser(t, "landlord", "233501234567")
	student := s.SeedUser(t, "student", "233241234567")

	req := map[string]interface{}{"user_id": student.ID, "message": "Inspection on Friday", "type": "announcement", "send_sms": false}
	status, _ := s.Do(t, http.MethodPost, "/admin/notifications", req, s.Token(t, landlord))
	require.Equal(t, http.StatusForbidden, status)

	rule := map[string]string{"subject": "landlord", "object": "/admin/notifications", "action": "(POST)"}
	status, body := s.Do(t, http.MethodPost, "/admin/policies", rule, s.Token(t, admin))
	require.Equal(t, http.StatusCreated, status, body)

	status, _ = s.Do(t, http.MethodPost, "/admin/notifications", req, s.Token(t, landlord))
	assert.Equal(t, http.StatusCreated, status)

	// the grant is scoped to the one route
	status, _ = s.Do(t, http.MethodGet, "/admin/policies", nil, s.Token(t, landlord))
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = s.Do(t, http.MethodDelete, "/admin/policies", rule, s.Token(t, admin))
	require.Equal(t, http.StatusOK, status)
	status, _ = s.Do(t, http.MethodPost, "/admin/notifications", req, s.Token(t, landlord))
	assert.Equal(t, http.StatusForbidden, status)
}

func TestAdminSMS_BroadcastAndDeliveryLogs(t *testing.T) {
	s := NewTestSuite(t)
	admin := s.SeedUser(t, "admin", "233201111111")
	student := s.SeedUser(t, "student", "233241234567")
	adminToken := s.Token(t, admin)

	req := map[string]interface{}{"recipients": []string{"0241234567", "0501234567", "bogus"}, "message": "Campus shuttle runs late today"}

	status, _ := s.Do(t, http.MethodPost, "/admin/sms/broadcast", req, s.Token(t, student))
	assert.Equal(t, http.StatusForbidden, status)

	status, body := s.Do(t, http.MethodPost, "/admin/sms/broadcast", req, adminToken)
	require.Equal(t, http.StatusOK, status, body)

	sent := s.Providers.sent()
	require.Len(t, sent, 1)
	assert.Equal(t, []string{"233241234567", "233501234567"}, sent[0].Recipients)

	status, body = s.Do(t, http.MethodGet, "/admin/delivery-logs?recipient=024+123+4567", nil, adminToken)
	require.Equal(t, http.StatusOK, status, body)
	logs := body["logs"].([]interface{})
	require.Len(t, logs, 1)
	assert.Equal(t, "233241234567", logs[0].(map[string]interface{})["recipient"])
	assert.Equal(t, "sent", logs[0].(map[string]interface{})["status"])

	status, body = s.Do(t, http.MethodGet, "/admin/delivery-logs?recipient=bogus", nil, adminToken)
	require.Equal(t, http.StatusOK, status, body)
	assert.Len(t, body["logs"].([]interface{}), 1)

	status, _ = s.Do(t, http.MethodGet, "/admin/delivery-logs", nil, adminToken)
	assert.Equal(t, http.StatusBadRequest, status)
}
