package notifications

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

const testPublicCallback = "https://hooks.example.com/webhooks/sms/delivery"

// twilioSignature signs a callback the way Twilio does: HMAC-SHA1 over the URL
// followed by every form key and value in key order.
func twilioSignature(authToken, fullURL string, form url.Values) string {
	keys := make([]string, 0, len(form))
	for k := range form {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(fullURL)
	for _, k := range keys {
		b.WriteString(k)
		b.WriteString(form.Get(k))
	}
	mac := hmac.New(sha1.New, []byte(authToken))
	mac.Write([]byte(b.String()))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func twilioCallback(query string, form url.Values, signature string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/sms/delivery"+query, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if signature != "" {
		req.Header.Set("X-Twilio-Signature", signature)
	}
	return req
}

func TestTwilioCallbackVerifier_Verify(t *testing.T) {
	const authToken = "twilio-auth-token"
	form := url.Values{"To": {"+233241234567"}, "MessageStatus": {"delivered"}, "MessageSid": {"SM123"}}
	valid := twilioSignature(authToken, testPublicCallback+"?notification_id=5", form)

	tests := []struct {
		name     string
		verifier *TwilioCallbackVerifier
		query    string
		form     url.Values
		sig      string
		expected bool
	}{
		{name: "signed callback", verifier: NewTwilioCallbackVerifier(authToken, testPublicCallback), query: "?notification_id=5", form: form, sig: valid, expected: true},
		{name: "missing signature", verifier: NewTwilioCallbackVerifier(authToken, testPublicCallback), query: "?notification_id=5", form: form},
		{name: "query changed", verifier: NewTwilioCallbackVerifier(authToken, testPublicCallback), query: "?notification_id=6", form: form, sig: valid},
		{name: "form changed", verifier: NewTwilioCallbackVerifier(authToken, testPublicCallback), query: "?notification_id=5", form: url.Values{"To": {"+233241234567"}, "MessageStatus": {"failed"}, "MessageSid": {"SM123"}}, sig: valid},
		{name: "other auth token", verifier: NewTwilioCallbackVerifier("another-token", testPublicCallback), query: "?notification_id=5", form: form, sig: valid},
		{name: "no public url", verifier: NewTwilioCallbackVerifier(authToken, ""), query: "?notification_id=5", form: form, sig: valid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.verifier.Verify(twilioCallback(tt.query, tt.form, tt.sig)))
		})
	}
}

func TestTokenCallbackVerifier(t *testing.T) {
	v := NewTokenCallbackVerifier("s3cret")

	callback := v.CallbackURL(testPublicCallback)
	assert.Equal(t, testPublicCallback+"?token=s3cret", callback)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/sms/delivery?notification_id=5&token=s3cret", nil)
	assert.True(t, v.Verify(req))

	req = httptest.NewRequest(http.MethodPost, "/webhooks/sms/delivery?notification_id=5&token=guess", nil)
	assert.False(t, v.Verify(req))

	req = httptest.NewRequest(http.MethodPost, "/webhooks/sms/delivery?notification_id=5", nil)
	assert.False(t, v.Verify(req))

	// without a configured token nothing is accepted
	empty := NewTokenCallbackVerifier("")
	assert.Equal(t, testPublicCallback, empty.CallbackURL(testPublicCallback))
	assert.False(t, empty.Verify(httptest.NewRequest(http.MethodPost, "/webhooks/sms/delivery?token=", nil)))
}
