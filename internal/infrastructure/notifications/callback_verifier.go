package notifications

import (
	"crypto/subtle"
	"net/http"
	"net/url"

	"github.com/twilio/twilio-go/client"
)

// callbackTokenParam carries the shared secret of the HTTP gateway's delivery callbacks
const callbackTokenParam = "token"

// TokenCallbackVerifier accepts delivery callbacks that carry the configured shared token.
// An empty token rejects every callback.
type TokenCallbackVerifier struct {
	token string
}

// NewTokenCallbackVerifier creates a verifier for the HTTP gateway's callbacks
func NewTokenCallbackVerifier(token string) *TokenCallbackVerifier {
	return &TokenCallbackVerifier{token: token}
}

// CallbackURL adds the shared token to the public callback URL handed to the gateway
func (v *TokenCallbackVerifier) CallbackURL(base string) string {
	if base == "" || v.token == "" {
		return base
	}
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	q := u.Query()
	q.Set(callbackTokenParam, v.token)
	u.RawQuery = q.Encode()
	return u.String()
}

// Verify reports whether the request carries the shared token
func (v *TokenCallbackVerifier) Verify(r *http.Request) bool {
	if v.token == "" {
		return false
	}
	got := r.URL.Query().Get(callbackTokenParam)
	return subtle.ConstantTimeCompare([]byte(got), []byte(v.token)) == 1
}

// TwilioCallbackVerifier checks the X-Twilio-Signature header of status callbacks.
// Twilio signs the exact URL it was given, so the configured public URL is combined
// with the query of the incoming request.
type TwilioCallbackVerifier struct {
	validator client.RequestValidator
	publicURL *url.URL
}

// NewTwilioCallbackVerifier creates a verifier for callbacks sent to publicURL
func NewTwilioCallbackVerifier(authToken, publicURL string) *TwilioCallbackVerifier {
	u, err := url.Parse(publicURL)
	if err != nil || publicURL == "" || authToken == "" {
		u = nil
	}
	return &TwilioCallbackVerifier{
		validator: client.NewRequestValidator(authToken),
		publicURL: u,
	}
}

// Verify reports whether the request was signed with the account's auth token
func (v *TwilioCallbackVerifier) Verify(r *http.Request) bool {
	signature := r.Header.Get("X-Twilio-Signature")
	if v.publicURL == nil || signature == "" {
		return false
	}
	if err := r.ParseForm(); err != nil {
		return false
	}

	signed := *v.publicURL
	signed.RawQuery = r.URL.RawQuery

	params := make(map[string]string, len(r.PostForm))
	for k, vals := range r.PostForm {
		if len(vals) > 0 {
			params[k] = vals[0]
		}
	}
	return v.validator.Validate(signed.String(), params, signature)
}
