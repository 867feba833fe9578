package services

import (
	"bytes"
	"fmt"
	"html"
	htmltemplate "html/template"
	"regexp"
	"strings"
	texttemplate "text/template"
	"time"

	"github.com/you/dispatchsvc/domain"
)

// GatewayOTPPlaceholder is substituted by the SMS gateway with the code it generates
const GatewayOTPPlaceholder = "%otp_code%"

const ellipsis = "..."

var markupPattern = regexp.MustCompile(`<[^>]*>`)

const htmlEmailTemplates = `
{{define "layout_start"}}<!DOCTYPE html><html><body style="font-family:Arial,sans-serif;color:#222"><div style="max-width:560px;margin:0 auto;padding:24px">{{end}}
{{define "layout_end"}}<p style="color:#888;font-size:12px">{{.AppName}}</p></div></body></html>{{end}}
{{define "notification"}}{{template "layout_start" .}}<h2>{{.Title}}</h2><p>{{.Message}}</p>{{template "layout_end" .}}{{end}}
{{define "otp"}}{{template "layout_start" .}}<p>Your verification code is</p><h1 style="letter-spacing:4px">{{.Code}}</h1><p>It expires in {{.Minutes}} minutes.</p>{{template "layout_end" .}}{{end}}
{{define "subscription_activated"}}{{template "layout_start" .}}<h2>Subscription active</h2><p>Your {{.Plan}} plan is active until {{.EndDate}}.</p>{{template "layout_end" .}}{{end}}
`

const textEmailTemplates = `
{{define "notification"}}{{.Title}}

{{.Message}}

{{.AppName}}{{end}}
{{define "otp"}}Your verification code is {{.Code}}. It expires in {{.Minutes}} minutes.

{{.AppName}}{{end}}
{{define "subscription_activated"}}Your {{.Plan}} plan is active until {{.EndDate}}.

{{.AppName}}{{end}}
`

// MessageTemplater builds channel-appropriate bodies
type MessageTemplater struct {
	appName      string
	maxSMSLength int
	html         *htmltemplate.Template
	text         *texttemplate.Template
}

// NewMessageTemplater creates a templater capping SMS bodies at maxSMSLength characters
func NewMessageTemplater(appName string, maxSMSLength int) *MessageTemplater {
	if maxSMSLength <= len(ellipsis) {
		maxSMSLength = 160
	}
	return &MessageTemplater{
		appName:      appName,
		maxSMSLength: maxSMSLength,
		html:         htmltemplate.Must(htmltemplate.New("email").Parse(htmlEmailTemplates)),
		text:         texttemplate.Must(texttemplate.New("email").Parse(textEmailTemplates)),
	}
}

// Sanitize strips markup, decodes entities and collapses whitespace
func (m *MessageTemplater) Sanitize(message string) string {
	stripped := markupPattern.ReplaceAllString(message, " ")
	return strings.Join(strings.Fields(html.UnescapeString(stripped)), " ")
}

// Truncate caps s at the SMS length limit, ending with an ellipsis when cut
func (m *MessageTemplater) Truncate(s string) string {
	runes := []rune(s)
	if len(runes) <= m.maxSMSLength {
		return s
	}
	return string(runes[:m.maxSMSLength-len(ellipsis)]) + ellipsis
}

// SMSBody sanitizes and truncates a free-form message
func (m *MessageTemplater) SMSBody(message string) string {
	return m.Truncate(m.Sanitize(message))
}

// NotificationSMS prefixes the type label and enforces the SMS limit
func (m *MessageTemplater) NotificationSMS(t domain.NotificationType, message string) string {
	return m.Truncate(fmt.Sprintf("[%s] %s", t.Label(), m.Sanitize(message)))
}

// OTPMessage is the SMS text carrying a verification code
func (m *MessageTemplater) OTPMessage(code string, purpose domain.OTPPurpose, ttl time.Duration) string {
	action := "verify your phone number"
	switch purpose {
	case domain.OTPPurposeRegistration:
		action = "complete your registration"
	case domain.OTPPurposeLogin:
		action = "sign in"
	case domain.OTPPurposePasswordReset:
		action = "reset your password"
	}
	return m.Truncate(fmt.Sprintf("Your %s code to %s is %s. It expires in %d minutes. Do not share it.",
		m.appName, action, code, int(ttl.Minutes())))
}

// RenderEmail renders the named template into HTML and plaintext bodies
func (m *MessageTemplater) RenderEmail(name string, data map[string]any) (string, string, error) {
	vars := map[string]any{"AppName": m.appName}
	for k, v := range data {
		vars[k] = v
	}

	var htmlBuf, textBuf bytes.Buffer
	if err := m.html.ExecuteTemplate(&htmlBuf, name, vars); err != nil {
		return "", "", fmt.Errorf("render html template %q: %w", name, err)
	}
	if err := m.text.ExecuteTemplate(&textBuf, name, vars); err != nil {
		return "", "", fmt.Errorf("render text template %q: %w", name, err)
	}
	return htmlBuf.String(), textBuf.String(), nil
}
