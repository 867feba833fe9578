// Package phone canonicalizes subscriber numbers to the international
// digits-only form the SMS gateway expects.
package phone

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

var nonDigits = regexp.MustCompile(`\D`)

// Normalizer converts raw user input into <country code><local digits>
type Normalizer struct {
	countryCode string
	localDigits int
	valid       *regexp.Regexp
}

// NewNormalizer builds a normalizer for one country, e.g. ("233", 9) for Ghana
func NewNormalizer(countryCode string, localDigits int) *Normalizer {
	return &Normalizer{
		countryCode: countryCode,
		localDigits: localDigits,
		valid:       regexp.MustCompile(fmt.Sprintf(`^%s\d{%d}$`, regexp.QuoteMeta(countryCode), localDigits)),
	}
}

// Normalize strips formatting and applies the national-prefix rules.
// Inputs matching no rule are returned as bare digits.
func (n *Normalizer) Normalize(raw string) string {
	digits := nonDigits.ReplaceAllString(raw, "")

	switch {
	case len(digits) == n.localDigits+1 && strings.HasPrefix(digits, "0"):
		return n.countryCode + digits[1:]
	case len(digits) == n.localDigits:
		return n.countryCode + digits
	}
	return digits
}

// IsValid reports whether an already normalized number is well formed
func (n *Normalizer) IsValid(number string) bool {
	return n.valid.MatchString(number)
}

// NormalizeValid normalizes raw and reports whether the result is valid
func (n *Normalizer) NormalizeValid(raw string) (string, bool) {
	normalized := n.Normalize(raw)
	return normalized, n.IsValid(normalized)
}

// E164 returns the "+" form of a normalized number after checking it
// against the numbering plan.
func (n *Normalizer) E164(number string) (string, error) {
	if !n.IsValid(number) {
		return "", fmt.Errorf("phone number %q is not normalized", number)
	}
	parsed, err := phonenumbers.Parse("+"+number, "")
	if err != nil {
		return "", fmt.Errorf("parse phone number: %w", err)
	}
	if !phonenumbers.IsValidNumber(parsed) {
		return "", fmt.Errorf("phone number %q is not a valid number", number)
	}
	return phonenumbers.Format(parsed, phonenumbers.E164), nil
}
