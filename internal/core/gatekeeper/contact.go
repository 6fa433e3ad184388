package gatekeeper

import (
	"regexp"
	"strings"
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// Email signal names.
const (
	SignalEmailShape         = "email_shape"
	SignalEmailShortLocal    = "email_short_local"
	SignalEmailRepeatedLocal = "email_repeated_local"
	SignalEmailRepeatedHost  = "email_repeated_domain"
)

// Phone signal names.
const (
	SignalPhoneRepeatedDigit = "phone_repeated_digit"
	SignalPhoneTooShort      = "phone_too_short"
)

const minPhoneDigits = 7

// ValidEmail reports whether email passes the address shape checks.
func ValidEmail(email string) bool {
	return EmailSignal(email) == ""
}

// EmailSignal returns the first failing email rule, or "" when the address passes.
func EmailSignal(email string) string {
	if !emailPattern.MatchString(email) {
		return SignalEmailShape
	}

	local, domain, _ := strings.Cut(email, "@")
	localUnits := codeUnits(local)
	if len(localUnits) < 2 {
		return SignalEmailShortLocal
	}
	if hasRepeatedRun(localUnits, 1, 1, 3) {
		return SignalEmailRepeatedLocal
	}
	if hasRepeatedRun(codeUnits(domain), 2, 3, 3) {
		return SignalEmailRepeatedHost
	}
	return ""
}

// PhoneDigits strips everything except ASCII digits.
func PhoneDigits(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ValidPhone reports whether phone passes the digit checks. Empty input passes.
func ValidPhone(phone string) bool {
	return PhoneSignal(phone) == ""
}

// PhoneSignal returns the first failing phone rule, or "" when the number passes.
func PhoneSignal(phone string) string {
	digits := PhoneDigits(phone)
	if digits == "" {
		return ""
	}
	if hasRepeatedRun(codeUnits(digits), 1, 1, 5) {
		return SignalPhoneRepeatedDigit
	}
	if len(digits) < minPhoneDigits {
		return SignalPhoneTooShort
	}
	return ""
}
