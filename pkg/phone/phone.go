// Package phone provides phone number utilities.
// No business logic lives here.
package phone

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

const defaultRegion = "GB"

// NormalizeE164 formats a phone number to E.164. If parsing fails, it returns
// the trimmed input so callers can still store whatever the webhook carried.
func NormalizeE164(input string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return trimmed
	}

	number, err := phonenumbers.Parse(trimmed, defaultRegion)
	if err != nil {
		return trimmed
	}

	if !phonenumbers.IsValidNumber(number) {
		return trimmed
	}

	return phonenumbers.Format(number, phonenumbers.E164)
}

// Digits strips everything except ASCII digits.
func Digits(input string) string {
	var b strings.Builder
	for _, r := range input {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// SameLine reports whether two numbers refer to the same line by comparing
// the last 10 digits. This tolerates country-code prefix differences:
// +447700900123 and 07700900123 match. Numbers with fewer than 10 digits
// never match; they are too ambiguous to correlate on.
func SameLine(a, b string) bool {
	da, db := Digits(a), Digits(b)
	if len(da) < 10 || len(db) < 10 {
		return false
	}
	return da[len(da)-10:] == db[len(db)-10:]
}
