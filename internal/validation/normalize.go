// Package validation cleans and checks untrusted student and payment input
// before it reaches the record services. Every function here is pure.
package validation

import (
	"strings"
	"time"

	"github.com/noah-isme/academia-api/internal/models"
	appErrors "github.com/noah-isme/academia-api/pkg/errors"
)

// punctuation lists the separators tolerated inside numeric fields.
var punctuation = strings.NewReplacer(".", "", "-", "", "(", "", ")", "", " ", "")

// NormalizePhone strips everything but digits and applies the country code
// to 10 or 11 digit local numbers. Numbers already starting with the country
// code are kept, any other length is returned stripped and unprefixed. Empty
// input yields "".
func NormalizePhone(raw string) string {
	digits := onlyDigits(raw)
	if digits == "" {
		return ""
	}
	if strings.HasPrefix(digits, models.CountryCode) {
		return digits
	}
	if len(digits) == 10 || len(digits) == 11 {
		return models.CountryCode + digits
	}
	return digits
}

// ValidatePhoneLength requires area code plus number: 10 or 11 digits once
// punctuation is removed, before any country code is applied.
func ValidatePhoneLength(raw string) error {
	n := len(onlyDigits(raw))
	if n != 10 && n != 11 {
		return appErrors.FieldError{Field: "phone", Message: "invalid phone length, enter area code and number (10 or 11 digits)"}
	}
	return nil
}

// NormalizeDocument keeps only the digits of a document number.
func NormalizeDocument(raw string) string {
	return onlyDigits(raw)
}

// ValidateNumericField accepts digits separated by dots, dashes, parentheses
// or spaces. Empty input is accepted; presence is checked elsewhere.
func ValidateNumericField(raw, field string) error {
	cleaned := punctuation.Replace(raw)
	if raw == "" {
		return nil
	}
	if cleaned == "" || !isDigits(cleaned) {
		return appErrors.FieldError{Field: field, Message: "must contain only digits"}
	}
	return nil
}

// ValidateDateRange fails when both bounds are set and start is after end.
func ValidateDateRange(start, end *time.Time) error {
	if start == nil || end == nil {
		return nil
	}
	if models.DateOf(*start).After(models.DateOf(*end)) {
		return appErrors.FieldError{Field: "from", Message: "start date after end date"}
	}
	return nil
}

// ParseDate reads a YYYY-MM-DD calendar date.
func ParseDate(field, raw string) (time.Time, error) {
	t, err := time.Parse(models.DateLayout, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, appErrors.FieldError{Field: field, Message: "must be a date in YYYY-MM-DD format"}
	}
	return t, nil
}

// ParseOptionalDate is ParseDate for optional inputs; blank yields nil.
func ParseOptionalDate(field, raw string) (*time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	t, err := ParseDate(field, raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func onlyDigits(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
