// Package fieldcheck holds the format validators applied to submitted step
// data: email and phone shapes, numeric coercion, ISO dates.
package fieldcheck

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

var (
	emailRe = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	phoneRe = regexp.MustCompile(`^\+?[0-9][0-9 \-()]{5,19}$`)
)

// CheckEmail validates an email address.
func CheckEmail(value string) error {
	if !emailRe.MatchString(value) {
		return fmt.Errorf("invalid email format: %s", value)
	}
	return nil
}

// CheckPhone validates a phone number: optional leading +, 6 to 20 digits
// with common separators.
func CheckPhone(value string) error {
	if !phoneRe.MatchString(value) {
		return fmt.Errorf("invalid phone format: %s", value)
	}
	return nil
}

// CoerceNumber accepts a numeric value or a numeric string and returns it
// as float64.
func CoerceNumber(value interface{}) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case string:
		n, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, fmt.Errorf("not a number: %q", v)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("not a number: %v", value)
	}
}

// CheckDate validates an ISO calendar date (2006-01-02).
func CheckDate(value string) error {
	if _, err := time.Parse("2006-01-02", value); err != nil {
		return fmt.Errorf("invalid date %q, want YYYY-MM-DD", value)
	}
	return nil
}
