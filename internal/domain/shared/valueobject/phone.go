package valueobject

import (
	"errors"
	"strings"
)

// ErrInvalidPhone is returned for numbers that cannot be normalized
var ErrInvalidPhone = errors.New("phone: invalid number")

// NormalizePhone converts local Sri Lankan formats ("0771234567",
// "771234567", "94771234567", "+94 77 123 4567") into E.164 ("+94771234567").
// Numbers already carrying another country code are kept as-is after cleanup.
func NormalizePhone(raw string) (string, error) {
	var b strings.Builder
	for i, r := range strings.TrimSpace(raw) {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && i == 0:
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '(' || r == ')':
		default:
			return "", ErrInvalidPhone
		}
	}
	s := b.String()

	switch {
	case strings.HasPrefix(s, "+"):
		digits := s[1:]
		if len(digits) < 8 || len(digits) > 15 {
			return "", ErrInvalidPhone
		}
		if strings.HasPrefix(digits, "94") && len(digits) != 11 {
			return "", ErrInvalidPhone
		}
		return s, nil
	case strings.HasPrefix(s, "94") && len(s) == 11:
		return "+" + s, nil
	case strings.HasPrefix(s, "0") && len(s) == 10:
		return "+94" + s[1:], nil
	case len(s) == 9 && !strings.HasPrefix(s, "0"):
		return "+94" + s, nil
	default:
		return "", ErrInvalidPhone
	}
}
