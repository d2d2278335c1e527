// Package money converts amounts as printed in DART statements into integers.
package money

import (
	"strconv"
	"strings"

	"github.com/Sangvierr/My-Lab/pkg/apperrors"
)

// Normalize turns a textual amount into a signed integer.
//
//	"1,234"   -> 1234
//	"(1,000)" -> -1000
//	"-500"    -> -500
//	""        -> 0
//
// Anything that is not purely numeric once separators are removed yields a
// *apperrors.FormatError.
func Normalize(raw string) (int64, error) {
	s := strings.TrimSpace(strings.ReplaceAll(raw, ",", ""))
	if s == "" {
		return 0, nil
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	} else if strings.HasPrefix(s, "-") {
		negative = true
		s = s[1:]
	}

	if !isDigits(s) {
		return 0, &apperrors.FormatError{Value: raw}
	}

	val, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		// overflow
		return 0, &apperrors.FormatError{Value: raw}
	}
	if negative {
		return -val, nil
	}
	return val, nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
