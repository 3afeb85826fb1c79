package utils

import (
	"strconv"
	"strings"
)

// ParseAggregate parses a placement aggregate score. Blank or non numeric
// values yield nil.
func ParseAggregate(raw string) *float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	return &v
}

// NormalizeStatus lower-cases a residential status.
func NormalizeStatus(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// IsKnownStatus reports whether s is day or boarding.
func IsKnownStatus(s string) bool {
	return s == StatusDay || s == StatusBoarding
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string {
	return &s
}
