package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
)

// ErrInvalidMobile is returned by NormalizeMobile for numbers it cannot accept.
var ErrInvalidMobile = errors.New("invalid mobile number")

// HashMobile creates a SHA256 hash of a mobile number.
// This is useful for creating consistent, safe keys for Redis.
func HashMobile(mobile string) string {
	h := sha256.New()
	h.Write([]byte(mobile))
	return hex.EncodeToString(h.Sum(nil))
}

// NormalizeMobile trims the number and strips spaces and dashes. The result
// is an optional leading "+" followed by 7 to 15 digits.
func NormalizeMobile(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	s = strings.NewReplacer(" ", "", "-", "").Replace(s)

	digits := strings.TrimPrefix(s, "+")
	if len(digits) < 7 || len(digits) > 15 {
		return "", ErrInvalidMobile
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return "", ErrInvalidMobile
		}
	}
	return s, nil
}

// MaskMobile keeps only the last four digits, for logs.
func MaskMobile(mobile string) string {
	if len(mobile) <= 4 {
		return strings.Repeat("*", len(mobile))
	}
	return strings.Repeat("*", len(mobile)-4) + mobile[len(mobile)-4:]
}
