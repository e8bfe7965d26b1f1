package capi

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// HashEmail normalizes an email address (trim, lowercase) and returns the
// hex SHA-256 of its UTF-8 bytes. Empty or whitespace-only input yields ""
// without hashing, so the wire payload carries an empty field rather than
// the digest of an empty string.
func HashEmail(email string) string {
	s := strings.ToLower(strings.TrimSpace(email))
	if s == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// HashPhone strips every non-digit character, rewrites a Turkish local
// number (leading "0", exactly 11 digits) to its international form with
// country code "90", and returns the hex SHA-256 of the digit string.
// Inputs with no digits yield "".
func HashPhone(phone string) string {
	digits := digitsOnly(phone)
	if digits == "" {
		return ""
	}
	if len(digits) == 11 && digits[0] == '0' {
		digits = "90" + digits[1:]
	}
	sum := sha256.Sum256([]byte(digits))
	return hex.EncodeToString(sum[:])
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
