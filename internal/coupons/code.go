package coupons

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

const (
	generatedPrefix = "COUPON-"
	WelcomePrefix   = "WELCOME-"
)

// NormalizeCode upper-cases and trims a user supplied code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// HashCode returns the sha256 hex digest of the normalized code.
func HashCode(code string) string {
	sum := sha256.Sum256([]byte(NormalizeCode(code)))
	return hex.EncodeToString(sum[:])
}

// GenerateCode returns prefix followed by 8 upper-case hex characters.
func GenerateCode(prefix string) (string, error) {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate coupon code: %w", err)
	}
	return prefix + strings.ToUpper(hex.EncodeToString(buf)), nil
}
