package security

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"unicode"

	"golang.org/x/crypto/bcrypt"

	"github.com/angelmondragon/arepera-backend/pkg/config"
)

const (
	DefaultBcryptCost = 10
	MinPasswordLength = 8
)

var tempPasswordCharset = []rune("ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz23456789")

// ErrWeakPassword is returned by CheckStrength.
var ErrWeakPassword = errors.New("password must have at least 8 characters with upper case, lower case and a digit")

// HashPassword returns a bcrypt hash of password using the configured cost.
func HashPassword(password string, cfg config.PasswordConfig) (string, error) {
	if password == "" {
		return "", fmt.Errorf("password cannot be empty")
	}
	cost := cfg.BcryptCost
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultBcryptCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword returns true when the password matches the encoded hash.
func VerifyPassword(password, encoded string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(encoded), []byte(password))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, err
	}
}

// CheckStrength enforces the registration password policy.
func CheckStrength(password string) error {
	if len([]rune(password)) < MinPasswordLength {
		return ErrWeakPassword
	}
	var upper, lower, digit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !upper || !lower || !digit {
		return ErrWeakPassword
	}
	return nil
}

// GenerateTempPassword produces a random string suitable for temporary credentials.
// The result always satisfies CheckStrength for lengths of 8 or more.
func GenerateTempPassword(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("length must be positive")
	}

	for {
		result := make([]rune, length)
		for i := 0; i < length; i++ {
			idx, err := rand.Int(rand.Reader, big.NewInt(int64(len(tempPasswordCharset))))
			if err != nil {
				return "", err
			}
			result[i] = tempPasswordCharset[idx.Int64()]
		}
		candidate := string(result)
		if length < MinPasswordLength || CheckStrength(candidate) == nil {
			return candidate, nil
		}
	}
}
