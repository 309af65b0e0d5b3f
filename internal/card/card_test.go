package card

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/arepera-backend/pkg/errors"
)

func TestIsValidNumber(t *testing.T) {
	cases := []struct {
		name   string
		number string
		want   bool
	}{
		{"visa test card", "4242424242424242", true},
		{"checksum off by one", "4242424242424241", false},
		{"spaces and dashes ignored", "4242-4242 4242-4242", true},
		{"twelve digits", "424242424242", false},
		{"twenty digits", "42424242424242424242", false},
		{"thirteen digit valid", "4222222222222", true},
		{"decline fixture is luhn valid", "4242424242420000", true},
		{"empty", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsValidNumber(tc.number))
		})
	}
}

func TestIsValidExpiration(t *testing.T) {
	now := time.Date(2026, time.October, 16, 12, 0, 0, 0, time.UTC)

	assert.True(t, IsValidExpiration("10/26", now), "current month is valid")
	assert.True(t, IsValidExpiration("01/27", now))
	assert.False(t, IsValidExpiration("09/26", now), "one month in the past")
	assert.False(t, IsValidExpiration("12/25", now))
	assert.False(t, IsValidExpiration("13/27", now), "month 13")
	assert.False(t, IsValidExpiration("00/27", now))
	assert.False(t, IsValidExpiration("1/27", now))
	assert.False(t, IsValidExpiration("", now))
}

func TestIsValidCVV(t *testing.T) {
	assert.True(t, IsValidCVV("123"))
	assert.True(t, IsValidCVV("1234"))
	assert.False(t, IsValidCVV("12"))
	assert.False(t, IsValidCVV("12345"))
	assert.False(t, IsValidCVV("12a"))
}

func TestMask(t *testing.T) {
	assert.Equal(t, "****4242", Mask("4242424242424242"))
	assert.Equal(t, "****4242", Mask("4242 4242 4242 4242"))
	assert.Equal(t, "****", Mask("123"))
	assert.Equal(t, "****", Mask(""))
}

func TestDataValidate(t *testing.T) {
	now := time.Date(2026, time.October, 16, 0, 0, 0, 0, time.UTC)
	valid := Data{Holder: "Ana Pérez", Number: "4242424242424242", Expiration: "12/28", CVV: "123"}
	require.NoError(t, valid.Validate(now))

	missing := valid
	missing.CVV = "  "
	err := missing.Validate(now)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidCard))

	badNumber := valid
	badNumber.Number = "4242424242424241"
	err = badNumber.Validate(now)
	require.Error(t, err)
	assert.Equal(t, map[string]any{"field": "cardNumber"}, pkgerrors.As(err).Details())
}

func TestMaskedNeverKeepsRawDigits(t *testing.T) {
	data := Data{Holder: "Ana", Number: "5555555555554444", Expiration: "12/28", CVV: "987"}
	masked := data.Masked()

	assert.Equal(t, "****4444", masked.Number)
	assert.Equal(t, MaskedCVV, masked.CVV)
	assert.False(t, strings.Contains(masked.Number, "55555"))
}

func TestIsFailureFixture(t *testing.T) {
	assert.True(t, IsFailureFixture("4242 4242 4242 0000"))
	assert.False(t, IsFailureFixture("4242424242424242"))
}
