// Package card validates and masks payment card input. Nothing here
// performs I/O and raw card numbers never leave the caller.
package card

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	pkgerrors "github.com/angelmondragon/arepera-backend/pkg/errors"
)

const (
	minDigits   = 13
	maxDigits   = 19
	maskPrefix  = "****"
	MaskedCVV   = "***"
	failureTail = "0000"
)

var (
	cvvPattern        = regexp.MustCompile(`^\d{3,4}$`)
	expirationPattern = regexp.MustCompile(`^(\d{2})/(\d{2})$`)
)

// Digits strips everything except decimal digits.
func Digits(number string) string {
	var b strings.Builder
	b.Grow(len(number))
	for _, r := range number {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// IsValidNumber applies the length bounds and the Luhn checksum.
func IsValidNumber(number string) bool {
	digits := Digits(number)
	if len(digits) < minDigits || len(digits) > maxDigits {
		return false
	}

	sum := 0
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		d := int(digits[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}

// IsValidExpiration accepts MM/YY dates in the current month or later.
func IsValidExpiration(value string, now time.Time) bool {
	match := expirationPattern.FindStringSubmatch(strings.TrimSpace(value))
	if match == nil {
		return false
	}
	month, err := strconv.Atoi(match[1])
	if err != nil || month < 1 || month > 12 {
		return false
	}
	year, err := strconv.Atoi(match[2])
	if err != nil {
		return false
	}

	currentYear := now.Year() % 100
	currentMonth := int(now.Month())
	if year < currentYear {
		return false
	}
	if year == currentYear && month < currentMonth {
		return false
	}
	return true
}

func IsValidCVV(cvv string) bool {
	return cvvPattern.MatchString(cvv)
}

// Mask keeps the last four digits only.
func Mask(number string) string {
	digits := Digits(number)
	if len(digits) < 4 {
		return maskPrefix
	}
	return maskPrefix + digits[len(digits)-4:]
}

// IsFailureFixture reports whether the number is the deterministic decline fixture.
func IsFailureFixture(number string) bool {
	return strings.HasSuffix(Digits(number), failureTail)
}

// Data is the card payload submitted at checkout.
type Data struct {
	Holder     string `json:"cardHolder" validate:"required"`
	Number     string `json:"cardNumber" validate:"required"`
	Expiration string `json:"expirationDate" validate:"required"`
	CVV        string `json:"cvv" validate:"required"`
}

// Missing lists the blank fields.
func (d Data) Missing() []string {
	var missing []string
	fields := []struct {
		name  string
		value string
	}{
		{"cardHolder", d.Holder},
		{"cardNumber", d.Number},
		{"expirationDate", d.Expiration},
		{"cvv", d.CVV},
	}
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	return missing
}

// Validate returns a CodeInvalidCard error naming the first failing field.
func (d Data) Validate(now time.Time) error {
	if missing := d.Missing(); len(missing) > 0 {
		return pkgerrors.New(pkgerrors.CodeInvalidCard, "card data incomplete").
			WithDetails(map[string]any{"missing": missing})
	}
	checks := []struct {
		field string
		ok    bool
	}{
		{"cardNumber", IsValidNumber(d.Number)},
		{"expirationDate", IsValidExpiration(d.Expiration, now)},
		{"cvv", IsValidCVV(strings.TrimSpace(d.CVV))},
	}
	for _, c := range checks {
		if !c.ok {
			return pkgerrors.New(pkgerrors.CodeInvalidCard, fmt.Sprintf("invalid %s", c.field)).
				WithDetails(map[string]any{"field": c.field})
		}
	}
	return nil
}

// Masked returns a copy safe to persist or log.
func (d Data) Masked() Data {
	return Data{
		Holder:     strings.TrimSpace(d.Holder),
		Number:     Mask(d.Number),
		Expiration: strings.TrimSpace(d.Expiration),
		CVV:        MaskedCVV,
	}
}
