// Package pricing computes cart totals in integer minor currency units.
//
// Discount and tax amounts are rounded half-up (half away from zero) to the
// nearest minor unit.
package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// DefaultTaxRate is the storefront's fixed sales tax.
var DefaultTaxRate = decimal.RequireFromString("0.19")

var hundred = decimal.NewFromInt(100)

// Line is one priced cart row.
type Line struct {
	Quantity  int
	UnitPrice int
}

// Summary is the breakdown shown on the cart and charged at checkout.
type Summary struct {
	Subtotal              int `json:"subtotal"`
	DiscountPercent       int `json:"discountPercent"`
	Discount              int `json:"discount"`
	SubtotalAfterDiscount int `json:"subtotalAfterDiscount"`
	Tax                   int `json:"tax"`
	Total                 int `json:"total"`
}

// Calculator holds the configured tax rate.
type Calculator struct {
	taxRate decimal.Decimal
}

// NewCalculator parses rate as a fraction, e.g. "0.19".
func NewCalculator(rate string) (*Calculator, error) {
	parsed, err := decimal.NewFromString(rate)
	if err != nil {
		return nil, fmt.Errorf("parse tax rate %q: %w", rate, err)
	}
	if parsed.IsNegative() || parsed.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return nil, fmt.Errorf("tax rate %s out of range [0,1)", parsed)
	}
	return &Calculator{taxRate: parsed}, nil
}

// Default returns a calculator using DefaultTaxRate.
func Default() *Calculator {
	return &Calculator{taxRate: DefaultTaxRate}
}

// TaxRate exposes the configured rate.
func (c *Calculator) TaxRate() decimal.Decimal {
	return c.taxRate
}

// Compute prices lines with an optional discount percentage (0 for none).
// Out-of-range percentages are clamped to [0,100].
func (c *Calculator) Compute(lines []Line, discountPercent int) Summary {
	subtotal := 0
	for _, line := range lines {
		subtotal += line.Quantity * line.UnitPrice
	}

	switch {
	case discountPercent < 0:
		discountPercent = 0
	case discountPercent > 100:
		discountPercent = 100
	}

	discount := 0
	if discountPercent > 0 {
		discount = roundHalfUp(decimal.NewFromInt(int64(subtotal)).
			Mul(decimal.NewFromInt(int64(discountPercent))).
			Div(hundred))
	}
	after := subtotal - discount
	tax := roundHalfUp(decimal.NewFromInt(int64(after)).Mul(c.taxRate))

	return Summary{
		Subtotal:              subtotal,
		DiscountPercent:       discountPercent,
		Discount:              discount,
		SubtotalAfterDiscount: after,
		Tax:                   tax,
		Total:                 after + tax,
	}
}

// Compute prices lines with DefaultTaxRate.
func Compute(lines []Line, discountPercent int) Summary {
	return Default().Compute(lines, discountPercent)
}

func roundHalfUp(value decimal.Decimal) int {
	return int(value.Round(0).IntPart())
}
