// Package money holds the shared amount helpers. Amounts travel through the
// system as NUMERIC::text strings; arithmetic and comparison happen on decimals.
package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

func Parse(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return d, nil
}

func Format(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// Subtotal computes unit price times quantity.
func Subtotal(unitPrice string, quantity int) (decimal.Decimal, error) {
	p, err := Parse(unitPrice)
	if err != nil {
		return decimal.Zero, err
	}
	return p.Mul(decimal.NewFromInt(int64(quantity))), nil
}

// Equal reports whether two textual amounts denote the same value
// ("2500" and "2500.00" are equal).
func Equal(a, b string) bool {
	da, err := Parse(a)
	if err != nil {
		return false
	}
	db, err := Parse(b)
	if err != nil {
		return false
	}
	return da.Equal(db)
}
