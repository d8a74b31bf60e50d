package cashbook

import (
	"fmt"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Currency is the active currency of a ledger. It carries the minor-unit
// precision used to decide when two amounts are equal.
//
// The zero Currency has no fractional digit and compares amounts at a half
// unit tolerance.
type Currency struct {
	code     string
	fraction int32
	epsilon  decimal.Decimal // half a minor unit
}

// NewCurrency returns the currency for an ISO 4217 code.
func NewCurrency(code string) (Currency, error) {
	c := money.GetCurrency(code)
	if c == nil {
		return Currency{}, fmt.Errorf("unknown currency %q: %w", code, ErrInvalidArgument)
	}
	return newCurrency(c.Code, int32(c.Fraction)), nil
}

// MustCurrency is like NewCurrency but panics on error.
func MustCurrency(code string) Currency {
	c, err := NewCurrency(code)
	if err != nil {
		panic(err.Error())
	}
	return c
}

// WithFraction returns a currency that compares amounts with the given number
// of fractional digits instead of its ISO precision.
func (c Currency) WithFraction(fraction int) Currency {
	return newCurrency(c.code, int32(fraction))
}

func newCurrency(code string, fraction int32) Currency {
	return Currency{
		code:     code,
		fraction: fraction,
		epsilon:  decimal.New(5, -fraction-1),
	}
}

func (c Currency) Code() string  { return c.code }
func (c Currency) Fraction() int { return int(c.fraction) }

// Tolerance returns the difference below which two amounts are equal.
func (c Currency) Tolerance() decimal.Decimal {
	if c.epsilon.IsZero() {
		return decimal.New(5, -1)
	}
	return c.epsilon
}

// Equal reports whether a and b are equal within the currency tolerance.
func (c Currency) Equal(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThan(c.Tolerance())
}

// IsZero reports whether a is zero within the currency tolerance.
func (c Currency) IsZero(a decimal.Decimal) bool { return c.Equal(a, decimal.Zero) }

// Compare returns 0 when a and b are equal within tolerance, otherwise -1 or +1.
func (c Currency) Compare(a, b decimal.Decimal) int {
	if c.Equal(a, b) {
		return 0
	}
	return a.Cmp(b)
}

// Round rounds a to the currency minor unit.
func (c Currency) Round(a decimal.Decimal) decimal.Decimal { return a.Round(c.fraction) }

// Format returns a with the currency symbol and grouping, e.g. "$1,234.50".
func (c Currency) Format(a decimal.Decimal) string {
	if c.code == "" {
		return c.Round(a).StringFixed(c.fraction)
	}
	cur := money.New(0, c.code).Currency()
	return cur.Formatter().Format(a.Shift(c.fraction).Round(0).IntPart())
}

func (c Currency) String() string { return c.code }
