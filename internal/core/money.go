// Package core provides money parsing and handling utilities.
//
// Money is kept as integer cents everywhere; shopspring/decimal is only used
// at the edges to parse and render decimal strings exactly.
package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// MaxCents is the largest magnitude a money field can hold: 12 significant
// digits with 2 fractional digits.
const MaxCents int64 = 999_999_999_999

var ErrAmountOutOfRange = errors.New("amount exceeds 12 digits")

type Money struct {
	Cents int64
}

var hundred = decimal.NewFromInt(100)

// Cents builds Money from minor units.
func Cents(c int64) Money { return Money{Cents: c} }

// ParseMoney parses a signed decimal string into Money.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and performs
// half-up rounding on the third decimal place.
func ParseMoney(s string) (Money, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	return FromDecimal(d)
}

// FromDecimal rounds d half away from zero to cents.
func FromDecimal(d decimal.Decimal) (Money, error) {
	c := d.Mul(hundred).Round(0)
	if c.Abs().GreaterThan(decimal.NewFromInt(MaxCents)) {
		return Money{}, ErrAmountOutOfRange
	}
	return Money{Cents: c.IntPart()}, nil
}

// ParseDecimalToCents converts a decimal string to strictly positive cents.
//
// Examples:
//
//	ParseDecimalToCents("12.34") -> 1234, nil
//	ParseDecimalToCents("12,34") -> 1234, nil
//	ParseDecimalToCents("12.345") -> 1235, nil (rounds half up)
//	ParseDecimalToCents("12.344") -> 1234, nil
func ParseDecimalToCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return 0, ErrInvalidAmount
	}
	m, err := ParseMoney(s)
	if err != nil {
		return 0, err
	}
	if m.Cents <= 0 {
		return 0, ErrInvalidAmount
	}
	return m.Cents, nil
}

// Decimal returns the exact decimal value.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// String renders the amount with exactly two fractional digits.
func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

// Validate accepts strictly positive amounts that fit the field.
func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	if !m.InRange() {
		return ErrAmountOutOfRange
	}
	return nil
}

func (m Money) InRange() bool {
	return m.Cents <= MaxCents && m.Cents >= -MaxCents
}

func (m Money) IsNegative() bool { return m.Cents < 0 }
func (m Money) IsZero() bool     { return m.Cents == 0 }

func (m Money) Add(o Money) Money { return Money{Cents: m.Cents + o.Cents} }
func (m Money) Sub(o Money) Money { return Money{Cents: m.Cents - o.Cents} }
func (m Money) Neg() Money        { return Money{Cents: -m.Cents} }

// MarshalJSON encodes money as a decimal string ("950.00") so clients never
// see a float.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// UnmarshalJSON accepts a decimal string or a bare JSON number.
func (m *Money) UnmarshalJSON(b []byte) error {
	raw := strings.TrimSpace(string(b))
	if raw == "null" {
		*m = Money{}
		return nil
	}
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		raw = s
	}
	parsed, err := ParseMoney(raw)
	if err != nil {
		return fmt.Errorf("amount %q: %w", raw, err)
	}
	*m = parsed
	return nil
}
