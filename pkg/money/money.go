// Package money implements fixed-point amounts in YNAB milliunits.
//
// YNAB stores every amount as an integer number of milliunits (1000 per major
// currency unit). All arithmetic in this module happens on that integer so no
// floating point drift can creep into balances.
package money

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// Milliunits is a signed amount in thousandths of a major currency unit.
type Milliunits int64

const (
	// PerUnit is one major currency unit (1.00).
	PerUnit Milliunits = 1000
	// PerCent is one cent (0.01).
	PerCent Milliunits = 10
)

// ErrInvalidAmount is returned when a string cannot be read as an amount.
var ErrInvalidAmount = errors.New("invalid amount")

// FromDecimal converts a decimal major-unit value to milliunits, rounding half
// away from zero.
func FromDecimal(d decimal.Decimal) Milliunits {
	return Milliunits(d.Shift(3).Round(0).IntPart())
}

// FromFloat converts a major-unit float (e.g. -45.23) to milliunits.
func FromFloat(f float64) Milliunits {
	return FromDecimal(decimal.NewFromFloat(f))
}

// FromCents converts a number of cents to milliunits.
func FromCents(cents int64) Milliunits {
	return Milliunits(cents) * PerCent
}

// Decimal returns the amount in major units.
func (m Milliunits) Decimal() decimal.Decimal {
	return decimal.New(int64(m), -3)
}

// Float64 returns the amount in major units. Use only for display.
func (m Milliunits) Float64() float64 {
	f, _ := m.Decimal().Float64()
	return f
}

// Abs returns the absolute value.
func (m Milliunits) Abs() Milliunits {
	if m < 0 {
		return -m
	}
	return m
}

// Sign returns -1, 0 or 1.
func (m Milliunits) Sign() int {
	switch {
	case m < 0:
		return -1
	case m > 0:
		return 1
	}
	return 0
}

// IsMultipleOf reports whether m is a non-zero exact multiple of unit.
func (m Milliunits) IsMultipleOf(unit Milliunits) bool {
	return unit != 0 && m != 0 && m%unit == 0
}

// String renders the amount with two decimals, e.g. "-45.23".
func (m Milliunits) String() string {
	return m.Decimal().StringFixed(2)
}

// Display renders the amount with a currency symbol, e.g. "-$45.23".
func (m Milliunits) Display(symbol string) string {
	if m < 0 {
		return "-" + symbol + (-m).String()
	}
	return symbol + m.String()
}

// Parse reads a bank-formatted amount. Currency symbols, whitespace and
// thousands separators are ignored; a leading or trailing minus and
// parentheses both denote a negative amount. Decimal commas ("1.234,56",
// "-287,00") are recognised.
func Parse(raw string) (Milliunits, error) {
	s := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) || strings.ContainsRune(".,-+()", r) {
			return r
		}
		return -1
	}, raw)
	if s == "" {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, raw)
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}
	switch {
	case strings.HasPrefix(s, "-"):
		negative = true
		s = s[1:]
	case strings.HasSuffix(s, "-"):
		negative = true
		s = s[:len(s)-1]
	case strings.HasPrefix(s, "+"):
		s = s[1:]
	}

	s = normalizeSeparators(s)
	if s == "" || strings.ContainsAny(s, "-+()") {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, raw)
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %v", ErrInvalidAmount, raw, err)
	}
	m := FromDecimal(d)
	if negative {
		m = -m
	}
	return m, nil
}

// normalizeSeparators rewrites s so that "." is the only decimal separator and
// no grouping separators remain.
func normalizeSeparators(s string) string {
	lastDot := strings.LastIndex(s, ".")
	lastComma := strings.LastIndex(s, ",")

	switch {
	case lastComma > lastDot && lastDot >= 0:
		s = strings.ReplaceAll(s, ".", "")
		return strings.Replace(s, ",", ".", 1)
	case lastComma >= 0 && lastDot < 0:
		decimals := len(s) - lastComma - 1
		if strings.Count(s, ",") == 1 && decimals > 0 && decimals <= 2 {
			return strings.Replace(s, ",", ".", 1)
		}
		return strings.ReplaceAll(s, ",", "")
	default:
		return strings.ReplaceAll(s, ",", "")
	}
}

// Sum adds up amounts.
func Sum(amounts ...Milliunits) Milliunits {
	var total Milliunits
	for _, a := range amounts {
		total += a
	}
	return total
}
