package models

import "github.com/shopspring/decimal"

// minorDigits is the number of minor-unit digits used when rendering amounts.
const minorDigits = 2

// Amount is a monetary value in minor currency units.
type Amount int64

// Decimal returns the amount in major units.
func (a Amount) Decimal() decimal.Decimal {
	return decimal.New(int64(a), -minorDigits)
}

// String renders the amount in major units, e.g. Amount(1234) -> "12.34".
func (a Amount) String() string {
	return a.Decimal().StringFixed(minorDigits)
}

// Abs returns the absolute value.
func (a Amount) Abs() Amount {
	if a < 0 {
		return -a
	}
	return a
}

// AmountFromDecimal converts a major-unit decimal to minor units using
// banker's rounding.
func AmountFromDecimal(d decimal.Decimal) Amount {
	return Amount(d.Shift(minorDigits).RoundBank(0).IntPart())
}
