package shared

import (
	"errors"

	"github.com/shopspring/decimal"
)

// MinorUnitsPerMajor is the number of minor units (kobo) in one major unit (naira)
const MinorUnitsPerMajor = 100

var (
	ErrInvalidAmountFormat = errors.New("amount must be a decimal number")
	ErrAmountPrecision     = errors.New("amount has more than two decimal places")
	ErrAmountOutOfRange    = errors.New("amount is out of range")
)

var maxMajorAmount = decimal.New(1, 15)

// ParseAmount converts a major-unit decimal string such as "1500.50" into minor units.
// Sign is preserved; positivity is a business rule checked by the caller.
func ParseAmount(value string) (int64, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return 0, ErrInvalidAmountFormat
	}
	if !d.Equal(d.Truncate(2)) {
		return 0, ErrAmountPrecision
	}
	if d.Abs().GreaterThanOrEqual(maxMajorAmount) {
		return 0, ErrAmountOutOfRange
	}
	return d.Shift(2).IntPart(), nil
}

// MultiplyAmount returns unit*quantity in minor units, rejecting totals that
// ParseAmount would not accept
func MultiplyAmount(unit int64, quantity int) (int64, error) {
	total := decimal.NewFromInt(unit).Mul(decimal.NewFromInt(int64(quantity)))
	if total.Abs().GreaterThanOrEqual(maxMajorAmount.Shift(2)) {
		return 0, ErrAmountOutOfRange
	}
	return total.IntPart(), nil
}

// FormatAmount renders minor units as a major-unit string with two decimals
func FormatAmount(minor int64) string {
	return decimal.New(minor, -2).StringFixed(2)
}
