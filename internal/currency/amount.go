package currency

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Amount conversion errors
var (
	ErrUnparsableAmount   = errors.New("amount is not a valid decimal string")
	ErrNonPositiveAmount  = errors.New("amount must be greater than zero")
	ErrExcessivePrecision = errors.New("amount has more decimal places than the currency allows")
	ErrAmountOverflow     = errors.New("amount does not fit in 64 bits of minor units")
)

// ToMinorUnits parses a wire-format decimal string into an integer count of
// minor units for a currency with the given decimal exponent. "100.00" with
// decimals 2 becomes 10000. Rejects non-positive values, precision finer
// than the exponent, and values that overflow int64.
func ToMinorUnits(amount string, decimals uint) (int64, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrUnparsableAmount, amount)
	}
	if d.LessThanOrEqual(decimal.Zero) {
		return 0, fmt.Errorf("%w: %q", ErrNonPositiveAmount, amount)
	}

	scaled := d.Shift(int32(decimals))
	if !scaled.IsInteger() {
		return 0, fmt.Errorf("%w: %q with %d decimals", ErrExcessivePrecision, amount, decimals)
	}
	if !scaled.BigInt().IsInt64() {
		return 0, fmt.Errorf("%w: %q", ErrAmountOverflow, amount)
	}

	return scaled.IntPart(), nil
}

// NonNegativeToMinorUnits is ToMinorUnits for values that may be zero,
// such as a net debit cap. Negative values are still rejected.
func NonNegativeToMinorUnits(amount string, decimals uint) (int64, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrUnparsableAmount, amount)
	}
	if d.IsNegative() {
		return 0, fmt.Errorf("%w: %q", ErrNonPositiveAmount, amount)
	}

	scaled := d.Shift(int32(decimals))
	if !scaled.IsInteger() {
		return 0, fmt.Errorf("%w: %q with %d decimals", ErrExcessivePrecision, amount, decimals)
	}
	if !scaled.BigInt().IsInt64() {
		return 0, fmt.Errorf("%w: %q", ErrAmountOverflow, amount)
	}

	return scaled.IntPart(), nil
}

// FromMinorUnits renders a minor-unit integer as a fixed-point decimal
// string for the wire, e.g. 10000 with decimals 2 becomes "100.00".
func FromMinorUnits(units int64, decimals uint) string {
	return decimal.NewFromInt(units).Shift(-int32(decimals)).StringFixed(int32(decimals))
}
