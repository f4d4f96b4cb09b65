// Package currency provides the immutable currency registry and the
// conversion between wire-format decimal strings and minor-unit integers.
// Monetary amounts cross every process boundary as decimal strings; the
// scaled integer representation exists only inside the ledger engine.
package currency

import (
	"errors"
	"fmt"
)

// Common errors
var (
	ErrUnknownCurrencyCode = errors.New("unknown currency code")
)

// Registry is a fixed mapping from alphabetic currency code to its decimal
// exponent (number of minor-unit digits). It is built once at startup and
// never mutated afterwards.
type Registry struct {
	decimals map[string]uint
}

// defaultDecimals covers the currencies the clearing platform settles in.
// Overrides and additions come from configuration at startup.
var defaultDecimals = map[string]uint{
	"EUR": 2,
	"USD": 2,
	"GBP": 2,
	"CHF": 2,
	"JPY": 0,
	"KWD": 3,
	"TND": 3,
	"XOF": 0,
}

// NewRegistry builds a registry from the default currency table merged with
// the provided overrides. Overrides win on code collision.
func NewRegistry(overrides map[string]uint) *Registry {
	decimals := make(map[string]uint, len(defaultDecimals)+len(overrides))
	for code, dec := range defaultDecimals {
		decimals[code] = dec
	}
	for code, dec := range overrides {
		decimals[code] = dec
	}
	return &Registry{decimals: decimals}
}

// Decimals returns the decimal exponent registered for the given code.
// An unknown code is always a caller error, never an infrastructure failure.
func (r *Registry) Decimals(code string) (uint, error) {
	dec, ok := r.decimals[code]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownCurrencyCode, code)
	}
	return dec, nil
}

// Has reports whether the code is registered.
func (r *Registry) Has(code string) bool {
	_, ok := r.decimals[code]
	return ok
}
