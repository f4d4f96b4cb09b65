package settlement

import (
	"errors"
)

// Caller errors for reservation protocol requests. Each batch item carries
// its own outcome; these kinds end up in the item's error message and are
// never retried by the engine.
var (
	ErrUnknownRequestKind       = errors.New("unknown reservation request kind")
	ErrMissingTransferID        = errors.New("transfer id is required")
	ErrMissingPayerAccount      = errors.New("payer position account id is required")
	ErrMissingPayeeAccount      = errors.New("payee position account id is required")
	ErrMissingHubAccount        = errors.New("hub account id is required")
	ErrNoSuchPayerAccount       = errors.New("payer position account does not exist")
	ErrNoSuchPayeeAccount       = errors.New("payee position account does not exist")
	ErrNoSuchLiquidityAccount   = errors.New("payer liquidity account does not exist")
	ErrNoSuchHubAccount         = errors.New("hub account does not exist")
	ErrCurrencyCodesDiffer      = errors.New("currency codes differ between request and accounts")
	ErrInvalidAmount            = errors.New("amount must be a positive decimal string")
	ErrInvalidNetDebitCap       = errors.New("net debit cap must be a non-negative decimal string")
	ErrInvalidCurrencyCode      = errors.New("currency code is not registered")
	ErrNetDebitCapExceeded      = errors.New("net debit cap exceeded")
	ErrReservationStateConflict = errors.New("reservation is in a terminal state that conflicts with the request")
	ErrPayerAccountMismatch     = errors.New("payer account does not match the reservation")
	ErrAmountMismatch           = errors.New("amount does not match the reservation")
)

// ErrInternal is the opaque failure kind for infrastructure errors within
// a batch item. Full detail is logged where the failure occurred.
var ErrInternal = errors.New("internal settlement failure")
