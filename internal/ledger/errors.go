package ledger

import (
	"errors"
)

// Caller errors form a closed set of distinguishable kinds. Callers are
// expected to branch on them with errors.Is; none is ever retried by the
// engine.
var (
	ErrInvalidID               = errors.New("id must be a non-empty string when provided")
	ErrInvalidExternalID       = errors.New("external id must be a non-empty string when provided")
	ErrInvalidExternalCategory = errors.New("external category must be a non-empty string when provided")
	ErrInvalidCurrencyCode     = errors.New("currency code is not registered")
	ErrInvalidCurrencyDecimals = errors.New("currency decimals are derived by the engine and must not be supplied")
	ErrInvalidTimestamp        = errors.New("timestamp is assigned by the engine and must not be supplied")
	ErrInvalidCreditBalance    = errors.New("credit balance must be zero at creation")
	ErrInvalidDebitBalance     = errors.New("debit balance must be zero at creation")
	ErrInvalidAccountState     = errors.New("account state is not valid")
	ErrInvalidAccountType      = errors.New("account type is not valid")

	ErrInvalidJournalEntryAmount      = errors.New("journal entry amount must be a positive decimal string")
	ErrSameCreditedAndDebitedAccounts = errors.New("credited and debited accounts must differ")
	ErrNoSuchCreditedAccount          = errors.New("credited account does not exist")
	ErrNoSuchDebitedAccount           = errors.New("debited account does not exist")
	ErrCurrencyCodesDiffer            = errors.New("currency codes differ between entry and accounts")
	ErrInsufficientBalance            = errors.New("insufficient balance on debited account")
)

// ErrCurrencyDecimalsMismatch is an internal invariant violation: the
// decimal exponents of the entry and its accounts disagree, which signals
// upstream data corruption rather than bad input. It is logged with full
// detail and surfaced as an opaque internal failure, never as a caller
// error.
var ErrCurrencyDecimalsMismatch = errors.New("currency decimals invariant violated")

// ErrInternal is the opaque failure kind for infrastructure errors. The
// full detail is logged where the failure occurred; storage internals are
// not leaked to callers.
var ErrInternal = errors.New("internal ledger failure")
