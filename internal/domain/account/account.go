package account

import (
	"time"
)

// State is the lifecycle state of an account.
type State string

const (
	StateActive  State = "ACTIVE"
	StateDeleted State = "DELETED"
)

// Type classifies an account's role in the clearing flow.
type Type string

const (
	TypePosition   Type = "POSITION"
	TypeSettlement Type = "SETTLEMENT"
	TypeHub        Type = "HUB"
	TypeLiquidity  Type = "LIQUIDITY"
)

// Account represents a ledger account. Balances are stored as non-negative
// integers in minor units of the account's currency and only grow: journal
// entry application is the single mutation path. CurrencyDecimals is fixed
// at creation and never changes afterwards.
type Account struct {
	ID                        string     `json:"id"`
	ExternalID                string     `json:"external_id,omitempty"`
	State                     State      `json:"state"`
	Type                      Type       `json:"type"`
	CurrencyCode              string     `json:"currency_code"`
	CurrencyDecimals          uint       `json:"currency_decimals"`
	CreditBalance             int64      `json:"credit_balance"`
	DebitBalance              int64      `json:"debit_balance"`
	TimestampLastJournalEntry *time.Time `json:"timestamp_last_journal_entry,omitempty"`
}

// AvailableBalance is the amount the account can still be debited for.
func (a *Account) AvailableBalance() int64 {
	return a.CreditBalance - a.DebitBalance
}

// ValidType reports whether t is one of the defined account types.
func ValidType(t Type) bool {
	switch t {
	case TypePosition, TypeSettlement, TypeHub, TypeLiquidity:
		return true
	}
	return false
}

// ValidState reports whether s is one of the defined account states.
func ValidState(s State) bool {
	return s == StateActive || s == StateDeleted
}
