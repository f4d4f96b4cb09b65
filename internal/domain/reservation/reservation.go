package reservation

import (
	"time"
)

// State is the lifecycle state of a reservation. Transitions are
// Reserved -> Committed or Reserved -> Cancelled; both are terminal.
type State string

const (
	StateReserved  State = "RESERVED"
	StateCommitted State = "COMMITTED"
	StateCancelled State = "CANCELLED"
)

// Reservation is a pending, not-yet-final debit held against a payer's
// position account, keyed by the transfer identifier. It carries the
// pending portion of the position account's balance until it is committed
// into a final movement or cancelled and released.
type Reservation struct {
	TransferID     string    `json:"transfer_id"`
	RequestID      string    `json:"request_id,omitempty"` // client correlation only
	PayerAccountID string    `json:"payer_account_id"`
	Amount         int64     `json:"amount"` // minor units
	CurrencyCode   string    `json:"currency_code"`
	NetDebitCap    int64     `json:"net_debit_cap"`
	State          State     `json:"state"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
