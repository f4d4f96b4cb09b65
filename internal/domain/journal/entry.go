package journal

import (
	"time"
)

// Entry is a double-entry journal record: a single-currency movement of
// Amount minor units from the debited account to the credited account.
// The timestamp is assigned by the engine at creation; an entry is
// immutable once stored, with no update or delete path.
type Entry struct {
	ID                string    `json:"id" bson:"entry_id"`
	ExternalID        string    `json:"external_id,omitempty" bson:"external_id,omitempty"`
	ExternalCategory  string    `json:"external_category,omitempty" bson:"external_category,omitempty"`
	CurrencyCode      string    `json:"currency_code" bson:"currency_code"`
	CurrencyDecimals  uint      `json:"currency_decimals" bson:"currency_decimals"`
	Amount            int64     `json:"amount" bson:"amount"` // minor units, always > 0
	CreditedAccountID string    `json:"credited_account_id" bson:"credited_account_id"`
	DebitedAccountID  string    `json:"debited_account_id" bson:"debited_account_id"`
	Timestamp         time.Time `json:"timestamp" bson:"timestamp"`
}
