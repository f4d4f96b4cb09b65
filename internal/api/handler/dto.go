package handler

import (
	"time"

	"github.com/clearwave-ledger/internal/currency"
	"github.com/clearwave-ledger/internal/domain/account"
	"github.com/clearwave-ledger/internal/domain/journal"
	"github.com/clearwave-ledger/internal/ledger"
	"github.com/clearwave-ledger/internal/settlement"
)

// Monetary amounts and balances cross the wire as decimal strings, never
// as binary floating point. Optional creation fields are pointers so an
// omitted field is distinguishable from an empty one.

// CreateAccountRequest is the payload for account creation.
type CreateAccountRequest struct {
	ID                        *string    `json:"id"`
	ExternalID                *string    `json:"external_id"`
	State                     string     `json:"state"`
	Type                      string     `json:"type"`
	CurrencyCode              string     `json:"currency_code"`
	CurrencyDecimals          *uint      `json:"currency_decimals"`
	CreditBalance             *string    `json:"credit_balance"`
	DebitBalance              *string    `json:"debit_balance"`
	TimestampLastJournalEntry *time.Time `json:"timestamp_last_journal_entry"`
}

func (r *CreateAccountRequest) toProposal() ledger.NewAccount {
	return ledger.NewAccount{
		ID:                        r.ID,
		ExternalID:                r.ExternalID,
		State:                     account.State(r.State),
		Type:                      account.Type(r.Type),
		CurrencyCode:              r.CurrencyCode,
		CurrencyDecimals:          r.CurrencyDecimals,
		CreditBalance:             r.CreditBalance,
		DebitBalance:              r.DebitBalance,
		TimestampLastJournalEntry: r.TimestampLastJournalEntry,
	}
}

// AccountResponse is the wire representation of an account.
type AccountResponse struct {
	ID                        string `json:"id"`
	ExternalID                string `json:"external_id,omitempty"`
	State                     string `json:"state"`
	Type                      string `json:"type"`
	CurrencyCode              string `json:"currency_code"`
	CurrencyDecimals          uint   `json:"currency_decimals"`
	CreditBalance             string `json:"credit_balance"`
	DebitBalance              string `json:"debit_balance"`
	AvailableBalance          string `json:"available_balance"`
	TimestampLastJournalEntry string `json:"timestamp_last_journal_entry,omitempty"`
}

func mapAccountToResponse(acc *account.Account) AccountResponse {
	resp := AccountResponse{
		ID:               acc.ID,
		ExternalID:       acc.ExternalID,
		State:            string(acc.State),
		Type:             string(acc.Type),
		CurrencyCode:     acc.CurrencyCode,
		CurrencyDecimals: acc.CurrencyDecimals,
		CreditBalance:    currency.FromMinorUnits(acc.CreditBalance, acc.CurrencyDecimals),
		DebitBalance:     currency.FromMinorUnits(acc.DebitBalance, acc.CurrencyDecimals),
		AvailableBalance: currency.FromMinorUnits(acc.AvailableBalance(), acc.CurrencyDecimals),
	}
	if acc.TimestampLastJournalEntry != nil {
		resp.TimestampLastJournalEntry = acc.TimestampLastJournalEntry.Format(time.RFC3339Nano)
	}
	return resp
}

// CreateJournalEntryRequest is one item of a journal entry batch.
type CreateJournalEntryRequest struct {
	ID                *string    `json:"id"`
	ExternalID        *string    `json:"external_id"`
	ExternalCategory  *string    `json:"external_category"`
	CurrencyCode      string     `json:"currency_code"`
	CurrencyDecimals  *uint      `json:"currency_decimals"`
	Amount            string     `json:"amount"`
	CreditedAccountID string     `json:"credited_account_id"`
	DebitedAccountID  string     `json:"debited_account_id"`
	Timestamp         *time.Time `json:"timestamp"`
}

func (r *CreateJournalEntryRequest) toProposal() ledger.NewJournalEntry {
	return ledger.NewJournalEntry{
		ID:                r.ID,
		ExternalID:        r.ExternalID,
		ExternalCategory:  r.ExternalCategory,
		CurrencyCode:      r.CurrencyCode,
		CurrencyDecimals:  r.CurrencyDecimals,
		Amount:            r.Amount,
		CreditedAccountID: r.CreditedAccountID,
		DebitedAccountID:  r.DebitedAccountID,
		Timestamp:         r.Timestamp,
	}
}

// CreateJournalEntriesRequest is the batch payload. Entries are processed
// strictly in order and are not all-or-nothing.
type CreateJournalEntriesRequest struct {
	Entries []CreateJournalEntryRequest `json:"entries" binding:"required,min=1"`
}

// CreateJournalEntriesResponse reports the ids created. On partial failure
// FailedIndex points at the first entry that was rejected; the entries
// before it stay committed.
type CreateJournalEntriesResponse struct {
	CreatedIDs  []string `json:"created_ids"`
	FailedIndex *int     `json:"failed_index,omitempty"`
}

// JournalEntryResponse is the wire representation of a journal entry.
type JournalEntryResponse struct {
	ID                string `json:"id"`
	ExternalID        string `json:"external_id,omitempty"`
	ExternalCategory  string `json:"external_category,omitempty"`
	CurrencyCode      string `json:"currency_code"`
	CurrencyDecimals  uint   `json:"currency_decimals"`
	Amount            string `json:"amount"`
	CreditedAccountID string `json:"credited_account_id"`
	DebitedAccountID  string `json:"debited_account_id"`
	Timestamp         string `json:"timestamp"`
}

func mapEntryToResponse(entry *journal.Entry) JournalEntryResponse {
	return JournalEntryResponse{
		ID:                entry.ID,
		ExternalID:        entry.ExternalID,
		ExternalCategory:  entry.ExternalCategory,
		CurrencyCode:      entry.CurrencyCode,
		CurrencyDecimals:  entry.CurrencyDecimals,
		Amount:            currency.FromMinorUnits(entry.Amount, entry.CurrencyDecimals),
		CreditedAccountID: entry.CreditedAccountID,
		DebitedAccountID:  entry.DebitedAccountID,
		Timestamp:         entry.Timestamp.Format(time.RFC3339Nano),
	}
}

// LiquidityRequestItem is one item of a reservation protocol batch.
type LiquidityRequestItem struct {
	Kind                    string `json:"kind" binding:"required"`
	RequestID               string `json:"request_id"`
	TransferID              string `json:"transfer_id"`
	PayerPositionAccountID  string `json:"payer_position_account_id"`
	PayerLiquidityAccountID string `json:"payer_liquidity_account_id,omitempty"`
	PayeePositionAccountID  string `json:"payee_position_account_id,omitempty"`
	HubAccountID            string `json:"hub_account_id"`
	Amount                  string `json:"amount"`
	CurrencyCode            string `json:"currency_code"`
	NetDebitCap             string `json:"net_debit_cap,omitempty"`
}

func (r *LiquidityRequestItem) toRequest() settlement.Request {
	return settlement.Request{
		Kind:                    settlement.RequestKind(r.Kind),
		RequestID:               r.RequestID,
		TransferID:              r.TransferID,
		PayerPositionAccountID:  r.PayerPositionAccountID,
		PayerLiquidityAccountID: r.PayerLiquidityAccountID,
		PayeePositionAccountID:  r.PayeePositionAccountID,
		HubAccountID:            r.HubAccountID,
		Amount:                  r.Amount,
		CurrencyCode:            r.CurrencyCode,
		NetDebitCap:             r.NetDebitCap,
	}
}

// LiquidityBatchRequest is the reservation protocol batch payload.
type LiquidityBatchRequest struct {
	Requests []LiquidityRequestItem `json:"requests" binding:"required,min=1"`
}

// LiquidityBatchResponse carries one result per request, by position.
type LiquidityBatchResponse struct {
	Results []settlement.Result `json:"results"`
}
