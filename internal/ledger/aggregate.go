// Package ledger implements the ledger aggregate: validation and creation
// of accounts and journal entries, currency-aware amount conversion, the
// solvency check, and the two-step balance application.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/clearwave-ledger/internal/audit"
	"github.com/clearwave-ledger/internal/auth"
	"github.com/clearwave-ledger/internal/currency"
	"github.com/clearwave-ledger/internal/domain/account"
	"github.com/clearwave-ledger/internal/domain/journal"
)

// NewAccount is a caller-proposed account record. Optional fields are
// pointers so an omitted field is distinguishable from an empty one; the
// engine derives CurrencyDecimals and the entry timestamp itself, so both
// must be left unset. Balances cross the wire as decimal strings.
type NewAccount struct {
	ID                        *string
	ExternalID                *string
	State                     account.State
	Type                      account.Type
	CurrencyCode              string
	CurrencyDecimals          *uint
	CreditBalance             *string
	DebitBalance              *string
	TimestampLastJournalEntry *time.Time
}

// NewJournalEntry is a caller-proposed journal entry. Amount is a decimal
// string converted to minor units with the currency's registered exponent.
type NewJournalEntry struct {
	ID                *string
	ExternalID        *string
	ExternalCategory  *string
	CurrencyCode      string
	Amount            string
	CreditedAccountID string
	DebitedAccountID  string
	CurrencyDecimals  *uint
	Timestamp         *time.Time
}

// BatchError reports which item of a batch failed. Items before Index were
// already committed and are not compensated.
type BatchError struct {
	Index int
	Err   error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("journal entry %d: %v", e.Index, e.Err)
}

func (e *BatchError) Unwrap() error {
	return e.Err
}

// Options carries ledger policy knobs.
type Options struct {
	// OverdrawableTypes lists account types exempt from the solvency
	// check. Whether settlement and hub accounts may go negative is a
	// deployment decision, so it is configuration rather than a rule
	// baked into the engine.
	OverdrawableTypes []account.Type
}

// Aggregate validates and creates accounts and journal entries. It owns
// the business rules; all storage goes through the repository contracts
// and every call carries the caller's immutable context.
type Aggregate struct {
	logger       *slog.Logger
	registry     *currency.Registry
	accounts     account.Repository
	entries      journal.Repository
	authorizer   auth.Authorizer
	recorder     audit.Recorder
	overdrawable map[account.Type]struct{}
}

// NewAggregate creates a ledger aggregate.
func NewAggregate(
	logger *slog.Logger,
	registry *currency.Registry,
	accounts account.Repository,
	entries journal.Repository,
	authorizer auth.Authorizer,
	recorder audit.Recorder,
	opts Options,
) *Aggregate {
	overdrawable := make(map[account.Type]struct{}, len(opts.OverdrawableTypes))
	for _, t := range opts.OverdrawableTypes {
		overdrawable[t] = struct{}{}
	}
	return &Aggregate{
		logger:       logger,
		registry:     registry,
		accounts:     accounts,
		entries:      entries,
		authorizer:   authorizer,
		recorder:     recorder,
		overdrawable: overdrawable,
	}
}

// CreateAccount validates and persists a new account, returning its final
// id. The privilege check runs before any validation. Creation-only fields
// (decimals, timestamp, balances) must be caller-blank so every account
// starts at zero with engine-derived decimals.
func (a *Aggregate) CreateAccount(ctx context.Context, caller auth.CallerContext, proposed NewAccount) (string, error) {
	if err := a.authorizer.Authorize(caller, auth.CapCreateAccount); err != nil {
		return "", err
	}

	if proposed.CurrencyDecimals != nil {
		return "", ErrInvalidCurrencyDecimals
	}
	if proposed.TimestampLastJournalEntry != nil {
		return "", ErrInvalidTimestamp
	}
	if !isBlankOrZero(proposed.CreditBalance) {
		return "", ErrInvalidCreditBalance
	}
	if !isBlankOrZero(proposed.DebitBalance) {
		return "", ErrInvalidDebitBalance
	}

	if proposed.ID != nil && *proposed.ID == "" {
		return "", ErrInvalidID
	}
	if proposed.ExternalID != nil && *proposed.ExternalID == "" {
		return "", ErrInvalidExternalID
	}

	state := proposed.State
	if state == "" {
		state = account.StateActive
	}
	if !account.ValidState(state) {
		return "", ErrInvalidAccountState
	}
	if !account.ValidType(proposed.Type) {
		return "", ErrInvalidAccountType
	}

	decimals, err := a.registry.Decimals(proposed.CurrencyCode)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrInvalidCurrencyCode, proposed.CurrencyCode)
	}

	id := uuid.New().String()
	if proposed.ID != nil {
		id = *proposed.ID
	}

	acc := &account.Account{
		ID:               id,
		State:            state,
		Type:             proposed.Type,
		CurrencyCode:     proposed.CurrencyCode,
		CurrencyDecimals: decimals,
	}
	if proposed.ExternalID != nil {
		acc.ExternalID = *proposed.ExternalID
	}

	if err := a.accounts.StoreNew(ctx, acc); err != nil {
		if errors.Is(err, account.ErrAccountAlreadyExists{}) {
			return "", err
		}
		a.logger.Error("Failed to store new account", "account_id", id, "error", err)
		return "", ErrInternal
	}

	a.recorder.Record(audit.Event{
		Kind:       audit.KindAccountCreated,
		Actor:      caller.Subject,
		AccountID:  id,
		OccurredAt: time.Now().UTC(),
	})

	return id, nil
}

// CreateJournalEntry validates and persists a single journal entry and
// applies its balance movements.
func (a *Aggregate) CreateJournalEntry(ctx context.Context, caller auth.CallerContext, proposed NewJournalEntry) (string, error) {
	ids, err := a.CreateJournalEntries(ctx, caller, []NewJournalEntry{proposed})
	if err != nil {
		var batchErr *BatchError
		if errors.As(err, &batchErr) {
			return "", batchErr.Err
		}
		return "", err
	}
	return ids[0], nil
}

// CreateJournalEntries processes the batch strictly in input order, one
// entry at a time. The batch is NOT all-or-nothing: when entry k fails,
// entries 0..k-1 stay committed and their ids are returned alongside a
// BatchError for entry k. No compensation of prior entries is attempted.
func (a *Aggregate) CreateJournalEntries(ctx context.Context, caller auth.CallerContext, proposed []NewJournalEntry) ([]string, error) {
	if err := a.authorizer.Authorize(caller, auth.CapCreateJournalEntry); err != nil {
		return nil, err
	}

	createdIDs := make([]string, 0, len(proposed))
	for i, p := range proposed {
		id, err := a.createJournalEntry(ctx, p)
		if err != nil {
			return createdIDs, &BatchError{Index: i, Err: err}
		}
		createdIDs = append(createdIDs, id)

		a.recorder.Record(audit.Event{
			Kind:       audit.KindJournalEntryCreated,
			Actor:      caller.Subject,
			EntryID:    id,
			OccurredAt: time.Now().UTC(),
		})
	}

	return createdIDs, nil
}

// createJournalEntry runs the fixed validation sequence for one entry and
// persists it: creation-only blanks, id shape, currency resolution, amount
// conversion, account checks, solvency, store, balance application.
func (a *Aggregate) createJournalEntry(ctx context.Context, proposed NewJournalEntry) (string, error) {
	if proposed.CurrencyDecimals != nil {
		return "", ErrInvalidCurrencyDecimals
	}
	if proposed.Timestamp != nil {
		return "", ErrInvalidTimestamp
	}

	if proposed.ID != nil && *proposed.ID == "" {
		return "", ErrInvalidID
	}
	if proposed.ExternalID != nil && *proposed.ExternalID == "" {
		return "", ErrInvalidExternalID
	}
	if proposed.ExternalCategory != nil && *proposed.ExternalCategory == "" {
		return "", ErrInvalidExternalCategory
	}

	decimals, err := a.registry.Decimals(proposed.CurrencyCode)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrInvalidCurrencyCode, proposed.CurrencyCode)
	}

	amount, err := currency.ToMinorUnits(proposed.Amount, decimals)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidJournalEntryAmount, err)
	}

	// The entry timestamp is the server's clock; a caller-supplied value
	// was already rejected above.
	timestamp := time.Now().UTC()

	if proposed.CreditedAccountID == proposed.DebitedAccountID {
		return "", ErrSameCreditedAndDebitedAccounts
	}

	credited, err := a.accounts.GetByID(ctx, proposed.CreditedAccountID)
	if err != nil {
		if errors.Is(err, account.ErrAccountNotFound{}) {
			return "", ErrNoSuchCreditedAccount
		}
		a.logger.Error("Failed to load credited account", "account_id", proposed.CreditedAccountID, "error", err)
		return "", ErrInternal
	}

	debited, err := a.accounts.GetByID(ctx, proposed.DebitedAccountID)
	if err != nil {
		if errors.Is(err, account.ErrAccountNotFound{}) {
			return "", ErrNoSuchDebitedAccount
		}
		a.logger.Error("Failed to load debited account", "account_id", proposed.DebitedAccountID, "error", err)
		return "", ErrInternal
	}

	if credited.CurrencyCode != proposed.CurrencyCode || debited.CurrencyCode != proposed.CurrencyCode {
		return "", ErrCurrencyCodesDiffer
	}

	// A decimals disagreement cannot come from the caller: decimals are
	// engine-derived at account creation. It means stored data is corrupt.
	if credited.CurrencyDecimals != decimals || debited.CurrencyDecimals != decimals {
		a.logger.Error("Currency decimals invariant violated",
			"currency_code", proposed.CurrencyCode,
			"entry_decimals", decimals,
			"credited_account_id", credited.ID,
			"credited_decimals", credited.CurrencyDecimals,
			"debited_account_id", debited.ID,
			"debited_decimals", debited.CurrencyDecimals,
		)
		return "", ErrCurrencyDecimalsMismatch
	}

	if !a.canOverdraw(debited.Type) && amount > debited.AvailableBalance() {
		return "", ErrInsufficientBalance
	}

	id := uuid.New().String()
	if proposed.ID != nil {
		id = *proposed.ID
	}

	entry := &journal.Entry{
		ID:                id,
		CurrencyCode:      proposed.CurrencyCode,
		CurrencyDecimals:  decimals,
		Amount:            amount,
		CreditedAccountID: proposed.CreditedAccountID,
		DebitedAccountID:  proposed.DebitedAccountID,
		Timestamp:         timestamp,
	}
	if proposed.ExternalID != nil {
		entry.ExternalID = *proposed.ExternalID
	}
	if proposed.ExternalCategory != nil {
		entry.ExternalCategory = *proposed.ExternalCategory
	}

	if err := a.entries.StoreNew(ctx, entry); err != nil {
		if errors.Is(err, journal.ErrEntryAlreadyExists{}) {
			return "", err
		}
		a.logger.Error("Failed to store new journal entry", "entry_id", id, "error", err)
		return "", ErrInternal
	}

	if err := a.ApplyEntry(ctx, entry); err != nil {
		return "", err
	}

	return id, nil
}

// ApplyEntry applies a stored entry's movements to its two accounts: the
// credited account's credit balance and the debited account's debit
// balance each grow by the entry amount. The two writes are separate
// single-row updates, not one transaction; the stored entry is the durable
// fact, and this operation can be re-run for the same entry after a crash.
// An account whose last-entry timestamp is at or past the entry's
// timestamp has already absorbed it and is skipped, which is what makes
// the replay safe.
func (a *Aggregate) ApplyEntry(ctx context.Context, entry *journal.Entry) error {
	credited, err := a.accounts.GetByID(ctx, entry.CreditedAccountID)
	if err != nil {
		a.logger.Error("Failed to load credited account for balance application", "account_id", entry.CreditedAccountID, "entry_id", entry.ID, "error", err)
		return ErrInternal
	}
	if !alreadyApplied(credited, entry) {
		newBalance := credited.CreditBalance + entry.Amount
		if err := a.accounts.UpdateCreditBalanceByID(ctx, credited.ID, newBalance, entry.Timestamp); err != nil {
			a.logger.Error("Failed to update credited account balance", "account_id", credited.ID, "entry_id", entry.ID, "error", err)
			return ErrInternal
		}
	}

	debited, err := a.accounts.GetByID(ctx, entry.DebitedAccountID)
	if err != nil {
		a.logger.Error("Failed to load debited account for balance application", "account_id", entry.DebitedAccountID, "entry_id", entry.ID, "error", err)
		return ErrInternal
	}
	if !alreadyApplied(debited, entry) {
		newBalance := debited.DebitBalance + entry.Amount
		if err := a.accounts.UpdateDebitBalanceByID(ctx, debited.ID, newBalance, entry.Timestamp); err != nil {
			a.logger.Error("Failed to update debited account balance", "account_id", debited.ID, "entry_id", entry.ID, "error", err)
			return ErrInternal
		}
	}

	return nil
}

// GetAccountByID loads a single account.
func (a *Aggregate) GetAccountByID(ctx context.Context, caller auth.CallerContext, id string) (*account.Account, error) {
	if err := a.authorizer.Authorize(caller, auth.CapViewAccount); err != nil {
		return nil, err
	}

	acc, err := a.accounts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, account.ErrAccountNotFound{}) {
			return nil, err
		}
		a.logger.Error("Failed to get account", "account_id", id, "error", err)
		return nil, ErrInternal
	}
	return acc, nil
}

// GetAccountsByExternalID loads all accounts sharing a correlation key.
func (a *Aggregate) GetAccountsByExternalID(ctx context.Context, caller auth.CallerContext, externalID string) ([]*account.Account, error) {
	if err := a.authorizer.Authorize(caller, auth.CapViewAccount); err != nil {
		return nil, err
	}
	if externalID == "" {
		return nil, ErrInvalidExternalID
	}

	accounts, err := a.accounts.GetByExternalID(ctx, externalID)
	if err != nil {
		a.logger.Error("Failed to get accounts by external id", "external_id", externalID, "error", err)
		return nil, ErrInternal
	}
	return accounts, nil
}

// GetJournalEntriesByAccountID loads paginated entries touching an account.
func (a *Aggregate) GetJournalEntriesByAccountID(ctx context.Context, caller auth.CallerContext, accountID string, limit, offset int) ([]*journal.Entry, error) {
	if err := a.authorizer.Authorize(caller, auth.CapViewJournalEntry); err != nil {
		return nil, err
	}

	entries, err := a.entries.GetByAccountID(ctx, accountID, limit, offset)
	if err != nil {
		a.logger.Error("Failed to get journal entries", "account_id", accountID, "error", err)
		return nil, ErrInternal
	}
	return entries, nil
}

func (a *Aggregate) canOverdraw(t account.Type) bool {
	_, ok := a.overdrawable[t]
	return ok
}

// alreadyApplied reports whether the account has absorbed this entry (or a
// later one). Under normal sequential operation the account's last-entry
// timestamp trails any new entry.
func alreadyApplied(acc *account.Account, entry *journal.Entry) bool {
	return acc.TimestampLastJournalEntry != nil && !acc.TimestampLastJournalEntry.Before(entry.Timestamp)
}

// isBlankOrZero accepts an unset balance or a decimal string worth exactly
// zero; anything else fails the creation-only rule.
func isBlankOrZero(balance *string) bool {
	if balance == nil || *balance == "" {
		return true
	}
	d, err := decimal.NewFromString(*balance)
	if err != nil {
		return false
	}
	return d.IsZero()
}
