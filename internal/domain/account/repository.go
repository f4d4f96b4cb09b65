package account

import (
	"context"
	"time"
)

// Repository defines account persistence operations. Balance updates take
// the new absolute balance and are executed as a single atomic statement;
// serializing concurrent read-modify-write sequences is not the
// repository's job.
type Repository interface {
	ExistsByID(ctx context.Context, id string) (bool, error)

	// StoreNew persists an account that must not yet exist.
	// Returns ErrAccountAlreadyExists on id collision.
	StoreNew(ctx context.Context, acc *Account) error

	// GetByID returns ErrAccountNotFound if the account doesn't exist.
	GetByID(ctx context.Context, id string) (*Account, error)

	// GetByExternalID returns all accounts sharing the correlation key.
	// The external id is not unique; an empty result is not an error.
	GetByExternalID(ctx context.Context, externalID string) ([]*Account, error)

	// UpdateCreditBalanceByID sets the account's credit balance and last
	// journal entry timestamp. Returns ErrAccountNotFound when no row was
	// affected.
	UpdateCreditBalanceByID(ctx context.Context, id string, newBalance int64, timestamp time.Time) error

	// UpdateDebitBalanceByID sets the account's debit balance and last
	// journal entry timestamp. Returns ErrAccountNotFound when no row was
	// affected.
	UpdateDebitBalanceByID(ctx context.Context, id string, newBalance int64, timestamp time.Time) error
}

// ErrAccountNotFound indicates a missing account.
type ErrAccountNotFound struct {
	AccountID string
}

func (e ErrAccountNotFound) Error() string {
	return "account not found: " + e.AccountID
}

// Is matches any ErrAccountNotFound when the target carries no id.
func (e ErrAccountNotFound) Is(target error) bool {
	t, ok := target.(ErrAccountNotFound)
	if !ok {
		return false
	}
	return t.AccountID == "" || t.AccountID == e.AccountID
}

// ErrAccountAlreadyExists indicates an id collision on creation.
type ErrAccountAlreadyExists struct {
	AccountID string
}

func (e ErrAccountAlreadyExists) Error() string {
	return "account already exists: " + e.AccountID
}

// Is matches any ErrAccountAlreadyExists when the target carries no id.
func (e ErrAccountAlreadyExists) Is(target error) bool {
	t, ok := target.(ErrAccountAlreadyExists)
	if !ok {
		return false
	}
	return t.AccountID == "" || t.AccountID == e.AccountID
}
