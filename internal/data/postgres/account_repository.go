// Package postgres provides PostgreSQL implementations of the account and
// reservation repository contracts. Balance writes are single UPDATE
// statements; serialization across statements is the caller's concern.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/clearwave-ledger/internal/domain/account"
	"github.com/clearwave-ledger/internal/platform/persistence"
)

// uniqueViolation is the PostgreSQL error code for duplicate keys.
const uniqueViolation = "23505"

// AccountRepository implements the account.Repository interface for PostgreSQL
type AccountRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewAccountRepository creates a new PostgreSQL account repository.
func NewAccountRepository(logger *slog.Logger, db *persistence.PostgresDB) account.Repository {
	return &AccountRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// NewAccountRepositoryWithQuerier creates a repository over an arbitrary
// querier. Used by tests.
func NewAccountRepositoryWithQuerier(logger *slog.Logger, querier persistence.Querier) account.Repository {
	return &AccountRepository{
		querier: querier,
		logger:  logger,
	}
}

// ExistsByID reports whether an account row exists.
func (r *AccountRepository) ExistsByID(ctx context.Context, id string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM accounts WHERE id = $1)`

	var exists bool
	if err := r.querier.QueryRow(ctx, query, id).Scan(&exists); err != nil {
		r.logger.Error("Failed to check account existence", "id", id, "error", err)
		return false, fmt.Errorf("failed to check account existence: %w", err)
	}

	return exists, nil
}

// StoreNew inserts an account that must not yet exist. An id collision
// surfaces as ErrAccountAlreadyExists.
func (r *AccountRepository) StoreNew(ctx context.Context, acc *account.Account) error {
	query := `
		INSERT INTO accounts (id, external_id, state, type, currency_code, currency_decimals, credit_balance, debit_balance, timestamp_last_journal_entry)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.querier.Exec(ctx, query,
		acc.ID,
		acc.ExternalID,
		acc.State,
		acc.Type,
		acc.CurrencyCode,
		acc.CurrencyDecimals,
		acc.CreditBalance,
		acc.DebitBalance,
		acc.TimestampLastJournalEntry,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return account.ErrAccountAlreadyExists{AccountID: acc.ID}
		}
		r.logger.Error("Failed to store new account", "id", acc.ID, "error", err)
		return fmt.Errorf("failed to store new account: %w", err)
	}

	return nil
}

// GetByID retrieves an account by its ID
func (r *AccountRepository) GetByID(ctx context.Context, id string) (*account.Account, error) {
	query := `
		SELECT id, external_id, state, type, currency_code, currency_decimals, credit_balance, debit_balance, timestamp_last_journal_entry
		FROM accounts
		WHERE id = $1
	`

	var acc account.Account
	err := r.querier.QueryRow(ctx, query, id).Scan(
		&acc.ID,
		&acc.ExternalID,
		&acc.State,
		&acc.Type,
		&acc.CurrencyCode,
		&acc.CurrencyDecimals,
		&acc.CreditBalance,
		&acc.DebitBalance,
		&acc.TimestampLastJournalEntry,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, account.ErrAccountNotFound{AccountID: id}
		}
		r.logger.Error("Failed to get account", "id", id, "error", err)
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	return &acc, nil
}

// GetByExternalID retrieves all accounts sharing a correlation key. The
// key is not unique; an empty result is returned as an empty slice.
func (r *AccountRepository) GetByExternalID(ctx context.Context, externalID string) ([]*account.Account, error) {
	query := `
		SELECT id, external_id, state, type, currency_code, currency_decimals, credit_balance, debit_balance, timestamp_last_journal_entry
		FROM accounts
		WHERE external_id = $1
	`

	rows, err := r.querier.Query(ctx, query, externalID)
	if err != nil {
		r.logger.Error("Failed to get accounts by external id", "external_id", externalID, "error", err)
		return nil, fmt.Errorf("failed to get accounts by external id: %w", err)
	}
	defer rows.Close()

	var accounts []*account.Account
	for rows.Next() {
		var acc account.Account
		if err := rows.Scan(
			&acc.ID,
			&acc.ExternalID,
			&acc.State,
			&acc.Type,
			&acc.CurrencyCode,
			&acc.CurrencyDecimals,
			&acc.CreditBalance,
			&acc.DebitBalance,
			&acc.TimestampLastJournalEntry,
		); err != nil {
			r.logger.Error("Failed to scan account row", "external_id", externalID, "error", err)
			return nil, fmt.Errorf("failed to scan account row: %w", err)
		}
		accounts = append(accounts, &acc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read account rows: %w", err)
	}

	return accounts, nil
}

// UpdateCreditBalanceByID sets the credit balance and last-entry timestamp
// in one atomic statement. Returns ErrAccountNotFound when no row matched.
func (r *AccountRepository) UpdateCreditBalanceByID(ctx context.Context, id string, newBalance int64, timestamp time.Time) error {
	query := `
		UPDATE accounts
		SET credit_balance = $1, timestamp_last_journal_entry = $2
		WHERE id = $3
	`

	result, err := r.querier.Exec(ctx, query, newBalance, timestamp, id)
	if err != nil {
		r.logger.Error("Failed to update credit balance", "id", id, "error", err)
		return fmt.Errorf("failed to update credit balance: %w", err)
	}
	if result.RowsAffected() == 0 {
		return account.ErrAccountNotFound{AccountID: id}
	}

	return nil
}

// UpdateDebitBalanceByID sets the debit balance and last-entry timestamp
// in one atomic statement. Returns ErrAccountNotFound when no row matched.
func (r *AccountRepository) UpdateDebitBalanceByID(ctx context.Context, id string, newBalance int64, timestamp time.Time) error {
	query := `
		UPDATE accounts
		SET debit_balance = $1, timestamp_last_journal_entry = $2
		WHERE id = $3
	`

	result, err := r.querier.Exec(ctx, query, newBalance, timestamp, id)
	if err != nil {
		r.logger.Error("Failed to update debit balance", "id", id, "error", err)
		return fmt.Errorf("failed to update debit balance: %w", err)
	}
	if result.RowsAffected() == 0 {
		return account.ErrAccountNotFound{AccountID: id}
	}

	return nil
}
