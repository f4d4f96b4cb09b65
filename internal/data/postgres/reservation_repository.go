package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/clearwave-ledger/internal/domain/reservation"
	"github.com/clearwave-ledger/internal/platform/persistence"
)

// ReservationRepository implements the reservation.Repository interface
// for PostgreSQL. Reservations live next to accounts: they are the pending
// portion of a position account's balance.
type ReservationRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewReservationRepository creates a new PostgreSQL reservation repository.
func NewReservationRepository(logger *slog.Logger, db *persistence.PostgresDB) reservation.Repository {
	return &ReservationRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// NewReservationRepositoryWithQuerier creates a repository over an
// arbitrary querier. Used by tests.
func NewReservationRepositoryWithQuerier(logger *slog.Logger, querier persistence.Querier) reservation.Repository {
	return &ReservationRepository{
		querier: querier,
		logger:  logger,
	}
}

// GetByTransferID retrieves a reservation by its transfer id.
func (r *ReservationRepository) GetByTransferID(ctx context.Context, transferID string) (*reservation.Reservation, error) {
	query := `
		SELECT transfer_id, request_id, payer_account_id, amount, currency_code, net_debit_cap, state, created_at, updated_at
		FROM reservations
		WHERE transfer_id = $1
	`

	var res reservation.Reservation
	err := r.querier.QueryRow(ctx, query, transferID).Scan(
		&res.TransferID,
		&res.RequestID,
		&res.PayerAccountID,
		&res.Amount,
		&res.CurrencyCode,
		&res.NetDebitCap,
		&res.State,
		&res.CreatedAt,
		&res.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, reservation.ErrReservationNotFound{TransferID: transferID}
		}
		r.logger.Error("Failed to get reservation", "transfer_id", transferID, "error", err)
		return nil, fmt.Errorf("failed to get reservation: %w", err)
	}

	return &res, nil
}

// StoreNew inserts a reservation that must not yet exist. A transfer id
// collision surfaces as ErrReservationAlreadyExists.
func (r *ReservationRepository) StoreNew(ctx context.Context, res *reservation.Reservation) error {
	query := `
		INSERT INTO reservations (transfer_id, request_id, payer_account_id, amount, currency_code, net_debit_cap, state, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.querier.Exec(ctx, query,
		res.TransferID,
		res.RequestID,
		res.PayerAccountID,
		res.Amount,
		res.CurrencyCode,
		res.NetDebitCap,
		res.State,
		res.CreatedAt,
		res.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return reservation.ErrReservationAlreadyExists{TransferID: res.TransferID}
		}
		r.logger.Error("Failed to store reservation", "transfer_id", res.TransferID, "error", err)
		return fmt.Errorf("failed to store reservation: %w", err)
	}

	return nil
}

// UpdateState moves a reservation between states with a guard on the
// previous state, so a transition happens at most once even under
// concurrent retries. Returns ErrReservationNotFound when no row in
// fromState matched.
func (r *ReservationRepository) UpdateState(ctx context.Context, transferID string, fromState, toState reservation.State, updatedAt time.Time) error {
	query := `
		UPDATE reservations
		SET state = $1, updated_at = $2
		WHERE transfer_id = $3 AND state = $4
	`

	result, err := r.querier.Exec(ctx, query, toState, updatedAt, transferID, fromState)
	if err != nil {
		r.logger.Error("Failed to update reservation state", "transfer_id", transferID, "to_state", string(toState), "error", err)
		return fmt.Errorf("failed to update reservation state: %w", err)
	}
	if result.RowsAffected() == 0 {
		return reservation.ErrReservationNotFound{TransferID: transferID}
	}

	return nil
}

// SumPendingByAccountID totals the amounts still reserved against the
// account.
func (r *ReservationRepository) SumPendingByAccountID(ctx context.Context, accountID string) (int64, error) {
	query := `
		SELECT COALESCE(SUM(amount), 0)
		FROM reservations
		WHERE payer_account_id = $1 AND state = $2
	`

	var total int64
	if err := r.querier.QueryRow(ctx, query, accountID, reservation.StateReserved).Scan(&total); err != nil {
		r.logger.Error("Failed to sum pending reservations", "account_id", accountID, "error", err)
		return 0, fmt.Errorf("failed to sum pending reservations: %w", err)
	}

	return total, nil
}
