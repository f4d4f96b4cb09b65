package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearwave-ledger/internal/domain/reservation"
)

func testReservation() *reservation.Reservation {
	now := time.Now().UTC()
	return &reservation.Reservation{
		TransferID:     "tr-1",
		RequestID:      "req-1",
		PayerAccountID: "pos-payer",
		Amount:         10000,
		CurrencyCode:   "EUR",
		NetDebitCap:    5000,
		State:          reservation.StateReserved,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func TestReservationRepository_StoreNew(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewReservationRepositoryWithQuerier(newTestLogger(), mock)
	res := testReservation()

	query := `
		INSERT INTO reservations \(transfer_id, request_id, payer_account_id, amount, currency_code, net_debit_cap, state, created_at, updated_at\)
		VALUES \(\$1, \$2, \$3, \$4, \$5, \$6, \$7, \$8, \$9\)
	`

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(res.TransferID, res.RequestID, res.PayerAccountID, res.Amount, res.CurrencyCode, res.NetDebitCap, res.State, res.CreatedAt, res.UpdatedAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		err := repo.StoreNew(ctx, res)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate transfer id", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(res.TransferID, res.RequestID, res.PayerAccountID, res.Amount, res.CurrencyCode, res.NetDebitCap, res.State, res.CreatedAt, res.UpdatedAt).
			WillReturnError(&pgconn.PgError{Code: uniqueViolation})

		err := repo.StoreNew(ctx, res)
		assert.ErrorIs(t, err, reservation.ErrReservationAlreadyExists{TransferID: res.TransferID})
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("failure", func(t *testing.T) {
		expectedErr := errors.New("db error")
		mock.ExpectExec(query).
			WithArgs(res.TransferID, res.RequestID, res.PayerAccountID, res.Amount, res.CurrencyCode, res.NetDebitCap, res.State, res.CreatedAt, res.UpdatedAt).
			WillReturnError(expectedErr)

		err := repo.StoreNew(ctx, res)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to store reservation")
		assert.ErrorIs(t, err, expectedErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestReservationRepository_GetByTransferID(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewReservationRepositoryWithQuerier(newTestLogger(), mock)
	expected := testReservation()

	query := `
		SELECT transfer_id, request_id, payer_account_id, amount, currency_code, net_debit_cap, state, created_at, updated_at
		FROM reservations
		WHERE transfer_id = \$1
	`

	t.Run("success", func(t *testing.T) {
		rows := pgxmock.NewRows([]string{"transfer_id", "request_id", "payer_account_id", "amount", "currency_code", "net_debit_cap", "state", "created_at", "updated_at"}).
			AddRow(expected.TransferID, expected.RequestID, expected.PayerAccountID, expected.Amount, expected.CurrencyCode, expected.NetDebitCap, expected.State, expected.CreatedAt, expected.UpdatedAt)
		mock.ExpectQuery(query).WithArgs(expected.TransferID).WillReturnRows(rows)

		res, err := repo.GetByTransferID(ctx, expected.TransferID)
		assert.NoError(t, err)
		assert.Equal(t, expected, res)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs("tr-missing").WillReturnError(pgx.ErrNoRows)

		res, err := repo.GetByTransferID(ctx, "tr-missing")
		assert.Nil(t, res)
		var notFound reservation.ErrReservationNotFound
		require.ErrorAs(t, err, &notFound)
		assert.Equal(t, "tr-missing", notFound.TransferID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestReservationRepository_UpdateState(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewReservationRepositoryWithQuerier(newTestLogger(), mock)
	now := time.Now().UTC()

	query := `
		UPDATE reservations
		SET state = \$1, updated_at = \$2
		WHERE transfer_id = \$3 AND state = \$4
	`

	t.Run("guarded transition succeeds", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(reservation.StateCommitted, now, "tr-1", reservation.StateReserved).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		err := repo.UpdateState(ctx, "tr-1", reservation.StateReserved, reservation.StateCommitted, now)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("state already moved", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(reservation.StateCancelled, now, "tr-1", reservation.StateReserved).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := repo.UpdateState(ctx, "tr-1", reservation.StateReserved, reservation.StateCancelled, now)
		assert.ErrorIs(t, err, reservation.ErrReservationNotFound{TransferID: "tr-1"})
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestReservationRepository_SumPendingByAccountID(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewReservationRepositoryWithQuerier(newTestLogger(), mock)

	query := `
		SELECT COALESCE\(SUM\(amount\), 0\)
		FROM reservations
		WHERE payer_account_id = \$1 AND state = \$2
	`

	t.Run("sums reserved amounts", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs("pos-payer", reservation.StateReserved).
			WillReturnRows(pgxmock.NewRows([]string{"coalesce"}).AddRow(int64(12500)))

		total, err := repo.SumPendingByAccountID(ctx, "pos-payer")
		assert.NoError(t, err)
		assert.Equal(t, int64(12500), total)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no reservations means zero", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs("pos-idle", reservation.StateReserved).
			WillReturnRows(pgxmock.NewRows([]string{"coalesce"}).AddRow(int64(0)))

		total, err := repo.SumPendingByAccountID(ctx, "pos-idle")
		assert.NoError(t, err)
		assert.Zero(t, total)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
