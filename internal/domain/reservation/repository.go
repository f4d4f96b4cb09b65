package reservation

import (
	"context"
	"time"
)

// Repository manages reservation persistence. Reservations share storage
// with accounts: they hold the pending portion of a position account's
// balance.
type Repository interface {
	// GetByTransferID returns ErrReservationNotFound if no reservation
	// exists for the transfer.
	GetByTransferID(ctx context.Context, transferID string) (*Reservation, error)

	// StoreNew persists a reservation that must not yet exist.
	// Returns ErrReservationAlreadyExists on transfer id collision.
	StoreNew(ctx context.Context, res *Reservation) error

	// UpdateState moves the reservation from fromState to toState. Returns
	// ErrReservationNotFound when no reservation in fromState matched,
	// which makes the transition safe against concurrent retries.
	UpdateState(ctx context.Context, transferID string, fromState, toState State, updatedAt time.Time) error

	// SumPendingByAccountID returns the total amount currently reserved
	// against the account, i.e. the sum over reservations still in
	// StateReserved.
	SumPendingByAccountID(ctx context.Context, accountID string) (int64, error)
}

// ErrReservationNotFound indicates no reservation matched the transfer id
// (or the expected state, for guarded transitions).
type ErrReservationNotFound struct {
	TransferID string
}

func (e ErrReservationNotFound) Error() string {
	return "reservation not found for transfer: " + e.TransferID
}

// Is matches any ErrReservationNotFound when the target carries no id.
func (e ErrReservationNotFound) Is(target error) bool {
	t, ok := target.(ErrReservationNotFound)
	if !ok {
		return false
	}
	return t.TransferID == "" || t.TransferID == e.TransferID
}

// ErrReservationAlreadyExists indicates a transfer id collision on creation.
type ErrReservationAlreadyExists struct {
	TransferID string
}

func (e ErrReservationAlreadyExists) Error() string {
	return "reservation already exists for transfer: " + e.TransferID
}

// Is matches any ErrReservationAlreadyExists when the target carries no id.
func (e ErrReservationAlreadyExists) Is(target error) bool {
	t, ok := target.(ErrReservationAlreadyExists)
	if !ok {
		return false
	}
	return t.TransferID == "" || t.TransferID == e.TransferID
}
