// Package settlement implements the position-account reservation protocol:
// check-liquidity-and-reserve, commit, and cancel, keyed by transfer id.
// Requests arrive in heterogeneous batches with per-item outcomes.
package settlement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/clearwave-ledger/internal/audit"
	"github.com/clearwave-ledger/internal/auth"
	"github.com/clearwave-ledger/internal/currency"
	"github.com/clearwave-ledger/internal/domain/account"
	"github.com/clearwave-ledger/internal/domain/reservation"
)

// RequestKind identifies a reservation protocol operation.
type RequestKind string

const (
	KindCheckLiquidAndReserve      RequestKind = "CHECK_LIQUID_AND_RESERVE"
	KindCancelReservationAndCommit RequestKind = "CANCEL_RESERVATION_AND_COMMIT"
	KindCancelReservation          RequestKind = "CANCEL_RESERVATION"
)

// Request is one item of a reservation protocol batch. RequestID is a
// client correlation token, independent of TransferID, used only to match
// responses to requests. Amounts and the net debit cap are decimal strings.
type Request struct {
	Kind                    RequestKind
	RequestID               string
	TransferID              string
	PayerPositionAccountID  string
	PayerLiquidityAccountID string // optional, reserve only
	PayeePositionAccountID  string // commit only
	HubAccountID            string
	Amount                  string
	CurrencyCode            string
	NetDebitCap             string // reserve only
}

// Result is the outcome for the request at the same batch position.
type Result struct {
	RequestID    string `json:"request_id"`
	TransferID   string `json:"transfer_id"`
	Success      bool   `json:"success"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// Processor executes reservation protocol batches against position and
// liquidity accounts. Reservations move Absent -> Reserved ->
// {Committed, Cancelled}; the guarded state transition in storage is what
// makes commit and cancel idempotent under retry.
type Processor struct {
	logger       *slog.Logger
	registry     *currency.Registry
	accounts     account.Repository
	reservations reservation.Repository
	authorizer   auth.Authorizer
	recorder     audit.Recorder
}

// NewProcessor creates a reservation protocol processor.
func NewProcessor(
	logger *slog.Logger,
	registry *currency.Registry,
	accounts account.Repository,
	reservations reservation.Repository,
	authorizer auth.Authorizer,
	recorder audit.Recorder,
) *Processor {
	return &Processor{
		logger:       logger,
		registry:     registry,
		accounts:     accounts,
		reservations: reservations,
		authorizer:   authorizer,
		recorder:     recorder,
	}
}

// ProcessBatch handles a heterogeneous batch in one call. Items are
// validated and resolved independently and sequentially, in input order;
// the result list corresponds 1:1 by position, and one item's failure
// never aborts the rest. Only an authorization failure rejects the whole
// call, before any item is touched.
func (p *Processor) ProcessBatch(ctx context.Context, caller auth.CallerContext, requests []Request) ([]Result, error) {
	if err := p.authorizer.Authorize(caller, auth.CapProcessReservations); err != nil {
		return nil, err
	}

	results := make([]Result, len(requests))
	for i, req := range requests {
		var err error
		switch req.Kind {
		case KindCheckLiquidAndReserve:
			err = p.checkLiquidAndReserve(ctx, caller, req)
		case KindCancelReservationAndCommit:
			err = p.cancelReservationAndCommit(ctx, caller, req)
		case KindCancelReservation:
			err = p.cancelReservation(ctx, caller, req)
		default:
			err = fmt.Errorf("%w: %q", ErrUnknownRequestKind, req.Kind)
		}

		results[i] = Result{
			RequestID:  req.RequestID,
			TransferID: req.TransferID,
			Success:    err == nil,
		}
		if err != nil {
			results[i].ErrorMessage = err.Error()
		}
	}

	return results, nil
}

// checkLiquidAndReserve projects the payer's position after hypothetically
// debiting the amount; if the projection, offset by available liquidity,
// would exceed the net debit cap the request is rejected with no mutation.
// Otherwise a pending debit is booked against the payer position account,
// keyed by transfer id. A transfer that is already Reserved is not
// reserved twice.
func (p *Processor) checkLiquidAndReserve(ctx context.Context, caller auth.CallerContext, req Request) error {
	if err := requireIDs(req.TransferID, req.PayerPositionAccountID, req.HubAccountID); err != nil {
		return err
	}

	decimals, err := p.registry.Decimals(req.CurrencyCode)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidCurrencyCode, req.CurrencyCode)
	}
	amount, err := currency.ToMinorUnits(req.Amount, decimals)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}
	netDebitCap, err := currency.NonNegativeToMinorUnits(req.NetDebitCap, decimals)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidNetDebitCap, err)
	}

	payer, err := p.loadAccount(ctx, req.PayerPositionAccountID, ErrNoSuchPayerAccount)
	if err != nil {
		return err
	}
	if _, err := p.loadAccount(ctx, req.HubAccountID, ErrNoSuchHubAccount); err != nil {
		return err
	}
	if payer.CurrencyCode != req.CurrencyCode {
		return ErrCurrencyCodesDiffer
	}

	// Re-invocation with the same transfer id while already Reserved must
	// not double-reserve.
	existing, err := p.reservations.GetByTransferID(ctx, req.TransferID)
	if err != nil && !errors.Is(err, reservation.ErrReservationNotFound{}) {
		p.logger.Error("Failed to check for existing reservation", "transfer_id", req.TransferID, "error", err)
		return ErrInternal
	}
	if existing != nil {
		if existing.State == reservation.StateReserved {
			return nil
		}
		return fmt.Errorf("%w: transfer %s is %s", ErrReservationStateConflict, req.TransferID, existing.State)
	}

	pending, err := p.reservations.SumPendingByAccountID(ctx, payer.ID)
	if err != nil {
		p.logger.Error("Failed to sum pending reservations", "account_id", payer.ID, "error", err)
		return ErrInternal
	}

	// Position accounts track net obligation as debits minus credits.
	projected := payer.DebitBalance - payer.CreditBalance + pending + amount

	var liquidity int64
	if req.PayerLiquidityAccountID != "" {
		liq, err := p.loadAccount(ctx, req.PayerLiquidityAccountID, ErrNoSuchLiquidityAccount)
		if err != nil {
			return err
		}
		if liq.CurrencyCode != req.CurrencyCode {
			return ErrCurrencyCodesDiffer
		}
		liquidity = liq.AvailableBalance()
	}

	if projected-liquidity > netDebitCap {
		return fmt.Errorf("%w: projected position %d, liquidity %d, cap %d",
			ErrNetDebitCapExceeded, projected, liquidity, netDebitCap)
	}

	now := time.Now().UTC()
	res := &reservation.Reservation{
		TransferID:     req.TransferID,
		RequestID:      req.RequestID,
		PayerAccountID: payer.ID,
		Amount:         amount,
		CurrencyCode:   req.CurrencyCode,
		NetDebitCap:    netDebitCap,
		State:          reservation.StateReserved,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := p.reservations.StoreNew(ctx, res); err != nil {
		if errors.Is(err, reservation.ErrReservationAlreadyExists{}) {
			// Lost a race against a concurrent retry; the reservation is
			// booked either way.
			return nil
		}
		p.logger.Error("Failed to store reservation", "transfer_id", req.TransferID, "error", err)
		return ErrInternal
	}

	p.recorder.Record(audit.Event{
		Kind:       audit.KindReservationReserved,
		Actor:      caller.Subject,
		TransferID: req.TransferID,
		OccurredAt: now,
	})

	return nil
}

// cancelReservationAndCommit converts the Reserved pending debit into a
// final debit on the payer position account and a final credit on the
// payee position account. A transfer already Committed returns the same
// successful outcome without reapplying the mutation.
func (p *Processor) cancelReservationAndCommit(ctx context.Context, caller auth.CallerContext, req Request) error {
	if err := requireIDs(req.TransferID, req.PayerPositionAccountID, req.HubAccountID); err != nil {
		return err
	}
	if req.PayeePositionAccountID == "" {
		return ErrMissingPayeeAccount
	}

	decimals, err := p.registry.Decimals(req.CurrencyCode)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidCurrencyCode, req.CurrencyCode)
	}
	amount, err := currency.ToMinorUnits(req.Amount, decimals)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}

	res, err := p.reservations.GetByTransferID(ctx, req.TransferID)
	if err != nil {
		if errors.Is(err, reservation.ErrReservationNotFound{}) {
			return err
		}
		p.logger.Error("Failed to load reservation", "transfer_id", req.TransferID, "error", err)
		return ErrInternal
	}

	switch res.State {
	case reservation.StateCommitted:
		return nil
	case reservation.StateCancelled:
		return fmt.Errorf("%w: transfer %s is cancelled", ErrReservationStateConflict, req.TransferID)
	}

	if res.PayerAccountID != req.PayerPositionAccountID {
		return ErrPayerAccountMismatch
	}
	// The final movements must equal the pending debit booked at reserve
	// time; a request carrying a different amount would release one amount
	// and apply another.
	if amount != res.Amount {
		return fmt.Errorf("%w: transfer %s reserved %d minor units", ErrAmountMismatch, req.TransferID, res.Amount)
	}

	payer, err := p.loadAccount(ctx, req.PayerPositionAccountID, ErrNoSuchPayerAccount)
	if err != nil {
		return err
	}
	payee, err := p.loadAccount(ctx, req.PayeePositionAccountID, ErrNoSuchPayeeAccount)
	if err != nil {
		return err
	}
	if _, err := p.loadAccount(ctx, req.HubAccountID, ErrNoSuchHubAccount); err != nil {
		return err
	}
	if payer.CurrencyCode != req.CurrencyCode || payee.CurrencyCode != req.CurrencyCode {
		return ErrCurrencyCodesDiffer
	}

	// The guarded Reserved->Committed transition happens exactly once; the
	// winner applies the balance movements. A retry that loses the guard
	// re-reads the state and reports the original outcome.
	now := time.Now().UTC()
	if err := p.reservations.UpdateState(ctx, req.TransferID, reservation.StateReserved, reservation.StateCommitted, now); err != nil {
		if errors.Is(err, reservation.ErrReservationNotFound{}) {
			current, getErr := p.reservations.GetByTransferID(ctx, req.TransferID)
			if getErr == nil && current.State == reservation.StateCommitted {
				return nil
			}
			return fmt.Errorf("%w: transfer %s", ErrReservationStateConflict, req.TransferID)
		}
		p.logger.Error("Failed to commit reservation", "transfer_id", req.TransferID, "error", err)
		return ErrInternal
	}

	// Two separate single-row updates; a crash between the transition and
	// these writes leaves the reservation Committed with stale balances.
	if err := p.accounts.UpdateDebitBalanceByID(ctx, payer.ID, payer.DebitBalance+amount, now); err != nil {
		p.logger.Error("Failed to apply final debit", "account_id", payer.ID, "transfer_id", req.TransferID, "error", err)
		return ErrInternal
	}
	if err := p.accounts.UpdateCreditBalanceByID(ctx, payee.ID, payee.CreditBalance+amount, now); err != nil {
		p.logger.Error("Failed to apply final credit", "account_id", payee.ID, "transfer_id", req.TransferID, "error", err)
		return ErrInternal
	}

	p.recorder.Record(audit.Event{
		Kind:       audit.KindReservationCommitted,
		Actor:      caller.Subject,
		TransferID: req.TransferID,
		OccurredAt: now,
	})

	return nil
}

// cancelReservation releases the Reserved pending debit without applying
// it, restoring the payer's available capacity. Cancelling an already
// cancelled transfer is idempotent.
func (p *Processor) cancelReservation(ctx context.Context, caller auth.CallerContext, req Request) error {
	if err := requireIDs(req.TransferID, req.PayerPositionAccountID, req.HubAccountID); err != nil {
		return err
	}

	decimals, err := p.registry.Decimals(req.CurrencyCode)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidCurrencyCode, req.CurrencyCode)
	}
	amount, err := currency.ToMinorUnits(req.Amount, decimals)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}

	res, err := p.reservations.GetByTransferID(ctx, req.TransferID)
	if err != nil {
		if errors.Is(err, reservation.ErrReservationNotFound{}) {
			return err
		}
		p.logger.Error("Failed to load reservation", "transfer_id", req.TransferID, "error", err)
		return ErrInternal
	}

	switch res.State {
	case reservation.StateCancelled:
		return nil
	case reservation.StateCommitted:
		return fmt.Errorf("%w: transfer %s is committed", ErrReservationStateConflict, req.TransferID)
	}

	if res.PayerAccountID != req.PayerPositionAccountID {
		return ErrPayerAccountMismatch
	}
	if amount != res.Amount {
		return fmt.Errorf("%w: transfer %s reserved %d minor units", ErrAmountMismatch, req.TransferID, res.Amount)
	}

	now := time.Now().UTC()
	if err := p.reservations.UpdateState(ctx, req.TransferID, reservation.StateReserved, reservation.StateCancelled, now); err != nil {
		if errors.Is(err, reservation.ErrReservationNotFound{}) {
			current, getErr := p.reservations.GetByTransferID(ctx, req.TransferID)
			if getErr == nil && current.State == reservation.StateCancelled {
				return nil
			}
			return fmt.Errorf("%w: transfer %s", ErrReservationStateConflict, req.TransferID)
		}
		p.logger.Error("Failed to cancel reservation", "transfer_id", req.TransferID, "error", err)
		return ErrInternal
	}

	p.recorder.Record(audit.Event{
		Kind:       audit.KindReservationCancelled,
		Actor:      caller.Subject,
		TransferID: req.TransferID,
		OccurredAt: now,
	})

	return nil
}

// loadAccount fetches an account, translating a missing account into the
// given caller error and any other failure into an opaque internal one.
func (p *Processor) loadAccount(ctx context.Context, id string, notFound error) (*account.Account, error) {
	acc, err := p.accounts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, account.ErrAccountNotFound{}) {
			return nil, fmt.Errorf("%w: %s", notFound, id)
		}
		p.logger.Error("Failed to load account", "account_id", id, "error", err)
		return nil, ErrInternal
	}
	return acc, nil
}

func requireIDs(transferID, payerAccountID, hubAccountID string) error {
	if transferID == "" {
		return ErrMissingTransferID
	}
	if payerAccountID == "" {
		return ErrMissingPayerAccount
	}
	if hubAccountID == "" {
		return ErrMissingHubAccount
	}
	return nil
}
