// Package audit publishes ledger audit events to Kafka. Emission is
// fire-and-forget: failures are logged, never surfaced to the caller.
package audit

import (
	"time"
)

// Kind identifies the audited ledger operation.
type Kind string

const (
	KindAccountCreated       Kind = "ACCOUNT_CREATED"
	KindJournalEntryCreated  Kind = "JOURNAL_ENTRY_CREATED"
	KindReservationReserved  Kind = "RESERVATION_RESERVED"
	KindReservationCommitted Kind = "RESERVATION_COMMITTED"
	KindReservationCancelled Kind = "RESERVATION_CANCELLED"
)

// Event is a single audit record. Exactly one of the referenced ids is set
// depending on the kind.
type Event struct {
	Kind       Kind      `json:"kind"`
	Actor      string    `json:"actor,omitempty"`
	AccountID  string    `json:"account_id,omitempty"`
	EntryID    string    `json:"entry_id,omitempty"`
	TransferID string    `json:"transfer_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Recorder accepts audit events for asynchronous publication.
type Recorder interface {
	Record(event Event)
}

// NopRecorder discards all events. Used when auditing is disabled.
type NopRecorder struct{}

func (NopRecorder) Record(Event) {}
