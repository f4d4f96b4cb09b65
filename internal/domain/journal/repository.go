package journal

import (
	"context"
)

// Repository manages journal entry persistence. Entries are append-only;
// there is no update or delete operation.
type Repository interface {
	ExistsByID(ctx context.Context, id string) (bool, error)

	// StoreNew persists an entry that must not yet exist.
	// Returns ErrEntryAlreadyExists on id collision.
	StoreNew(ctx context.Context, entry *Entry) error

	// GetByAccountID returns paginated entries where the account appears as
	// either the credited or the debited party, newest first.
	GetByAccountID(ctx context.Context, accountID string, limit, offset int) ([]*Entry, error)
}

// ErrEntryNotFound indicates a missing journal entry.
type ErrEntryNotFound struct {
	EntryID string
}

func (e ErrEntryNotFound) Error() string {
	return "journal entry not found: " + e.EntryID
}

// Is matches any ErrEntryNotFound when the target carries no id.
func (e ErrEntryNotFound) Is(target error) bool {
	t, ok := target.(ErrEntryNotFound)
	if !ok {
		return false
	}
	return t.EntryID == "" || t.EntryID == e.EntryID
}

// ErrEntryAlreadyExists indicates an id collision on creation.
type ErrEntryAlreadyExists struct {
	EntryID string
}

func (e ErrEntryAlreadyExists) Error() string {
	return "journal entry already exists: " + e.EntryID
}

// Is matches any ErrEntryAlreadyExists when the target carries no id.
func (e ErrEntryAlreadyExists) Is(target error) bool {
	t, ok := target.(ErrEntryAlreadyExists)
	if !ok {
		return false
	}
	return t.EntryID == "" || t.EntryID == e.EntryID
}
