// Package mongo provides the MongoDB implementation of the journal entry
// repository. Entries are append-only documents; there is no update path.
package mongo

import (
	"context"
	"fmt"
	"log/slog"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/clearwave-ledger/internal/domain/journal"
)

const (
	// JournalCollectionName is the name of the journal entries collection
	JournalCollectionName = "journal_entries"
)

// JournalRepository implements the journal.Repository interface for MongoDB
type JournalRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewJournalRepository creates a new MongoDB journal entry repository
func NewJournalRepository(logger *slog.Logger, db *mongo.Database) journal.Repository {
	return &JournalRepository{
		db:     db,
		logger: logger,
	}
}

// ExistsByID reports whether an entry document exists.
func (r *JournalRepository) ExistsByID(ctx context.Context, id string) (bool, error) {
	collection := r.db.Collection(JournalCollectionName)

	count, err := collection.CountDocuments(ctx, bson.M{"entry_id": id}, options.Count().SetLimit(1))
	if err != nil {
		r.logger.Error("Failed to check journal entry existence", "entry_id", id, "error", err)
		return false, fmt.Errorf("failed to check journal entry existence: %w", err)
	}

	return count > 0, nil
}

// StoreNew stores a journal entry after checking for duplicates.
// Returns ErrEntryAlreadyExists if an entry with the same id exists.
func (r *JournalRepository) StoreNew(ctx context.Context, entry *journal.Entry) error {
	collection := r.db.Collection(JournalCollectionName)

	exists, err := r.ExistsByID(ctx, entry.ID)
	if err != nil {
		return err
	}
	if exists {
		return journal.ErrEntryAlreadyExists{EntryID: entry.ID}
	}

	if _, err := collection.InsertOne(ctx, entry); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return journal.ErrEntryAlreadyExists{EntryID: entry.ID}
		}
		r.logger.Error("Failed to store journal entry", "entry_id", entry.ID, "error", err)
		return fmt.Errorf("failed to store journal entry: %w", err)
	}

	return nil
}

// GetByAccountID retrieves paginated entries where the account appears as
// either the credited or the debited party, newest first.
func (r *JournalRepository) GetByAccountID(ctx context.Context, accountID string, limit, offset int) ([]*journal.Entry, error) {
	collection := r.db.Collection(JournalCollectionName)

	filter := bson.M{
		"$or": bson.A{
			bson.M{"credited_account_id": accountID},
			bson.M{"debited_account_id": accountID},
		},
	}
	opts := options.Find().
		SetSort(bson.M{"timestamp": -1}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		r.logger.Error("Failed to get journal entries", "account_id", accountID, "error", err)
		return nil, fmt.Errorf("failed to get journal entries: %w", err)
	}
	defer cursor.Close(ctx)

	var entries []*journal.Entry
	if err := cursor.All(ctx, &entries); err != nil {
		r.logger.Error("Failed to decode journal entries", "account_id", accountID, "error", err)
		return nil, fmt.Errorf("failed to decode journal entries: %w", err)
	}

	return entries, nil
}
