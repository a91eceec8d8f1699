package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/bookstore-ledger/internal/domain/ledger"
)

const (
	// LedgerCollectionName is the name of the ledger history collection in MongoDB
	LedgerCollectionName = "ledger_entries"
)

// LedgerRepository implements the ledger.Repository interface for MongoDB
type LedgerRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewLedgerRepository creates a new MongoDB ledger repository
func NewLedgerRepository(logger *slog.Logger, db *mongo.Database) ledger.Repository {
	return &LedgerRepository{
		db:     db,
		logger: logger,
	}
}

// EnsureIndexes creates the unique reference index and the per-user history index
func (r *LedgerRepository) EnsureIndexes(ctx context.Context) error {
	collection := r.db.Collection(LedgerCollectionName)

	_, err := collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "reference", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}},
		},
	})
	if err != nil {
		r.logger.Error("Failed to create ledger indexes", "error", err)
		return fmt.Errorf("failed to create ledger indexes: %w", err)
	}
	return nil
}

// Upsert replaces the entry for its reference unless the stored snapshot is newer.
// A stale snapshot matches no document and the insert collides with the unique
// reference index, which is treated as success.
func (r *LedgerRepository) Upsert(ctx context.Context, entry *ledger.Entry) error {
	collection := r.db.Collection(LedgerCollectionName)

	opts := options.Replace().SetUpsert(true)
	_, err := collection.ReplaceOne(ctx, upsertFilter(entry), entry, opts)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			r.logger.Debug("Skipping stale ledger snapshot", "reference", entry.Reference)
			return nil
		}
		r.logger.Error("Failed to upsert ledger entry",
			"reference", entry.Reference,
			"error", err)
		return fmt.Errorf("failed to upsert ledger entry: %w", err)
	}

	return nil
}

// GetByReference retrieves the history entry for a reference
func (r *LedgerRepository) GetByReference(ctx context.Context, reference string) (*ledger.Entry, error) {
	collection := r.db.Collection(LedgerCollectionName)

	var entry ledger.Entry
	err := collection.FindOne(ctx, bson.M{"reference": reference}).Decode(&entry)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ledger.ErrEntryNotFound{Reference: reference}
		}
		r.logger.Error("Failed to get ledger entry",
			"reference", reference,
			"error", err)
		return nil, fmt.Errorf("failed to get ledger entry: %w", err)
	}

	return &entry, nil
}

// GetByUserID retrieves paginated entries for a user, newest first
func (r *LedgerRepository) GetByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*ledger.Entry, error) {
	collection := r.db.Collection(LedgerCollectionName)

	cursor, err := collection.Find(ctx, userFilter(userID), pageOptions(limit, offset))
	if err != nil {
		r.logger.Error("Failed to get ledger entries",
			"user_id", userID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to get ledger entries: %w", err)
	}
	defer cursor.Close(ctx)

	entries := make([]*ledger.Entry, 0, limit)
	if err := cursor.All(ctx, &entries); err != nil {
		r.logger.Error("Failed to decode ledger entries",
			"user_id", userID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to decode ledger entries: %w", err)
	}

	return entries, nil
}

// CountByUserID counts the entries for a user
func (r *LedgerRepository) CountByUserID(ctx context.Context, userID uuid.UUID) (int64, error) {
	collection := r.db.Collection(LedgerCollectionName)

	count, err := collection.CountDocuments(ctx, userFilter(userID))
	if err != nil {
		r.logger.Error("Failed to count ledger entries",
			"user_id", userID.String(),
			"error", err)
		return 0, fmt.Errorf("failed to count ledger entries: %w", err)
	}

	return count, nil
}

func upsertFilter(entry *ledger.Entry) bson.M {
	return bson.M{
		"reference":  entry.Reference,
		"updated_at": bson.M{"$lte": entry.UpdatedAt},
	}
}

func userFilter(userID uuid.UUID) bson.M {
	return bson.M{"user_id": userID}
}

func pageOptions(limit, offset int) *options.FindOptions {
	return options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))
}
