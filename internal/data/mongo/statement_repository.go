// Package mongo provides the MongoDB implementation of the statement archive.
// The archive is a denormalized read model fed from the transactional outbox;
// the relational ledger remains the source of truth.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Sahar009/awari-backend-sub002/internal/domain/statement"
)

const (
	// StatementCollectionName is the name of the statement collection in MongoDB
	StatementCollectionName = "wallet_statements"
)

// StatementRepository implements the statement.Repository interface for MongoDB
type StatementRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewStatementRepository creates a new MongoDB statement repository
func NewStatementRepository(logger *slog.Logger, db *mongo.Database) statement.Repository {
	return &StatementRepository{
		db:     db,
		logger: logger,
	}
}

// Archive upserts an entry keyed by transaction id. Redelivered outbox
// messages overwrite the same document, so archiving is idempotent.
func (r *StatementRepository) Archive(ctx context.Context, entry *statement.Entry) error {
	collection := r.db.Collection(StatementCollectionName)

	filter := bson.M{"transaction_id": entry.TransactionID}
	update := bson.M{"$set": entry}
	opts := options.Update().SetUpsert(true)

	_, err := collection.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		r.logger.Error("Failed to archive statement entry",
			"transaction_id", entry.TransactionID.String(),
			"error", err)
		return fmt.Errorf("failed to archive statement entry: %w", err)
	}

	return nil
}

// GetByTransactionID retrieves an archived entry by its transaction id.
// Returns ErrEntryNotFound if no entry exists for the given transaction.
func (r *StatementRepository) GetByTransactionID(ctx context.Context, transactionID uuid.UUID) (*statement.Entry, error) {
	collection := r.db.Collection(StatementCollectionName)

	filter := bson.M{"transaction_id": transactionID}
	var entry statement.Entry
	err := collection.FindOne(ctx, filter).Decode(&entry)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, statement.ErrEntryNotFound{TransactionID: transactionID}
		}
		r.logger.Error("Failed to get statement entry",
			"transaction_id", transactionID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to get statement entry: %w", err)
	}

	return &entry, nil
}

// ListByWallet retrieves paginated archive entries for a wallet within the
// date range. Results are sorted by creation time descending (newest first).
func (r *StatementRepository) ListByWallet(ctx context.Context, walletID uuid.UUID, from, to time.Time, limit, offset int) ([]*statement.Entry, error) {
	collection := r.db.Collection(StatementCollectionName)

	filter := bson.M{
		"wallet_id":  walletID,
		"created_at": bson.M{"$gte": from, "$lte": to},
	}
	opts := options.Find().
		SetSort(bson.M{"created_at": -1}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		r.logger.Error("Failed to list statement entries",
			"wallet_id", walletID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to list statement entries: %w", err)
	}
	defer cursor.Close(ctx)

	var entries []*statement.Entry
	if err := cursor.All(ctx, &entries); err != nil {
		r.logger.Error("Failed to decode statement entries",
			"wallet_id", walletID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to decode statement entries: %w", err)
	}

	return entries, nil
}

// CountByWallet counts archive entries for a wallet within the date range
func (r *StatementRepository) CountByWallet(ctx context.Context, walletID uuid.UUID, from, to time.Time) (int64, error) {
	collection := r.db.Collection(StatementCollectionName)

	filter := bson.M{
		"wallet_id":  walletID,
		"created_at": bson.M{"$gte": from, "$lte": to},
	}
	count, err := collection.CountDocuments(ctx, filter)
	if err != nil {
		r.logger.Error("Failed to count statement entries",
			"wallet_id", walletID.String(),
			"error", err)
		return 0, fmt.Errorf("failed to count statement entries: %w", err)
	}

	return count, nil
}
