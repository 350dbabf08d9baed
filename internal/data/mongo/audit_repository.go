package mongo

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/warehouse-inventory-ledger/internal/domain/audit"
)

const (
	// AuditCollectionName is the name of the audit trail collection in MongoDB
	AuditCollectionName = "movement_audit"
)

// AuditRepository implements the audit.Repository interface for MongoDB
type AuditRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewAuditRepository creates a new MongoDB audit repository
func NewAuditRepository(logger *slog.Logger, db *mongo.Database) audit.Repository {
	return &AuditRepository{
		db:     db,
		logger: logger,
	}
}

// Record appends an audit entry. Delivery from the outbox is at-least-once,
// so an entry for the same (movement, status) pair is treated as a replay
// and reported as ErrDuplicateEntry rather than written twice.
func (r *AuditRepository) Record(ctx context.Context, entry *audit.Entry) error {
	collection := r.db.Collection(AuditCollectionName)

	filter := bson.M{"movement_id": entry.MovementID, "status": entry.Status}
	count, err := collection.CountDocuments(ctx, filter)
	if err != nil {
		r.logger.Error("Failed to check for existing audit entry",
			"movement_id", entry.MovementID.String(),
			"error", err)
		return fmt.Errorf("failed to check for existing audit entry: %w", err)
	}
	if count > 0 {
		return audit.ErrDuplicateEntry{MovementID: entry.MovementID, Status: entry.Status}
	}

	if _, err := collection.InsertOne(ctx, entry); err != nil {
		r.logger.Error("Failed to record audit entry",
			"movement_id", entry.MovementID.String(),
			"error", err)
		return fmt.Errorf("failed to record audit entry: %w", err)
	}

	return nil
}

// GetByMovementID retrieves the full transition history of a movement,
// oldest first
func (r *AuditRepository) GetByMovementID(ctx context.Context, movementID uuid.UUID) ([]*audit.Entry, error) {
	return r.find(ctx, bson.M{"movement_id": movementID}, options.Find().SetSort(bson.M{"recorded_at": 1}))
}

// GetByCode retrieves the transition history of a movement by its code
func (r *AuditRepository) GetByCode(ctx context.Context, code string) ([]*audit.Entry, error) {
	return r.find(ctx, bson.M{"code": code}, options.Find().SetSort(bson.M{"recorded_at": 1}))
}

// GetByItemID retrieves paginated audit entries for an item, newest first
func (r *AuditRepository) GetByItemID(ctx context.Context, itemID uuid.UUID, limit, offset int) ([]*audit.Entry, error) {
	opts := options.Find().
		SetSort(bson.M{"recorded_at": -1}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))
	return r.find(ctx, bson.M{"item_id": itemID}, opts)
}

// CountByItemID counts the audit entries recorded for an item
func (r *AuditRepository) CountByItemID(ctx context.Context, itemID uuid.UUID) (int64, error) {
	collection := r.db.Collection(AuditCollectionName)

	count, err := collection.CountDocuments(ctx, bson.M{"item_id": itemID})
	if err != nil {
		r.logger.Error("Failed to count audit entries",
			"item_id", itemID.String(),
			"error", err)
		return 0, fmt.Errorf("failed to count audit entries: %w", err)
	}

	return count, nil
}

// GetByTimeRange retrieves paginated audit entries recorded within the
// window, newest first
func (r *AuditRepository) GetByTimeRange(ctx context.Context, start, end time.Time, limit, offset int) ([]*audit.Entry, error) {
	filter := bson.M{
		"recorded_at": bson.M{
			"$gte": start,
			"$lte": end,
		},
	}
	opts := options.Find().
		SetSort(bson.M{"recorded_at": -1}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))
	return r.find(ctx, filter, opts)
}

func (r *AuditRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*audit.Entry, error) {
	collection := r.db.Collection(AuditCollectionName)

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		r.logger.Error("Failed to query audit entries", "error", err)
		return nil, fmt.Errorf("failed to query audit entries: %w", err)
	}
	defer cursor.Close(ctx)

	var entries []*audit.Entry
	if err := cursor.All(ctx, &entries); err != nil {
		r.logger.Error("Failed to decode audit entries", "error", err)
		return nil, fmt.Errorf("failed to decode audit entries: %w", err)
	}

	return entries, nil
}
