package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/warehouse-inventory-ledger/internal/domain/movement"
	"github.com/warehouse-inventory-ledger/internal/platform/persistence"
)

// SequenceRepository implements movement.SequenceRepository against a
// dedicated counter table. Counting existing movements and adding one would
// race under concurrent creation; a single upsert increment cannot.
type SequenceRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewSequenceRepository creates a new PostgreSQL sequence repository
func NewSequenceRepository(logger *slog.Logger, db *persistence.PostgresDB) movement.SequenceRepository {
	return &SequenceRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction. Allocation must run in
// the same transaction as the movement insert: the counter row lock then
// serializes same-bucket creators until commit, and a rollback returns the
// allocated number, keeping the sequence gapless.
func (r *SequenceRepository) WithTx(tx pgx.Tx) movement.SequenceRepository {
	return &SequenceRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Next atomically increments and returns the counter for the
// (direction, date) bucket. The first allocation of a bucket yields 1.
func (r *SequenceRepository) Next(ctx context.Context, direction movement.Direction, date time.Time) (int64, error) {
	query := `
		INSERT INTO movement_sequences (direction, seq_date, value)
		VALUES ($1, $2, 1)
		ON CONFLICT (direction, seq_date)
		DO UPDATE SET value = movement_sequences.value + 1
		RETURNING value
	`

	var value int64
	err := r.querier.QueryRow(ctx, query, direction, date.UTC().Format("2006-01-02")).Scan(&value)
	if err != nil {
		r.logger.Error("Failed to allocate movement sequence",
			"direction", string(direction),
			"date", date.UTC().Format("2006-01-02"),
			"error", err,
		)
		return 0, fmt.Errorf("failed to allocate movement sequence: %w", err)
	}

	return value, nil
}
