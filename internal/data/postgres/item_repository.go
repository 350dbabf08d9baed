// Package postgres provides PostgreSQL implementations of the domain
// repositories. All stock quantity writes live here, expressed as single
// conditional statements so the non-negative invariant holds under
// concurrent callers without a separate read-then-write window.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/warehouse-inventory-ledger/internal/domain/item"
	"github.com/warehouse-inventory-ledger/internal/platform/persistence"
)

// ItemRepository implements the item.Repository interface for PostgreSQL
type ItemRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewItemRepository creates a new PostgreSQL item repository
func NewItemRepository(logger *slog.Logger, db *persistence.PostgresDB) item.Repository {
	return &ItemRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction so quantity mutations run
// in the same unit of work as the movement transition that triggers them
func (r *ItemRepository) WithTx(tx pgx.Tx) item.Repository {
	return &ItemRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create stores a new item in the database
func (r *ItemRepository) Create(ctx context.Context, it *item.Item) error {
	query := `
		INSERT INTO items (id, sku, name, unit, quantity, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.querier.Exec(ctx, query,
		it.ID,
		it.SKU,
		it.Name,
		it.Unit,
		it.Quantity,
		it.IsActive,
		it.CreatedAt,
		it.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return item.ErrDuplicateSKU{SKU: it.SKU}
		}
		r.logger.Error("Failed to create item", "error", err)
		return fmt.Errorf("failed to create item: %w", err)
	}

	return nil
}

// GetByID retrieves an item by its ID
func (r *ItemRepository) GetByID(ctx context.Context, id uuid.UUID) (*item.Item, error) {
	query := `
		SELECT id, sku, name, unit, quantity, is_active, created_at, updated_at
		FROM items
		WHERE id = $1
	`

	var it item.Item
	err := r.querier.QueryRow(ctx, query, id).Scan(
		&it.ID,
		&it.SKU,
		&it.Name,
		&it.Unit,
		&it.Quantity,
		&it.IsActive,
		&it.CreatedAt,
		&it.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, item.ErrItemNotFound{ItemID: id}
		}
		r.logger.Error("Failed to get item", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get item: %w", err)
	}

	return &it, nil
}

// GetBySKU retrieves an item by its SKU, returning nil when none exists
func (r *ItemRepository) GetBySKU(ctx context.Context, sku string) (*item.Item, error) {
	query := `
		SELECT id, sku, name, unit, quantity, is_active, created_at, updated_at
		FROM items
		WHERE sku = $1
	`

	var it item.Item
	err := r.querier.QueryRow(ctx, query, sku).Scan(
		&it.ID,
		&it.SKU,
		&it.Name,
		&it.Unit,
		&it.Quantity,
		&it.IsActive,
		&it.CreatedAt,
		&it.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to get item by SKU", "sku", sku, "error", err)
		return nil, fmt.Errorf("failed to get item by SKU: %w", err)
	}

	return &it, nil
}

// Deactivate marks an item inactive. Inactive items reject further
// movements but keep their history.
func (r *ItemRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE items
		SET is_active = FALSE, updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.querier.Exec(ctx, query, id)
	if err != nil {
		r.logger.Error("Failed to deactivate item", "id", id.String(), "error", err)
		return fmt.Errorf("failed to deactivate item: %w", err)
	}

	if result.RowsAffected() == 0 {
		return item.ErrItemNotFound{ItemID: id}
	}

	return nil
}

// List retrieves items ordered by SKU with limit/offset pagination
func (r *ItemRepository) List(ctx context.Context, limit, offset int) ([]*item.Item, error) {
	query := `
		SELECT id, sku, name, unit, quantity, is_active, created_at, updated_at
		FROM items
		ORDER BY sku ASC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.querier.Query(ctx, query, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list items", "error", err)
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	defer rows.Close()

	var items []*item.Item
	for rows.Next() {
		var it item.Item
		err := rows.Scan(
			&it.ID,
			&it.SKU,
			&it.Name,
			&it.Unit,
			&it.Quantity,
			&it.IsActive,
			&it.CreatedAt,
			&it.UpdatedAt,
		)
		if err != nil {
			r.logger.Error("Failed to scan item", "error", err)
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, &it)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over items", "error", err)
		return nil, fmt.Errorf("error iterating over items: %w", err)
	}

	return items, nil
}

// IncreaseQuantity adds qty to the item's on-hand count in one statement.
// Zero rows affected means the item is missing or inactive.
func (r *ItemRepository) IncreaseQuantity(ctx context.Context, id uuid.UUID, qty int64) error {
	if qty <= 0 {
		return item.ErrInvalidQuantity
	}

	query := `
		UPDATE items
		SET quantity = quantity + $1, updated_at = NOW()
		WHERE id = $2 AND is_active
	`

	result, err := r.querier.Exec(ctx, query, qty, id)
	if err != nil {
		r.logger.Error("Failed to increase item quantity", "id", id.String(), "error", err)
		return fmt.Errorf("failed to increase item quantity: %w", err)
	}

	if result.RowsAffected() == 0 {
		return item.ErrItemNotFound{ItemID: id}
	}

	return nil
}

// DecreaseQuantity subtracts qty with the sufficiency guard fused into the
// UPDATE itself: the decrement applies only if quantity >= qty at execution
// time, so concurrent decrements on the same item can never drive the count
// negative. A zero-row result is disambiguated by re-reading the item.
func (r *ItemRepository) DecreaseQuantity(ctx context.Context, id uuid.UUID, qty int64) error {
	if qty <= 0 {
		return item.ErrInvalidQuantity
	}

	query := `
		UPDATE items
		SET quantity = quantity - $1, updated_at = NOW()
		WHERE id = $2 AND is_active AND quantity >= $1
	`

	result, err := r.querier.Exec(ctx, query, qty, id)
	if err != nil {
		r.logger.Error("Failed to decrease item quantity", "id", id.String(), "error", err)
		return fmt.Errorf("failed to decrease item quantity: %w", err)
	}

	if result.RowsAffected() == 0 {
		it, getErr := r.GetByID(ctx, id)
		if getErr != nil {
			return getErr
		}
		if !it.IsActive {
			return item.ErrItemNotFound{ItemID: id}
		}
		return item.ErrInsufficientStock{
			ItemID:    id,
			Requested: qty,
			Available: it.Quantity,
		}
	}

	return nil
}
