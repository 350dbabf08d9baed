package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/warehouse-inventory-ledger/internal/domain/movement"
	"github.com/warehouse-inventory-ledger/internal/platform/persistence"
)

const movementColumns = `id, code, item_id, quantity, direction, status, created_at, effective_at,
		received_by, requested_by, processed_by, cancelled_by, cancelled_at, remarks`

// MovementRepository implements the movement.Repository interface for PostgreSQL
type MovementRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewMovementRepository creates a new PostgreSQL movement repository
func NewMovementRepository(logger *slog.Logger, db *persistence.PostgresDB) movement.Repository {
	return &MovementRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction for atomic operations
func (r *MovementRepository) WithTx(tx pgx.Tx) movement.Repository {
	return &MovementRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create stores a new stock movement. A unique-constraint violation on the
// code column surfaces as ErrDuplicateCode so the caller can re-allocate.
func (r *MovementRepository) Create(ctx context.Context, m *movement.StockMovement) error {
	query := `
		INSERT INTO stock_movements (id, code, item_id, quantity, direction, status, created_at, effective_at,
			received_by, requested_by, processed_by, cancelled_by, cancelled_at, remarks)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err := r.querier.Exec(ctx, query,
		m.ID,
		m.Code,
		m.ItemID,
		m.Quantity,
		m.Direction,
		m.Status,
		m.CreatedAt,
		m.EffectiveAt,
		nullable(m.ReceivedBy),
		nullable(m.RequestedBy),
		nullable(m.ProcessedBy),
		nullable(m.CancelledBy),
		m.CancelledAt,
		nullable(m.Remarks),
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return movement.ErrDuplicateCode{Code: m.Code}
		}
		r.logger.Error("Failed to create stock movement", "code", m.Code, "error", err)
		return fmt.Errorf("failed to create stock movement: %w", err)
	}

	return nil
}

// GetByID retrieves a movement by its ID
func (r *MovementRepository) GetByID(ctx context.Context, id uuid.UUID) (*movement.StockMovement, error) {
	query := `
		SELECT ` + movementColumns + `
		FROM stock_movements
		WHERE id = $1
	`
	return r.scanOne(ctx, query, id)
}

// GetByCode retrieves a movement by its code
func (r *MovementRepository) GetByCode(ctx context.Context, code string) (*movement.StockMovement, error) {
	query := `
		SELECT ` + movementColumns + `
		FROM stock_movements
		WHERE code = $1
	`

	m, err := r.scanRow(r.querier.QueryRow(ctx, query, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, movement.ErrMovementNotFound{}
		}
		r.logger.Error("Failed to get movement by code", "code", code, "error", err)
		return nil, fmt.Errorf("failed to get movement by code: %w", err)
	}
	return m, nil
}

// GetForUpdate loads a movement under a row lock. Concurrent Process or
// Cancel calls on the same movement block here until the first transaction
// settles, so the loser observes the terminal state.
func (r *MovementRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*movement.StockMovement, error) {
	query := `
		SELECT ` + movementColumns + `
		FROM stock_movements
		WHERE id = $1
		FOR UPDATE
	`
	return r.scanOne(ctx, query, id)
}

// UpdateTransition persists the bookkeeping of a Process or Cancel
// transition. The previous status is re-checked in the WHERE clause; zero
// rows affected means the movement changed underneath us.
func (r *MovementRepository) UpdateTransition(ctx context.Context, m *movement.StockMovement, previous movement.Status) error {
	query := `
		UPDATE stock_movements
		SET status = $1, effective_at = $2, processed_by = $3, cancelled_by = $4, cancelled_at = $5
		WHERE id = $6 AND status = $7
	`

	result, err := r.querier.Exec(ctx, query,
		m.Status,
		m.EffectiveAt,
		nullable(m.ProcessedBy),
		nullable(m.CancelledBy),
		m.CancelledAt,
		m.ID,
		previous,
	)
	if err != nil {
		r.logger.Error("Failed to update movement transition", "id", m.ID.String(), "error", err)
		return fmt.Errorf("failed to update movement transition: %w", err)
	}

	if result.RowsAffected() == 0 {
		return movement.ErrInvalidStateTransition{
			MovementID: m.ID,
			Direction:  m.Direction,
			Status:     previous,
		}
	}

	return nil
}

// List retrieves movements matching the filter, newest first
func (r *MovementRepository) List(ctx context.Context, f movement.Filter, limit, offset int) ([]*movement.StockMovement, error) {
	where, args := buildFilter(f)
	args = append(args, limit, offset)
	query := `
		SELECT ` + movementColumns + `
		FROM stock_movements
		` + where + `
		ORDER BY created_at DESC
		LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))

	rows, err := r.querier.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list movements", "error", err)
		return nil, fmt.Errorf("failed to list movements: %w", err)
	}
	defer rows.Close()

	var movements []*movement.StockMovement
	for rows.Next() {
		m, err := r.scanRow(rows)
		if err != nil {
			r.logger.Error("Failed to scan movement", "error", err)
			return nil, fmt.Errorf("failed to scan movement: %w", err)
		}
		movements = append(movements, m)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over movements", "error", err)
		return nil, fmt.Errorf("error iterating over movements: %w", err)
	}

	return movements, nil
}

// Count returns the number of movements matching the filter
func (r *MovementRepository) Count(ctx context.Context, f movement.Filter) (int64, error) {
	where, args := buildFilter(f)
	query := `SELECT COUNT(*) FROM stock_movements ` + where

	var count int64
	if err := r.querier.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		r.logger.Error("Failed to count movements", "error", err)
		return 0, fmt.Errorf("failed to count movements: %w", err)
	}

	return count, nil
}

func (r *MovementRepository) scanOne(ctx context.Context, query string, id uuid.UUID) (*movement.StockMovement, error) {
	m, err := r.scanRow(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, movement.ErrMovementNotFound{MovementID: id}
		}
		r.logger.Error("Failed to get movement", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get movement: %w", err)
	}
	return m, nil
}

func (r *MovementRepository) scanRow(row pgx.Row) (*movement.StockMovement, error) {
	var m movement.StockMovement
	var receivedBy, requestedBy, processedBy, cancelledBy, remarks *string
	err := row.Scan(
		&m.ID,
		&m.Code,
		&m.ItemID,
		&m.Quantity,
		&m.Direction,
		&m.Status,
		&m.CreatedAt,
		&m.EffectiveAt,
		&receivedBy,
		&requestedBy,
		&processedBy,
		&cancelledBy,
		&m.CancelledAt,
		&remarks,
	)
	if err != nil {
		return nil, err
	}
	m.ReceivedBy = deref(receivedBy)
	m.RequestedBy = deref(requestedBy)
	m.ProcessedBy = deref(processedBy)
	m.CancelledBy = deref(cancelledBy)
	m.Remarks = deref(remarks)
	return &m, nil
}

// buildFilter assembles the WHERE clause for List and Count so both stay in
// agreement about which rows match
func buildFilter(f movement.Filter) (string, []interface{}) {
	var conds []string
	var args []interface{}

	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.ItemID != uuid.Nil {
		add("item_id = $%d", f.ItemID)
	}
	if f.Direction != "" {
		add("direction = $%d", f.Direction)
	}
	if f.Status != "" {
		add("status = $%d", f.Status)
	}
	if f.Actor != "" {
		args = append(args, f.Actor)
		n := strconv.Itoa(len(args))
		conds = append(conds, "(received_by = $"+n+" OR requested_by = $"+n+" OR processed_by = $"+n+" OR cancelled_by = $"+n+")")
	}
	if !f.From.IsZero() {
		add("created_at >= $%d", f.From)
	}
	if !f.To.IsZero() {
		add("created_at <= $%d", f.To)
	}
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		n := strconv.Itoa(len(args))
		conds = append(conds, "(code ILIKE $"+n+" OR remarks ILIKE $"+n+")")
	}

	if len(conds) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(conds, " AND "), args
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
