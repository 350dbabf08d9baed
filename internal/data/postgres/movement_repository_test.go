package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warehouse-inventory-ledger/internal/domain/movement"
)

var movementTestColumns = []string{
	"id", "code", "item_id", "quantity", "direction", "status", "created_at", "effective_at",
	"received_by", "requested_by", "processed_by", "cancelled_by", "cancelled_at", "remarks",
}

func pendingIssueRow(m *movement.StockMovement) *pgxmock.Rows {
	requestedBy := m.RequestedBy
	return pgxmock.NewRows(movementTestColumns).
		AddRow(m.ID, m.Code, m.ItemID, m.Quantity, m.Direction, m.Status, m.CreatedAt, m.EffectiveAt,
			nil, &requestedBy, nil, nil, m.CancelledAt, nil)
}

func TestMovementRepository_Create(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &MovementRepository{querier: mock, logger: logger}

	m, err := movement.NewIssue(uuid.New(), 5, "line-1", "work order 12")
	require.NoError(t, err)
	m.Code = "OUT-20240115-0001"

	query := `INSERT INTO stock_movements`

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(m.ID, m.Code, m.ItemID, m.Quantity, m.Direction, m.Status, m.CreatedAt, m.EffectiveAt,
				(*string)(nil), &m.RequestedBy, (*string)(nil), (*string)(nil), m.CancelledAt, &m.Remarks).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		err := repo.Create(ctx, m)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate code", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(m.ID, m.Code, m.ItemID, m.Quantity, m.Direction, m.Status, m.CreatedAt, m.EffectiveAt,
				(*string)(nil), &m.RequestedBy, (*string)(nil), (*string)(nil), m.CancelledAt, &m.Remarks).
			WillReturnError(&pgconn.PgError{Code: "23505"})

		err := repo.Create(ctx, m)
		var dupErr movement.ErrDuplicateCode
		require.ErrorAs(t, err, &dupErr)
		assert.Equal(t, m.Code, dupErr.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestMovementRepository_GetByID(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &MovementRepository{querier: mock, logger: logger}

	m, err := movement.NewIssue(uuid.New(), 5, "line-1", "")
	require.NoError(t, err)
	m.Code = "OUT-20240115-0001"

	query := `SELECT (.+) FROM stock_movements WHERE id = \$1`

	t.Run("success", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(m.ID).WillReturnRows(pendingIssueRow(m))

		got, err := repo.GetByID(ctx, m.ID)
		require.NoError(t, err)
		assert.Equal(t, m.ID, got.ID)
		assert.Equal(t, m.Code, got.Code)
		assert.Equal(t, "line-1", got.RequestedBy)
		assert.Empty(t, got.ProcessedBy)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(m.ID).WillReturnError(pgx.ErrNoRows)

		got, err := repo.GetByID(ctx, m.ID)
		assert.Nil(t, got)
		var notFoundErr movement.ErrMovementNotFound
		require.ErrorAs(t, err, &notFoundErr)
		assert.Equal(t, m.ID, notFoundErr.MovementID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestMovementRepository_GetByCode(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &MovementRepository{querier: mock, logger: logger}

	m, err := movement.NewIssue(uuid.New(), 5, "line-1", "")
	require.NoError(t, err)
	m.Code = "OUT-20240115-0001"

	query := `SELECT (.+) FROM stock_movements WHERE code = \$1`

	t.Run("success", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(m.Code).WillReturnRows(pendingIssueRow(m))

		got, err := repo.GetByCode(ctx, m.Code)
		require.NoError(t, err)
		assert.Equal(t, m.ID, got.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(m.Code).WillReturnError(pgx.ErrNoRows)

		got, err := repo.GetByCode(ctx, m.Code)
		assert.Nil(t, got)
		assert.True(t, errors.Is(err, movement.ErrMovementNotFound{}))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestMovementRepository_UpdateTransition(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &MovementRepository{querier: mock, logger: logger}

	m, err := movement.NewIssue(uuid.New(), 5, "line-1", "")
	require.NoError(t, err)
	m.Code = "OUT-20240115-0001"
	require.NoError(t, m.Process("supervisor", time.Now().UTC()))

	query := `
		UPDATE stock_movements
		SET status = \$1, effective_at = \$2, processed_by = \$3, cancelled_by = \$4, cancelled_at = \$5
		WHERE id = \$6 AND status = \$7
	`

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(m.Status, m.EffectiveAt, &m.ProcessedBy, (*string)(nil), m.CancelledAt, m.ID, movement.StatusPending).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		err := repo.UpdateTransition(ctx, m, movement.StatusPending)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("lost race", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(m.Status, m.EffectiveAt, &m.ProcessedBy, (*string)(nil), m.CancelledAt, m.ID, movement.StatusPending).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := repo.UpdateTransition(ctx, m, movement.StatusPending)
		var transitionErr movement.ErrInvalidStateTransition
		require.ErrorAs(t, err, &transitionErr)
		assert.Equal(t, m.ID, transitionErr.MovementID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestMovementRepository_List(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &MovementRepository{querier: mock, logger: logger}

	itemID := uuid.New()
	m, err := movement.NewIssue(itemID, 5, "line-1", "")
	require.NoError(t, err)
	m.Code = "OUT-20240115-0001"

	t.Run("filter by item and status", func(t *testing.T) {
		mock.ExpectQuery(`SELECT (.+) FROM stock_movements WHERE item_id = \$1 AND status = \$2 ORDER BY created_at DESC`).
			WithArgs(itemID, movement.StatusPending, 20, 0).
			WillReturnRows(pendingIssueRow(m))

		got, err := repo.List(ctx, movement.Filter{ItemID: itemID, Status: movement.StatusPending}, 20, 0)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, m.Code, got[0].Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no filter", func(t *testing.T) {
		mock.ExpectQuery(`SELECT (.+) FROM stock_movements\s+ORDER BY created_at DESC`).
			WithArgs(20, 0).
			WillReturnRows(pgxmock.NewRows(movementTestColumns))

		got, err := repo.List(ctx, movement.Filter{}, 20, 0)
		require.NoError(t, err)
		assert.Empty(t, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestMovementRepository_Count(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &MovementRepository{querier: mock, logger: logger}
	itemID := uuid.New()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM stock_movements WHERE item_id = \$1`).
		WithArgs(itemID).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(3)))

	count, err := repo.Count(ctx, movement.Filter{ItemID: itemID})
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
	assert.NoError(t, mock.ExpectationsWereMet())
}
