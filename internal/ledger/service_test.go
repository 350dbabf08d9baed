package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/warehouse-inventory-ledger/internal/config"
	"github.com/warehouse-inventory-ledger/internal/domain/item"
	"github.com/warehouse-inventory-ledger/internal/domain/movement"
	"github.com/warehouse-inventory-ledger/internal/domain/outbox"
)

type mockItemRepo struct {
	mock.Mock
}

func (m *mockItemRepo) Create(ctx context.Context, it *item.Item) error {
	args := m.Called(ctx, it)
	return args.Error(0)
}

func (m *mockItemRepo) GetByID(ctx context.Context, id uuid.UUID) (*item.Item, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*item.Item), args.Error(1)
}

func (m *mockItemRepo) GetBySKU(ctx context.Context, sku string) (*item.Item, error) {
	args := m.Called(ctx, sku)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*item.Item), args.Error(1)
}

func (m *mockItemRepo) Deactivate(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockItemRepo) List(ctx context.Context, limit, offset int) ([]*item.Item, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*item.Item), args.Error(1)
}

func (m *mockItemRepo) IncreaseQuantity(ctx context.Context, id uuid.UUID, qty int64) error {
	args := m.Called(ctx, id, qty)
	return args.Error(0)
}

func (m *mockItemRepo) DecreaseQuantity(ctx context.Context, id uuid.UUID, qty int64) error {
	args := m.Called(ctx, id, qty)
	return args.Error(0)
}

func (m *mockItemRepo) WithTx(pgx.Tx) item.Repository { return m }

type mockMovementRepo struct {
	mock.Mock
}

func (m *mockMovementRepo) Create(ctx context.Context, mv *movement.StockMovement) error {
	args := m.Called(ctx, mv)
	return args.Error(0)
}

func (m *mockMovementRepo) GetByID(ctx context.Context, id uuid.UUID) (*movement.StockMovement, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*movement.StockMovement), args.Error(1)
}

func (m *mockMovementRepo) GetByCode(ctx context.Context, code string) (*movement.StockMovement, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*movement.StockMovement), args.Error(1)
}

func (m *mockMovementRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (*movement.StockMovement, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*movement.StockMovement), args.Error(1)
}

func (m *mockMovementRepo) UpdateTransition(ctx context.Context, mv *movement.StockMovement, previous movement.Status) error {
	args := m.Called(ctx, mv, previous)
	return args.Error(0)
}

func (m *mockMovementRepo) List(ctx context.Context, f movement.Filter, limit, offset int) ([]*movement.StockMovement, error) {
	args := m.Called(ctx, f, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*movement.StockMovement), args.Error(1)
}

func (m *mockMovementRepo) Count(ctx context.Context, f movement.Filter) (int64, error) {
	args := m.Called(ctx, f)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockMovementRepo) WithTx(pgx.Tx) movement.Repository { return m }

type mockOutboxRepo struct {
	mock.Mock
}

func (m *mockOutboxRepo) Create(ctx context.Context, msg *outbox.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *mockOutboxRepo) GetPending(ctx context.Context, limit int) ([]*outbox.Message, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*outbox.Message), args.Error(1)
}

func (m *mockOutboxRepo) UpdateStatus(ctx context.Context, id int64, status outbox.Status) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *mockOutboxRepo) IncrementAttempts(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockOutboxRepo) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockOutboxRepo) WithTx(pgx.Tx) outbox.Repository { return m }

// fakeTxManager runs the unit of work without a database. A nil pgx.Tx is
// fine because every mock repository ignores it in WithTx.
type fakeTxManager struct {
	err   error
	calls int
}

func (f *fakeTxManager) ExecuteTx(_ context.Context, fn func(tx pgx.Tx) error) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	return fn(nil)
}

type serviceFixture struct {
	service   *ServiceImpl
	txManager *fakeTxManager
	items     *mockItemRepo
	movements *mockMovementRepo
	sequences *stubSequenceRepo
	outbox    *mockOutboxRepo
}

func newServiceFixture() *serviceFixture {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	f := &serviceFixture{
		txManager: &fakeTxManager{},
		items:     new(mockItemRepo),
		movements: new(mockMovementRepo),
		sequences: &stubSequenceRepo{next: 1},
		outbox:    new(mockOutboxRepo),
	}
	f.service = NewService(
		logger,
		f.txManager,
		f.items,
		f.movements,
		f.sequences,
		f.outbox,
		config.LedgerConfig{OperationTimeout: time.Second, CodeRetryAttempts: 3},
	)
	return f
}

func todayCode(prefix string, seq int64) string {
	return fmt.Sprintf("%s-%s-%04d", prefix, time.Now().UTC().Format("20060102"), seq)
}

func TestServiceImpl_CreateReceipt(t *testing.T) {
	ctx := context.Background()
	itemID := uuid.New()

	t.Run("Success", func(t *testing.T) {
		f := newServiceFixture()
		f.items.On("IncreaseQuantity", mock.Anything, itemID, int64(25)).Return(nil).Once()
		f.movements.On("Create", mock.Anything, mock.AnythingOfType("*movement.StockMovement")).Return(nil).Once()
		f.outbox.On("Create", mock.Anything, mock.AnythingOfType("*outbox.Message")).Return(nil).Once()

		m, err := f.service.CreateReceipt(ctx, itemID, 25, "warehouse-a", time.Time{}, "delivery")

		require.NoError(t, err)
		assert.Equal(t, todayCode("IN", 1), m.Code)
		assert.Equal(t, movement.StatusCompleted, m.Status)
		assert.Equal(t, "warehouse-a", m.ReceivedBy)
		assert.Equal(t, 1, f.txManager.calls)
		f.items.AssertExpectations(t)
		f.movements.AssertExpectations(t)
		f.outbox.AssertExpectations(t)
	})

	t.Run("RejectsInvalidQuantityBeforeAnyWork", func(t *testing.T) {
		f := newServiceFixture()

		m, err := f.service.CreateReceipt(ctx, itemID, 0, "warehouse-a", time.Time{}, "")

		assert.Nil(t, m)
		assert.ErrorIs(t, err, movement.ErrInvalidQuantity)
		f.items.AssertNotCalled(t, "IncreaseQuantity", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("RejectsMissingActor", func(t *testing.T) {
		f := newServiceFixture()

		m, err := f.service.CreateReceipt(ctx, itemID, 5, "", time.Time{}, "")

		assert.Nil(t, m)
		assert.ErrorIs(t, err, movement.ErrMissingActor)
	})

	t.Run("UnknownItem", func(t *testing.T) {
		f := newServiceFixture()
		f.items.On("IncreaseQuantity", mock.Anything, itemID, int64(5)).
			Return(item.ErrItemNotFound{ItemID: itemID}).Once()

		m, err := f.service.CreateReceipt(ctx, itemID, 5, "warehouse-a", time.Time{}, "")

		assert.Nil(t, m)
		assert.True(t, errors.Is(err, item.ErrItemNotFound{}))
		f.movements.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("RetriesCodeCollision", func(t *testing.T) {
		f := newServiceFixture()
		f.items.On("IncreaseQuantity", mock.Anything, itemID, int64(5)).Return(nil).Times(3)
		f.movements.On("Create", mock.Anything, mock.Anything).
			Return(movement.ErrDuplicateCode{Code: "IN-X"}).Twice()
		f.movements.On("Create", mock.Anything, mock.Anything).Return(nil).Once()
		f.outbox.On("Create", mock.Anything, mock.Anything).Return(nil).Once()

		m, err := f.service.CreateReceipt(ctx, itemID, 5, "warehouse-a", time.Time{}, "")

		require.NoError(t, err)
		require.NotNil(t, m)
		assert.Equal(t, 3, f.txManager.calls)
		f.movements.AssertExpectations(t)
	})

	t.Run("CodeCollisionExhaustsRetries", func(t *testing.T) {
		f := newServiceFixture()
		f.items.On("IncreaseQuantity", mock.Anything, itemID, int64(5)).Return(nil)
		f.movements.On("Create", mock.Anything, mock.Anything).
			Return(movement.ErrDuplicateCode{Code: "IN-X"})

		m, err := f.service.CreateReceipt(ctx, itemID, 5, "warehouse-a", time.Time{}, "")

		assert.Nil(t, m)
		assert.True(t, errors.Is(err, movement.ErrDuplicateCode{}))
		assert.Equal(t, 3, f.txManager.calls)
	})
}

func TestServiceImpl_CreateIssue(t *testing.T) {
	ctx := context.Background()
	itemID := uuid.New()

	activeItem := &item.Item{ID: itemID, SKU: "BOLT-M8", Name: "Hex bolt M8", Quantity: 100, IsActive: true}

	t.Run("Success", func(t *testing.T) {
		f := newServiceFixture()
		f.sequences.next = 7
		f.items.On("GetByID", mock.Anything, itemID).Return(activeItem, nil).Once()
		f.movements.On("Create", mock.Anything, mock.AnythingOfType("*movement.StockMovement")).Return(nil).Once()
		f.outbox.On("Create", mock.Anything, mock.AnythingOfType("*outbox.Message")).Return(nil).Once()

		m, err := f.service.CreateIssue(ctx, itemID, 10, "line-1", "work order 9")

		require.NoError(t, err)
		assert.Equal(t, todayCode("OUT", 7), m.Code)
		assert.Equal(t, movement.StatusPending, m.Status)
		assert.Equal(t, "line-1", m.RequestedBy)
		f.items.AssertExpectations(t)
		f.items.AssertNotCalled(t, "DecreaseQuantity", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("UnknownItem", func(t *testing.T) {
		f := newServiceFixture()
		f.items.On("GetByID", mock.Anything, itemID).
			Return(nil, item.ErrItemNotFound{ItemID: itemID}).Once()

		m, err := f.service.CreateIssue(ctx, itemID, 10, "line-1", "")

		assert.Nil(t, m)
		assert.True(t, errors.Is(err, item.ErrItemNotFound{}))
		f.movements.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("InactiveItem", func(t *testing.T) {
		f := newServiceFixture()
		retired := &item.Item{ID: itemID, SKU: "BOLT-M8", Name: "Hex bolt M8", IsActive: false}
		f.items.On("GetByID", mock.Anything, itemID).Return(retired, nil).Once()

		m, err := f.service.CreateIssue(ctx, itemID, 10, "line-1", "")

		assert.Nil(t, m)
		assert.True(t, errors.Is(err, item.ErrItemNotFound{}))
		f.movements.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("PendingIssueDoesNotReserveStock", func(t *testing.T) {
		// An issue may be created for more than is on hand; the check
		// happens at processing time.
		f := newServiceFixture()
		f.items.On("GetByID", mock.Anything, itemID).Return(activeItem, nil).Once()
		f.movements.On("Create", mock.Anything, mock.Anything).Return(nil).Once()
		f.outbox.On("Create", mock.Anything, mock.Anything).Return(nil).Once()

		m, err := f.service.CreateIssue(ctx, itemID, 5000, "line-1", "")

		require.NoError(t, err)
		assert.Equal(t, movement.StatusPending, m.Status)
	})
}

func TestServiceImpl_Process(t *testing.T) {
	ctx := context.Background()
	itemID := uuid.New()

	newPendingIssue := func(t *testing.T) *movement.StockMovement {
		t.Helper()
		m, err := movement.NewIssue(itemID, 10, "line-1", "")
		require.NoError(t, err)
		m.Code = "OUT-20240115-0001"
		return m
	}

	t.Run("Success", func(t *testing.T) {
		f := newServiceFixture()
		pending := newPendingIssue(t)
		f.movements.On("GetForUpdate", mock.Anything, pending.ID).Return(pending, nil).Once()
		f.items.On("DecreaseQuantity", mock.Anything, itemID, int64(10)).Return(nil).Once()
		f.movements.On("UpdateTransition", mock.Anything, pending, movement.StatusPending).Return(nil).Once()
		f.outbox.On("Create", mock.Anything, mock.Anything).Return(nil).Once()

		m, err := f.service.Process(ctx, pending.ID, "supervisor")

		require.NoError(t, err)
		assert.Equal(t, movement.StatusCompleted, m.Status)
		assert.Equal(t, "supervisor", m.ProcessedBy)
		require.NotNil(t, m.EffectiveAt)
		f.movements.AssertExpectations(t)
		f.items.AssertExpectations(t)
	})

	t.Run("InsufficientStockLeavesMovementPending", func(t *testing.T) {
		f := newServiceFixture()
		pending := newPendingIssue(t)
		f.movements.On("GetForUpdate", mock.Anything, pending.ID).Return(pending, nil).Once()
		f.items.On("DecreaseQuantity", mock.Anything, itemID, int64(10)).
			Return(item.ErrInsufficientStock{ItemID: itemID, Requested: 10, Available: 3}).Once()

		m, err := f.service.Process(ctx, pending.ID, "supervisor")

		assert.Nil(t, m)
		var stockErr item.ErrInsufficientStock
		require.ErrorAs(t, err, &stockErr)
		assert.Equal(t, int64(3), stockErr.Available)
		f.movements.AssertNotCalled(t, "UpdateTransition", mock.Anything, mock.Anything, mock.Anything)
		f.outbox.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("AlreadyCompleted", func(t *testing.T) {
		f := newServiceFixture()
		done := newPendingIssue(t)
		require.NoError(t, done.Process("earlier", time.Now().UTC()))
		f.movements.On("GetForUpdate", mock.Anything, done.ID).Return(done, nil).Once()

		m, err := f.service.Process(ctx, done.ID, "supervisor")

		assert.Nil(t, m)
		assert.True(t, errors.Is(err, movement.ErrInvalidStateTransition{}))
		f.items.AssertNotCalled(t, "DecreaseQuantity", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("NotFound", func(t *testing.T) {
		f := newServiceFixture()
		id := uuid.New()
		f.movements.On("GetForUpdate", mock.Anything, id).
			Return(nil, movement.ErrMovementNotFound{MovementID: id}).Once()

		m, err := f.service.Process(ctx, id, "supervisor")

		assert.Nil(t, m)
		assert.True(t, errors.Is(err, movement.ErrMovementNotFound{}))
	})

	t.Run("TimeoutMapsToContention", func(t *testing.T) {
		f := newServiceFixture()
		f.txManager.err = context.DeadlineExceeded

		m, err := f.service.Process(ctx, uuid.New(), "supervisor")

		assert.Nil(t, m)
		assert.True(t, errors.Is(err, movement.ErrContention{}))
	})
}

func TestServiceImpl_Cancel(t *testing.T) {
	ctx := context.Background()
	itemID := uuid.New()

	t.Run("Success", func(t *testing.T) {
		f := newServiceFixture()
		pending, err := movement.NewIssue(itemID, 10, "line-1", "")
		require.NoError(t, err)
		f.movements.On("GetForUpdate", mock.Anything, pending.ID).Return(pending, nil).Once()
		f.movements.On("UpdateTransition", mock.Anything, pending, movement.StatusPending).Return(nil).Once()
		f.outbox.On("Create", mock.Anything, mock.Anything).Return(nil).Once()

		m, err := f.service.Cancel(ctx, pending.ID, "storekeeper")

		require.NoError(t, err)
		assert.Equal(t, movement.StatusCancelled, m.Status)
		assert.Equal(t, "storekeeper", m.CancelledBy)
		f.items.AssertNotCalled(t, "DecreaseQuantity", mock.Anything, mock.Anything, mock.Anything)
		f.items.AssertNotCalled(t, "IncreaseQuantity", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("ReceiptCannotBeCancelled", func(t *testing.T) {
		f := newServiceFixture()
		receipt, err := movement.NewReceipt(itemID, 5, "warehouse-a", time.Time{}, "")
		require.NoError(t, err)
		f.movements.On("GetForUpdate", mock.Anything, receipt.ID).Return(receipt, nil).Once()

		m, err := f.service.Cancel(ctx, receipt.ID, "storekeeper")

		assert.Nil(t, m)
		assert.True(t, errors.Is(err, movement.ErrInvalidStateTransition{}))
	})
}

func TestServiceImpl_ListMovements(t *testing.T) {
	ctx := context.Background()

	t.Run("NormalizesPagination", func(t *testing.T) {
		f := newServiceFixture()
		filter := movement.Filter{Status: movement.StatusPending}
		f.movements.On("List", mock.Anything, filter, 20, 0).
			Return([]*movement.StockMovement{}, nil).Once()
		f.movements.On("Count", mock.Anything, filter).Return(int64(0), nil).Once()

		_, total, err := f.service.ListMovements(ctx, filter, 0, 0)

		require.NoError(t, err)
		assert.Equal(t, int64(0), total)
		f.movements.AssertExpectations(t)
	})

	t.Run("CapsPerPage", func(t *testing.T) {
		f := newServiceFixture()
		filter := movement.Filter{}
		f.movements.On("List", mock.Anything, filter, 100, 100).
			Return([]*movement.StockMovement{}, nil).Once()
		f.movements.On("Count", mock.Anything, filter).Return(int64(250), nil).Once()

		_, total, err := f.service.ListMovements(ctx, filter, 2, 500)

		require.NoError(t, err)
		assert.Equal(t, int64(250), total)
		f.movements.AssertExpectations(t)
	})
}
