package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/warehouse-inventory-ledger/internal/config"
	"github.com/warehouse-inventory-ledger/internal/domain/audit"
	"github.com/warehouse-inventory-ledger/internal/domain/item"
	"github.com/warehouse-inventory-ledger/internal/domain/movement"
	"github.com/warehouse-inventory-ledger/internal/domain/outbox"
	"github.com/warehouse-inventory-ledger/internal/platform/persistence"
)

const (
	defaultPerPage = 20
	maxPerPage     = 100
)

// ServiceImpl implements the Service interface
type ServiceImpl struct {
	txManager    persistence.TxManager
	itemRepo     item.Repository
	movementRepo movement.Repository
	seqRepo      movement.SequenceRepository
	outboxRepo   outbox.Repository
	codes        *CodeGenerator
	logger       *slog.Logger
	cfg          config.LedgerConfig
	now          func() time.Time
}

// NewService creates a new transaction ledger service
func NewService(
	logger *slog.Logger,
	txManager persistence.TxManager,
	itemRepo item.Repository,
	movementRepo movement.Repository,
	seqRepo movement.SequenceRepository,
	outboxRepo outbox.Repository,
	cfg config.LedgerConfig,
) *ServiceImpl {
	return &ServiceImpl{
		txManager:    txManager,
		itemRepo:     itemRepo,
		movementRepo: movementRepo,
		seqRepo:      seqRepo,
		outboxRepo:   outboxRepo,
		codes:        NewCodeGenerator(),
		logger:       logger,
		cfg:          cfg,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// CreateReceipt records an inbound movement and applies the stock increase
// in one transaction
func (s *ServiceImpl) CreateReceipt(ctx context.Context, itemID uuid.UUID, qty int64, receivedBy string, effectiveAt time.Time, remarks string) (*movement.StockMovement, error) {
	var created *movement.StockMovement

	err := s.runWithCodeRetry(ctx, "create receipt", func(ctx context.Context) error {
		m, err := movement.NewReceipt(itemID, qty, receivedBy, effectiveAt, remarks)
		if err != nil {
			return err
		}

		return s.txManager.ExecuteTx(ctx, func(tx pgx.Tx) error {
			if err := s.itemRepo.WithTx(tx).IncreaseQuantity(ctx, itemID, qty); err != nil {
				return err
			}

			code, err := s.codes.Generate(ctx, s.seqRepo.WithTx(tx), movement.DirectionReceipt, m.CreatedAt)
			if err != nil {
				return err
			}
			m.Code = code

			if err := s.movementRepo.WithTx(tx).Create(ctx, m); err != nil {
				return err
			}
			if err := s.enqueueAudit(ctx, tx, m); err != nil {
				return err
			}

			created = m
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Receipt recorded",
		"code", created.Code,
		"item_id", itemID.String(),
		"quantity", qty,
	)
	return created, nil
}

// CreateIssue records an outbound movement in Pending state. The item is
// checked for existence up front so a request against an unknown or retired
// item fails immediately rather than at processing time.
func (s *ServiceImpl) CreateIssue(ctx context.Context, itemID uuid.UUID, qty int64, requestedBy string, remarks string) (*movement.StockMovement, error) {
	var created *movement.StockMovement

	err := s.runWithCodeRetry(ctx, "create issue", func(ctx context.Context) error {
		m, err := movement.NewIssue(itemID, qty, requestedBy, remarks)
		if err != nil {
			return err
		}

		return s.txManager.ExecuteTx(ctx, func(tx pgx.Tx) error {
			it, err := s.itemRepo.WithTx(tx).GetByID(ctx, itemID)
			if err != nil {
				return err
			}
			if !it.IsActive {
				return item.ErrItemNotFound{ItemID: itemID}
			}

			code, err := s.codes.Generate(ctx, s.seqRepo.WithTx(tx), movement.DirectionIssue, m.CreatedAt)
			if err != nil {
				return err
			}
			m.Code = code

			if err := s.movementRepo.WithTx(tx).Create(ctx, m); err != nil {
				return err
			}
			if err := s.enqueueAudit(ctx, tx, m); err != nil {
				return err
			}

			created = m
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Issue requested",
		"code", created.Code,
		"item_id", itemID.String(),
		"quantity", qty,
	)
	return created, nil
}

// Process settles a pending issue. The movement row is locked first, the
// state-machine guard runs on the loaded state, and the conditional stock
// decrement follows; any failure rolls the whole transaction back and the
// movement stays Pending.
func (s *ServiceImpl) Process(ctx context.Context, movementID uuid.UUID, processedBy string) (*movement.StockMovement, error) {
	var processed *movement.StockMovement

	err := s.run(ctx, "process movement", func(ctx context.Context) error {
		return s.txManager.ExecuteTx(ctx, func(tx pgx.Tx) error {
			movements := s.movementRepo.WithTx(tx)

			m, err := movements.GetForUpdate(ctx, movementID)
			if err != nil {
				return err
			}

			previous := m.Status
			if err := m.Process(processedBy, s.now()); err != nil {
				return err
			}

			if err := s.itemRepo.WithTx(tx).DecreaseQuantity(ctx, m.ItemID, m.Quantity); err != nil {
				return err
			}
			if err := movements.UpdateTransition(ctx, m, previous); err != nil {
				return err
			}
			if err := s.enqueueAudit(ctx, tx, m); err != nil {
				return err
			}

			processed = m
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Issue processed",
		"code", processed.Code,
		"item_id", processed.ItemID.String(),
		"quantity", processed.Quantity,
	)
	return processed, nil
}

// Cancel retires a pending issue. Stock was never decremented for a pending
// movement, so cancellation is bookkeeping only.
func (s *ServiceImpl) Cancel(ctx context.Context, movementID uuid.UUID, cancelledBy string) (*movement.StockMovement, error) {
	var cancelled *movement.StockMovement

	err := s.run(ctx, "cancel movement", func(ctx context.Context) error {
		return s.txManager.ExecuteTx(ctx, func(tx pgx.Tx) error {
			movements := s.movementRepo.WithTx(tx)

			m, err := movements.GetForUpdate(ctx, movementID)
			if err != nil {
				return err
			}

			previous := m.Status
			if err := m.Cancel(cancelledBy, s.now()); err != nil {
				return err
			}

			if err := movements.UpdateTransition(ctx, m, previous); err != nil {
				return err
			}
			if err := s.enqueueAudit(ctx, tx, m); err != nil {
				return err
			}

			cancelled = m
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Issue cancelled",
		"code", cancelled.Code,
		"item_id", cancelled.ItemID.String(),
	)
	return cancelled, nil
}

// GetMovement retrieves a movement by ID
func (s *ServiceImpl) GetMovement(ctx context.Context, id uuid.UUID) (*movement.StockMovement, error) {
	return s.movementRepo.GetByID(ctx, id)
}

// GetMovementByCode retrieves a movement by its code
func (s *ServiceImpl) GetMovementByCode(ctx context.Context, code string) (*movement.StockMovement, error) {
	return s.movementRepo.GetByCode(ctx, code)
}

// ListMovements retrieves a page of movements matching the filter together
// with the total match count
func (s *ServiceImpl) ListMovements(ctx context.Context, f movement.Filter, page, perPage int) ([]*movement.StockMovement, int64, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = defaultPerPage
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}
	offset := (page - 1) * perPage

	movements, err := s.movementRepo.List(ctx, f, perPage, offset)
	if err != nil {
		return nil, 0, err
	}

	count, err := s.movementRepo.Count(ctx, f)
	if err != nil {
		return nil, 0, err
	}

	return movements, count, nil
}

// enqueueAudit snapshots the movement into the outbox inside the same
// transaction, so the audit pipeline only ever sees committed transitions
func (s *ServiceImpl) enqueueAudit(ctx context.Context, tx pgx.Tx, m *movement.StockMovement) error {
	entry := audit.NewEntry(m, CorrelationIDFromContext(ctx))
	msg, err := outbox.NewMessage(entry)
	if err != nil {
		return fmt.Errorf("failed to build audit message: %w", err)
	}
	return s.outboxRepo.WithTx(tx).Create(ctx, msg)
}

// run executes one unit of work under the operation timeout. Expiry means
// the operation lost a lock race for too long; it rolled back and is safe
// to retry, which ErrContention tells the caller.
func (s *ServiceImpl) run(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	opCtx, cancel := context.WithTimeout(ctx, s.cfg.OperationTimeout)
	defer cancel()

	err := fn(opCtx)
	if err != nil && (errors.Is(err, context.DeadlineExceeded) || opCtx.Err() == context.DeadlineExceeded) {
		s.logger.Warn("Operation timed out under contention", "op", op)
		return movement.ErrContention{Op: op}
	}
	return err
}

// runWithCodeRetry re-runs the unit of work on a movement code collision.
// The allocator makes collisions all but impossible, but a small bounded
// retry keeps a stray one from surfacing to the caller.
func (s *ServiceImpl) runWithCodeRetry(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	var err error
	for attempt := 1; attempt <= s.cfg.CodeRetryAttempts; attempt++ {
		err = s.run(ctx, op, fn)
		if !errors.Is(err, movement.ErrDuplicateCode{}) {
			return err
		}
		s.logger.Warn("Movement code collision, retrying",
			"op", op,
			"attempt", attempt,
		)
	}
	return err
}
