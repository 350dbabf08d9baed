// Package ledger implements the transaction ledger core: the only code path
// through which on-hand stock quantities ever change. Every mutating
// operation is one database transaction; the movement row, the quantity
// update, the code allocation and the audit outbox row commit or roll back
// together.
package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/warehouse-inventory-ledger/internal/domain/movement"
)

// Service defines the transaction ledger operations
type Service interface {
	// CreateReceipt records an inbound movement and increases the item's
	// stock in the same unit of work. The movement is created already
	// Completed. effectiveAt may be zero, meaning "now".
	CreateReceipt(ctx context.Context, itemID uuid.UUID, qty int64, receivedBy string, effectiveAt time.Time, remarks string) (*movement.StockMovement, error)

	// CreateIssue records an outbound movement in Pending state. Stock is
	// untouched until the movement is processed.
	CreateIssue(ctx context.Context, itemID uuid.UUID, qty int64, requestedBy string, remarks string) (*movement.StockMovement, error)

	// Process settles a pending issue: decrements the item's stock and marks
	// the movement Completed. Fails without side effects if the item lacks
	// sufficient stock.
	Process(ctx context.Context, movementID uuid.UUID, processedBy string) (*movement.StockMovement, error)

	// Cancel retires a pending issue without touching stock
	Cancel(ctx context.Context, movementID uuid.UUID, cancelledBy string) (*movement.StockMovement, error)

	GetMovement(ctx context.Context, id uuid.UUID) (*movement.StockMovement, error)
	GetMovementByCode(ctx context.Context, code string) (*movement.StockMovement, error)
	ListMovements(ctx context.Context, f movement.Filter, page, perPage int) ([]*movement.StockMovement, int64, error)
}
