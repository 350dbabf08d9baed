package item

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository defines item persistence and the stock ledger primitives.
// IncreaseQuantity and DecreaseQuantity are the only writers of Item.Quantity
// anywhere in the system; both must run inside the same transaction as the
// movement transition that triggered them.
type Repository interface {
	Create(ctx context.Context, it *Item) error
	GetByID(ctx context.Context, id uuid.UUID) (*Item, error)
	GetBySKU(ctx context.Context, sku string) (*Item, error)
	Deactivate(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*Item, error)

	// IncreaseQuantity adds qty to the item's on-hand count.
	// Fails with ErrItemNotFound if the item is missing or inactive.
	IncreaseQuantity(ctx context.Context, id uuid.UUID, qty int64) error

	// DecreaseQuantity subtracts qty as a single conditional update: the
	// guard (quantity >= qty) and the write are one statement. Fails with
	// ErrInsufficientStock, leaving the quantity unchanged, if the guard
	// does not hold at execution time.
	DecreaseQuantity(ctx context.Context, id uuid.UUID, qty int64) error

	WithTx(tx pgx.Tx) Repository
}

// ErrItemNotFound indicates a missing or inactive item
type ErrItemNotFound struct {
	ItemID uuid.UUID
}

func (e ErrItemNotFound) Error() string {
	return "item not found or inactive: " + e.ItemID.String()
}

// Is matches any ErrItemNotFound when the target carries a nil ID
func (e ErrItemNotFound) Is(target error) bool {
	t, ok := target.(ErrItemNotFound)
	if !ok {
		return false
	}
	if t.ItemID == uuid.Nil {
		return true
	}
	return e.ItemID == t.ItemID
}

// ErrDuplicateSKU indicates SKU uniqueness violation
type ErrDuplicateSKU struct {
	SKU string
}

func (e ErrDuplicateSKU) Error() string {
	return "item with SKU already exists: " + e.SKU
}

// ErrInsufficientStock indicates the conditional decrement guard failed
type ErrInsufficientStock struct {
	ItemID    uuid.UUID
	Requested int64
	Available int64
}

func (e ErrInsufficientStock) Error() string {
	return fmt.Sprintf("insufficient stock for item %s: requested %d, available %d",
		e.ItemID.String(), e.Requested, e.Available)
}

// Is matches any ErrInsufficientStock when the target carries a nil ID
func (e ErrInsufficientStock) Is(target error) bool {
	t, ok := target.(ErrInsufficientStock)
	if !ok {
		return false
	}
	if t.ItemID == uuid.Nil {
		return true
	}
	return e.ItemID == t.ItemID
}
