package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/warehouse-inventory-ledger/internal/domain/movement"
)

// Repository manages the append-only audit trail. One entry exists per
// committed (movement, status) pair; re-delivered events are deduplicated
// on that key rather than rejected, since the outbox gives at-least-once.
type Repository interface {
	Record(ctx context.Context, entry *Entry) error
	GetByMovementID(ctx context.Context, movementID uuid.UUID) ([]*Entry, error)
	GetByCode(ctx context.Context, code string) ([]*Entry, error)
	GetByItemID(ctx context.Context, itemID uuid.UUID, limit, offset int) ([]*Entry, error)
	CountByItemID(ctx context.Context, itemID uuid.UUID) (int64, error)
	GetByTimeRange(ctx context.Context, start, end time.Time, limit, offset int) ([]*Entry, error)
}

// ErrEntryNotFound indicates no audit entries exist for the lookup key
type ErrEntryNotFound struct {
	MovementID uuid.UUID
}

func (e ErrEntryNotFound) Error() string {
	return "audit entry not found for movement: " + e.MovementID.String()
}

// Is matches any ErrEntryNotFound when the target carries a nil ID
func (e ErrEntryNotFound) Is(target error) bool {
	t, ok := target.(ErrEntryNotFound)
	if !ok {
		return false
	}
	if t.MovementID == uuid.Nil {
		return true
	}
	return e.MovementID == t.MovementID
}

// ErrDuplicateEntry indicates an entry for the same (movement, status) pair
// was already recorded
type ErrDuplicateEntry struct {
	MovementID uuid.UUID
	Status     movement.Status
}

func (e ErrDuplicateEntry) Error() string {
	return "duplicate audit entry: " + e.MovementID.String() + " " + string(e.Status)
}

// Is matches any ErrDuplicateEntry when the target carries a nil ID
func (e ErrDuplicateEntry) Is(target error) bool {
	t, ok := target.(ErrDuplicateEntry)
	if !ok {
		return false
	}
	if t.MovementID == uuid.Nil {
		return true
	}
	return e.MovementID == t.MovementID && e.Status == t.Status
}
