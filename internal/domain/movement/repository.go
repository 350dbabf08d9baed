package movement

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Event names a state-machine transition attempt, used in error reporting
type Event string

const (
	EventProcess Event = "PROCESS"
	EventCancel  Event = "CANCEL"
)

// Filter narrows movement listing. Zero values mean "no constraint".
type Filter struct {
	ItemID    uuid.UUID
	Direction Direction
	Status    Status
	Actor     string
	From      time.Time
	To        time.Time
	Search    string
}

// Repository defines stock movement persistence operations
type Repository interface {
	Create(ctx context.Context, m *StockMovement) error
	GetByID(ctx context.Context, id uuid.UUID) (*StockMovement, error)
	GetByCode(ctx context.Context, code string) (*StockMovement, error)

	// GetForUpdate loads a movement under a row lock so concurrent
	// transitions on the same movement serialize.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*StockMovement, error)

	// UpdateTransition persists the fields written by a Process or Cancel
	// transition. The WHERE clause re-checks the previous status so a lost
	// race surfaces as zero rows affected.
	UpdateTransition(ctx context.Context, m *StockMovement, previous Status) error

	List(ctx context.Context, f Filter, limit, offset int) ([]*StockMovement, error)
	Count(ctx context.Context, f Filter) (int64, error)
	WithTx(tx pgx.Tx) Repository
}

// SequenceRepository allocates movement code sequence numbers. Next must be
// a single atomic increment of the (direction, date) bucket counter; the
// counter row stays locked until the enclosing transaction commits, which
// both serializes same-bucket creators and keeps the sequence gapless when
// a creation rolls back.
type SequenceRepository interface {
	Next(ctx context.Context, direction Direction, date time.Time) (int64, error)
	WithTx(tx pgx.Tx) SequenceRepository
}

// ErrMovementNotFound indicates a missing movement
type ErrMovementNotFound struct {
	MovementID uuid.UUID
}

func (e ErrMovementNotFound) Error() string {
	return "stock movement not found: " + e.MovementID.String()
}

// Is matches any ErrMovementNotFound when the target carries a nil ID
func (e ErrMovementNotFound) Is(target error) bool {
	t, ok := target.(ErrMovementNotFound)
	if !ok {
		return false
	}
	if t.MovementID == uuid.Nil {
		return true
	}
	return e.MovementID == t.MovementID
}

// ErrInvalidStateTransition indicates a Process or Cancel attempt on a
// movement whose direction or status does not admit it
type ErrInvalidStateTransition struct {
	MovementID uuid.UUID
	Direction  Direction
	Status     Status
	Event      Event
}

func (e ErrInvalidStateTransition) Error() string {
	return fmt.Sprintf("invalid transition %s for %s movement %s in status %s",
		e.Event, e.Direction, e.MovementID.String(), e.Status)
}

// Is matches any ErrInvalidStateTransition when the target carries a nil ID
func (e ErrInvalidStateTransition) Is(target error) bool {
	t, ok := target.(ErrInvalidStateTransition)
	if !ok {
		return false
	}
	if t.MovementID == uuid.Nil {
		return true
	}
	return e.MovementID == t.MovementID
}

// ErrDuplicateCode indicates a movement code collision on insert. The
// service retries allocation a bounded number of times before surfacing it.
type ErrDuplicateCode struct {
	Code string
}

func (e ErrDuplicateCode) Error() string {
	return "duplicate movement code: " + e.Code
}

// Is matches any ErrDuplicateCode when the target carries an empty code
func (e ErrDuplicateCode) Is(target error) bool {
	t, ok := target.(ErrDuplicateCode)
	if !ok {
		return false
	}
	return t.Code == "" || e.Code == t.Code
}

// ErrContention indicates the unit of work could not acquire its locks or
// commit within the configured bound. The operation was rolled back and is
// safe to retry.
type ErrContention struct {
	Op string
}

func (e ErrContention) Error() string {
	return "operation timed out under contention, retry: " + e.Op
}

// Is matches any ErrContention when the target carries an empty op
func (e ErrContention) Is(target error) bool {
	t, ok := target.(ErrContention)
	if !ok {
		return false
	}
	return t.Op == "" || e.Op == t.Op
}
