// Package movement holds the stock movement entity and its state machine.
// A movement is a single recorded stock-affecting event: a receipt adds
// stock and is born completed, an issue removes stock and must travel
// Pending -> Completed (or Pending -> Cancelled) before it may do so.
package movement

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common errors
var (
	ErrInvalidQuantity = errors.New("movement quantity must be positive")
	ErrMissingActor    = errors.New("actor reference is required")
)

// Direction defines whether a movement adds or removes stock
type Direction string

const (
	DirectionReceipt Direction = "RECEIPT"
	DirectionIssue   Direction = "ISSUE"
)

// CodePrefix returns the direction tag used in movement codes
func (d Direction) CodePrefix() string {
	if d == DirectionReceipt {
		return "IN"
	}
	return "OUT"
}

// Status defines the movement lifecycle states. Completed and Cancelled are
// terminal: no transition ever leaves them.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
)

// IsTerminal reports whether the status admits no further transitions
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// StockMovement is the ledger's core entity. Code, ItemID, Quantity,
// Direction and CreatedAt are immutable after creation; Status and the
// transition bookkeeping fields are written exactly once, by the single
// transition that reaches them.
type StockMovement struct {
	ID          uuid.UUID  `json:"id"`
	Code        string     `json:"code"`
	ItemID      uuid.UUID  `json:"item_id"`
	Quantity    int64      `json:"quantity"`
	Direction   Direction  `json:"direction"`
	Status      Status     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	EffectiveAt *time.Time `json:"effective_at,omitempty"`
	ReceivedBy  string     `json:"received_by,omitempty"`
	RequestedBy string     `json:"requested_by,omitempty"`
	ProcessedBy string     `json:"processed_by,omitempty"`
	CancelledBy string     `json:"cancelled_by,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
	Remarks     string     `json:"remarks,omitempty"`
}

// NewReceipt creates a receipt movement. Receipts have no pending phase:
// the stock increase happens in the same unit of work, so the movement is
// created already Completed with its effective time set.
func NewReceipt(itemID uuid.UUID, qty int64, receivedBy string, effectiveAt time.Time, remarks string) (*StockMovement, error) {
	if qty <= 0 {
		return nil, ErrInvalidQuantity
	}
	if receivedBy == "" {
		return nil, ErrMissingActor
	}

	now := time.Now().UTC()
	if effectiveAt.IsZero() {
		effectiveAt = now
	}
	effectiveAt = effectiveAt.UTC()

	return &StockMovement{
		ID:          uuid.New(),
		ItemID:      itemID,
		Quantity:    qty,
		Direction:   DirectionReceipt,
		Status:      StatusCompleted,
		CreatedAt:   now,
		EffectiveAt: &effectiveAt,
		ReceivedBy:  receivedBy,
		Remarks:     remarks,
	}, nil
}

// NewIssue creates an issue movement in Pending state. No stock is touched
// until the movement is processed.
func NewIssue(itemID uuid.UUID, qty int64, requestedBy string, remarks string) (*StockMovement, error) {
	if qty <= 0 {
		return nil, ErrInvalidQuantity
	}
	if requestedBy == "" {
		return nil, ErrMissingActor
	}

	return &StockMovement{
		ID:          uuid.New(),
		ItemID:      itemID,
		Quantity:    qty,
		Direction:   DirectionIssue,
		Status:      StatusPending,
		CreatedAt:   time.Now().UTC(),
		RequestedBy: requestedBy,
		Remarks:     remarks,
	}, nil
}

// Process transitions a pending issue to Completed. The caller must apply
// the stock decrement in the same unit of work; this method only performs
// the state-machine guard and bookkeeping.
func (m *StockMovement) Process(processedBy string, now time.Time) error {
	if processedBy == "" {
		return ErrMissingActor
	}
	if m.Direction != DirectionIssue || m.Status != StatusPending {
		return ErrInvalidStateTransition{
			MovementID: m.ID,
			Direction:  m.Direction,
			Status:     m.Status,
			Event:      EventProcess,
		}
	}

	now = now.UTC()
	m.Status = StatusCompleted
	m.ProcessedBy = processedBy
	m.EffectiveAt = &now
	return nil
}

// Cancel transitions a pending issue to Cancelled. Cancellation never
// touches stock, so it needs no ledger-side effect.
func (m *StockMovement) Cancel(cancelledBy string, now time.Time) error {
	if cancelledBy == "" {
		return ErrMissingActor
	}
	if m.Direction != DirectionIssue || m.Status != StatusPending {
		return ErrInvalidStateTransition{
			MovementID: m.ID,
			Direction:  m.Direction,
			Status:     m.Status,
			Event:      EventCancel,
		}
	}

	now = now.UTC()
	m.Status = StatusCancelled
	m.CancelledBy = cancelledBy
	m.CancelledAt = &now
	return nil
}
