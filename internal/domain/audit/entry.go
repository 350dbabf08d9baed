package audit

import (
	"time"

	"github.com/google/uuid"

	"github.com/warehouse-inventory-ledger/internal/domain/movement"
)

// Entry is one immutable record in the movement audit trail: a committed
// state of a stock movement, written after the owning transaction commits.
type Entry struct {
	MovementID    uuid.UUID          `json:"movement_id" bson:"movement_id"`
	Code          string             `json:"code" bson:"code"`
	ItemID        uuid.UUID          `json:"item_id" bson:"item_id"`
	Direction     movement.Direction `json:"direction" bson:"direction"`
	Quantity      int64              `json:"quantity" bson:"quantity"`
	Status        movement.Status    `json:"status" bson:"status"`
	Actor         string             `json:"actor,omitempty" bson:"actor,omitempty"`
	Remarks       string             `json:"remarks,omitempty" bson:"remarks,omitempty"`
	CorrelationID string             `json:"correlation_id,omitempty" bson:"correlation_id,omitempty"`
	CreatedAt     time.Time          `json:"created_at" bson:"created_at"`
	EffectiveAt   *time.Time         `json:"effective_at,omitempty" bson:"effective_at,omitempty"`
	RecordedAt    time.Time          `json:"recorded_at" bson:"recorded_at"`
}

// NewEntry snapshots a movement into an audit entry. The actor is the one
// responsible for the state being recorded: receiver for receipts,
// processor or canceller for settled issues, requester while pending.
func NewEntry(m *movement.StockMovement, correlationID string) *Entry {
	actor := m.RequestedBy
	switch {
	case m.Direction == movement.DirectionReceipt:
		actor = m.ReceivedBy
	case m.Status == movement.StatusCompleted:
		actor = m.ProcessedBy
	case m.Status == movement.StatusCancelled:
		actor = m.CancelledBy
	}

	return &Entry{
		MovementID:    m.ID,
		Code:          m.Code,
		ItemID:        m.ItemID,
		Direction:     m.Direction,
		Quantity:      m.Quantity,
		Status:        m.Status,
		Actor:         actor,
		Remarks:       m.Remarks,
		CorrelationID: correlationID,
		CreatedAt:     m.CreatedAt,
		EffectiveAt:   m.EffectiveAt,
		RecordedAt:    time.Now().UTC(),
	}
}
