package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/warehouse-inventory-ledger/internal/domain/audit"
)

// Status defines message publishing states
type Status string

const (
	StatusPending         Status = "PENDING"
	StatusProcessed       Status = "PROCESSED"
	StatusFailedToPublish Status = "FAILED_TO_PUBLISH"
)

// Message stores a committed movement event for reliable publishing. It is
// written in the same transaction as the movement transition, so the audit
// pipeline can never observe a transition that did not commit.
type Message struct {
	ID            int64           `json:"id"`
	MovementID    uuid.UUID       `json:"movement_id"`
	ItemID        uuid.UUID       `json:"item_id"`
	Payload       json.RawMessage `json:"payload"`
	Status        Status          `json:"status"`
	Attempts      int             `json:"attempts"`
	CreatedAt     time.Time       `json:"created_at"`
	LastAttemptAt *time.Time      `json:"last_attempt_at,omitempty"`
}

// NewMessage wraps an audit entry into a pending outbox message
func NewMessage(entry *audit.Entry) (*Message, error) {
	payload, err := json.Marshal(entry)
	if err != nil {
		return nil, err
	}

	return &Message{
		MovementID: entry.MovementID,
		ItemID:     entry.ItemID,
		Payload:    payload,
		Status:     StatusPending,
		Attempts:   0,
		CreatedAt:  time.Now().UTC(),
	}, nil
}

// Entry extracts the audit entry from the payload
func (m *Message) Entry() (*audit.Entry, error) {
	var entry audit.Entry
	if err := json.Unmarshal(m.Payload, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}
