package outbox

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warehouse-inventory-ledger/internal/domain/audit"
	"github.com/warehouse-inventory-ledger/internal/domain/movement"
)

func TestNewMessage(t *testing.T) {
	t.Run("SuccessfulCreation", func(t *testing.T) {
		entry := &audit.Entry{
			MovementID: uuid.New(),
			Code:       "OUT-20240115-0003",
			ItemID:     uuid.New(),
			Direction:  movement.DirectionIssue,
			Quantity:   12,
			Status:     movement.StatusPending,
			Actor:      "line-1",
			CreatedAt:  time.Now().UTC().Add(-time.Minute),
			RecordedAt: time.Now().UTC(),
		}

		msg, err := NewMessage(entry)

		require.NoError(t, err)
		require.NotNil(t, msg)
		assert.Equal(t, entry.MovementID, msg.MovementID)
		assert.Equal(t, entry.ItemID, msg.ItemID)
		assert.Equal(t, StatusPending, msg.Status)
		assert.Equal(t, 0, msg.Attempts)
		assert.Nil(t, msg.LastAttemptAt)

		var decoded audit.Entry
		require.NoError(t, json.Unmarshal(msg.Payload, &decoded))
		assert.Equal(t, entry.Code, decoded.Code)
		assert.Equal(t, entry.Quantity, decoded.Quantity)
	})
}

func TestMessage_Entry(t *testing.T) {
	t.Run("RoundTrip", func(t *testing.T) {
		original := &audit.Entry{
			MovementID: uuid.New(),
			Code:       "IN-20240115-0001",
			ItemID:     uuid.New(),
			Direction:  movement.DirectionReceipt,
			Quantity:   7,
			Status:     movement.StatusCompleted,
		}
		msg, err := NewMessage(original)
		require.NoError(t, err)

		decoded, err := msg.Entry()

		require.NoError(t, err)
		assert.Equal(t, original.MovementID, decoded.MovementID)
		assert.Equal(t, original.Status, decoded.Status)
	})

	t.Run("CorruptPayload", func(t *testing.T) {
		msg := &Message{Payload: []byte("{not json")}

		decoded, err := msg.Entry()

		assert.Error(t, err)
		assert.Nil(t, decoded)
	})
}
