package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/warehouse-inventory-ledger/internal/audit_worker/recorder"
	"github.com/warehouse-inventory-ledger/internal/domain/audit"
	"github.com/warehouse-inventory-ledger/internal/platform/messaging/producers"
)

// MovementEventHandler handles committed movement events from Kafka
type MovementEventHandler struct {
	recordingService recorder.RecordingService
	producer         producers.DeadLetterPublisher
	logger           *slog.Logger
}

// NewMovementEventHandler creates a new handler
func NewMovementEventHandler(
	logger *slog.Logger,
	recordingService recorder.RecordingService,
	producer producers.DeadLetterPublisher,
) *MovementEventHandler {
	return &MovementEventHandler{
		recordingService: recordingService,
		producer:         producer,
		logger:           logger,
	}
}

// HandleMessage records one movement event into the audit trail. A payload
// that cannot be parsed is routed to the DLQ so a poison message never
// blocks the partition; a recording failure is returned to trigger
// redelivery.
func (h *MovementEventHandler) HandleMessage(ctx context.Context, key []byte, value []byte) error {
	var entry audit.Entry
	if err := json.Unmarshal(value, &entry); err != nil {
		unmarshalErrorMsg := "Failed to unmarshal movement event from Kafka message"
		h.logger.Error(unmarshalErrorMsg,
			"error", err,
			"message_key", string(key),
		)

		if h.producer != nil {
			dlqReason := fmt.Sprintf("%s: %s", unmarshalErrorMsg, err.Error())
			if dlqErr := h.producer.PublishToDLQ(ctx, string(key), value, dlqReason); dlqErr != nil {
				h.logger.Error("Failed to publish message to DLQ after unmarshal error",
					"dlq_error", dlqErr,
					"original_error", err,
					"message_key", string(key),
				)
			} else {
				// Message handled, commit offset
				return nil
			}
		}
		return fmt.Errorf("failed to unmarshal message value: %w", err)
	}

	logger := h.logger
	if entry.CorrelationID != "" {
		logger = h.logger.With("correlation_id", entry.CorrelationID)
	}

	logger.Info("Received movement event for audit recording",
		"movement_id", entry.MovementID.String(),
		"code", entry.Code,
		"direction", string(entry.Direction),
		"status", string(entry.Status),
	)

	if err := h.recordingService.RecordEntry(ctx, &entry); err != nil {
		return fmt.Errorf("recording movement %s failed: %w", entry.MovementID.String(), err)
	}

	return nil
}
