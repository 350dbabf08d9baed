package outbox_poller

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/warehouse-inventory-ledger/internal/domain/outbox"
	"github.com/warehouse-inventory-ledger/internal/platform/messaging/producers"
)

// EventPublisher pushes one outbox message into the movement topic
type EventPublisher interface {
	PublishEvent(ctx context.Context, message *outbox.Message) error
}

// EventPublisherImpl implements EventPublisher on a Kafka producer
type EventPublisherImpl struct {
	outboxRepo outbox.Repository
	producer   producers.MessagePublisher
	logger     *slog.Logger
}

// NewEventPublisher creates a new publisher
func NewEventPublisher(
	outboxRepo outbox.Repository,
	producer producers.MessagePublisher,
	logger *slog.Logger,
) *EventPublisherImpl {
	return &EventPublisherImpl{
		outboxRepo: outboxRepo,
		producer:   producer,
		logger:     logger,
	}
}

// PublishEvent publishes the message payload keyed by item ID and marks the
// outbox row as processed. Keying by item keeps one item's events on one
// partition, so the audit trail replays per-item history in order.
func (p *EventPublisherImpl) PublishEvent(ctx context.Context, message *outbox.Message) error {
	entry, err := message.Entry()
	if err != nil {
		p.logger.Error("Failed to decode audit entry from outbox payload",
			"outbox_id", message.ID, "movement_id", message.MovementID.String(), "error", err,
		)
		if updateErr := p.outboxRepo.UpdateStatus(ctx, message.ID, outbox.StatusFailedToPublish); updateErr != nil {
			p.logger.Error("Also failed to update outbox status to FAILED_TO_PUBLISH after decode error",
				"outbox_id", message.ID, "update_error", updateErr,
			)
		}
		return fmt.Errorf("decode payload for outbox %d failed: %w", message.ID, err)
	}

	logger := p.logger
	if entry.CorrelationID != "" {
		logger = p.logger.With("correlation_id", entry.CorrelationID)
	}

	if err := p.producer.Publish(ctx, message.ItemID.String(), message.Payload); err != nil {
		return fmt.Errorf("failed to publish outbox message %d: %w", message.ID, err)
	}

	if err := p.outboxRepo.UpdateStatus(ctx, message.ID, outbox.StatusProcessed); err != nil {
		logger.Error("Published event but failed to mark outbox message as PROCESSED",
			"outbox_id", message.ID, "movement_id", message.MovementID.String(), "error", err,
		)
		return fmt.Errorf("publish for movement %s OK, but failed to mark outbox %d as PROCESSED: %w",
			message.MovementID.String(), message.ID, err)
	}

	logger.Info("Outbox message published and marked as PROCESSED",
		"outbox_id", message.ID, "movement_id", message.MovementID.String(), "code", entry.Code,
	)
	return nil
}
