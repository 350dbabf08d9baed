package recorder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/warehouse-inventory-ledger/internal/domain/audit"
)

// RecordingServiceImpl implements RecordingService against the audit repository
type RecordingServiceImpl struct {
	auditRepo audit.Repository
	logger    *slog.Logger
}

// NewRecordingService creates a new audit recording service
func NewRecordingService(logger *slog.Logger, auditRepo audit.Repository) *RecordingServiceImpl {
	return &RecordingServiceImpl{
		auditRepo: auditRepo,
		logger:    logger,
	}
}

// RecordEntry appends the entry to the audit trail. A duplicate for the same
// (movement, status) pair is a redelivery of an event already recorded and
// counts as success.
func (s *RecordingServiceImpl) RecordEntry(ctx context.Context, entry *audit.Entry) error {
	logger := s.logger
	if entry.CorrelationID != "" {
		logger = s.logger.With("correlation_id", entry.CorrelationID)
	}

	err := s.auditRepo.Record(ctx, entry)
	if err != nil {
		if errors.Is(err, audit.ErrDuplicateEntry{}) {
			logger.Info("Audit entry already recorded, skipping replay",
				"movement_id", entry.MovementID.String(),
				"status", string(entry.Status),
			)
			return nil
		}
		logger.Error("Failed to record audit entry",
			"movement_id", entry.MovementID.String(),
			"code", entry.Code,
			"error", err,
		)
		return fmt.Errorf("failed to record audit entry for movement %s: %w", entry.MovementID.String(), err)
	}

	logger.Info("Audit entry recorded",
		"movement_id", entry.MovementID.String(),
		"code", entry.Code,
		"status", string(entry.Status),
	)
	return nil
}
