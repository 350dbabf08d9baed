// Package recorder writes committed movement events into the MongoDB audit
// trail. Delivery is at-least-once, so recording must tolerate replays.
package recorder

import (
	"context"

	"github.com/warehouse-inventory-ledger/internal/domain/audit"
)

// RecordingService records one movement event into the audit trail
type RecordingService interface {
	RecordEntry(ctx context.Context, entry *audit.Entry) error
}
