package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/warehouse-inventory-ledger/internal/domain/movement"
)

// CodeGenerator produces human-readable movement codes of the form
// IN-20240131-0001 / OUT-20240131-0001: direction tag, creation date, and a
// gapless 4-digit sequence scoped to the (direction, date) bucket. The
// sequence comes from the atomic allocator; this type only formats it.
type CodeGenerator struct{}

// NewCodeGenerator creates a new code generator
func NewCodeGenerator() *CodeGenerator {
	return &CodeGenerator{}
}

// Generate allocates the next sequence number for the bucket and formats
// the code. The allocator must be transaction-scoped by the caller so the
// allocation commits or rolls back with the movement insert.
func (g *CodeGenerator) Generate(ctx context.Context, seq movement.SequenceRepository, direction movement.Direction, at time.Time) (string, error) {
	n, err := seq.Next(ctx, direction, at)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%s-%s-%04d", direction.CodePrefix(), at.UTC().Format("20060102"), n), nil
}
