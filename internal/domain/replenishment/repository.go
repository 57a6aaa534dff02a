package replenishment

import (
	"context"

	"github.com/google/uuid"
	"github.com/wms/backend/internal/domain/shared"
)

// TaskRepository persists replenishment tasks
type TaskRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Task, error)
	FindAll(ctx context.Context, filter shared.Filter) ([]Task, int64, error)
	Save(ctx context.Context, task *Task) error

	// FindActiveByVariantAndDestination returns the pending/assigned/
	// in-progress task for a (pick variant, destination) pair, if any.
	// The scan's dedup check.
	FindActiveByVariantAndDestination(ctx context.Context, pickVariantID, destinationLocationID uuid.UUID) (*Task, error)
}
