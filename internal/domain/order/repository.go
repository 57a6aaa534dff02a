package order

import (
	"context"

	"github.com/google/uuid"
)

// Repository provides access to orders for the reservation manager.
// Reads are general; the only write the engine performs is updating the
// reserved quantity bookkeeping on lines.
type Repository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Order, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]Order, error)
	SaveLine(ctx context.Context, line *Line) error
}
