package warehouse

import (
	"context"

	"github.com/google/uuid"
)

// LocationRepository provides read access to warehouse locations.
// Location CRUD is owned by the warehouse settings surface; the engine reads.
type LocationRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Location, error)
	// FindPickLocations returns active pickable pick-type locations,
	// optionally scoped to one warehouse, ordered by physical address
	FindPickLocations(ctx context.Context, warehouseID *uuid.UUID) ([]Location, error)
}
