package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/wms/backend/internal/domain/shared"
	"github.com/wms/backend/internal/domain/warehouse"
)

// LevelRepository persists inventory level rows and owns the guarded atomic
// update primitive every mutation goes through.
type LevelRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*InventoryLevel, error)
	FindByVariantAndLocation(ctx context.Context, variantID, locationID uuid.UUID) (*InventoryLevel, error)
	FindByVariant(ctx context.Context, variantID uuid.UUID) ([]InventoryLevel, error)
	FindByLocation(ctx context.Context, locationID uuid.UUID) ([]InventoryLevel, error)
	FindAll(ctx context.Context, filter shared.Filter) ([]InventoryLevel, int64, error)

	// GetOrCreate returns the existing row for (variant, location) or creates
	// an empty one, racing safely against concurrent creators.
	GetOrCreate(ctx context.Context, variantID, locationID uuid.UUID) (*InventoryLevel, error)

	// ApplyDelta performs the guarded atomic update. Every negative bucket
	// delta is re-checked against the current value in the UPDATE's WHERE
	// clause; (false, nil) means the guard tripped because someone else
	// consumed the stock first. That is an expected outcome under
	// contention, not an error.
	ApplyDelta(ctx context.Context, id uuid.UUID, delta BucketDelta) (bool, error)

	// DeleteIfEmpty removes the row only if every counter is still zero at
	// delete time. Returns whether a row was deleted.
	DeleteIfEmpty(ctx context.Context, id uuid.UUID) (bool, error)

	// FindByVariantInWalkOrder returns rows for a variant joined with their
	// locations, ordered by the physical zone/aisle/bay/level/bin sequence,
	// optionally scoped to one warehouse. Used for deterministic, low-travel
	// location selection.
	FindByVariantInWalkOrder(ctx context.Context, variantID uuid.UUID, warehouseID *uuid.UUID) ([]InventoryLevel, error)

	// FindOldestWithStock returns the least recently updated row with
	// positive on-hand for the variant at locations of the given type in the
	// same warehouse. Used as the FIFO fallback for replenishment sourcing.
	FindOldestWithStock(ctx context.Context, variantID uuid.UUID, locationType warehouse.LocationType, warehouseID uuid.UUID) (*InventoryLevel, error)

	// FindReservationDeficits returns rows where reserved exceeds on-hand
	FindReservationDeficits(ctx context.Context) ([]InventoryLevel, error)
}

// TransactionRepository is the append-only store for the audit log
type TransactionRepository interface {
	Append(ctx context.Context, txs ...*InventoryTransaction) error
	FindByVariantAndLocation(ctx context.Context, variantID, locationID uuid.UUID, filter shared.Filter) ([]InventoryTransaction, int64, error)
	FindByOrder(ctx context.Context, orderID uuid.UUID) ([]InventoryTransaction, error)

	// PickedQuantitySince sums picked quantity for a (variant, location)
	// pair over a lookback window. Feeds the pallet-drop velocity math.
	PickedQuantitySince(ctx context.Context, variantID, locationID uuid.UUID, since time.Time) (int64, error)

	// FindReservationSources returns the reserve transactions that still
	// point at a location for a variant, oldest first. Orphan recovery uses
	// them to discover which orders were promised the vanished stock.
	FindReservationSources(ctx context.Context, variantID, locationID uuid.UUID) ([]InventoryTransaction, error)
}

// BasePool is a product's stock aggregated to base units across variants.
// Never persisted; always recomputed from the ledger so it cannot go stale.
type BasePool struct {
	OnHand    int64
	Reserved  int64
	Picked    int64
	Packed    int64
	Backorder int64
}

// ATP returns the available-to-promise base units. Backorder is tracked but
// deliberately excluded: it is future demand, not a current commitment.
func (p BasePool) ATP() int64 {
	return p.OnHand - p.Reserved - p.Picked - p.Packed
}

// PoolReader aggregates ledger state into fungible base-unit pools
type PoolReader interface {
	// ProductPool sums across all variants and all locations of a product
	ProductPool(ctx context.Context, productID uuid.UUID) (BasePool, error)
	// ProductPoolInWarehouse restricts the sum to one warehouse's locations
	ProductPoolInWarehouse(ctx context.Context, productID, warehouseID uuid.UUID) (BasePool, error)
	// ProductPools bulk-loads pools for many products in one query
	ProductPools(ctx context.Context, productIDs []uuid.UUID) (map[uuid.UUID]BasePool, error)
}
