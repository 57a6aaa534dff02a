package inventory

import (
	"github.com/google/uuid"
	"github.com/wms/backend/internal/domain/shared"
)

// Event type constants
const (
	EventTypeStockPicked                  = "inventory.stock_picked"
	EventTypeInventoryChanged             = "inventory.changed"
	EventTypeOrphanedReservationDetected  = "inventory.orphaned_reservation_detected"
	EventTypeOrphanedReservationCorrected = "inventory.orphaned_reservation_corrected"
)

// AggregateTypeInventoryLevel is the aggregate type for inventory level events
const AggregateTypeInventoryLevel = "InventoryLevel"

// StockPickedEvent is emitted after a successful pick. The replenishment
// engine subscribes to it to re-check the just-picked slot against its
// threshold without waiting for the next scheduled scan.
type StockPickedEvent struct {
	shared.BaseDomainEvent
	VariantID  uuid.UUID `json:"variant_id"`
	LocationID uuid.UUID `json:"location_id"`
	Quantity   int64     `json:"quantity"`
	OrderID    uuid.UUID `json:"order_id"`
}

// NewStockPickedEvent creates a new StockPickedEvent
func NewStockPickedEvent(levelID, variantID, locationID, orderID uuid.UUID, quantity int64) *StockPickedEvent {
	return &StockPickedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockPicked, AggregateTypeInventoryLevel, levelID),
		VariantID:       variantID,
		LocationID:      locationID,
		Quantity:        quantity,
		OrderID:         orderID,
	}
}

// InventoryChangedEvent is emitted after any mutation that moves the ATP
// needle for a product. The channel-sync notifier debounces these per product
// before pushing stock levels outward.
type InventoryChangedEvent struct {
	shared.BaseDomainEvent
	VariantID  uuid.UUID `json:"variant_id"`
	LocationID uuid.UUID `json:"location_id"`
}

// NewInventoryChangedEvent creates a new InventoryChangedEvent
func NewInventoryChangedEvent(levelID, variantID, locationID uuid.UUID) *InventoryChangedEvent {
	return &InventoryChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInventoryChanged, AggregateTypeInventoryLevel, levelID),
		VariantID:       variantID,
		LocationID:      locationID,
	}
}

// OrphanedReservationCorrectedEvent records that reservations exceeding
// physical stock were force-released and which orders were affected
type OrphanedReservationCorrectedEvent struct {
	shared.BaseDomainEvent
	VariantID        uuid.UUID   `json:"variant_id"`
	LocationID       uuid.UUID   `json:"location_id"`
	ReleasedQuantity int64       `json:"released_quantity"`
	AffectedOrderIDs []uuid.UUID `json:"affected_order_ids"`
}

// NewOrphanedReservationCorrectedEvent creates a new correction event
func NewOrphanedReservationCorrectedEvent(levelID, variantID, locationID uuid.UUID, released int64, orderIDs []uuid.UUID) *OrphanedReservationCorrectedEvent {
	return &OrphanedReservationCorrectedEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent(EventTypeOrphanedReservationCorrected, AggregateTypeInventoryLevel, levelID),
		VariantID:        variantID,
		LocationID:       locationID,
		ReleasedQuantity: released,
		AffectedOrderIDs: orderIDs,
	}
}
