package inventory

import (
	"github.com/google/uuid"
	"github.com/wms/backend/internal/domain/shared"
)

// InventoryLevel is one row per (product variant, warehouse location). The
// five counters are mutually exclusive buckets of physical units in variant
// units. Counters carry no history; the transaction log is the authoritative
// record of how a row got to its current state.
//
// Rows are never mutated outside the guarded repository primitives: every
// quantity-decreasing change re-checks sufficiency in the UPDATE itself, so
// two concurrent callers cannot both succeed against the same insufficient
// stock.
type InventoryLevel struct {
	shared.BaseAggregateRoot
	VariantID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_inventory_level_variant_location,priority:1"`
	LocationID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_inventory_level_variant_location,priority:2"`
	OnHand     int64     `gorm:"not null;default:0"`
	Reserved   int64     `gorm:"not null;default:0"`
	Picked     int64     `gorm:"not null;default:0"`
	Packed     int64     `gorm:"not null;default:0"`
	Backorder  int64     `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (InventoryLevel) TableName() string {
	return "inventory_levels"
}

// NewInventoryLevel creates a new empty inventory level row
func NewInventoryLevel(variantID, locationID uuid.UUID) (*InventoryLevel, error) {
	if variantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_VARIANT", "Variant ID cannot be empty")
	}
	if locationID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_LOCATION", "Location ID cannot be empty")
	}
	return &InventoryLevel{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		VariantID:         variantID,
		LocationID:        locationID,
	}, nil
}

// Available is the quantity promisable from this row: on hand minus what is
// already committed to orders or sitting on a pick cart.
func (l *InventoryLevel) Available() int64 {
	available := l.OnHand - l.Reserved - l.Picked
	if available < 0 {
		return 0
	}
	return available
}

// IsEmpty reports whether every counter is zero
func (l *InventoryLevel) IsEmpty() bool {
	return l.OnHand == 0 && l.Reserved == 0 && l.Picked == 0 &&
		l.Packed == 0 && l.Backorder == 0
}

// HasReservationDeficit reports whether reservations exceed physical stock.
// The steady-state invariant is reserved <= on hand; concurrent cycle counts
// can transiently break it, which is flagged here and corrected by orphan
// reallocation rather than prevented at write time.
func (l *InventoryLevel) HasReservationDeficit() bool {
	return l.Reserved > l.OnHand
}

// ReservationDeficit returns how many reserved units have no physical stock
// backing them
func (l *InventoryLevel) ReservationDeficit() int64 {
	if !l.HasReservationDeficit() {
		return 0
	}
	return l.Reserved - l.OnHand
}

// BucketDelta describes one guarded mutation of an inventory level row.
// Negative deltas are guarded: the UPDATE only succeeds if the bucket still
// covers the decrement at commit time. ReleaseReservedUpTo releases reserved
// units capped at the current reserved value (never guarded, never negative).
type BucketDelta struct {
	OnHand    int64
	Reserved  int64
	Picked    int64
	Packed    int64
	Backorder int64
	// ReleaseReservedUpTo releases up to this many reserved units, capped at
	// what is actually reserved. Used by pick and ship, where consuming stock
	// consumes the matching soft hold.
	ReleaseReservedUpTo int64
	// GuardAvailable additionally requires on_hand - reserved >= this value
	// at commit time. Used by reserve, which must not oversell the row.
	GuardAvailable int64
	// AllowNegativeOnHand disables the non-negativity guard on OnHand.
	// Only explicit adjustments may set it.
	AllowNegativeOnHand bool
}

// IsZero reports whether the delta changes nothing
func (d BucketDelta) IsZero() bool {
	return d.OnHand == 0 && d.Reserved == 0 && d.Picked == 0 &&
		d.Packed == 0 && d.Backorder == 0 && d.ReleaseReservedUpTo == 0
}
