package warehouse

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/wms/backend/internal/domain/shared"
)

// LocationType classifies what a location is used for
type LocationType string

const (
	// LocationTypePick is a forward pick slot replenished from bulk/reserve
	LocationTypePick LocationType = "pick"
	// LocationTypeBulk holds full cases/pallets feeding pick slots
	LocationTypeBulk LocationType = "bulk"
	// LocationTypeReserve is overflow storage behind bulk
	LocationTypeReserve LocationType = "reserve"
	// LocationTypeReceiving is a staging area for inbound stock
	LocationTypeReceiving LocationType = "receiving"
	// LocationTypeShipping is a staging area for outbound stock
	LocationTypeShipping LocationType = "shipping"
)

// IsValid returns true if the location type is valid
func (t LocationType) IsValid() bool {
	switch t {
	case LocationTypePick, LocationTypeBulk, LocationTypeReserve,
		LocationTypeReceiving, LocationTypeShipping:
		return true
	}
	return false
}

// Location is a single addressable slot in a warehouse. The physical address
// (zone/aisle/bay/level/bin) defines the deterministic pick walk order.
// ParentLocationID points at the bulk location physically paired with a pick
// slot; replenishment tries the parent before falling back to a FIFO search.
type Location struct {
	shared.BaseAggregateRoot
	WarehouseID      uuid.UUID    `gorm:"type:uuid;not null;index:idx_location_warehouse"`
	Code             string       `gorm:"type:varchar(64);not null;uniqueIndex"`
	Type             LocationType `gorm:"type:varchar(16);not null;index:idx_location_type"`
	Zone             string       `gorm:"type:varchar(16);not null"`
	Aisle            string       `gorm:"type:varchar(16);not null"`
	Bay              string       `gorm:"type:varchar(16);not null"`
	Level            string       `gorm:"type:varchar(16);not null"`
	Bin              string       `gorm:"type:varchar(16);not null"`
	ParentLocationID *uuid.UUID   `gorm:"type:uuid;index"`
	Pickable         bool         `gorm:"not null;default:true"`
	Active           bool         `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (Location) TableName() string {
	return "locations"
}

// NewLocation creates a new location
func NewLocation(warehouseID uuid.UUID, code string, locType LocationType, zone, aisle, bay, level, bin string) (*Location, error) {
	if warehouseID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_WAREHOUSE", "Warehouse ID cannot be empty")
	}
	if code == "" {
		return nil, shared.NewDomainError("INVALID_CODE", "Location code cannot be empty")
	}
	if !locType.IsValid() {
		return nil, shared.NewDomainError("INVALID_LOCATION_TYPE", "Invalid location type")
	}
	return &Location{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		WarehouseID:       warehouseID,
		Code:              code,
		Type:              locType,
		Zone:              zone,
		Aisle:             aisle,
		Bay:               bay,
		Level:             level,
		Bin:               bin,
		Pickable:          locType == LocationTypePick,
		Active:            true,
	}, nil
}

// Address returns the physical address in walk order
func (l *Location) Address() string {
	return fmt.Sprintf("%s-%s-%s-%s-%s", l.Zone, l.Aisle, l.Bay, l.Level, l.Bin)
}
