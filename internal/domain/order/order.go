package order

import (
	"github.com/google/uuid"
	"github.com/wms/backend/internal/domain/shared"
)

// Status is the lifecycle state of an order as seen by the engine
type Status string

const (
	StatusOpen      Status = "open"
	StatusPicking   Status = "picking"
	StatusShipped   Status = "shipped"
	StatusCancelled Status = "cancelled"
)

// IsOpen reports whether the order still needs inventory commitment
func (s Status) IsOpen() bool {
	return s == StatusOpen || s == StatusPicking
}

// Order is the sales order the reservation manager commits stock against.
// Orders are owned by the order-management surface; the engine reads them and
// records reservation outcomes on the lines.
type Order struct {
	shared.BaseAggregateRoot
	Number      string     `gorm:"type:varchar(64);not null;uniqueIndex"`
	Status      Status     `gorm:"type:varchar(16);not null;index:idx_order_status"`
	WarehouseID *uuid.UUID `gorm:"type:uuid;index"` // assigned fulfillment warehouse, if any
	Lines       []Line     `gorm:"foreignKey:OrderID;references:ID"`
}

// TableName returns the table name for GORM
func (Order) TableName() string {
	return "orders"
}

// Line is a single order line
type Line struct {
	shared.BaseEntity
	OrderID          uuid.UUID `gorm:"type:uuid;not null;index:idx_order_line_order"`
	VariantSKU       string    `gorm:"type:varchar(64);not null"`
	Quantity         int64     `gorm:"not null"`
	ReservedQuantity int64     `gorm:"not null;default:0"` // maintained by the reservation manager
}

// TableName returns the table name for GORM
func (Line) TableName() string {
	return "order_lines"
}

// Unreserved returns the quantity on the line not yet covered by a reservation
func (l *Line) Unreserved() int64 {
	remaining := l.Quantity - l.ReservedQuantity
	if remaining < 0 {
		return 0
	}
	return remaining
}
