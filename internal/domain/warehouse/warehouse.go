package warehouse

import (
	"github.com/wms/backend/internal/domain/shared"
)

// Warehouse is a physical facility containing locations
type Warehouse struct {
	shared.BaseAggregateRoot
	Code   string `gorm:"type:varchar(32);not null;uniqueIndex"`
	Name   string `gorm:"type:varchar(255);not null"`
	Active bool   `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (Warehouse) TableName() string {
	return "warehouses"
}

// NewWarehouse creates a new warehouse
func NewWarehouse(code, name string) (*Warehouse, error) {
	if code == "" {
		return nil, shared.NewDomainError("INVALID_CODE", "Warehouse code cannot be empty")
	}
	return &Warehouse{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Code:              code,
		Name:              name,
		Active:            true,
	}, nil
}
