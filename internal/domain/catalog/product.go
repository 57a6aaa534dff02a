package catalog

import (
	"github.com/wms/backend/internal/domain/shared"
)

// Product is the sellable good whose stock is pooled across packaging variants.
// All quantities of a product ultimately convert to its base (each) unit.
type Product struct {
	shared.BaseAggregateRoot
	SKU    string `gorm:"type:varchar(64);not null;uniqueIndex"`
	Name   string `gorm:"type:varchar(255);not null"`
	Active bool   `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (Product) TableName() string {
	return "products"
}

// NewProduct creates a new product
func NewProduct(sku, name string) (*Product, error) {
	if sku == "" {
		return nil, shared.NewDomainError("INVALID_SKU", "Product SKU cannot be empty")
	}
	if name == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Product name cannot be empty")
	}
	return &Product{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		SKU:               sku,
		Name:              name,
		Active:            true,
	}, nil
}
