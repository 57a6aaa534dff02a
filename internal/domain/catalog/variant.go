package catalog

import (
	"github.com/google/uuid"
	"github.com/wms/backend/internal/domain/shared"
)

// Packaging hierarchy levels, strictly ordered by packaging size.
const (
	HierarchyEach   = 1
	HierarchyPack   = 2
	HierarchyCase   = 3
	HierarchyPallet = 4
)

// ProductVariant is a specific packaging tier of a product (each, pack, case,
// pallet). UnitsPerVariant is the fixed ratio to the product's base unit:
// physical stock of any variant converts to base units via
// quantity * UnitsPerVariant, which is what makes variants of one product
// fungible against a single pool.
type ProductVariant struct {
	shared.BaseAggregateRoot
	ProductID       uuid.UUID `gorm:"type:uuid;not null;index:idx_product_variant_product"`
	SKU             string    `gorm:"type:varchar(64);not null;uniqueIndex"`
	Name            string    `gorm:"type:varchar(255);not null"`
	UnitsPerVariant int64     `gorm:"not null;default:1"`
	HierarchyLevel  int       `gorm:"not null;default:1"`
}

// TableName returns the table name for GORM
func (ProductVariant) TableName() string {
	return "product_variants"
}

// NewProductVariant creates a new packaging variant for a product
func NewProductVariant(productID uuid.UUID, sku, name string, unitsPerVariant int64, hierarchyLevel int) (*ProductVariant, error) {
	if productID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PRODUCT", "Product ID cannot be empty")
	}
	if sku == "" {
		return nil, shared.NewDomainError("INVALID_SKU", "Variant SKU cannot be empty")
	}
	if unitsPerVariant <= 0 {
		return nil, shared.NewDomainError("INVALID_RATIO", "Units per variant must be positive")
	}
	if hierarchyLevel < HierarchyEach || hierarchyLevel > HierarchyPallet {
		return nil, shared.NewDomainError("INVALID_HIERARCHY", "Hierarchy level out of range")
	}
	return &ProductVariant{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		ProductID:         productID,
		SKU:               sku,
		Name:              name,
		UnitsPerVariant:   unitsPerVariant,
		HierarchyLevel:    hierarchyLevel,
	}, nil
}

// BaseUnits converts a quantity of this variant to base units
func (v *ProductVariant) BaseUnits(quantity int64) int64 {
	return quantity * v.UnitsPerVariant
}

// IsLargerThan reports whether this variant packages more base units per unit
// than the other variant
func (v *ProductVariant) IsLargerThan(other *ProductVariant) bool {
	return v.UnitsPerVariant > other.UnitsPerVariant
}

// ConvertibleTo reports whether a whole number of target units results from
// breaking or assembling between the two variants
func (v *ProductVariant) ConvertibleTo(target *ProductVariant) bool {
	if v.UnitsPerVariant > target.UnitsPerVariant {
		return v.UnitsPerVariant%target.UnitsPerVariant == 0
	}
	return target.UnitsPerVariant%v.UnitsPerVariant == 0
}

// ChannelListing marks a variant as listed on an external sales channel.
// Channel-scoped ATP only reports variants with an active listing.
type ChannelListing struct {
	shared.BaseEntity
	VariantID uuid.UUID `gorm:"type:uuid;not null;index:idx_channel_listing_variant"`
	Channel   string    `gorm:"type:varchar(64);not null;index:idx_channel_listing_channel"`
	Active    bool      `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (ChannelListing) TableName() string {
	return "channel_listings"
}
