package persistence

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wms/backend/internal/domain/inventory"
)

// GormPoolReader aggregates level rows into fungible base-unit pools. Each
// row's counters are weighted by its variant's unit ratio, which is what
// folds every packaging tier of a product into one number.
type GormPoolReader struct {
	db *gorm.DB
}

// NewGormPoolReader creates a new GormPoolReader
func NewGormPoolReader(db *gorm.DB) *GormPoolReader {
	return &GormPoolReader{db: db}
}

type poolRow struct {
	ProductID uuid.UUID
	OnHand    int64
	Reserved  int64
	Picked    int64
	Packed    int64
	Backorder int64
}

const poolSelect = `product_variants.product_id AS product_id,
COALESCE(SUM(inventory_levels.on_hand * product_variants.units_per_variant), 0) AS on_hand,
COALESCE(SUM(inventory_levels.reserved * product_variants.units_per_variant), 0) AS reserved,
COALESCE(SUM(inventory_levels.picked * product_variants.units_per_variant), 0) AS picked,
COALESCE(SUM(inventory_levels.packed * product_variants.units_per_variant), 0) AS packed,
COALESCE(SUM(inventory_levels.backorder * product_variants.units_per_variant), 0) AS backorder`

// ProductPool sums across all variants and all locations of a product
func (r *GormPoolReader) ProductPool(ctx context.Context, productID uuid.UUID) (inventory.BasePool, error) {
	var row poolRow
	err := r.db.WithContext(ctx).
		Model(&inventory.InventoryLevel{}).
		Select(poolSelect).
		Joins("JOIN product_variants ON product_variants.id = inventory_levels.variant_id").
		Where("product_variants.product_id = ?", productID).
		Group("product_variants.product_id").
		Scan(&row).Error
	if err != nil {
		return inventory.BasePool{}, err
	}
	return toBasePool(row), nil
}

// ProductPoolInWarehouse restricts the sum to one warehouse's locations
func (r *GormPoolReader) ProductPoolInWarehouse(ctx context.Context, productID, warehouseID uuid.UUID) (inventory.BasePool, error) {
	var row poolRow
	err := r.db.WithContext(ctx).
		Model(&inventory.InventoryLevel{}).
		Select(poolSelect).
		Joins("JOIN product_variants ON product_variants.id = inventory_levels.variant_id").
		Joins("JOIN locations ON locations.id = inventory_levels.location_id").
		Where("product_variants.product_id = ? AND locations.warehouse_id = ?", productID, warehouseID).
		Group("product_variants.product_id").
		Scan(&row).Error
	if err != nil {
		return inventory.BasePool{}, err
	}
	return toBasePool(row), nil
}

// ProductPools bulk-loads pools for many products in one query. Products with
// no level rows come back as zero pools.
func (r *GormPoolReader) ProductPools(ctx context.Context, productIDs []uuid.UUID) (map[uuid.UUID]inventory.BasePool, error) {
	out := make(map[uuid.UUID]inventory.BasePool, len(productIDs))
	if len(productIDs) == 0 {
		return out, nil
	}

	var rows []poolRow
	err := r.db.WithContext(ctx).
		Model(&inventory.InventoryLevel{}).
		Select(poolSelect).
		Joins("JOIN product_variants ON product_variants.id = inventory_levels.variant_id").
		Where("product_variants.product_id IN ?", productIDs).
		Group("product_variants.product_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	for _, productID := range productIDs {
		out[productID] = inventory.BasePool{}
	}
	for _, row := range rows {
		out[row.ProductID] = toBasePool(row)
	}
	return out, nil
}

func toBasePool(row poolRow) inventory.BasePool {
	return inventory.BasePool{
		OnHand:    row.OnHand,
		Reserved:  row.Reserved,
		Picked:    row.Picked,
		Packed:    row.Packed,
		Backorder: row.Backorder,
	}
}

var _ inventory.PoolReader = (*GormPoolReader)(nil)
