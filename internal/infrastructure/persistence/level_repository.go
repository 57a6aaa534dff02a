package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/wms/backend/internal/domain/inventory"
	"github.com/wms/backend/internal/domain/shared"
	"github.com/wms/backend/internal/domain/warehouse"
)

// GormLevelRepository implements inventory.LevelRepository using GORM.
// ApplyDelta is the single write path for counters: guards live in the
// UPDATE's WHERE clause, so sufficiency is checked by the database at commit
// time and two racing decrements can never both succeed.
type GormLevelRepository struct {
	db *gorm.DB
}

// NewGormLevelRepository creates a new GormLevelRepository
func NewGormLevelRepository(db *gorm.DB) *GormLevelRepository {
	return &GormLevelRepository{db: db}
}

// FindByID finds an inventory level by ID
func (r *GormLevelRepository) FindByID(ctx context.Context, id uuid.UUID) (*inventory.InventoryLevel, error) {
	var level inventory.InventoryLevel
	if err := r.db.WithContext(ctx).First(&level, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &level, nil
}

// FindByVariantAndLocation finds the row for a (variant, location) pair
func (r *GormLevelRepository) FindByVariantAndLocation(ctx context.Context, variantID, locationID uuid.UUID) (*inventory.InventoryLevel, error) {
	var level inventory.InventoryLevel
	err := r.db.WithContext(ctx).
		First(&level, "variant_id = ? AND location_id = ?", variantID, locationID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &level, nil
}

// FindByVariant finds all rows for a variant
func (r *GormLevelRepository) FindByVariant(ctx context.Context, variantID uuid.UUID) ([]inventory.InventoryLevel, error) {
	var levels []inventory.InventoryLevel
	if err := r.db.WithContext(ctx).
		Where("variant_id = ?", variantID).
		Find(&levels).Error; err != nil {
		return nil, err
	}
	return levels, nil
}

// FindByLocation finds all rows at a location
func (r *GormLevelRepository) FindByLocation(ctx context.Context, locationID uuid.UUID) ([]inventory.InventoryLevel, error) {
	var levels []inventory.InventoryLevel
	if err := r.db.WithContext(ctx).
		Where("location_id = ?", locationID).
		Find(&levels).Error; err != nil {
		return nil, err
	}
	return levels, nil
}

// FindAll lists rows with pagination
func (r *GormLevelRepository) FindAll(ctx context.Context, filter shared.Filter) ([]inventory.InventoryLevel, int64, error) {
	var total int64
	query := r.db.WithContext(ctx).Model(&inventory.InventoryLevel{})
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var levels []inventory.InventoryLevel
	if err := applyFilter(query, filter).Find(&levels).Error; err != nil {
		return nil, 0, err
	}
	return levels, total, nil
}

// GetOrCreate returns the existing row or creates an empty one, racing safely
// against concurrent creators via ON CONFLICT DO NOTHING.
func (r *GormLevelRepository) GetOrCreate(ctx context.Context, variantID, locationID uuid.UUID) (*inventory.InventoryLevel, error) {
	level, err := r.FindByVariantAndLocation(ctx, variantID, locationID)
	if err == nil {
		return level, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	level, err = inventory.NewInventoryLevel(variantID, locationID)
	if err != nil {
		return nil, err
	}
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "variant_id"}, {Name: "location_id"}},
			DoNothing: true,
		}).
		Create(level)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		// lost the race, the winner's row is the one to use
		return r.FindByVariantAndLocation(ctx, variantID, locationID)
	}
	return level, nil
}

// ApplyDelta performs the guarded atomic update
func (r *GormLevelRepository) ApplyDelta(ctx context.Context, id uuid.UUID, delta inventory.BucketDelta) (bool, error) {
	if delta.IsZero() {
		return true, nil
	}
	if delta.ReleaseReservedUpTo > 0 && delta.Reserved != 0 {
		return false, shared.NewDomainError("INVALID_DELTA", "Reserved delta and capped release cannot be combined")
	}

	updates := map[string]interface{}{
		"version":    gorm.Expr("version + 1"),
		"updated_at": time.Now(),
	}
	query := r.db.WithContext(ctx).
		Model(&inventory.InventoryLevel{}).
		Where("id = ?", id)

	if delta.OnHand != 0 {
		updates["on_hand"] = gorm.Expr("on_hand + ?", delta.OnHand)
		if delta.OnHand < 0 && !delta.AllowNegativeOnHand {
			query = query.Where("on_hand >= ?", -delta.OnHand)
		}
	}
	switch {
	case delta.ReleaseReservedUpTo > 0:
		updates["reserved"] = gorm.Expr("GREATEST(reserved - ?, 0)", delta.ReleaseReservedUpTo)
	case delta.Reserved != 0:
		updates["reserved"] = gorm.Expr("reserved + ?", delta.Reserved)
		if delta.Reserved < 0 {
			query = query.Where("reserved >= ?", -delta.Reserved)
		}
	}
	if delta.Picked != 0 {
		updates["picked"] = gorm.Expr("picked + ?", delta.Picked)
		if delta.Picked < 0 {
			query = query.Where("picked >= ?", -delta.Picked)
		}
	}
	if delta.Packed != 0 {
		updates["packed"] = gorm.Expr("packed + ?", delta.Packed)
		if delta.Packed < 0 {
			query = query.Where("packed >= ?", -delta.Packed)
		}
	}
	if delta.Backorder != 0 {
		updates["backorder"] = gorm.Expr("backorder + ?", delta.Backorder)
		if delta.Backorder < 0 {
			query = query.Where("backorder >= ?", -delta.Backorder)
		}
	}
	if delta.GuardAvailable > 0 {
		query = query.Where("on_hand - reserved >= ?", delta.GuardAvailable)
	}

	result := query.Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected > 0 {
		return true, nil
	}

	// no row updated: either the guard tripped or the row is gone
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&inventory.InventoryLevel{}).
		Where("id = ?", id).
		Count(&count).Error; err != nil {
		return false, err
	}
	if count == 0 {
		return false, shared.ErrNotFound
	}
	return false, nil
}

// DeleteIfEmpty removes the row only if every counter is still zero at delete
// time. The re-check in the DELETE's WHERE makes the cleanup safe against a
// concurrent receipt landing between the caller's read and the delete.
func (r *GormLevelRepository) DeleteIfEmpty(ctx context.Context, id uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("id = ? AND on_hand = 0 AND reserved = 0 AND picked = 0 AND packed = 0 AND backorder = 0", id).
		Delete(&inventory.InventoryLevel{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// FindByVariantInWalkOrder returns rows for a variant ordered by the physical
// pick path of their locations
func (r *GormLevelRepository) FindByVariantInWalkOrder(ctx context.Context, variantID uuid.UUID, warehouseID *uuid.UUID) ([]inventory.InventoryLevel, error) {
	query := r.db.WithContext(ctx).
		Model(&inventory.InventoryLevel{}).
		Joins("JOIN locations ON locations.id = inventory_levels.location_id").
		Where("inventory_levels.variant_id = ?", variantID).
		Where("locations.active = true")
	if warehouseID != nil {
		query = query.Where("locations.warehouse_id = ?", *warehouseID)
	}

	var levels []inventory.InventoryLevel
	if err := query.
		Order("locations.zone, locations.aisle, locations.bay, locations.level, locations.bin").
		Find(&levels).Error; err != nil {
		return nil, err
	}
	return levels, nil
}

// FindOldestWithStock returns the least recently updated stocked row for the
// variant at locations of the given type, the FIFO sourcing fallback
func (r *GormLevelRepository) FindOldestWithStock(ctx context.Context, variantID uuid.UUID, locationType warehouse.LocationType, warehouseID uuid.UUID) (*inventory.InventoryLevel, error) {
	var level inventory.InventoryLevel
	err := r.db.WithContext(ctx).
		Model(&inventory.InventoryLevel{}).
		Joins("JOIN locations ON locations.id = inventory_levels.location_id").
		Where("inventory_levels.variant_id = ? AND inventory_levels.on_hand > 0", variantID).
		Where("locations.type = ? AND locations.warehouse_id = ? AND locations.active = true", locationType, warehouseID).
		Order("inventory_levels.updated_at ASC").
		First(&level).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &level, nil
}

// FindReservationDeficits returns rows where reserved exceeds on-hand
func (r *GormLevelRepository) FindReservationDeficits(ctx context.Context) ([]inventory.InventoryLevel, error) {
	var levels []inventory.InventoryLevel
	if err := r.db.WithContext(ctx).
		Where("reserved > on_hand").
		Find(&levels).Error; err != nil {
		return nil, err
	}
	return levels, nil
}

var _ inventory.LevelRepository = (*GormLevelRepository)(nil)
