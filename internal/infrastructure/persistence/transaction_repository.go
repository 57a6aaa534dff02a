package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wms/backend/internal/domain/inventory"
	"github.com/wms/backend/internal/domain/shared"
)

// GormTransactionRepository implements inventory.TransactionRepository.
// Append-only: there is no update or delete path.
type GormTransactionRepository struct {
	db *gorm.DB
}

// NewGormTransactionRepository creates a new GormTransactionRepository
func NewGormTransactionRepository(db *gorm.DB) *GormTransactionRepository {
	return &GormTransactionRepository{db: db}
}

// Append writes one or more audit records
func (r *GormTransactionRepository) Append(ctx context.Context, txs ...*inventory.InventoryTransaction) error {
	if len(txs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(txs).Error
}

// FindByVariantAndLocation lists audit records touching a (variant, location)
// pair, newest first by default
func (r *GormTransactionRepository) FindByVariantAndLocation(ctx context.Context, variantID, locationID uuid.UUID, filter shared.Filter) ([]inventory.InventoryTransaction, int64, error) {
	query := r.db.WithContext(ctx).
		Model(&inventory.InventoryTransaction{}).
		Where("variant_id = ? AND (from_location_id = ? OR to_location_id = ?)", variantID, locationID, locationID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var txs []inventory.InventoryTransaction
	if err := applyFilter(query, filter).Find(&txs).Error; err != nil {
		return nil, 0, err
	}
	return txs, total, nil
}

// FindByOrder lists audit records correlated with an order, oldest first
func (r *GormTransactionRepository) FindByOrder(ctx context.Context, orderID uuid.UUID) ([]inventory.InventoryTransaction, error) {
	var txs []inventory.InventoryTransaction
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("occurred_at ASC, created_at ASC").
		Find(&txs).Error; err != nil {
		return nil, err
	}
	return txs, nil
}

// PickedQuantitySince sums picked units for a slot over a lookback window.
// Pick deltas are negative at the source; the sum is negated to report
// positive consumption.
func (r *GormTransactionRepository) PickedQuantitySince(ctx context.Context, variantID, locationID uuid.UUID, since time.Time) (int64, error) {
	var result struct {
		Total int64
	}
	err := r.db.WithContext(ctx).
		Model(&inventory.InventoryTransaction{}).
		Select("COALESCE(SUM(-quantity), 0) AS total").
		Where("type = ? AND variant_id = ? AND from_location_id = ? AND occurred_at >= ?",
			inventory.TransactionTypePick, variantID, locationID, since).
		Scan(&result).Error
	if err != nil {
		return 0, err
	}
	return result.Total, nil
}

// FindReservationSources returns reserve transactions pointing at a location
// for a variant, oldest first
func (r *GormTransactionRepository) FindReservationSources(ctx context.Context, variantID, locationID uuid.UUID) ([]inventory.InventoryTransaction, error) {
	var txs []inventory.InventoryTransaction
	if err := r.db.WithContext(ctx).
		Where("type = ? AND variant_id = ? AND to_location_id = ?",
			inventory.TransactionTypeReserve, variantID, locationID).
		Order("occurred_at ASC, created_at ASC").
		Find(&txs).Error; err != nil {
		return nil, err
	}
	return txs, nil
}

var _ inventory.TransactionRepository = (*GormTransactionRepository)(nil)
