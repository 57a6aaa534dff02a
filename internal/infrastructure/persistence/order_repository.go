package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wms/backend/internal/domain/order"
	"github.com/wms/backend/internal/domain/shared"
)

// GormOrderRepository implements order.Repository. Orders belong to the
// order-management surface; the engine reads them and writes only the
// reservation bookkeeping on lines.
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// FindByID finds an order with its lines
func (r *GormOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	var ord order.Order
	if err := r.db.WithContext(ctx).
		Preload("Lines").
		First(&ord, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &ord, nil
}

// FindByIDs finds multiple orders with their lines
func (r *GormOrderRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]order.Order, error) {
	if len(ids) == 0 {
		return []order.Order{}, nil
	}
	var orders []order.Order
	if err := r.db.WithContext(ctx).
		Preload("Lines").
		Where("id IN ?", ids).
		Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// SaveLine updates one line's reservation bookkeeping
func (r *GormOrderRepository) SaveLine(ctx context.Context, line *order.Line) error {
	result := r.db.WithContext(ctx).
		Model(&order.Line{}).
		Where("id = ?", line.ID).
		Updates(map[string]interface{}{
			"reserved_quantity": line.ReservedQuantity,
			"updated_at":        line.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

var _ order.Repository = (*GormOrderRepository)(nil)
