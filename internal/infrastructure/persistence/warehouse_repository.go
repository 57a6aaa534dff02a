package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wms/backend/internal/domain/shared"
	"github.com/wms/backend/internal/domain/warehouse"
)

// GormLocationRepository implements warehouse.LocationRepository
type GormLocationRepository struct {
	db *gorm.DB
}

// NewGormLocationRepository creates a new GormLocationRepository
func NewGormLocationRepository(db *gorm.DB) *GormLocationRepository {
	return &GormLocationRepository{db: db}
}

// FindByID finds a location by ID
func (r *GormLocationRepository) FindByID(ctx context.Context, id uuid.UUID) (*warehouse.Location, error) {
	var location warehouse.Location
	if err := r.db.WithContext(ctx).First(&location, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &location, nil
}

// FindPickLocations returns active pickable pick slots in walk order
func (r *GormLocationRepository) FindPickLocations(ctx context.Context, warehouseID *uuid.UUID) ([]warehouse.Location, error) {
	query := r.db.WithContext(ctx).
		Where("type = ? AND pickable = true AND active = true", warehouse.LocationTypePick)
	if warehouseID != nil {
		query = query.Where("warehouse_id = ?", *warehouseID)
	}

	var locations []warehouse.Location
	if err := query.
		Order("zone, aisle, bay, level, bin").
		Find(&locations).Error; err != nil {
		return nil, err
	}
	return locations, nil
}

var _ warehouse.LocationRepository = (*GormLocationRepository)(nil)
