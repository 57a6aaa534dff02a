package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wms/backend/internal/domain/replenishment"
	"github.com/wms/backend/internal/domain/shared"
)

// GormTaskRepository implements replenishment.TaskRepository
type GormTaskRepository struct {
	db *gorm.DB
}

// NewGormTaskRepository creates a new GormTaskRepository
func NewGormTaskRepository(db *gorm.DB) *GormTaskRepository {
	return &GormTaskRepository{db: db}
}

// FindByID finds a task by ID
func (r *GormTaskRepository) FindByID(ctx context.Context, id uuid.UUID) (*replenishment.Task, error) {
	var task replenishment.Task
	if err := r.db.WithContext(ctx).First(&task, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &task, nil
}

// FindAll lists tasks with pagination
func (r *GormTaskRepository) FindAll(ctx context.Context, filter shared.Filter) ([]replenishment.Task, int64, error) {
	query := r.db.WithContext(ctx).Model(&replenishment.Task{})

	if status, ok := filter.Filters["status"]; ok {
		query = query.Where("status = ?", status)
	}
	if locationID, ok := filter.Filters["destination_location_id"]; ok {
		query = query.Where("destination_location_id = ?", locationID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var tasks []replenishment.Task
	if err := applyFilter(query, filter).Find(&tasks).Error; err != nil {
		return nil, 0, err
	}
	return tasks, total, nil
}

// Save creates or updates a task
func (r *GormTaskRepository) Save(ctx context.Context, task *replenishment.Task) error {
	return r.db.WithContext(ctx).Save(task).Error
}

// FindActiveByVariantAndDestination returns the open task for a
// (pick variant, destination) pair, if any
func (r *GormTaskRepository) FindActiveByVariantAndDestination(ctx context.Context, pickVariantID, destinationLocationID uuid.UUID) (*replenishment.Task, error) {
	var task replenishment.Task
	err := r.db.WithContext(ctx).
		Where("pick_variant_id = ? AND destination_location_id = ? AND status IN ?",
			pickVariantID, destinationLocationID,
			[]replenishment.TaskStatus{
				replenishment.TaskStatusPending,
				replenishment.TaskStatusAssigned,
				replenishment.TaskStatusInProgress,
			}).
		Order("created_at ASC").
		First(&task).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &task, nil
}

var _ replenishment.TaskRepository = (*GormTaskRepository)(nil)

// GormConfigRepository implements replenishment.ConfigRepository. Absent
// configuration is not an error: lookups return nil so the resolver chain
// can fall through to the next precedence layer.
type GormConfigRepository struct {
	db *gorm.DB
}

// NewGormConfigRepository creates a new GormConfigRepository
func NewGormConfigRepository(db *gorm.DB) *GormConfigRepository {
	return &GormConfigRepository{db: db}
}

// FindLocationVariantConfig returns the config pinned to this exact
// (location, variant) pair
func (r *GormConfigRepository) FindLocationVariantConfig(ctx context.Context, locationID, variantID uuid.UUID) (*replenishment.LocationConfig, error) {
	var cfg replenishment.LocationConfig
	err := r.db.WithContext(ctx).
		Where("location_id = ? AND variant_id = ?", locationID, variantID).
		First(&cfg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &cfg, nil
}

// FindLocationWideConfig returns the variant-agnostic config for a location
func (r *GormConfigRepository) FindLocationWideConfig(ctx context.Context, locationID uuid.UUID) (*replenishment.LocationConfig, error) {
	var cfg replenishment.LocationConfig
	err := r.db.WithContext(ctx).
		Where("location_id = ? AND variant_id IS NULL", locationID).
		First(&cfg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &cfg, nil
}

// FindRuleByVariant returns the SKU-specific rule for a variant
func (r *GormConfigRepository) FindRuleByVariant(ctx context.Context, variantID uuid.UUID) (*replenishment.Rule, error) {
	var rule replenishment.Rule
	err := r.db.WithContext(ctx).
		Where("variant_id = ?", variantID).
		First(&rule).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rule, nil
}

// FindTierDefault returns the default for a packaging hierarchy level
func (r *GormConfigRepository) FindTierDefault(ctx context.Context, hierarchyLevel int) (*replenishment.TierDefault, error) {
	var def replenishment.TierDefault
	err := r.db.WithContext(ctx).
		Where("hierarchy_level = ?", hierarchyLevel).
		First(&def).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &def, nil
}

// HasBinAssignment reports whether an active location config pins the
// variant to the location
func (r *GormConfigRepository) HasBinAssignment(ctx context.Context, locationID, variantID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&replenishment.LocationConfig{}).
		Where("location_id = ? AND variant_id = ? AND active = true", locationID, variantID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

var _ replenishment.ConfigRepository = (*GormConfigRepository)(nil)
