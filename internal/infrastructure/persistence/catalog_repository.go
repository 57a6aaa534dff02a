package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wms/backend/internal/domain/catalog"
	"github.com/wms/backend/internal/domain/shared"
)

// GormProductRepository implements catalog.ProductRepository
type GormProductRepository struct {
	db *gorm.DB
}

// NewGormProductRepository creates a new GormProductRepository
func NewGormProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

// FindByID finds a product by ID
func (r *GormProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	var product catalog.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &product, nil
}

// FindBySKU finds a product by SKU
func (r *GormProductRepository) FindBySKU(ctx context.Context, sku string) (*catalog.Product, error) {
	var product catalog.Product
	if err := r.db.WithContext(ctx).First(&product, "sku = ?", sku).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &product, nil
}

var _ catalog.ProductRepository = (*GormProductRepository)(nil)

// GormVariantRepository implements catalog.VariantRepository
type GormVariantRepository struct {
	db *gorm.DB
}

// NewGormVariantRepository creates a new GormVariantRepository
func NewGormVariantRepository(db *gorm.DB) *GormVariantRepository {
	return &GormVariantRepository{db: db}
}

// FindByID finds a variant by ID
func (r *GormVariantRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.ProductVariant, error) {
	var variant catalog.ProductVariant
	if err := r.db.WithContext(ctx).First(&variant, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &variant, nil
}

// FindBySKU finds a variant by SKU
func (r *GormVariantRepository) FindBySKU(ctx context.Context, sku string) (*catalog.ProductVariant, error) {
	var variant catalog.ProductVariant
	if err := r.db.WithContext(ctx).First(&variant, "sku = ?", sku).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &variant, nil
}

// FindByProduct finds all packaging tiers of a product, smallest first
func (r *GormVariantRepository) FindByProduct(ctx context.Context, productID uuid.UUID) ([]catalog.ProductVariant, error) {
	var variants []catalog.ProductVariant
	if err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("units_per_variant ASC").
		Find(&variants).Error; err != nil {
		return nil, err
	}
	return variants, nil
}

// FindSmallerSiblings finds same-product variants with a strictly smaller
// unit ratio, largest first
func (r *GormVariantRepository) FindSmallerSiblings(ctx context.Context, variant *catalog.ProductVariant) ([]catalog.ProductVariant, error) {
	var variants []catalog.ProductVariant
	if err := r.db.WithContext(ctx).
		Where("product_id = ? AND units_per_variant < ? AND id != ?",
			variant.ProductID, variant.UnitsPerVariant, variant.ID).
		Order("units_per_variant DESC").
		Find(&variants).Error; err != nil {
		return nil, err
	}
	return variants, nil
}

var _ catalog.VariantRepository = (*GormVariantRepository)(nil)

// GormChannelListingRepository implements catalog.ChannelListingRepository
type GormChannelListingRepository struct {
	db *gorm.DB
}

// NewGormChannelListingRepository creates a new GormChannelListingRepository
func NewGormChannelListingRepository(db *gorm.DB) *GormChannelListingRepository {
	return &GormChannelListingRepository{db: db}
}

// FindActiveByProduct finds active listings for a product on a channel
func (r *GormChannelListingRepository) FindActiveByProduct(ctx context.Context, productID uuid.UUID, channel string) ([]catalog.ChannelListing, error) {
	var listings []catalog.ChannelListing
	err := r.db.WithContext(ctx).
		Joins("JOIN product_variants ON product_variants.id = channel_listings.variant_id").
		Where("product_variants.product_id = ? AND channel_listings.channel = ? AND channel_listings.active = true",
			productID, channel).
		Find(&listings).Error
	if err != nil {
		return nil, err
	}
	return listings, nil
}

var _ catalog.ChannelListingRepository = (*GormChannelListingRepository)(nil)
