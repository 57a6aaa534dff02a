package catalog

import (
	"context"

	"github.com/google/uuid"
)

// ProductRepository provides read access to products.
// Product CRUD is owned by the catalog surface; the engine only reads.
type ProductRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Product, error)
	FindBySKU(ctx context.Context, sku string) (*Product, error)
}

// VariantRepository provides read access to product variants
type VariantRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*ProductVariant, error)
	FindBySKU(ctx context.Context, sku string) (*ProductVariant, error)
	FindByProduct(ctx context.Context, productID uuid.UUID) ([]ProductVariant, error)
	// FindSmallerSiblings returns same-product variants with a strictly
	// smaller unit ratio than the given variant, largest first
	FindSmallerSiblings(ctx context.Context, variant *ProductVariant) ([]ProductVariant, error)
}

// ChannelListingRepository provides read access to channel listings
type ChannelListingRepository interface {
	FindActiveByProduct(ctx context.Context, productID uuid.UUID, channel string) ([]ChannelListing, error)
}
