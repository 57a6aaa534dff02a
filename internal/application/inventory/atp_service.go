package inventory

import (
	"context"

	"github.com/google/uuid"
	"github.com/wms/backend/internal/domain/catalog"
	"github.com/wms/backend/internal/domain/inventory"
)

// VariantATPResponse is sellable availability for one packaging tier
type VariantATPResponse struct {
	VariantID       uuid.UUID `json:"variant_id"`
	SKU             string    `json:"sku"`
	UnitsPerVariant int64     `json:"units_per_variant"`
	// Available is how many whole units of this variant the shared pool
	// covers. Floor division: a partial unit is not sellable.
	Available int64 `json:"available"`
}

// ATPResponse is a product's available-to-promise picture in base units plus
// the per-variant breakdown
type ATPResponse struct {
	ProductID    uuid.UUID            `json:"product_id"`
	ATPBase      int64                `json:"atp_base"`
	OnHandBase   int64                `json:"on_hand_base"`
	ReservedBase int64                `json:"reserved_base"`
	PickedBase   int64                `json:"picked_base"`
	PackedBase   int64                `json:"packed_base"`
	Variants     []VariantATPResponse `json:"variants"`
}

// ATPService computes available-to-promise from the shared base-unit pool.
// Read-only: every answer is derived from current level rows at query time,
// never cached, so a sale of one variant is immediately visible in the
// availability of every sibling variant.
type ATPService struct {
	pools       inventory.PoolReader
	variantRepo catalog.VariantRepository
	listingRepo catalog.ChannelListingRepository
}

// NewATPService creates a new ATPService
func NewATPService(
	pools inventory.PoolReader,
	variantRepo catalog.VariantRepository,
	listingRepo catalog.ChannelListingRepository,
) *ATPService {
	return &ATPService{
		pools:       pools,
		variantRepo: variantRepo,
		listingRepo: listingRepo,
	}
}

// ProductATP returns availability for a product across all locations
func (s *ATPService) ProductATP(ctx context.Context, productID uuid.UUID) (*ATPResponse, error) {
	pool, err := s.pools.ProductPool(ctx, productID)
	if err != nil {
		return nil, err
	}
	return s.buildResponse(ctx, productID, pool, nil)
}

// WarehouseATP returns availability restricted to one warehouse
func (s *ATPService) WarehouseATP(ctx context.Context, productID, warehouseID uuid.UUID) (*ATPResponse, error) {
	pool, err := s.pools.ProductPoolInWarehouse(ctx, productID, warehouseID)
	if err != nil {
		return nil, err
	}
	return s.buildResponse(ctx, productID, pool, nil)
}

// ChannelATP returns availability restricted to variants actively listed on a
// sales channel. The pool itself is unrestricted; the channel only filters
// which packaging tiers are reported.
func (s *ATPService) ChannelATP(ctx context.Context, productID uuid.UUID, channel string) (*ATPResponse, error) {
	pool, err := s.pools.ProductPool(ctx, productID)
	if err != nil {
		return nil, err
	}
	listings, err := s.listingRepo.FindActiveByProduct(ctx, productID, channel)
	if err != nil {
		return nil, err
	}
	listed := make(map[uuid.UUID]bool, len(listings))
	for i := range listings {
		listed[listings[i].VariantID] = true
	}
	return s.buildResponse(ctx, productID, pool, listed)
}

// BulkATP returns availability for many products in one pass, for listing
// pages and channel feeds
func (s *ATPService) BulkATP(ctx context.Context, productIDs []uuid.UUID) (map[uuid.UUID]*ATPResponse, error) {
	pools, err := s.pools.ProductPools(ctx, productIDs)
	if err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID]*ATPResponse, len(productIDs))
	for _, productID := range productIDs {
		pool := pools[productID]
		resp, err := s.buildResponse(ctx, productID, pool, nil)
		if err != nil {
			return nil, err
		}
		out[productID] = resp
	}
	return out, nil
}

func (s *ATPService) buildResponse(ctx context.Context, productID uuid.UUID, pool inventory.BasePool, listed map[uuid.UUID]bool) (*ATPResponse, error) {
	variants, err := s.variantRepo.FindByProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	atp := pool.ATP()
	resp := &ATPResponse{
		ProductID:    productID,
		ATPBase:      atp,
		OnHandBase:   pool.OnHand,
		ReservedBase: pool.Reserved,
		PickedBase:   pool.Picked,
		PackedBase:   pool.Packed,
		Variants:     make([]VariantATPResponse, 0, len(variants)),
	}
	for i := range variants {
		v := &variants[i]
		if listed != nil && !listed[v.ID] {
			continue
		}
		available := int64(0)
		if atp > 0 {
			available = atp / v.UnitsPerVariant
		}
		resp.Variants = append(resp.Variants, VariantATPResponse{
			VariantID:       v.ID,
			SKU:             v.SKU,
			UnitsPerVariant: v.UnitsPerVariant,
			Available:       available,
		})
	}
	return resp, nil
}
