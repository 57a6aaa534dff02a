package inventory

import "github.com/google/uuid"

// BreakStockRequest breaks larger packaging units into smaller ones in place
type BreakStockRequest struct {
	SourceVariantID uuid.UUID `json:"source_variant_id" binding:"required"`
	TargetVariantID uuid.UUID `json:"target_variant_id" binding:"required"`
	LocationID      uuid.UUID `json:"location_id" binding:"required"`
	Quantity        int64     `json:"quantity" binding:"required,gt=0"`
	Actor           string    `json:"actor"`
}

// AssembleStockRequest combines smaller packaging units into larger ones in place
type AssembleStockRequest struct {
	SourceVariantID uuid.UUID `json:"source_variant_id" binding:"required"`
	TargetVariantID uuid.UUID `json:"target_variant_id" binding:"required"`
	LocationID      uuid.UUID `json:"location_id" binding:"required"`
	Quantity        int64     `json:"quantity" binding:"required,gt=0"`
	Actor           string    `json:"actor"`
}

// ConversionResponse reports the outcome of a break or assemble
type ConversionResponse struct {
	BatchID          uuid.UUID `json:"batch_id"`
	SourceVariantID  uuid.UUID `json:"source_variant_id"`
	TargetVariantID  uuid.UUID `json:"target_variant_id"`
	LocationID       uuid.UUID `json:"location_id"`
	ConsumedQuantity int64     `json:"consumed_quantity"`
	ProducedQuantity int64     `json:"produced_quantity"`
}

// ConversionPreviewResponse reports what a conversion would produce without
// touching stock
type ConversionPreviewResponse struct {
	SourceVariantID  uuid.UUID `json:"source_variant_id"`
	TargetVariantID  uuid.UUID `json:"target_variant_id"`
	Quantity         int64     `json:"quantity"`
	ProducedQuantity int64     `json:"produced_quantity"`
	Ratio            int64     `json:"ratio"`
	IsBreak          bool      `json:"is_break"`
}

// BreakableVariantResponse is one smaller packaging tier a variant can be
// broken into
type BreakableVariantResponse struct {
	VariantID       uuid.UUID `json:"variant_id"`
	SKU             string    `json:"sku"`
	Name            string    `json:"name"`
	UnitsPerVariant int64     `json:"units_per_variant"`
	HierarchyLevel  int       `json:"hierarchy_level"`
	// UnitsPerSource is how many of this variant one source unit breaks into
	UnitsPerSource int64 `json:"units_per_source"`
}
