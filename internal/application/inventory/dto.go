package inventory

import (
	"time"

	"github.com/google/uuid"
	"github.com/wms/backend/internal/domain/inventory"
)

// ReceiveStockRequest books stock into a location
type ReceiveStockRequest struct {
	VariantID  uuid.UUID `json:"variant_id" binding:"required"`
	LocationID uuid.UUID `json:"location_id" binding:"required"`
	Quantity   int64     `json:"quantity" binding:"required,gt=0"`
	Reason     string    `json:"reason"`
	Actor      string    `json:"actor"`
}

// PickStockRequest moves units from on-hand into the picked bucket
type PickStockRequest struct {
	VariantID   uuid.UUID  `json:"variant_id" binding:"required"`
	LocationID  uuid.UUID  `json:"location_id" binding:"required"`
	Quantity    int64      `json:"quantity" binding:"required,gt=0"`
	OrderID     *uuid.UUID `json:"order_id"`
	OrderLineID *uuid.UUID `json:"order_line_id"`
	Actor       string     `json:"actor"`
}

// PackStockRequest moves units from picked into the packed bucket
type PackStockRequest struct {
	VariantID  uuid.UUID  `json:"variant_id" binding:"required"`
	LocationID uuid.UUID  `json:"location_id" binding:"required"`
	Quantity   int64      `json:"quantity" binding:"required,gt=0"`
	OrderID    *uuid.UUID `json:"order_id"`
	Actor      string     `json:"actor"`
}

// ShipStockRequest removes staged units from the building
type ShipStockRequest struct {
	VariantID  uuid.UUID  `json:"variant_id" binding:"required"`
	LocationID uuid.UUID  `json:"location_id" binding:"required"`
	Quantity   int64      `json:"quantity" binding:"required,gt=0"`
	OrderID    *uuid.UUID `json:"order_id"`
	Actor      string     `json:"actor"`
}

// TransferStockRequest moves on-hand units between locations
type TransferStockRequest struct {
	VariantID      uuid.UUID `json:"variant_id" binding:"required"`
	FromLocationID uuid.UUID `json:"from_location_id" binding:"required"`
	ToLocationID   uuid.UUID `json:"to_location_id" binding:"required"`
	Quantity       int64     `json:"quantity" binding:"required,gt=0"`
	Reason         string    `json:"reason"`
	Actor          string    `json:"actor"`
}

// AdjustStockRequest sets on-hand to a counted quantity
type AdjustStockRequest struct {
	VariantID    uuid.UUID  `json:"variant_id" binding:"required"`
	LocationID   uuid.UUID  `json:"location_id" binding:"required"`
	NewOnHand    int64      `json:"new_on_hand" binding:"gte=0"`
	CycleCountID *uuid.UUID `json:"cycle_count_id"`
	Reason       string     `json:"reason" binding:"required"`
	Actor        string     `json:"actor"`
}

// CorrectSKURequest rebooks stock recorded under the wrong variant
type CorrectSKURequest struct {
	FromVariantID uuid.UUID `json:"from_variant_id" binding:"required"`
	ToVariantID   uuid.UUID `json:"to_variant_id" binding:"required"`
	LocationID    uuid.UUID `json:"location_id" binding:"required"`
	Quantity      int64     `json:"quantity" binding:"required,gt=0"`
	Reason        string    `json:"reason" binding:"required"`
	Actor         string    `json:"actor"`
}

// LevelResponse is a single (variant, location) state row
type LevelResponse struct {
	ID         uuid.UUID `json:"id"`
	VariantID  uuid.UUID `json:"variant_id"`
	LocationID uuid.UUID `json:"location_id"`
	OnHand     int64     `json:"on_hand"`
	Reserved   int64     `json:"reserved"`
	Picked     int64     `json:"picked"`
	Packed     int64     `json:"packed"`
	Backorder  int64     `json:"backorder"`
	Available  int64     `json:"available"`
	Version    int       `json:"version"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ToLevelResponse converts a domain level to a response DTO
func ToLevelResponse(level *inventory.InventoryLevel) LevelResponse {
	return LevelResponse{
		ID:         level.ID,
		VariantID:  level.VariantID,
		LocationID: level.LocationID,
		OnHand:     level.OnHand,
		Reserved:   level.Reserved,
		Picked:     level.Picked,
		Packed:     level.Packed,
		Backorder:  level.Backorder,
		Available:  level.Available(),
		Version:    level.Version,
		UpdatedAt:  level.UpdatedAt,
	}
}

// ToLevelResponses converts a slice of domain levels
func ToLevelResponses(levels []inventory.InventoryLevel) []LevelResponse {
	out := make([]LevelResponse, len(levels))
	for i := range levels {
		out[i] = ToLevelResponse(&levels[i])
	}
	return out
}

// TransactionResponse is one audit record
type TransactionResponse struct {
	ID             uuid.UUID  `json:"id"`
	VariantID      uuid.UUID  `json:"variant_id"`
	FromLocationID *uuid.UUID `json:"from_location_id,omitempty"`
	ToLocationID   *uuid.UUID `json:"to_location_id,omitempty"`
	Type           string     `json:"type"`
	Quantity       int64      `json:"quantity"`
	OnHandBefore   int64      `json:"on_hand_before"`
	OnHandAfter    int64      `json:"on_hand_after"`
	OrderID        *uuid.UUID `json:"order_id,omitempty"`
	OrderLineID    *uuid.UUID `json:"order_line_id,omitempty"`
	CycleCountID   *uuid.UUID `json:"cycle_count_id,omitempty"`
	BatchID        *uuid.UUID `json:"batch_id,omitempty"`
	Reason         string     `json:"reason,omitempty"`
	Actor          string     `json:"actor"`
	OccurredAt     time.Time  `json:"occurred_at"`
}

// ToTransactionResponse converts an audit record to a response DTO
func ToTransactionResponse(tx *inventory.InventoryTransaction) TransactionResponse {
	return TransactionResponse{
		ID:             tx.ID,
		VariantID:      tx.VariantID,
		FromLocationID: tx.FromLocationID,
		ToLocationID:   tx.ToLocationID,
		Type:           string(tx.Type),
		Quantity:       tx.Quantity,
		OnHandBefore:   tx.OnHandBefore,
		OnHandAfter:    tx.OnHandAfter,
		OrderID:        tx.OrderID,
		OrderLineID:    tx.OrderLineID,
		CycleCountID:   tx.CycleCountID,
		BatchID:        tx.BatchID,
		Reason:         tx.Reason,
		Actor:          tx.Actor,
		OccurredAt:     tx.OccurredAt,
	}
}

// ToTransactionResponses converts a slice of audit records
func ToTransactionResponses(txs []inventory.InventoryTransaction) []TransactionResponse {
	out := make([]TransactionResponse, len(txs))
	for i := range txs {
		out[i] = ToTransactionResponse(&txs[i])
	}
	return out
}

// LevelListFilter narrows level listings
type LevelListFilter struct {
	Page       int        `form:"page"`
	PageSize   int        `form:"page_size"`
	VariantID  *uuid.UUID `form:"variant_id"`
	LocationID *uuid.UUID `form:"location_id"`
	HasStock   *bool      `form:"has_stock"`
}
