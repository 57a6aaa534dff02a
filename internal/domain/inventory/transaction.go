package inventory

import (
	"time"

	"github.com/google/uuid"
	"github.com/wms/backend/internal/domain/shared"
)

// TransactionType classifies what kind of stock movement a transaction records
type TransactionType string

const (
	TransactionTypeReceipt       TransactionType = "receipt"
	TransactionTypePick          TransactionType = "pick"
	TransactionTypeShip          TransactionType = "ship"
	TransactionTypeReserve       TransactionType = "reserve"
	TransactionTypeUnreserve     TransactionType = "unreserve"
	TransactionTypeTransfer      TransactionType = "transfer"
	TransactionTypeBreak         TransactionType = "break"
	TransactionTypeAssemble      TransactionType = "assemble"
	TransactionTypeAdjustment    TransactionType = "adjustment"
	TransactionTypeReturn        TransactionType = "return"
	TransactionTypeSKUCorrection TransactionType = "sku_correction"
	TransactionTypeReplenish     TransactionType = "replenish"
)

// String returns the string representation of TransactionType
func (t TransactionType) String() string {
	return string(t)
}

// IsValid returns true if the transaction type is valid
func (t TransactionType) IsValid() bool {
	switch t {
	case TransactionTypeReceipt,
		TransactionTypePick,
		TransactionTypeShip,
		TransactionTypeReserve,
		TransactionTypeUnreserve,
		TransactionTypeTransfer,
		TransactionTypeBreak,
		TransactionTypeAssemble,
		TransactionTypeAdjustment,
		TransactionTypeReturn,
		TransactionTypeSKUCorrection,
		TransactionTypeReplenish:
		return true
	}
	return false
}

// InventoryTransaction is an immutable audit record of one stock movement.
// Once created, transactions are never updated or deleted - corrections are
// expressed as new transactions. The append-only log is the authoritative
// ordering of what happened to a (variant, location) pair.
type InventoryTransaction struct {
	shared.BaseEntity
	VariantID      uuid.UUID       `gorm:"type:uuid;not null;index:idx_inv_tx_variant"`
	FromLocationID *uuid.UUID      `gorm:"type:uuid;index:idx_inv_tx_from_location"`
	ToLocationID   *uuid.UUID      `gorm:"type:uuid;index:idx_inv_tx_to_location"`
	Type           TransactionType `gorm:"type:varchar(20);not null;index:idx_inv_tx_type"`
	Quantity       int64           `gorm:"not null"` // signed delta in variant units
	OnHandBefore   int64           `gorm:"not null"` // on-hand snapshot at the affected location
	OnHandAfter    int64           `gorm:"not null"`
	OrderID        *uuid.UUID      `gorm:"type:uuid;index:idx_inv_tx_order"`
	OrderLineID    *uuid.UUID      `gorm:"type:uuid"`
	CycleCountID   *uuid.UUID      `gorm:"type:uuid"`
	// BatchID links the transactions that make up one logical multi-row
	// operation, e.g. a break's source decrement and target increment.
	BatchID    *uuid.UUID `gorm:"type:uuid;index:idx_inv_tx_batch"`
	Reason     string     `gorm:"type:varchar(255)"`
	Actor      string     `gorm:"type:varchar(64);not null;default:'system'"`
	OccurredAt time.Time  `gorm:"type:timestamptz;not null;index:idx_inv_tx_occurred"`
}

// TableName returns the table name for GORM
func (InventoryTransaction) TableName() string {
	return "inventory_transactions"
}

// NewInventoryTransaction creates a new inventory transaction
func NewInventoryTransaction(
	variantID uuid.UUID,
	txType TransactionType,
	quantity int64,
	onHandBefore, onHandAfter int64,
) (*InventoryTransaction, error) {
	if variantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_VARIANT", "Variant ID cannot be empty")
	}
	if !txType.IsValid() {
		return nil, shared.NewDomainError("INVALID_TRANSACTION_TYPE", "Invalid transaction type")
	}
	if quantity == 0 {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Quantity delta cannot be zero")
	}
	return &InventoryTransaction{
		BaseEntity:   shared.NewBaseEntity(),
		VariantID:    variantID,
		Type:         txType,
		Quantity:     quantity,
		OnHandBefore: onHandBefore,
		OnHandAfter:  onHandAfter,
		Actor:        "system",
		OccurredAt:   time.Now(),
	}, nil
}

// WithFromLocation sets the source location
func (t *InventoryTransaction) WithFromLocation(locationID uuid.UUID) *InventoryTransaction {
	t.FromLocationID = &locationID
	return t
}

// WithToLocation sets the destination location
func (t *InventoryTransaction) WithToLocation(locationID uuid.UUID) *InventoryTransaction {
	t.ToLocationID = &locationID
	return t
}

// WithOrder sets the order correlation
func (t *InventoryTransaction) WithOrder(orderID uuid.UUID) *InventoryTransaction {
	t.OrderID = &orderID
	return t
}

// WithOrderLine sets the order line correlation
func (t *InventoryTransaction) WithOrderLine(lineID uuid.UUID) *InventoryTransaction {
	t.OrderLineID = &lineID
	return t
}

// WithCycleCount sets the cycle count correlation
func (t *InventoryTransaction) WithCycleCount(cycleCountID uuid.UUID) *InventoryTransaction {
	t.CycleCountID = &cycleCountID
	return t
}

// WithBatch links this transaction to a multi-row operation
func (t *InventoryTransaction) WithBatch(batchID uuid.UUID) *InventoryTransaction {
	t.BatchID = &batchID
	return t
}

// WithReason sets the reason
func (t *InventoryTransaction) WithReason(reason string) *InventoryTransaction {
	t.Reason = reason
	return t
}

// WithActor sets who performed the operation
func (t *InventoryTransaction) WithActor(actor string) *InventoryTransaction {
	if actor != "" {
		t.Actor = actor
	}
	return t
}

// IsIncrease reports whether the transaction added stock at its location
func (t *InventoryTransaction) IsIncrease() bool {
	return t.Quantity > 0
}
