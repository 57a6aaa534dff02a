package reservation

import "github.com/google/uuid"

// LinePlacement is one (location, quantity) slice of a line's reservation
type LinePlacement struct {
	LocationID uuid.UUID `json:"location_id"`
	Quantity   int64     `json:"quantity"`
}

// LineResult reports the reservation outcome for one order line. A line can
// partially succeed: Reserved < Requested with no error means the pool ran
// dry, not that something went wrong.
type LineResult struct {
	OrderLineID uuid.UUID       `json:"order_line_id"`
	VariantSKU  string          `json:"variant_sku"`
	Requested   int64           `json:"requested"`
	Reserved    int64           `json:"reserved"`
	Placements  []LinePlacement `json:"placements,omitempty"`
	Error       string          `json:"error,omitempty"`
}

// ReserveOrderResponse is the outcome of reserving one order
type ReserveOrderResponse struct {
	OrderID       uuid.UUID    `json:"order_id"`
	FullyReserved bool         `json:"fully_reserved"`
	Lines         []LineResult `json:"lines"`
}

// ReleaseDiscrepancy records a reservation the release pass could not undo,
// usually because the stock backing it was adjusted away in the meantime
type ReleaseDiscrepancy struct {
	VariantID  uuid.UUID `json:"variant_id"`
	LocationID uuid.UUID `json:"location_id"`
	Expected   int64     `json:"expected"`
	Released   int64     `json:"released"`
}

// ReleaseOrderResponse is the outcome of releasing an order's reservations
type ReleaseOrderResponse struct {
	OrderID       uuid.UUID            `json:"order_id"`
	ReleasedUnits int64                `json:"released_units"`
	Discrepancies []ReleaseDiscrepancy `json:"discrepancies,omitempty"`
}

// ReallocationReport summarizes one orphan-recovery sweep
type ReallocationReport struct {
	ScannedRows      int         `json:"scanned_rows"`
	CorrectedRows    int         `json:"corrected_rows"`
	ReleasedUnits    int64       `json:"released_units"`
	ReallocatedUnits int64       `json:"reallocated_units"`
	AffectedOrderIDs []uuid.UUID `json:"affected_order_ids,omitempty"`
}
