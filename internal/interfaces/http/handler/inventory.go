package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	inventoryapp "github.com/wms/backend/internal/application/inventory"
	"github.com/wms/backend/internal/domain/shared"
	"github.com/wms/backend/internal/interfaces/http/dto"
)

// InventoryHandler handles stock ledger API endpoints
type InventoryHandler struct {
	BaseHandler
	ledger *inventoryapp.LedgerService
}

// NewInventoryHandler creates a new InventoryHandler
func NewInventoryHandler(ledger *inventoryapp.LedgerService) *InventoryHandler {
	return &InventoryHandler{ledger: ledger}
}

// RegisterRoutes registers inventory routes
func (h *InventoryHandler) RegisterRoutes(rg *gin.RouterGroup) {
	inv := rg.Group("/inventory")
	{
		inv.GET("/levels", h.ListLevels)
		inv.GET("/levels/:variant_id/:location_id", h.GetLevel)
		inv.GET("/levels/:variant_id/:location_id/history", h.GetHistory)
		inv.POST("/receive", h.Receive)
		inv.POST("/return", h.Return)
		inv.POST("/pick", h.Pick)
		inv.POST("/pack", h.Pack)
		inv.POST("/ship", h.Ship)
		inv.POST("/transfer", h.Transfer)
		inv.POST("/adjust", h.Adjust)
		inv.POST("/correct-sku", h.CorrectSKU)
	}
}

// ListLevels lists stock level rows
func (h *InventoryHandler) ListLevels(c *gin.Context) {
	var filter inventoryapp.LevelListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 || filter.PageSize > 100 {
		filter.PageSize = 20
	}

	levels, total, err := h.ledger.ListLevels(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, levels, total, filter.Page, filter.PageSize)
}

// GetLevel returns one (variant, location) stock row
func (h *InventoryHandler) GetLevel(c *gin.Context) {
	variantID, locationID, ok := h.slotParams(c)
	if !ok {
		return
	}

	level, err := h.ledger.GetLevel(c.Request.Context(), variantID, locationID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, level)
}

// GetHistory returns the audit trail for a (variant, location) pair
func (h *InventoryHandler) GetHistory(c *gin.Context) {
	variantID, locationID, ok := h.slotParams(c)
	if !ok {
		return
	}

	var list dto.ListRequest
	if err := c.ShouldBindQuery(&list); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	list.Normalize()

	filter := shared.Filter{
		Page:     list.Page,
		PageSize: list.PageSize,
		OrderBy:  list.OrderBy,
		OrderDir: list.OrderDir,
	}
	txs, total, err := h.ledger.GetHistory(c.Request.Context(), variantID, locationID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, txs, total, list.Page, list.PageSize)
}

// Receive books stock into a location
func (h *InventoryHandler) Receive(c *gin.Context) {
	var req inventoryapp.ReceiveStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	if req.Actor == "" {
		req.Actor = getActor(c)
	}

	level, err := h.ledger.Receive(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, level)
}

// Return books customer-returned stock back into a location
func (h *InventoryHandler) Return(c *gin.Context) {
	var req inventoryapp.ReceiveStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	if req.Actor == "" {
		req.Actor = getActor(c)
	}

	level, err := h.ledger.Return(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, level)
}

// Pick moves on-hand units into the picked bucket
func (h *InventoryHandler) Pick(c *gin.Context) {
	var req inventoryapp.PickStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	if req.Actor == "" {
		req.Actor = getActor(c)
	}

	level, err := h.ledger.Pick(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, level)
}

// Pack moves picked units into the packed bucket
func (h *InventoryHandler) Pack(c *gin.Context) {
	var req inventoryapp.PackStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	if req.Actor == "" {
		req.Actor = getActor(c)
	}

	level, err := h.ledger.Pack(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, level)
}

// Ship removes staged units from the building
func (h *InventoryHandler) Ship(c *gin.Context) {
	var req inventoryapp.ShipStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	if req.Actor == "" {
		req.Actor = getActor(c)
	}

	level, err := h.ledger.Ship(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, level)
}

// Transfer moves on-hand units between locations
func (h *InventoryHandler) Transfer(c *gin.Context) {
	var req inventoryapp.TransferStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	if req.Actor == "" {
		req.Actor = getActor(c)
	}

	level, err := h.ledger.Transfer(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, level)
}

// Adjust sets on-hand to a counted quantity
func (h *InventoryHandler) Adjust(c *gin.Context) {
	var req inventoryapp.AdjustStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	if req.Actor == "" {
		req.Actor = getActor(c)
	}

	level, err := h.ledger.Adjust(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, level)
}

// CorrectSKU rebooks stock recorded under the wrong variant
func (h *InventoryHandler) CorrectSKU(c *gin.Context) {
	var req inventoryapp.CorrectSKURequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	if req.Actor == "" {
		req.Actor = getActor(c)
	}

	if err := h.ledger.CorrectSKU(c.Request.Context(), req); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{"corrected": true})
}

func (h *InventoryHandler) slotParams(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	variantID, err := parseUUIDParam(c, "variant_id")
	if err != nil {
		h.BadRequest(c, "Invalid variant ID")
		return uuid.Nil, uuid.Nil, false
	}
	locationID, err := parseUUIDParam(c, "location_id")
	if err != nil {
		h.BadRequest(c, "Invalid location ID")
		return uuid.Nil, uuid.Nil, false
	}
	return variantID, locationID, true
}
