package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	inventoryapp "github.com/wms/backend/internal/application/inventory"
)

// ATPHandler handles availability API endpoints
type ATPHandler struct {
	BaseHandler
	atp *inventoryapp.ATPService
}

// NewATPHandler creates a new ATPHandler
func NewATPHandler(atp *inventoryapp.ATPService) *ATPHandler {
	return &ATPHandler{atp: atp}
}

// RegisterRoutes registers availability routes
func (h *ATPHandler) RegisterRoutes(rg *gin.RouterGroup) {
	atp := rg.Group("/atp")
	{
		atp.GET("/products/:product_id", h.ProductATP)
		atp.GET("/products/:product_id/warehouses/:warehouse_id", h.WarehouseATP)
		atp.GET("/products/:product_id/channels/:channel", h.ChannelATP)
		atp.POST("/bulk", h.BulkATP)
	}
}

// ProductATP returns availability across all of a product's variants and
// locations
func (h *ATPHandler) ProductATP(c *gin.Context) {
	productID, err := parseUUIDParam(c, "product_id")
	if err != nil {
		h.BadRequest(c, "Invalid product ID")
		return
	}

	resp, err := h.atp.ProductATP(c.Request.Context(), productID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// WarehouseATP returns availability scoped to one warehouse
func (h *ATPHandler) WarehouseATP(c *gin.Context) {
	productID, err := parseUUIDParam(c, "product_id")
	if err != nil {
		h.BadRequest(c, "Invalid product ID")
		return
	}
	warehouseID, err := parseUUIDParam(c, "warehouse_id")
	if err != nil {
		h.BadRequest(c, "Invalid warehouse ID")
		return
	}

	resp, err := h.atp.WarehouseATP(c.Request.Context(), productID, warehouseID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// ChannelATP returns availability restricted to variants listed on a channel
func (h *ATPHandler) ChannelATP(c *gin.Context) {
	productID, err := parseUUIDParam(c, "product_id")
	if err != nil {
		h.BadRequest(c, "Invalid product ID")
		return
	}
	channel := c.Param("channel")
	if channel == "" {
		h.BadRequest(c, "Channel is required")
		return
	}

	resp, err := h.atp.ChannelATP(c.Request.Context(), productID, channel)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// BulkATPRequest asks for availability of many products at once
type BulkATPRequest struct {
	ProductIDs []uuid.UUID `json:"product_ids" binding:"required,min=1,max=200"`
}

// BulkATP returns availability for many products in one call
func (h *ATPHandler) BulkATP(c *gin.Context) {
	var req BulkATPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	resp, err := h.atp.BulkATP(c.Request.Context(), req.ProductIDs)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}
