package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	inventoryapp "github.com/wms/backend/internal/application/inventory"
)

// ConversionHandler handles packaging conversion API endpoints
type ConversionHandler struct {
	BaseHandler
	conversions *inventoryapp.ConversionService
}

// NewConversionHandler creates a new ConversionHandler
func NewConversionHandler(conversions *inventoryapp.ConversionService) *ConversionHandler {
	return &ConversionHandler{conversions: conversions}
}

// RegisterRoutes registers conversion routes
func (h *ConversionHandler) RegisterRoutes(rg *gin.RouterGroup) {
	conv := rg.Group("/conversions")
	{
		conv.POST("/break", h.Break)
		conv.POST("/assemble", h.Assemble)
		conv.GET("/preview", h.Preview)
		conv.GET("/breakable/:variant_id", h.ListBreakableVariants)
	}
}

// Break splits larger packaging units into smaller ones in place
func (h *ConversionHandler) Break(c *gin.Context) {
	var req inventoryapp.BreakStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	if req.Actor == "" {
		req.Actor = getActor(c)
	}

	resp, err := h.conversions.Break(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Assemble combines smaller packaging units into larger ones in place
func (h *ConversionHandler) Assemble(c *gin.Context) {
	var req inventoryapp.AssembleStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	if req.Actor == "" {
		req.Actor = getActor(c)
	}

	resp, err := h.conversions.Assemble(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Preview reports what a conversion would produce without touching stock
func (h *ConversionHandler) Preview(c *gin.Context) {
	sourceID, err := parseUUIDQuery(c, "source_variant_id")
	if err != nil {
		h.BadRequest(c, "Invalid source variant ID")
		return
	}
	targetID, err := parseUUIDQuery(c, "target_variant_id")
	if err != nil {
		h.BadRequest(c, "Invalid target variant ID")
		return
	}
	quantity, err := strconv.ParseInt(c.Query("quantity"), 10, 64)
	if err != nil || quantity <= 0 {
		h.BadRequest(c, "Quantity must be a positive integer")
		return
	}

	resp, err := h.conversions.Preview(c.Request.Context(), sourceID, targetID, quantity)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// ListBreakableVariants lists the smaller tiers a variant can be broken into
func (h *ConversionHandler) ListBreakableVariants(c *gin.Context) {
	variantID, err := parseUUIDParam(c, "variant_id")
	if err != nil {
		h.BadRequest(c, "Invalid variant ID")
		return
	}

	variants, err := h.conversions.ListBreakableVariants(c.Request.Context(), variantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, variants)
}
