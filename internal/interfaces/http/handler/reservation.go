package handler

import (
	"github.com/gin-gonic/gin"

	reservationapp "github.com/wms/backend/internal/application/reservation"
)

// ReservationHandler handles order reservation API endpoints
type ReservationHandler struct {
	BaseHandler
	service *reservationapp.Service
}

// NewReservationHandler creates a new ReservationHandler
func NewReservationHandler(service *reservationapp.Service) *ReservationHandler {
	return &ReservationHandler{service: service}
}

// RegisterRoutes registers reservation routes
func (h *ReservationHandler) RegisterRoutes(rg *gin.RouterGroup) {
	res := rg.Group("/reservations")
	{
		res.POST("/orders/:order_id/reserve", h.ReserveOrder)
		res.POST("/orders/:order_id/release", h.ReleaseOrder)
		res.POST("/reallocate-orphaned", h.ReallocateOrphaned)
	}
}

// ReserveOrder reserves stock for every line of an order. Partial success
// is a success: the response reports per-line outcomes.
func (h *ReservationHandler) ReserveOrder(c *gin.Context) {
	orderID, err := parseUUIDParam(c, "order_id")
	if err != nil {
		h.BadRequest(c, "Invalid order ID")
		return
	}

	resp, err := h.service.ReserveOrder(c.Request.Context(), orderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// ReleaseOrder releases an order's reservations
func (h *ReservationHandler) ReleaseOrder(c *gin.Context) {
	orderID, err := parseUUIDParam(c, "order_id")
	if err != nil {
		h.BadRequest(c, "Invalid order ID")
		return
	}

	resp, err := h.service.ReleaseOrderReservation(c.Request.Context(), orderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// ReallocateOrphaned sweeps for reservations exceeding physical stock and
// corrects them. Always returns a report.
func (h *ReservationHandler) ReallocateOrphaned(c *gin.Context) {
	report := h.service.ReallocateOrphaned(c.Request.Context())
	h.Success(c, report)
}
