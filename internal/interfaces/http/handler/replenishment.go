package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	replenapp "github.com/wms/backend/internal/application/replenishment"
	"github.com/wms/backend/internal/domain/shared"
	"github.com/wms/backend/internal/interfaces/http/dto"
)

// ReplenishmentHandler handles replenishment API endpoints
type ReplenishmentHandler struct {
	BaseHandler
	service *replenapp.Service
}

// NewReplenishmentHandler creates a new ReplenishmentHandler
func NewReplenishmentHandler(service *replenapp.Service) *ReplenishmentHandler {
	return &ReplenishmentHandler{service: service}
}

// RegisterRoutes registers replenishment routes
func (h *ReplenishmentHandler) RegisterRoutes(rg *gin.RouterGroup) {
	replen := rg.Group("/replenishment")
	{
		replen.POST("/scan", h.RunScan)
		replen.POST("/check-slot", h.CheckSlot)
		replen.GET("/tasks", h.ListTasks)
		replen.GET("/tasks/:id", h.GetTask)
		replen.POST("/tasks", h.CreateManualTask)
		replen.POST("/tasks/:id/assign", h.AssignTask)
		replen.POST("/tasks/:id/start", h.StartTask)
		replen.POST("/tasks/:id/execute", h.ExecuteTask)
		replen.POST("/tasks/:id/cancel", h.CancelTask)
	}
}

// RunScan sweeps all pick slots against their thresholds
func (h *ReplenishmentHandler) RunScan(c *gin.Context) {
	report, err := h.service.RunScan(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, report)
}

// CheckSlotRequest names one pick slot to check
type CheckSlotRequest struct {
	VariantID  string `json:"variant_id" binding:"required,uuid"`
	LocationID string `json:"location_id" binding:"required,uuid"`
}

// CheckSlot checks a single pick slot against its threshold
func (h *ReplenishmentHandler) CheckSlot(c *gin.Context) {
	var req CheckSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	variantID, err := uuid.Parse(req.VariantID)
	if err != nil {
		h.BadRequest(c, "Invalid variant ID")
		return
	}
	locationID, err := uuid.Parse(req.LocationID)
	if err != nil {
		h.BadRequest(c, "Invalid location ID")
		return
	}

	report, err := h.service.CheckSlot(c.Request.Context(), variantID, locationID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, report)
}

// ListTasks lists replenishment tasks
func (h *ReplenishmentHandler) ListTasks(c *gin.Context) {
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
		Filters:  map[string]interface{}{},
	}
	if status := c.Query("status"); status != "" {
		filter.Filters["status"] = status
	}
	if locationID := c.Query("destination_location_id"); locationID != "" {
		filter.Filters["destination_location_id"] = locationID
	}

	tasks, total, err := h.service.ListTasks(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, tasks, total, list.Page, list.PageSize)
}

// GetTask returns one task
func (h *ReplenishmentHandler) GetTask(c *gin.Context) {
	taskID, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid task ID")
		return
	}

	task, err := h.service.GetTask(c.Request.Context(), taskID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, task)
}

// CreateManualTask creates an operator-requested task
func (h *ReplenishmentHandler) CreateManualTask(c *gin.Context) {
	var req replenapp.CreateManualTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	task, err := h.service.CreateManualTask(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, task)
}

// AssignTask hands a task to a worker
func (h *ReplenishmentHandler) AssignTask(c *gin.Context) {
	taskID, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid task ID")
		return
	}

	var req replenapp.AssignTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	task, err := h.service.AssignTask(c.Request.Context(), taskID, req.Worker)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, task)
}

// StartTask marks a task as in progress
func (h *ReplenishmentHandler) StartTask(c *gin.Context) {
	taskID, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid task ID")
		return
	}

	task, err := h.service.StartTask(c.Request.Context(), taskID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, task)
}

// ExecuteTask performs the stock movement for a task
func (h *ReplenishmentHandler) ExecuteTask(c *gin.Context) {
	taskID, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid task ID")
		return
	}

	task, err := h.service.ExecuteTask(c.Request.Context(), taskID, getActor(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, task)
}

// CancelTask cancels a task that has not completed
func (h *ReplenishmentHandler) CancelTask(c *gin.Context) {
	taskID, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid task ID")
		return
	}

	task, err := h.service.CancelTask(c.Request.Context(), taskID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, task)
}
