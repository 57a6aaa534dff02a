package replenishment

import (
	"time"

	"github.com/google/uuid"
	"github.com/wms/backend/internal/domain/replenishment"
)

// TaskResponse is one replenishment task
type TaskResponse struct {
	ID                    uuid.UUID  `json:"id"`
	SourceLocationID      uuid.UUID  `json:"source_location_id"`
	DestinationLocationID uuid.UUID  `json:"destination_location_id"`
	SourceVariantID       uuid.UUID  `json:"source_variant_id"`
	PickVariantID         uuid.UUID  `json:"pick_variant_id"`
	RequestedQuantity     int64      `json:"requested_quantity"`
	CompletedQuantity     int64      `json:"completed_quantity"`
	MovedBaseUnits        int64      `json:"moved_base_units"`
	Status                string     `json:"status"`
	Trigger               string     `json:"trigger"`
	Method                string     `json:"method"`
	Priority              int        `json:"priority"`
	AssignedTo            string     `json:"assigned_to,omitempty"`
	CompletedAt           *time.Time `json:"completed_at,omitempty"`
	CreatedAt             time.Time  `json:"created_at"`
}

// ToTaskResponse converts a domain task to a response DTO
func ToTaskResponse(task *replenishment.Task) TaskResponse {
	return TaskResponse{
		ID:                    task.ID,
		SourceLocationID:      task.SourceLocationID,
		DestinationLocationID: task.DestinationLocationID,
		SourceVariantID:       task.SourceVariantID,
		PickVariantID:         task.PickVariantID,
		RequestedQuantity:     task.RequestedQuantity,
		CompletedQuantity:     task.CompletedQuantity,
		MovedBaseUnits:        task.MovedBaseUnits,
		Status:                string(task.Status),
		Trigger:               string(task.Trigger),
		Method:                string(task.Method),
		Priority:              task.Priority,
		AssignedTo:            task.AssignedTo,
		CompletedAt:           task.CompletedAt,
		CreatedAt:             task.CreatedAt,
	}
}

// ToTaskResponses converts a slice of domain tasks
func ToTaskResponses(tasks []replenishment.Task) []TaskResponse {
	out := make([]TaskResponse, len(tasks))
	for i := range tasks {
		out[i] = ToTaskResponse(&tasks[i])
	}
	return out
}

// ScanReport summarizes one threshold scan
type ScanReport struct {
	ScannedSlots   int `json:"scanned_slots"`
	TasksCreated   int `json:"tasks_created"`
	AutoExecuted   int `json:"auto_executed"`
	Deduplicated   int `json:"deduplicated"`
	NoSource       int `json:"no_source"`
	AboveThreshold int `json:"above_threshold"`
}

// AssignTaskRequest hands a task to a worker
type AssignTaskRequest struct {
	Worker string `json:"worker" binding:"required"`
}

// CreateManualTaskRequest creates an operator-requested task
type CreateManualTaskRequest struct {
	SourceLocationID      uuid.UUID `json:"source_location_id" binding:"required"`
	DestinationLocationID uuid.UUID `json:"destination_location_id" binding:"required"`
	SourceVariantID       uuid.UUID `json:"source_variant_id" binding:"required"`
	PickVariantID         uuid.UUID `json:"pick_variant_id" binding:"required"`
	RequestedQuantity     int64     `json:"requested_quantity" binding:"required,gt=0"`
	Method                string    `json:"method" binding:"required"`
	Priority              int       `json:"priority"`
}
