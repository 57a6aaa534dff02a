package replenishment

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/wms/backend/internal/domain/shared"
)

// TaskStatus is the lifecycle state of a replenishment task
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusAssigned   TaskStatus = "assigned"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusCancelled  TaskStatus = "cancelled"
)

// taskTransitions is the fixed transition table. Terminal states have no
// outgoing transitions, which is what makes completing a cancelled task an
// impossibility rather than a bug to catch later.
var taskTransitions = map[TaskStatus][]TaskStatus{
	TaskStatusPending:    {TaskStatusAssigned, TaskStatusInProgress, TaskStatusCancelled},
	TaskStatusAssigned:   {TaskStatusInProgress, TaskStatusCancelled},
	TaskStatusInProgress: {TaskStatusCompleted, TaskStatusCancelled},
	TaskStatusCompleted:  {},
	TaskStatusCancelled:  {},
}

// IsTerminal reports whether the status has no outgoing transitions
func (s TaskStatus) IsTerminal() bool {
	return len(taskTransitions[s]) == 0
}

// IsActive reports whether a task in this status blocks creating another
// task for the same (variant, destination) pair
func (s TaskStatus) IsActive() bool {
	return s == TaskStatusPending || s == TaskStatusAssigned || s == TaskStatusInProgress
}

// CanTransitionTo reports whether the transition is in the table
func (s TaskStatus) CanTransitionTo(target TaskStatus) bool {
	for _, allowed := range taskTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// TriggerReason records what caused a task to be created
type TriggerReason string

const (
	// TriggerMinMax is the periodic threshold scan
	TriggerMinMax TriggerReason = "min_max"
	// TriggerInlinePick is the eager post-pick re-check
	TriggerInlinePick TriggerReason = "inline_pick"
	// TriggerManual is operator-created
	TriggerManual TriggerReason = "manual"
)

// IsValid returns true if the trigger reason is valid
func (r TriggerReason) IsValid() bool {
	return r == TriggerMinMax || r == TriggerInlinePick || r == TriggerManual
}

// Task is one replenishment move from a bulk/reserve location into a pick
// slot. RequestedQuantity and CompletedQuantity are in pick-variant units;
// MovedBaseUnits records exactly how many base units actually entered the
// target variant, which can fall short of the request when a case break
// leaves an indivisible remainder.
type Task struct {
	shared.BaseAggregateRoot
	SourceLocationID      uuid.UUID     `gorm:"type:uuid;not null;index:idx_replen_task_source"`
	DestinationLocationID uuid.UUID     `gorm:"type:uuid;not null;index:idx_replen_task_dest"`
	SourceVariantID       uuid.UUID     `gorm:"type:uuid;not null"`
	PickVariantID         uuid.UUID     `gorm:"type:uuid;not null;index:idx_replen_task_pick_variant"`
	RequestedQuantity     int64         `gorm:"not null"`
	CompletedQuantity     int64         `gorm:"not null;default:0"`
	MovedBaseUnits        int64         `gorm:"not null;default:0"`
	Status                TaskStatus    `gorm:"type:varchar(16);not null;index:idx_replen_task_status"`
	Trigger               TriggerReason `gorm:"type:varchar(16);not null"`
	Method                Method        `gorm:"type:varchar(16);not null"`
	Priority              int           `gorm:"not null;default:0"`
	AssignedTo            string        `gorm:"type:varchar(64)"`
	CompletedAt           *time.Time    `gorm:"type:timestamptz"`
}

// TableName returns the table name for GORM
func (Task) TableName() string {
	return "replenishment_tasks"
}

// NewTask creates a new pending replenishment task
func NewTask(sourceLocationID, destinationLocationID, sourceVariantID, pickVariantID uuid.UUID, requestedQty int64, trigger TriggerReason, method Method, priority int) (*Task, error) {
	if sourceLocationID == uuid.Nil || destinationLocationID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_LOCATION", "Source and destination locations are required")
	}
	if sourceVariantID == uuid.Nil || pickVariantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_VARIANT", "Source and pick variants are required")
	}
	if requestedQty <= 0 {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Requested quantity must be positive")
	}
	if !trigger.IsValid() {
		return nil, shared.NewDomainError("INVALID_TRIGGER", "Invalid trigger reason")
	}
	if !method.IsValid() {
		return nil, shared.NewDomainError("INVALID_METHOD", "Invalid replenishment method")
	}
	return &Task{
		BaseAggregateRoot:     shared.NewBaseAggregateRoot(),
		SourceLocationID:      sourceLocationID,
		DestinationLocationID: destinationLocationID,
		SourceVariantID:       sourceVariantID,
		PickVariantID:         pickVariantID,
		RequestedQuantity:     requestedQty,
		Status:                TaskStatusPending,
		Trigger:               trigger,
		Method:                method,
		Priority:              priority,
	}, nil
}

// transitionTo applies a transition or rejects it per the table
func (t *Task) transitionTo(target TaskStatus) error {
	if !t.Status.CanTransitionTo(target) {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Cannot transition task from %s to %s", t.Status, target))
	}
	t.Status = target
	t.UpdatedAt = time.Now()
	t.IncrementVersion()
	return nil
}

// Assign hands the task to a worker
func (t *Task) Assign(worker string) error {
	if worker == "" {
		return shared.NewDomainError("INVALID_WORKER", "Worker is required")
	}
	if err := t.transitionTo(TaskStatusAssigned); err != nil {
		return err
	}
	t.AssignedTo = worker
	return nil
}

// Start marks the task as being executed
func (t *Task) Start() error {
	return t.transitionTo(TaskStatusInProgress)
}

// Complete records the executed quantities and closes the task
func (t *Task) Complete(completedQty, movedBaseUnits int64) error {
	if completedQty < 0 || movedBaseUnits < 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Completed quantities cannot be negative")
	}
	if err := t.transitionTo(TaskStatusCompleted); err != nil {
		return err
	}
	t.CompletedQuantity = completedQty
	t.MovedBaseUnits = movedBaseUnits
	now := time.Now()
	t.CompletedAt = &now
	return nil
}

// Cancel aborts the task from any non-terminal state
func (t *Task) Cancel() error {
	return t.transitionTo(TaskStatusCancelled)
}
