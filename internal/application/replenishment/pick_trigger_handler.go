package replenishment

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/wms/backend/internal/domain/inventory"
	"github.com/wms/backend/internal/domain/shared"
)

// PickTriggerHandler re-checks a pick slot against its replenishment
// threshold immediately after a pick, instead of waiting for the next
// scheduled scan. High-velocity slots get their refill task minutes earlier,
// which is the difference between a topped-up slot and a stockout on a busy
// SKU.
type PickTriggerHandler struct {
	service *Service
	logger  *zap.Logger
}

// NewPickTriggerHandler creates a new handler for stock picked events
func NewPickTriggerHandler(service *Service, logger *zap.Logger) *PickTriggerHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PickTriggerHandler{service: service, logger: logger}
}

// EventTypes returns the event types this handler is interested in
func (h *PickTriggerHandler) EventTypes() []string {
	return []string{inventory.EventTypeStockPicked}
}

// Handle processes a StockPickedEvent
func (h *PickTriggerHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	pickedEvent, ok := event.(*inventory.StockPickedEvent)
	if !ok {
		h.logger.Error("unexpected event type",
			zap.String("expected", inventory.EventTypeStockPicked),
			zap.String("actual", event.EventType()),
		)
		return fmt.Errorf("unexpected event type: expected %s, got %s",
			inventory.EventTypeStockPicked, event.EventType())
	}

	report, err := h.service.CheckSlot(ctx, pickedEvent.VariantID, pickedEvent.LocationID)
	if err != nil {
		// the periodic scan will catch the slot; a failed inline check must
		// not fail the pick's event handling
		h.logger.Warn("inline replenishment check failed",
			zap.String("variant_id", pickedEvent.VariantID.String()),
			zap.String("location_id", pickedEvent.LocationID.String()),
			zap.Error(err),
		)
		return nil
	}

	if report.TasksCreated > 0 {
		h.logger.Info("inline replenishment task created after pick",
			zap.String("variant_id", pickedEvent.VariantID.String()),
			zap.String("location_id", pickedEvent.LocationID.String()),
		)
	}
	return nil
}

var _ shared.EventHandler = (*PickTriggerHandler)(nil)
