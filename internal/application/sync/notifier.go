package sync

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	appinv "github.com/wms/backend/internal/application/inventory"
	"github.com/wms/backend/internal/domain/catalog"
	"github.com/wms/backend/internal/domain/inventory"
	"github.com/wms/backend/internal/domain/shared"
)

// DefaultDebounce is how long a product's outbound sync is held open for
// further changes before the snapshot is published.
const DefaultDebounce = 2 * time.Second

// StockPublisher pushes availability snapshots to external sales channels.
type StockPublisher interface {
	PublishStockSnapshot(ctx context.Context, snapshot *appinv.ATPResponse) error
}

// Notifier listens for inventory changes and pushes fresh availability to
// sales channels. Changes are debounced per product: a burst of picks against
// one product collapses into a single outbound snapshot, computed after the
// burst settles so the channel always sees the latest pool state.
type Notifier struct {
	atp         *appinv.ATPService
	variantRepo catalog.VariantRepository
	publisher   StockPublisher
	logger      *zap.Logger
	debounce    time.Duration

	mu     sync.Mutex
	timers map[uuid.UUID]*time.Timer
	closed bool
}

// NewNotifier creates a new channel-sync notifier
func NewNotifier(atp *appinv.ATPService, variantRepo catalog.VariantRepository, publisher StockPublisher, logger *zap.Logger) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{
		atp:         atp,
		variantRepo: variantRepo,
		publisher:   publisher,
		logger:      logger,
		debounce:    DefaultDebounce,
		timers:      make(map[uuid.UUID]*time.Timer),
	}
}

// SetDebounce overrides the per-product debounce window
func (n *Notifier) SetDebounce(d time.Duration) {
	if d > 0 {
		n.debounce = d
	}
}

// EventTypes returns the event types this handler is interested in
func (n *Notifier) EventTypes() []string {
	return []string{inventory.EventTypeInventoryChanged}
}

// Handle processes an InventoryChangedEvent
func (n *Notifier) Handle(ctx context.Context, event shared.DomainEvent) error {
	changed, ok := event.(*inventory.InventoryChangedEvent)
	if !ok {
		return fmt.Errorf("unexpected event type: expected %s, got %s",
			inventory.EventTypeInventoryChanged, event.EventType())
	}

	variant, err := n.variantRepo.FindByID(ctx, changed.VariantID)
	if err != nil {
		// the variant may have been deleted between the change and the event
		n.logger.Warn("channel sync skipped change for unknown variant",
			zap.String("variant_id", changed.VariantID.String()),
			zap.Error(err))
		return nil
	}

	n.schedule(variant.ProductID)
	return nil
}

// schedule arms or extends the product's debounce timer
func (n *Notifier) schedule(productID uuid.UUID) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return
	}
	if timer, ok := n.timers[productID]; ok {
		timer.Reset(n.debounce)
		return
	}
	n.timers[productID] = time.AfterFunc(n.debounce, func() {
		n.flush(productID)
	})
}

// flush computes the product's availability and publishes it. Runs on the
// timer goroutine, so it carries its own context.
func (n *Notifier) flush(productID uuid.UUID) {
	n.mu.Lock()
	delete(n.timers, productID)
	n.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	snapshot, err := n.atp.ProductATP(ctx, productID)
	if err != nil {
		n.logger.Error("channel sync could not compute availability",
			zap.String("product_id", productID.String()),
			zap.Error(err))
		return
	}
	if err := n.publisher.PublishStockSnapshot(ctx, snapshot); err != nil {
		n.logger.Error("channel sync publish failed",
			zap.String("product_id", productID.String()),
			zap.Error(err))
		return
	}
	n.logger.Debug("channel sync published",
		zap.String("product_id", productID.String()),
		zap.Int64("atp_base", snapshot.ATPBase))
}

// Close stops all pending timers. Snapshots not yet flushed are dropped; the
// next change after restart republishes the product anyway.
func (n *Notifier) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.closed = true
	for productID, timer := range n.timers {
		timer.Stop()
		delete(n.timers, productID)
	}
}

var _ shared.EventHandler = (*Notifier)(nil)
