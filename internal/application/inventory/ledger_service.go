package inventory

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/wms/backend/internal/domain/inventory"
	"github.com/wms/backend/internal/domain/replenishment"
	"github.com/wms/backend/internal/domain/shared"
)

// LedgerService owns every named stock mutation. Each operation runs inside a
// transaction scope: the guarded bucket update and its audit record commit or
// roll back together. A tripped guard surfaces as ErrInsufficientStock, which
// callers treat as a normal outcome under contention, not a fault.
type LedgerService struct {
	scope          TransactionScope
	levelRepo      inventory.LevelRepository
	txRepo         inventory.TransactionRepository
	configRepo     replenishment.ConfigRepository
	eventPublisher shared.EventPublisher
}

// NewLedgerService creates a new LedgerService
func NewLedgerService(
	scope TransactionScope,
	levelRepo inventory.LevelRepository,
	txRepo inventory.TransactionRepository,
	configRepo replenishment.ConfigRepository,
) *LedgerService {
	return &LedgerService{
		scope:      scope,
		levelRepo:  levelRepo,
		txRepo:     txRepo,
		configRepo: configRepo,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *LedgerService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

func (s *LedgerService) publish(ctx context.Context, events ...shared.DomainEvent) {
	if s.eventPublisher == nil {
		return
	}
	// Event delivery failures are the bus's problem, not the mutation's
	_ = s.eventPublisher.Publish(ctx, events...)
}

// GetLevel retrieves one level row by (variant, location)
func (s *LedgerService) GetLevel(ctx context.Context, variantID, locationID uuid.UUID) (*LevelResponse, error) {
	level, err := s.levelRepo.FindByVariantAndLocation(ctx, variantID, locationID)
	if err != nil {
		return nil, err
	}
	response := ToLevelResponse(level)
	return &response, nil
}

// ListLevels retrieves level rows with filtering and pagination
func (s *LedgerService) ListLevels(ctx context.Context, filter LevelListFilter) ([]LevelResponse, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	domainFilter := shared.Filter{
		Page:     filter.Page,
		PageSize: filter.PageSize,
		OrderBy:  "updated_at",
		OrderDir: "desc",
		Filters:  make(map[string]interface{}),
	}
	if filter.VariantID != nil {
		domainFilter.Filters["variant_id"] = *filter.VariantID
	}
	if filter.LocationID != nil {
		domainFilter.Filters["location_id"] = *filter.LocationID
	}
	if filter.HasStock != nil && *filter.HasStock {
		domainFilter.Filters["has_stock"] = true
	}

	levels, total, err := s.levelRepo.FindAll(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	return ToLevelResponses(levels), total, nil
}

// GetHistory retrieves the audit log for a (variant, location) pair
func (s *LedgerService) GetHistory(ctx context.Context, variantID, locationID uuid.UUID, filter shared.Filter) ([]TransactionResponse, int64, error) {
	txs, total, err := s.txRepo.FindByVariantAndLocation(ctx, variantID, locationID, filter)
	if err != nil {
		return nil, 0, err
	}
	return ToTransactionResponses(txs), total, nil
}

// Receive books new stock into a location
func (s *LedgerService) Receive(ctx context.Context, req ReceiveStockRequest) (*LevelResponse, error) {
	return s.addStock(ctx, req.VariantID, req.LocationID, req.Quantity, inventory.TransactionTypeReceipt, req.Reason, req.Actor)
}

// Return books returned stock back into a location
func (s *LedgerService) Return(ctx context.Context, req ReceiveStockRequest) (*LevelResponse, error) {
	return s.addStock(ctx, req.VariantID, req.LocationID, req.Quantity, inventory.TransactionTypeReturn, req.Reason, req.Actor)
}

func (s *LedgerService) addStock(ctx context.Context, variantID, locationID uuid.UUID, quantity int64, txType inventory.TransactionType, reason, actor string) (*LevelResponse, error) {
	if quantity <= 0 {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}

	var updated *inventory.InventoryLevel
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		level, err := repos.LevelRepo().GetOrCreate(ctx, variantID, locationID)
		if err != nil {
			return err
		}

		ok, err := repos.LevelRepo().ApplyDelta(ctx, level.ID, inventory.BucketDelta{OnHand: quantity})
		if err != nil {
			return err
		}
		if !ok {
			return shared.ErrConcurrencyConflict
		}

		tx, err := inventory.NewInventoryTransaction(variantID, txType, quantity, level.OnHand, level.OnHand+quantity)
		if err != nil {
			return err
		}
		tx.WithToLocation(locationID).WithReason(reason).WithActor(actor)
		if err := repos.TransactionRepo().Append(ctx, tx); err != nil {
			return err
		}

		updated, err = repos.LevelRepo().FindByID(ctx, level.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, inventory.NewInventoryChangedEvent(updated.ID, variantID, locationID))
	response := ToLevelResponse(updated)
	return &response, nil
}

// Pick moves units from on-hand into the picked bucket and releases the
// matching reservation, capped at what is actually reserved so unreserved
// ad-hoc picks do not drive the counter negative.
func (s *LedgerService) Pick(ctx context.Context, req PickStockRequest) (*LevelResponse, error) {
	if req.Quantity <= 0 {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}

	var updated *inventory.InventoryLevel
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		level, err := repos.LevelRepo().FindByVariantAndLocation(ctx, req.VariantID, req.LocationID)
		if err != nil {
			return err
		}

		ok, err := repos.LevelRepo().ApplyDelta(ctx, level.ID, inventory.BucketDelta{
			OnHand:              -req.Quantity,
			Picked:              req.Quantity,
			ReleaseReservedUpTo: req.Quantity,
		})
		if err != nil {
			return err
		}
		if !ok {
			return shared.ErrInsufficientStock
		}

		tx, err := inventory.NewInventoryTransaction(req.VariantID, inventory.TransactionTypePick, -req.Quantity, level.OnHand, level.OnHand-req.Quantity)
		if err != nil {
			return err
		}
		tx.WithFromLocation(req.LocationID).WithActor(req.Actor)
		if req.OrderID != nil {
			tx.WithOrder(*req.OrderID)
		}
		if req.OrderLineID != nil {
			tx.WithOrderLine(*req.OrderLineID)
		}
		if err := repos.TransactionRepo().Append(ctx, tx); err != nil {
			return err
		}

		updated, err = repos.LevelRepo().FindByID(ctx, level.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	orderID := uuid.Nil
	if req.OrderID != nil {
		orderID = *req.OrderID
	}
	s.publish(ctx,
		inventory.NewStockPickedEvent(updated.ID, req.VariantID, req.LocationID, orderID, req.Quantity),
		inventory.NewInventoryChangedEvent(updated.ID, req.VariantID, req.LocationID),
	)
	response := ToLevelResponse(updated)
	return &response, nil
}

// Pack moves units from the picked bucket into the packed bucket
func (s *LedgerService) Pack(ctx context.Context, req PackStockRequest) (*LevelResponse, error) {
	if req.Quantity <= 0 {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}

	var updated *inventory.InventoryLevel
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		level, err := repos.LevelRepo().FindByVariantAndLocation(ctx, req.VariantID, req.LocationID)
		if err != nil {
			return err
		}

		ok, err := repos.LevelRepo().ApplyDelta(ctx, level.ID, inventory.BucketDelta{
			Picked: -req.Quantity,
			Packed: req.Quantity,
		})
		if err != nil {
			return err
		}
		if !ok {
			return shared.ErrInsufficientStock
		}

		updated, err = repos.LevelRepo().FindByID(ctx, level.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	response := ToLevelResponse(updated)
	return &response, nil
}

// Ship removes staged units from the building. Quantity drains the picked
// bucket first, then packed, then raw on-hand for units that were never
// staged. The on-hand portion also releases any reservation still covering it.
func (s *LedgerService) Ship(ctx context.Context, req ShipStockRequest) (*LevelResponse, error) {
	if req.Quantity <= 0 {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}

	var updated *inventory.InventoryLevel
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		level, err := repos.LevelRepo().FindByVariantAndLocation(ctx, req.VariantID, req.LocationID)
		if err != nil {
			return err
		}

		fromPicked := min64(level.Picked, req.Quantity)
		fromPacked := min64(level.Packed, req.Quantity-fromPicked)
		fromOnHand := req.Quantity - fromPicked - fromPacked

		if fromOnHand > level.OnHand {
			return shared.ErrInsufficientStock
		}

		// The split was computed from a read; the guards re-check every
		// decrement at commit time so a racing pick cannot double-spend.
		ok, err := repos.LevelRepo().ApplyDelta(ctx, level.ID, inventory.BucketDelta{
			Picked:              -fromPicked,
			Packed:              -fromPacked,
			OnHand:              -fromOnHand,
			ReleaseReservedUpTo: fromOnHand,
		})
		if err != nil {
			return err
		}
		if !ok {
			return shared.ErrInsufficientStock
		}

		tx, err := inventory.NewInventoryTransaction(req.VariantID, inventory.TransactionTypeShip, -req.Quantity, level.OnHand, level.OnHand-fromOnHand)
		if err != nil {
			return err
		}
		tx.WithFromLocation(req.LocationID).WithActor(req.Actor)
		if req.OrderID != nil {
			tx.WithOrder(*req.OrderID)
		}
		if err := repos.TransactionRepo().Append(ctx, tx); err != nil {
			return err
		}

		updated, err = repos.LevelRepo().FindByID(ctx, level.ID)
		if err != nil {
			return err
		}
		return s.cleanupIfZombie(ctx, repos, updated)
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, inventory.NewInventoryChangedEvent(updated.ID, req.VariantID, req.LocationID))
	response := ToLevelResponse(updated)
	return &response, nil
}

// Transfer moves on-hand units between locations as one atomic unit. The
// source decrement is guarded; the destination row is created on demand.
func (s *LedgerService) Transfer(ctx context.Context, req TransferStockRequest) (*LevelResponse, error) {
	return s.transfer(ctx, req, inventory.TransactionTypeTransfer, nil)
}

func (s *LedgerService) transfer(ctx context.Context, req TransferStockRequest, txType inventory.TransactionType, batchID *uuid.UUID) (*LevelResponse, error) {
	if req.Quantity <= 0 {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	if req.FromLocationID == req.ToLocationID {
		return nil, shared.NewDomainError("INVALID_TRANSFER", "Source and destination locations must differ")
	}

	var dest *inventory.InventoryLevel
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		source, err := repos.LevelRepo().FindByVariantAndLocation(ctx, req.VariantID, req.FromLocationID)
		if err != nil {
			return err
		}
		target, err := repos.LevelRepo().GetOrCreate(ctx, req.VariantID, req.ToLocationID)
		if err != nil {
			return err
		}

		ok, err := repos.LevelRepo().ApplyDelta(ctx, source.ID, inventory.BucketDelta{OnHand: -req.Quantity})
		if err != nil {
			return err
		}
		if !ok {
			return shared.ErrInsufficientStock
		}
		ok, err = repos.LevelRepo().ApplyDelta(ctx, target.ID, inventory.BucketDelta{OnHand: req.Quantity})
		if err != nil {
			return err
		}
		if !ok {
			return shared.ErrConcurrencyConflict
		}

		batch := uuid.New()
		if batchID != nil {
			batch = *batchID
		}
		outTx, err := inventory.NewInventoryTransaction(req.VariantID, txType, -req.Quantity, source.OnHand, source.OnHand-req.Quantity)
		if err != nil {
			return err
		}
		outTx.WithFromLocation(req.FromLocationID).WithToLocation(req.ToLocationID).WithBatch(batch).WithReason(req.Reason).WithActor(req.Actor)
		inTx, err := inventory.NewInventoryTransaction(req.VariantID, txType, req.Quantity, target.OnHand, target.OnHand+req.Quantity)
		if err != nil {
			return err
		}
		inTx.WithFromLocation(req.FromLocationID).WithToLocation(req.ToLocationID).WithBatch(batch).WithReason(req.Reason).WithActor(req.Actor)
		if err := repos.TransactionRepo().Append(ctx, outTx, inTx); err != nil {
			return err
		}

		drained, err := repos.LevelRepo().FindByID(ctx, source.ID)
		if err != nil {
			return err
		}
		if err := s.cleanupIfZombie(ctx, repos, drained); err != nil {
			return err
		}

		dest, err = repos.LevelRepo().FindByID(ctx, target.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx,
		inventory.NewInventoryChangedEvent(dest.ID, req.VariantID, req.FromLocationID),
		inventory.NewInventoryChangedEvent(dest.ID, req.VariantID, req.ToLocationID),
	)
	response := ToLevelResponse(dest)
	return &response, nil
}

// Adjust sets on-hand to a counted quantity. Adjustments are the only path
// allowed to push a row through states other operations would refuse, so the
// delta is applied without the non-negativity guard.
func (s *LedgerService) Adjust(ctx context.Context, req AdjustStockRequest) (*LevelResponse, error) {
	if req.NewOnHand < 0 {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Counted quantity cannot be negative")
	}
	if req.Reason == "" {
		return nil, shared.NewDomainError("REASON_REQUIRED", "Adjustments require a reason")
	}

	var updated *inventory.InventoryLevel
	var deleted bool
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		level, err := repos.LevelRepo().GetOrCreate(ctx, req.VariantID, req.LocationID)
		if err != nil {
			return err
		}

		delta := req.NewOnHand - level.OnHand
		if delta != 0 {
			ok, err := repos.LevelRepo().ApplyDelta(ctx, level.ID, inventory.BucketDelta{
				OnHand:              delta,
				AllowNegativeOnHand: true,
			})
			if err != nil {
				return err
			}
			if !ok {
				return shared.ErrConcurrencyConflict
			}

			tx, err := inventory.NewInventoryTransaction(req.VariantID, inventory.TransactionTypeAdjustment, delta, level.OnHand, req.NewOnHand)
			if err != nil {
				return err
			}
			tx.WithToLocation(req.LocationID).WithReason(req.Reason).WithActor(req.Actor)
			if req.CycleCountID != nil {
				tx.WithCycleCount(*req.CycleCountID)
			}
			if err := repos.TransactionRepo().Append(ctx, tx); err != nil {
				return err
			}
		}

		updated, err = repos.LevelRepo().FindByID(ctx, level.ID)
		if err != nil {
			return err
		}
		deleted, err = s.cleanupIfZombieDeleted(ctx, repos, updated)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, inventory.NewInventoryChangedEvent(updated.ID, req.VariantID, req.LocationID))
	if deleted {
		response := ToLevelResponse(updated)
		response.OnHand = 0
		return &response, nil
	}
	response := ToLevelResponse(updated)
	return &response, nil
}

// CorrectSKU rebooks stock recorded under the wrong variant. Refused while
// reservations are outstanding against the source row: silently moving
// promised stock would orphan the reservations it backs.
func (s *LedgerService) CorrectSKU(ctx context.Context, req CorrectSKURequest) error {
	if req.Quantity <= 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	if req.FromVariantID == req.ToVariantID {
		return shared.NewDomainError("INVALID_CORRECTION", "Source and target variants must differ")
	}

	var correctedFrom, correctedTo *inventory.InventoryLevel
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		source, err := repos.LevelRepo().FindByVariantAndLocation(ctx, req.FromVariantID, req.LocationID)
		if err != nil {
			return err
		}
		if source.Reserved > 0 {
			return shared.NewDomainError("RESERVATIONS_OUTSTANDING",
				fmt.Sprintf("Cannot correct SKU with %d units still reserved; release reservations first", source.Reserved))
		}
		target, err := repos.LevelRepo().GetOrCreate(ctx, req.ToVariantID, req.LocationID)
		if err != nil {
			return err
		}

		ok, err := repos.LevelRepo().ApplyDelta(ctx, source.ID, inventory.BucketDelta{OnHand: -req.Quantity})
		if err != nil {
			return err
		}
		if !ok {
			return shared.ErrInsufficientStock
		}
		ok, err = repos.LevelRepo().ApplyDelta(ctx, target.ID, inventory.BucketDelta{OnHand: req.Quantity})
		if err != nil {
			return err
		}
		if !ok {
			return shared.ErrConcurrencyConflict
		}

		batch := uuid.New()
		outTx, err := inventory.NewInventoryTransaction(req.FromVariantID, inventory.TransactionTypeSKUCorrection, -req.Quantity, source.OnHand, source.OnHand-req.Quantity)
		if err != nil {
			return err
		}
		outTx.WithFromLocation(req.LocationID).WithBatch(batch).WithReason(req.Reason).WithActor(req.Actor)
		inTx, err := inventory.NewInventoryTransaction(req.ToVariantID, inventory.TransactionTypeSKUCorrection, req.Quantity, target.OnHand, target.OnHand+req.Quantity)
		if err != nil {
			return err
		}
		inTx.WithToLocation(req.LocationID).WithBatch(batch).WithReason(req.Reason).WithActor(req.Actor)
		if err := repos.TransactionRepo().Append(ctx, outTx, inTx); err != nil {
			return err
		}

		correctedFrom, err = repos.LevelRepo().FindByID(ctx, source.ID)
		if err != nil {
			return err
		}
		if err := s.cleanupIfZombie(ctx, repos, correctedFrom); err != nil {
			return err
		}
		correctedTo, err = repos.LevelRepo().FindByID(ctx, target.ID)
		return err
	})
	if err != nil {
		return err
	}

	s.publish(ctx,
		inventory.NewInventoryChangedEvent(correctedFrom.ID, req.FromVariantID, req.LocationID),
		inventory.NewInventoryChangedEvent(correctedTo.ID, req.ToVariantID, req.LocationID),
	)
	return nil
}

// cleanupIfZombie deletes a fully drained row unless an active location
// config marks the slot as a standing bin assignment. Assigned slots stay at
// zero so the replenishment scan keeps seeing them.
func (s *LedgerService) cleanupIfZombie(ctx context.Context, repos TransactionalRepositories, level *inventory.InventoryLevel) error {
	_, err := s.cleanupIfZombieDeleted(ctx, repos, level)
	return err
}

func (s *LedgerService) cleanupIfZombieDeleted(ctx context.Context, repos TransactionalRepositories, level *inventory.InventoryLevel) (bool, error) {
	if !level.IsEmpty() {
		return false, nil
	}
	assigned, err := s.configRepo.HasBinAssignment(ctx, level.LocationID, level.VariantID)
	if err != nil {
		return false, err
	}
	if assigned {
		return false, nil
	}
	// DeleteIfEmpty re-checks the counters inside the DELETE, so a racing
	// receipt keeps the row alive.
	return repos.LevelRepo().DeleteIfEmpty(ctx, level.ID)
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
