package reservation

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	appinv "github.com/wms/backend/internal/application/inventory"
	"github.com/wms/backend/internal/domain/catalog"
	"github.com/wms/backend/internal/domain/inventory"
	"github.com/wms/backend/internal/domain/order"
	"github.com/wms/backend/internal/domain/shared"
)

// Service commits stock to orders and takes it back. Reservations are soft
// holds: the reserved bucket goes up, on-hand is untouched, and the guarded
// update refuses to promise stock the row no longer has.
type Service struct {
	scope          appinv.TransactionScope
	orderRepo      order.Repository
	variantRepo    catalog.VariantRepository
	levelRepo      inventory.LevelRepository
	txRepo         inventory.TransactionRepository
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// NewService creates a new reservation Service
func NewService(
	scope appinv.TransactionScope,
	orderRepo order.Repository,
	variantRepo catalog.VariantRepository,
	levelRepo inventory.LevelRepository,
	txRepo inventory.TransactionRepository,
	logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		scope:       scope,
		orderRepo:   orderRepo,
		variantRepo: variantRepo,
		levelRepo:   levelRepo,
		txRepo:      txRepo,
		logger:      logger,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *Service) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// ReserveOrder reserves stock for every unreserved line of an order. Lines
// are independent: one line failing to find stock does not unwind the others,
// it is reported in its LineResult instead.
func (s *Service) ReserveOrder(ctx context.Context, orderID uuid.UUID) (*ReserveOrderResponse, error) {
	ord, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !ord.Status.IsOpen() {
		return nil, shared.NewDomainError("ORDER_NOT_OPEN",
			fmt.Sprintf("Order %s is %s and cannot be reserved", ord.Number, ord.Status))
	}

	resp := &ReserveOrderResponse{OrderID: orderID, FullyReserved: true}
	for i := range ord.Lines {
		line := &ord.Lines[i]
		result := s.reserveLine(ctx, ord, line)
		if result.Reserved < result.Requested {
			resp.FullyReserved = false
		}
		resp.Lines = append(resp.Lines, result)
	}
	return resp, nil
}

func (s *Service) reserveLine(ctx context.Context, ord *order.Order, line *order.Line) LineResult {
	result := LineResult{
		OrderLineID: line.ID,
		VariantSKU:  line.VariantSKU,
		Requested:   line.Quantity,
		Reserved:    line.ReservedQuantity,
	}
	remaining := line.Unreserved()
	if remaining == 0 {
		return result
	}

	variant, err := s.variantRepo.FindBySKU(ctx, line.VariantSKU)
	if err != nil {
		result.Error = fmt.Sprintf("unknown variant SKU %s", line.VariantSKU)
		return result
	}

	err = s.scope.Execute(ctx, func(repos appinv.TransactionalRepositories) error {
		rows, err := repos.LevelRepo().FindByVariantInWalkOrder(ctx, variant.ID, ord.WarehouseID)
		if err != nil {
			return err
		}

		// Prefer the first location on the walk path that covers the line in
		// one piece; a picker then visits a single slot.
		var placedAt *inventory.InventoryLevel
		var placedQty int64
		for i := range rows {
			row := &rows[i]
			if row.Available() < remaining {
				continue
			}
			ok, err := repos.LevelRepo().ApplyDelta(ctx, row.ID, inventory.BucketDelta{
				Reserved:       remaining,
				GuardAvailable: remaining,
			})
			if err != nil {
				return err
			}
			if ok {
				placedAt = row
				placedQty = remaining
				break
			}
			// guard tripped under contention; the next candidate may still cover
		}

		// Partial fallback: take what the best-stocked location still has
		if placedAt == nil {
			var best *inventory.InventoryLevel
			for i := range rows {
				row := &rows[i]
				if row.Available() == 0 {
					continue
				}
				if best == nil || row.Available() > best.Available() {
					best = row
				}
			}
			if best == nil {
				return nil
			}
			qty := best.Available()
			if qty > remaining {
				qty = remaining
			}
			ok, err := repos.LevelRepo().ApplyDelta(ctx, best.ID, inventory.BucketDelta{
				Reserved:       qty,
				GuardAvailable: qty,
			})
			if err != nil {
				return err
			}
			if !ok {
				return nil
			}
			placedAt = best
			placedQty = qty
		}

		tx, err := inventory.NewInventoryTransaction(variant.ID, inventory.TransactionTypeReserve, placedQty, placedAt.OnHand, placedAt.OnHand)
		if err != nil {
			return err
		}
		tx.WithToLocation(placedAt.LocationID).WithOrder(ord.ID).WithOrderLine(line.ID)
		if err := repos.TransactionRepo().Append(ctx, tx); err != nil {
			return err
		}

		line.ReservedQuantity += placedQty
		if err := repos.OrderRepo().SaveLine(ctx, line); err != nil {
			return err
		}

		result.Reserved = line.ReservedQuantity
		result.Placements = append(result.Placements, LinePlacement{
			LocationID: placedAt.LocationID,
			Quantity:   placedQty,
		})
		return nil
	})
	if err != nil {
		result.Error = err.Error()
		return result
	}

	if s.eventPublisher != nil {
		for _, p := range result.Placements {
			_ = s.eventPublisher.Publish(ctx, inventory.NewInventoryChangedEvent(uuid.Nil, variant.ID, p.LocationID))
		}
	}
	return result
}

// ReleaseOrderReservation undoes an order's reservations in the order they
// were made. Releases are capped at what is still reserved, so a slot that
// was adjusted down in the meantime yields a discrepancy instead of a
// negative counter.
func (s *Service) ReleaseOrderReservation(ctx context.Context, orderID uuid.UUID) (*ReleaseOrderResponse, error) {
	sources, err := s.txRepo.FindByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	// Net out reserves against prior releases per (variant, location),
	// keeping the FIFO order of first appearance
	type slotKey struct {
		variantID  uuid.UUID
		locationID uuid.UUID
	}
	var fifo []slotKey
	expected := make(map[slotKey]int64)
	for i := range sources {
		tx := &sources[i]
		switch tx.Type {
		case inventory.TransactionTypeReserve:
			if tx.ToLocationID == nil {
				continue
			}
			key := slotKey{tx.VariantID, *tx.ToLocationID}
			if _, seen := expected[key]; !seen {
				fifo = append(fifo, key)
			}
			expected[key] += tx.Quantity
		case inventory.TransactionTypeUnreserve:
			if tx.FromLocationID == nil {
				continue
			}
			key := slotKey{tx.VariantID, *tx.FromLocationID}
			expected[key] -= -tx.Quantity
		}
	}

	resp := &ReleaseOrderResponse{OrderID: orderID}
	err = s.scope.Execute(ctx, func(repos appinv.TransactionalRepositories) error {
		for _, key := range fifo {
			want := expected[key]
			if want <= 0 {
				continue
			}
			level, err := repos.LevelRepo().FindByVariantAndLocation(ctx, key.variantID, key.locationID)
			if err != nil {
				if err == shared.ErrNotFound {
					resp.Discrepancies = append(resp.Discrepancies, ReleaseDiscrepancy{
						VariantID: key.variantID, LocationID: key.locationID, Expected: want, Released: 0,
					})
					continue
				}
				return err
			}

			released := want
			if level.Reserved < released {
				released = level.Reserved
			}
			if released > 0 {
				ok, err := repos.LevelRepo().ApplyDelta(ctx, level.ID, inventory.BucketDelta{
					ReleaseReservedUpTo: released,
				})
				if err != nil {
					return err
				}
				if !ok {
					return shared.ErrConcurrencyConflict
				}
				tx, err := inventory.NewInventoryTransaction(key.variantID, inventory.TransactionTypeUnreserve, -released, level.OnHand, level.OnHand)
				if err != nil {
					return err
				}
				tx.WithFromLocation(key.locationID).WithOrder(orderID)
				if err := repos.TransactionRepo().Append(ctx, tx); err != nil {
					return err
				}
			}
			resp.ReleasedUnits += released
			if released < want {
				resp.Discrepancies = append(resp.Discrepancies, ReleaseDiscrepancy{
					VariantID: key.variantID, LocationID: key.locationID, Expected: want, Released: released,
				})
			}
		}

		// zero the bookkeeping on the lines
		ord, err := s.orderRepo.FindByID(ctx, orderID)
		if err != nil {
			return err
		}
		for i := range ord.Lines {
			line := &ord.Lines[i]
			if line.ReservedQuantity == 0 {
				continue
			}
			line.ReservedQuantity = 0
			if err := repos.OrderRepo().SaveLine(ctx, line); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, d := range resp.Discrepancies {
		s.logger.Warn("reservation release discrepancy",
			zap.String("order_id", orderID.String()),
			zap.String("variant_id", d.VariantID.String()),
			zap.String("location_id", d.LocationID.String()),
			zap.Int64("expected", d.Expected),
			zap.Int64("released", d.Released))
	}
	return resp, nil
}

// ReallocateOrphaned sweeps rows whose reservations exceed physical stock,
// force-releases the unbacked portion and re-reserves the affected orders
// from locations that still have stock. Recovery never fails the sweep: a row
// that cannot be repaired is logged and the sweep moves on.
func (s *Service) ReallocateOrphaned(ctx context.Context) *ReallocationReport {
	report := &ReallocationReport{}

	rows, err := s.levelRepo.FindReservationDeficits(ctx)
	if err != nil {
		s.logger.Error("orphan sweep could not list deficit rows", zap.Error(err))
		return report
	}
	report.ScannedRows = len(rows)

	affectedOrders := make(map[uuid.UUID]bool)
	for i := range rows {
		row := &rows[i]
		deficit := row.ReservationDeficit()
		if deficit == 0 {
			continue
		}

		sources, err := s.txRepo.FindReservationSources(ctx, row.VariantID, row.LocationID)
		if err != nil {
			s.logger.Error("orphan sweep could not trace reservation sources",
				zap.String("variant_id", row.VariantID.String()),
				zap.String("location_id", row.LocationID.String()),
				zap.Error(err))
			continue
		}

		var rowOrders []uuid.UUID
		seen := make(map[uuid.UUID]bool)
		for j := range sources {
			if sources[j].OrderID != nil && !seen[*sources[j].OrderID] {
				seen[*sources[j].OrderID] = true
				rowOrders = append(rowOrders, *sources[j].OrderID)
			}
		}

		err = s.scope.Execute(ctx, func(repos appinv.TransactionalRepositories) error {
			ok, err := repos.LevelRepo().ApplyDelta(ctx, row.ID, inventory.BucketDelta{
				ReleaseReservedUpTo: deficit,
			})
			if err != nil {
				return err
			}
			if !ok {
				return shared.ErrConcurrencyConflict
			}
			tx, err := inventory.NewInventoryTransaction(row.VariantID, inventory.TransactionTypeUnreserve, -deficit, row.OnHand, row.OnHand)
			if err != nil {
				return err
			}
			tx.WithFromLocation(row.LocationID).WithReason("orphaned reservation correction")
			if err := repos.TransactionRepo().Append(ctx, tx); err != nil {
				return err
			}

			// walk the lines of the affected orders and give back the
			// unbacked quantity, oldest reservation first
			return s.rollBackLineBookkeeping(ctx, repos, rowOrders, row.VariantID, deficit)
		})
		if err != nil {
			s.logger.Error("orphan correction failed, row left for next sweep",
				zap.String("variant_id", row.VariantID.String()),
				zap.String("location_id", row.LocationID.String()),
				zap.Int64("deficit", deficit),
				zap.Error(err))
			continue
		}

		report.CorrectedRows++
		report.ReleasedUnits += deficit
		for _, id := range rowOrders {
			affectedOrders[id] = true
		}

		if s.eventPublisher != nil {
			_ = s.eventPublisher.Publish(ctx, inventory.NewOrphanedReservationCorrectedEvent(
				row.ID, row.VariantID, row.LocationID, deficit, rowOrders))
		}
	}

	// re-reserve affected orders from whatever stock remains
	for orderID := range affectedOrders {
		report.AffectedOrderIDs = append(report.AffectedOrderIDs, orderID)
		resp, err := s.ReserveOrder(ctx, orderID)
		if err != nil {
			s.logger.Warn("re-reservation after orphan correction failed",
				zap.String("order_id", orderID.String()),
				zap.Error(err))
			continue
		}
		for _, line := range resp.Lines {
			for _, p := range line.Placements {
				report.ReallocatedUnits += p.Quantity
			}
		}
	}

	s.logger.Info("orphan sweep finished",
		zap.Int("scanned_rows", report.ScannedRows),
		zap.Int("corrected_rows", report.CorrectedRows),
		zap.Int64("released_units", report.ReleasedUnits),
		zap.Int64("reallocated_units", report.ReallocatedUnits))
	return report
}

func (s *Service) rollBackLineBookkeeping(ctx context.Context, repos appinv.TransactionalRepositories, orderIDs []uuid.UUID, variantID uuid.UUID, deficit int64) error {
	if len(orderIDs) == 0 || deficit == 0 {
		return nil
	}
	variant, err := s.variantRepo.FindByID(ctx, variantID)
	if err != nil {
		return err
	}
	orders, err := repos.OrderRepo().FindByIDs(ctx, orderIDs)
	if err != nil {
		return err
	}
	remaining := deficit
	for i := range orders {
		for j := range orders[i].Lines {
			line := &orders[i].Lines[j]
			if line.VariantSKU != variant.SKU || line.ReservedQuantity == 0 {
				continue
			}
			give := line.ReservedQuantity
			if give > remaining {
				give = remaining
			}
			line.ReservedQuantity -= give
			if err := repos.OrderRepo().SaveLine(ctx, line); err != nil {
				return err
			}
			remaining -= give
			if remaining == 0 {
				return nil
			}
		}
	}
	return nil
}
