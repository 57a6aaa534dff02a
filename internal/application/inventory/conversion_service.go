package inventory

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/wms/backend/internal/domain/catalog"
	"github.com/wms/backend/internal/domain/inventory"
	"github.com/wms/backend/internal/domain/shared"
)

// ConversionService converts stock between packaging tiers of one product.
// A break or assemble is two guarded bucket updates and two audit records
// sharing a batch ID, committed as one transaction. No base units are created
// or destroyed; only the packaging changes.
type ConversionService struct {
	scope          TransactionScope
	variantRepo    catalog.VariantRepository
	eventPublisher shared.EventPublisher
}

// NewConversionService creates a new ConversionService
func NewConversionService(scope TransactionScope, variantRepo catalog.VariantRepository) *ConversionService {
	return &ConversionService{
		scope:       scope,
		variantRepo: variantRepo,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *ConversionService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// loadPair loads both variants and validates they form a convertible pair
func (s *ConversionService) loadPair(ctx context.Context, sourceID, targetID uuid.UUID) (*catalog.ProductVariant, *catalog.ProductVariant, error) {
	if sourceID == targetID {
		return nil, nil, shared.NewDomainError("INVALID_CONVERSION", "Source and target variants must differ")
	}
	source, err := s.variantRepo.FindByID(ctx, sourceID)
	if err != nil {
		return nil, nil, err
	}
	target, err := s.variantRepo.FindByID(ctx, targetID)
	if err != nil {
		return nil, nil, err
	}
	if source.ProductID != target.ProductID {
		return nil, nil, shared.NewDomainError("CROSS_PRODUCT_CONVERSION", "Variants belong to different products")
	}
	if !source.ConvertibleTo(target) {
		return nil, nil, shared.NewDomainError("NON_INTEGER_RATIO",
			fmt.Sprintf("No whole-unit conversion between ratios %d and %d", source.UnitsPerVariant, target.UnitsPerVariant))
	}
	return source, target, nil
}

// Break converts larger packaging units into smaller ones at one location
func (s *ConversionService) Break(ctx context.Context, req BreakStockRequest) (*ConversionResponse, error) {
	if req.Quantity <= 0 {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	source, target, err := s.loadPair(ctx, req.SourceVariantID, req.TargetVariantID)
	if err != nil {
		return nil, err
	}
	if !source.IsLargerThan(target) {
		return nil, shared.NewDomainError("INVALID_BREAK", "Break requires a larger source variant; use assemble instead")
	}

	ratio := source.UnitsPerVariant / target.UnitsPerVariant
	produced := req.Quantity * ratio
	return s.convert(ctx, source, target, req.LocationID, req.Quantity, produced, inventory.TransactionTypeBreak, req.Actor)
}

// Assemble combines smaller packaging units into larger ones at one location.
// Quantity is how many target units to build.
func (s *ConversionService) Assemble(ctx context.Context, req AssembleStockRequest) (*ConversionResponse, error) {
	if req.Quantity <= 0 {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	source, target, err := s.loadPair(ctx, req.SourceVariantID, req.TargetVariantID)
	if err != nil {
		return nil, err
	}
	if !target.IsLargerThan(source) {
		return nil, shared.NewDomainError("INVALID_ASSEMBLE", "Assemble requires a larger target variant; use break instead")
	}

	ratio := target.UnitsPerVariant / source.UnitsPerVariant
	consumed := req.Quantity * ratio
	return s.convert(ctx, source, target, req.LocationID, consumed, req.Quantity, inventory.TransactionTypeAssemble, req.Actor)
}

func (s *ConversionService) convert(
	ctx context.Context,
	source, target *catalog.ProductVariant,
	locationID uuid.UUID,
	consumed, produced int64,
	txType inventory.TransactionType,
	actor string,
) (*ConversionResponse, error) {
	batch := uuid.New()

	var sourceLevel, targetLevel *inventory.InventoryLevel
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		src, err := repos.LevelRepo().FindByVariantAndLocation(ctx, source.ID, locationID)
		if err != nil {
			return err
		}
		dst, err := repos.LevelRepo().GetOrCreate(ctx, target.ID, locationID)
		if err != nil {
			return err
		}

		ok, err := repos.LevelRepo().ApplyDelta(ctx, src.ID, inventory.BucketDelta{OnHand: -consumed})
		if err != nil {
			return err
		}
		if !ok {
			return shared.ErrInsufficientStock
		}
		ok, err = repos.LevelRepo().ApplyDelta(ctx, dst.ID, inventory.BucketDelta{OnHand: produced})
		if err != nil {
			return err
		}
		if !ok {
			return shared.ErrConcurrencyConflict
		}

		outTx, err := inventory.NewInventoryTransaction(source.ID, txType, -consumed, src.OnHand, src.OnHand-consumed)
		if err != nil {
			return err
		}
		outTx.WithFromLocation(locationID).WithBatch(batch).WithActor(actor)
		inTx, err := inventory.NewInventoryTransaction(target.ID, txType, produced, dst.OnHand, dst.OnHand+produced)
		if err != nil {
			return err
		}
		inTx.WithToLocation(locationID).WithBatch(batch).WithActor(actor)
		if err := repos.TransactionRepo().Append(ctx, outTx, inTx); err != nil {
			return err
		}

		sourceLevel = src
		targetLevel = dst
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.eventPublisher != nil {
		_ = s.eventPublisher.Publish(ctx,
			inventory.NewInventoryChangedEvent(sourceLevel.ID, source.ID, locationID),
			inventory.NewInventoryChangedEvent(targetLevel.ID, target.ID, locationID),
		)
	}

	return &ConversionResponse{
		BatchID:          batch,
		SourceVariantID:  source.ID,
		TargetVariantID:  target.ID,
		LocationID:       locationID,
		ConsumedQuantity: consumed,
		ProducedQuantity: produced,
	}, nil
}

// Preview reports what a break or assemble would produce without touching
// stock
func (s *ConversionService) Preview(ctx context.Context, sourceVariantID, targetVariantID uuid.UUID, quantity int64) (*ConversionPreviewResponse, error) {
	if quantity <= 0 {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	source, target, err := s.loadPair(ctx, sourceVariantID, targetVariantID)
	if err != nil {
		return nil, err
	}

	resp := &ConversionPreviewResponse{
		SourceVariantID: source.ID,
		TargetVariantID: target.ID,
		Quantity:        quantity,
	}
	if source.IsLargerThan(target) {
		resp.IsBreak = true
		resp.Ratio = source.UnitsPerVariant / target.UnitsPerVariant
		resp.ProducedQuantity = quantity * resp.Ratio
	} else {
		resp.Ratio = target.UnitsPerVariant / source.UnitsPerVariant
		resp.ProducedQuantity = quantity / resp.Ratio
	}
	return resp, nil
}

// ListBreakableVariants returns the smaller packaging tiers of the same
// product a variant can be broken into, largest first
func (s *ConversionService) ListBreakableVariants(ctx context.Context, variantID uuid.UUID) ([]BreakableVariantResponse, error) {
	variant, err := s.variantRepo.FindByID(ctx, variantID)
	if err != nil {
		return nil, err
	}
	siblings, err := s.variantRepo.FindSmallerSiblings(ctx, variant)
	if err != nil {
		return nil, err
	}

	out := make([]BreakableVariantResponse, 0, len(siblings))
	for i := range siblings {
		sib := &siblings[i]
		if !variant.ConvertibleTo(sib) {
			continue
		}
		out = append(out, BreakableVariantResponse{
			VariantID:       sib.ID,
			SKU:             sib.SKU,
			Name:            sib.Name,
			UnitsPerVariant: sib.UnitsPerVariant,
			HierarchyLevel:  sib.HierarchyLevel,
			UnitsPerSource:  variant.UnitsPerVariant / sib.UnitsPerVariant,
		})
	}
	return out, nil
}
