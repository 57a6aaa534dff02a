package replenishment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	appinv "github.com/wms/backend/internal/application/inventory"
	"github.com/wms/backend/internal/domain/catalog"
	"github.com/wms/backend/internal/domain/inventory"
	"github.com/wms/backend/internal/domain/replenishment"
	"github.com/wms/backend/internal/domain/shared"
	"github.com/wms/backend/internal/domain/warehouse"
)

// DefaultVelocityLookback is the window pick velocity is computed over for
// coverage-days triggers.
const DefaultVelocityLookback = 14 * 24 * time.Hour

// Service keeps pick slots stocked. The periodic scan walks every pick slot,
// resolves its threshold through the configuration precedence chain and
// creates tasks for slots that have fallen below it; the inline trigger does
// the same for a single slot right after a pick.
type Service struct {
	scope          appinv.TransactionScope
	taskRepo       replenishment.TaskRepository
	chain          *replenishment.ResolverChain
	levelRepo      inventory.LevelRepository
	txRepo         inventory.TransactionRepository
	variantRepo    catalog.VariantRepository
	locationRepo   warehouse.LocationRepository
	eventPublisher shared.EventPublisher
	logger         *zap.Logger

	velocityLookback time.Duration
}

// NewService creates a new replenishment Service
func NewService(
	scope appinv.TransactionScope,
	taskRepo replenishment.TaskRepository,
	configRepo replenishment.ConfigRepository,
	levelRepo inventory.LevelRepository,
	txRepo inventory.TransactionRepository,
	variantRepo catalog.VariantRepository,
	locationRepo warehouse.LocationRepository,
	logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		scope:            scope,
		taskRepo:         taskRepo,
		chain:            replenishment.NewDefaultChain(configRepo),
		levelRepo:        levelRepo,
		txRepo:           txRepo,
		variantRepo:      variantRepo,
		locationRepo:     locationRepo,
		logger:           logger,
		velocityLookback: DefaultVelocityLookback,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *Service) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetVelocityLookback overrides the pick velocity window
func (s *Service) SetVelocityLookback(d time.Duration) {
	if d > 0 {
		s.velocityLookback = d
	}
}

// GetTask retrieves a task by ID
func (s *Service) GetTask(ctx context.Context, id uuid.UUID) (*TaskResponse, error) {
	task, err := s.taskRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToTaskResponse(task)
	return &resp, nil
}

// ListTasks retrieves tasks with filtering and pagination
func (s *Service) ListTasks(ctx context.Context, filter shared.Filter) ([]TaskResponse, int64, error) {
	tasks, total, err := s.taskRepo.FindAll(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	return ToTaskResponses(tasks), total, nil
}

// RunScan walks every pick slot and creates tasks for those below threshold
func (s *Service) RunScan(ctx context.Context) (*ScanReport, error) {
	report := &ScanReport{}

	locations, err := s.locationRepo.FindPickLocations(ctx, nil)
	if err != nil {
		return nil, err
	}
	for i := range locations {
		loc := &locations[i]
		levels, err := s.levelRepo.FindByLocation(ctx, loc.ID)
		if err != nil {
			return nil, err
		}
		for j := range levels {
			report.ScannedSlots++
			s.scanSlot(ctx, levels[j].VariantID, loc, replenishment.TriggerMinMax, report)
		}
	}

	s.logger.Info("replenishment scan finished",
		zap.Int("scanned_slots", report.ScannedSlots),
		zap.Int("tasks_created", report.TasksCreated),
		zap.Int("auto_executed", report.AutoExecuted),
		zap.Int("deduplicated", report.Deduplicated),
		zap.Int("no_source", report.NoSource))
	return report, nil
}

// CheckSlot re-evaluates a single (variant, location) slot, the inline
// post-pick path
func (s *Service) CheckSlot(ctx context.Context, variantID, locationID uuid.UUID) (*ScanReport, error) {
	loc, err := s.locationRepo.FindByID(ctx, locationID)
	if err != nil {
		return nil, err
	}
	if loc.Type != warehouse.LocationTypePick {
		return &ScanReport{}, nil
	}
	report := &ScanReport{ScannedSlots: 1}
	s.scanSlot(ctx, variantID, loc, replenishment.TriggerInlinePick, report)
	return report, nil
}

// scanSlot evaluates one slot against its resolved threshold and creates a
// task when it is due. Per-slot failures are logged and skipped so one bad
// slot cannot stall the whole scan.
func (s *Service) scanSlot(ctx context.Context, variantID uuid.UUID, loc *warehouse.Location, trigger replenishment.TriggerReason, report *ScanReport) {
	variant, err := s.variantRepo.FindByID(ctx, variantID)
	if err != nil {
		s.logger.Warn("scan skipped slot with unknown variant",
			zap.String("variant_id", variantID.String()),
			zap.String("location", loc.Code))
		return
	}

	threshold, err := s.chain.Resolve(ctx, replenishment.ResolveRequest{
		VariantID:      variantID,
		LocationID:     loc.ID,
		HierarchyLevel: variant.HierarchyLevel,
	})
	if err != nil {
		s.logger.Error("threshold resolution failed",
			zap.String("variant_id", variantID.String()),
			zap.String("location", loc.Code),
			zap.Error(err))
		return
	}
	if threshold == nil {
		return
	}

	level, err := s.levelRepo.FindByVariantAndLocation(ctx, variantID, loc.ID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			level = &inventory.InventoryLevel{VariantID: variantID, LocationID: loc.ID}
		} else {
			s.logger.Error("scan could not read slot", zap.String("location", loc.Code), zap.Error(err))
			return
		}
	}

	due, err := s.isDue(ctx, level, threshold)
	if err != nil {
		s.logger.Error("trigger evaluation failed", zap.String("location", loc.Code), zap.Error(err))
		return
	}
	if !due {
		report.AboveThreshold++
		return
	}

	// an active task for this slot already covers the shortfall
	existing, err := s.taskRepo.FindActiveByVariantAndDestination(ctx, variantID, loc.ID)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		s.logger.Error("dedup lookup failed", zap.String("location", loc.Code), zap.Error(err))
		return
	}
	if existing != nil {
		report.Deduplicated++
		return
	}

	need := threshold.TargetQuantity - level.OnHand
	if need <= 0 {
		need = threshold.TargetQuantity
	}

	sourceVariant, sourceLevel, err := s.resolveSource(ctx, variant, loc, threshold)
	if err != nil {
		s.logger.Error("source resolution failed", zap.String("location", loc.Code), zap.Error(err))
		return
	}
	if sourceLevel == nil {
		report.NoSource++
		s.logger.Warn("slot below threshold but no source stock found",
			zap.String("variant_sku", variant.SKU),
			zap.String("location", loc.Code),
			zap.String("source_location_type", string(threshold.SourceLocationType)),
			zap.Int64("need", need))
		return
	}

	task, err := replenishment.NewTask(
		sourceLevel.LocationID, loc.ID,
		sourceVariant.ID, variantID,
		need, trigger, threshold.Method, threshold.Priority,
	)
	if err != nil {
		s.logger.Error("task creation failed", zap.String("location", loc.Code), zap.Error(err))
		return
	}
	if err := s.taskRepo.Save(ctx, task); err != nil {
		s.logger.Error("task save failed", zap.String("location", loc.Code), zap.Error(err))
		return
	}
	report.TasksCreated++

	if threshold.AutoExecute {
		if _, err := s.ExecuteTask(ctx, task.ID, "auto"); err != nil {
			// the task stays pending for a worker to pick up
			s.logger.Warn("auto-execution failed, task left pending",
				zap.String("task_id", task.ID.String()),
				zap.Error(err))
			return
		}
		report.AutoExecuted++
	}
}

// isDue evaluates the trigger. full_case and case_break compare on-hand
// against an absolute unit threshold; pallet_drop compares days of cover
// computed from recent pick velocity.
func (s *Service) isDue(ctx context.Context, level *inventory.InventoryLevel, threshold *replenishment.Threshold) (bool, error) {
	if !threshold.Method.UsesCoverageDays() {
		return level.OnHand < threshold.TriggerValue, nil
	}

	since := time.Now().Add(-s.velocityLookback)
	picked, err := s.txRepo.PickedQuantitySince(ctx, level.VariantID, level.LocationID, since)
	if err != nil {
		return false, err
	}
	if picked <= 0 {
		// a slot nobody picks from needs no pallet
		return false, nil
	}

	lookbackDays := decimal.NewFromFloat(s.velocityLookback.Hours() / 24)
	velocity := decimal.NewFromInt(picked).Div(lookbackDays)
	coverageDays := decimal.NewFromInt(level.OnHand).Div(velocity)
	return coverageDays.LessThan(decimal.NewFromInt(threshold.TriggerValue)), nil
}

// resolveSource picks the variant and location to pull from. The pick slot's
// paired parent location is tried first; after that the oldest stocked row at
// locations of the configured source type wins (FIFO).
func (s *Service) resolveSource(ctx context.Context, pickVariant *catalog.ProductVariant, loc *warehouse.Location, threshold *replenishment.Threshold) (*catalog.ProductVariant, *inventory.InventoryLevel, error) {
	candidates, err := s.sourceVariantCandidates(ctx, pickVariant, threshold.Method)
	if err != nil {
		return nil, nil, err
	}

	for _, candidate := range candidates {
		if loc.ParentLocationID != nil {
			level, err := s.levelRepo.FindByVariantAndLocation(ctx, candidate.ID, *loc.ParentLocationID)
			if err != nil && !errors.Is(err, shared.ErrNotFound) {
				return nil, nil, err
			}
			if level != nil && level.OnHand > 0 {
				return candidate, level, nil
			}
		}

		level, err := s.levelRepo.FindOldestWithStock(ctx, candidate.ID, threshold.SourceLocationType, loc.WarehouseID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				continue
			}
			return nil, nil, err
		}
		return candidate, level, nil
	}
	return nil, nil, nil
}

// sourceVariantCandidates orders the packaging tiers a method may pull from.
// full_case moves the pick variant itself; case_break prefers the smallest
// larger tier (least surplus per break); pallet_drop prefers the largest.
func (s *Service) sourceVariantCandidates(ctx context.Context, pickVariant *catalog.ProductVariant, method replenishment.Method) ([]*catalog.ProductVariant, error) {
	if method == replenishment.MethodFullCase {
		return []*catalog.ProductVariant{pickVariant}, nil
	}

	siblings, err := s.variantRepo.FindByProduct(ctx, pickVariant.ProductID)
	if err != nil {
		return nil, err
	}
	var larger []*catalog.ProductVariant
	for i := range siblings {
		sib := &siblings[i]
		if !sib.IsLargerThan(pickVariant) || !sib.ConvertibleTo(pickVariant) {
			continue
		}
		larger = append(larger, sib)
	}
	// insertion sort, the list is a handful of tiers at most
	for i := 1; i < len(larger); i++ {
		for j := i; j > 0 && larger[j].UnitsPerVariant < larger[j-1].UnitsPerVariant; j-- {
			larger[j], larger[j-1] = larger[j-1], larger[j]
		}
	}
	if method == replenishment.MethodPalletDrop {
		for i, j := 0, len(larger)-1; i < j; i, j = i+1, j-1 {
			larger[i], larger[j] = larger[j], larger[i]
		}
	}
	return larger, nil
}

// ExecuteTask moves the task's stock and completes it: a guarded decrement at
// the source, an increment of the pick variant at the destination and two
// audit records in one transaction. A case break that does not divide evenly
// rounds the source quantity up and logs the surplus landing in the slot.
func (s *Service) ExecuteTask(ctx context.Context, taskID uuid.UUID, actor string) (*TaskResponse, error) {
	task, err := s.taskRepo.FindByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.Status.IsTerminal() {
		return nil, shared.NewDomainError("INVALID_STATE", "Task is already closed")
	}

	sourceVariant, err := s.variantRepo.FindByID(ctx, task.SourceVariantID)
	if err != nil {
		return nil, err
	}
	pickVariant, err := s.variantRepo.FindByID(ctx, task.PickVariantID)
	if err != nil {
		return nil, err
	}
	if !sourceVariant.ConvertibleTo(pickVariant) {
		return nil, shared.NewDomainError("NON_INTEGER_RATIO", "Task variants have no whole-unit conversion")
	}

	ratio := sourceVariant.UnitsPerVariant / pickVariant.UnitsPerVariant
	if ratio < 1 {
		return nil, shared.NewDomainError("INVALID_TASK", "Source variant must not be smaller than the pick variant")
	}
	sourceQty := (task.RequestedQuantity + ratio - 1) / ratio
	produced := sourceQty * ratio

	err = s.scope.Execute(ctx, func(repos appinv.TransactionalRepositories) error {
		source, err := repos.LevelRepo().FindByVariantAndLocation(ctx, sourceVariant.ID, task.SourceLocationID)
		if err != nil {
			return err
		}
		dest, err := repos.LevelRepo().GetOrCreate(ctx, pickVariant.ID, task.DestinationLocationID)
		if err != nil {
			return err
		}

		ok, err := repos.LevelRepo().ApplyDelta(ctx, source.ID, inventory.BucketDelta{OnHand: -sourceQty})
		if err != nil {
			return err
		}
		if !ok {
			return shared.ErrInsufficientStock
		}
		ok, err = repos.LevelRepo().ApplyDelta(ctx, dest.ID, inventory.BucketDelta{OnHand: produced})
		if err != nil {
			return err
		}
		if !ok {
			return shared.ErrConcurrencyConflict
		}

		batch := uuid.New()
		outTx, err := inventory.NewInventoryTransaction(sourceVariant.ID, inventory.TransactionTypeReplenish, -sourceQty, source.OnHand, source.OnHand-sourceQty)
		if err != nil {
			return err
		}
		outTx.WithFromLocation(task.SourceLocationID).WithToLocation(task.DestinationLocationID).WithBatch(batch).WithActor(actor)
		inTx, err := inventory.NewInventoryTransaction(pickVariant.ID, inventory.TransactionTypeReplenish, produced, dest.OnHand, dest.OnHand+produced)
		if err != nil {
			return err
		}
		inTx.WithFromLocation(task.SourceLocationID).WithToLocation(task.DestinationLocationID).WithBatch(batch).WithActor(actor)
		if err := repos.TransactionRepo().Append(ctx, outTx, inTx); err != nil {
			return err
		}

		if task.Status == replenishment.TaskStatusPending || task.Status == replenishment.TaskStatusAssigned {
			if err := task.Start(); err != nil {
				return err
			}
		}
		if err := task.Complete(produced, sourceQty*sourceVariant.UnitsPerVariant); err != nil {
			return err
		}
		return repos.TaskRepo().Save(ctx, task)
	})
	if err != nil {
		return nil, err
	}

	if produced > task.RequestedQuantity {
		s.logger.Info("case break rounded up, surplus left in slot",
			zap.String("task_id", task.ID.String()),
			zap.Int64("requested", task.RequestedQuantity),
			zap.Int64("produced", produced))
	}

	if s.eventPublisher != nil {
		_ = s.eventPublisher.Publish(ctx,
			inventory.NewInventoryChangedEvent(uuid.Nil, sourceVariant.ID, task.SourceLocationID),
			inventory.NewInventoryChangedEvent(uuid.Nil, pickVariant.ID, task.DestinationLocationID),
		)
	}

	resp := ToTaskResponse(task)
	return &resp, nil
}

// CreateManualTask creates an operator-requested task
func (s *Service) CreateManualTask(ctx context.Context, req CreateManualTaskRequest) (*TaskResponse, error) {
	method := replenishment.Method(req.Method)
	task, err := replenishment.NewTask(
		req.SourceLocationID, req.DestinationLocationID,
		req.SourceVariantID, req.PickVariantID,
		req.RequestedQuantity, replenishment.TriggerManual, method, req.Priority,
	)
	if err != nil {
		return nil, err
	}
	if err := s.taskRepo.Save(ctx, task); err != nil {
		return nil, err
	}
	resp := ToTaskResponse(task)
	return &resp, nil
}

// AssignTask hands a task to a worker
func (s *Service) AssignTask(ctx context.Context, taskID uuid.UUID, worker string) (*TaskResponse, error) {
	return s.mutateTask(ctx, taskID, func(task *replenishment.Task) error {
		return task.Assign(worker)
	})
}

// StartTask marks a task as being executed
func (s *Service) StartTask(ctx context.Context, taskID uuid.UUID) (*TaskResponse, error) {
	return s.mutateTask(ctx, taskID, func(task *replenishment.Task) error {
		return task.Start()
	})
}

// CancelTask aborts a task
func (s *Service) CancelTask(ctx context.Context, taskID uuid.UUID) (*TaskResponse, error) {
	return s.mutateTask(ctx, taskID, func(task *replenishment.Task) error {
		return task.Cancel()
	})
}

func (s *Service) mutateTask(ctx context.Context, taskID uuid.UUID, mutate func(*replenishment.Task) error) (*TaskResponse, error) {
	task, err := s.taskRepo.FindByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if err := mutate(task); err != nil {
		return nil, err
	}
	if err := s.taskRepo.Save(ctx, task); err != nil {
		return nil, err
	}
	resp := ToTaskResponse(task)
	return &resp, nil
}
