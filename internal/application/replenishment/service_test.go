package replenishment

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	appinv "github.com/wms/backend/internal/application/inventory"
	"github.com/wms/backend/internal/domain/catalog"
	"github.com/wms/backend/internal/domain/inventory"
	"github.com/wms/backend/internal/domain/replenishment"
	"github.com/wms/backend/internal/domain/shared"
	"github.com/wms/backend/internal/domain/warehouse"
	"github.com/wms/backend/tests/testutil"
)

type replenFixture struct {
	levels    *testutil.MemLevelRepo
	txs       *testutil.MemTxRepo
	configs   *testutil.MemConfigRepo
	tasks     *testutil.MemTaskRepo
	variants  *testutil.MemVariantRepo
	locations *testutil.MemLocationRepo
	service   *Service

	warehouseID uuid.UUID
	productID   uuid.UUID
	each        *catalog.ProductVariant
	case12      *catalog.ProductVariant
	pallet144   *catalog.ProductVariant
	pickLoc     *warehouse.Location
	bulkLoc     *warehouse.Location
}

func newReplenFixture(t *testing.T) *replenFixture {
	t.Helper()
	f := &replenFixture{
		levels:      testutil.NewMemLevelRepo(),
		txs:         testutil.NewMemTxRepo(),
		configs:     testutil.NewMemConfigRepo(),
		tasks:       testutil.NewMemTaskRepo(),
		variants:    testutil.NewMemVariantRepo(),
		locations:   testutil.NewMemLocationRepo(),
		warehouseID: uuid.New(),
		productID:   uuid.New(),
	}
	f.each = f.variants.Add(f.productID, "WID-EACH", 1, catalog.HierarchyEach)
	f.case12 = f.variants.Add(f.productID, "WID-CS12", 12, catalog.HierarchyCase)
	f.pallet144 = f.variants.Add(f.productID, "WID-PL144", 144, catalog.HierarchyPallet)

	var err error
	f.pickLoc, err = warehouse.NewLocation(f.warehouseID, "A-01-01-1-1", warehouse.LocationTypePick, "A", "01", "01", "1", "1")
	require.NoError(t, err)
	f.bulkLoc, err = warehouse.NewLocation(f.warehouseID, "B-01-01-1-1", warehouse.LocationTypeBulk, "B", "01", "01", "1", "1")
	require.NoError(t, err)
	f.locations.Put(f.pickLoc)
	f.locations.Put(f.bulkLoc)
	f.levels.SetLocationType(f.pickLoc.ID, warehouse.LocationTypePick)
	f.levels.SetLocationType(f.bulkLoc.ID, warehouse.LocationTypeBulk)

	scope := appinv.NewNoOpTransactionScope(f.levels, f.txs, nil, f.tasks)
	f.service = NewService(scope, f.tasks, f.configs, f.levels, f.txs, f.variants, f.locations, zap.NewNop())
	return f
}

func (f *replenFixture) putRule(variantID uuid.UUID, trigger, target int64, method replenishment.Method, autoExecute bool) {
	f.configs.PutRule(&replenishment.Rule{
		BaseAggregateRoot:  shared.NewBaseAggregateRoot(),
		VariantID:          variantID,
		TriggerValue:       trigger,
		TargetQuantity:     target,
		Method:             method,
		SourceLocationType: warehouse.LocationTypeBulk,
		AutoExecute:        autoExecute,
		Active:             true,
	})
}

func TestService_RunScan_CreatesTaskBelowThreshold(t *testing.T) {
	f := newReplenFixture(t)
	f.putRule(f.each.ID, 10, 50, replenishment.MethodFullCase, false)
	f.levels.Seed(f.each.ID, f.pickLoc.ID, 4, 0, 0, 0)
	f.levels.Seed(f.each.ID, f.bulkLoc.ID, 200, 0, 0, 0)

	report, err := f.service.RunScan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.ScannedSlots)
	assert.Equal(t, 1, report.TasksCreated)

	tasks := f.tasks.All()
	require.Len(t, tasks, 1)
	assert.Equal(t, f.each.ID, tasks[0].PickVariantID)
	assert.Equal(t, f.each.ID, tasks[0].SourceVariantID, "full case pulls the pick variant itself")
	assert.Equal(t, f.bulkLoc.ID, tasks[0].SourceLocationID)
	assert.Equal(t, f.pickLoc.ID, tasks[0].DestinationLocationID)
	assert.Equal(t, int64(46), tasks[0].RequestedQuantity, "top up from 4 to the target of 50")
	assert.Equal(t, replenishment.TaskStatusPending, tasks[0].Status)
	assert.Equal(t, replenishment.TriggerMinMax, tasks[0].Trigger)
}

func TestService_RunScan_SlotAboveThresholdUntouched(t *testing.T) {
	f := newReplenFixture(t)
	f.putRule(f.each.ID, 10, 50, replenishment.MethodFullCase, false)
	f.levels.Seed(f.each.ID, f.pickLoc.ID, 30, 0, 0, 0)

	report, err := f.service.RunScan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, report.TasksCreated)
	assert.Equal(t, 1, report.AboveThreshold)
	assert.Empty(t, f.tasks.All())
}

func TestService_RunScan_UnconfiguredSlotSkipped(t *testing.T) {
	f := newReplenFixture(t)
	f.levels.Seed(f.each.ID, f.pickLoc.ID, 0, 0, 0, 0)

	report, err := f.service.RunScan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, report.TasksCreated)
	assert.Empty(t, f.tasks.All())
}

func TestService_RunScan_DeduplicatesActiveTask(t *testing.T) {
	f := newReplenFixture(t)
	f.putRule(f.each.ID, 10, 50, replenishment.MethodFullCase, false)
	f.levels.Seed(f.each.ID, f.pickLoc.ID, 4, 0, 0, 0)
	f.levels.Seed(f.each.ID, f.bulkLoc.ID, 200, 0, 0, 0)

	_, err := f.service.RunScan(context.Background())
	require.NoError(t, err)

	report, err := f.service.RunScan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, report.TasksCreated)
	assert.Equal(t, 1, report.Deduplicated)
	assert.Len(t, f.tasks.All(), 1)
}

func TestService_RunScan_CompletedTaskDoesNotBlockNewOne(t *testing.T) {
	f := newReplenFixture(t)
	f.putRule(f.each.ID, 10, 50, replenishment.MethodFullCase, false)
	f.levels.Seed(f.each.ID, f.pickLoc.ID, 4, 0, 0, 0)
	f.levels.Seed(f.each.ID, f.bulkLoc.ID, 200, 0, 0, 0)

	_, err := f.service.RunScan(context.Background())
	require.NoError(t, err)
	first := f.tasks.All()[0]
	_, err = f.service.ExecuteTask(context.Background(), first.ID, "worker-1")
	require.NoError(t, err)

	// drain the slot again below threshold
	level, err := f.levels.FindByVariantAndLocation(context.Background(), f.each.ID, f.pickLoc.ID)
	require.NoError(t, err)
	_, err = f.levels.ApplyDelta(context.Background(), level.ID, inventory.BucketDelta{OnHand: -(level.OnHand - 2)})
	require.NoError(t, err)

	report, err := f.service.RunScan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.TasksCreated)
	assert.Len(t, f.tasks.All(), 2)
}

func TestService_RunScan_NoSourceLogsAndSkips(t *testing.T) {
	f := newReplenFixture(t)
	f.putRule(f.each.ID, 10, 50, replenishment.MethodFullCase, false)
	f.levels.Seed(f.each.ID, f.pickLoc.ID, 4, 0, 0, 0)
	// no bulk stock anywhere

	report, err := f.service.RunScan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, report.TasksCreated)
	assert.Equal(t, 1, report.NoSource)
	assert.Empty(t, f.tasks.All())
}

func TestService_RunScan_ParentLocationTriedFirst(t *testing.T) {
	f := newReplenFixture(t)
	parent, err := warehouse.NewLocation(f.warehouseID, "B-09-09-1-1", warehouse.LocationTypeBulk, "B", "09", "09", "1", "1")
	require.NoError(t, err)
	f.locations.Put(parent)
	f.levels.SetLocationType(parent.ID, warehouse.LocationTypeBulk)
	f.pickLoc.ParentLocationID = &parent.ID

	f.putRule(f.each.ID, 10, 50, replenishment.MethodFullCase, false)
	f.levels.Seed(f.each.ID, f.pickLoc.ID, 4, 0, 0, 0)
	// FIFO candidate seeded first, paired parent second; parent must still win
	f.levels.Seed(f.each.ID, f.bulkLoc.ID, 500, 0, 0, 0)
	f.levels.Seed(f.each.ID, parent.ID, 60, 0, 0, 0)

	_, err = f.service.RunScan(context.Background())
	require.NoError(t, err)

	tasks := f.tasks.All()
	require.Len(t, tasks, 1)
	assert.Equal(t, parent.ID, tasks[0].SourceLocationID)
}

func TestService_RunScan_CaseBreakChoosesSmallestLargerTier(t *testing.T) {
	f := newReplenFixture(t)
	f.putRule(f.each.ID, 10, 50, replenishment.MethodCaseBreak, false)
	f.levels.Seed(f.each.ID, f.pickLoc.ID, 4, 0, 0, 0)
	f.levels.Seed(f.case12.ID, f.bulkLoc.ID, 40, 0, 0, 0)
	f.levels.Seed(f.pallet144.ID, f.bulkLoc.ID, 3, 0, 0, 0)

	_, err := f.service.RunScan(context.Background())
	require.NoError(t, err)

	tasks := f.tasks.All()
	require.Len(t, tasks, 1)
	assert.Equal(t, f.case12.ID, tasks[0].SourceVariantID, "break the case, not the pallet")
}

func TestService_RunScan_PalletDropUsesCoverageDays(t *testing.T) {
	f := newReplenFixture(t)
	f.putRule(f.each.ID, 5, 288, replenishment.MethodPalletDrop, false)
	f.levels.Seed(f.each.ID, f.pickLoc.ID, 6, 0, 0, 0)
	f.levels.Seed(f.pallet144.ID, f.bulkLoc.ID, 10, 0, 0, 0)

	// 28 units picked over the 14 day lookback: velocity 2/day, 6 on hand is
	// 3 days of cover, below the 5 day trigger
	pickTx, err := inventory.NewInventoryTransaction(f.each.ID, inventory.TransactionTypePick, -28, 34, 6)
	require.NoError(t, err)
	pickTx.WithFromLocation(f.pickLoc.ID)
	require.NoError(t, f.txs.Append(context.Background(), pickTx))

	report, err := f.service.RunScan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.TasksCreated)

	tasks := f.tasks.All()
	require.Len(t, tasks, 1)
	assert.Equal(t, f.pallet144.ID, tasks[0].SourceVariantID, "pallet drop pulls the largest tier")
}

func TestService_RunScan_PalletDropZeroVelocitySkipped(t *testing.T) {
	f := newReplenFixture(t)
	f.putRule(f.each.ID, 5, 288, replenishment.MethodPalletDrop, false)
	f.levels.Seed(f.each.ID, f.pickLoc.ID, 0, 0, 0, 0)
	f.levels.Seed(f.pallet144.ID, f.bulkLoc.ID, 10, 0, 0, 0)

	// empty slot but nothing was ever picked from it
	report, err := f.service.RunScan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, report.TasksCreated)
	assert.Empty(t, f.tasks.All())
}

func TestService_RunScan_AutoExecute(t *testing.T) {
	f := newReplenFixture(t)
	f.putRule(f.each.ID, 10, 50, replenishment.MethodFullCase, true)
	f.levels.Seed(f.each.ID, f.pickLoc.ID, 4, 0, 0, 0)
	f.levels.Seed(f.each.ID, f.bulkLoc.ID, 200, 0, 0, 0)

	report, err := f.service.RunScan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.TasksCreated)
	assert.Equal(t, 1, report.AutoExecuted)

	tasks := f.tasks.All()
	require.Len(t, tasks, 1)
	assert.Equal(t, replenishment.TaskStatusCompleted, tasks[0].Status)

	slot, err := f.levels.FindByVariantAndLocation(context.Background(), f.each.ID, f.pickLoc.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(50), slot.OnHand)
}

func TestService_RunScan_AutoExecuteFailureLeavesTaskPending(t *testing.T) {
	f := newReplenFixture(t)
	f.putRule(f.each.ID, 10, 50, replenishment.MethodFullCase, true)
	f.levels.Seed(f.each.ID, f.pickLoc.ID, 4, 0, 0, 0)
	// source found but with less stock than the move needs
	f.levels.Seed(f.each.ID, f.bulkLoc.ID, 5, 0, 0, 0)

	report, err := f.service.RunScan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.TasksCreated)
	assert.Equal(t, 0, report.AutoExecuted)

	tasks := f.tasks.All()
	require.Len(t, tasks, 1)
	assert.Equal(t, replenishment.TaskStatusPending, tasks[0].Status, "failed auto-execution leaves the task for a worker")
}

func TestService_ExecuteTask_FullCase(t *testing.T) {
	f := newReplenFixture(t)
	f.levels.Seed(f.each.ID, f.bulkLoc.ID, 100, 0, 0, 0)
	task, err := replenishment.NewTask(f.bulkLoc.ID, f.pickLoc.ID, f.each.ID, f.each.ID, 46, replenishment.TriggerManual, replenishment.MethodFullCase, 0)
	require.NoError(t, err)
	require.NoError(t, f.tasks.Save(context.Background(), task))

	resp, err := f.service.ExecuteTask(context.Background(), task.ID, "worker-1")
	require.NoError(t, err)
	assert.Equal(t, "completed", resp.Status)
	assert.Equal(t, int64(46), resp.CompletedQuantity)
	assert.Equal(t, int64(46), resp.MovedBaseUnits)

	source, err := f.levels.FindByVariantAndLocation(context.Background(), f.each.ID, f.bulkLoc.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(54), source.OnHand)

	dest, err := f.levels.FindByVariantAndLocation(context.Background(), f.each.ID, f.pickLoc.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(46), dest.OnHand)

	// both legs audited as one batch
	txs := f.txs.All()
	require.Len(t, txs, 2)
	assert.Equal(t, inventory.TransactionTypeReplenish, txs[0].Type)
	require.NotNil(t, txs[0].BatchID)
	assert.Equal(t, *txs[0].BatchID, *txs[1].BatchID)
}

func TestService_ExecuteTask_CaseBreakRoundsUp(t *testing.T) {
	f := newReplenFixture(t)
	f.levels.Seed(f.case12.ID, f.bulkLoc.ID, 10, 0, 0, 0)
	// 46 eaches from cases of 12: four cases, 48 eaches land in the slot
	task, err := replenishment.NewTask(f.bulkLoc.ID, f.pickLoc.ID, f.case12.ID, f.each.ID, 46, replenishment.TriggerManual, replenishment.MethodCaseBreak, 0)
	require.NoError(t, err)
	require.NoError(t, f.tasks.Save(context.Background(), task))

	resp, err := f.service.ExecuteTask(context.Background(), task.ID, "worker-1")
	require.NoError(t, err)
	assert.Equal(t, int64(48), resp.CompletedQuantity)
	assert.Equal(t, int64(48), resp.MovedBaseUnits)

	source, err := f.levels.FindByVariantAndLocation(context.Background(), f.case12.ID, f.bulkLoc.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(6), source.OnHand)

	dest, err := f.levels.FindByVariantAndLocation(context.Background(), f.each.ID, f.pickLoc.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(48), dest.OnHand)
}

func TestService_ExecuteTask_InsufficientSource(t *testing.T) {
	f := newReplenFixture(t)
	f.levels.Seed(f.each.ID, f.bulkLoc.ID, 10, 0, 0, 0)
	task, err := replenishment.NewTask(f.bulkLoc.ID, f.pickLoc.ID, f.each.ID, f.each.ID, 46, replenishment.TriggerManual, replenishment.MethodFullCase, 0)
	require.NoError(t, err)
	require.NoError(t, f.tasks.Save(context.Background(), task))

	_, err = f.service.ExecuteTask(context.Background(), task.ID, "worker-1")
	assert.ErrorIs(t, err, shared.ErrInsufficientStock)

	stored, err := f.tasks.FindByID(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, replenishment.TaskStatusPending, stored.Status)
}

func TestService_ExecuteTask_ClosedTaskRefused(t *testing.T) {
	f := newReplenFixture(t)
	task, err := replenishment.NewTask(f.bulkLoc.ID, f.pickLoc.ID, f.each.ID, f.each.ID, 10, replenishment.TriggerManual, replenishment.MethodFullCase, 0)
	require.NoError(t, err)
	require.NoError(t, task.Cancel())
	require.NoError(t, f.tasks.Save(context.Background(), task))

	_, err = f.service.ExecuteTask(context.Background(), task.ID, "worker-1")
	assert.Error(t, err)
}

func TestService_TaskLifecycleOperations(t *testing.T) {
	f := newReplenFixture(t)
	created, err := f.service.CreateManualTask(context.Background(), CreateManualTaskRequest{
		SourceLocationID:      f.bulkLoc.ID,
		DestinationLocationID: f.pickLoc.ID,
		SourceVariantID:       f.each.ID,
		PickVariantID:         f.each.ID,
		RequestedQuantity:     10,
		Method:                "full_case",
	})
	require.NoError(t, err)
	assert.Equal(t, "manual", created.Trigger)

	assigned, err := f.service.AssignTask(context.Background(), created.ID, "worker-9")
	require.NoError(t, err)
	assert.Equal(t, "assigned", assigned.Status)
	assert.Equal(t, "worker-9", assigned.AssignedTo)

	started, err := f.service.StartTask(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "in_progress", started.Status)

	cancelled, err := f.service.CancelTask(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "cancelled", cancelled.Status)

	_, err = f.service.StartTask(context.Background(), created.ID)
	assert.Error(t, err)
}

func TestPickTriggerHandler_CreatesTaskInline(t *testing.T) {
	f := newReplenFixture(t)
	f.putRule(f.each.ID, 10, 50, replenishment.MethodFullCase, false)
	f.levels.Seed(f.each.ID, f.pickLoc.ID, 4, 0, 0, 0)
	f.levels.Seed(f.each.ID, f.bulkLoc.ID, 200, 0, 0, 0)

	handler := NewPickTriggerHandler(f.service, zap.NewNop())
	event := inventory.NewStockPickedEvent(uuid.New(), f.each.ID, f.pickLoc.ID, uuid.New(), 3)

	require.NoError(t, handler.Handle(context.Background(), event))
	assert.Len(t, f.tasks.All(), 1)
}

func TestPickTriggerHandler_IgnoresNonPickLocations(t *testing.T) {
	f := newReplenFixture(t)
	f.putRule(f.each.ID, 10, 50, replenishment.MethodFullCase, false)
	f.levels.Seed(f.each.ID, f.bulkLoc.ID, 4, 0, 0, 0)

	handler := NewPickTriggerHandler(f.service, zap.NewNop())
	event := inventory.NewStockPickedEvent(uuid.New(), f.each.ID, f.bulkLoc.ID, uuid.New(), 3)

	require.NoError(t, handler.Handle(context.Background(), event))
	assert.Empty(t, f.tasks.All())
}
