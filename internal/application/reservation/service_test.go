package reservation

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
	"github.com/wms/backend/internal/domain/order"
	"github.com/wms/backend/internal/domain/shared"
	"github.com/wms/backend/tests/testutil"
)

type reservationFixture struct {
	levels   *testutil.MemLevelRepo
	txs      *testutil.MemTxRepo
	orders   *testutil.MemOrderRepo
	variants *testutil.MemVariantRepo
	bus      *testutil.CapturingPublisher
	service  *Service

	productID uuid.UUID
	each      *catalog.ProductVariant
}

func newReservationFixture() *reservationFixture {
	f := &reservationFixture{
		levels:    testutil.NewMemLevelRepo(),
		txs:       testutil.NewMemTxRepo(),
		orders:    testutil.NewMemOrderRepo(),
		variants:  testutil.NewMemVariantRepo(),
		bus:       &testutil.CapturingPublisher{},
		productID: uuid.New(),
	}
	f.each = f.variants.Add(f.productID, "WID-EACH", 1, catalog.HierarchyEach)
	scope := appinv.NewNoOpTransactionScope(f.levels, f.txs, f.orders, nil)
	f.service = NewService(scope, f.orders, f.variants, f.levels, f.txs, zap.NewNop())
	f.service.SetEventPublisher(f.bus)
	return f
}

func (f *reservationFixture) newOrder(status order.Status, lines ...order.Line) *order.Order {
	ord := &order.Order{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Number:            "SO-" + uuid.NewString()[:8],
		Status:            status,
	}
	for i := range lines {
		lines[i].BaseEntity = shared.NewBaseEntity()
		lines[i].OrderID = ord.ID
	}
	ord.Lines = lines
	f.orders.Put(ord)
	return ord
}

func TestService_ReserveOrder_SingleLocationCoversLine(t *testing.T) {
	f := newReservationFixture()
	locA := uuid.New()
	locB := uuid.New()
	// walk order: A first with too little, B covers the whole line
	f.levels.Seed(f.each.ID, locA, 3, 0, 0, 0)
	f.levels.Seed(f.each.ID, locB, 20, 0, 0, 0)
	ord := f.newOrder(order.StatusOpen, order.Line{VariantSKU: "WID-EACH", Quantity: 10})

	resp, err := f.service.ReserveOrder(context.Background(), ord.ID)
	require.NoError(t, err)
	assert.True(t, resp.FullyReserved)
	require.Len(t, resp.Lines, 1)
	require.Len(t, resp.Lines[0].Placements, 1)
	assert.Equal(t, locB, resp.Lines[0].Placements[0].LocationID, "first walk-order location that covers the line wins")
	assert.Equal(t, int64(10), resp.Lines[0].Reserved)

	levelB, err := f.levels.FindByVariantAndLocation(context.Background(), f.each.ID, locB)
	require.NoError(t, err)
	assert.Equal(t, int64(10), levelB.Reserved)
	assert.Equal(t, int64(20), levelB.OnHand, "reservation is a soft hold, on-hand untouched")

	stored, err := f.orders.FindByID(context.Background(), ord.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(10), stored.Lines[0].ReservedQuantity)
}

func TestService_ReserveOrder_PartialFromBestLocation(t *testing.T) {
	f := newReservationFixture()
	locA := uuid.New()
	locB := uuid.New()
	f.levels.Seed(f.each.ID, locA, 2, 0, 0, 0)
	f.levels.Seed(f.each.ID, locB, 6, 0, 0, 0)
	ord := f.newOrder(order.StatusOpen, order.Line{VariantSKU: "WID-EACH", Quantity: 10})

	resp, err := f.service.ReserveOrder(context.Background(), ord.ID)
	require.NoError(t, err)
	assert.False(t, resp.FullyReserved)
	require.Len(t, resp.Lines, 1)
	assert.Equal(t, int64(6), resp.Lines[0].Reserved, "partial takes the best-stocked location")
	assert.Empty(t, resp.Lines[0].Error, "running dry is an outcome, not an error")
	require.Len(t, resp.Lines[0].Placements, 1)
	assert.Equal(t, locB, resp.Lines[0].Placements[0].LocationID)
}

func TestService_ReserveOrder_LinesAreIndependent(t *testing.T) {
	f := newReservationFixture()
	loc := uuid.New()
	f.levels.Seed(f.each.ID, loc, 10, 0, 0, 0)
	ord := f.newOrder(order.StatusOpen,
		order.Line{VariantSKU: "WID-EACH", Quantity: 4},
		order.Line{VariantSKU: "NO-SUCH-SKU", Quantity: 2},
	)

	resp, err := f.service.ReserveOrder(context.Background(), ord.ID)
	require.NoError(t, err)
	assert.False(t, resp.FullyReserved)
	require.Len(t, resp.Lines, 2)
	assert.Equal(t, int64(4), resp.Lines[0].Reserved)
	assert.NotEmpty(t, resp.Lines[1].Error)
}

func TestService_ReserveOrder_AlreadyReservedLineIsSkipped(t *testing.T) {
	f := newReservationFixture()
	loc := uuid.New()
	f.levels.Seed(f.each.ID, loc, 10, 0, 0, 0)
	ord := f.newOrder(order.StatusOpen, order.Line{VariantSKU: "WID-EACH", Quantity: 5, ReservedQuantity: 5})

	resp, err := f.service.ReserveOrder(context.Background(), ord.ID)
	require.NoError(t, err)
	assert.True(t, resp.FullyReserved)
	assert.Empty(t, resp.Lines[0].Placements)

	level, err := f.levels.FindByVariantAndLocation(context.Background(), f.each.ID, loc)
	require.NoError(t, err)
	assert.Equal(t, int64(0), level.Reserved)
}

func TestService_ReserveOrder_ClosedOrderRefused(t *testing.T) {
	f := newReservationFixture()
	ord := f.newOrder(order.StatusShipped, order.Line{VariantSKU: "WID-EACH", Quantity: 1})

	_, err := f.service.ReserveOrder(context.Background(), ord.ID)
	assert.Error(t, err)
}

func TestService_ReserveOrder_NeverReservesBeyondAvailable(t *testing.T) {
	f := newReservationFixture()
	loc := uuid.New()
	// 10 on hand but 7 already promised elsewhere
	f.levels.Seed(f.each.ID, loc, 10, 7, 0, 0)
	ord := f.newOrder(order.StatusOpen, order.Line{VariantSKU: "WID-EACH", Quantity: 5})

	resp, err := f.service.ReserveOrder(context.Background(), ord.ID)
	require.NoError(t, err)
	assert.False(t, resp.FullyReserved)
	assert.Equal(t, int64(3), resp.Lines[0].Reserved)

	level, err := f.levels.FindByVariantAndLocation(context.Background(), f.each.ID, loc)
	require.NoError(t, err)
	assert.Equal(t, int64(10), level.Reserved)
	assert.False(t, level.HasReservationDeficit())
}

func TestService_ReleaseOrderReservation(t *testing.T) {
	f := newReservationFixture()
	loc := uuid.New()
	f.levels.Seed(f.each.ID, loc, 10, 0, 0, 0)
	ord := f.newOrder(order.StatusOpen, order.Line{VariantSKU: "WID-EACH", Quantity: 6})

	_, err := f.service.ReserveOrder(context.Background(), ord.ID)
	require.NoError(t, err)

	resp, err := f.service.ReleaseOrderReservation(context.Background(), ord.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(6), resp.ReleasedUnits)
	assert.Empty(t, resp.Discrepancies)

	level, err := f.levels.FindByVariantAndLocation(context.Background(), f.each.ID, loc)
	require.NoError(t, err)
	assert.Equal(t, int64(0), level.Reserved)

	stored, err := f.orders.FindByID(context.Background(), ord.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), stored.Lines[0].ReservedQuantity)

	// release is recorded in the audit log
	var unreserves int
	for _, tx := range f.txs.All() {
		if tx.Type == inventory.TransactionTypeUnreserve {
			unreserves++
		}
	}
	assert.Equal(t, 1, unreserves)
}

func TestService_ReleaseOrderReservation_ReportsDiscrepancy(t *testing.T) {
	f := newReservationFixture()
	loc := uuid.New()
	level := f.levels.Seed(f.each.ID, loc, 10, 0, 0, 0)
	ord := f.newOrder(order.StatusOpen, order.Line{VariantSKU: "WID-EACH", Quantity: 6})

	_, err := f.service.ReserveOrder(context.Background(), ord.ID)
	require.NoError(t, err)

	// a cycle count wiped the slot and its reservations in the meantime
	_, err = f.levels.ApplyDelta(context.Background(), level.ID, inventory.BucketDelta{ReleaseReservedUpTo: 4})
	require.NoError(t, err)

	resp, err := f.service.ReleaseOrderReservation(context.Background(), ord.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), resp.ReleasedUnits)
	require.Len(t, resp.Discrepancies, 1)
	assert.Equal(t, int64(6), resp.Discrepancies[0].Expected)
	assert.Equal(t, int64(2), resp.Discrepancies[0].Released)
}

func TestService_ReleaseOrderReservation_Idempotent(t *testing.T) {
	f := newReservationFixture()
	loc := uuid.New()
	f.levels.Seed(f.each.ID, loc, 10, 0, 0, 0)
	ord := f.newOrder(order.StatusOpen, order.Line{VariantSKU: "WID-EACH", Quantity: 6})

	_, err := f.service.ReserveOrder(context.Background(), ord.ID)
	require.NoError(t, err)
	_, err = f.service.ReleaseOrderReservation(context.Background(), ord.ID)
	require.NoError(t, err)

	// a second release finds nothing left to undo
	resp, err := f.service.ReleaseOrderReservation(context.Background(), ord.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), resp.ReleasedUnits)

	level, err := f.levels.FindByVariantAndLocation(context.Background(), f.each.ID, loc)
	require.NoError(t, err)
	assert.Equal(t, int64(0), level.Reserved)
}

func TestService_ReallocateOrphaned(t *testing.T) {
	f := newReservationFixture()
	locA := uuid.New()
	locB := uuid.New()
	f.levels.Seed(f.each.ID, locA, 10, 0, 0, 0)
	f.levels.Seed(f.each.ID, locB, 10, 0, 0, 0)
	ord := f.newOrder(order.StatusOpen, order.Line{VariantSKU: "WID-EACH", Quantity: 8})

	_, err := f.service.ReserveOrder(context.Background(), ord.ID)
	require.NoError(t, err)

	// cycle count discovers slot A is actually empty
	levelA, err := f.levels.FindByVariantAndLocation(context.Background(), f.each.ID, locA)
	require.NoError(t, err)
	ok, err := f.levels.ApplyDelta(context.Background(), levelA.ID, inventory.BucketDelta{
		OnHand:              -10,
		AllowNegativeOnHand: true,
	})
	require.NoError(t, err)
	require.True(t, ok)

	report := f.service.ReallocateOrphaned(context.Background())
	assert.Equal(t, 1, report.CorrectedRows)
	assert.Equal(t, int64(8), report.ReleasedUnits)
	assert.Contains(t, report.AffectedOrderIDs, ord.ID)
	assert.Equal(t, int64(8), report.ReallocatedUnits, "order is re-reserved from the surviving slot")

	levelA, err = f.levels.FindByVariantAndLocation(context.Background(), f.each.ID, locA)
	require.NoError(t, err)
	assert.False(t, levelA.HasReservationDeficit())

	levelB, err := f.levels.FindByVariantAndLocation(context.Background(), f.each.ID, locB)
	require.NoError(t, err)
	assert.Equal(t, int64(8), levelB.Reserved)

	corrected := f.bus.ByType(inventory.EventTypeOrphanedReservationCorrected)
	assert.Len(t, corrected, 1)
}

func TestService_ReallocateOrphaned_NothingToDo(t *testing.T) {
	f := newReservationFixture()
	f.levels.Seed(f.each.ID, uuid.New(), 10, 5, 0, 0)

	report := f.service.ReallocateOrphaned(context.Background())
	assert.Equal(t, 0, report.ScannedRows)
	assert.Equal(t, 0, report.CorrectedRows)
}

func TestService_ReallocateOrphaned_NeverFails(t *testing.T) {
	f := newReservationFixture()
	loc := uuid.New()
	// deficit row whose reservations trace back to no order at all
	f.levels.Seed(f.each.ID, loc, 0, 5, 0, 0)

	report := f.service.ReallocateOrphaned(context.Background())
	assert.Equal(t, 1, report.CorrectedRows)
	assert.Equal(t, int64(5), report.ReleasedUnits)
	assert.Empty(t, report.AffectedOrderIDs)

	level, err := f.levels.FindByVariantAndLocation(context.Background(), f.each.ID, loc)
	require.NoError(t, err)
	assert.Equal(t, int64(0), level.Reserved)
}
