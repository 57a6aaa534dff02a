package integration

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	inventoryapp "github.com/wms/backend/internal/application/inventory"
	"github.com/wms/backend/internal/domain/shared"
	"github.com/wms/backend/internal/infrastructure/persistence"
)

// TestLedgerFlow_Integration walks one unit of stock through the full
// lifecycle against a real database: receipt, pick, pack, ship, with the
// audit trail checked at the end
func TestLedgerFlow_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	testDB := NewTestDB(t)
	ctx := context.Background()

	scope := persistence.NewGormTransactionScope(testDB.DB)
	levelRepo := persistence.NewGormLevelRepository(testDB.DB)
	txRepo := persistence.NewGormTransactionRepository(testDB.DB)
	configRepo := persistence.NewGormConfigRepository(testDB.DB)
	svc := inventoryapp.NewLedgerService(scope, levelRepo, txRepo, configRepo)

	warehouseID := uuid.New()
	productID := uuid.New()
	variantID := uuid.New()
	locationID := uuid.New()
	testDB.CreateTestWarehouse(warehouseID)
	testDB.CreateTestProduct(productID)
	testDB.CreateTestVariant(productID, variantID, 1, 1)
	testDB.CreateTestPickLocation(warehouseID, locationID)

	orderID := uuid.New()
	actor := "tester"

	level, err := svc.Receive(ctx, inventoryapp.ReceiveStockRequest{
		VariantID:  variantID,
		LocationID: locationID,
		Quantity:   10,
		Reason:     "PO-1001",
		Actor:      actor,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(10), level.OnHand)

	level, err = svc.Pick(ctx, inventoryapp.PickStockRequest{
		VariantID:  variantID,
		LocationID: locationID,
		Quantity:   4,
		OrderID:    &orderID,
		Actor:      actor,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(6), level.OnHand)
	assert.Equal(t, int64(4), level.Picked)

	level, err = svc.Pack(ctx, inventoryapp.PackStockRequest{
		VariantID:  variantID,
		LocationID: locationID,
		Quantity:   3,
		OrderID:    &orderID,
		Actor:      actor,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), level.Picked)
	assert.Equal(t, int64(3), level.Packed)

	// ship drains the staged buckets before touching raw on-hand
	level, err = svc.Ship(ctx, inventoryapp.ShipStockRequest{
		VariantID:  variantID,
		LocationID: locationID,
		Quantity:   4,
		OrderID:    &orderID,
		Actor:      actor,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(6), level.OnHand)
	assert.Equal(t, int64(0), level.Picked)
	assert.Equal(t, int64(0), level.Packed)

	// pack moves nothing in or out of the building, so the trail holds
	// exactly the receipt, the pick and the ship
	history, total, err := svc.GetHistory(ctx, variantID, locationID, shared.DefaultFilter())
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, history, 3)

	types := make(map[string]bool, len(history))
	for _, tx := range history {
		types[tx.Type] = true
		assert.Equal(t, actor, tx.Actor)
	}
	assert.True(t, types["receipt"])
	assert.True(t, types["pick"])
	assert.True(t, types["ship"])
}

// TestLedgerFlow_ZombieCleanup verifies a fully drained row disappears rather
// than lingering as an all-zero record
func TestLedgerFlow_ZombieCleanup(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	testDB := NewTestDB(t)
	ctx := context.Background()

	scope := persistence.NewGormTransactionScope(testDB.DB)
	levelRepo := persistence.NewGormLevelRepository(testDB.DB)
	txRepo := persistence.NewGormTransactionRepository(testDB.DB)
	configRepo := persistence.NewGormConfigRepository(testDB.DB)
	svc := inventoryapp.NewLedgerService(scope, levelRepo, txRepo, configRepo)

	warehouseID := uuid.New()
	productID := uuid.New()
	variantID := uuid.New()
	locationID := uuid.New()
	testDB.CreateTestWarehouse(warehouseID)
	testDB.CreateTestProduct(productID)
	testDB.CreateTestVariant(productID, variantID, 1, 1)
	testDB.CreateTestPickLocation(warehouseID, locationID)

	_, err := svc.Receive(ctx, inventoryapp.ReceiveStockRequest{
		VariantID:  variantID,
		LocationID: locationID,
		Quantity:   5,
		Actor:      "tester",
	})
	require.NoError(t, err)

	_, err = svc.Ship(ctx, inventoryapp.ShipStockRequest{
		VariantID:  variantID,
		LocationID: locationID,
		Quantity:   5,
		Actor:      "tester",
	})
	require.NoError(t, err)

	_, err = svc.GetLevel(ctx, variantID, locationID)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	// the audit trail survives the row
	_, total, err := svc.GetHistory(ctx, variantID, locationID, shared.DefaultFilter())
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
}

// TestLedgerFlow_TransferAndAdjust covers the two-row transfer and the cycle
// count adjustment path
func TestLedgerFlow_TransferAndAdjust(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	testDB := NewTestDB(t)
	ctx := context.Background()

	scope := persistence.NewGormTransactionScope(testDB.DB)
	levelRepo := persistence.NewGormLevelRepository(testDB.DB)
	txRepo := persistence.NewGormTransactionRepository(testDB.DB)
	configRepo := persistence.NewGormConfigRepository(testDB.DB)
	svc := inventoryapp.NewLedgerService(scope, levelRepo, txRepo, configRepo)

	warehouseID := uuid.New()
	productID := uuid.New()
	variantID := uuid.New()
	fromLoc := uuid.New()
	toLoc := uuid.New()
	testDB.CreateTestWarehouse(warehouseID)
	testDB.CreateTestProduct(productID)
	testDB.CreateTestVariant(productID, variantID, 1, 1)
	testDB.CreateTestPickLocation(warehouseID, fromLoc)
	testDB.CreateTestPickLocation(warehouseID, toLoc)

	_, err := svc.Receive(ctx, inventoryapp.ReceiveStockRequest{
		VariantID:  variantID,
		LocationID: fromLoc,
		Quantity:   8,
		Actor:      "tester",
	})
	require.NoError(t, err)

	t.Run("transfer moves stock and refuses overdraws", func(t *testing.T) {
		dest, err := svc.Transfer(ctx, inventoryapp.TransferStockRequest{
			VariantID:      variantID,
			FromLocationID: fromLoc,
			ToLocationID:   toLoc,
			Quantity:       3,
			Actor:          "tester",
		})
		require.NoError(t, err)
		assert.Equal(t, int64(3), dest.OnHand)

		source, err := svc.GetLevel(ctx, variantID, fromLoc)
		require.NoError(t, err)
		assert.Equal(t, int64(5), source.OnHand)

		_, err = svc.Transfer(ctx, inventoryapp.TransferStockRequest{
			VariantID:      variantID,
			FromLocationID: fromLoc,
			ToLocationID:   toLoc,
			Quantity:       100,
			Actor:          "tester",
		})
		assert.ErrorIs(t, err, shared.ErrInsufficientStock)
	})

	t.Run("adjust books the counted quantity with a reason", func(t *testing.T) {
		cycleCountID := uuid.New()
		level, err := svc.Adjust(ctx, inventoryapp.AdjustStockRequest{
			VariantID:    variantID,
			LocationID:   fromLoc,
			NewOnHand:    2,
			CycleCountID: &cycleCountID,
			Reason:       "cycle count short",
			Actor:        "tester",
		})
		require.NoError(t, err)
		assert.Equal(t, int64(2), level.OnHand)

		_, err = svc.Adjust(ctx, inventoryapp.AdjustStockRequest{
			VariantID:  variantID,
			LocationID: fromLoc,
			NewOnHand:  7,
			Actor:      "tester",
		})
		require.Error(t, err)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "REASON_REQUIRED", domainErr.Code)
	})
}
