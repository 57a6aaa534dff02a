package integration

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wms/backend/internal/domain/inventory"
	"github.com/wms/backend/internal/domain/shared"
	"github.com/wms/backend/internal/domain/warehouse"
	"github.com/wms/backend/internal/infrastructure/persistence"
)

// TestLevelRepository_Integration tests the guarded counter primitives against
// a real PostgreSQL database
func TestLevelRepository_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	testDB := NewTestDB(t)
	repo := persistence.NewGormLevelRepository(testDB.DB)
	ctx := context.Background()

	warehouseID := uuid.New()
	productID := uuid.New()
	testDB.CreateTestWarehouse(warehouseID)
	testDB.CreateTestProduct(productID)

	newSlot := func() (uuid.UUID, uuid.UUID) {
		variantID := uuid.New()
		locationID := uuid.New()
		testDB.CreateTestVariant(productID, variantID, 1, 1)
		testDB.CreateTestPickLocation(warehouseID, locationID)
		return variantID, locationID
	}

	t.Run("GetOrCreate creates then reuses the row", func(t *testing.T) {
		variantID, locationID := newSlot()

		level, err := repo.GetOrCreate(ctx, variantID, locationID)
		require.NoError(t, err)
		assert.Equal(t, int64(0), level.OnHand)

		again, err := repo.GetOrCreate(ctx, variantID, locationID)
		require.NoError(t, err)
		assert.Equal(t, level.ID, again.ID)
	})

	t.Run("ApplyDelta increments and records success", func(t *testing.T) {
		variantID, locationID := newSlot()
		level, err := repo.GetOrCreate(ctx, variantID, locationID)
		require.NoError(t, err)

		ok, err := repo.ApplyDelta(ctx, level.ID, inventory.BucketDelta{OnHand: 10})
		require.NoError(t, err)
		assert.True(t, ok)

		found, err := repo.FindByID(ctx, level.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(10), found.OnHand)
		assert.Greater(t, found.Version, level.Version)
	})

	t.Run("guard trips without error on insufficient stock", func(t *testing.T) {
		variantID, locationID := newSlot()
		level, err := repo.GetOrCreate(ctx, variantID, locationID)
		require.NoError(t, err)

		_, err = repo.ApplyDelta(ctx, level.ID, inventory.BucketDelta{OnHand: 2})
		require.NoError(t, err)

		ok, err := repo.ApplyDelta(ctx, level.ID, inventory.BucketDelta{OnHand: -5, Picked: 5})
		require.NoError(t, err)
		assert.False(t, ok)

		// counters untouched after the refused update
		found, err := repo.FindByID(ctx, level.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(2), found.OnHand)
		assert.Equal(t, int64(0), found.Picked)
	})

	t.Run("missing row is reported as not found, not a tripped guard", func(t *testing.T) {
		_, err := repo.ApplyDelta(ctx, uuid.New(), inventory.BucketDelta{OnHand: -1})
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("capped release never drives reserved negative", func(t *testing.T) {
		variantID, locationID := newSlot()
		level, err := repo.GetOrCreate(ctx, variantID, locationID)
		require.NoError(t, err)

		_, err = repo.ApplyDelta(ctx, level.ID, inventory.BucketDelta{OnHand: 10, Reserved: 3})
		require.NoError(t, err)

		ok, err := repo.ApplyDelta(ctx, level.ID, inventory.BucketDelta{ReleaseReservedUpTo: 8})
		require.NoError(t, err)
		assert.True(t, ok)

		found, err := repo.FindByID(ctx, level.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(0), found.Reserved)
	})

	t.Run("available guard refuses overselling a reserved row", func(t *testing.T) {
		variantID, locationID := newSlot()
		level, err := repo.GetOrCreate(ctx, variantID, locationID)
		require.NoError(t, err)

		_, err = repo.ApplyDelta(ctx, level.ID, inventory.BucketDelta{OnHand: 10, Reserved: 8})
		require.NoError(t, err)

		ok, err := repo.ApplyDelta(ctx, level.ID, inventory.BucketDelta{Reserved: 3, GuardAvailable: 3})
		require.NoError(t, err)
		assert.False(t, ok)

		ok, err = repo.ApplyDelta(ctx, level.ID, inventory.BucketDelta{Reserved: 2, GuardAvailable: 2})
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("explicit adjustments may take on hand negative", func(t *testing.T) {
		variantID, locationID := newSlot()
		level, err := repo.GetOrCreate(ctx, variantID, locationID)
		require.NoError(t, err)

		ok, err := repo.ApplyDelta(ctx, level.ID, inventory.BucketDelta{OnHand: -4, AllowNegativeOnHand: true})
		require.NoError(t, err)
		assert.True(t, ok)

		found, err := repo.FindByID(ctx, level.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(-4), found.OnHand)
	})

	t.Run("DeleteIfEmpty only removes a fully drained row", func(t *testing.T) {
		variantID, locationID := newSlot()
		level, err := repo.GetOrCreate(ctx, variantID, locationID)
		require.NoError(t, err)

		_, err = repo.ApplyDelta(ctx, level.ID, inventory.BucketDelta{OnHand: 1})
		require.NoError(t, err)

		deleted, err := repo.DeleteIfEmpty(ctx, level.ID)
		require.NoError(t, err)
		assert.False(t, deleted)

		_, err = repo.ApplyDelta(ctx, level.ID, inventory.BucketDelta{OnHand: -1, AllowNegativeOnHand: true})
		require.NoError(t, err)

		deleted, err = repo.DeleteIfEmpty(ctx, level.ID)
		require.NoError(t, err)
		assert.True(t, deleted)

		_, err = repo.FindByID(ctx, level.ID)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

// TestLevelRepository_ConcurrentPicks proves the core concurrency property:
// two pickers racing for the last units cannot both succeed. With 5 on hand
// and two concurrent picks of 3, exactly one UPDATE finds its guard satisfied.
func TestLevelRepository_ConcurrentPicks(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	testDB := NewTestDB(t)
	repo := persistence.NewGormLevelRepository(testDB.DB)
	ctx := context.Background()

	warehouseID := uuid.New()
	productID := uuid.New()
	variantID := uuid.New()
	locationID := uuid.New()
	testDB.CreateTestWarehouse(warehouseID)
	testDB.CreateTestProduct(productID)
	testDB.CreateTestVariant(productID, variantID, 1, 1)
	testDB.CreateTestPickLocation(warehouseID, locationID)

	level, err := repo.GetOrCreate(ctx, variantID, locationID)
	require.NoError(t, err)
	_, err = repo.ApplyDelta(ctx, level.ID, inventory.BucketDelta{OnHand: 5})
	require.NoError(t, err)

	const pickers = 2
	results := make([]bool, pickers)
	errs := make([]error, pickers)
	var wg sync.WaitGroup
	for i := 0; i < pickers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = repo.ApplyDelta(ctx, level.ID, inventory.BucketDelta{OnHand: -3, Picked: 3})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for i := 0; i < pickers; i++ {
		require.NoError(t, errs[i])
		if results[i] {
			succeeded++
		}
	}
	assert.Equal(t, 1, succeeded, "exactly one of two racing picks must win")

	found, err := repo.FindByID(ctx, level.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), found.OnHand)
	assert.Equal(t, int64(3), found.Picked)
}

// TestLevelRepository_ConcurrentGetOrCreate races several creators for the
// same slot; ON CONFLICT DO NOTHING must funnel all of them onto one row
func TestLevelRepository_ConcurrentGetOrCreate(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	testDB := NewTestDB(t)
	repo := persistence.NewGormLevelRepository(testDB.DB)
	ctx := context.Background()

	warehouseID := uuid.New()
	productID := uuid.New()
	variantID := uuid.New()
	locationID := uuid.New()
	testDB.CreateTestWarehouse(warehouseID)
	testDB.CreateTestProduct(productID)
	testDB.CreateTestVariant(productID, variantID, 1, 1)
	testDB.CreateTestPickLocation(warehouseID, locationID)

	const creators = 4
	ids := make([]uuid.UUID, creators)
	errs := make([]error, creators)
	var wg sync.WaitGroup
	for i := 0; i < creators; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			level, err := repo.GetOrCreate(ctx, variantID, locationID)
			if err == nil {
				ids[i] = level.ID
			}
			errs[i] = err
		}(i)
	}
	wg.Wait()

	for i := 0; i < creators; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, ids[0], ids[i])
	}

	var count int64
	err := testDB.DB.Raw(
		"SELECT COUNT(*) FROM inventory_levels WHERE variant_id = ? AND location_id = ?",
		variantID, locationID,
	).Scan(&count).Error
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

// TestLevelRepository_WalkOrderAndSourcing tests the pick-path ordering and
// the FIFO sourcing fallback
func TestLevelRepository_WalkOrderAndSourcing(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	testDB := NewTestDB(t)
	repo := persistence.NewGormLevelRepository(testDB.DB)
	ctx := context.Background()

	warehouseID := uuid.New()
	productID := uuid.New()
	variantID := uuid.New()
	testDB.CreateTestWarehouse(warehouseID)
	testDB.CreateTestProduct(productID)
	testDB.CreateTestVariant(productID, variantID, 1, 1)

	// three pick slots out of address order by insertion
	locB := uuid.New()
	locA := uuid.New()
	locC := uuid.New()
	testDB.CreateTestLocation(warehouseID, locB, warehouse.LocationTypePick, "B", "01", "01", "1", "01")
	testDB.CreateTestLocation(warehouseID, locA, warehouse.LocationTypePick, "A", "02", "01", "1", "01")
	testDB.CreateTestLocation(warehouseID, locC, warehouse.LocationTypePick, "B", "01", "02", "1", "01")

	seed := func(locationID uuid.UUID, onHand int64) uuid.UUID {
		level, err := repo.GetOrCreate(ctx, variantID, locationID)
		require.NoError(t, err)
		_, err = repo.ApplyDelta(ctx, level.ID, inventory.BucketDelta{OnHand: onHand})
		require.NoError(t, err)
		return level.ID
	}
	seed(locB, 5)
	seed(locA, 5)
	seed(locC, 5)

	t.Run("walk order follows the physical address", func(t *testing.T) {
		levels, err := repo.FindByVariantInWalkOrder(ctx, variantID, &warehouseID)
		require.NoError(t, err)
		require.Len(t, levels, 3)
		assert.Equal(t, locA, levels[0].LocationID)
		assert.Equal(t, locB, levels[1].LocationID)
		assert.Equal(t, locC, levels[2].LocationID)
	})

	t.Run("FIFO sourcing returns the stalest stocked bulk row", func(t *testing.T) {
		bulkOld := uuid.New()
		bulkNew := uuid.New()
		testDB.CreateTestLocation(warehouseID, bulkOld, warehouse.LocationTypeBulk, "R", "01", "01", "1", "01")
		testDB.CreateTestLocation(warehouseID, bulkNew, warehouse.LocationTypeBulk, "R", "01", "02", "1", "01")

		oldID := seed(bulkOld, 20)
		newID := seed(bulkNew, 20)

		// push the second row's updated_at forward so the first is stalest
		err := testDB.DB.Exec(
			"UPDATE inventory_levels SET updated_at = now() + interval '1 hour' WHERE id = ?", newID,
		).Error
		require.NoError(t, err)

		found, err := repo.FindOldestWithStock(ctx, variantID, warehouse.LocationTypeBulk, warehouseID)
		require.NoError(t, err)
		assert.Equal(t, oldID, found.ID)

		// drained rows are skipped
		err = testDB.DB.Exec(
			"UPDATE inventory_levels SET on_hand = 0 WHERE id = ?", oldID,
		).Error
		require.NoError(t, err)

		found, err = repo.FindOldestWithStock(ctx, variantID, warehouse.LocationTypeBulk, warehouseID)
		require.NoError(t, err)
		assert.Equal(t, newID, found.ID)
	})

	t.Run("reservation deficits surface rows with reserved above on hand", func(t *testing.T) {
		deficitLoc := uuid.New()
		testDB.CreateTestLocation(warehouseID, deficitLoc, warehouse.LocationTypePick, "D", "01", "01", "1", "01")
		deficitID := seed(deficitLoc, 2)

		err := testDB.DB.Exec(
			"UPDATE inventory_levels SET reserved = 6 WHERE id = ?", deficitID,
		).Error
		require.NoError(t, err)

		levels, err := repo.FindReservationDeficits(ctx)
		require.NoError(t, err)
		require.Len(t, levels, 1)
		assert.Equal(t, deficitID, levels[0].ID)
		assert.Equal(t, int64(4), levels[0].ReservationDeficit())
	})
}
