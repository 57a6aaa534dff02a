// Package integration provides integration testing utilities for the WMS backend.
// It uses testcontainers to spin up real PostgreSQL databases for testing.
package integration

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	mpg "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/wms/backend/internal/domain/warehouse"
)

var (
	// Shared container for all tests in a package
	sharedContainer    testcontainers.Container
	sharedContainerMu  sync.Mutex
	sharedContainerDSN string
)

// TestDB represents a test database connection
type TestDB struct {
	DB        *gorm.DB
	SqlDB     *sql.DB
	Container testcontainers.Container
	DSN       string
	t         *testing.T
}

// NewTestDB creates a new PostgreSQL container for testing.
// This creates a fresh container for each test, providing complete isolation.
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("wms_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("admin123"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "Failed to start PostgreSQL container")

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "Failed to get connection string")

	db, sqlDB := connectToDatabase(t, dsn)
	runMigrations(t, sqlDB)

	testDB := &TestDB{
		DB:        db,
		SqlDB:     sqlDB,
		Container: container,
		DSN:       dsn,
		t:         t,
	}

	t.Cleanup(func() {
		testDB.Close()
	})

	return testDB
}

// NewSharedTestDB returns a shared PostgreSQL container for tests that can share state.
// This is more efficient for read-only tests or tests that clean up after themselves.
func NewSharedTestDB(t *testing.T) *TestDB {
	t.Helper()

	sharedContainerMu.Lock()
	defer sharedContainerMu.Unlock()

	ctx := context.Background()

	if sharedContainer == nil {
		container, err := tcpostgres.Run(ctx,
			"postgres:16-alpine",
			tcpostgres.WithDatabase("wms_shared_test"),
			tcpostgres.WithUsername("postgres"),
			tcpostgres.WithPassword("admin123"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(60*time.Second)),
		)
		require.NoError(t, err, "Failed to start shared PostgreSQL container")

		dsn, err := container.ConnectionString(ctx, "sslmode=disable")
		require.NoError(t, err, "Failed to get connection string")

		sharedContainer = container
		sharedContainerDSN = dsn

		// Connect and run migrations once
		_, sqlDB := connectToDatabase(t, dsn)
		runMigrations(t, sqlDB)
		sqlDB.Close()
	}

	db, sqlDB := connectToDatabase(t, sharedContainerDSN)

	testDB := &TestDB{
		DB:        db,
		SqlDB:     sqlDB,
		Container: sharedContainer,
		DSN:       sharedContainerDSN,
		t:         t,
	}

	// Only close the connection; the shared container outlives the test
	t.Cleanup(func() {
		if testDB.SqlDB != nil {
			testDB.SqlDB.Close()
		}
	})

	return testDB
}

// Close closes the database connection and terminates the container
func (tdb *TestDB) Close() {
	ctx := context.Background()

	if tdb.SqlDB != nil {
		tdb.SqlDB.Close()
	}

	if tdb.Container != nil && tdb.Container != sharedContainer {
		if err := tdb.Container.Terminate(ctx); err != nil {
			tdb.t.Logf("Warning: Failed to terminate container: %v", err)
		}
	}
}

// CleanTables truncates all tables in the database
func (tdb *TestDB) CleanTables() {
	tdb.t.Helper()

	var tables []string
	err := tdb.DB.Raw(`
		SELECT tablename FROM pg_tables
		WHERE schemaname = 'public'
		AND tablename != 'schema_migrations'
	`).Scan(&tables).Error
	require.NoError(tdb.t, err, "Failed to get table names")

	for _, table := range tables {
		err := tdb.DB.Exec(fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table)).Error
		if err != nil {
			tdb.t.Logf("Warning: Failed to truncate table %s: %v", table, err)
		}
	}
}

// connectToDatabase establishes a GORM connection to the database
func connectToDatabase(t *testing.T, dsn string) (*gorm.DB, *sql.DB) {
	t.Helper()

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}
	if os.Getenv("TEST_DB_DEBUG") != "" {
		gormConfig.Logger = logger.Default.LogMode(logger.Info)
	}

	db, err := gorm.Open(gormpostgres.Open(dsn), gormConfig)
	require.NoError(t, err, "Failed to connect to database")

	sqlDB, err := db.DB()
	require.NoError(t, err, "Failed to get underlying SQL DB")

	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(2)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	return db, sqlDB
}

// runMigrations applies all database migrations
func runMigrations(t *testing.T, sqlDB *sql.DB) {
	t.Helper()

	migrationsPath := findMigrationsPath()
	require.NotEmpty(t, migrationsPath, "Could not find migrations directory")

	driver, err := mpg.WithInstance(sqlDB, &mpg.Config{})
	require.NoError(t, err, "Failed to create migration driver")

	m, err := migrate.NewWithDatabaseInstance(
		"file://"+migrationsPath,
		"postgres",
		driver,
	)
	require.NoError(t, err, "Failed to create migrate instance")

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		require.NoError(t, err, "Failed to run migrations")
	}
}

// findMigrationsPath locates the migrations directory
func findMigrationsPath() string {
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		return ""
	}

	dir := filepath.Dir(filename)
	for i := 0; i < 5; i++ {
		migrationsPath := filepath.Join(dir, "migrations")
		if _, err := os.Stat(migrationsPath); err == nil {
			return migrationsPath
		}
		dir = filepath.Dir(dir)
	}

	if wd, err := os.Getwd(); err == nil {
		paths := []string{
			filepath.Join(wd, "migrations"),
			filepath.Join(wd, "..", "migrations"),
			filepath.Join(wd, "..", "..", "migrations"),
		}
		for _, p := range paths {
			if _, err := os.Stat(p); err == nil {
				return p
			}
		}
	}

	return ""
}

// CleanupSharedContainer terminates the shared container.
// This should be called in TestMain if using shared containers.
func CleanupSharedContainer() {
	sharedContainerMu.Lock()
	defer sharedContainerMu.Unlock()

	if sharedContainer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		sharedContainer.Terminate(ctx)
		sharedContainer = nil
		sharedContainerDSN = ""
	}
}

// CreateTestWarehouse creates a warehouse record for testing.
func (tdb *TestDB) CreateTestWarehouse(warehouseID uuid.UUID) {
	tdb.t.Helper()

	code := fmt.Sprintf("WH_%s", warehouseID.String()[:8])
	name := fmt.Sprintf("Test Warehouse %s", warehouseID.String()[:8])

	err := tdb.DB.Exec(`
		INSERT INTO warehouses (id, code, name, active, version)
		VALUES (?, ?, ?, true, 1)
		ON CONFLICT (id) DO NOTHING
	`, warehouseID, code, name).Error
	require.NoError(tdb.t, err, "Failed to create test warehouse")
}

// CreateTestLocation creates a location record with an explicit walk address.
// Pass the zone/aisle/bay/level/bin segments that the pick-path ordering tests
// care about; the code is derived from them.
func (tdb *TestDB) CreateTestLocation(warehouseID, locationID uuid.UUID, locType warehouse.LocationType, zone, aisle, bay, level, bin string) {
	tdb.t.Helper()

	code := fmt.Sprintf("%s-%s-%s-%s-%s-%s", zone, aisle, bay, level, bin, locationID.String()[:8])
	pickable := locType == warehouse.LocationTypePick

	err := tdb.DB.Exec(`
		INSERT INTO locations (id, warehouse_id, code, type, zone, aisle, bay, level, bin, pickable, active, version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, true, 1)
		ON CONFLICT (id) DO NOTHING
	`, locationID, warehouseID, code, string(locType), zone, aisle, bay, level, bin, pickable).Error
	require.NoError(tdb.t, err, "Failed to create test location")
}

// CreateTestPickLocation creates a pick slot with a default walk address
func (tdb *TestDB) CreateTestPickLocation(warehouseID, locationID uuid.UUID) {
	tdb.t.Helper()
	tdb.CreateTestLocation(warehouseID, locationID, warehouse.LocationTypePick, "A", "01", "01", "1", locationID.String()[:4])
}

// SetParentLocation links a pick slot to its paired bulk location
func (tdb *TestDB) SetParentLocation(locationID, parentID uuid.UUID) {
	tdb.t.Helper()

	err := tdb.DB.Exec(`
		UPDATE locations SET parent_location_id = ? WHERE id = ?
	`, parentID, locationID).Error
	require.NoError(tdb.t, err, "Failed to set parent location")
}

// CreateTestProduct creates a product record for testing.
func (tdb *TestDB) CreateTestProduct(productID uuid.UUID) {
	tdb.t.Helper()

	sku := fmt.Sprintf("PROD_%s", productID.String()[:8])
	name := fmt.Sprintf("Test Product %s", productID.String()[:8])

	err := tdb.DB.Exec(`
		INSERT INTO products (id, sku, name, active, version)
		VALUES (?, ?, ?, true, 1)
		ON CONFLICT (id) DO NOTHING
	`, productID, sku, name).Error
	require.NoError(tdb.t, err, "Failed to create test product")
}

// CreateTestVariant creates a variant record for testing.
func (tdb *TestDB) CreateTestVariant(productID, variantID uuid.UUID, unitsPerVariant int64, hierarchyLevel int) {
	tdb.t.Helper()

	sku := fmt.Sprintf("VAR_%s", variantID.String()[:8])
	name := fmt.Sprintf("Test Variant %s", variantID.String()[:8])

	err := tdb.DB.Exec(`
		INSERT INTO product_variants (id, product_id, sku, name, units_per_variant, hierarchy_level, version)
		VALUES (?, ?, ?, ?, ?, ?, 1)
		ON CONFLICT (id) DO NOTHING
	`, variantID, productID, sku, name, unitsPerVariant, hierarchyLevel).Error
	require.NoError(tdb.t, err, "Failed to create test variant")
}

// CreateTestReplenishmentRule creates a per-variant replenishment rule
func (tdb *TestDB) CreateTestReplenishmentRule(variantID uuid.UUID, triggerValue, targetQuantity int64, method, sourceType string, autoExecute bool) {
	tdb.t.Helper()

	err := tdb.DB.Exec(`
		INSERT INTO replenishment_rules (id, variant_id, trigger_value, target_quantity, method, source_location_type, priority, auto_execute, active, version)
		VALUES (?, ?, ?, ?, ?, ?, 0, ?, true, 1)
		ON CONFLICT (variant_id) DO NOTHING
	`, uuid.New(), variantID, triggerValue, targetQuantity, method, sourceType, autoExecute).Error
	require.NoError(tdb.t, err, "Failed to create test replenishment rule")
}

// CreateTestOrder creates an open order with no lines
func (tdb *TestDB) CreateTestOrder(orderID uuid.UUID) {
	tdb.t.Helper()

	number := fmt.Sprintf("ORD_%s", orderID.String()[:8])

	err := tdb.DB.Exec(`
		INSERT INTO orders (id, number, status, version)
		VALUES (?, ?, 'open', 1)
		ON CONFLICT (id) DO NOTHING
	`, orderID, number).Error
	require.NoError(tdb.t, err, "Failed to create test order")
}

// CreateTestOrderLine appends a line to an order
func (tdb *TestDB) CreateTestOrderLine(orderID, lineID uuid.UUID, variantSKU string, quantity int64) {
	tdb.t.Helper()

	err := tdb.DB.Exec(`
		INSERT INTO order_lines (id, order_id, variant_sku, quantity, reserved_quantity)
		VALUES (?, ?, ?, ?, 0)
		ON CONFLICT (id) DO NOTHING
	`, lineID, orderID, variantSKU, quantity).Error
	require.NoError(tdb.t, err, "Failed to create test order line")
}
