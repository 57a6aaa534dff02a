package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"

	inventoryapp "github.com/wms/backend/internal/application/inventory"
	replenapp "github.com/wms/backend/internal/application/replenishment"
	reservationapp "github.com/wms/backend/internal/application/reservation"
	syncapp "github.com/wms/backend/internal/application/sync"
	"github.com/wms/backend/internal/infrastructure/config"
	"github.com/wms/backend/internal/infrastructure/event"
	"github.com/wms/backend/internal/infrastructure/logger"
	"github.com/wms/backend/internal/infrastructure/persistence"
	syncinfra "github.com/wms/backend/internal/infrastructure/sync"
	"github.com/wms/backend/internal/infrastructure/telemetry"
	"github.com/wms/backend/internal/interfaces/http/handler"
	"github.com/wms/backend/internal/interfaces/http/middleware"
	"github.com/wms/backend/internal/interfaces/http/router"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting WMS Backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Tracing
	tp, err := telemetry.NewTracerProvider(context.Background(), telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			log.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()

	// Database
	gormLogLevel := gormlogger.Silent
	if cfg.App.Env != "production" {
		gormLogLevel = gormlogger.Warn
	}
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLogLevel)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if tp.IsEnabled() {
		if err := db.EnableTracing(); err != nil {
			log.Warn("Failed to enable database tracing", zap.Error(err))
		}
	}
	log.Info("Database connected successfully")

	// Repositories
	levelRepo := persistence.NewGormLevelRepository(db.DB)
	txRepo := persistence.NewGormTransactionRepository(db.DB)
	poolReader := persistence.NewGormPoolReader(db.DB)
	variantRepo := persistence.NewGormVariantRepository(db.DB)
	listingRepo := persistence.NewGormChannelListingRepository(db.DB)
	locationRepo := persistence.NewGormLocationRepository(db.DB)
	orderRepo := persistence.NewGormOrderRepository(db.DB)
	taskRepo := persistence.NewGormTaskRepository(db.DB)
	configRepo := persistence.NewGormConfigRepository(db.DB)
	scope := persistence.NewGormTransactionScope(db.DB)

	// Application services
	ledgerService := inventoryapp.NewLedgerService(scope, levelRepo, txRepo, configRepo)
	conversionService := inventoryapp.NewConversionService(scope, variantRepo)
	atpService := inventoryapp.NewATPService(poolReader, variantRepo, listingRepo)
	replenService := replenapp.NewService(scope, taskRepo, configRepo, levelRepo, txRepo, variantRepo, locationRepo, log)
	replenService.SetVelocityLookback(cfg.Replenishment.VelocityLookback)
	reservationService := reservationapp.NewService(scope, orderRepo, variantRepo, levelRepo, txRepo, log)

	// Event bus and handlers
	eventBus := event.NewInMemoryEventBus(log)

	pickTriggerHandler := replenapp.NewPickTriggerHandler(replenService, log)
	eventBus.Subscribe(pickTriggerHandler)

	var notifier *syncapp.Notifier
	if cfg.Sync.Enabled {
		publisher, err := syncinfra.NewRedisStockPublisher(cfg.Redis,
			syncinfra.WithPublisherChannel(cfg.Sync.Channel),
			syncinfra.WithPublisherLogger(log),
		)
		if err != nil {
			log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer func() {
			if err := publisher.Close(); err != nil {
				log.Error("Error closing Redis publisher", zap.Error(err))
			}
		}()

		notifier = syncapp.NewNotifier(atpService, variantRepo, publisher, log)
		notifier.SetDebounce(cfg.Sync.Debounce)
		defer notifier.Close()
		eventBus.Subscribe(notifier)
		log.Info("Channel sync enabled",
			zap.String("channel", cfg.Sync.Channel),
			zap.Duration("debounce", cfg.Sync.Debounce),
		)
	}

	ledgerService.SetEventPublisher(eventBus)
	conversionService.SetEventPublisher(eventBus)
	replenService.SetEventPublisher(eventBus)
	reservationService.SetEventPublisher(eventBus)

	// Background loops
	bgCtx, bgCancel := context.WithCancel(context.Background())
	defer bgCancel()

	if cfg.Replenishment.ScanEnabled {
		go runScanLoop(bgCtx, replenService, cfg.Replenishment.ScanInterval, log)
		log.Info("Replenishment scan loop started",
			zap.Duration("interval", cfg.Replenishment.ScanInterval))
	}
	if cfg.Replenishment.SweepEnabled {
		go runSweepLoop(bgCtx, reservationService, cfg.Replenishment.SweepInterval, log)
		log.Info("Orphaned reservation sweep loop started",
			zap.Duration("interval", cfg.Replenishment.SweepInterval))
	}

	// HTTP handlers
	inventoryHandler := handler.NewInventoryHandler(ledgerService)
	conversionHandler := handler.NewConversionHandler(conversionService)
	atpHandler := handler.NewATPHandler(atpService)
	replenHandler := handler.NewReplenishmentHandler(replenService)
	reservationHandler := handler.NewReservationHandler(reservationService)
	systemHandler := handler.NewSystemHandler(db, version)

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Tracing(cfg.Telemetry.ServiceName, tp.IsEnabled()))
	engine.Use(middleware.CORS(cfg.HTTP.CORSAllowOrigins))

	router.New(engine, router.WithAPIVersion("v1")).
		Register(systemHandler, inventoryHandler, conversionHandler,
			atpHandler, replenHandler, reservationHandler).
		Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	bgCancel()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// runScanLoop periodically sweeps pick slots against their thresholds
func runScanLoop(ctx context.Context, service *replenapp.Service, interval time.Duration, log *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			report, err := service.RunScan(ctx)
			if err != nil {
				log.Error("Replenishment scan failed", zap.Error(err))
				continue
			}
			log.Info("Replenishment scan completed",
				zap.Int("scanned_slots", report.ScannedSlots),
				zap.Int("tasks_created", report.TasksCreated),
				zap.Int("auto_executed", report.AutoExecuted),
			)
		}
	}
}

// runSweepLoop periodically corrects reservations exceeding physical stock
func runSweepLoop(ctx context.Context, service *reservationapp.Service, interval time.Duration, log *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			report := service.ReallocateOrphaned(ctx)
			if report.CorrectedRows > 0 {
				log.Warn("Orphaned reservations corrected",
					zap.Int("corrected_rows", report.CorrectedRows),
					zap.Int64("released_units", report.ReleasedUnits),
					zap.Int64("reallocated_units", report.ReallocatedUnits),
				)
			}
		}
	}
}
