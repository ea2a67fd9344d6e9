// Package main provides the main entry point for the CallPilot campaign dialing engine
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/callpilot/callpilot/app/handlers"
	"github.com/callpilot/callpilot/app/middleware"
	"github.com/callpilot/callpilot/app/router"
	"github.com/callpilot/callpilot/app/scheduler"
	"github.com/callpilot/callpilot/app/services"
	businessflow "github.com/callpilot/callpilot/business_flow"
	"github.com/callpilot/callpilot/config"
	"github.com/callpilot/callpilot/models"
	"github.com/callpilot/callpilot/repository"
	"github.com/callpilot/callpilot/utils"
	"github.com/gofiber/fiber/v3"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Application represents the main application structure
type Application struct {
	router    *router.FiberRouter
	config    *config.ProductionConfig
	server    *fiber.App
	stopFuncs []func()
}

func main() {
	log.Println("Starting CallPilot application...")

	// Load production configuration
	cfg, err := config.LoadProductionConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize application
	app, err := initializeApplication(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	// Setup routes
	app.router.SetupRoutes()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Start server in goroutine
	go func() {
		address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		log.Printf("Server starting on %s", address)

		if err := app.server.Listen(address); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for shutdown signal
	<-sigChan
	log.Println("Shutting down gracefully...")

	// Stop background workers
	for _, fn := range app.stopFuncs {
		fn()
	}

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := app.server.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}

	log.Println("Server stopped")
}

// initializeDatabase initializes the database connection with connection pooling
func initializeDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, cfg.SSLMode)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Get underlying sql.DB for connection pooling configuration
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// Test the connection
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Printf("Database connection established with %d max open connections, %d max idle connections",
		cfg.MaxOpenConns, cfg.MaxIdleConns)

	return db, nil
}

// migrateDatabase applies the schema for all engine tables
func migrateDatabase(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Customer{},
		&models.Agent{},
		&models.Campaign{},
		&models.Contact{},
		&models.QueueEntry{},
		&models.Call{},
		&models.CallTranscript{},
		&models.Wallet{},
		&models.WalletTransaction{},
		&models.LeadInsight{},
	)
}

// initializeCache initializes the Cache client and verifies connectivity
func initializeCache(cfg config.CacheConfig) (*redis.Client, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	// Override DB if provided in config
	opt.DB = cfg.RedisDB

	rc := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Printf("Redis connection established to %s (db=%d)", cfg.RedisURL, cfg.RedisDB)
	return rc, nil
}

// startCacheHealthMonitor starts a background goroutine that periodically pings Redis
// to detect connectivity issues. The returned cancel function stops the monitor.
func startCacheHealthMonitor(parent context.Context, client *redis.Client, interval time.Duration) func() {
	monitorCtx, cancel := context.WithCancel(parent)
	if interval <= 0 {
		interval = 30 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-monitorCtx.Done():
				return
			case <-ticker.C:
				ctx, c := context.WithTimeout(context.Background(), 3*time.Second)
				if err := client.Ping(ctx).Err(); err != nil {
					log.Printf("Redis healthcheck failed: %v", err)
				}
				c()
			}
		}
	}()
	return cancel
}

// initializeCallPlacer selects the provider client based on configuration
func initializeCallPlacer(cfg *config.ProviderConfig) services.CallPlacer {
	if cfg.Domain == "mock" {
		return services.NewMockCallPlacer()
	}
	return services.NewCallPlacer(cfg)
}

// initializeApplication initializes the main application components
func initializeApplication(cfg *config.ProductionConfig) (*Application, error) {
	var stopFuncs []func()

	// Initialize database
	db, err := initializeDatabase(cfg.Database)
	if err != nil {
		return nil, err
	}
	if err := migrateDatabase(db); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	rc, err := initializeCache(cfg.Cache)
	if err != nil {
		return nil, err
	}
	if rc != nil {
		cancel := startCacheHealthMonitor(context.Background(), rc, cfg.Cache.DefaultTTL)
		stopFuncs = append(stopFuncs, cancel)
	}

	// Initialize repositories
	customerRepo := repository.NewCustomerRepository(db)
	agentRepo := repository.NewAgentRepository(db)
	campaignRepo := repository.NewCampaignRepository(db)
	contactRepo := repository.NewContactRepository(db)
	queueRepo := repository.NewQueueEntryRepository(db)
	callRepo := repository.NewCallRepository(db)
	transcriptRepo := repository.NewCallTranscriptRepository(db)
	walletRepo := repository.NewWalletRepository(db)
	insightRepo := repository.NewLeadInsightRepository(db)

	// Component loggers with file rotation
	loggerCfg := utils.RotatingLoggerConfig{
		Dir:        cfg.Logging.FilePath,
		MaxSizeMB:  cfg.Logging.MaxSize,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAge,
		Compress:   cfg.Logging.Compress,
	}
	if cfg.Logging.Output == "stdout" {
		loggerCfg.Dir = ""
	}
	schedulerLogger := utils.NewRotatingLogger(loggerCfg, "scheduler")
	dispatchLogger := utils.NewRotatingLogger(loggerCfg, "dispatch")
	eventLogger := utils.NewRotatingLogger(loggerCfg, "call-events")

	// Initialize services
	placer := initializeCallPlacer(&cfg.Provider)
	alertService := services.NewAlertService(services.NewMockNotifier(), cfg.Admin.AlertMobile, cfg.Admin.AlertEmail, eventLogger)

	tokenService, err := services.NewTokenService(cfg.JWT)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token service: %w", err)
	}
	log.Printf("Token service initialized with issuer: %s, audience: %s", cfg.JWT.Issuer, cfg.JWT.Audience)

	// Initialize flows. The dispatch flow feeds the scheduler; the scheduler is
	// the notifier that campaign and event flows wake on queue changes.
	dispatchFlow := businessflow.NewDispatchFlow(
		campaignRepo,
		customerRepo,
		agentRepo,
		queueRepo,
		callRepo,
		placer,
		cfg.Dispatch,
		cfg.Provider,
		dispatchLogger,
	)

	sched := scheduler.NewCampaignScheduler(
		campaignRepo,
		queueRepo,
		callRepo,
		dispatchFlow,
		cfg.Scheduler,
		schedulerLogger,
	)

	var notifier businessflow.Notifier = sched
	if !cfg.Scheduler.Enabled {
		notifier = businessflow.NopNotifier{}
	}

	campaignFlow := businessflow.NewCampaignFlow(
		campaignRepo,
		customerRepo,
		agentRepo,
		contactRepo,
		queueRepo,
		callRepo,
		insightRepo,
		db,
		rc,
		notifier,
		&cfg.Cache,
	)

	eventFlow := businessflow.NewCallEventFlow(
		callRepo,
		queueRepo,
		campaignRepo,
		transcriptRepo,
		walletRepo,
		insightRepo,
		alertService,
		notifier,
		cfg.Billing,
		eventLogger,
	)

	// Initialize handlers
	campaignHandler := handlers.NewCampaignHandler(campaignFlow)
	webhookHandler := handlers.NewWebhookHandler(eventFlow, cfg.Provider.WebhookSecret)
	schedulerHandler := handlers.NewSchedulerHandler(sched)

	// Initialize auth middleware
	authMiddleware := middleware.NewAuthMiddleware(tokenService)

	// Initialize router
	appRouter := router.NewFiberRouter(
		cfg,
		campaignHandler,
		webhookHandler,
		schedulerHandler,
		authMiddleware,
	)

	if cfg.Scheduler.Enabled {
		stopScheduler := sched.Start(context.Background())
		stopFuncs = append(stopFuncs, stopScheduler)

		reconciler := scheduler.NewReconciler(callRepo, queueRepo, campaignRepo, alertService, cfg.Scheduler, schedulerLogger)
		stopReconciler := reconciler.Start(context.Background())
		stopFuncs = append(stopFuncs, stopReconciler)
	}

	// Create application struct from FiberRouter
	fiberRouter := appRouter.(*router.FiberRouter)
	application := &Application{
		router:    fiberRouter,
		config:    cfg,
		server:    fiberRouter.GetApp(),
		stopFuncs: stopFuncs,
	}

	return application, nil
}
