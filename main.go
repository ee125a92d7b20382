// Package main provides the main entry point for the Yatagarasu mailing platform
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/amirphl/Yatagarasu/app/handlers"
	"github.com/amirphl/Yatagarasu/app/middleware"
	"github.com/amirphl/Yatagarasu/app/router"
	"github.com/amirphl/Yatagarasu/app/scheduler"
	"github.com/amirphl/Yatagarasu/app/services"
	businessflow "github.com/amirphl/Yatagarasu/business_flow"
	"github.com/amirphl/Yatagarasu/config"
	_ "github.com/amirphl/Yatagarasu/docs"
	"github.com/amirphl/Yatagarasu/repository"
	"github.com/gofiber/fiber/v3"
	"github.com/redis/go-redis/v9"
	"gopkg.in/natefinch/lumberjack.v2"
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
	log.Println("Starting Yatagarasu application...")

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

	// Configure connection pooling
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

// initializeMailer selects the delivery backend from configuration
func initializeMailer(cfg *config.ProductionConfig) services.Mailer {
	if cfg.SMTP.Mock {
		log.Println("Mailer running in mock mode, deliveries are logged only")
		return services.NewMockMailer()
	}
	return services.NewSMTPMailer(cfg.SMTP)
}

// newDispatchLogger writes dispatch output to stdout and a rotating file
func newDispatchLogger(cfg config.LoggingConfig) *log.Logger {
	if cfg.DispatchLogPath == "" {
		return log.Default()
	}
	rotating := &lumberjack.Logger{
		Filename:   cfg.DispatchLogPath,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
	}
	return log.New(io.MultiWriter(os.Stdout, rotating), "dispatch ", log.LstdFlags|log.LUTC)
}

// initializeApplication initializes the main application components
func initializeApplication(cfg *config.ProductionConfig) (*Application, error) {
	var stopFuncs []func()

	// Initialize database
	db, err := initializeDatabase(cfg.Database)
	if err != nil {
		return nil, err
	}

	rc, err := initializeCache(cfg.Cache)
	if err != nil {
		return nil, err
	}
	if rc != nil {
		cancel := startCacheHealthMonitor(context.Background(), rc, 30*time.Second)
		stopFuncs = append(stopFuncs, cancel)
	}

	// Initialize repositories
	customerRepo := repository.NewCustomerRepository(db)
	sessionRepo := repository.NewCustomerSessionRepository(db)
	verificationRepo := repository.NewEmailVerificationRepository(db)
	auditRepo := repository.NewAuditLogRepository(db)
	recipientRepo := repository.NewRecipientRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	campaignRepo := repository.NewCampaignRepository(db)
	attemptRepo := repository.NewDeliveryAttemptRepository(db)
	runRepo := repository.NewDispatchRunRepository(db)

	// Initialize services
	mailer := initializeMailer(cfg)

	var captchaSvc services.CaptchaService
	if cfg.Captcha.Enabled {
		captchaSvc, err = services.NewCaptchaServiceRotate(cfg.Captcha.TTL, 15, 300)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize captcha service: %w", err)
		}
	}

	// Initialize token service
	tokenService, err := services.NewTokenService(
		cfg.JWT.AccessTokenTTL,
		cfg.JWT.RefreshTokenTTL,
		cfg.JWT.Issuer,
		cfg.JWT.Audience,
		cfg.JWT.UseRSAKeys,
		cfg.JWT.PrivateKey,
		cfg.JWT.PublicKey,
		cfg.JWT.SecretKey,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token service: %w", err)
	}

	// Log that services are initialized
	log.Printf("Token service initialized with issuer: %s, audience: %s", cfg.JWT.Issuer, cfg.JWT.Audience)

	dispatchLogger := newDispatchLogger(cfg.Logging)

	// Initialize flows
	signupFlow := businessflow.NewSignupFlow(
		customerRepo,
		verificationRepo,
		sessionRepo,
		auditRepo,
		tokenService,
		mailer,
		db,
	)

	loginFlow := businessflow.NewLoginFlow(
		customerRepo,
		sessionRepo,
		verificationRepo,
		auditRepo,
		tokenService,
		mailer,
		db,
	)

	recipientFlow := businessflow.NewRecipientFlow(
		recipientRepo,
		customerRepo,
		auditRepo,
		db,
	)

	messageFlow := businessflow.NewMessageFlow(
		messageRepo,
		campaignRepo,
		customerRepo,
		auditRepo,
		db,
	)

	campaignFlow := businessflow.NewCampaignFlow(
		campaignRepo,
		messageRepo,
		recipientRepo,
		attemptRepo,
		customerRepo,
		auditRepo,
		&cfg.Cache,
		rc,
		db,
	)

	dispatchFlow := businessflow.NewDispatchFlow(
		campaignRepo,
		attemptRepo,
		runRepo,
		customerRepo,
		auditRepo,
		mailer,
		&cfg.Cache,
		rc,
		db,
		dispatchLogger,
	)

	profileFlow := businessflow.NewProfileFlow(customerRepo, auditRepo, "data/avatars", db)

	managementFlow := businessflow.NewCustomerManagementFlow(
		customerRepo,
		sessionRepo,
		auditRepo,
		db,
	)

	reportFlow := businessflow.NewReportFlow(campaignRepo, attemptRepo, customerRepo)

	statsFlow := businessflow.NewStatsFlow(
		campaignRepo,
		recipientRepo,
		attemptRepo,
		customerRepo,
		&cfg.Cache,
		rc,
	)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(signupFlow, loginFlow, captchaSvc)
	recipientHandler := handlers.NewRecipientHandler(recipientFlow)
	messageHandler := handlers.NewMessageHandler(messageFlow)
	campaignHandler := handlers.NewCampaignHandler(campaignFlow, dispatchFlow, reportFlow)
	profileHandler := handlers.NewProfileHandler(profileFlow)
	managementHandler := handlers.NewManagementHandler(managementFlow)
	statsHandler := handlers.NewStatsHandler(statsFlow)

	// Initialize auth middleware
	authMiddleware := middleware.NewAuthMiddleware(tokenService, customerRepo)

	// Initialize router
	appRouter := router.NewFiberRouter(
		authHandler,
		recipientHandler,
		messageHandler,
		campaignHandler,
		profileHandler,
		managementHandler,
		statsHandler,
		authMiddleware,
		cfg.Metrics.Enabled,
	)

	if cfg.Scheduler.Enabled {
		// Start dispatch scheduler
		sched := scheduler.NewDispatchScheduler(dispatchFlow, dispatchLogger, cfg.Scheduler.Interval)
		stopScheduler := sched.Start(context.Background())
		stopFuncs = append(stopFuncs, stopScheduler)
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
