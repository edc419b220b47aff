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

	billingapp "github.com/retailbill/backend/internal/application/billing"
	catalogapp "github.com/retailbill/backend/internal/application/catalog"
	quotationapp "github.com/retailbill/backend/internal/application/quotation"
	reminderapp "github.com/retailbill/backend/internal/application/reminder"
	"github.com/retailbill/backend/internal/domain/billing"
	"github.com/retailbill/backend/internal/domain/tax"
	"github.com/retailbill/backend/internal/infrastructure/auth"
	"github.com/retailbill/backend/internal/infrastructure/cache"
	"github.com/retailbill/backend/internal/infrastructure/config"
	"github.com/retailbill/backend/internal/infrastructure/event"
	"github.com/retailbill/backend/internal/infrastructure/logger"
	"github.com/retailbill/backend/internal/infrastructure/persistence"
	"github.com/retailbill/backend/internal/infrastructure/scheduler"
	"github.com/retailbill/backend/internal/interfaces/http/handler"
	"github.com/retailbill/backend/internal/interfaces/http/middleware"
	"github.com/retailbill/backend/internal/interfaces/http/router"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting Retail Billing Backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Database with SQL logs routed through zap
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Failed to close database", zap.Error(err))
		}
	}()

	// Redis-backed job guard serializes the reminder sweep across instances
	jobGuard, err := cache.NewJobGuard(cache.RedisConfig{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		log.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer func() {
		if err := jobGuard.Close(); err != nil {
			log.Error("Failed to close Redis connection", zap.Error(err))
		}
	}()

	// Repositories
	invoiceRepo := persistence.NewGormInvoiceRepository(db.DB)
	quotationRepo := persistence.NewGormQuotationRepository(db.DB)
	productRepo := persistence.NewGormProductRepository(db.DB)
	reminderRepo := persistence.NewGormReminderRepository(db.DB)
	sequenceRepo := persistence.NewGormSequenceRepository(db.DB)
	tenantProvider := persistence.NewGormTenantProvider(db.DB)

	// Post-commit event bus
	eventBus := event.NewInMemoryEventBus(log)

	// Application services
	calc := tax.NewGSTCalculator()

	invoiceService := billingapp.NewInvoiceService(invoiceRepo, sequenceRepo, calc,
		billingapp.WithEventPublisher(eventBus),
		billingapp.WithSummaryCache(cache.NewTTLCache[billing.InvoiceSummary](cfg.Cache.SummaryTTL)),
		billingapp.WithLogger(log),
	)
	quotationService := quotationapp.NewQuotationService(quotationRepo, invoiceRepo, sequenceRepo, calc,
		quotationapp.WithEventPublisher(eventBus),
		quotationapp.WithLogger(log),
	)
	productService := catalogapp.NewProductService(productRepo, log)
	reminderService := reminderapp.NewReminderService(reminderRepo, invoiceRepo,
		reminderapp.WithSweepGuard(jobGuard),
		reminderapp.WithLeadTime(cfg.Reminder.LeadTime),
		reminderapp.WithCooldown(cfg.Reminder.Cooldown),
		reminderapp.WithLogger(log),
	)

	// The catalog follows billing: every saved invoice upserts its line
	// items as catalog entries.
	catalogHook := catalogapp.NewInvoiceCatalogHook(productService, log)
	eventBus.Subscribe(catalogHook, catalogHook.EventTypes()...)

	// JWT
	jwtService := auth.NewJWTService(cfg.JWT)

	// HTTP handlers
	handlers := router.Handlers{
		System:    handler.NewSystemHandler(),
		Invoice:   handler.NewInvoiceHandler(invoiceService),
		Quotation: handler.NewQuotationHandler(quotationService),
		Product:   handler.NewProductHandler(productService),
		Reminder:  handler.NewReminderHandler(reminderService),
	}

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	middleware.SetupValidator()

	// Middleware stack in order: request id, panic recovery, request
	// logging, security headers, CORS, body limit, then JWT auth.
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())
	engine.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	engine.Use(middleware.BodyLimit(maxRequestBody))

	jwtConfig := middleware.JWTMiddlewareConfig{
		JWTService: jwtService,
		SkipPaths: []string{
			"/health",
			"/healthz",
			"/ready",
			"/api/v1/system/info",
		},
		Logger: log,
	}
	engine.Use(middleware.JWTAuthMiddlewareWithConfig(jwtConfig))

	// Readiness probe checks the database; liveness lives in the router
	engine.GET("/ready", readyHandler(db))

	r := router.New(engine, handlers, router.WithAPIVersion("v1"))
	r.Setup()

	// Background reminder sweep
	sweepScheduler := scheduler.NewReminderSweepScheduler(scheduler.SweepConfig{
		Enabled:       cfg.Reminder.SweepEnabled,
		Interval:      cfg.Reminder.SweepInterval,
		TenantTimeout: 2 * time.Minute,
	}, reminderService, tenantProvider, log)

	if cfg.Reminder.SweepEnabled {
		if err := sweepScheduler.Start(context.Background()); err != nil {
			log.Fatal("Failed to start reminder sweep scheduler", zap.Error(err))
		}
	}

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

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if cfg.Reminder.SweepEnabled {
		if err := sweepScheduler.Stop(ctx); err != nil {
			log.Warn("Reminder sweep scheduler did not stop cleanly", zap.Error(err))
		}
	}

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// maxRequestBody caps invoice payloads; the largest realistic invoice is
// well under this.
const maxRequestBody = 4 << 20 // 4 MiB

// readyHandler reports readiness, including database connectivity
func readyHandler(db *persistence.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqLog := logger.GetGinLogger(c)
		if err := db.Ping(); err != nil {
			reqLog.Warn("Readiness check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"time":     time.Now().Format(time.RFC3339),
				"database": "error",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"database": "ok",
		})
	}
}
