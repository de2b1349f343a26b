package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	ledgerapp "github.com/erp/ledger/internal/application/ledger"
	"github.com/erp/ledger/internal/domain/shared/valueobject"
	"github.com/erp/ledger/internal/infrastructure/auth"
	"github.com/erp/ledger/internal/infrastructure/cache"
	"github.com/erp/ledger/internal/infrastructure/config"
	"github.com/erp/ledger/internal/infrastructure/event"
	"github.com/erp/ledger/internal/infrastructure/logger"
	"github.com/erp/ledger/internal/infrastructure/persistence"
	"github.com/erp/ledger/internal/infrastructure/printing"
	"github.com/erp/ledger/internal/infrastructure/scheduler"
	"github.com/erp/ledger/internal/infrastructure/storage"
	"github.com/erp/ledger/internal/infrastructure/telemetry"
	"github.com/erp/ledger/internal/interfaces/http/handler"
	"github.com/erp/ledger/internal/interfaces/http/middleware"
	"github.com/erp/ledger/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	_ "github.com/erp/ledger/docs"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// version is overridden at build time with -ldflags "-X main.version=..."
var version = "1.0.0"

//	@title			ERP Ledger API
//	@version		1.0
//	@description	Cobranza escolar: recibos, pagos y aplicación de pagos a recibos.
//	@termsOfService	http://swagger.io/terms/

//	@contact.name	API Support
//	@contact.email	support@erp.example.com

//	@license.name	Apache 2.0
//	@license.url	http://www.apache.org/licenses/LICENSE-2.0.html

//	@host		localhost:8080
//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

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
		Service:    cfg.Telemetry.ServiceName,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	rootCtx, stop := context.WithCancel(context.Background())
	defer stop()

	// Telemetry: traces, metrics, logs and continuous profiling
	tel := telemetry.Start(rootCtx, telemetry.Config{
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		Insecure:          cfg.Telemetry.Insecure,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    version,
		Environment:       cfg.App.Env,
		Traces:            cfg.Telemetry.Enabled,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		Metrics:           cfg.Telemetry.MetricsEnabled,
		MetricsInterval:   cfg.Telemetry.MetricsInterval,
		Logs:              cfg.Telemetry.LogsEnabled,
		LogLevel:          zapcore.InfoLevel,
	}, telemetry.ProfilerConfig{
		Enabled:         cfg.Profiling.Enabled,
		ServerAddress:   cfg.Profiling.ServerAddress,
		ApplicationName: cfg.Telemetry.ServiceName,
		AuthUser:        cfg.Profiling.AuthUser,
		AuthToken:       cfg.Profiling.AuthToken,
		ProfileTypes:    cfg.Profiling.ProfileTypes,
		Tags: map[string]string{
			"env":      cfg.App.Env,
			"currency": cfg.Ledger.Currency,
		},
	}, log)
	defer func() {
		if err := tel.Shutdown(context.Background()); err != nil {
			log.Warn("Telemetry shutdown incomplete", zap.Error(err))
		}
	}()
	log = tel.Logs.Bridge(log, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting ERP Ledger",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("currency", cfg.Ledger.Currency),
	)

	// Database
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level),
		logger.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh))
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if cfg.Database.Driver == config.DriverSQLite {
		// postgres schemas are owned by cmd/migrate
		if err := db.AutoMigrate(rootCtx); err != nil {
			log.Fatal("Failed to migrate sqlite schema", zap.Error(err))
		}
	}
	log.Info("Database connected successfully", zap.String("driver", db.Driver()))

	dbSystem := "postgresql"
	if cfg.Database.Driver == config.DriverSQLite {
		dbSystem = "sqlite"
	}
	if err := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
		Enabled:          cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		LogFullSQL:       cfg.Telemetry.DBLogFullSQL,
		SlowQueryThresh:  cfg.Telemetry.DBSlowQueryThresh,
		DBSystem:         dbSystem,
		WithoutVariables: !cfg.Telemetry.DBLogFullSQL,
	}, log).RegisterOtelGorm(db.DB); err != nil {
		log.Warn("Database tracing unavailable", zap.Error(err))
	}
	dbMetrics, err := telemetry.RegisterDBMetrics(db.DB, tel.Meter, telemetry.DBMetricsConfig{
		Enabled:            cfg.Telemetry.MetricsEnabled,
		SlowQueryThreshold: cfg.Telemetry.DBSlowQueryThresh,
		PoolStatsInterval:  15 * time.Second,
	}, log)
	if err != nil {
		log.Warn("Database metrics unavailable", zap.Error(err))
	}
	if dbMetrics != nil {
		dbMetrics.StartPoolStatsCollection(rootCtx)
		defer dbMetrics.Stop()
	}

	// Redis backs receipt locks and idempotency keys; memory is the fallback outside production
	cacheFactory := cache.NewFactory(cfg.Redis,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(cfg.App.Env != "production"),
		cache.WithLockTTL(cfg.Ledger.LockTTL),
	)
	if err := cacheFactory.Connect(rootCtx); err != nil {
		log.Fatal("Failed to connect to redis", zap.Error(err))
	}
	defer func() {
		if err := cacheFactory.Close(); err != nil {
			log.Error("Error closing cache", zap.Error(err))
		}
	}()
	locker := cacheFactory.ReceiptLocker()
	idempotencyStore := cacheFactory.IdempotencyStore()

	// Repositories
	receiptRepo := persistence.NewGormReceiptRepository(db.DB)
	paymentRepo := persistence.NewGormPaymentRepository(db.DB)
	allocationRepo := persistence.NewGormAllocationRepository(db.DB)
	txScope := persistence.NewGormTransactionScope(db.DB)

	// Ledger metrics
	var ledgerMetrics ledgerapp.LedgerMetrics = ledgerapp.NopMetrics{}
	if tel.Meter.IsEnabled() {
		lm, err := telemetry.NewLedgerMetrics(telemetry.LedgerMetricsConfig{
			Meter:             tel.Meter.Meter("erp-ledger"),
			Logger:            log,
			PortfolioProvider: telemetry.NewGormPortfolioMetricsProvider(db.DB),
		})
		if err != nil {
			log.Warn("Ledger metrics unavailable", zap.Error(err))
		} else {
			lm.StartPeriodicCollection(rootCtx, cfg.Telemetry.MetricsInterval)
			defer lm.Stop()
			ledgerMetrics = lm
		}
	}

	// Event bus with the audit trail subscriber
	eventBus := event.NewInMemoryEventBus(log)
	audit := ledgerapp.NewAuditHandler(log, ledgerMetrics)
	eventBus.Subscribe(audit, audit.EventTypes()...)
	if err := eventBus.Start(rootCtx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		_ = eventBus.Stop(context.Background())
	}()

	// Application services
	currency, err := valueobject.ParseCurrency(cfg.Ledger.Currency)
	if err != nil {
		log.Fatal("Invalid ledger currency", zap.Error(err))
	}
	engine := ledgerapp.NewAllocationEngine(receiptRepo, paymentRepo, allocationRepo, txScope, locker,
		ledgerapp.EngineConfig{
			Currency:    currency,
			LockTimeout: cfg.Ledger.LockTimeout,
			Language:    cfg.Ledger.Locale,
		}, log)
	engine.SetEventPublisher(eventBus)
	engine.SetMetrics(ledgerMetrics)

	paymentService := ledgerapp.NewPaymentService(paymentRepo, allocationRepo, engine, locker, log)
	paymentService.SetEventPublisher(eventBus)

	receiptService := ledgerapp.NewReceiptService(receiptRepo, allocationRepo, txScope, locker, cfg.Ledger.LockTimeout, log)
	receiptService.SetEventPublisher(eventBus)
	if cfg.Printing.Enabled {
		paper, err := printing.ParsePaperSize(cfg.Printing.PaperSize)
		if err != nil {
			log.Fatal("Invalid printing paper size", zap.Error(err))
		}
		renderer := printing.NewChromedpRenderer(printing.ChromedpConfig{
			DefaultTimeout: cfg.Printing.Timeout,
			RemoteURL:      cfg.Printing.ChromeURL,
			NoSandbox:      cfg.Printing.NoSandbox,
			Logger:         log,
		})
		defer func() {
			_ = renderer.Close()
		}()
		receiptService.SetPrinter(printing.NewReceiptPrinter(renderer, printing.ReceiptPrinterConfig{
			Issuer:    cfg.Printing.Issuer,
			PaperSize: paper,
			Language:  cfg.Ledger.Locale,
			Currency:  currency,
		}, log))
		log.Info("Receipt printing enabled",
			zap.String("paper_size", string(paper)),
			zap.Bool("remote_chrome", cfg.Printing.ChromeURL != ""),
		)
	}

	repairService := ledgerapp.NewRepairService(receiptRepo, txScope, locker, cfg.Ledger.LockTimeout, cfg.Ledger.Locale, log)
	repairService.SetEventPublisher(eventBus)
	repairService.SetMetrics(ledgerMetrics)

	reportingService := ledgerapp.NewReportingService(txScope, cfg.Ledger.Currency, log)
	archiveStore, err := storage.NewArchiveStore(rootCtx, cfg.Storage, log)
	if err != nil {
		log.Fatal("Failed to initialize archive storage", zap.Error(err))
	}
	if archiveStore != nil {
		reportingService.SetArchiveStore(archiveStore)
	}

	// Maintenance scheduler: repair, overdue refresh and the daily cash cut archive
	if cfg.Scheduler.Enabled {
		var archiver scheduler.CashCutArchiver
		if archiveStore != nil {
			archiver = reportingService
		}
		executor := scheduler.NewLedgerExecutor(repairService, receiptService, archiver, log)
		jobScheduler := scheduler.NewScheduler(scheduler.Config{
			MaxConcurrentJobs: cfg.Scheduler.MaxConcurrentJobs,
			JobTimeout:        cfg.Scheduler.JobTimeout,
			RetryAttempts:     cfg.Scheduler.RetryAttempts,
			RetryDelay:        cfg.Scheduler.RetryDelay,
		}, executor, log)
		if err := jobScheduler.Start(rootCtx); err != nil {
			log.Fatal("Failed to start scheduler", zap.Error(err))
		}
		defer func() {
			if err := jobScheduler.Stop(context.Background()); err != nil {
				log.Error("Error stopping scheduler", zap.Error(err))
			}
		}()

		archiveHour, archiveMinute := cfg.Scheduler.DailyArchiveAt()
		trigger := scheduler.NewCronTrigger(scheduler.CronTriggerConfig{
			RepairInterval:         cfg.Scheduler.RepairInterval,
			OverdueRefreshInterval: cfg.Scheduler.OverdueRefreshInterval,
			ArchiveEnabled:         archiver != nil,
			ArchiveHour:            archiveHour,
			ArchiveMinute:          archiveMinute,
			CheckInterval:          time.Minute,
			RetryAttempts:          cfg.Scheduler.RetryAttempts,
		}, jobScheduler, log)
		if err := trigger.Start(rootCtx); err != nil {
			log.Fatal("Failed to start cron trigger", zap.Error(err))
		}
		defer func() {
			_ = trigger.Stop(context.Background())
		}()
		log.Info("Maintenance scheduler started",
			zap.Int("max_concurrent_jobs", cfg.Scheduler.MaxConcurrentJobs),
			zap.Duration("repair_interval", cfg.Scheduler.RepairInterval),
			zap.Duration("overdue_refresh_interval", cfg.Scheduler.OverdueRefreshInterval),
			zap.String("daily_archive_time", cfg.Scheduler.DailyArchiveTime),
		)
	}

	// HTTP handlers
	systemHandler := handler.NewSystemHandler(version, map[string]handler.Pinger{
		"database": db,
		"redis":    cacheFactory,
	})
	handlers := router.LedgerHandlers{
		Payments: handler.NewPaymentHandler(paymentService),
		Receipts: handler.NewReceiptHandler(receiptService, repairService),
		Reports:  handler.NewReportHandler(reportingService),
		System:   systemHandler,
	}

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup validation
	middleware.SetupValidator()

	httpEngine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := httpEngine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Apply middleware stack in order:
	// 1. RequestID - Generate/propagate request ID
	// 2. Tracing - Root span for the request, then request attributes on it
	// 3. Logger - Request-scoped logger with request and trace ids
	// 4. Recovery - Catch panics
	// 5. Metrics and profiling labels
	// 6. Security headers, CORS, body limit and timeout
	// 7. RateLimit - Apply rate limiting (if enabled)
	probePaths := []string{"/health", "/ready"}
	httpEngine.Use(middleware.RequestID())
	httpEngine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Enabled:     cfg.Telemetry.Enabled,
		SkipPaths:   probePaths,
	}))
	httpEngine.Use(middleware.TracingAttributeInjector())
	httpEngine.Use(logger.GinMiddleware(log))
	httpEngine.Use(logger.Recovery(log))
	httpEngine.Use(middleware.SpanErrorMarker())
	httpEngine.Use(middleware.HTTPMetrics(middleware.HTTPMetricsConfig{
		MeterProvider: tel.Meter,
		Enabled:       cfg.Telemetry.MetricsEnabled,
	}))
	if cfg.Profiling.Enabled {
		httpEngine.Use(middleware.Profiling())
	}
	httpEngine.Use(middleware.Secure())
	httpEngine.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "Idempotent-Replayed", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	httpEngine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))
	if cfg.HTTP.WriteTimeout > 0 {
		httpEngine.Use(middleware.Timeout(cfg.HTTP.WriteTimeout))
	}
	if cfg.HTTP.RateLimitEnabled {
		rateLimiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		go rateLimiter.Run(rootCtx)
		httpEngine.Use(middleware.RateLimit(rateLimiter))
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}

	// Probes stay outside API versioning and authentication
	httpEngine.GET("/health", systemHandler.Health)
	httpEngine.GET("/ready", systemHandler.Ready)

	// Operator authentication. With JWT disabled every route is open except
	// the administrative ones, which always require the admin role.
	var jwtMiddleware gin.HandlerFunc
	if cfg.JWT.Enabled {
		jwtMiddleware = middleware.JWTAuthMiddlewareWithConfig(middleware.JWTMiddlewareConfig{
			Validator: auth.NewJWTService(cfg.JWT),
			SkipPaths: []string{"/api/v1/system/info"},
			Logger:    log,
		})
	} else {
		log.Warn("JWT authentication disabled; administrative routes are unreachable")
	}

	// Swagger documentation endpoint
	httpEngine.GET("/swagger/*any",
		middleware.SwaggerProtection(middleware.SwaggerConfig{
			Enabled:     cfg.Swagger.Enabled,
			RequireAuth: cfg.Swagger.RequireAuth,
			AllowedIPs:  cfg.Swagger.AllowedIPs,
		}, jwtMiddleware),
		ginSwagger.WrapHandler(swaggerFiles.Handler),
	)

	api := router.NewRouter(httpEngine, router.WithAPIVersion("v1")).
		Register(router.LedgerGroups(handlers, router.LedgerMiddleware{
			Idempotency: middleware.Idempotency(middleware.IdempotencyConfig{
				Store: idempotencyStore,
				TTL:   cfg.Ledger.IdempotencyTTL,
			}),
			Admin: middleware.RequireRole(middleware.RoleAdmin),
		})...)
	if jwtMiddleware != nil {
		api.Use(jwtMiddleware)
	}
	api.Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        httpEngine,
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

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	stop()

	log.Info("Server exited gracefully")
}
