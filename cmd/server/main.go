package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	appfinance "github.com/dealerdesk/backend/internal/application/finance"
	"github.com/dealerdesk/backend/internal/domain/finance"
	"github.com/dealerdesk/backend/internal/infrastructure/auth"
	"github.com/dealerdesk/backend/internal/infrastructure/cache"
	"github.com/dealerdesk/backend/internal/infrastructure/config"
	"github.com/dealerdesk/backend/internal/infrastructure/logger"
	"github.com/dealerdesk/backend/internal/infrastructure/persistence"
	"github.com/dealerdesk/backend/internal/infrastructure/scheduler"
	"github.com/dealerdesk/backend/internal/infrastructure/telemetry"
	"github.com/dealerdesk/backend/internal/infrastructure/vehicle"
	"github.com/dealerdesk/backend/internal/interfaces/http/handler"
	"github.com/dealerdesk/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// version is stamped at build time with -ldflags "-X main.version=..."
var version = "dev"

const vehicleStreamMaxLen = 10000

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(logger.FromAppConfig(cfg))
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting DealerDesk finance backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tp, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    version,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}
	defer func() {
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level),
		logger.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh),
	)
	db, err := persistence.NewDatabase(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected", zap.String("driver", cfg.Database.Driver))

	if cfg.Database.Driver == "sqlite" {
		if err := persistence.AutoMigrate(db.DB); err != nil {
			log.Fatal("Failed to create sqlite schema", zap.Error(err))
		}
	} else {
		log.Info("Postgres schema is managed by the migrate command")
	}

	if err := telemetry.RegisterDBTracing(db.DB, telemetry.DBTracingConfig{
		Enabled:         cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		LogFullSQL:      cfg.Telemetry.DBLogFullSQL && !cfg.App.IsProduction(),
		SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
		DBSystem:        cfg.Database.Driver,
	}, log); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}

	factory := cache.NewFactory(cfg.Redis,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(!cfg.App.IsProduction()),
	)
	redisClient, err := factory.Connect(ctx)
	if err != nil {
		log.Fatal("Failed to connect to redis", zap.Error(err))
	}
	if redisClient != nil {
		defer func() {
			_ = redisClient.Close()
		}()
	}

	var vehicles finance.VehicleStatusUpdater = vehicle.NewLoggingStatusUpdater(log)
	if redisClient != nil && cfg.Redis.VehicleStream != "" {
		vehicles = vehicle.NewRedisStatusPublisher(redisClient, cfg.Redis.VehicleStream, vehicleStreamMaxLen, log)
	}

	financeCfg, err := appfinance.ConfigFrom(cfg.Finance)
	if err != nil {
		log.Fatal("Invalid finance configuration", zap.Error(err))
	}
	services := appfinance.NewServices(appfinance.Dependencies{
		Scope:  persistence.NewGormTransactionScope(db.DB),
		Logger: log,
		Config: financeCfg,
	}, vehicles, factory.Locker(redisClient))

	if cfg.Scheduler.Enabled {
		stop, err := startScheduler(ctx, cfg.Scheduler, services, db, log)
		if err != nil {
			log.Fatal("Failed to start finance scheduler", zap.Error(err))
		}
		defer stop()
	}

	sqlDB, err := db.DB.DB()
	if err != nil {
		log.Fatal("Failed to access sql database", zap.Error(err))
	}
	checks := map[string]handler.Pinger{"database": sqlDB}
	if redisClient != nil {
		checks["redis"] = redisPinger{redisClient}
	}
	health := handler.NewHealthHandler(cfg.App.Name, checks)

	if cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	engine, err := router.NewEngine(router.EngineConfig{
		Config: cfg,
		Logger: log,
		Tokens: auth.NewJWTService(cfg.JWT),
	}, router.NewHandlers(services, health, log))
	if err != nil {
		log.Fatal("Failed to build HTTP engine", zap.Error(err))
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
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, done := context.WithTimeout(context.Background(), 30*time.Second)
	defer done()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	log.Info("Server exited gracefully")
}

// startScheduler runs the overdue and reconciliation sweeps; the returned
// func stops the trigger before the workers
func startScheduler(ctx context.Context, sc config.SchedulerConfig, services *appfinance.Services, db *persistence.Database, log *zap.Logger) (func(), error) {
	executor := scheduler.NewFinanceExecutor(services.Invoices, services.Reconciliation, log)
	sched := scheduler.NewScheduler(scheduler.SchedulerConfig{
		MaxConcurrentJobs: sc.MaxConcurrentJobs,
		JobTimeout:        sc.JobTimeout,
		RetryAttempts:     sc.RetryAttempts,
		RetryDelay:        sc.RetryDelay,
	}, executor, log)
	if err := sched.Start(ctx); err != nil {
		return nil, err
	}

	kinds := []scheduler.JobKind{scheduler.JobKindOverdueRefresh}
	if sc.AutoReconcile {
		kinds = append(kinds, scheduler.JobKindAutoReconcile)
	}
	trigger := scheduler.NewIntervalTrigger(sc.Interval, sched, persistence.NewGormTenantDirectory(db.DB), log, kinds...)
	if err := trigger.Start(ctx); err != nil {
		_ = sched.Stop(ctx)
		return nil, err
	}

	return func() {
		stopCtx, done := context.WithTimeout(context.Background(), sc.JobTimeout+5*time.Second)
		defer done()
		if err := trigger.Stop(stopCtx); err != nil {
			log.Warn("Error stopping finance sweep trigger", zap.Error(err))
		}
		if err := sched.Stop(stopCtx); err != nil {
			log.Warn("Error stopping finance scheduler", zap.Error(err))
		}
	}, nil
}

type redisPinger struct {
	client *redis.Client
}

func (p redisPinger) PingContext(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}
