package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloudpos/backend/internal/infrastructure/auth"
	"github.com/cloudpos/backend/internal/infrastructure/cache"
	"github.com/cloudpos/backend/internal/infrastructure/config"
	"github.com/cloudpos/backend/internal/infrastructure/event"
	"github.com/cloudpos/backend/internal/infrastructure/logger"
	"github.com/cloudpos/backend/internal/infrastructure/persistence"
	"github.com/cloudpos/backend/internal/infrastructure/telemetry"
	"github.com/cloudpos/backend/internal/interfaces/http/middleware"
	"github.com/cloudpos/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	_ "github.com/cloudpos/backend/docs"
)

//	@title			Cloud POS API
//	@version		1.0
//	@description	Multi-tenant point of sale backend: catalog, stock, checkout, customers, finance and billing.

//	@contact.name	API Support
//	@contact.email	support@cloudpos.example.com

//	@license.name	Apache 2.0
//	@license.url	http://www.apache.org/licenses/LICENSE-2.0.html

//	@host		localhost:8080
//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Warn and above also go to Rollbar when a token is configured
	var rollbarCore zapcore.Core
	if cfg.Rollbar.Token != "" {
		host, _ := os.Hostname()
		env := cfg.Rollbar.Environment
		if env == "" {
			env = cfg.App.Env
		}
		rb := logger.NewRollbarClient(cfg.Rollbar.Token, env, cfg.App.Version, host)
		defer rb.Close()
		rollbarCore = logger.NewRollbarCore(rb, zapcore.WarnLevel)
	}

	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	}, logger.WithCore(rollbarCore), logger.WithName(cfg.App.Name))
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting Cloud POS",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", cfg.App.Version),
	)

	ctx := context.Background()

	providers, err := telemetry.Setup(ctx, cfg.Telemetry, cfg.App.Version, log)
	if err != nil {
		log.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down telemetry", zap.Error(err))
		}
	}()
	if cfg.Telemetry.LogsEnabled {
		if core := providers.LogCore(logger.ParseLevel(cfg.Log.Level)); core != nil {
			log = log.WithOptions(zap.WrapCore(func(c zapcore.Core) zapcore.Core {
				return zapcore.NewTee(c, core)
			}))
		}
	}
	if cfg.Telemetry.PyroscopeEnabled {
		profiler, err := telemetry.StartProfiler(cfg.Telemetry.ServiceName, cfg.Telemetry.PyroscopeAddress, log)
		if err != nil {
			log.Warn("Continuous profiling unavailable", zap.Error(err))
		} else {
			providers.EnableSpanProfiles()
			defer func() { _ = profiler.Stop() }()
		}
	}

	var metrics *telemetry.POSMetrics
	if cfg.Telemetry.Enabled && cfg.Telemetry.MetricsEnabled {
		metrics, err = telemetry.NewPOSMetrics(providers.Meter("cloudpos"))
		if err != nil {
			log.Warn("POS metrics unavailable", zap.Error(err))
			metrics = nil
		}
	}

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level),
		logger.WithSlowThreshold(time.Duration(cfg.Database.SlowQueryMs)*time.Millisecond))
	db, err := persistence.NewDatabase(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled {
		if err := telemetry.InstrumentGorm(db.DB, telemetry.DBTracingOptions{
			LogFullSQL: cfg.Telemetry.DBLogFullSQL && !cfg.App.IsProduction(),
		}, log); err != nil {
			log.Warn("Database tracing unavailable", zap.Error(err))
		}
	}
	log.Info("Database connected successfully")

	var redisClient redis.UniversalClient
	if c := cache.Connect(ctx, cfg.Redis, log); c != nil {
		redisClient = c
		defer func() { _ = c.Close() }()
	}

	idempotency := cache.NewIdempotencyStore(redisClient, cfg.Idempotency)
	if closer, ok := idempotency.(interface{ Close() error }); ok {
		defer func() { _ = closer.Close() }()
	}

	var blacklist auth.TokenBlacklist = auth.NewInMemoryTokenBlacklist()
	if redisClient != nil {
		blacklist = auth.NewFallbackTokenBlacklist(auth.NewRedisTokenBlacklist(redisClient), log)
	}
	jwtService := auth.NewJWTService(cfg.JWT)

	eventBus := event.NewInMemoryEventBus(log)

	app, err := buildApplication(ctx, dependencies{
		cfg:         cfg,
		log:         log,
		db:          db,
		redis:       redisClient,
		bus:         eventBus,
		idempotency: idempotency,
		jwt:         jwtService,
		blacklist:   blacklist,
		metrics:     metrics,
	})
	if err != nil {
		log.Fatal("Failed to build application", zap.Error(err))
	}
	defer app.close(log)

	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		if err := eventBus.Stop(context.Background()); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()

	if err := app.scheduler.Start(ctx); err != nil {
		log.Fatal("Failed to start scheduler", zap.Error(err))
	}
	defer func() {
		if err := app.scheduler.Stop(context.Background()); err != nil {
			log.Error("Error stopping scheduler", zap.Error(err))
		}
	}()

	if cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	opts := router.Options{
		HTTP:           cfg.HTTP,
		Swagger:        cfg.Swagger,
		RequestTimeout: cfg.HTTP.WriteTimeout,
		JWT:            middleware.DefaultJWTConfig(jwtService, blacklist, log),
		WriteGate:      app.quota,
		Idempotency:    idempotency,
		IdempotencyTTL: cfg.Idempotency.TTL,
		Logger:         log,
	}
	if cfg.Telemetry.Enabled {
		opts.ServiceName = cfg.Telemetry.ServiceName
	}
	if cfg.HTTP.RateLimitEnabled {
		opts.RateLimiter = newRateLimiter(cfg.HTTP, redisClient)
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
			zap.Bool("shared", redisClient != nil),
		)
	}
	engine := router.NewEngine(opts, app.handlers)

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

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
		return
	}
	log.Info("Server exited gracefully")
}

// newRateLimiter shares counters through Redis when available so every
// instance enforces the same budget
func newRateLimiter(cfg config.HTTPConfig, client redis.UniversalClient) middleware.Limiter {
	if client != nil {
		return middleware.NewRedisRateLimiter(client, cfg.RateLimitRequests, cfg.RateLimitWindow)
	}
	return middleware.NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow)
}
