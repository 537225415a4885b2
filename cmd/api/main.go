package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/clipscommerce/socialscan/internal/analysis"
	"github.com/clipscommerce/socialscan/internal/api"
	"github.com/clipscommerce/socialscan/internal/history"
	"github.com/clipscommerce/socialscan/internal/orchestrator"
	"github.com/clipscommerce/socialscan/internal/platform"
	"github.com/clipscommerce/socialscan/internal/scancache"
	"github.com/clipscommerce/socialscan/pkg/config"
	"github.com/clipscommerce/socialscan/pkg/logging"
	"github.com/clipscommerce/socialscan/pkg/metrics"
	"github.com/clipscommerce/socialscan/pkg/resilience"
	"github.com/clipscommerce/socialscan/pkg/tracing"
	"github.com/clipscommerce/socialscan/pkg/types"
)

func main() {
	// .env is optional; real deployments configure via the environment.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := logging.NewLogger(&logging.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		Output:      cfg.Logging.Output,
		ServiceName: "socialscan",
	})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	logging.SetGlobalLogger(logger)

	tracer, err := tracing.NewService(&tracing.Config{
		ServiceName:    "socialscan",
		ServiceVersion: "1.0.0",
		Environment:    cfg.Tracing.Environment,
		JaegerEndpoint: cfg.Tracing.JaegerEndpoint,
		SamplingRate:   cfg.Tracing.SamplingRate,
		Enabled:        cfg.Tracing.Enabled,
	})
	if err != nil {
		logger.Error("Failed to initialize tracing", "error", err.Error())
		os.Exit(1)
	}

	healthChecks := make(map[string]api.HealthChecker)

	// Cache backend: Redis when configured, otherwise in-process.
	var store scancache.Store
	if cfg.Redis.Addr != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		redisStore, err := scancache.NewRedisStore(ctx, scancache.RedisConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			DefaultTTL: cfg.Cache.PostsTTL,
		})
		cancel()
		if err != nil {
			logger.Error("Failed to connect to Redis", "error", err.Error())
			os.Exit(1)
		}
		store = redisStore
		healthChecks["redis"] = redisStore
		logger.Info("Redis cache backend connected", "addr", cfg.Redis.Addr)
	} else {
		memStore := scancache.NewMemoryStore(cfg.Cache.PostsCapacity, cfg.Cache.PostsTTL)
		store = memStore
		healthChecks["cache"] = memStore
		logger.Info("Using in-memory cache backend")
	}
	defer store.Close()

	// Scan archive: optional, enabled by DATABASE_URL.
	var archive *history.Repository
	if cfg.Database.URL != "" {
		archive, err = history.New(history.Config{
			URL:             cfg.Database.URL,
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
			Tracer:          tracer,
		})
		if err != nil {
			logger.Error("Failed to connect to database", "error", err.Error())
			os.Exit(1)
		}
		defer archive.Close()
		healthChecks["database"] = archive
		logger.Info("Scan archive connected")
	}

	// Dev adapters: deterministic synthetic data for every platform.
	// Production builds register real API clients here instead.
	registry := platform.NewRegistry()
	for _, p := range types.KnownPlatforms() {
		registry.Register(platform.NewStaticAdapter(p))
	}

	breakers := resilience.NewBreakerRegistry(resilience.BreakerSettings{
		FailureThreshold: cfg.Breaker.FailureThreshold,
		SuccessThreshold: cfg.Breaker.SuccessThreshold,
		ResetTimeout:     cfg.Breaker.ResetTimeout,
	})
	retrier := resilience.NewRetrier(resilience.RetryConfig{
		MaxRetries: cfg.Retry.MaxRetries,
		BaseDelay:  cfg.Retry.BaseDelay,
		MaxDelay:   cfg.Retry.MaxDelay,
	})

	recorder := metrics.NewRecorder(cfg.Metrics.BufferSize)
	collectors := metrics.NewCollectors(&metrics.Config{
		Namespace: "socialscan",
		Enabled:   cfg.Metrics.Enabled,
	})
	reporter := metrics.NewReporter(recorder, collectors, metrics.ReporterConfig{
		Interval: cfg.Metrics.ReportInterval,
		Window:   cfg.Metrics.ReportWindow,
	})
	reporter.Start()
	defer reporter.Stop()

	deps := orchestrator.Dependencies{
		Adapters:   registry,
		Analyzer:   analysis.NewEngine(analysis.WithTopPostsLimit(cfg.Scan.TopPostsLimit)),
		Store:      store,
		Breakers:   breakers,
		Retrier:    retrier,
		Recorder:   recorder,
		Collectors: collectors,
		Tracer:     tracer,
	}
	if archive != nil {
		deps.Archive = archive
	}

	orch, err := orchestrator.NewService(deps, &orchestrator.Config{
		ScanTimeout:     cfg.Scan.Timeout,
		Retention:       cfg.Scan.Retention,
		FailedRetention: cfg.Scan.FailedRetention,
		CleanupInterval: cfg.Scan.CleanupInterval,
		LookbackDays:    cfg.Scan.LookbackDays,
		PostsTTL:        cfg.Cache.PostsTTL,
		ResultTTL:       cfg.Cache.ResultsTTL,
	})
	if err != nil {
		logger.Error("Failed to create orchestrator", "error", err.Error())
		os.Exit(1)
	}
	defer orch.Destroy()

	routerCfg := api.RouterConfig{
		Orchestrator: orch,
		Collectors:   collectors,
		HealthChecks: healthChecks,
		Debug:        cfg.Logging.Level == "debug",
	}
	if archive != nil {
		routerCfg.History = archive
	}
	if cfg.Tracing.Enabled {
		routerCfg.TracingMW = tracer.Middleware()
	}
	router := api.NewRouter(routerCfg)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("Starting API server", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed", "error", err.Error())
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", "error", err.Error())
	}
	if err := tracer.Shutdown(ctx); err != nil {
		logger.Error("Tracer shutdown failed", "error", err.Error())
	}
	logger.Info("Server exited")
}
