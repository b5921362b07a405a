package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"github.com/therealutkarshpriyadarshi/hlsprobe/internal/cache"
	"github.com/therealutkarshpriyadarshi/hlsprobe/internal/config"
	"github.com/therealutkarshpriyadarshi/hlsprobe/internal/logging"
	"github.com/therealutkarshpriyadarshi/hlsprobe/internal/manifest"
	"github.com/therealutkarshpriyadarshi/hlsprobe/internal/metrics"
	"github.com/therealutkarshpriyadarshi/hlsprobe/internal/middleware"
	"github.com/therealutkarshpriyadarshi/hlsprobe/internal/prober"
	"github.com/therealutkarshpriyadarshi/hlsprobe/internal/storage"
	"github.com/therealutkarshpriyadarshi/hlsprobe/internal/tracing"
)

type API struct {
	cfg     *config.Config
	logger  *logging.Logger
	fetcher *manifest.Fetcher
	client  *prober.Client
	batch   *prober.BatchProber
	cache   *cache.Cache
	storage *storage.Storage
}

func main() {
	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.NewLogger(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	// Initialize tracing
	if cfg.Tracing.Enabled {
		_, closer, err := tracing.InitTracer(cfg.Tracing.ServiceName, cfg.Tracing.JaegerEndpoint)
		if err != nil {
			logger.Fatalf("Failed to initialize tracer: %v", err)
		}
		defer closer.Close()
	}

	client := prober.NewClient(cfg.Prober, logger)

	api := &API{
		cfg:    cfg,
		logger: logger,
		client: client,
		// Manifests ride the same per-call budget as probes
		fetcher: manifest.NewFetcher(client.Timeout()),
	}

	// Analysis cache is optional; the service degrades to uncached probing
	if cfg.Redis.Enabled {
		analysisCache, err := cache.NewCache(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer analysisCache.Close()
		api.cache = analysisCache
	}

	// Staging storage is optional; without it corruption uploads are not kept
	if cfg.Storage.Enabled {
		stor, err := storage.New(cfg.Storage)
		if err != nil {
			logger.Fatalf("Failed to initialize storage: %v", err)
		}
		api.storage = stor
	}

	// Assign the interface only when a cache exists, so the batch prober
	// sees a true nil rather than a typed nil pointer.
	var analysisCache prober.AnalysisCache
	if api.cache != nil {
		analysisCache = api.cache
	}
	api.batch = prober.NewBatchProber(api.client, analysisCache, cfg.Prober.CacheTTL, cfg.Prober.MaxConcurrent, logger)

	// Metrics server on its own port
	if cfg.Metrics.Enabled {
		metricsServer := metrics.NewServer(cfg.Metrics.Port)
		go func() {
			logger.Infof("Starting metrics server on :%d", cfg.Metrics.Port)
			if err := metricsServer.Start(); err != nil {
				logger.ErrorWithErr("Metrics server failed", err)
			}
		}()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			if err := metricsServer.Shutdown(ctx); err != nil {
				logger.ErrorWithErr("Metrics server shutdown failed", err)
			}
		}()
	}

	// Setup router
	router := setupRouter(api)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in goroutine
	go func() {
		logger.Infof("Starting API server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatalf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server stopped")
}

func setupRouter(api *API) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(api.logger))

	if api.cfg.RateLimit.RequestsPerSecond > 0 {
		rl := middleware.NewRateLimiter(api.cfg.RateLimit.RequestsPerSecond, api.cfg.RateLimit.Burst)
		router.Use(middleware.RateLimit(rl))
	}

	// Health check
	router.GET("/health", api.healthCheck)

	// API routes
	v1 := router.Group("/api/v1")
	{
		v1.POST("/manifests/analyze", api.analyzeManifest)
		v1.POST("/segments/probe", api.probeSegment)
		v1.POST("/segments/probe/batch", api.probeBatch)
		v1.POST("/corruption/check", api.checkCorruption)
	}

	return router
}
