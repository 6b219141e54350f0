package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.opentelemetry.io/contrib/instrumentation/go.mongodb.org/mongo-driver/mongo/otelmongo"

	apihttp "debridops/internal/api/http"
	"debridops/internal/app"
	"debridops/internal/domain"
	"debridops/internal/metrics"
	mongorepo "debridops/internal/repository/mongo"
	"debridops/internal/services/bulk"
	"debridops/internal/services/cache"
	"debridops/internal/services/debrid"
	"debridops/internal/telemetry"
	"debridops/internal/usecase"
)

// version is stamped at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cfg := app.LoadConfig()
	logger := newLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)
	metrics.Register(prometheus.DefaultRegisterer)

	shutdownTracer, err := telemetry.Init(context.Background(), telemetry.Config{
		ServiceName:    "debridops",
		ServiceVersion: version,
		Environment:    cfg.Environment,
		Endpoint:       cfg.OTLPEndpoint,
		SampleRate:     cfg.TraceSampleRate,
	})
	if err != nil {
		logger.Warn("otel init failed", slog.String("error", err.Error()))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	logger.Info("configuration loaded",
		slog.String("service", "debridops"),
		slog.String("version", version),
		slog.String("environment", cfg.Environment),
		slog.String("httpAddr", cfg.HTTPAddr),
		slog.String("logLevel", cfg.LogLevel),
		slog.String("logFormat", cfg.LogFormat),
		slog.String("debridBaseURL", cfg.DebridBaseURL),
		slog.Bool("redisEnabled", cfg.RedisURL != ""),
	)

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctx, cancel := context.WithTimeout(rootCtx, 10*time.Second)
	defer cancel()

	mongoMonitor := otelmongo.NewMonitor()
	mongoClient, err := mongorepo.Connect(ctx, cfg.MongoURI, options.Client().SetMonitor(mongoMonitor))
	if err != nil {
		logger.Error("mongo connect failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if err := mongoClient.Ping(ctx, readpref.Primary()); err != nil {
		logger.Error("mongo ping failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	filesRepo := mongorepo.NewFilesRepository(mongoClient, cfg.MongoDatabase)
	operationsRepo := mongorepo.NewOperationsRepository(mongoClient, cfg.MongoDatabase)
	bulkSettingsRepo := mongorepo.NewBulkSettingsRepository(mongoClient, cfg.MongoDatabase)
	cacheSettingsRepo := mongorepo.NewCacheSettingsRepository(mongoClient, cfg.MongoDatabase)

	if err := filesRepo.EnsureIndexes(ctx); err != nil {
		logger.Warn("mongo ensure file indexes failed", slog.String("error", err.Error()))
	}
	if err := operationsRepo.EnsureIndexes(ctx); err != nil {
		logger.Warn("mongo ensure operation indexes failed", slog.String("error", err.Error()))
	}

	// Redis is optional; failures degrade the cache to memory-only.
	var redisClient *redis.Client
	var redisBackend *cache.RedisBackend
	if cfg.RedisURL != "" {
		redisOpts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Warn("redis url invalid, cache is memory-only", slog.String("error", err.Error()))
		} else {
			redisClient = redis.NewClient(redisOpts)
			if err := redisClient.Ping(ctx).Err(); err != nil {
				logger.Warn("redis ping failed, cache is memory-only", slog.String("error", err.Error()))
				_ = redisClient.Close()
				redisClient = nil
			} else {
				redisBackend = cache.NewRedisBackend(redisClient)
			}
		}
	}

	fileCache := cache.NewLayered(cache.Config{
		TTL:        time.Duration(cfg.CacheTTLMinutes) * time.Minute,
		MaxEntries: cfg.CacheMaxEntries,
		Redis:      redisBackend,
		Logger:     logger,
	})

	debridClient := debrid.NewClient(debrid.Config{
		Token:             cfg.DebridToken,
		BaseURL:           cfg.DebridBaseURL,
		RequestsPerSecond: float64(cfg.DebridRPS),
	})

	engine := bulk.NewEngine(bulk.Config{
		Debrid: debridClient,
		Cache:  fileCache,
		Logger: logger,
		Defaults: domain.BulkOptions{
			MaxConcurrency:  cfg.BulkMaxConcurrency,
			ItemDelay:       time.Duration(cfg.BulkItemDelayMs) * time.Millisecond,
			ContinueOnError: true,
			ItemTimeout:     time.Duration(cfg.BulkItemTimeoutMs) * time.Millisecond,
		},
	})

	// Persisted settings override the env defaults.
	if settings, ok, err := bulkSettingsRepo.GetBulkSettings(ctx); err != nil {
		logger.Warn("bulk settings load failed", slog.String("error", err.Error()))
	} else if ok {
		engine.UpdateDefaultOptions(settings.Options())
	}
	if settings, ok, err := cacheSettingsRepo.GetCacheSettings(ctx); err != nil {
		logger.Warn("cache settings load failed", slog.String("error", err.Error()))
	} else if ok {
		fileCache.UpdateCacheSettings(time.Duration(settings.TTLMinutes)*time.Minute, settings.MaxEntries)
	}

	bulkSettings := app.NewBulkSettingsManager(engine, bulkSettingsRepo)
	cacheSettings := app.NewCacheSettingsManager(fileCache, cacheSettingsRepo)

	executeUC := &usecase.ExecuteBulkOperation{
		Engine:  engine,
		Files:   filesRepo,
		Cache:   fileCache,
		History: operationsRepo,
		Logger:  logger,
	}
	cancelUC := usecase.CancelBulkOperation{Engine: engine}
	activeUC := usecase.ListActiveOperations{Engine: engine}
	progressUC := usecase.GetOperationProgress{Engine: engine, History: operationsRepo}
	historyUC := usecase.ListOperationHistory{History: operationsRepo}
	syncUC := usecase.SyncLibrary{
		Debrid:   debridClient,
		Files:    filesRepo,
		Cache:    fileCache,
		Logger:   logger,
		Interval: time.Duration(cfg.SyncIntervalMinutes) * time.Minute,
	}
	pruneUC := usecase.PruneOperationHistory{
		History:   operationsRepo,
		Logger:    logger,
		Retention: time.Duration(cfg.HistoryRetentionDays) * 24 * time.Hour,
	}

	handler := apihttp.NewServer(executeUC,
		apihttp.WithLogger(logger),
		apihttp.WithCancelBulk(cancelUC),
		apihttp.WithListActiveOperations(activeUC),
		apihttp.WithGetOperationProgress(progressUC),
		apihttp.WithListOperationHistory(historyUC),
		apihttp.WithSyncLibrary(syncUC),
		apihttp.WithFileRepository(filesRepo),
		apihttp.WithBulkSettings(bulkSettings),
		apihttp.WithCacheSettings(cacheSettings),
		apihttp.WithAllowedOrigins(cfg.CORSAllowedOrigins),
		apihttp.WithRateLimit(float64(cfg.RateLimitRPS), cfg.RateLimitBurst),
		apihttp.WithMongoPing(func(ctx context.Context) error {
			return mongoClient.Ping(ctx, readpref.Primary())
		}),
		apihttp.WithCachePing(fileCache.Ping),
		apihttp.WithDebridPing(func(ctx context.Context) error {
			_, err := debridClient.ListDownloads(ctx, 0, 1)
			return err
		}),
	)

	// Progress snapshots flow to WebSocket clients through the server.
	executeUC.Notifier = handler

	go syncUC.Run(rootCtx)
	go pruneUC.Run(rootCtx)
	go broadcastLoop(rootCtx, handler)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      0,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	logger.Info("server started", slog.String("addr", cfg.HTTPAddr))

	select {
	case <-rootCtx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	handler.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown error", slog.String("error", err.Error()))
	}
	if err := engine.Close(); err != nil {
		logger.Warn("engine close error", slog.String("error", err.Error()))
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close error", slog.String("error", err.Error()))
		}
	}
	if err := mongoClient.Disconnect(context.Background()); err != nil {
		logger.Warn("mongo disconnect error", slog.String("error", err.Error()))
	}

	logger.Info("server stopped")
}

// broadcastLoop keeps WebSocket clients current between per-operation
// progress pushes.
func broadcastLoop(ctx context.Context, handler *apihttp.Server) {
	activeTicker := time.NewTicker(5 * time.Second)
	healthTicker := time.NewTicker(30 * time.Second)
	defer activeTicker.Stop()
	defer healthTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-activeTicker.C:
			handler.BroadcastActiveOperations(ctx)
		case <-healthTicker.C:
			handler.BroadcastHealth(ctx)
		}
	}
}

func newLogger(levelRaw, formatRaw string) *slog.Logger {
	options := &slog.HandlerOptions{Level: parseLogLevel(levelRaw)}
	format := strings.ToLower(strings.TrimSpace(formatRaw))
	if format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, options))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, options))
}

func parseLogLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
