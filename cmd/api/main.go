package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/address-resolver/app/config"
	"github.com/address-resolver/app/controllers"
	"github.com/address-resolver/app/services"
	"github.com/address-resolver/internal/metrics"
	"github.com/address-resolver/internal/normalizer"
	"github.com/address-resolver/internal/parser"
	"github.com/address-resolver/internal/resolver"
	"github.com/address-resolver/internal/review"
	"github.com/address-resolver/internal/search"
	"github.com/address-resolver/routes"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "", "đường dẫn file cấu hình YAML")
	flag.Parse()

	// 1. Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(err)
	}

	// 2. Khởi tạo logger
	logger := initLogger(cfg)
	defer logger.Sync()

	logger.Info("Starting address resolver",
		zap.String("version", cfg.App.Version),
		zap.String("env", cfg.App.Env))

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// 3. Kết nối MongoDB
	var db *mongo.Database
	client, err := initMongoDB(cfg.Mongo.URL, logger)
	switch {
	case err == nil:
		defer client.Disconnect(context.Background())
		db = client.Database(cfg.Mongo.Database)
	case needsMongo(cfg):
		logger.Fatal("Failed to connect to MongoDB", zap.Error(err))
	default:
		logger.Warn("MongoDB không khả dụng, chạy không có lưu trữ bền", zap.Error(err))
	}

	// 4. Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// 5. Cache
	cache, err := services.NewCacheFromConfig(cfg, db, logger)
	if err != nil {
		logger.Fatal("Failed to initialize cache", zap.Error(err))
	}
	defer cache.Close()
	if mem, ok := cache.(*services.CacheService); ok {
		mem.StartCleanupWorker(ctx, 5*time.Minute)
	}

	// 6. Meilisearch (tùy chọn)
	norm := normalizer.New()
	var (
		indexer  services.CatalogIndexer
		searcher controllers.UnitSearcher
	)
	if cfg.Meilisearch.Enabled {
		gs, err := search.NewGazetteerSearcher(search.SearchConfig{
			Host:      cfg.Meilisearch.URL,
			APIKey:    cfg.Meilisearch.MasterKey,
			IndexName: cfg.Meilisearch.Index,
			Timeout:   cfg.Meilisearch.Timeout,
		}, norm.Normalize, logger)
		if err != nil {
			logger.Warn("Meilisearch không khả dụng, tắt tra cứu", zap.Error(err))
		} else {
			indexer, searcher = gs, gs
		}
	}

	// 7. Parser, matcher, batch resolver
	addressParser, err := parser.NewAddressParser(norm, cfg.Scoring, nil, logger)
	if err != nil {
		logger.Fatal("Failed to initialize parser", zap.Error(err))
	}
	matcher := parser.NewAddressMatcher(cfg.Scoring, logger)
	batch := resolver.NewBatchResolver(addressParser, matcher, cfg.Batch.Workers, logger)

	// 8. Review queue
	var (
		reviews   services.ReviewQueue
		suggester *review.Suggester
	)
	if cfg.Review.Enabled {
		if db != nil {
			reviews = services.NewMongoReviewQueue(db, logger)
		} else {
			reviews = services.NewMemoryReviewQueue()
		}
		suggester = review.NewSuggester(cfg.Review.JWWeight, cfg.Review.LevWeight, cfg.Review.MaxCandidates)
	}

	// 9. Catalog
	catalogs := services.NewCatalogStore()
	var units services.AdminUnitStore
	if db != nil && cfg.Catalog.Source == config.CatalogFromMongo {
		units = services.NewMongoAdminUnitStore(db, logger)
	}
	adminService := services.NewAdminService(catalogs, units, indexer, cache, norm, m, logger).
		WithCatalogFile(cfg.Catalog.Path)

	loadCtx, cancelLoad := context.WithTimeout(ctx, time.Minute)
	if _, err := adminService.ReloadCatalog(loadCtx); err != nil {
		// Service vẫn chạy, /ready trả 503 cho tới khi seed catalog
		logger.Warn("Chưa nạp được catalog", zap.Error(err))
	} else if mc, ok := cache.(*services.MongoCacheService); ok {
		if _, err := mc.WarmUp(loadCtx, catalogs.Version(), cfg.Cache.L1Size); err != nil {
			logger.Warn("Cache warm up thất bại", zap.Error(err))
		}
	}
	cancelLoad()

	// 10. Services
	addressService := services.NewAddressService(services.AddressServiceConfig{
		Parser:       addressParser,
		Matcher:      matcher,
		Batch:        batch,
		Catalogs:     catalogs,
		Cache:        cache,
		Reviews:      reviews,
		Suggester:    suggester,
		Metrics:      m,
		MaxAddresses: cfg.Batch.MaxAddresses,
		JobTTL:       cfg.Batch.JobTTL,
	}, logger)
	addressService.StartJobJanitor(ctx, time.Minute)

	// 11. Controllers và router
	addressController := controllers.NewAddressController(addressService, cfg.App.Version, logger)
	adminController := controllers.NewAdminController(adminService, reviews, searcher, logger)

	router := routes.NewRouter(addressController, adminController, routes.Options{
		Logger:           logger,
		Metrics:          m,
		Version:          cfg.App.Version,
		RateLimitEnabled: cfg.RateLimit.Enabled,
		RateLimitRPS:     cfg.RateLimit.RPS,
		RateLimitBurst:   cfg.RateLimit.Burst,
	})

	srv := &http.Server{
		Addr:              ":" + getPort(cfg),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}

func initLogger(cfg *config.Config) *zap.Logger {
	var (
		logger *zap.Logger
		err    error
	)
	if cfg.IsProduction() {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		panic(err)
	}
	return logger
}

// needsMongo cấu hình bắt buộc phải có MongoDB
func needsMongo(cfg *config.Config) bool {
	if cfg.Catalog.Source == config.CatalogFromMongo && cfg.Catalog.Path == "" {
		return true
	}
	switch cfg.Cache.Backend {
	case config.CacheMongo, config.CacheHybrid:
		return true
	}
	return false
}

func initMongoDB(mongoURI string, logger *zap.Logger) (*mongo.Client, error) {
	logger.Info("Connecting to MongoDB")

	client, err := mongo.Connect(context.Background(), options.Client().ApplyURI(mongoURI))
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, err
	}

	logger.Info("Successfully connected to MongoDB")
	return client, nil
}

func getPort(cfg *config.Config) string {
	if port := os.Getenv("PORT"); port != "" {
		return port
	}
	return cfg.App.Port
}
