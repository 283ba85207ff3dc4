package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/address-resolver/app/config"
	"github.com/address-resolver/app/services"
	"github.com/address-resolver/internal/catalog"
	"github.com/address-resolver/internal/normalizer"
	"github.com/address-resolver/internal/search"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

func main() {
	var (
		configPath = flag.String("config", "", "đường dẫn file cấu hình YAML")
		dataPath   = flag.String("data", "", "dataset JSON: mảng lồng hoặc {provinces, districts, wards}")
		version    = flag.String("version", "", "nhãn phiên bản catalog (mặc định là hash nội dung)")
		withMeili  = flag.Bool("meili", false, "index lại Meilisearch sau khi seed")
		dryRun     = flag.Bool("dry-run", false, "chỉ kiểm tra dataset, không ghi MongoDB")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	if *dataPath == "" {
		*dataPath = cfg.Catalog.Path
	}

	records, err := readDataset(*dataPath)
	if err != nil {
		logger.Fatal("Không đọc được dataset", zap.Error(err))
	}

	norm := normalizer.New()
	if *dryRun {
		v := services.NewAdminService(services.NewCatalogStore(), nil, nil, nil, norm, nil, logger).ValidateCatalog(records)
		printValidation(v)
		if !v.Passed {
			os.Exit(1)
		}
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.Mongo.URL))
	if err != nil {
		logger.Fatal("Không thể kết nối MongoDB", zap.Error(err))
	}
	defer client.Disconnect(context.Background())
	if err := client.Ping(ctx, nil); err != nil {
		logger.Fatal("Không thể ping MongoDB", zap.Error(err))
	}
	db := client.Database(cfg.Mongo.Database)

	var indexer services.CatalogIndexer
	if *withMeili {
		gs, err := search.NewGazetteerSearcher(search.SearchConfig{
			Host:      cfg.Meilisearch.URL,
			APIKey:    cfg.Meilisearch.MasterKey,
			IndexName: cfg.Meilisearch.Index,
			Timeout:   cfg.Meilisearch.Timeout,
		}, norm.Normalize, logger)
		if err != nil {
			logger.Fatal("Không thể kết nối Meilisearch", zap.Error(err))
		}
		indexer = gs
	}

	admin := services.NewAdminService(
		services.NewCatalogStore(),
		services.NewMongoAdminUnitStore(db, logger),
		indexer, nil, norm, nil, logger,
	)

	result, err := admin.SeedCatalog(ctx, *version, records, *withMeili)
	if err != nil {
		logger.Fatal("Seed thất bại", zap.Error(err))
	}

	fmt.Printf("Phiên bản: %s (catalog %s)\n", result.Version, result.CatalogVersion)
	fmt.Printf("Đơn vị đã ghi: %d %v\n", result.UnitsProcessed, result.Counts)
	if *withMeili {
		fmt.Printf("Documents đã index: %d\n", result.IndexedDocuments)
	}
	for _, w := range result.Warnings {
		fmt.Println("  cảnh báo:", w)
	}
	fmt.Printf("Thời gian: %dms\n", result.ProcessingTimeMs)
}

func readDataset(path string) ([]catalog.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return catalog.DecodeRecords(f)
}

func printValidation(v *services.CatalogValidation) {
	fmt.Printf("Phiên bản catalog: %s\n", v.Version)
	fmt.Printf("Số đơn vị: %v\n", v.Counts)
	for _, d := range v.Diagnostics {
		fmt.Println("  ", d.String())
	}
	if v.Passed {
		fmt.Println("Dataset hợp lệ")
	} else {
		fmt.Println("Dataset không hợp lệ")
	}
}
