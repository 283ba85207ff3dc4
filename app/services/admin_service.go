package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/address-resolver/app/models"
	"github.com/address-resolver/internal/catalog"
	"github.com/address-resolver/internal/metrics"
	"github.com/address-resolver/internal/normalizer"
	"go.uber.org/zap"
)

var (
	// ErrEmptyCatalog dữ liệu không dựng được tỉnh nào
	ErrEmptyCatalog = errors.New("catalog không có tỉnh/thành hợp lệ")
	// ErrSearchDisabled Meilisearch chưa được cấu hình
	ErrSearchDisabled = errors.New("meilisearch chưa được bật")
	// ErrNoUnitStore không có MongoDB để lưu hoặc đọc catalog
	ErrNoUnitStore = errors.New("không có kho lưu admin_units")
)

// CatalogIndexer đẩy catalog lên search index
type CatalogIndexer interface {
	BuildIndexes(aliases map[string]string) error
	IndexCatalog(cat *catalog.Catalog) (int, error)
}

// AdminService service quản lý catalog, index và cache
type AdminService struct {
	catalogs  *CatalogStore
	units     AdminUnitStore
	indexer   CatalogIndexer
	cache     ICacheService
	norm      *normalizer.Normalizer
	metrics   *metrics.Metrics
	logger    *zap.Logger
	startTime time.Time

	catalogFile string
}

// CatalogValidation kết quả kiểm tra dữ liệu catalog
type CatalogValidation struct {
	Passed      bool                 `json:"passed"`
	Counts      map[string]int       `json:"counts"`
	Version     string               `json:"version"`
	Diagnostics []catalog.Diagnostic `json:"diagnostics"`
	Warnings    []string             `json:"warnings"`
}

// SeedResult kết quả seed catalog
type SeedResult struct {
	Version          string         `json:"version"`
	CatalogVersion   string         `json:"catalog_version"`
	UnitsProcessed   int            `json:"units_processed"`
	Counts           map[string]int `json:"counts"`
	IndexedDocuments int            `json:"indexed_documents"`
	Warnings         []string       `json:"warnings"`
	ProcessingTimeMs int64          `json:"processing_time_ms"`
}

// SystemStats thống kê hệ thống
type SystemStats struct {
	CatalogVersion string                 `json:"catalog_version"`
	CatalogLoaded  time.Time              `json:"catalog_loaded_at"`
	CatalogCounts  map[string]int         `json:"catalog_counts"`
	DatabaseStats  map[string]int64       `json:"database_stats,omitempty"`
	CacheStats     *CacheStats            `json:"cache_stats,omitempty"`
	Uptime         string                 `json:"uptime"`
	MemoryUsage    map[string]interface{} `json:"memory_usage"`
	Goroutines     int                    `json:"goroutines"`
}

// NewAdminService tạo mới AdminService. units, indexer và cache có thể nil.
func NewAdminService(catalogs *CatalogStore, units AdminUnitStore, indexer CatalogIndexer, cache ICacheService, norm *normalizer.Normalizer, m *metrics.Metrics, logger *zap.Logger) *AdminService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if norm == nil {
		norm = normalizer.New()
	}
	return &AdminService{
		catalogs:  catalogs,
		units:     units,
		indexer:   indexer,
		cache:     cache,
		norm:      norm,
		metrics:   m,
		logger:    logger,
		startTime: time.Now(),
	}
}

// WithCatalogFile đặt file JSON dùng khi không nạp được từ MongoDB
func (as *AdminService) WithCatalogFile(path string) *AdminService {
	as.catalogFile = path
	return as
}

func (as *AdminService) build(records []catalog.Record) (*catalog.Catalog, []catalog.Diagnostic) {
	return catalog.Build(records, catalog.WithNormalizer(as.norm.Normalize))
}

// LevelCounts số đơn vị theo tên cấp
func LevelCounts(cat *catalog.Catalog) map[string]int {
	out := map[string]int{
		catalog.LevelProvince.String(): 0,
		catalog.LevelDistrict.String(): 0,
		catalog.LevelWard.String():     0,
	}
	if cat == nil {
		return out
	}
	for level, n := range cat.Counts() {
		out[level.String()] = n
	}
	return out
}

func diagnosticWarnings(diags []catalog.Diagnostic) []string {
	warnings := make([]string, 0, len(diags))
	for _, d := range diags {
		warnings = append(warnings, d.String())
	}
	return warnings
}

// ValidateCatalog dựng thử catalog, không thay đổi gì
func (as *AdminService) ValidateCatalog(records []catalog.Record) *CatalogValidation {
	cat, diags := as.build(records)
	warnings := diagnosticWarnings(diags)
	if !cat.Ready() {
		warnings = append(warnings, ErrEmptyCatalog.Error())
	}
	return &CatalogValidation{
		Passed:      cat.Ready() && len(diags) == 0,
		Counts:      LevelCounts(cat),
		Version:     cat.Version(),
		Diagnostics: diags,
		Warnings:    warnings,
	}
}

// SeedCatalog dựng catalog, ghi admin_units, index lại nếu cần và thay catalog đang phục vụ
func (as *AdminService) SeedCatalog(ctx context.Context, version string, records []catalog.Record, rebuildIndexes bool) (*SeedResult, error) {
	startTime := time.Now()

	cat, diags := as.build(records)
	if !cat.Ready() {
		return nil, ErrEmptyCatalog
	}
	if version == "" {
		version = cat.Version()
	}
	result := &SeedResult{
		Version:        version,
		CatalogVersion: cat.Version(),
		UnitsProcessed: cat.Len(),
		Counts:         LevelCounts(cat),
		Warnings:       diagnosticWarnings(diags),
	}

	if as.units != nil {
		docs := models.AdminUnitsFromCatalog(cat, version, time.Now())
		if err := as.units.Replace(ctx, docs); err != nil {
			return nil, fmt.Errorf("lỗi lưu catalog: %w", err)
		}
	} else {
		result.Warnings = append(result.Warnings, "catalog chỉ nạp vào bộ nhớ, không có MongoDB")
	}

	if rebuildIndexes {
		indexed, err := as.index(cat)
		switch {
		case errors.Is(err, ErrSearchDisabled):
			result.Warnings = append(result.Warnings, err.Error())
		case err != nil:
			as.logger.Warn("Lỗi index Meilisearch", zap.Error(err))
			result.Warnings = append(result.Warnings, fmt.Sprintf("lỗi index: %v", err))
		default:
			result.IndexedDocuments = indexed
		}
	}

	as.install(ctx, cat, diags)

	result.ProcessingTimeMs = time.Since(startTime).Milliseconds()
	as.logger.Info("Đã seed catalog",
		zap.String("version", version),
		zap.String("catalog_version", cat.Version()),
		zap.Int("units", cat.Len()),
		zap.Int("diagnostics", len(diags)),
		zap.Duration("elapsed", time.Since(startTime)))
	return result, nil
}

// install thay catalog đang phục vụ và dọn cache của phiên bản cũ
func (as *AdminService) install(ctx context.Context, cat *catalog.Catalog, diags []catalog.Diagnostic) {
	for _, d := range diags {
		as.logger.Warn("Bỏ qua bản ghi catalog",
			zap.String("reason", string(d.Reason)),
			zap.String("code", d.Code),
			zap.String("detail", d.Detail))
	}

	old := as.catalogs.Store(cat)
	as.metrics.SetCatalogUnits(LevelCounts(cat))

	if as.cache != nil && old.Version() != cat.Version() {
		if err := as.cache.InvalidateByGazetteerVersion(ctx, cat.Version()); err != nil {
			as.logger.Warn("Lỗi invalidate cache", zap.Error(err))
		}
	}
}

// LoadCatalog dựng lại catalog từ admin_units
func (as *AdminService) LoadCatalog(ctx context.Context) (*catalog.Catalog, error) {
	if as.units == nil {
		return nil, ErrNoUnitStore
	}
	docs, err := as.units.LoadAll(ctx)
	if err != nil {
		return nil, err
	}

	records := make([]catalog.Record, 0, len(docs))
	for i := range docs {
		records = append(records, docs[i].Record())
	}
	cat, diags := as.build(records)
	if !cat.Ready() {
		return nil, ErrEmptyCatalog
	}

	as.install(ctx, cat, diags)
	as.logger.Info("Đã nạp catalog từ MongoDB",
		zap.String("catalog_version", cat.Version()),
		zap.Int("units", cat.Len()))
	return cat, nil
}

// LoadCatalogFile dựng catalog từ file JSON (mảng lồng hoặc ba bảng)
func (as *AdminService) LoadCatalogFile(path string) (*catalog.Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("không thể mở file catalog: %w", err)
	}
	defer f.Close()

	records, err := catalog.DecodeRecords(f)
	if err != nil {
		return nil, err
	}
	cat, diags := as.build(records)
	if !cat.Ready() {
		return nil, ErrEmptyCatalog
	}

	as.install(context.Background(), cat, diags)
	as.logger.Info("Đã nạp catalog từ file",
		zap.String("path", path),
		zap.String("catalog_version", cat.Version()),
		zap.Int("units", cat.Len()))
	return cat, nil
}

// ReloadCatalog nạp lại catalog: MongoDB trước, file cấu hình khi Mongo không có dữ liệu
func (as *AdminService) ReloadCatalog(ctx context.Context) (*catalog.Catalog, error) {
	if as.units != nil {
		cat, err := as.LoadCatalog(ctx)
		if err == nil || as.catalogFile == "" {
			return cat, err
		}
		as.logger.Warn("Không nạp được catalog từ MongoDB, dùng file",
			zap.Error(err),
			zap.String("path", as.catalogFile))
	}
	if as.catalogFile == "" {
		return nil, ErrNoUnitStore
	}
	return as.LoadCatalogFile(as.catalogFile)
}

func (as *AdminService) index(cat *catalog.Catalog) (int, error) {
	if as.indexer == nil {
		return 0, ErrSearchDisabled
	}
	if err := as.indexer.BuildIndexes(as.norm.Aliases()); err != nil {
		return 0, err
	}
	return as.indexer.IndexCatalog(cat)
}

// BuildIndexes index lại catalog hiện tại lên Meilisearch
func (as *AdminService) BuildIndexes(ctx context.Context) (int, error) {
	cat := as.catalogs.Load()
	if !cat.Ready() {
		return 0, ErrCatalogNotReady
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return as.index(cat)
}

// InvalidateCache xóa cache không thuộc phiên bản catalog hiện tại
func (as *AdminService) InvalidateCache(ctx context.Context) (string, error) {
	version := as.catalogs.Version()
	if as.cache == nil {
		return version, nil
	}
	if version == "" {
		return "", as.cache.Clear(ctx)
	}
	return version, as.cache.InvalidateByGazetteerVersion(ctx, version)
}

// GetSystemStats lấy thống kê hệ thống
func (as *AdminService) GetSystemStats(ctx context.Context) (*SystemStats, error) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	cat := as.catalogs.Load()
	stats := &SystemStats{
		CatalogVersion: cat.Version(),
		CatalogLoaded:  as.catalogs.LoadedAt(),
		CatalogCounts:  LevelCounts(cat),
		Uptime:         time.Since(as.startTime).Round(time.Second).String(),
		MemoryUsage: map[string]interface{}{
			"alloc_mb":       bToMb(m.Alloc),
			"total_alloc_mb": bToMb(m.TotalAlloc),
			"sys_mb":         bToMb(m.Sys),
			"num_gc":         m.NumGC,
		},
		Goroutines: runtime.NumGoroutine(),
	}

	if as.units != nil {
		counts, err := as.units.CollectionCounts(ctx)
		if err != nil {
			as.logger.Warn("Không thể lấy database stats", zap.Error(err))
		}
		stats.DatabaseStats = counts
	}
	if as.cache != nil {
		cacheStats, err := as.cache.GetStats(ctx)
		if err != nil {
			as.logger.Warn("Không thể lấy cache stats", zap.Error(err))
		}
		stats.CacheStats = cacheStats
	}
	return stats, nil
}

// bToMb chuyển bytes sang MB
func bToMb(b uint64) uint64 {
	return b / 1024 / 1024
}
