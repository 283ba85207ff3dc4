package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/address-resolver/app/config"
	"github.com/address-resolver/app/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// CacheStats thống kê cache
type CacheStats struct {
	HitRate    float64 `json:"hit_rate"`
	TotalHits  int64   `json:"total_hits"`
	TotalMiss  int64   `json:"total_miss"`
	TotalItems int64   `json:"total_items"`
}

// ICacheService interface định nghĩa các method cần thiết cho cache
type ICacheService interface {
	// Get lấy địa chỉ từ cache
	Get(ctx context.Context, key string) (*models.AddressResult, bool, error)

	// Set lưu địa chỉ vào cache
	Set(ctx context.Context, key string, result *models.AddressResult) error

	// Delete xóa địa chỉ khỏi cache
	Delete(ctx context.Context, key string) error

	// Clear xóa tất cả cache
	Clear(ctx context.Context) error

	// InvalidateByGazetteerVersion xóa mọi mục không thuộc phiên bản catalog hiện tại
	InvalidateByGazetteerVersion(ctx context.Context, gazetteerVersion string) error

	// GetStats lấy thống kê cache
	GetStats(ctx context.Context) (*CacheStats, error)

	// Exists kiểm tra key có tồn tại không
	Exists(ctx context.Context, key string) (bool, error)

	// GetTTL lấy TTL còn lại của key
	GetTTL(ctx context.Context, key string) (time.Duration, error)

	// Close đóng kết nối (nếu cần)
	Close() error
}

// CacheKey khóa cache: phiên bản catalog + "|" + địa chỉ đã chuẩn hóa
func CacheKey(catalogVersion, normalized string) string {
	return catalogVersion + "|" + normalized
}

// keyVersion phần phiên bản của khóa cache
func keyVersion(key string) string {
	version, _, _ := strings.Cut(key, "|")
	return version
}

func hitRate(hits, misses int64) float64 {
	if total := hits + misses; total > 0 {
		return float64(hits) / float64(total)
	}
	return 0
}

// NewCacheFromConfig chọn backend cache theo cấu hình. db có thể nil khi không dùng Mongo.
func NewCacheFromConfig(cfg *config.Config, db *mongo.Database, logger *zap.Logger) (ICacheService, error) {
	switch cfg.Cache.Backend {
	case config.CacheMemory, "":
		return NewCacheService(cfg.Cache.L1Size, cfg.Cache.TTL)
	case config.CacheRedis:
		return NewRedisCacheService(cfg.Redis.URL, cfg.Redis.Prefix, cfg.Redis.TTL, logger)
	case config.CacheMongo:
		if db == nil {
			return nil, fmt.Errorf("cache backend %q cần MongoDB", cfg.Cache.Backend)
		}
		return NewMongoCacheService(db, cfg.Cache.L1Size, cfg.Cache.TTL, logger)
	case config.CacheHybrid:
		if db == nil {
			return nil, fmt.Errorf("cache backend %q cần MongoDB", cfg.Cache.Backend)
		}
		redisCache, err := NewRedisCacheService(cfg.Redis.URL, cfg.Redis.Prefix, cfg.Redis.TTL, logger)
		if err != nil {
			return nil, err
		}
		mongoCache, err := NewMongoCacheService(db, cfg.Cache.L1Size, cfg.Cache.TTL, logger)
		if err != nil {
			redisCache.Close()
			return nil, err
		}
		return NewHybridCacheService(redisCache, mongoCache, logger), nil
	}
	return nil, fmt.Errorf("cache backend không hợp lệ: %q", cfg.Cache.Backend)
}
