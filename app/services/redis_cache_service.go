package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/address-resolver/app/models"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const scanBatch = 500

// RedisCacheService cache service sử dụng Redis. Khóa mang phiên bản catalog
// nên invalidate chỉ cần quét và xóa các khóa của phiên bản khác.
type RedisCacheService struct {
	client *redis.Client
	logger *zap.Logger
	prefix string
	ttl    time.Duration

	hits   atomic.Int64
	misses atomic.Int64
}

// NewRedisCacheService tạo mới Redis cache service và ping thử
func NewRedisCacheService(redisURL, prefix string, ttl time.Duration, logger *zap.Logger) (*RedisCacheService, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("lỗi parse Redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("không thể kết nối Redis: %w", err)
	}

	return newRedisCache(client, prefix, ttl, logger), nil
}

func newRedisCache(client *redis.Client, prefix string, ttl time.Duration, logger *zap.Logger) *RedisCacheService {
	if prefix == "" {
		prefix = "addr:"
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisCacheService{client: client, logger: logger, prefix: prefix, ttl: ttl}
}

// Get lấy address result từ cache
func (rcs *RedisCacheService) Get(ctx context.Context, key string) (*models.AddressResult, bool, error) {
	cacheKey := rcs.prefix + key

	val, err := rcs.client.Get(ctx, cacheKey).Bytes()
	if errors.Is(err, redis.Nil) {
		rcs.misses.Add(1)
		return nil, false, nil
	}
	if err != nil {
		rcs.logger.Error("Lỗi get từ Redis", zap.Error(err), zap.String("key", cacheKey))
		return nil, false, err
	}

	var result models.AddressResult
	if err := json.Unmarshal(val, &result); err != nil {
		rcs.logger.Error("Lỗi unmarshal cache data", zap.Error(err))
		return nil, false, err
	}

	rcs.hits.Add(1)
	return &result, true, nil
}

// Set lưu address result vào cache
func (rcs *RedisCacheService) Set(ctx context.Context, key string, result *models.AddressResult) error {
	cacheKey := rcs.prefix + key

	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("lỗi marshal cache data: %w", err)
	}

	if err := rcs.client.Set(ctx, cacheKey, data, rcs.ttl).Err(); err != nil {
		rcs.logger.Error("Lỗi set vào Redis", zap.Error(err), zap.String("key", cacheKey))
		return err
	}
	return nil
}

// Delete xóa key khỏi cache
func (rcs *RedisCacheService) Delete(ctx context.Context, key string) error {
	return rcs.client.Del(ctx, rcs.prefix+key).Err()
}

// Clear xóa toàn bộ cache dưới prefix
func (rcs *RedisCacheService) Clear(ctx context.Context) error {
	deleted, err := rcs.deleteMatching(ctx, func(string) bool { return true })
	if err != nil {
		return err
	}
	rcs.logger.Info("Đã clear Redis cache", zap.Int("keys_deleted", deleted))
	return nil
}

// InvalidateByGazetteerVersion xóa các khóa thuộc phiên bản catalog khác
func (rcs *RedisCacheService) InvalidateByGazetteerVersion(ctx context.Context, gazetteerVersion string) error {
	keep := rcs.prefix + gazetteerVersion + "|"
	deleted, err := rcs.deleteMatching(ctx, func(k string) bool {
		return !strings.HasPrefix(k, keep)
	})
	if err != nil {
		return fmt.Errorf("lỗi invalidate Redis cache: %w", err)
	}
	rcs.logger.Info("Đã invalidate Redis cache",
		zap.String("gazetteer_version", gazetteerVersion),
		zap.Int("keys_deleted", deleted))
	return nil
}

// deleteMatching quét SCAN theo prefix và xóa theo lô
func (rcs *RedisCacheService) deleteMatching(ctx context.Context, match func(string) bool) (int, error) {
	iter := rcs.client.Scan(ctx, 0, rcs.prefix+"*", scanBatch).Iterator()
	batch := make([]string, 0, scanBatch)
	deleted := 0

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := rcs.client.Del(ctx, batch...).Err(); err != nil {
			return fmt.Errorf("lỗi xóa keys: %w", err)
		}
		deleted += len(batch)
		batch = batch[:0]
		return nil
	}

	for iter.Next(ctx) {
		if k := iter.Val(); match(k) {
			batch = append(batch, k)
		}
		if len(batch) >= scanBatch {
			if err := flush(); err != nil {
				return deleted, err
			}
		}
	}
	if err := iter.Err(); err != nil {
		return deleted, fmt.Errorf("lỗi SCAN Redis: %w", err)
	}
	return deleted, flush()
}

// GetStats lấy thống kê cache
func (rcs *RedisCacheService) GetStats(ctx context.Context) (*CacheStats, error) {
	var total int64
	iter := rcs.client.Scan(ctx, 0, rcs.prefix+"*", scanBatch).Iterator()
	for iter.Next(ctx) {
		total++
	}
	if err := iter.Err(); err != nil {
		rcs.logger.Warn("Không thể đếm keys Redis", zap.Error(err))
	}

	hits, misses := rcs.hits.Load(), rcs.misses.Load()
	return &CacheStats{
		HitRate:    hitRate(hits, misses),
		TotalHits:  hits,
		TotalMiss:  misses,
		TotalItems: total,
	}, nil
}

// Exists kiểm tra key có tồn tại không
func (rcs *RedisCacheService) Exists(ctx context.Context, key string) (bool, error) {
	n, err := rcs.client.Exists(ctx, rcs.prefix+key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// GetTTL lấy TTL của key
func (rcs *RedisCacheService) GetTTL(ctx context.Context, key string) (time.Duration, error) {
	return rcs.client.TTL(ctx, rcs.prefix+key).Result()
}

// Close đóng kết nối Redis
func (rcs *RedisCacheService) Close() error {
	return rcs.client.Close()
}
