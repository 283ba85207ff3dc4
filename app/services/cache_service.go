package services

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/address-resolver/app/models"
	lru "github.com/hashicorp/golang-lru/v2"
)

type memoryEntry struct {
	result   *models.AddressResult
	storedAt time.Time
}

// CacheService cache in-memory có giới hạn kích thước (LRU) và TTL
type CacheService struct {
	cache *lru.Cache[string, memoryEntry]
	ttl   time.Duration
	now   func() time.Time

	hits   atomic.Int64
	misses atomic.Int64
}

// NewCacheService tạo mới CacheService. ttl <= 0 nghĩa là không hết hạn.
func NewCacheService(size int, ttl time.Duration) (*CacheService, error) {
	if size <= 0 {
		size = 10000
	}
	cache, err := lru.New[string, memoryEntry](size)
	if err != nil {
		return nil, fmt.Errorf("không thể tạo LRU cache: %w", err)
	}
	return &CacheService{cache: cache, ttl: ttl, now: time.Now}, nil
}

// Get lấy kết quả từ cache
func (cs *CacheService) Get(ctx context.Context, key string) (*models.AddressResult, bool, error) {
	entry, ok := cs.cache.Get(key)
	if !ok {
		cs.misses.Add(1)
		return nil, false, nil
	}
	if cs.isExpired(entry) {
		cs.cache.Remove(key)
		cs.misses.Add(1)
		return nil, false, nil
	}
	cs.hits.Add(1)
	return entry.result, true, nil
}

// Set lưu kết quả vào cache
func (cs *CacheService) Set(ctx context.Context, key string, result *models.AddressResult) error {
	cs.cache.Add(key, memoryEntry{result: result, storedAt: cs.now()})
	return nil
}

// Delete xóa item khỏi cache
func (cs *CacheService) Delete(ctx context.Context, key string) error {
	cs.cache.Remove(key)
	return nil
}

// Clear xóa toàn bộ cache
func (cs *CacheService) Clear(ctx context.Context) error {
	cs.cache.Purge()
	return nil
}

// InvalidateByGazetteerVersion xóa các khóa thuộc phiên bản catalog khác
func (cs *CacheService) InvalidateByGazetteerVersion(ctx context.Context, gazetteerVersion string) error {
	for _, key := range cs.cache.Keys() {
		if keyVersion(key) != gazetteerVersion {
			cs.cache.Remove(key)
		}
	}
	return nil
}

// Size lấy kích thước cache
func (cs *CacheService) Size() int {
	return cs.cache.Len()
}

// GetStats lấy thống kê cache
func (cs *CacheService) GetStats(ctx context.Context) (*CacheStats, error) {
	hits, misses := cs.hits.Load(), cs.misses.Load()
	return &CacheStats{
		HitRate:    hitRate(hits, misses),
		TotalHits:  hits,
		TotalMiss:  misses,
		TotalItems: int64(cs.cache.Len()),
	}, nil
}

// CleanupExpired xóa các item hết hạn, trả về số item đã xóa
func (cs *CacheService) CleanupExpired() int {
	removed := 0
	for _, key := range cs.cache.Keys() {
		if entry, ok := cs.cache.Peek(key); ok && cs.isExpired(entry) {
			cs.cache.Remove(key)
			removed++
		}
	}
	return removed
}

func (cs *CacheService) isExpired(entry memoryEntry) bool {
	return cs.ttl > 0 && cs.now().Sub(entry.storedAt) > cs.ttl
}

// Exists kiểm tra key có tồn tại (và còn hạn) không
func (cs *CacheService) Exists(ctx context.Context, key string) (bool, error) {
	entry, ok := cs.cache.Peek(key)
	return ok && !cs.isExpired(entry), nil
}

// GetTTL lấy TTL còn lại của key
func (cs *CacheService) GetTTL(ctx context.Context, key string) (time.Duration, error) {
	entry, ok := cs.cache.Peek(key)
	if !ok || cs.ttl <= 0 {
		return 0, nil
	}
	remaining := cs.ttl - cs.now().Sub(entry.storedAt)
	if remaining < 0 {
		return 0, nil
	}
	return remaining, nil
}

// StartCleanupWorker dọn item hết hạn định kỳ cho tới khi ctx bị hủy
func (cs *CacheService) StartCleanupWorker(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				cs.CleanupExpired()
			}
		}
	}()
}

// Close đóng kết nối (không cần thiết cho in-memory cache)
func (cs *CacheService) Close() error {
	return nil
}
