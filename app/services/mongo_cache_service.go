package services

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/address-resolver/app/models"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// MongoCacheService persistent cache service sử dụng MongoDB + LRU in-memory
type MongoCacheService struct {
	collection *mongo.Collection
	l1Cache    *lru.Cache[string, *models.AddressResult]
	ttl        time.Duration
	logger     *zap.Logger

	l1Hits    atomic.Int64
	mongoHits atomic.Int64
	misses    atomic.Int64
}

// NewMongoCacheService tạo mới MongoCacheService và đảm bảo indexes
func NewMongoCacheService(db *mongo.Database, l1Size int, ttl time.Duration, logger *zap.Logger) (*MongoCacheService, error) {
	if l1Size <= 0 {
		l1Size = 10000
	}
	l1Cache, err := lru.New[string, *models.AddressResult](l1Size)
	if err != nil {
		return nil, fmt.Errorf("không thể tạo LRU cache: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	collection := db.Collection("address_cache")

	indexModels := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "raw_fingerprint", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "gazetteer_version", Value: 1}},
		},
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := collection.Indexes().CreateMany(ctx, indexModels); err != nil {
		logger.Warn("Không thể tạo indexes cho address_cache", zap.Error(err))
	}

	return &MongoCacheService{
		collection: collection,
		l1Cache:    l1Cache,
		ttl:        ttl,
		logger:     logger,
	}, nil
}

// Get lấy địa chỉ từ cache (L1 → MongoDB)
func (mcs *MongoCacheService) Get(ctx context.Context, key string) (*models.AddressResult, bool, error) {
	if result, found := mcs.l1Cache.Get(key); found {
		mcs.l1Hits.Add(1)
		return result, true, nil
	}

	var entry models.AddressCache
	err := mcs.collection.FindOne(ctx, bson.M{"raw_fingerprint": fingerprint(key)}).Decode(&entry)
	if errors.Is(err, mongo.ErrNoDocuments) {
		mcs.misses.Add(1)
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("lỗi query MongoDB cache: %w", err)
	}
	// TTL index của Mongo xóa trễ, nên vẫn kiểm tra hạn
	if entry.IsExpired(time.Now()) {
		mcs.misses.Add(1)
		return nil, false, nil
	}

	mcs.mongoHits.Add(1)
	go mcs.updateAccessStats(entry.ID)

	mcs.l1Cache.Add(key, &entry.ParsedResult)
	return &entry.ParsedResult, true, nil
}

// Set lưu địa chỉ vào cache (L1 + MongoDB)
func (mcs *MongoCacheService) Set(ctx context.Context, key string, result *models.AddressResult) error {
	mcs.l1Cache.Add(key, result)

	fp := fingerprint(key)
	entry := models.NewAddressCache(key, fp, *result, mcs.ttl)
	entry.GazetteerVersion = keyVersion(key)

	opts := options.Replace().SetUpsert(true)
	if _, err := mcs.collection.ReplaceOne(ctx, bson.M{"raw_fingerprint": fp}, entry, opts); err != nil {
		mcs.logger.Error("Lỗi lưu vào MongoDB cache",
			zap.Error(err),
			zap.String("fingerprint", fp))
		return fmt.Errorf("lỗi lưu vào MongoDB cache: %w", err)
	}
	return nil
}

// Delete xóa địa chỉ khỏi cache
func (mcs *MongoCacheService) Delete(ctx context.Context, key string) error {
	mcs.l1Cache.Remove(key)

	if _, err := mcs.collection.DeleteOne(ctx, bson.M{"raw_fingerprint": fingerprint(key)}); err != nil {
		return fmt.Errorf("lỗi xóa khỏi MongoDB cache: %w", err)
	}
	return nil
}

// Clear xóa tất cả cache
func (mcs *MongoCacheService) Clear(ctx context.Context) error {
	mcs.l1Cache.Purge()

	if _, err := mcs.collection.DeleteMany(ctx, bson.M{}); err != nil {
		return fmt.Errorf("lỗi clear MongoDB cache: %w", err)
	}
	return nil
}

// InvalidateByGazetteerVersion xóa records có gazetteer_version khác phiên bản hiện tại
func (mcs *MongoCacheService) InvalidateByGazetteerVersion(ctx context.Context, gazetteerVersion string) error {
	for _, key := range mcs.l1Cache.Keys() {
		if keyVersion(key) != gazetteerVersion {
			mcs.l1Cache.Remove(key)
		}
	}

	result, err := mcs.collection.DeleteMany(ctx, bson.M{"gazetteer_version": bson.M{"$ne": gazetteerVersion}})
	if err != nil {
		return fmt.Errorf("lỗi invalidate cache theo gazetteer version: %w", err)
	}

	mcs.logger.Info("Đã invalidate cache",
		zap.String("gazetteer_version", gazetteerVersion),
		zap.Int64("deleted_count", result.DeletedCount))
	return nil
}

// GetStats lấy thống kê cache
func (mcs *MongoCacheService) GetStats(ctx context.Context) (*CacheStats, error) {
	mongoCount, err := mcs.collection.EstimatedDocumentCount(ctx)
	if err != nil {
		return nil, fmt.Errorf("lỗi đếm documents trong MongoDB cache: %w", err)
	}

	hits := mcs.l1Hits.Load() + mcs.mongoHits.Load()
	misses := mcs.misses.Load()

	mcs.logger.Debug("Cache stats",
		zap.Int64("l1_hits", mcs.l1Hits.Load()),
		zap.Int64("mongo_hits", mcs.mongoHits.Load()),
		zap.Int("l1_size", mcs.l1Cache.Len()),
		zap.Int64("mongo_count", mongoCount))

	return &CacheStats{
		HitRate:    hitRate(hits, misses),
		TotalHits:  hits,
		TotalMiss:  misses,
		TotalItems: mongoCount,
	}, nil
}

// Exists kiểm tra key có tồn tại không
func (mcs *MongoCacheService) Exists(ctx context.Context, key string) (bool, error) {
	if mcs.l1Cache.Contains(key) {
		return true, nil
	}

	count, err := mcs.collection.CountDocuments(ctx, bson.M{"raw_fingerprint": fingerprint(key)})
	if err != nil {
		return false, fmt.Errorf("lỗi check exists trong MongoDB: %w", err)
	}
	return count > 0, nil
}

// GetTTL lấy TTL còn lại của key theo expires_at
func (mcs *MongoCacheService) GetTTL(ctx context.Context, key string) (time.Duration, error) {
	var entry models.AddressCache
	err := mcs.collection.FindOne(ctx, bson.M{"raw_fingerprint": fingerprint(key)},
		options.FindOne().SetProjection(bson.M{"expires_at": 1})).Decode(&entry)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if remaining := time.Until(entry.ExpiresAt); remaining > 0 {
		return remaining, nil
	}
	return 0, nil
}

// Close đóng kết nối; MongoDB client do caller quản lý
func (mcs *MongoCacheService) Close() error {
	return nil
}

// fingerprint sinh fingerprint cho cache key
func fingerprint(key string) string {
	return fmt.Sprintf("sha256:%x", sha256.Sum256([]byte(key)))
}

// updateAccessStats cập nhật thống kê truy cập (async)
func (mcs *MongoCacheService) updateAccessStats(id primitive.ObjectID) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	update := bson.M{
		"$set": bson.M{"last_accessed": time.Now()},
		"$inc": bson.M{"access_count": 1},
	}
	if _, err := mcs.collection.UpdateOne(ctx, bson.M{"_id": id}, update); err != nil {
		mcs.logger.Warn("Lỗi update access stats", zap.Error(err))
	}
}

// WarmUp nạp các mục được truy cập nhiều nhất của phiên bản hiện tại vào L1
func (mcs *MongoCacheService) WarmUp(ctx context.Context, gazetteerVersion string, limit int) (int, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "access_count", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := mcs.collection.Find(ctx, bson.M{"gazetteer_version": gazetteerVersion}, opts)
	if err != nil {
		return 0, fmt.Errorf("lỗi warm up cache: %w", err)
	}
	defer cursor.Close(ctx)

	count := 0
	for cursor.Next(ctx) {
		var entry models.AddressCache
		if err := cursor.Decode(&entry); err != nil {
			mcs.logger.Warn("Lỗi decode cache entry trong warm up", zap.Error(err))
			continue
		}
		result := entry.ParsedResult
		mcs.l1Cache.Add(entry.CacheKey, &result)
		count++
	}

	mcs.logger.Info("Cache warm up hoàn thành",
		zap.Int("loaded_items", count),
		zap.Int("l1_size", mcs.l1Cache.Len()))
	return count, cursor.Err()
}
