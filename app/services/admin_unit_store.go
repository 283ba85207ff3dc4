package services

import (
	"context"
	"fmt"
	"time"

	"github.com/address-resolver/app/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const insertBatch = 1000

// AdminUnitStore nơi lưu bền các đơn vị hành chính của catalog
type AdminUnitStore interface {
	// Replace thay toàn bộ đơn vị bằng bộ mới
	Replace(ctx context.Context, units []models.AdminUnit) error

	// LoadAll đọc mọi đơn vị theo thứ tự catalog
	LoadAll(ctx context.Context) ([]models.AdminUnit, error)

	// CollectionCounts số document của các collection dịch vụ
	CollectionCounts(ctx context.Context) (map[string]int64, error)
}

// MongoAdminUnitStore lưu đơn vị hành chính trong collection admin_units
type MongoAdminUnitStore struct {
	db         *mongo.Database
	collection *mongo.Collection
	logger     *zap.Logger
}

// NewMongoAdminUnitStore tạo store và đảm bảo indexes
func NewMongoAdminUnitStore(db *mongo.Database, logger *zap.Logger) *MongoAdminUnitStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	collection := db.Collection("admin_units")

	indexModels := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "admin_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "parent_id", Value: 1}}},
		{Keys: bson.D{{Key: "level", Value: 1}, {Key: "province_id", Value: 1}}},
		{Keys: bson.D{{Key: "seq", Value: 1}}},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := collection.Indexes().CreateMany(ctx, indexModels); err != nil {
		logger.Warn("Không thể tạo indexes cho admin_units", zap.Error(err))
	}

	return &MongoAdminUnitStore{db: db, collection: collection, logger: logger}
}

// Replace xóa dữ liệu cũ rồi insert theo lô
func (s *MongoAdminUnitStore) Replace(ctx context.Context, units []models.AdminUnit) error {
	deleted, err := s.collection.DeleteMany(ctx, bson.M{})
	if err != nil {
		return fmt.Errorf("lỗi xóa admin_units cũ: %w", err)
	}

	for start := 0; start < len(units); start += insertBatch {
		end := start + insertBatch
		if end > len(units) {
			end = len(units)
		}
		docs := make([]interface{}, 0, end-start)
		for i := start; i < end; i++ {
			docs = append(docs, units[i])
		}
		if _, err := s.collection.InsertMany(ctx, docs); err != nil {
			return fmt.Errorf("lỗi insert admin_units: %w", err)
		}
	}

	s.logger.Info("Đã ghi admin_units",
		zap.Int64("deleted", deleted.DeletedCount),
		zap.Int("inserted", len(units)))
	return nil
}

// LoadAll đọc toàn bộ admin_units theo seq
func (s *MongoAdminUnitStore) LoadAll(ctx context.Context) ([]models.AdminUnit, error) {
	cursor, err := s.collection.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "seq", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("lỗi query admin_units: %w", err)
	}
	defer cursor.Close(ctx)

	var units []models.AdminUnit
	if err := cursor.All(ctx, &units); err != nil {
		return nil, fmt.Errorf("lỗi decode admin_units: %w", err)
	}
	return units, nil
}

// CollectionCounts đếm ước lượng các collection
func (s *MongoAdminUnitStore) CollectionCounts(ctx context.Context) (map[string]int64, error) {
	counts := make(map[string]int64, 3)
	for _, name := range []string{"admin_units", "address_cache", "address_review"} {
		n, err := s.db.Collection(name).EstimatedDocumentCount(ctx)
		if err != nil {
			return counts, fmt.Errorf("lỗi đếm %s: %w", name, err)
		}
		counts[name] = n
	}
	return counts, nil
}
