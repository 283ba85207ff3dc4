package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/address-resolver/app/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

var (
	// ErrReviewNotFound không có review với ID này
	ErrReviewNotFound = errors.New("không tìm thấy review")
	// ErrReviewClosed review đã được duyệt hoặc từ chối
	ErrReviewClosed = errors.New("review đã được xử lý")
)

// ReviewQueue hàng đợi các địa chỉ cần người kiểm tra
type ReviewQueue interface {
	// Enqueue thêm review mới, gán ID
	Enqueue(ctx context.Context, review *models.AddressReview) error

	// List liệt kê theo trạng thái (rỗng = tất cả), mới nhất trước
	List(ctx context.Context, status string, limit, offset int) ([]models.AddressReview, int64, error)

	// Approve duyệt review đang chờ
	Approve(ctx context.Context, id, reviewerID, selectedCode, note string) (*models.AddressReview, error)

	// Reject từ chối review đang chờ
	Reject(ctx context.Context, id, reviewerID, note string) (*models.AddressReview, error)
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// MongoReviewQueue review queue trên collection address_review
type MongoReviewQueue struct {
	collection *mongo.Collection
	logger     *zap.Logger
}

// NewMongoReviewQueue tạo mới MongoReviewQueue và đảm bảo indexes
func NewMongoReviewQueue(db *mongo.Database, logger *zap.Logger) *MongoReviewQueue {
	if logger == nil {
		logger = zap.NewNop()
	}
	collection := db.Collection("address_review")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "gazetteer_version", Value: 1}}},
	})
	if err != nil {
		logger.Warn("Không thể tạo indexes cho address_review", zap.Error(err))
	}

	return &MongoReviewQueue{collection: collection, logger: logger}
}

// Enqueue insert review
func (q *MongoReviewQueue) Enqueue(ctx context.Context, review *models.AddressReview) error {
	if review.ID.IsZero() {
		review.ID = primitive.NewObjectID()
	}
	if _, err := q.collection.InsertOne(ctx, review); err != nil {
		return fmt.Errorf("lỗi lưu review: %w", err)
	}
	return nil
}

// List liệt kê review có phân trang
func (q *MongoReviewQueue) List(ctx context.Context, status string, limit, offset int) ([]models.AddressReview, int64, error) {
	limit, offset = clampPage(limit, offset)

	filter := bson.M{}
	if status != "" {
		filter["status"] = status
	}

	total, err := q.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("lỗi đếm review: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))
	cursor, err := q.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("lỗi query review: %w", err)
	}
	defer cursor.Close(ctx)

	reviews := make([]models.AddressReview, 0, limit)
	if err := cursor.All(ctx, &reviews); err != nil {
		return nil, 0, fmt.Errorf("lỗi decode review: %w", err)
	}
	return reviews, total, nil
}

// Approve duyệt review
func (q *MongoReviewQueue) Approve(ctx context.Context, id, reviewerID, selectedCode, note string) (*models.AddressReview, error) {
	return q.complete(ctx, id, func(r *models.AddressReview) {
		r.Approve(reviewerID, selectedCode, note)
	})
}

// Reject từ chối review
func (q *MongoReviewQueue) Reject(ctx context.Context, id, reviewerID, note string) (*models.AddressReview, error) {
	return q.complete(ctx, id, func(r *models.AddressReview) {
		r.Reject(reviewerID, note)
	})
}

// complete chỉ cập nhật khi review còn pending
func (q *MongoReviewQueue) complete(ctx context.Context, id string, apply func(*models.AddressReview)) (*models.AddressReview, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrReviewNotFound
	}

	var review models.AddressReview
	if err := q.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&review); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrReviewNotFound
		}
		return nil, fmt.Errorf("lỗi đọc review: %w", err)
	}
	if !review.IsPending() {
		return nil, ErrReviewClosed
	}

	apply(&review)
	update := bson.M{"$set": bson.M{
		"status":        review.Status,
		"selected_code": review.SelectedCode,
		"reviewer_id":   review.ReviewerID,
		"note":          review.Note,
		"reviewed_at":   review.ReviewedAt,
	}}
	res, err := q.collection.UpdateOne(ctx, bson.M{"_id": oid, "status": models.ReviewStatusPending}, update)
	if err != nil {
		return nil, fmt.Errorf("lỗi cập nhật review: %w", err)
	}
	if res.MatchedCount == 0 {
		return nil, ErrReviewClosed
	}

	q.logger.Info("Đã xử lý review",
		zap.String("id", id),
		zap.String("status", review.Status),
		zap.String("reviewer_id", review.ReviewerID))
	return &review, nil
}

// MemoryReviewQueue review queue trong bộ nhớ, dùng khi không có MongoDB
type MemoryReviewQueue struct {
	mu      sync.Mutex
	reviews map[primitive.ObjectID]*models.AddressReview
}

// NewMemoryReviewQueue tạo mới MemoryReviewQueue
func NewMemoryReviewQueue() *MemoryReviewQueue {
	return &MemoryReviewQueue{reviews: make(map[primitive.ObjectID]*models.AddressReview)}
}

// Enqueue lưu bản sao của review
func (q *MemoryReviewQueue) Enqueue(_ context.Context, review *models.AddressReview) error {
	if review.ID.IsZero() {
		review.ID = primitive.NewObjectID()
	}
	cp := *review

	q.mu.Lock()
	q.reviews[cp.ID] = &cp
	q.mu.Unlock()
	return nil
}

// List liệt kê review, mới nhất trước
func (q *MemoryReviewQueue) List(_ context.Context, status string, limit, offset int) ([]models.AddressReview, int64, error) {
	limit, offset = clampPage(limit, offset)

	q.mu.Lock()
	matched := make([]models.AddressReview, 0, len(q.reviews))
	for _, r := range q.reviews {
		if status == "" || r.Status == status {
			matched = append(matched, *r)
		}
	}
	q.mu.Unlock()

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID.Hex() > matched[j].ID.Hex()
	})

	total := int64(len(matched))
	if offset >= len(matched) {
		return []models.AddressReview{}, total, nil
	}
	matched = matched[offset:]
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, total, nil
}

// Approve duyệt review
func (q *MemoryReviewQueue) Approve(_ context.Context, id, reviewerID, selectedCode, note string) (*models.AddressReview, error) {
	return q.complete(id, func(r *models.AddressReview) {
		r.Approve(reviewerID, selectedCode, note)
	})
}

// Reject từ chối review
func (q *MemoryReviewQueue) Reject(_ context.Context, id, reviewerID, note string) (*models.AddressReview, error) {
	return q.complete(id, func(r *models.AddressReview) {
		r.Reject(reviewerID, note)
	})
}

func (q *MemoryReviewQueue) complete(id string, apply func(*models.AddressReview)) (*models.AddressReview, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrReviewNotFound
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	r, ok := q.reviews[oid]
	if !ok {
		return nil, ErrReviewNotFound
	}
	if !r.IsPending() {
		return nil, ErrReviewClosed
	}
	apply(r)
	cp := *r
	return &cp, nil
}
