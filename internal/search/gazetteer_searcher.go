package search

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/address-resolver/internal/catalog"
	"github.com/meilisearch/meilisearch-go"
	"go.uber.org/zap"
)

const (
	defaultLimit = 10
	maxLimit     = 100
	batchSize    = 1000
)

// ErrEmptyQuery truy vấn rỗng sau chuẩn hóa
var ErrEmptyQuery = errors.New("query không được để trống")

// SearchConfig cấu hình cho Meilisearch
type SearchConfig struct {
	Host      string
	APIKey    string
	IndexName string
	Timeout   time.Duration
}

// Document bản ghi đơn vị hành chính trong index
type Document struct {
	ID             string   `json:"id"`
	AdminID        string   `json:"admin_id"`
	Name           string   `json:"name"`
	NormalizedName string   `json:"normalized_name"`
	CoreName       string   `json:"core_name"`
	Level          int      `json:"level"`
	LevelName      string   `json:"level_name"`
	ParentID       string   `json:"parent_id,omitempty"`
	ProvinceID     string   `json:"province_id"`
	Path           []string `json:"path"`
}

// Hit một kết quả tìm kiếm
type Hit struct {
	AdminID  string        `json:"admin_id"`
	Name     string        `json:"name"`
	Level    catalog.Level `json:"level"`
	ParentID string        `json:"parent_id,omitempty"`
	Path     []string      `json:"path,omitempty"`
	Score    float64       `json:"score"`
}

// GazetteerSearcher searcher tìm kiếm trong gazetteer sử dụng Meilisearch
type GazetteerSearcher struct {
	client    meilisearch.ServiceManager
	logger    *zap.Logger
	indexName string
	normalize func(string) string
}

// NewGazetteerSearcher tạo mới GazetteerSearcher và kiểm tra kết nối.
// normalize được áp dụng cho truy vấn; nil thì giữ nguyên.
func NewGazetteerSearcher(config SearchConfig, normalize func(string) string, logger *zap.Logger) (*GazetteerSearcher, error) {
	if config.Timeout <= 0 {
		config.Timeout = 5 * time.Second
	}
	client := meilisearch.New(config.Host,
		meilisearch.WithAPIKey(config.APIKey),
		meilisearch.WithCustomClient(&http.Client{Timeout: config.Timeout}))

	if _, err := client.Health(); err != nil {
		return nil, fmt.Errorf("không thể kết nối Meilisearch: %w", err)
	}

	return newSearcher(client, config, normalize, logger), nil
}

func newSearcher(client meilisearch.ServiceManager, config SearchConfig, normalize func(string) string, logger *zap.Logger) *GazetteerSearcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if normalize == nil {
		normalize = func(s string) string { return s }
	}
	return &GazetteerSearcher{
		client:    client,
		logger:    logger,
		indexName: config.IndexName,
		normalize: normalize,
	}
}

// IndexName tên index đang dùng
func (gs *GazetteerSearcher) IndexName() string {
	return gs.indexName
}

// BuildIndexes cấu hình index; synonyms lấy từ bảng alias của normalizer.
func (gs *GazetteerSearcher) BuildIndexes(aliases map[string]string) error {
	index := gs.client.Index(gs.indexName)

	task, err := index.UpdateSettings(&meilisearch.Settings{
		SearchableAttributes: []string{"name", "normalized_name", "core_name"},
		FilterableAttributes: []string{"admin_id", "level", "parent_id", "province_id"},
		SortableAttributes:   []string{"level", "admin_id"},
		RankingRules:         []string{"words", "typo", "proximity", "attribute", "sort", "exactness"},
		Synonyms:             Synonyms(aliases),
		TypoTolerance: &meilisearch.TypoTolerance{
			Enabled: true,
			MinWordSizeForTypos: meilisearch.MinWordSizeForTypos{
				OneTypo:  3,
				TwoTypos: 7,
			},
		},
	})
	if err != nil {
		return fmt.Errorf("lỗi cấu hình index: %w", err)
	}

	gs.logger.Info("Đã cấu hình index Meilisearch thành công",
		zap.String("index", gs.indexName),
		zap.Int64("task_uid", task.TaskUID))
	return nil
}

// Synonyms chuyển bảng alias (viết tắt -> tên đầy đủ) thành synonyms hai chiều.
func Synonyms(aliases map[string]string) map[string][]string {
	out := make(map[string][]string, len(aliases)*2)
	for from, to := range aliases {
		if from == "" || to == "" || from == to {
			continue
		}
		out[from] = appendUnique(out[from], to)
		out[to] = appendUnique(out[to], from)
	}
	return out
}

func appendUnique(list []string, s string) []string {
	for _, v := range list {
		if v == s {
			return list
		}
	}
	return append(list, s)
}

// Documents chuyển catalog thành documents, theo thứ tự của catalog.
func Documents(cat *catalog.Catalog) []Document {
	units := cat.Units()
	docs := make([]Document, 0, len(units))
	for _, u := range units {
		path := cat.Path(u)
		names := make([]string, len(path))
		for i, p := range path {
			names[i] = p.Name
		}
		provinceID := ""
		if p := cat.ProvinceOf(u); p != nil {
			provinceID = p.Code
		}
		docs = append(docs, Document{
			ID:             u.Code,
			AdminID:        u.Code,
			Name:           u.Name,
			NormalizedName: u.NameNormalized,
			CoreName:       u.CoreName,
			Level:          int(u.Level),
			LevelName:      u.Level.String(),
			ParentID:       u.ParentCode,
			ProvinceID:     provinceID,
			Path:           names,
		})
	}
	return docs
}

// IndexCatalog nạp toàn bộ catalog vào index theo lô, trả về số documents.
func (gs *GazetteerSearcher) IndexCatalog(cat *catalog.Catalog) (int, error) {
	if !cat.Ready() {
		return 0, errors.New("catalog rỗng, không có dữ liệu để index")
	}

	index := gs.client.Index(gs.indexName)
	docs := Documents(cat)

	for i := 0; i < len(docs); i += batchSize {
		end := i + batchSize
		if end > len(docs) {
			end = len(docs)
		}

		task, err := index.AddDocuments(docs[i:end], "id")
		if err != nil {
			return i, fmt.Errorf("lỗi thêm documents batch %d-%d: %w", i, end, err)
		}

		gs.logger.Info("Đã thêm batch documents",
			zap.Int("from", i),
			zap.Int("to", end),
			zap.Int64("task_uid", task.TaskUID))
	}

	gs.logger.Info("Đã index catalog thành công",
		zap.Int("total_documents", len(docs)),
		zap.String("catalog_version", cat.Version()))
	return len(docs), nil
}

// Search tìm đơn vị theo tên, lọc theo cấp và mã cha nếu có.
func (gs *GazetteerSearcher) Search(ctx context.Context, query string, level catalog.Level, parentID string, limit int) ([]Hit, error) {
	q := gs.normalize(query)
	if q == "" {
		return nil, ErrEmptyQuery
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	req := &meilisearch.SearchRequest{
		Limit:            int64(limit),
		ShowRankingScore: true,
	}
	if filter := FilterLevelParent(level, parentID); filter != "" {
		req.Filter = filter
	}

	start := time.Now()
	result, err := gs.client.Index(gs.indexName).Search(q, req)
	if err != nil {
		return nil, fmt.Errorf("lỗi tìm kiếm Meilisearch: %w", err)
	}

	hits := parseHits(result.Hits)
	gs.logger.Debug("Tìm kiếm đơn vị hành chính",
		zap.String("query", q),
		zap.Int("hits", len(hits)),
		zap.Duration("duration", time.Since(start)))
	return hits, nil
}

// parseHits đọc hits dạng map từ Meilisearch
func parseHits(raw []interface{}) []Hit {
	hits := make([]Hit, 0, len(raw))
	for _, h := range raw {
		hitMap, ok := h.(map[string]interface{})
		if !ok {
			continue
		}

		var hit Hit
		if id, ok := hitMap["admin_id"].(string); ok {
			hit.AdminID = id
		}
		if name, ok := hitMap["name"].(string); ok {
			hit.Name = name
		}
		if parentID, ok := hitMap["parent_id"].(string); ok {
			hit.ParentID = parentID
		}
		if level, ok := hitMap["level"].(float64); ok {
			hit.Level = catalog.Level(int(level))
		}
		if score, ok := hitMap["_rankingScore"].(float64); ok {
			hit.Score = score
		}
		if pathRaw, ok := hitMap["path"].([]interface{}); ok {
			for _, p := range pathRaw {
				if s, ok := p.(string); ok {
					hit.Path = append(hit.Path, s)
				}
			}
		}
		if hit.AdminID == "" {
			continue
		}
		hits = append(hits, hit)
	}
	return hits
}
