package responses

import (
	"github.com/address-resolver/app/models"
	"github.com/address-resolver/app/services"
	"github.com/address-resolver/internal/catalog"
	"github.com/address-resolver/internal/resolver"
)

// Mã lỗi trả về cho client
const (
	CodeInvalidRequest   = "INVALID_REQUEST"
	CodeCatalogNotReady  = "CATALOG_NOT_READY"
	CodeJobNotFound      = "JOB_NOT_FOUND"
	CodeJobNotFinished   = "JOB_NOT_FINISHED"
	CodeJobFinished      = "JOB_FINISHED"
	CodeTooManyAddresses = "TOO_MANY_ADDRESSES"
	CodeExportError      = "EXPORT_ERROR"
	CodeSeedError        = "SEED_ERROR"
	CodeReviewNotFound   = "REVIEW_NOT_FOUND"
	CodeReviewClosed     = "REVIEW_CLOSED"
	CodeSearchDisabled   = "SEARCH_DISABLED"
	CodeSearchError      = "SEARCH_ERROR"
	CodeRateLimited      = "RATE_LIMITED"
	CodeInternalError    = "INTERNAL_ERROR"
	CodeNotFound         = "NOT_FOUND"
)

// ParseAddressResponse response parse địa chỉ đơn lẻ
type ParseAddressResponse struct {
	GazetteerVersion string                `json:"gazetteer_version"`  // Phiên bản catalog
	Result           *models.AddressResult `json:"result"`             // Kết quả resolve
	ProcessingTimeMs int64                 `json:"processing_time_ms"` // Thời gian xử lý (ms)
	CacheHit         bool                  `json:"cache_hit"`          // Có hit cache không
}

// BatchParseResponse response tạo batch job
type BatchParseResponse struct {
	JobID            string `json:"job_id"`            // ID của job
	EstimatedSeconds int    `json:"estimated_seconds"` // Thời gian ước tính (giây)
	TotalAddresses   int    `json:"total_addresses"`   // Tổng số địa chỉ
	Message          string `json:"message"`           // Thông báo
}

// JobStatusResponse response trạng thái job
type JobStatusResponse = services.JobStatus

// JobResultsResponse response kết quả job dạng JSON
type JobResultsResponse struct {
	JobID   string           `json:"job_id"`
	Status  string           `json:"status"`
	Summary resolver.Summary `json:"summary"`
	Results []resolver.Row   `json:"results"`
}

// SeedCatalogResponse response seed catalog
type SeedCatalogResponse struct {
	DryRun           bool                 `json:"dry_run"`                      // Có phải dry run không
	ValidationPassed bool                 `json:"validation_passed"`            // Validation có pass không
	Version          string               `json:"version,omitempty"`            // Nhãn phiên bản dữ liệu
	CatalogVersion   string               `json:"catalog_version"`              // Mã băm nội dung catalog
	Counts           map[string]int       `json:"counts"`                       // Số đơn vị theo cấp
	UnitsProcessed   int                  `json:"units_processed,omitempty"`    // Số đơn vị đã ghi
	IndexedDocuments int                  `json:"indexed_documents,omitempty"`  // Số document đã index
	Diagnostics      []catalog.Diagnostic `json:"diagnostics,omitempty"`        // Bản ghi bị bỏ qua
	Warnings         []string             `json:"warnings,omitempty"`           // Cảnh báo
	ProcessingTimeMs int64                `json:"processing_time_ms,omitempty"` // Thời gian xử lý (ms)
	Message          string               `json:"message"`                      // Thông báo
}

// ReviewListResponse response danh sách review
type ReviewListResponse struct {
	Reviews []models.AddressReview `json:"reviews"` // Danh sách review
	Total   int64                  `json:"total"`   // Tổng số review khớp bộ lọc
	Status  string                 `json:"status,omitempty"`
	Limit   int                    `json:"limit"`  // Giới hạn số lượng
	Offset  int                    `json:"offset"` // Offset
}

// ReviewActionResponse response thao tác review
type ReviewActionResponse struct {
	Success bool                  `json:"success"` // Thao tác có thành công không
	Action  string                `json:"action"`  // approve | reject
	Review  *models.AddressReview `json:"review"`  // Review sau khi cập nhật
	Message string                `json:"message"` // Thông báo
}

// SearchHit một đơn vị tìm được
type SearchHit struct {
	Code     string   `json:"code"`
	Name     string   `json:"name"`
	Level    string   `json:"level"`
	ParentID string   `json:"parent_id,omitempty"`
	Path     []string `json:"path,omitempty"`
	Score    float64  `json:"score"`
}

// SearchResponse response tìm kiếm đơn vị hành chính
type SearchResponse struct {
	Query string      `json:"query"`
	Hits  []SearchHit `json:"hits"`
	Total int         `json:"total"`
}

// ErrorResponse response lỗi
type ErrorResponse struct {
	Error     string      `json:"error"`                // Mã lỗi
	Message   string      `json:"message"`              // Thông báo lỗi
	Details   interface{} `json:"details,omitempty"`    // Chi tiết lỗi
	Timestamp string      `json:"timestamp"`            // Thời gian xảy ra lỗi
	RequestID string      `json:"request_id,omitempty"` // ID của request
}

// SuccessResponse response thành công
type SuccessResponse struct {
	Success   bool        `json:"success"`        // Có thành công không
	Message   string      `json:"message"`        // Thông báo
	Data      interface{} `json:"data,omitempty"` // Dữ liệu
	Timestamp string      `json:"timestamp"`      // Thời gian
}

// HealthCheckResponse response kiểm tra sức khỏe
type HealthCheckResponse struct {
	Status         string            `json:"status"`                    // healthy | not_ready
	Timestamp      string            `json:"timestamp"`                 // Thời gian kiểm tra
	Uptime         string            `json:"uptime"`                    // Thời gian hoạt động
	Version        string            `json:"version"`                   // Phiên bản ứng dụng
	CatalogVersion string            `json:"catalog_version,omitempty"` // Phiên bản catalog
	Services       map[string]string `json:"services,omitempty"`        // Trạng thái các thành phần
}
