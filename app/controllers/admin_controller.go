package controllers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/address-resolver/app/models"
	"github.com/address-resolver/app/requests"
	"github.com/address-resolver/app/responses"
	"github.com/address-resolver/app/services"
	"github.com/address-resolver/internal/catalog"
	"github.com/address-resolver/internal/search"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// UnitSearcher tìm đơn vị hành chính theo tên
type UnitSearcher interface {
	Search(ctx context.Context, query string, level catalog.Level, parentID string, limit int) ([]search.Hit, error)
}

// AdminController controller xử lý các request admin
type AdminController struct {
	adminService *services.AdminService
	reviews      services.ReviewQueue
	searcher     UnitSearcher
	logger       *zap.Logger
}

// NewAdminController tạo mới AdminController. reviews và searcher có thể nil.
func NewAdminController(adminService *services.AdminService, reviews services.ReviewQueue, searcher UnitSearcher, logger *zap.Logger) *AdminController {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminController{
		adminService: adminService,
		reviews:      reviews,
		searcher:     searcher,
		logger:       logger,
	}
}

// SeedCatalog seed catalog; ?dry_run=true chỉ kiểm tra dữ liệu
func (ac *AdminController) SeedCatalog(c *gin.Context) {
	var req requests.SeedCatalogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, responses.CodeInvalidRequest, "Request không hợp lệ: "+err.Error(), nil)
		return
	}
	records := req.AllRecords()

	if c.Query("dry_run") == "true" {
		validation := ac.adminService.ValidateCatalog(records)
		c.JSON(http.StatusOK, responses.SeedCatalogResponse{
			DryRun:           true,
			ValidationPassed: validation.Passed,
			CatalogVersion:   validation.Version,
			Counts:           validation.Counts,
			Diagnostics:      validation.Diagnostics,
			Warnings:         validation.Warnings,
			Message:          "Validation hoàn thành",
		})
		return
	}

	result, err := ac.adminService.SeedCatalog(c.Request.Context(), req.Version, records, req.RebuildIndexes)
	if err != nil {
		ac.logger.Error("Lỗi seed catalog", zap.Error(err))
		status := http.StatusInternalServerError
		if errors.Is(err, services.ErrEmptyCatalog) {
			status = http.StatusBadRequest
		}
		respondError(c, status, responses.CodeSeedError, "Lỗi seed catalog: "+err.Error(), nil)
		return
	}

	c.JSON(http.StatusOK, responses.SeedCatalogResponse{
		ValidationPassed: len(result.Warnings) == 0,
		Version:          result.Version,
		CatalogVersion:   result.CatalogVersion,
		Counts:           result.Counts,
		UnitsProcessed:   result.UnitsProcessed,
		IndexedDocuments: result.IndexedDocuments,
		Warnings:         result.Warnings,
		ProcessingTimeMs: result.ProcessingTimeMs,
		Message:          "Seed catalog thành công",
	})
}

// ReloadCatalog nạp lại catalog từ nguồn lưu trữ
func (ac *AdminController) ReloadCatalog(c *gin.Context) {
	cat, err := ac.adminService.ReloadCatalog(c.Request.Context())
	if err != nil {
		ac.logger.Error("Lỗi reload catalog", zap.Error(err))
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, responses.SuccessResponse{
		Success: true,
		Message: "Đã nạp lại catalog",
		Data: gin.H{
			"catalog_version": cat.Version(),
			"counts":          services.LevelCounts(cat),
		},
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

// BuildIndexes index lại catalog lên Meilisearch
func (ac *AdminController) BuildIndexes(c *gin.Context) {
	startTime := time.Now()
	indexed, err := ac.adminService.BuildIndexes(c.Request.Context())
	if err != nil {
		ac.logger.Error("Lỗi build indexes", zap.Error(err))
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, responses.SuccessResponse{
		Success: true,
		Message: "Build indexes thành công",
		Data: gin.H{
			"indexed_documents":  indexed,
			"processing_time_ms": time.Since(startTime).Milliseconds(),
		},
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

// InvalidateCache xóa cache của các phiên bản catalog cũ
func (ac *AdminController) InvalidateCache(c *gin.Context) {
	version, err := ac.adminService.InvalidateCache(c.Request.Context())
	if err != nil {
		ac.logger.Error("Lỗi invalidate cache", zap.Error(err))
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, responses.SuccessResponse{
		Success:   true,
		Message:   "Đã invalidate cache",
		Data:      gin.H{"catalog_version": version},
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

// GetStats lấy thống kê hệ thống
func (ac *AdminController) GetStats(c *gin.Context) {
	stats, err := ac.adminService.GetSystemStats(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// ListReviews liệt kê review theo trạng thái
func (ac *AdminController) ListReviews(c *gin.Context) {
	if ac.reviews == nil {
		c.JSON(http.StatusOK, responses.ReviewListResponse{Reviews: []models.AddressReview{}})
		return
	}

	status := c.Query("status")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	reviews, total, err := ac.reviews.List(c.Request.Context(), status, limit, offset)
	if err != nil {
		ac.logger.Error("Lỗi lấy danh sách review", zap.Error(err))
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, responses.ReviewListResponse{
		Reviews: reviews,
		Total:   total,
		Status:  status,
		Limit:   limit,
		Offset:  offset,
	})
}

// ApproveReview duyệt review
func (ac *AdminController) ApproveReview(c *gin.Context) {
	ac.reviewAction(c, "approve")
}

// RejectReview từ chối review
func (ac *AdminController) RejectReview(c *gin.Context) {
	ac.reviewAction(c, "reject")
}

func (ac *AdminController) reviewAction(c *gin.Context, action string) {
	var req requests.ReviewActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, responses.CodeInvalidRequest, "Request không hợp lệ: "+err.Error(), nil)
		return
	}
	if ac.reviews == nil {
		respondServiceError(c, services.ErrReviewNotFound)
		return
	}

	var (
		review *models.AddressReview
		err    error
	)
	id := c.Param("id")
	switch action {
	case "approve":
		review, err = ac.reviews.Approve(c.Request.Context(), id, req.ReviewerID, req.SelectedCode, req.Note)
	default:
		review, err = ac.reviews.Reject(c.Request.Context(), id, req.ReviewerID, req.Note)
	}
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, responses.ReviewActionResponse{
		Success: true,
		Action:  action,
		Review:  review,
		Message: "Đã cập nhật review",
	})
}

// SearchUnits tìm đơn vị hành chính qua Meilisearch
func (ac *AdminController) SearchUnits(c *gin.Context) {
	if ac.searcher == nil {
		respondServiceError(c, services.ErrSearchDisabled)
		return
	}

	query := c.Query("q")
	level := catalog.LevelUnknown
	if raw := c.Query("level"); raw != "" {
		parsed, ok := catalog.ParseLevel(raw)
		if !ok {
			respondError(c, http.StatusBadRequest, responses.CodeInvalidRequest, "level không hợp lệ: "+raw, nil)
			return
		}
		level = parsed
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	hits, err := ac.searcher.Search(c.Request.Context(), query, level, c.Query("parent_id"), limit)
	if err != nil {
		if errors.Is(err, search.ErrEmptyQuery) {
			respondError(c, http.StatusBadRequest, responses.CodeInvalidRequest, err.Error(), nil)
			return
		}
		ac.logger.Error("Lỗi search admin units", zap.Error(err), zap.String("query", query))
		respondError(c, http.StatusBadGateway, responses.CodeSearchError, err.Error(), nil)
		return
	}

	out := make([]responses.SearchHit, 0, len(hits))
	for _, h := range hits {
		out = append(out, responses.SearchHit{
			Code:     h.AdminID,
			Name:     h.Name,
			Level:    h.Level.String(),
			ParentID: h.ParentID,
			Path:     h.Path,
			Score:    h.Score,
		})
	}
	c.JSON(http.StatusOK, responses.SearchResponse{Query: query, Hits: out, Total: len(out)})
}
