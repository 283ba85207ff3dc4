package controllers

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/address-resolver/app/requests"
	"github.com/address-resolver/app/responses"
	"github.com/address-resolver/app/services"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AddressController controller xử lý các request liên quan đến địa chỉ
type AddressController struct {
	addressService *services.AddressService
	version        string
	logger         *zap.Logger
}

// NewAddressController tạo mới AddressController
func NewAddressController(addressService *services.AddressService, version string, logger *zap.Logger) *AddressController {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AddressController{
		addressService: addressService,
		version:        version,
		logger:         logger,
	}
}

// ParseAddress resolve một địa chỉ
func (ac *AddressController) ParseAddress(c *gin.Context) {
	var req requests.ParseAddressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, responses.CodeInvalidRequest, "Request không hợp lệ: "+err.Error(), nil)
		return
	}

	startTime := time.Now()
	result, cacheHit, err := ac.addressService.Resolve(c.Request.Context(), req.Address, req.Options.CacheEnabled())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if !req.Options.ReturnCandidates {
		trimmed := *result
		trimmed.Candidates = nil
		result = &trimmed
	}

	c.JSON(http.StatusOK, responses.ParseAddressResponse{
		GazetteerVersion: result.GazetteerVersion,
		Result:           result,
		ProcessingTimeMs: time.Since(startTime).Milliseconds(),
		CacheHit:         cacheHit,
	})
}

// BatchParse tạo batch job
func (ac *AddressController) BatchParse(c *gin.Context) {
	var req requests.BatchParseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, responses.CodeInvalidRequest, "Request không hợp lệ: "+err.Error(), nil)
		return
	}

	jobID, err := ac.addressService.SubmitBatch(req.Addresses)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, responses.BatchParseResponse{
		JobID:            jobID,
		EstimatedSeconds: ac.addressService.EstimateBatchProcessingTime(len(req.Addresses)),
		TotalAddresses:   len(req.Addresses),
		Message:          "Job đã được tạo và đang xử lý",
	})
}

// GetJobStatus lấy trạng thái job
func (ac *AddressController) GetJobStatus(c *gin.Context) {
	status, err := ac.addressService.GetJobStatus(c.Param("jobID"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// GetJobResults lấy kết quả job, hỗ trợ NDJSON + gzip streaming
func (ac *AddressController) GetJobResults(c *gin.Context) {
	jobID := c.Param("jobID")

	if c.Query("format") == "ndjson" {
		ac.streamNDJSONResults(c, jobID, c.Query("gzip") == "1")
		return
	}

	rows, err := ac.addressService.GetJobResults(jobID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	status, err := ac.addressService.GetJobStatus(jobID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, responses.JobResultsResponse{
		JobID:   jobID,
		Status:  status.Status,
		Summary: status.Summary,
		Results: rows,
	})
}

// ExportJob tải kết quả job dạng CSV hoặc XLSX
func (ac *AddressController) ExportJob(c *gin.Context) {
	jobID := c.Param("jobID")
	format := c.DefaultQuery("format", "csv")

	var contentType string
	switch format {
	case "csv":
		contentType = "text/csv; charset=utf-8"
	case "xlsx":
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		respondError(c, http.StatusBadRequest, responses.CodeInvalidRequest, fmt.Sprintf("Định dạng không hỗ trợ: %q", format), nil)
		return
	}

	var buf bytes.Buffer
	if err := ac.addressService.ExportJob(jobID, format, &buf); err != nil {
		status, code := errorStatus(err)
		if status == http.StatusInternalServerError {
			ac.logger.Error("Lỗi export job", zap.String("job_id", jobID), zap.Error(err))
			code = responses.CodeExportError
		}
		respondError(c, status, code, err.Error(), nil)
		return
	}

	filename := fmt.Sprintf("ket-qua-%s.%s", jobID, format)
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, contentType, buf.Bytes())
}

// CancelJob hủy job đang chạy
func (ac *AddressController) CancelJob(c *gin.Context) {
	jobID := c.Param("jobID")
	if err := ac.addressService.CancelJob(jobID); err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, responses.SuccessResponse{
		Success:   true,
		Message:   "Đã yêu cầu hủy job",
		Data:      gin.H{"job_id": jobID},
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

func (ac *AddressController) health(status string) responses.HealthCheckResponse {
	catalogState := "ready"
	if !ac.addressService.CatalogReady() {
		catalogState = "not_ready"
	}
	stats := ac.addressService.GetStats()
	version, _ := stats["catalog_version"].(string)

	return responses.HealthCheckResponse{
		Status:         status,
		Timestamp:      time.Now().Format(time.RFC3339),
		Uptime:         time.Since(ac.addressService.GetStartTime()).Round(time.Second).String(),
		Version:        ac.version,
		CatalogVersion: version,
		Services: map[string]string{
			"address_parser": "healthy",
			"catalog":        catalogState,
		},
	}
}

// HealthCheck kiểm tra sức khỏe service
func (ac *AddressController) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, ac.health("healthy"))
}

// Ready 503 cho tới khi catalog được nạp
func (ac *AddressController) Ready(c *gin.Context) {
	if !ac.addressService.CatalogReady() {
		c.JSON(http.StatusServiceUnavailable, ac.health("not_ready"))
		return
	}
	c.JSON(http.StatusOK, ac.health("ready"))
}

// Live process còn sống
func (ac *AddressController) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}

// streamNDJSONResults stream kết quả theo format NDJSON với hỗ trợ gzip
func (ac *AddressController) streamNDJSONResults(c *gin.Context, jobID string, gzipEnabled bool) {
	resultChannel, err := ac.addressService.GetJobResultsStream(c.Request.Context(), jobID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.Header("Content-Type", "application/x-ndjson")
	var writer gin.ResponseWriter = c.Writer
	if gzipEnabled {
		c.Header("Content-Encoding", "gzip")
		gzWriter := gzip.NewWriter(c.Writer)
		defer gzWriter.Close()
		writer = &gzipResponseWriter{
			ResponseWriter: c.Writer,
			gzWriter:       gzWriter,
		}
	}
	c.Status(http.StatusOK)

	encoder := json.NewEncoder(writer)
	for result := range resultChannel {
		if err := encoder.Encode(result); err != nil {
			ac.logger.Error("Lỗi encode NDJSON", zap.Error(err))
			break
		}
		writer.Flush()
	}
}

// gzipResponseWriter wrapper cho gzip writer
type gzipResponseWriter struct {
	gin.ResponseWriter
	gzWriter *gzip.Writer
}

func (w *gzipResponseWriter) Write(data []byte) (int, error) {
	return w.gzWriter.Write(data)
}

func (w *gzipResponseWriter) WriteString(s string) (int, error) {
	return w.gzWriter.Write([]byte(s))
}

func (w *gzipResponseWriter) Flush() {
	w.gzWriter.Flush()
	w.ResponseWriter.Flush()
}
