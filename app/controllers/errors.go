package controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/address-resolver/app/responses"
	"github.com/address-resolver/app/services"
	"github.com/gin-gonic/gin"
)

// RequestIDKey khóa lưu request ID trong gin.Context
const RequestIDKey = "request_id"

// respondError trả ErrorResponse kèm thời gian và request ID
func respondError(c *gin.Context, status int, code, message string, details interface{}) {
	c.JSON(status, responses.ErrorResponse{
		Error:     code,
		Message:   message,
		Details:   details,
		Timestamp: time.Now().Format(time.RFC3339),
		RequestID: c.GetString(RequestIDKey),
	})
}

// errorStatus ánh xạ lỗi service sang HTTP status và mã lỗi
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, services.ErrCatalogNotReady):
		return http.StatusServiceUnavailable, responses.CodeCatalogNotReady
	case errors.Is(err, services.ErrJobNotFound):
		return http.StatusNotFound, responses.CodeJobNotFound
	case errors.Is(err, services.ErrJobNotFinished):
		return http.StatusConflict, responses.CodeJobNotFinished
	case errors.Is(err, services.ErrJobFinished):
		return http.StatusConflict, responses.CodeJobFinished
	case errors.Is(err, services.ErrTooManyAddresses):
		return http.StatusBadRequest, responses.CodeTooManyAddresses
	case errors.Is(err, services.ErrNoAddresses), errors.Is(err, services.ErrUnsupportedFormat):
		return http.StatusBadRequest, responses.CodeInvalidRequest
	case errors.Is(err, services.ErrReviewNotFound):
		return http.StatusNotFound, responses.CodeReviewNotFound
	case errors.Is(err, services.ErrReviewClosed):
		return http.StatusConflict, responses.CodeReviewClosed
	case errors.Is(err, services.ErrSearchDisabled):
		return http.StatusServiceUnavailable, responses.CodeSearchDisabled
	case errors.Is(err, services.ErrEmptyCatalog):
		return http.StatusBadRequest, responses.CodeSeedError
	}
	return http.StatusInternalServerError, responses.CodeInternalError
}

// respondServiceError trả lỗi service theo errorStatus
func respondServiceError(c *gin.Context, err error) {
	status, code := errorStatus(err)
	respondError(c, status, code, err.Error(), nil)
}
